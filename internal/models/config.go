package models

import (
	"fmt"
	"strings"
	"time"
)

// Config represents the application configuration
type Config struct {
	Storage    StorageConfig
	Database   DatabaseConfig
	Lottery    LotteryRuntimeConfig
	Membership MembershipConfig
	Scheduler  SchedulerConfig
}

// StorageConfig holds state document settings
type StorageConfig struct {
	StatePath string `env:"STATE_FILE" envDefault:"data/data.json"`
	// PublishMode is "auto", "replace" or "backup".
	PublishMode string `env:"STATE_PUBLISH_MODE" envDefault:"auto"`
}

// DatabaseConfig holds audit database connection settings
type DatabaseConfig struct {
	Path            string        `env:"AUDIT_DB_PATH" envDefault:"data/audit.db"`
	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"4"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"2"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"5m"`
	ConnMaxIdleTime time.Duration `env:"DB_CONN_MAX_IDLE_TIME" envDefault:"30s"`
	PingTimeout     time.Duration `env:"DB_PING_TIMEOUT" envDefault:"5s"`
	// RetainEntries caps the audit table; 0 keeps everything.
	RetainEntries int `env:"AUDIT_RETAIN_ENTRIES" envDefault:"500"`
}

// LotteryRuntimeConfig holds coordinator settings that are not part of the
// persisted lottery configuration
type LotteryRuntimeConfig struct {
	TestMode     bool `env:"LOTTERY_TEST_MODE" envDefault:"false"`
	HistoryLimit int  `env:"LOTTERY_HISTORY_LIMIT" envDefault:"100"`
	// EscalationOrder ranks the lottery tiers from lowest to highest value.
	EscalationOrder []string `env:"LOTTERY_ESCALATION_ORDER" envSeparator:"," envDefault:"blue,purple,gold,event"`
}

// Order parses EscalationOrder. Every lottery tier must appear exactly once.
func (c LotteryRuntimeConfig) Order() ([]Tier, error) {
	order := make([]Tier, 0, len(c.EscalationOrder))
	for _, s := range c.EscalationOrder {
		t, err := ParseTier(s)
		if err != nil {
			return nil, err
		}
		order = append(order, t)
	}
	if !ValidEscalationOrder(order) {
		return nil, fmt.Errorf("escalation order %q must list gold, purple, blue and event once each",
			strings.Join(c.EscalationOrder, ","))
	}
	return order, nil
}

// MembershipConfig holds group membership cache and verifier settings
type MembershipConfig struct {
	CachePath     string        `env:"MEMBERSHIP_CACHE_FILE" envDefault:"data/group_members.json"`
	TTL           time.Duration `env:"MEMBERSHIP_TTL" envDefault:"720h"`
	SweepInterval time.Duration `env:"MEMBERSHIP_SWEEP_INTERVAL" envDefault:"15m"`
	FlushEvery    int           `env:"MEMBERSHIP_FLUSH_EVERY" envDefault:"50"`
	GroupsFile    string        `env:"GROUPS_FILE" envDefault:"groups.yaml"`

	// Filled from GroupsFile.
	TargetGroups []string
	SkipCheck    bool
}

// SchedulerConfig holds background task settings
type SchedulerConfig struct {
	RetryBackoff    time.Duration `env:"RESET_RETRY_BACKOFF" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
}
