/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is the outcome of a named transaction.
type Status string

const (
	StatusSuccess            Status = "success"
	StatusAlreadyRegistered  Status = "already_registered"
	StatusBlacklisted        Status = "blacklisted"
	StatusPoolEmpty          Status = "pool_empty"
	StatusWeeklyLimitReached Status = "weekly_limit_reached"
	StatusDailyLimitReached  Status = "daily_limit_reached"
	StatusPersistenceError   Status = "persistence_error"
)

// RegisterResult is returned by RegisterUser.
type RegisterResult struct {
	Success bool   `json:"success"`
	Status  Status `json:"status"`
	Code    string `json:"code,omitempty"`
}

// DrawResult is returned by DrawLottery.
type DrawResult struct {
	Success bool   `json:"success"`
	Status  Status `json:"status"`
	Tier    Tier   `json:"tier,omitempty"`
	Code    string `json:"code,omitempty"`
	// PityTriggered is set when the tier was forced by the pity rule.
	PityTriggered bool `json:"pity_triggered,omitempty"`
}

// ImportResult reports a bulk code or user import.
type ImportResult struct {
	Added   int `json:"added"`
	Skipped int `json:"skipped"`
}

// RemoveResult reports a bulk code removal.
type RemoveResult struct {
	Removed  int `json:"removed"`
	NotFound int `json:"not_found"`
}

// PoolCounts is the available stock per tier.
type PoolCounts struct {
	Registration int  `json:"registration"`
	Gold         int  `json:"gold"`
	Purple       int  `json:"purple"`
	Blue         int  `json:"blue"`
	Event        int  `json:"event"`
	EventActive  bool `json:"event_active"`
}

// Of returns the count for t.
func (c PoolCounts) Of(t Tier) int {
	switch t {
	case TierRegistration:
		return c.Registration
	case TierGold:
		return c.Gold
	case TierPurple:
		return c.Purple
	case TierBlue:
		return c.Blue
	case TierEvent:
		return c.Event
	}
	return 0
}

// TierOdds is the effective probability of a tier given current stock.
type TierOdds struct {
	Tier    Tier            `json:"tier"`
	Stock   int             `json:"stock"`
	Weight  int             `json:"weight"`
	Percent decimal.Decimal `json:"percent"`
}

// Statistics aggregates the ledger for admin reporting.
type Statistics struct {
	RegisteredUsers       int          `json:"registered_users"`
	RegistrationAvailable int          `json:"registration_available"`
	RegistrationUsed      int          `json:"registration_used"`
	Pools                 PoolCounts   `json:"pools"`
	DrawsByTier           map[Tier]int `json:"draws_by_tier"`
	BlacklistCount        int          `json:"blacklist_count"`
	TotalDraws            int          `json:"total_draws"`
}

// AuditEntry is one redacted, append-only record of a state change.
type AuditEntry struct {
	ID     string    `json:"id"`
	Action string    `json:"action"`
	UserID string    `json:"user_id"`
	Detail string    `json:"detail"`
	Time   time.Time `json:"time"`
}

// Announcement is the single optional notice shown to users.
type Announcement struct {
	Content   string     `json:"content"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}
