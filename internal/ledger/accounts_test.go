package ledger

import (
	"testing"
	"time"

	"code-lottery-go/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_WeekStart(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{
			name: "wednesday",
			in:   time.Date(2025, 3, 5, 15, 30, 0, 0, time.UTC),
			want: time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "monday midnight",
			in:   time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC),
			want: time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "sunday night",
			in:   time.Date(2025, 3, 9, 23, 59, 0, 0, time.UTC),
			want: time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WeekStart(tt.in))
		})
	}

	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		NextWeekStart(time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)))
}

func Test_Rollover(t *testing.T) {
	mon := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)
	st := models.NewState()
	acct := Account(st, "1", mon)
	RecordDraw(acct, mon)
	RecordDraw(acct, mon)

	assert.False(t, Rollover(acct, mon.Add(time.Hour)))
	assert.Equal(t, 2, acct.DayDraws)

	tue := mon.AddDate(0, 0, 1)
	require.True(t, Rollover(acct, tue))
	assert.Equal(t, 0, acct.DayDraws)
	assert.Equal(t, 2, acct.WeekDraws)

	nextMon := mon.AddDate(0, 0, 7)
	require.True(t, Rollover(acct, nextMon))
	assert.Equal(t, 0, acct.WeekDraws)
	assert.Equal(t, 2, acct.TotalDraws)
}

func Test_CheckLimits(t *testing.T) {
	cfg := models.DefaultLotteryConfig()
	cfg.WeeklyLimit = 2
	cfg.DailyLimit = 1

	acct := &models.UserAccount{}
	assert.Equal(t, models.StatusSuccess, CheckLimits(acct, cfg))

	acct.DayDraws = 1
	assert.Equal(t, models.StatusDailyLimitReached, CheckLimits(acct, cfg))

	acct.WeekDraws = 2
	assert.Equal(t, models.StatusWeeklyLimitReached, CheckLimits(acct, cfg))

	cfg.WeeklyLimit = 0
	cfg.DailyLimit = 0
	assert.Equal(t, models.StatusSuccess, CheckLimits(acct, cfg), "zero limits are unbounded")
}

func Test_ResetRegistration(t *testing.T) {
	now := time.Now()
	st := models.NewState()
	AddCodes(st, models.TierRegistration, []string{"REG-1"})
	code, _ := PopCode(st, models.TierRegistration)
	MarkUsed(st, models.TierRegistration, code, "1", now)
	Register(Account(st, "1", now), code, now)

	require.True(t, ResetRegistration(st, "1"))
	acct, _ := Lookup(st, "1")
	assert.False(t, acct.Registered)
	assert.Nil(t, acct.RegistrationCode)
	assert.True(t, st.Pool(models.TierRegistration).Used["REG-1"].Revoked)

	assert.False(t, ResetRegistration(st, "1"))
	assert.False(t, ResetRegistration(st, "nobody"))
}

func Test_ResetWeekAndClamp(t *testing.T) {
	now := time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC)
	st := models.NewState()
	Account(st, "1", now).WeekDraws = 3
	Account(st, "2", now).DayDraws = 4
	Account(st, "3", now)

	cfg := models.DefaultLotteryConfig()
	cfg.WeeklyLimit = 1
	cfg.DailyLimit = 2
	assert.Equal(t, 2, ClampCounters(st, cfg))
	assert.Equal(t, 1, st.Users["1"].WeekDraws)
	assert.Equal(t, 2, st.Users["2"].DayDraws)

	assert.Equal(t, 1, ResetWeek(st, now))
	for _, acct := range st.Users {
		assert.Zero(t, acct.WeekDraws)
		assert.Equal(t, WeekStart(now), acct.LastWeekReset)
	}
}
