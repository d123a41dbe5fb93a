package ledger

import (
	"time"

	"code-lottery-go/internal/models"
)

// DayStart returns local midnight of t's day.
func DayStart(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// WeekStart returns midnight of the Monday on or before t.
func WeekStart(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	return DayStart(t).AddDate(0, 0, -offset)
}

// NextWeekStart returns the first Monday midnight strictly after t.
func NextWeekStart(t time.Time) time.Time {
	return WeekStart(t).AddDate(0, 0, 7)
}

// Lookup returns the account of userID without creating one.
func Lookup(st *models.State, userID string) (*models.UserAccount, bool) {
	acct, ok := st.Users[userID]
	return acct, ok && acct != nil
}

// Account returns the account of userID, creating it on first use.
func Account(st *models.State, userID string, now time.Time) *models.UserAccount {
	if acct, ok := Lookup(st, userID); ok {
		return acct
	}
	acct := &models.UserAccount{
		LastWeekReset: WeekStart(now),
		LastDayReset:  DayStart(now),
	}
	st.Users[userID] = acct
	return acct
}

// Rollover zeroes the day and week counters once now has crossed the
// respective boundary. It reports whether anything changed.
func Rollover(acct *models.UserAccount, now time.Time) bool {
	changed := false
	if day := DayStart(now); acct.LastDayReset.Before(day) {
		acct.DayDraws = 0
		acct.LastDayReset = day
		changed = true
	}
	if week := WeekStart(now); acct.LastWeekReset.Before(week) {
		acct.WeekDraws = 0
		acct.LastWeekReset = week
		changed = true
	}
	return changed
}

// CheckLimits returns the limit status for one more draw, or StatusSuccess.
// A limit of zero is unbounded.
func CheckLimits(acct *models.UserAccount, cfg models.LotteryConfig) models.Status {
	if cfg.WeeklyLimit > 0 && acct.WeekDraws >= cfg.WeeklyLimit {
		return models.StatusWeeklyLimitReached
	}
	if cfg.DailyLimit > 0 && acct.DayDraws >= cfg.DailyLimit {
		return models.StatusDailyLimitReached
	}
	return models.StatusSuccess
}

// RecordDraw counts one draw against every counter.
func RecordDraw(acct *models.UserAccount, now time.Time) {
	acct.TotalDraws++
	acct.WeekDraws++
	acct.DayDraws++
	at := now
	acct.LastDrawAt = &at
}

// Register marks acct registered with code.
func Register(acct *models.UserAccount, code string, now time.Time) {
	c := code
	at := now
	acct.Registered = true
	acct.RegistrationCode = &c
	acct.RegisteredAt = &at
}

// ResetRegistration clears the registration of userID and revokes its code.
func ResetRegistration(st *models.State, userID string) bool {
	acct, ok := Lookup(st, userID)
	if !ok || !acct.Registered {
		return false
	}
	if acct.RegistrationCode != nil {
		RevokeCode(st, models.TierRegistration, *acct.RegistrationCode)
	}
	acct.Registered = false
	acct.RegistrationCode = nil
	acct.RegisteredAt = nil
	acct.Imported = false
	return true
}

// ResetLottery zeroes the draw counters of acct.
func ResetLottery(acct *models.UserAccount, now time.Time) {
	acct.TotalDraws = 0
	acct.WeekDraws = 0
	acct.DayDraws = 0
	acct.PityCounter = 0
	acct.LastWeekReset = WeekStart(now)
	acct.LastDayReset = DayStart(now)
}

// ResetWeek zeroes every week counter and returns how many accounts had one.
func ResetWeek(st *models.State, now time.Time) int {
	week := WeekStart(now)
	n := 0
	for _, acct := range st.Users {
		if acct.WeekDraws > 0 {
			n++
		}
		acct.WeekDraws = 0
		acct.LastWeekReset = week
	}
	return n
}

// ClampCounters keeps every counter within the limits of cfg.
func ClampCounters(st *models.State, cfg models.LotteryConfig) int {
	n := 0
	for _, acct := range st.Users {
		if cfg.WeeklyLimit > 0 && acct.WeekDraws > cfg.WeeklyLimit {
			acct.WeekDraws = cfg.WeeklyLimit
			n++
		}
		if cfg.DailyLimit > 0 && acct.DayDraws > cfg.DailyLimit {
			acct.DayDraws = cfg.DailyLimit
			n++
		}
	}
	return n
}

// RegisteredCount returns the number of registered accounts.
func RegisteredCount(st *models.State) int {
	n := 0
	for _, acct := range st.Users {
		if acct.Registered {
			n++
		}
	}
	return n
}
