package scheduler

import (
	"context"
	"fmt"
	"time"

	"code-lottery-go/internal/ledger"

	"go.uber.org/zap"
)

// WeeklyResetter is implemented by the coordinator.
type WeeklyResetter interface {
	WeeklyReset(ctx context.Context) (int, error)
}

// WeeklyResetJob waits for the next Monday midnight and resets every weekly
// draw counter. A boundary whose reset failed stays pending and is retried
// on the next Run without waiting for the following week.
type WeeklyResetJob struct {
	resetter WeeklyResetter
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error
	pending  time.Time
}

func NewWeeklyResetJob(resetter WeeklyResetter, now func() time.Time) *WeeklyResetJob {
	if now == nil {
		now = time.Now
	}
	return &WeeklyResetJob{resetter: resetter, now: now, sleep: Sleep}
}

// Run performs one wait-and-reset cycle. It is meant to be driven by
// Supervise.
func (j *WeeklyResetJob) Run(ctx context.Context) error {
	if j.pending.IsZero() {
		now := j.now()
		next := ledger.NextWeekStart(now)
		wait := next.Sub(now)

		zap.L().Info("Next weekly reset scheduled", zap.Time("at", next), zap.Duration("in", wait))
		if err := j.sleep(ctx, wait); err != nil {
			return err
		}
		j.pending = next
	} else {
		zap.L().Warn("Retrying weekly reset", zap.Time("boundary", j.pending))
	}

	n, err := j.resetter.WeeklyReset(ctx)
	if err != nil {
		return fmt.Errorf("weekly reset for %s: %w", j.pending.Format(time.DateOnly), err)
	}
	j.pending = time.Time{}
	zap.L().Info("Weekly draw counters reset", zap.Int("accounts", n))
	return nil
}
