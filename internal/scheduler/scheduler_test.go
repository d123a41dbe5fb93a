package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Supervise_RestartsAfterFailureAndPanic(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	job := func(ctx context.Context) error {
		switch calls.Add(1) {
		case 1:
			return errors.New("disk full")
		case 2:
			panic("boom")
		case 3:
			cancel()
			<-ctx.Done()
			return ctx.Err()
		}
		return nil
	}

	err := Supervise(ctx, "test", time.Millisecond, job)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(3), calls.Load())
}

func Test_Supervise_StopsDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- Supervise(ctx, "test", time.Hour, func(context.Context) error {
			return errors.New("always failing")
		})
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("supervisor did not stop during backoff")
	}
}

func Test_Sleep(t *testing.T) {
	require.NoError(t, Sleep(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Sleep(ctx, time.Hour), context.Canceled)
}

type fakeResetter struct {
	calls int
	err   error
}

func (f *fakeResetter) WeeklyReset(context.Context) (int, error) {
	f.calls++
	return 4, f.err
}

func Test_WeeklyResetJob_WaitsForMonday(t *testing.T) {
	wed := time.Date(2025, 3, 5, 18, 0, 0, 0, time.UTC)
	r := &fakeResetter{}
	job := NewWeeklyResetJob(r, func() time.Time { return wed })

	var waited time.Duration
	job.sleep = func(_ context.Context, d time.Duration) error {
		waited = d
		return nil
	}

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 4*24*time.Hour+6*time.Hour, waited)
	assert.Equal(t, 1, r.calls)

}

func Test_WeeklyResetJob_RetriesFailedBoundary(t *testing.T) {
	wed := time.Date(2025, 3, 5, 18, 0, 0, 0, time.UTC)
	r := &fakeResetter{err: errors.New("persistence failed")}
	job := NewWeeklyResetJob(r, func() time.Time { return wed })

	var sleeps []time.Duration
	job.sleep = func(_ context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return nil
	}

	require.Error(t, job.Run(context.Background()))
	require.Len(t, sleeps, 1)
	assert.Equal(t, 1, r.calls)

	// The retry goes straight to the reset.
	r.err = nil
	require.NoError(t, job.Run(context.Background()))
	assert.Len(t, sleeps, 1)
	assert.Equal(t, 2, r.calls)

	// Once done, the job waits for the following Monday again.
	require.NoError(t, job.Run(context.Background()))
	assert.Len(t, sleeps, 2)
	assert.Equal(t, 3, r.calls)
}

func Test_WeeklyResetJob_CancelledWait(t *testing.T) {
	r := &fakeResetter{}
	job := NewWeeklyResetJob(r, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, job.Run(ctx), context.Canceled)
	assert.Zero(t, r.calls)
}
