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

// Package scheduler runs background jobs that must survive their own
// failures.
package scheduler

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"go.uber.org/zap"
)

// Job is one iteration of supervised work.
type Job func(ctx context.Context) error

// Sleep waits for d or until ctx is done, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Supervise runs job in a loop until ctx is done. An iteration that fails or
// panics is logged and followed by a fixed backoff; a clean iteration is
// followed immediately by the next one.
func Supervise(ctx context.Context, name string, backoff time.Duration, job Job) error {
	zap.L().Info("Supervisor started", zap.String("job", name), zap.Duration("backoff", backoff))

	restarts := 0
	for {
		err := runSafely(ctx, job)
		if ctx.Err() != nil {
			zap.L().Info("Supervisor stopped", zap.String("job", name), zap.Int("restarts", restarts))
			return ctx.Err()
		}
		if err == nil {
			continue
		}

		restarts++
		zap.L().Error("Supervised job failed, retrying after backoff",
			zap.String("job", name),
			zap.Int("restarts", restarts),
			zap.Duration("backoff", backoff),
			zap.Error(err))

		if err := Sleep(ctx, backoff); err != nil {
			zap.L().Info("Supervisor stopped", zap.String("job", name), zap.Int("restarts", restarts))
			return err
		}
	}
}

func runSafely(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("Supervised job panicked", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return job(ctx)
}
