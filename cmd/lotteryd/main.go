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

package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"code-lottery-go/internal/common"
	"code-lottery-go/internal/config"
	"code-lottery-go/internal/listener"
	"code-lottery-go/internal/models"
	"code-lottery-go/internal/scheduler"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	feedPath := flag.String("feed", "", "Path of a newline-delimited JSON observation feed, or - for stdin (default: no feed)")
	debounce := flag.Duration("debounce", time.Minute, "Ignore repeated observations of the same user in the same group within this window")
	healthInterval := flag.Duration("health-interval", 5*time.Minute, "How often to check the state and audit stores")
	flag.Parse()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	zap.L().Info("Starting lottery daemon")

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}

	observations := make(chan models.GroupMessage, 64)
	ml := listener.NewMembershipListener(listener.MembershipListenerConfig{
		Cache:         services.Cache,
		Source:        observations,
		SweepInterval: cfg.Membership.SweepInterval,
		Debounce:      *debounce,
	})
	ml.Start(ctx)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		job := scheduler.NewWeeklyResetJob(services.Coordinator, nil)
		return scheduler.Supervise(gctx, "weekly-reset", cfg.Scheduler.RetryBackoff, job.Run)
	})

	g.Go(func() error {
		return scheduler.Supervise(gctx, "health-check", cfg.Scheduler.RetryBackoff, func(ctx context.Context) error {
			if err := scheduler.Sleep(ctx, *healthInterval); err != nil {
				return err
			}
			return services.Coordinator.HealthCheck(ctx)
		})
	})

	if *feedPath != "" {
		feed, closeFeed, err := openFeed(*feedPath)
		if err != nil {
			zap.L().Fatal("Failed to open observation feed", zap.String("feed", *feedPath), zap.Error(err))
		}
		defer closeFeed()

		zap.L().Info("Reading observation feed", zap.String("feed", *feedPath))
		// Not part of the group: a blocked read must not delay shutdown.
		go func() {
			if err := listener.ReadFeed(ctx, feed, observations); err != nil && !errors.Is(err, context.Canceled) {
				zap.L().Error("Observation feed failed", zap.Error(err))
			}
		}()
	} else {
		close(observations)
	}

	zap.L().Info("Lottery daemon running")
	zap.L().Info("Press Ctrl+C to stop")

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		zap.L().Error("Background task failed", zap.Error(err))
	}

	zap.L().Info("Shutdown signal received, stopping...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Scheduler.ShutdownTimeout)
	defer shutdownCancel()

	done := make(chan struct{})
	go func() {
		ml.Stop()
		services.Close(shutdownCtx)
		close(done)
	}()

	select {
	case <-done:
		zap.L().Info("Lottery daemon stopped gracefully")
	case <-shutdownCtx.Done():
		zap.L().Warn("Forced shutdown after timeout")
	}
}

func openFeed(path string) (io.Reader, func(), error) {
	if path == "-" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { _ = f.Close() }, nil
}
