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

package config

import (
	"errors"
	"fmt"
	"io/fs"

	"code-lottery-go/internal/models"

	"github.com/caarlos0/env/v11"
	"go.uber.org/zap"
)

// Load reads the configuration from the environment and the groups file.
func Load() (*models.Config, error) {
	var cfg models.Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("invalid environment configuration: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	groups, err := LoadGroups(cfg.Membership.GroupsFile)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		zap.L().Warn("Groups file not found, membership checks are open",
			zap.String("file", cfg.Membership.GroupsFile))
	case err != nil:
		return nil, err
	default:
		cfg.Membership.TargetGroups = groups.TargetGroups
		cfg.Membership.SkipCheck = groups.SkipGroupCheck
	}

	return &cfg, nil
}

func validate(cfg *models.Config) error {
	if cfg.Storage.StatePath == "" {
		return fmt.Errorf("STATE_FILE cannot be empty")
	}
	switch cfg.Storage.PublishMode {
	case "auto", "replace", "backup":
	default:
		return fmt.Errorf("STATE_PUBLISH_MODE must be auto, replace or backup, got %q", cfg.Storage.PublishMode)
	}
	if cfg.Lottery.HistoryLimit <= 0 {
		return fmt.Errorf("LOTTERY_HISTORY_LIMIT must be positive, got %d", cfg.Lottery.HistoryLimit)
	}
	if _, err := cfg.Lottery.Order(); err != nil {
		return fmt.Errorf("LOTTERY_ESCALATION_ORDER: %w", err)
	}
	if cfg.Membership.TTL <= 0 {
		return fmt.Errorf("MEMBERSHIP_TTL must be positive, got %v", cfg.Membership.TTL)
	}
	if cfg.Membership.SweepInterval <= 0 {
		return fmt.Errorf("MEMBERSHIP_SWEEP_INTERVAL must be positive, got %v", cfg.Membership.SweepInterval)
	}
	if cfg.Scheduler.RetryBackoff <= 0 {
		return fmt.Errorf("RESET_RETRY_BACKOFF must be positive, got %v", cfg.Scheduler.RetryBackoff)
	}
	return nil
}
