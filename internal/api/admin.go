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

package api

import (
	"context"
	"fmt"
	"strings"
	"time"

	"code-lottery-go/internal/ledger"
	"code-lottery-go/internal/models"
	"code-lottery-go/internal/store"

	"go.uber.org/zap"
)

// AddCodes imports codes into tier, skipping any code known to any pool.
func (c *Coordinator) AddCodes(ctx context.Context, tier models.Tier, codes []string) (*models.ImportResult, error) {
	if !tier.Valid() {
		return nil, fmt.Errorf("%w: unknown tier %q", store.ErrValidation, tier)
	}
	if err := c.enter(ctx); err != nil {
		return nil, err
	}
	defer c.mu.Unlock()

	var res models.ImportResult
	err := c.commit(ctx, func(next *models.State) (bool, error) {
		res = ledger.AddCodes(next, tier, codes)
		return res.Added > 0, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add %s codes: %w", tier, err)
	}

	if res.Added > 0 {
		c.record(ctx, "add_codes", "", fmt.Sprintf("tier=%s added=%d skipped=%d", tier, res.Added, res.Skipped))
	}
	zap.L().Info("Codes imported",
		zap.String("tier", tier.String()),
		zap.Int("added", res.Added),
		zap.Int("skipped", res.Skipped))
	return &res, nil
}

// RemoveCodes withdraws available codes from tier.
func (c *Coordinator) RemoveCodes(ctx context.Context, tier models.Tier, codes []string) (*models.RemoveResult, error) {
	if !tier.Valid() {
		return nil, fmt.Errorf("%w: unknown tier %q", store.ErrValidation, tier)
	}
	if err := c.enter(ctx); err != nil {
		return nil, err
	}
	defer c.mu.Unlock()

	var res models.RemoveResult
	err := c.commit(ctx, func(next *models.State) (bool, error) {
		res = ledger.RemoveCodes(next, tier, codes)
		return res.Removed > 0, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to remove %s codes: %w", tier, err)
	}

	if res.Removed > 0 {
		c.record(ctx, "remove_codes", "", fmt.Sprintf("tier=%s removed=%d not_found=%d", tier, res.Removed, res.NotFound))
	}
	zap.L().Info("Codes removed",
		zap.String("tier", tier.String()),
		zap.Int("removed", res.Removed),
		zap.Int("not_found", res.NotFound))
	return &res, nil
}

// ResetUserLottery zeroes the draw counters and pity streak of userID.
func (c *Coordinator) ResetUserLottery(ctx context.Context, userID string) error {
	if err := c.enter(ctx); err != nil {
		return err
	}
	defer c.mu.Unlock()

	if _, ok := ledger.Lookup(c.state, userID); !ok {
		return fmt.Errorf("%w: user %s has no account", store.ErrNotFound, userID)
	}

	now := c.now()
	err := c.commit(ctx, func(next *models.State) (bool, error) {
		acct, _ := ledger.Lookup(next, userID)
		ledger.ResetLottery(acct, now)
		return true, nil
	})
	if err != nil {
		return fmt.Errorf("failed to reset lottery of %s: %w", userID, err)
	}

	c.record(ctx, "reset_lottery", userID, "")
	zap.L().Info("Lottery counters reset", zap.String("user_id", userID))
	return nil
}

// BlacklistAdd bans userID. It reports false when the user was already banned.
func (c *Coordinator) BlacklistAdd(ctx context.Context, userID string) (bool, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return false, fmt.Errorf("%w: user id is required", store.ErrValidation)
	}
	if err := c.enter(ctx); err != nil {
		return false, err
	}
	defer c.mu.Unlock()

	if _, ok := c.state.Blacklist[userID]; ok {
		return false, nil
	}
	err := c.commit(ctx, func(next *models.State) (bool, error) {
		next.Blacklist[userID] = struct{}{}
		return true, nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to blacklist %s: %w", userID, err)
	}

	c.record(ctx, "blacklist_add", userID, "")
	zap.L().Info("User blacklisted", zap.String("user_id", userID))
	return true, nil
}

// BlacklistRemove lifts the ban on userID. It reports false when the user was
// not banned.
func (c *Coordinator) BlacklistRemove(ctx context.Context, userID string) (bool, error) {
	if err := c.enter(ctx); err != nil {
		return false, err
	}
	defer c.mu.Unlock()

	if _, ok := c.state.Blacklist[userID]; !ok {
		return false, nil
	}
	err := c.commit(ctx, func(next *models.State) (bool, error) {
		delete(next.Blacklist, userID)
		return true, nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to unblacklist %s: %w", userID, err)
	}

	c.record(ctx, "blacklist_remove", userID, "")
	zap.L().Info("User removed from blacklist", zap.String("user_id", userID))
	return true, nil
}

// BlacklistClear empties the blacklist and returns how many ids it held.
func (c *Coordinator) BlacklistClear(ctx context.Context) (int, error) {
	if err := c.enter(ctx); err != nil {
		return 0, err
	}
	defer c.mu.Unlock()

	n := len(c.state.Blacklist)
	err := c.commit(ctx, func(next *models.State) (bool, error) {
		next.Blacklist = make(map[string]struct{})
		return n > 0, nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to clear blacklist: %w", err)
	}

	if n > 0 {
		c.record(ctx, "blacklist_clear", "", fmt.Sprintf("count=%d", n))
	}
	return n, nil
}

// UpdateLotteryConfig applies update and returns the resulting config. Draw
// counters above a lowered limit are clamped to it.
func (c *Coordinator) UpdateLotteryConfig(ctx context.Context, update models.LotteryConfigUpdate) (*models.LotteryConfig, error) {
	if update.Empty() {
		return nil, fmt.Errorf("%w: no config field given", store.ErrValidation)
	}
	if err := c.enter(ctx); err != nil {
		return nil, err
	}
	defer c.mu.Unlock()

	cfg, err := update.Apply(c.state.Config)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrValidation, err)
	}

	clamped := 0
	err = c.commit(ctx, func(next *models.State) (bool, error) {
		next.Config = cfg
		clamped = ledger.ClampCounters(next, cfg)
		return true, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update lottery config: %w", err)
	}

	c.record(ctx, "update_config", "", fmt.Sprintf(
		"weights=%d/%d/%d/%d pity=%d@%s weekly=%d daily=%d",
		cfg.Weights.Gold, cfg.Weights.Purple, cfg.Weights.Blue, cfg.Weights.Event,
		cfg.PityThreshold, cfg.PityTier, cfg.WeeklyLimit, cfg.DailyLimit))
	zap.L().Info("Lottery config updated", zap.Int("clamped_counters", clamped))

	out := cfg.Clone()
	return &out, nil
}

// SetEventPool opens the event tier under name until expiresAt. A nil
// deadline keeps it open until DisableEventPool.
func (c *Coordinator) SetEventPool(ctx context.Context, name string, expiresAt *time.Time) error {
	if err := c.enter(ctx); err != nil {
		return err
	}
	defer c.mu.Unlock()

	if expiresAt != nil && !expiresAt.After(c.now()) {
		return fmt.Errorf("%w: event deadline %s is in the past", store.ErrExpired, expiresAt.Format(time.RFC3339))
	}

	err := c.commit(ctx, func(next *models.State) (bool, error) {
		ev := models.EventPoolConfig{Enabled: true, Name: strings.TrimSpace(name)}
		if expiresAt != nil {
			t := *expiresAt
			ev.ExpiresAt = &t
		}
		next.Config.EventPool = ev
		return true, nil
	})
	if err != nil {
		return fmt.Errorf("failed to open event pool: %w", err)
	}

	detail := "name=" + strings.TrimSpace(name)
	if expiresAt != nil {
		detail += " expires=" + expiresAt.Format(time.RFC3339)
	}
	c.record(ctx, "event_open", "", detail)
	zap.L().Info("Event pool opened", zap.String("name", name))
	return nil
}

// DisableEventPool closes the event tier.
func (c *Coordinator) DisableEventPool(ctx context.Context) error {
	if err := c.enter(ctx); err != nil {
		return err
	}
	defer c.mu.Unlock()

	if !c.state.Config.EventPool.Enabled {
		return nil
	}
	err := c.commit(ctx, func(next *models.State) (bool, error) {
		next.Config.EventPool.Enabled = false
		return true, nil
	})
	if err != nil {
		return fmt.Errorf("failed to close event pool: %w", err)
	}

	c.record(ctx, "event_close", "", "")
	zap.L().Info("Event pool closed")
	return nil
}

// SetAnnouncement replaces the announcement.
func (c *Coordinator) SetAnnouncement(ctx context.Context, content string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return fmt.Errorf("%w: announcement is empty", store.ErrValidation)
	}
	if err := c.enter(ctx); err != nil {
		return err
	}
	defer c.mu.Unlock()

	now := c.now()
	err := c.commit(ctx, func(next *models.State) (bool, error) {
		text := content
		next.Announcement = &text
		next.AnnouncementUpdatedAt = &now
		return true, nil
	})
	if err != nil {
		return fmt.Errorf("failed to set announcement: %w", err)
	}

	c.record(ctx, "announcement_set", "", fmt.Sprintf("length=%d", len([]rune(content))))
	return nil
}

// ClearAnnouncement removes the announcement. It reports false when there was
// none.
func (c *Coordinator) ClearAnnouncement(ctx context.Context) (bool, error) {
	if err := c.enter(ctx); err != nil {
		return false, err
	}
	defer c.mu.Unlock()

	if c.state.Announcement == nil {
		return false, nil
	}
	now := c.now()
	err := c.commit(ctx, func(next *models.State) (bool, error) {
		next.Announcement = nil
		next.AnnouncementUpdatedAt = &now
		return true, nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to clear announcement: %w", err)
	}

	c.record(ctx, "announcement_clear", "", "")
	return true, nil
}

// WeeklyReset zeroes every week counter. It takes the same lock as draws, so
// it never interleaves with one.
func (c *Coordinator) WeeklyReset(ctx context.Context) (int, error) {
	if err := c.enter(ctx); err != nil {
		return 0, err
	}
	defer c.mu.Unlock()

	now := c.now()
	n := 0
	err := c.commit(ctx, func(next *models.State) (bool, error) {
		n = ledger.ResetWeek(next, now)
		return len(next.Users) > 0, nil
	})
	if err != nil {
		return 0, fmt.Errorf("weekly reset failed: %w", err)
	}

	c.record(ctx, "weekly_reset", "", fmt.Sprintf("accounts=%d", n))
	zap.L().Info("Weekly reset completed", zap.Int("accounts_reset", n))
	return n, nil
}
