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

	"code-lottery-go/internal/allocator"
	"code-lottery-go/internal/ledger"
	"code-lottery-go/internal/models"
	"code-lottery-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DrawLottery performs one draw for userID. Test mode issues a placeholder
// instead of consuming stock but still counts against every limit.
func (c *Coordinator) DrawLottery(ctx context.Context, userID string, testMode bool) (*models.DrawResult, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", store.ErrValidation)
	}
	if err := c.enter(ctx); err != nil {
		return nil, err
	}
	defer c.mu.Unlock()

	if _, banned := c.state.Blacklist[userID]; banned {
		zap.L().Info("Draw rejected, user is blacklisted", zap.String("user_id", userID))
		return &models.DrawResult{Status: models.StatusBlacklisted}, nil
	}

	now := c.now()
	res := &models.DrawResult{}
	var digest string
	err := c.commit(ctx, func(next *models.State) (bool, error) {
		acct := ledger.Account(next, userID, now)
		ledger.Rollover(acct, now)

		if status := ledger.CheckLimits(acct, next.Config); status != models.StatusSuccess {
			res.Status = status
			return false, nil
		}

		cfg := next.Config
		// Stock is taken at this instant, so an event deadline that passed
		// since the user was shown the offer already counts as empty.
		decision, ok := allocator.Pick(allocator.Input{
			Weights:       cfg.Weights,
			Stock:         ledger.Stock(next, now),
			PityCounter:   acct.PityCounter,
			PityThreshold: cfg.PityThreshold,
			PityTier:      cfg.PityTier,
			Order:         c.order,
		}, c.rng)
		if !ok {
			res.Status = models.StatusPoolEmpty
			return false, nil
		}

		var code string
		if testMode {
			code = testDrawCode(decision.Tier, userID, now)
			digest = models.TestCodeDigest
		} else {
			popped, ok := ledger.PopCode(next, decision.Tier)
			if !ok {
				res.Status = models.StatusPoolEmpty
				return false, nil
			}
			code = popped
			ledger.MarkUsed(next, decision.Tier, code, userID, now)
			digest = models.RedactCode(code)
		}

		ledger.RecordDraw(acct, now)
		acct.PityCounter = allocator.NextPity(acct.PityCounter, decision.Tier, cfg.PityTier, c.order)
		c.appendHistory(next, models.HistoryEntry{
			ID:         uuid.NewString(),
			UserID:     userID,
			Tier:       decision.Tier,
			CodeDigest: digest,
			Time:       now,
			Test:       testMode,
		})

		*res = models.DrawResult{
			Success:       true,
			Status:        models.StatusSuccess,
			Tier:          decision.Tier,
			Code:          code,
			PityTriggered: decision.PityTriggered,
		}
		return true, nil
	})
	if err != nil {
		zap.L().Error("Failed to persist draw", zap.String("user_id", userID), zap.Error(err))
		return &models.DrawResult{Status: models.StatusPersistenceError}, fmt.Errorf("draw for %s: %w", userID, err)
	}

	if !res.Success {
		zap.L().Info("Draw rejected", zap.String("user_id", userID), zap.String("status", string(res.Status)))
		return res, nil
	}

	detail := "tier=" + res.Tier.String()
	if res.PityTriggered {
		detail += " pity"
	}
	if testMode {
		detail += " test_mode"
	}
	c.record(ctx, "draw", userID, detail)

	zap.L().Info("Draw completed",
		zap.String("user_id", userID),
		zap.String("tier", res.Tier.String()),
		zap.String("code", digest),
		zap.Bool("pity", res.PityTriggered),
		zap.Bool("test_mode", testMode))

	return res, nil
}

func (c *Coordinator) appendHistory(st *models.State, entry models.HistoryEntry) {
	history := make([]models.HistoryEntry, 0, len(st.History)+1)
	history = append(history, entry)
	history = append(history, st.History...)
	if len(history) > c.historyLimit {
		history = history[:c.historyLimit]
	}
	st.History = history
}

func testDrawCode(tier models.Tier, userID string, now time.Time) string {
	return fmt.Sprintf("TEST-%s-%s-%s-%s",
		strings.ToUpper(tier.String()), userID, now.Format("20060102150405"), uuid.NewString()[:8])
}

// CanDraw reports the status a draw would have right now without performing
// it. The answer is advisory; DrawLottery checks again under the lock.
func (c *Coordinator) CanDraw(userID string) models.Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, banned := c.state.Blacklist[userID]; banned {
		return models.StatusBlacklisted
	}

	now := c.now()
	acct := &models.UserAccount{LastWeekReset: ledger.WeekStart(now), LastDayReset: ledger.DayStart(now)}
	if existing, ok := ledger.Lookup(c.state, userID); ok {
		acct = existing.Clone()
	}
	ledger.Rollover(acct, now)
	if status := ledger.CheckLimits(acct, c.state.Config); status != models.StatusSuccess {
		return status
	}

	cfg := c.state.Config
	_, ok := allocator.Pick(allocator.Input{
		Weights:       cfg.Weights,
		Stock:         ledger.Stock(c.state, now),
		PityCounter:   acct.PityCounter,
		PityThreshold: cfg.PityThreshold,
		PityTier:      cfg.PityTier,
		Order:         c.order,
	}, probeRand{})
	if !ok {
		return models.StatusPoolEmpty
	}
	return models.StatusSuccess
}

// probeRand leaves the real source untouched when only availability matters.
type probeRand struct{}

func (probeRand) IntN(int) int { return 0 }
