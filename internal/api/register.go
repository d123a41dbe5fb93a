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

	"code-lottery-go/internal/ledger"
	"code-lottery-go/internal/models"
	"code-lottery-go/internal/store"

	"go.uber.org/zap"
)

// RegisterUser hands userID one registration code. In test mode a
// placeholder is issued and the pool is left untouched.
func (c *Coordinator) RegisterUser(ctx context.Context, userID string, testMode bool) (*models.RegisterResult, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", store.ErrValidation)
	}
	if err := c.enter(ctx); err != nil {
		return nil, err
	}
	defer c.mu.Unlock()

	if _, banned := c.state.Blacklist[userID]; banned {
		zap.L().Info("Registration rejected, user is blacklisted", zap.String("user_id", userID))
		return &models.RegisterResult{Status: models.StatusBlacklisted}, nil
	}

	if acct, ok := ledger.Lookup(c.state, userID); ok && acct.Registered {
		res := &models.RegisterResult{Status: models.StatusAlreadyRegistered}
		if acct.RegistrationCode != nil {
			res.Code = *acct.RegistrationCode
		}
		return res, nil
	}

	if !testMode && len(c.state.Pool(models.TierRegistration).Available) == 0 {
		zap.L().Warn("Registration pool is empty", zap.String("user_id", userID))
		return &models.RegisterResult{Status: models.StatusPoolEmpty}, nil
	}

	now := c.now()
	var code string
	err := c.commit(ctx, func(next *models.State) (bool, error) {
		if testMode {
			code = "TEST-REG-" + userID
		} else {
			popped, ok := ledger.PopCode(next, models.TierRegistration)
			if !ok {
				return false, nil
			}
			code = popped
			ledger.MarkUsed(next, models.TierRegistration, code, userID, now)
		}
		ledger.Register(ledger.Account(next, userID, now), code, now)
		return true, nil
	})
	if err != nil {
		zap.L().Error("Failed to persist registration", zap.String("user_id", userID), zap.Error(err))
		return &models.RegisterResult{Status: models.StatusPersistenceError}, fmt.Errorf("registration of %s: %w", userID, err)
	}

	detail := ""
	if testMode {
		detail = "test_mode"
	}
	c.record(ctx, "register", userID, detail)

	zap.L().Info("User registered",
		zap.String("user_id", userID),
		zap.Bool("test_mode", testMode),
		zap.String("code", models.RedactCode(code)))

	return &models.RegisterResult{Success: true, Status: models.StatusSuccess, Code: code}, nil
}

// ImportRegisteredUsers marks every id registered without issuing a code.
func (c *Coordinator) ImportRegisteredUsers(ctx context.Context, userIDs []string) (*models.ImportResult, error) {
	if err := c.enter(ctx); err != nil {
		return nil, err
	}
	defer c.mu.Unlock()

	now := c.now()
	var res models.ImportResult
	err := c.commit(ctx, func(next *models.State) (bool, error) {
		for _, id := range userIDs {
			id = strings.TrimSpace(id)
			if id == "" {
				continue
			}
			acct := ledger.Account(next, id, now)
			if acct.Registered {
				res.Skipped++
				continue
			}
			acct.Registered = true
			acct.Imported = true
			at := now
			acct.RegisteredAt = &at
			res.Added++
		}
		return res.Added > 0, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to import users: %w", err)
	}

	if res.Added > 0 {
		c.record(ctx, "import_users", "", fmt.Sprintf("added=%d skipped=%d", res.Added, res.Skipped))
	}
	zap.L().Info("Registered users imported", zap.Int("added", res.Added), zap.Int("skipped", res.Skipped))
	return &res, nil
}

// ResetUserRegistration clears the registration of userID. The issued code
// stays in the used index, flagged as revoked.
func (c *Coordinator) ResetUserRegistration(ctx context.Context, userID string) error {
	if err := c.enter(ctx); err != nil {
		return err
	}
	defer c.mu.Unlock()

	if acct, ok := ledger.Lookup(c.state, userID); !ok || !acct.Registered {
		return fmt.Errorf("%w: user %s is not registered", store.ErrNotFound, userID)
	}

	err := c.commit(ctx, func(next *models.State) (bool, error) {
		return ledger.ResetRegistration(next, userID), nil
	})
	if err != nil {
		return fmt.Errorf("failed to reset registration of %s: %w", userID, err)
	}

	c.record(ctx, "reset_registration", userID, "")
	zap.L().Info("Registration reset", zap.String("user_id", userID))
	return nil
}
