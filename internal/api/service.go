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
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"code-lottery-go/internal/allocator"
	"code-lottery-go/internal/models"
	"code-lottery-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const DefaultHistoryLimit = 100

// Options tunes a Coordinator. Zero values select the defaults.
type Options struct {
	Now             func() time.Time
	Rand            allocator.Rand
	EscalationOrder []models.Tier
	HistoryLimit    int
}

// Coordinator serializes every read and write of the lottery state. Exported
// methods take the lock exactly once; unexported helpers never lock.
type Coordinator struct {
	mu     sync.Mutex
	state  *models.State
	store  store.StateStore
	audit  store.AuditLog
	report store.LoadReport
	closed bool

	now          func() time.Time
	rng          allocator.Rand
	order        []models.Tier
	historyLimit int
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

// Open loads the state through st and returns a ready Coordinator. audit may
// be nil, in which case actions are only logged.
func Open(ctx context.Context, st store.StateStore, audit store.AuditLog, opts Options) (*Coordinator, error) {
	if st == nil {
		return nil, fmt.Errorf("state store is required")
	}

	state, report, err := st.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load state: %w", err)
	}

	c := &Coordinator{
		state:        state,
		store:        st,
		audit:        audit,
		report:       report,
		now:          opts.Now,
		rng:          opts.Rand,
		order:        opts.EscalationOrder,
		historyLimit: opts.HistoryLimit,
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.rng == nil {
		c.rng = globalRand{}
	}
	if !models.ValidEscalationOrder(c.order) {
		c.order = models.DefaultEscalationOrder
	}
	if c.historyLimit <= 0 {
		c.historyLimit = DefaultHistoryLimit
	}

	zap.L().Info("Lottery state loaded",
		zap.Bool("fresh", report.Fresh),
		zap.Bool("recovered", report.Recovered),
		zap.Int("warnings", len(report.Warnings)),
		zap.Int("users", len(state.Users)))

	return c, nil
}

// LoadReport returns how the state was obtained at Open.
func (c *Coordinator) LoadReport() store.LoadReport {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.report
	out.Warnings = append([]string(nil), c.report.Warnings...)
	return out
}

// commit runs fn against a copy of the state. The copy is persisted and
// swapped in only when fn reports a change; otherwise it is discarded.
func (c *Coordinator) commit(ctx context.Context, fn func(next *models.State) (bool, error)) error {
	if c.closed {
		return fmt.Errorf("%w: coordinator is closed", store.ErrPersistence)
	}

	next := c.state.Clone()
	changed, err := fn(next)
	if err != nil || !changed {
		return err
	}

	if err := c.store.Save(context.WithoutCancel(ctx), next); err != nil {
		if !errors.Is(err, store.ErrPersistence) {
			err = fmt.Errorf("%w: %v", store.ErrPersistence, err)
		}
		return err
	}
	c.state = next
	return nil
}

// record appends to the audit log. The transaction has already committed, so
// a failure here is logged and not returned.
func (c *Coordinator) record(ctx context.Context, action, userID, detail string) {
	entry := models.AuditEntry{
		ID:     uuid.NewString(),
		Action: action,
		UserID: userID,
		Detail: detail,
		Time:   c.now(),
	}
	if c.audit == nil {
		zap.L().Debug("Audit", zap.String("action", action), zap.String("user_id", userID), zap.String("detail", detail))
		return
	}
	if err := c.audit.Append(context.WithoutCancel(ctx), entry); err != nil {
		zap.L().Error("Failed to append audit entry",
			zap.String("action", action),
			zap.String("user_id", userID),
			zap.Error(err))
	}
}

func (c *Coordinator) enter(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	return nil
}

// HealthCheck verifies the coordinator is open and the audit log answers.
func (c *Coordinator) HealthCheck(ctx context.Context) error {
	if err := c.enter(ctx); err != nil {
		return err
	}
	defer c.mu.Unlock()

	if c.closed {
		return fmt.Errorf("coordinator is closed")
	}
	if c.audit != nil {
		if _, err := c.audit.Recent(ctx, 1); err != nil {
			return fmt.Errorf("audit log health check failed: %w", err)
		}
	}
	return nil
}

// Close releases the store and audit log. Every commit is already on disk,
// so nothing is written here.
func (c *Coordinator) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true

	if c.audit != nil {
		c.audit.Close()
	}
	if err := c.store.Close(); err != nil {
		return fmt.Errorf("failed to close state store: %w", err)
	}
	zap.L().Info("Coordinator closed")
	return nil
}
