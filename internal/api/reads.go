package api

import (
	"context"
	"fmt"

	"code-lottery-go/internal/allocator"
	"code-lottery-go/internal/ledger"
	"code-lottery-go/internal/models"
	"code-lottery-go/internal/store"
)

// Every read returns copies; nothing handed out aliases the live state.

func (c *Coordinator) IsRegistered(userID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	acct, ok := ledger.Lookup(c.state, userID)
	return ok && acct.Registered
}

// User returns a snapshot of the account of userID.
func (c *Coordinator) User(userID string) (*models.UserAccount, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	acct, ok := ledger.Lookup(c.state, userID)
	if !ok {
		return nil, false
	}
	return acct.Clone(), true
}

func (c *Coordinator) PoolCounts() models.PoolCounts {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ledger.Counts(c.state, c.now())
}

// PoolOdds returns the current effective probability of each lottery tier.
func (c *Coordinator) PoolOdds() []models.TierOdds {
	c.mu.Lock()
	defer c.mu.Unlock()
	return allocator.Odds(c.state.Config.Weights, ledger.Stock(c.state, c.now()))
}

func (c *Coordinator) LotteryConfig() models.LotteryConfig {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Config.Clone()
}

// History returns up to limit draws, newest first.
func (c *Coordinator) History(limit int) []models.HistoryEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	h := c.state.History
	if limit > 0 && limit < len(h) {
		h = h[:limit]
	}
	out := make([]models.HistoryEntry, len(h))
	copy(out, h)
	return out
}

func (c *Coordinator) Statistics() models.Statistics {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := c.state
	stats := models.Statistics{
		RegisteredUsers:       ledger.RegisteredCount(st),
		RegistrationAvailable: len(st.Pool(models.TierRegistration).Available),
		RegistrationUsed:      len(st.Pool(models.TierRegistration).Used),
		Pools:                 ledger.Counts(st, c.now()),
		DrawsByTier:           make(map[models.Tier]int, len(models.LotteryTiers)),
		BlacklistCount:        len(st.Blacklist),
	}
	for _, t := range models.LotteryTiers {
		stats.DrawsByTier[t] = len(st.Pool(t).Used)
	}
	// Test draws consume no inventory, so the history is their only trace.
	for _, h := range st.History {
		if h.Test {
			stats.DrawsByTier[h.Tier]++
		}
	}
	for _, acct := range st.Users {
		stats.TotalDraws += acct.TotalDraws
	}
	return stats
}

func (c *Coordinator) Blacklist() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.BlacklistIDs()
}

func (c *Coordinator) IsBlacklisted(userID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.state.Blacklist[userID]
	return ok
}

// Announcement returns the current announcement, or nil.
func (c *Coordinator) Announcement() *models.Announcement {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Announcement == nil {
		return nil
	}
	a := &models.Announcement{Content: *c.state.Announcement}
	if c.state.AnnouncementUpdatedAt != nil {
		t := *c.state.AnnouncementUpdatedAt
		a.UpdatedAt = &t
	}
	return a
}

// CodesPreview returns the next codes of tier in redacted form.
func (c *Coordinator) CodesPreview(tier models.Tier, limit int) ([]string, error) {
	if !tier.Valid() {
		return nil, fmt.Errorf("%w: unknown tier %q", store.ErrValidation, tier)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return ledger.Preview(c.state, tier, limit), nil
}

// AuditTrail returns the most recent audit entries.
func (c *Coordinator) AuditTrail(ctx context.Context, limit int) ([]models.AuditEntry, error) {
	if c.audit == nil {
		return nil, nil
	}
	entries, err := c.audit.Recent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read audit log: %w", err)
	}
	return entries, nil
}
