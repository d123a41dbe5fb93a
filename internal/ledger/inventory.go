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

// Package ledger holds the lock-free operations on the state document. Every
// function expects the caller to hold the coordinator lock.
package ledger

import (
	"strings"
	"time"

	"code-lottery-go/internal/models"
)

// PopCode removes the oldest available code of tier.
func PopCode(st *models.State, tier models.Tier) (string, bool) {
	pool := st.Pool(tier)
	if len(pool.Available) == 0 {
		return "", false
	}
	code := pool.Available[0]
	pool.Available = pool.Available[1:]
	return code, true
}

// MarkUsed records code as issued to userID.
func MarkUsed(st *models.State, tier models.Tier, code, userID string, at time.Time) {
	st.Pool(tier).Used[code] = models.UsedRecord{UserID: userID, ConsumedAt: at}
}

// RevokeCode flags the used record of code. The record itself is kept so the
// code can never be imported again.
func RevokeCode(st *models.State, tier models.Tier, code string) bool {
	pool := st.Pool(tier)
	rec, ok := pool.Used[code]
	if !ok {
		return false
	}
	rec.Revoked = true
	pool.Used[code] = rec
	return true
}

// KnownCodes returns every code present in any pool, available or used.
func KnownCodes(st *models.State) map[string]struct{} {
	known := make(map[string]struct{})
	for _, t := range models.AllTiers {
		pool := st.Pool(t)
		for _, c := range pool.Available {
			known[c] = struct{}{}
		}
		for c := range pool.Used {
			known[c] = struct{}{}
		}
	}
	return known
}

// AddCodes appends codes to tier. Blank entries are ignored; codes already
// known to any pool, or repeated within the batch, are skipped.
func AddCodes(st *models.State, tier models.Tier, codes []string) models.ImportResult {
	known := KnownCodes(st)
	pool := st.Pool(tier)

	var res models.ImportResult
	for _, c := range codes {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if _, dup := known[c]; dup {
			res.Skipped++
			continue
		}
		known[c] = struct{}{}
		pool.Available = append(pool.Available, c)
		res.Added++
	}
	return res
}

// RemoveCodes deletes codes from the available list of tier. Issued codes are
// never removed.
func RemoveCodes(st *models.State, tier models.Tier, codes []string) models.RemoveResult {
	targets := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		if c = strings.TrimSpace(c); c != "" {
			targets[c] = struct{}{}
		}
	}

	pool := st.Pool(tier)
	kept := make([]string, 0, len(pool.Available))
	var res models.RemoveResult
	for _, c := range pool.Available {
		if _, ok := targets[c]; ok {
			delete(targets, c)
			res.Removed++
			continue
		}
		kept = append(kept, c)
	}
	pool.Available = kept
	res.NotFound = len(targets)
	return res
}

// Stock returns the drawable stock of every lottery tier. The event tier
// counts as empty unless it is active at now.
func Stock(st *models.State, now time.Time) map[models.Tier]int {
	stock := make(map[models.Tier]int, len(models.LotteryTiers))
	for _, t := range models.LotteryTiers {
		stock[t] = len(st.Pool(t).Available)
	}
	if !st.Config.EventPool.ActiveAt(now) {
		stock[models.TierEvent] = 0
	}
	return stock
}

// Counts reports the raw available count of every pool.
func Counts(st *models.State, now time.Time) models.PoolCounts {
	return models.PoolCounts{
		Registration: len(st.Pool(models.TierRegistration).Available),
		Gold:         len(st.Pool(models.TierGold).Available),
		Purple:       len(st.Pool(models.TierPurple).Available),
		Blue:         len(st.Pool(models.TierBlue).Available),
		Event:        len(st.Pool(models.TierEvent).Available),
		EventActive:  st.Config.EventPool.ActiveAt(now),
	}
}

// Preview returns up to limit redacted codes from the head of tier.
func Preview(st *models.State, tier models.Tier, limit int) []string {
	avail := st.Pool(tier).Available
	if limit <= 0 || limit > len(avail) {
		limit = len(avail)
	}
	out := make([]string, 0, limit)
	for _, c := range avail[:limit] {
		out = append(out, models.RedactCode(c))
	}
	return out
}
