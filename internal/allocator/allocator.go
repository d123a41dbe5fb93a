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

// Package allocator picks the tier of a lottery draw. It performs no I/O.
package allocator

import (
	"code-lottery-go/internal/models"

	"github.com/shopspring/decimal"
)

// Rand is the source of randomness for weighted draws.
type Rand interface {
	// IntN returns a uniform value in [0, n).
	IntN(n int) int
}

// Input describes a single draw.
type Input struct {
	Weights       models.Weights
	Stock         map[models.Tier]int
	PityCounter   int
	PityThreshold int
	PityTier      models.Tier
	// Order ranks lottery tiers from lowest to highest value.
	Order []models.Tier
}

// Decision is the outcome of Pick.
type Decision struct {
	Tier          models.Tier
	PityTriggered bool
}

// Pick selects a tier. It returns false when no tier may be drawn.
//
// Tiers without stock never take part. Once the pity counter reaches the
// threshold the draw is forced to the first tier in stock at or above the
// pity tier in Order; lower tiers are never considered, even when they are
// the only ones left.
func Pick(in Input, rng Rand) (Decision, bool) {
	order := in.Order
	if !models.ValidEscalationOrder(order) {
		order = models.DefaultEscalationOrder
	}

	if in.PityThreshold > 0 && in.PityCounter >= in.PityThreshold {
		floor := models.RankIn(order, in.PityTier)
		if floor < 0 {
			return Decision{}, false
		}
		for _, t := range order[floor:] {
			if in.Stock[t] > 0 {
				return Decision{Tier: t, PityTriggered: true}, true
			}
		}
		return Decision{}, false
	}

	total := 0
	for _, t := range models.LotteryTiers {
		total += effectiveWeight(in, t)
	}
	if total == 0 {
		return Decision{}, false
	}

	roll := rng.IntN(total)
	for _, t := range models.LotteryTiers {
		w := effectiveWeight(in, t)
		if roll < w {
			return Decision{Tier: t}, true
		}
		roll -= w
	}
	return Decision{}, false
}

func effectiveWeight(in Input, t models.Tier) int {
	if in.Stock[t] <= 0 {
		return 0
	}
	if w := in.Weights.Of(t); w > 0 {
		return w
	}
	return 0
}

// NextPity returns the pity counter after a draw landed on selected.
// Outcomes strictly below the pity tier extend the streak; anything else
// ends it.
func NextPity(counter int, selected, pityTier models.Tier, order []models.Tier) int {
	if !models.ValidEscalationOrder(order) {
		order = models.DefaultEscalationOrder
	}
	if models.RankIn(order, selected) < models.RankIn(order, pityTier) {
		return counter + 1
	}
	return 0
}

var hundred = decimal.NewFromInt(100)

// Odds returns the probability of each lottery tier given stock, in percent
// rounded to two places.
func Odds(weights models.Weights, stock map[models.Tier]int) []models.TierOdds {
	in := Input{Weights: weights, Stock: stock}
	total := 0
	for _, t := range models.LotteryTiers {
		total += effectiveWeight(in, t)
	}

	out := make([]models.TierOdds, 0, len(models.LotteryTiers))
	for _, t := range models.LotteryTiers {
		w := effectiveWeight(in, t)
		pct := decimal.Zero
		if total > 0 && w > 0 {
			pct = decimal.NewFromInt(int64(w)).Mul(hundred).Div(decimal.NewFromInt(int64(total))).Round(2)
		}
		out = append(out, models.TierOdds{
			Tier:    t,
			Stock:   stock[t],
			Weight:  weights.Of(t),
			Percent: pct,
		})
	}
	return out
}
