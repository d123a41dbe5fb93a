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

package models

import (
	"fmt"
	"strings"
)

// Tier identifies a code pool.
type Tier string

const (
	TierRegistration Tier = "registration"
	TierGold         Tier = "gold"
	TierPurple       Tier = "purple"
	TierBlue         Tier = "blue"
	TierEvent        Tier = "event"
)

// AllTiers lists every pool kept in the state document.
var AllTiers = []Tier{TierRegistration, TierGold, TierPurple, TierBlue, TierEvent}

// LotteryTiers lists the tiers a draw can land on.
var LotteryTiers = []Tier{TierGold, TierPurple, TierBlue, TierEvent}

// DefaultEscalationOrder ranks lottery tiers from lowest to highest value.
// Pity escalation only ever walks this slice forward.
var DefaultEscalationOrder = []Tier{TierBlue, TierPurple, TierGold, TierEvent}

// IsLottery reports whether t can be the outcome of a draw.
func (t Tier) IsLottery() bool {
	switch t {
	case TierGold, TierPurple, TierBlue, TierEvent:
		return true
	}
	return false
}

// Valid reports whether t names a known pool.
func (t Tier) Valid() bool {
	return t == TierRegistration || t.IsLottery()
}

func (t Tier) String() string {
	return string(t)
}

// ParseTier normalizes user input into a Tier.
func ParseTier(s string) (Tier, error) {
	t := Tier(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown tier %q", s)
	}
	return t, nil
}

// RankIn returns the index of t in order, or -1 when absent.
func RankIn(order []Tier, t Tier) int {
	for i, o := range order {
		if o == t {
			return i
		}
	}
	return -1
}

// ValidEscalationOrder reports whether order is a permutation of LotteryTiers.
func ValidEscalationOrder(order []Tier) bool {
	if len(order) != len(LotteryTiers) {
		return false
	}
	seen := make(map[Tier]bool, len(order))
	for _, t := range order {
		if !t.IsLottery() || seen[t] {
			return false
		}
		seen[t] = true
	}
	return true
}
