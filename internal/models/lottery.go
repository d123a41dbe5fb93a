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
	"time"
)

const (
	DefaultGoldWeight    = 5
	DefaultPurpleWeight  = 20
	DefaultBlueWeight    = 75
	DefaultEventWeight   = 10
	DefaultPityThreshold = 10
	DefaultPityTier      = TierPurple
	DefaultWeeklyLimit   = 1
	DefaultDailyLimit    = 0
)

// Weights holds the relative draw weight of each lottery tier.
type Weights struct {
	Gold   int `json:"gold"`
	Purple int `json:"purple"`
	Blue   int `json:"blue"`
	Event  int `json:"event"`
}

// Of returns the weight configured for t.
func (w Weights) Of(t Tier) int {
	switch t {
	case TierGold:
		return w.Gold
	case TierPurple:
		return w.Purple
	case TierBlue:
		return w.Blue
	case TierEvent:
		return w.Event
	}
	return 0
}

// EventPoolConfig controls the time-limited event tier.
type EventPoolConfig struct {
	Enabled   bool       `json:"enabled"`
	Name      string     `json:"name,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt"`
}

// ActiveAt reports whether the event tier may be drawn at now.
// A nil deadline keeps the pool open until it is disabled.
func (e EventPoolConfig) ActiveAt(now time.Time) bool {
	if !e.Enabled {
		return false
	}
	return e.ExpiresAt == nil || !now.After(*e.ExpiresAt)
}

// LotteryConfig is the validated lottery configuration.
type LotteryConfig struct {
	Weights       Weights         `json:"weights"`
	PityThreshold int             `json:"pityThreshold"`
	PityTier      Tier            `json:"pityTier"`
	WeeklyLimit   int             `json:"weeklyLimit"`
	DailyLimit    int             `json:"dailyLimit"`
	EventPool     EventPoolConfig `json:"eventPool"`
}

// DefaultLotteryConfig returns the documented defaults.
func DefaultLotteryConfig() LotteryConfig {
	return LotteryConfig{
		Weights: Weights{
			Gold:   DefaultGoldWeight,
			Purple: DefaultPurpleWeight,
			Blue:   DefaultBlueWeight,
			Event:  DefaultEventWeight,
		},
		PityThreshold: DefaultPityThreshold,
		PityTier:      DefaultPityTier,
		WeeklyLimit:   DefaultWeeklyLimit,
		DailyLimit:    DefaultDailyLimit,
	}
}

// NewLotteryConfig validates cfg and returns the corrected copy together with
// one warning per field that had to be reset to its default.
func NewLotteryConfig(cfg LotteryConfig) (LotteryConfig, []string) {
	warnings := cfg.Validate()
	return cfg, warnings
}

// Validate resets out-of-range fields to their defaults in place.
func (c *LotteryConfig) Validate() []string {
	def := DefaultLotteryConfig()
	var warnings []string

	minOne := []struct {
		name string
		val  *int
		def  int
	}{
		{"weights.gold", &c.Weights.Gold, def.Weights.Gold},
		{"weights.purple", &c.Weights.Purple, def.Weights.Purple},
		{"weights.blue", &c.Weights.Blue, def.Weights.Blue},
		{"weights.event", &c.Weights.Event, def.Weights.Event},
		{"pityThreshold", &c.PityThreshold, def.PityThreshold},
	}
	for _, f := range minOne {
		if *f.val < 1 {
			warnings = append(warnings, fmt.Sprintf("config.%s=%d is invalid, reset to %d", f.name, *f.val, f.def))
			*f.val = f.def
		}
	}

	minZero := []struct {
		name string
		val  *int
		def  int
	}{
		{"weeklyLimit", &c.WeeklyLimit, def.WeeklyLimit},
		{"dailyLimit", &c.DailyLimit, def.DailyLimit},
	}
	for _, f := range minZero {
		if *f.val < 0 {
			warnings = append(warnings, fmt.Sprintf("config.%s=%d is invalid, reset to %d", f.name, *f.val, f.def))
			*f.val = f.def
		}
	}

	if !c.PityTier.IsLottery() {
		warnings = append(warnings, fmt.Sprintf("config.pityTier=%q is invalid, reset to %q", c.PityTier, def.PityTier))
		c.PityTier = def.PityTier
	}

	return warnings
}

// Clone returns an independent copy.
func (c LotteryConfig) Clone() LotteryConfig {
	out := c
	if c.EventPool.ExpiresAt != nil {
		t := *c.EventPool.ExpiresAt
		out.EventPool.ExpiresAt = &t
	}
	return out
}

// LotteryConfigUpdate carries an admin change; nil fields are left untouched.
type LotteryConfigUpdate struct {
	GoldWeight    *int
	PurpleWeight  *int
	BlueWeight    *int
	EventWeight   *int
	PityThreshold *int
	PityTier      *Tier
	WeeklyLimit   *int
	DailyLimit    *int
}

// Apply returns cfg with the update applied. Numeric values are clamped to
// their minimum; an unknown pity tier is rejected.
func (u LotteryConfigUpdate) Apply(cfg LotteryConfig) (LotteryConfig, error) {
	out := cfg.Clone()
	set := func(dst *int, src *int, min int) {
		if src == nil {
			return
		}
		v := *src
		if v < min {
			v = min
		}
		*dst = v
	}
	set(&out.Weights.Gold, u.GoldWeight, 1)
	set(&out.Weights.Purple, u.PurpleWeight, 1)
	set(&out.Weights.Blue, u.BlueWeight, 1)
	set(&out.Weights.Event, u.EventWeight, 1)
	set(&out.PityThreshold, u.PityThreshold, 1)
	set(&out.WeeklyLimit, u.WeeklyLimit, 0)
	set(&out.DailyLimit, u.DailyLimit, 0)
	if u.PityTier != nil {
		if !u.PityTier.IsLottery() {
			return cfg, fmt.Errorf("pity tier %q is not a lottery tier", *u.PityTier)
		}
		out.PityTier = *u.PityTier
	}
	return out, nil
}

// Empty reports whether the update changes nothing.
func (u LotteryConfigUpdate) Empty() bool {
	return u.GoldWeight == nil && u.PurpleWeight == nil && u.BlueWeight == nil &&
		u.EventWeight == nil && u.PityThreshold == nil && u.PityTier == nil &&
		u.WeeklyLimit == nil && u.DailyLimit == nil
}
