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
	"sort"
	"time"
)

// UsedRecord marks a code as issued. Records are never deleted; revocation
// only flags them so the code cannot be imported again.
type UsedRecord struct {
	UserID     string    `json:"userId"`
	ConsumedAt time.Time `json:"consumedAt"`
	Revoked    bool      `json:"revoked"`
}

// CodePool holds the available codes of one tier and its used index.
type CodePool struct {
	Available []string              `json:"available"`
	Used      map[string]UsedRecord `json:"used"`
}

// NewCodePool returns an empty pool with its index allocated.
func NewCodePool() *CodePool {
	return &CodePool{Available: []string{}, Used: make(map[string]UsedRecord)}
}

func (p *CodePool) Clone() *CodePool {
	out := &CodePool{
		Available: make([]string, len(p.Available)),
		Used:      make(map[string]UsedRecord, len(p.Used)),
	}
	copy(out.Available, p.Available)
	for k, v := range p.Used {
		out.Used[k] = v
	}
	return out
}

// UserAccount is the per-user registration and draw bookkeeping.
type UserAccount struct {
	Registered       bool       `json:"registered"`
	RegistrationCode *string    `json:"registrationCode"`
	RegisteredAt     *time.Time `json:"registeredAt,omitempty"`
	Imported         bool       `json:"imported,omitempty"`
	TotalDraws       int        `json:"totalDraws"`
	WeekDraws        int        `json:"weekDraws"`
	DayDraws         int        `json:"dayDraws"`
	PityCounter      int        `json:"pityCounter"`
	LastWeekReset    time.Time  `json:"lastWeekReset"`
	LastDayReset     time.Time  `json:"lastDayReset"`
	LastDrawAt       *time.Time `json:"lastDrawAt,omitempty"`
}

func (u *UserAccount) Clone() *UserAccount {
	out := *u
	if u.RegistrationCode != nil {
		c := *u.RegistrationCode
		out.RegistrationCode = &c
	}
	if u.RegisteredAt != nil {
		t := *u.RegisteredAt
		out.RegisteredAt = &t
	}
	if u.LastDrawAt != nil {
		t := *u.LastDrawAt
		out.LastDrawAt = &t
	}
	return &out
}

// HistoryEntry is a redacted record of one draw.
type HistoryEntry struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	Tier       Tier      `json:"tier"`
	CodeDigest string    `json:"codeDigest"`
	Time       time.Time `json:"time"`
	Test       bool      `json:"test,omitempty"`
}

// State is the whole persisted document.
type State struct {
	Pools                 map[Tier]*CodePool
	Users                 map[string]*UserAccount
	Config                LotteryConfig
	Blacklist             map[string]struct{}
	Announcement          *string
	AnnouncementUpdatedAt *time.Time
	History               []HistoryEntry
}

// NewState returns an empty state with default configuration.
func NewState() *State {
	s := &State{
		Pools:     make(map[Tier]*CodePool, len(AllTiers)),
		Users:     make(map[string]*UserAccount),
		Config:    DefaultLotteryConfig(),
		Blacklist: make(map[string]struct{}),
		History:   []HistoryEntry{},
	}
	for _, t := range AllTiers {
		s.Pools[t] = NewCodePool()
	}
	return s
}

// Pool returns the pool for t, creating it if the document lacked one.
func (s *State) Pool(t Tier) *CodePool {
	p, ok := s.Pools[t]
	if !ok || p == nil {
		p = NewCodePool()
		s.Pools[t] = p
	}
	if p.Used == nil {
		p.Used = make(map[string]UsedRecord)
	}
	return p
}

// BlacklistIDs returns the blacklist sorted for stable output.
func (s *State) BlacklistIDs() []string {
	ids := make([]string, 0, len(s.Blacklist))
	for id := range s.Blacklist {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Clone deep-copies the state so callers never share mutable references.
func (s *State) Clone() *State {
	out := &State{
		Pools:     make(map[Tier]*CodePool, len(s.Pools)),
		Users:     make(map[string]*UserAccount, len(s.Users)),
		Config:    s.Config.Clone(),
		Blacklist: make(map[string]struct{}, len(s.Blacklist)),
		History:   make([]HistoryEntry, len(s.History)),
	}
	for t, p := range s.Pools {
		out.Pools[t] = p.Clone()
	}
	for id, u := range s.Users {
		out.Users[id] = u.Clone()
	}
	for id := range s.Blacklist {
		out.Blacklist[id] = struct{}{}
	}
	copy(out.History, s.History)
	if s.Announcement != nil {
		a := *s.Announcement
		out.Announcement = &a
	}
	if s.AnnouncementUpdatedAt != nil {
		t := *s.AnnouncementUpdatedAt
		out.AnnouncementUpdatedAt = &t
	}
	return out
}
