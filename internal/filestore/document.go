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

package filestore

import (
	"encoding/json"
	"fmt"
	"time"

	"code-lottery-go/internal/models"
)

// document is the on-disk shape of the state. Config stays raw so that a
// single bad field never rejects the whole file.
type document struct {
	Pools                 map[models.Tier]*models.CodePool `json:"pools"`
	Users                 map[string]*models.UserAccount   `json:"users"`
	Config                json.RawMessage                  `json:"config"`
	Blacklist             []string                         `json:"blacklist"`
	Announcement          *string                          `json:"announcement"`
	AnnouncementUpdatedAt *time.Time                       `json:"announcementUpdatedAt,omitempty"`
	History               []models.HistoryEntry            `json:"history"`
}

func encodeState(st *models.State) ([]byte, error) {
	cfg, err := json.Marshal(st.Config)
	if err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}

	pools := make(map[models.Tier]*models.CodePool, len(models.AllTiers))
	for _, t := range models.AllTiers {
		pools[t] = st.Pool(t)
	}

	history := st.History
	if history == nil {
		history = []models.HistoryEntry{}
	}

	doc := document{
		Pools:                 pools,
		Users:                 st.Users,
		Config:                cfg,
		Blacklist:             st.BlacklistIDs(),
		Announcement:          st.Announcement,
		AnnouncementUpdatedAt: st.AnnouncementUpdatedAt,
		History:               history,
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode state: %w", err)
	}
	return append(data, '\n'), nil
}

// decodeState parses data into a normalized state. Structural damage is an
// error; out-of-range values are corrected and reported as warnings.
func decodeState(data []byte) (*models.State, []string, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, nil, fmt.Errorf("failed to parse state: %w", err)
	}
	if doc.Pools == nil && doc.Users == nil && doc.Config == nil {
		return nil, nil, fmt.Errorf("state document has no known sections")
	}

	st := models.NewState()
	cfg, warnings := decodeConfig(doc.Config)
	st.Config = cfg

	warnings = append(warnings, normalizePools(st, doc.Pools)...)
	warnings = append(warnings, normalizeUsers(st, doc.Users)...)

	for _, id := range doc.Blacklist {
		if id == "" {
			continue
		}
		st.Blacklist[id] = struct{}{}
	}

	st.Announcement = doc.Announcement
	st.AnnouncementUpdatedAt = doc.AnnouncementUpdatedAt
	if doc.History != nil {
		st.History = doc.History
	}

	return st, warnings, nil
}
