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

import "time"

// GroupEventKind distinguishes passive observations of group activity.
type GroupEventKind string

const (
	GroupEventMessage GroupEventKind = "message"
	GroupEventJoin    GroupEventKind = "join"
	GroupEventLeave   GroupEventKind = "leave"
)

// GroupMessage is one observation fed to the membership cache
type GroupMessage struct {
	GroupID string
	UserID  string
	Kind    GroupEventKind
	At      time.Time
}

// VerifyDecision is the outcome of an eligibility check
type VerifyDecision struct {
	Allowed bool   `json:"allowed"`
	Method  string `json:"method"`
	Group   string `json:"group,omitempty"`
}
