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

package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"code-lottery-go/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxDetailLength = 200

// Append stores one audit entry and prunes the table to the retention limit.
func (s *Service) Append(ctx context.Context, entry models.AuditEntry) error {
	if entry.Action == "" {
		return fmt.Errorf("audit action is required")
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Time.IsZero() {
		entry.Time = time.Now()
	}

	_, err := s.db.ExecContext(ctx, queryInsertAuditEntry,
		entry.ID, entry.Action, entry.UserID, sanitizeDetail(entry.Detail),
		entry.Time.UTC().Format(time.RFC3339Nano))
	if err != nil {
		zap.L().Error("Failed to insert audit entry", zap.String("action", entry.Action), zap.Error(err))
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}

	if s.retain > 0 {
		if _, err := s.db.ExecContext(ctx, queryPruneAuditEntries, s.retain); err != nil {
			zap.L().Warn("Failed to prune audit entries", zap.Error(err))
		}
	}
	return nil
}

// Recent returns the newest entries first. A non-positive limit returns all.
func (s *Service) Recent(ctx context.Context, limit int) ([]models.AuditEntry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, queryRecentAuditEntries, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit entries: %w", err)
	}
	return scanEntries(rows)
}

// ForUser returns the newest entries recorded against userID.
func (s *Service) ForUser(ctx context.Context, userID string, limit int) ([]models.AuditEntry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, queryUserAuditEntries, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit entries for user: %w", err)
	}
	return scanEntries(rows)
}

// CountByAction returns the number of retained entries per action.
func (s *Service) CountByAction(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, queryCountByAction)
	if err != nil {
		return nil, fmt.Errorf("failed to count audit entries: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	counts := make(map[string]int)
	for rows.Next() {
		var action string
		var n int
		if err := rows.Scan(&action, &n); err != nil {
			return nil, fmt.Errorf("failed to scan audit count: %w", err)
		}
		counts[action] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit counts: %w", err)
	}
	return counts, nil
}

func scanEntries(rows *sql.Rows) ([]models.AuditEntry, error) {
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var entries []models.AuditEntry
	for rows.Next() {
		var e models.AuditEntry
		var created string
		if err := rows.Scan(&e.ID, &e.Action, &e.UserID, &e.Detail, &created); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		t, err := time.Parse(time.RFC3339Nano, created)
		if err != nil {
			zap.L().Warn("Unparseable audit timestamp", zap.String("id", e.ID), zap.String("created_at", created))
		}
		e.Time = t
		entries = append(entries, e)
	}

	// Check for errors during iteration
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit rows: %w", err)
	}
	return entries, nil
}

// sanitizeDetail flattens the detail to one line and caps its length.
func sanitizeDetail(detail string) string {
	detail = strings.Join(strings.Fields(detail), " ")
	if r := []rune(detail); len(r) > maxDetailLength {
		detail = string(r[:maxDetailLength-3]) + "..."
	}
	return detail
}
