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

const (
	// Audit queries
	queryInsertAuditEntry = `
		INSERT INTO audit_entries (id, action, user_id, detail, created_at)
		VALUES (?, ?, ?, ?, ?)`

	queryRecentAuditEntries = `
		SELECT id, action, user_id, detail, created_at
		FROM audit_entries
		ORDER BY seq DESC
		LIMIT ?`

	queryUserAuditEntries = `
		SELECT id, action, user_id, detail, created_at
		FROM audit_entries
		WHERE user_id = ?
		ORDER BY seq DESC
		LIMIT ?`

	queryCountByAction = `
		SELECT action, COUNT(*)
		FROM audit_entries
		GROUP BY action`

	queryPruneAuditEntries = `
		DELETE FROM audit_entries
		WHERE seq <= (SELECT MAX(seq) FROM audit_entries) - ?`
)
