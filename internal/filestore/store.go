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
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"code-lottery-go/internal/models"
	"code-lottery-go/internal/store"

	"go.uber.org/zap"
)

// Options configures a Store.
type Options struct {
	PublishMode PublishMode
}

// Store keeps the state document in a single JSON file with a backup beside it.
type Store struct {
	path string
	mode PublishMode

	// Held from Open to Close so no other process writes the same file.
	lock *FileLock

	// Serializes file I/O; the coordinator already holds its own lock.
	mu     sync.Mutex
	closed bool
}

var _ store.StateStore = (*Store)(nil)

// Open prepares a Store for path. The file itself is read by Load.
func Open(path string, opts Options) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("state file path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}
	lock, err := AcquireLock(path)
	if err != nil {
		return nil, err
	}

	zap.L().Info("State store opened",
		zap.String("file", path),
		zap.Int("publish_mode", int(opts.PublishMode.resolve())))

	return &Store{path: path, mode: opts.PublishMode, lock: lock}, nil
}

// Path returns the live file location.
func (s *Store) Path() string {
	return s.path
}

// Load reads the live file, falling back to the backup. A recovered or
// corrected document is written back so the live file is repaired.
func (s *Store) Load(ctx context.Context) (*models.State, store.LoadReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, store.LoadReport{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	type decoded struct {
		state    *models.State
		warnings []string
	}
	result, rec, err := ReadWithRecovery(s.path, func(data []byte) (decoded, error) {
		st, warnings, err := decodeState(data)
		return decoded{state: st, warnings: warnings}, err
	})
	if err != nil {
		return nil, store.LoadReport{}, err
	}

	if rec.Missing {
		zap.L().Info("No state file found, starting fresh", zap.String("file", s.path))
		return models.NewState(), store.LoadReport{Fresh: true}, nil
	}

	report := store.LoadReport{Recovered: rec.FromBackup, Warnings: result.warnings}
	for _, w := range report.Warnings {
		zap.L().Warn("State validation", zap.String("file", s.path), zap.String("warning", w))
	}

	if report.Recovered {
		// Keep the damaged live file from replacing the good backup.
		if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			zap.L().Warn("Failed to remove damaged state file", zap.String("file", s.path), zap.Error(err))
		}
	}
	if report.Recovered || len(report.Warnings) > 0 {
		if err := s.write(result.state); err != nil {
			zap.L().Error("Failed to repair state file", zap.String("file", s.path), zap.Error(err))
		} else {
			zap.L().Info("State file repaired", zap.String("file", s.path))
		}
	}

	return result.state, report, nil
}

// Save durably replaces the document with state.
func (s *Store) Save(ctx context.Context, state *models.State) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrPersistence, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("%w: store is closed", store.ErrPersistence)
	}
	return s.write(state)
}

func (s *Store) write(state *models.State) error {
	data, err := encodeState(state)
	if err != nil {
		return fmt.Errorf("%w: %v", store.ErrPersistence, err)
	}
	if err := WriteFileAtomic(s.path, data, s.mode); err != nil {
		if errors.Is(err, store.ErrPersistence) {
			return err
		}
		return fmt.Errorf("%w: %v", store.ErrPersistence, err)
	}
	return nil
}

// Close rejects further saves and releases the file lock.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.lock.Release()
	return nil
}
