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
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"code-lottery-go/internal/store"

	"go.uber.org/zap"
)

// BackupSuffix is appended to a live file path to name its backup.
const BackupSuffix = ".bak"

// PublishMode selects how a fully written temp file replaces the live file.
type PublishMode int

const (
	// ModeAuto picks ModeBackup on Windows and ModeReplace elsewhere.
	ModeAuto PublishMode = iota
	// ModeReplace renames the temp file over the live file in one step and
	// hard-links the previous version to the backup path first.
	ModeReplace
	// ModeBackup moves the live file to the backup path, then moves the temp
	// file into place. The backup is kept afterwards.
	ModeBackup
)

// ParsePublishMode maps a config string onto a PublishMode.
func ParsePublishMode(s string) (PublishMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return ModeAuto, nil
	case "replace":
		return ModeReplace, nil
	case "backup":
		return ModeBackup, nil
	}
	return ModeAuto, fmt.Errorf("unknown publish mode %q", s)
}

func (m PublishMode) resolve() PublishMode {
	if m != ModeAuto {
		return m
	}
	if runtime.GOOS == "windows" {
		return ModeBackup
	}
	return ModeReplace
}

// BackupPath returns the backup location for path.
func BackupPath(path string) string {
	return path + BackupSuffix
}

// WriteFileAtomic writes data to a temp file next to path, flushes it to
// stable storage and publishes it as path. Readers see either the previous
// content or data, never a partial write.
func WriteFileAtomic(path string, data []byte, mode PublishMode) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: create directory %s: %v", store.ErrPersistence, dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: create temp file: %v", store.ErrPersistence, err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			if rmErr := os.Remove(tmpName); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
				zap.L().Warn("Failed to remove temp file", zap.String("file", tmpName), zap.Error(rmErr))
			}
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: write temp file: %v", store.ErrPersistence, err)
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: sync temp file: %v", store.ErrPersistence, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("%w: close temp file: %v", store.ErrPersistence, err)
	}

	if mode.resolve() == ModeBackup {
		err = publishWithBackup(tmpName, path)
	} else {
		err = publishReplace(tmpName, path)
	}
	if err != nil {
		return fmt.Errorf("%w: publish %s: %v", store.ErrPersistence, path, err)
	}

	syncDir(dir)
	return nil
}

func publishWithBackup(tmpName, path string) error {
	bak := BackupPath(path)
	if _, err := os.Stat(path); err == nil {
		if err := os.Remove(bak); err != nil && !errors.Is(err, fs.ErrNotExist) {
			zap.L().Warn("Failed to remove old backup", zap.String("file", bak), zap.Error(err))
		}
		if err := os.Rename(path, bak); err != nil {
			zap.L().Warn("Backup rename failed, replacing directly", zap.String("file", path), zap.Error(err))
		}
	}
	// The backup stays; Load falls back to it.
	return os.Rename(tmpName, path)
}

func publishReplace(tmpName, path string) error {
	refreshBackup(path)
	return os.Rename(tmpName, path)
}

// refreshBackup points the backup path at the current live file so the
// previous version survives the upcoming rename.
func refreshBackup(path string) {
	if _, err := os.Stat(path); err != nil {
		return
	}
	bak := BackupPath(path)
	linkTmp := bak + ".link"
	_ = os.Remove(linkTmp)
	if err := os.Link(path, linkTmp); err != nil {
		zap.L().Debug("Unable to hard-link backup", zap.String("file", path), zap.Error(err))
		return
	}
	if err := os.Rename(linkTmp, bak); err != nil {
		_ = os.Remove(linkTmp)
		zap.L().Warn("Failed to refresh backup", zap.String("file", bak), zap.Error(err))
	}
}

func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	defer d.Close()
	// Not supported on every platform.
	_ = d.Sync()
}

// Recovery describes where ReadWithRecovery found usable data.
type Recovery struct {
	// Missing is set when neither the live file nor the backup exists.
	Missing bool
	// FromBackup is set when the live file was absent or unparsable.
	FromBackup bool
}

// ReadWithRecovery decodes path, falling back to its backup. It returns
// store.ErrCorrupted when a file exists but nothing could be decoded.
func ReadWithRecovery[T any](path string, decode func([]byte) (T, error)) (T, Recovery, error) {
	var zero T

	liveExists := true
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		v, decErr := decode(data)
		if decErr == nil {
			return v, Recovery{}, nil
		}
		zap.L().Error("Live file is unreadable, trying backup", zap.String("file", path), zap.Error(decErr))
	case errors.Is(err, fs.ErrNotExist):
		liveExists = false
	default:
		zap.L().Error("Failed to read live file, trying backup", zap.String("file", path), zap.Error(err))
	}

	bak := BackupPath(path)
	bakData, err := os.ReadFile(bak)
	switch {
	case err == nil:
		v, decErr := decode(bakData)
		if decErr == nil {
			zap.L().Warn("Recovered from backup", zap.String("file", bak))
			return v, Recovery{FromBackup: true}, nil
		}
		zap.L().Error("Backup file is unreadable", zap.String("file", bak), zap.Error(decErr))
	case errors.Is(err, fs.ErrNotExist):
		if !liveExists {
			return zero, Recovery{Missing: true}, nil
		}
	default:
		zap.L().Error("Failed to read backup file", zap.String("file", bak), zap.Error(err))
	}

	return zero, Recovery{}, fmt.Errorf("%w: neither %s nor %s is readable", store.ErrCorrupted, path, bak)
}
