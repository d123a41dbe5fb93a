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

package membership

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"code-lottery-go/internal/filestore"
	"code-lottery-go/internal/store"

	"go.uber.org/zap"
)

const (
	DefaultTTL        = 30 * 24 * time.Hour
	DefaultFlushEvery = 50
)

// Options configures a Cache.
type Options struct {
	// Path of the cache file; empty keeps the cache in memory only.
	Path         string
	TTL          time.Duration
	TargetGroups []string
	FlushEvery   int
	PublishMode  filestore.PublishMode
	Now          func() time.Time
}

// Cache remembers when each user was last seen active in each group. An entry
// older than the TTL counts as absent.
type Cache struct {
	mu         sync.Mutex
	path       string
	ttl        time.Duration
	targets    map[string]struct{}
	flushEvery int
	mode       filestore.PublishMode
	now        func() time.Time

	groups map[string]map[string]time.Time
	dirty  int
	lock   *filestore.FileLock
}

// NewCache builds a cache. A cache backed by a file owns that file until
// Close; a second cache on the same path fails with store.ErrLocked.
func NewCache(opts Options) (*Cache, error) {
	c := &Cache{
		path:       opts.Path,
		ttl:        opts.TTL,
		targets:    make(map[string]struct{}, len(opts.TargetGroups)),
		flushEvery: opts.FlushEvery,
		mode:       opts.PublishMode,
		now:        opts.Now,
		groups:     make(map[string]map[string]time.Time),
	}
	if c.ttl <= 0 {
		c.ttl = DefaultTTL
	}
	if c.flushEvery <= 0 {
		c.flushEvery = DefaultFlushEvery
	}
	if c.now == nil {
		c.now = time.Now
	}
	for _, g := range opts.TargetGroups {
		if g = strings.TrimSpace(g); g != "" {
			c.targets[g] = struct{}{}
		}
	}
	if c.path != "" {
		lock, err := filestore.AcquireLock(c.path)
		if err != nil {
			return nil, fmt.Errorf("membership cache: %w", err)
		}
		c.lock = lock
	}
	return c, nil
}

// Close flushes pending changes and releases the cache file.
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	err := c.flushLocked()
	c.lock.Release()
	c.lock = nil
	return err
}

// Targets returns the configured target groups, sorted.
func (c *Cache) Targets() []string {
	out := make([]string, 0, len(c.targets))
	for g := range c.targets {
		out = append(out, g)
	}
	sort.Strings(out)
	return out
}

// IsTarget reports whether group is a configured target group.
func (c *Cache) IsTarget(group string) bool {
	_, ok := c.targets[group]
	return ok
}

// Load replaces the cache with the file content. Entries whose timestamp
// cannot be parsed or has expired are dropped.
func (c *Cache) Load() error {
	if c.path == "" {
		return nil
	}

	raw, rec, err := filestore.ReadWithRecovery(c.path, func(data []byte) (map[string]map[string]string, error) {
		var m map[string]map[string]string
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, err
		}
		return m, nil
	})
	if err != nil {
		if !errors.Is(err, store.ErrCorrupted) {
			return fmt.Errorf("failed to load membership cache: %w", err)
		}
		// Membership is rebuilt from observation, so an unreadable cache
		// only costs re-verification.
		zap.L().Warn("Membership cache unreadable, starting empty", zap.String("file", c.path), zap.Error(err))
		raw = nil
	}

	now := c.now()
	groups := make(map[string]map[string]time.Time, len(raw))
	dropped, expired := 0, 0
	for group, users := range raw {
		for user, ts := range users {
			t, err := parseTimestamp(ts)
			if err != nil {
				dropped++
				continue
			}
			if now.Sub(t) > c.ttl {
				expired++
				continue
			}
			if groups[group] == nil {
				groups[group] = make(map[string]time.Time)
			}
			groups[group][user] = t
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.groups = groups
	c.dirty = 0
	if dropped > 0 || expired > 0 || rec.FromBackup {
		c.dirty = 1
		if err := c.flushLocked(); err != nil {
			zap.L().Warn("Failed to rewrite membership cache", zap.Error(err))
		}
	}

	zap.L().Info("Membership cache loaded",
		zap.String("file", c.path),
		zap.Int("groups", len(groups)),
		zap.Int("dropped_unparseable", dropped),
		zap.Int("evicted_expired", expired),
		zap.Bool("recovered", rec.FromBackup))
	return nil
}

// timestampLayouts are the accepted ISO-8601 spellings. Timestamps without
// an offset are local time.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// Observe records activity of user in group. Groups outside the target set
// are ignored when targets are configured.
func (c *Cache) Observe(group, user string) bool {
	if group == "" || user == "" {
		return false
	}
	if len(c.targets) > 0 && !c.IsTarget(group) {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	users := c.groups[group]
	if users == nil {
		users = make(map[string]time.Time)
		c.groups[group] = users
	}
	users[user] = c.now()
	c.markDirtyLocked()
	return true
}

// Forget removes user from group, for example after a leave event.
func (c *Cache) Forget(group, user string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	users := c.groups[group]
	if _, ok := users[user]; !ok {
		return false
	}
	delete(users, user)
	if len(users) == 0 {
		delete(c.groups, group)
	}
	c.markDirtyLocked()
	return true
}

// LastActive returns when user was last seen in group. It fails with
// store.ErrNotFound for unknown entries and store.ErrExpired once the TTL
// has lapsed.
func (c *Cache) LastActive(group, user string) (time.Time, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastActiveLocked(group, user)
}

func (c *Cache) lastActiveLocked(group, user string) (time.Time, error) {
	t, ok := c.groups[group][user]
	if !ok {
		return time.Time{}, store.ErrNotFound
	}
	if c.now().Sub(t) > c.ttl {
		return t, store.ErrExpired
	}
	return t, nil
}

// IsMember reports whether user was active in group within the TTL.
func (c *Cache) IsMember(group, user string) bool {
	_, err := c.LastActive(group, user)
	return err == nil
}

// IsMemberOfAny returns the first of groups in which user is a member.
func (c *Cache) IsMemberOfAny(groups []string, user string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, g := range groups {
		if _, err := c.lastActiveLocked(g, user); err == nil {
			return g, true
		}
	}
	return "", false
}

// Count returns the number of live members of group.
func (c *Cache) Count(group string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	n := 0
	for _, t := range c.groups[group] {
		if now.Sub(t) <= c.ttl {
			n++
		}
	}
	return n
}

// Evict drops every expired entry and returns how many were removed.
func (c *Cache) Evict() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	n := 0
	for group, users := range c.groups {
		for user, t := range users {
			if now.Sub(t) > c.ttl {
				delete(users, user)
				n++
			}
		}
		if len(users) == 0 {
			delete(c.groups, group)
		}
	}
	if n > 0 {
		c.dirty++
	}
	return n
}

// Flush writes the cache to disk if anything changed since the last write.
func (c *Cache) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flushLocked()
}

func (c *Cache) markDirtyLocked() {
	c.dirty++
	if c.dirty >= c.flushEvery {
		if err := c.flushLocked(); err != nil {
			zap.L().Warn("Periodic membership flush failed", zap.Error(err))
		}
	}
}

func (c *Cache) flushLocked() error {
	// A closed cache no longer owns its file.
	if c.path == "" || c.lock == nil || c.dirty == 0 {
		return nil
	}

	out := make(map[string]map[string]string, len(c.groups))
	for group, users := range c.groups {
		m := make(map[string]string, len(users))
		for user, t := range users {
			m[user] = t.Format(time.RFC3339Nano)
		}
		out[group] = m
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode membership cache: %w", err)
	}
	if err := filestore.WriteFileAtomic(c.path, data, c.mode); err != nil {
		return err
	}
	c.dirty = 0
	return nil
}
