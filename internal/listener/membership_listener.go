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

package listener

import (
	"context"
	"sync"
	"time"

	"code-lottery-go/internal/membership"
	"code-lottery-go/internal/models"

	"go.uber.org/zap"
)

// MembershipListenerConfig contains configuration for MembershipListener
type MembershipListenerConfig struct {
	Cache  *membership.Cache
	Source <-chan models.GroupMessage
	// SweepInterval controls how often expired entries are evicted and the
	// cache is flushed.
	SweepInterval time.Duration
	// Debounce suppresses repeated observations of the same user in the same
	// group within this window.
	Debounce time.Duration
}

// MembershipListener feeds passive group activity into the membership cache
type MembershipListener struct {
	cache         *membership.Cache
	source        <-chan models.GroupMessage
	sweepInterval time.Duration
	debounce      time.Duration

	// Recently observed group/user pairs
	recentSeen map[string]time.Time
	mutex      sync.Mutex

	observed  int
	forgotten int

	// Control channels
	stopChan chan struct{}
	doneChan chan struct{}
	stopOnce sync.Once
}

// NewMembershipListener creates a new membership listener
func NewMembershipListener(cfg MembershipListenerConfig) *MembershipListener {
	sweep := cfg.SweepInterval
	if sweep <= 0 {
		sweep = 15 * time.Minute
	}
	return &MembershipListener{
		cache:         cfg.Cache,
		source:        cfg.Source,
		sweepInterval: sweep,
		debounce:      cfg.Debounce,
		recentSeen:    make(map[string]time.Time),
		stopChan:      make(chan struct{}),
		doneChan:      make(chan struct{}),
	}
}

// Start begins consuming observations
func (l *MembershipListener) Start(ctx context.Context) {
	zap.L().Info("Starting membership listener",
		zap.Strings("target_groups", l.cache.Targets()),
		zap.Duration("sweep_interval", l.sweepInterval))

	go l.consumeLoop(ctx)
}

// Stop gracefully stops the listener and flushes the cache
func (l *MembershipListener) Stop() {
	l.stopOnce.Do(func() {
		zap.L().Info("Stopping membership listener")
		close(l.stopChan)
	})
	<-l.doneChan
	zap.L().Info("Membership listener stopped")
}

// Done is closed once the listener has exited and flushed.
func (l *MembershipListener) Done() <-chan struct{} {
	return l.doneChan
}

// consumeLoop applies observations and runs the periodic sweep
func (l *MembershipListener) consumeLoop(ctx context.Context) {
	defer close(l.doneChan)
	defer l.flush()

	ticker := time.NewTicker(l.sweepInterval)
	defer ticker.Stop()

	source := l.source
	for {
		select {
		case msg, ok := <-source:
			if !ok {
				zap.L().Info("Observation source closed")
				// Keep sweeping until stopped.
				source = nil
				continue
			}
			l.handle(msg)
		case <-ticker.C:
			l.sweep()
		case <-l.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (l *MembershipListener) handle(msg models.GroupMessage) {
	if msg.GroupID == "" || msg.UserID == "" {
		return
	}

	switch msg.Kind {
	case models.GroupEventLeave:
		l.forget(msg.GroupID, msg.UserID)
		if l.cache.Forget(msg.GroupID, msg.UserID) {
			l.forgotten++
			zap.L().Debug("Member left", zap.String("group", msg.GroupID), zap.String("user_id", msg.UserID))
		}
	default:
		if l.isRecent(msg.GroupID, msg.UserID, msg.At) {
			return
		}
		if l.cache.Observe(msg.GroupID, msg.UserID) {
			l.observed++
		}
	}
}

func seenKey(group, user string) string {
	return group + "\x00" + user
}

// isRecent reports whether the pair was observed within the debounce window
// and records the observation otherwise.
func (l *MembershipListener) isRecent(group, user string, at time.Time) bool {
	if l.debounce <= 0 {
		return false
	}
	if at.IsZero() {
		at = time.Now()
	}

	l.mutex.Lock()
	defer l.mutex.Unlock()
	key := seenKey(group, user)
	if last, ok := l.recentSeen[key]; ok && at.Sub(last) < l.debounce {
		return true
	}
	l.recentSeen[key] = at
	return false
}

func (l *MembershipListener) forget(group, user string) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	delete(l.recentSeen, seenKey(group, user))
}

// sweep evicts expired cache entries, prunes the debounce table and flushes
func (l *MembershipListener) sweep() {
	evicted := l.cache.Evict()

	l.mutex.Lock()
	cutoff := time.Now().Add(-l.debounce)
	pruned := 0
	for key, at := range l.recentSeen {
		if at.Before(cutoff) {
			delete(l.recentSeen, key)
			pruned++
		}
	}
	l.mutex.Unlock()

	l.flush()

	zap.L().Debug("Membership sweep completed",
		zap.Int("evicted", evicted),
		zap.Int("debounce_pruned", pruned),
		zap.Int("observed_total", l.observed),
		zap.Int("forgotten_total", l.forgotten))
}

func (l *MembershipListener) flush() {
	if err := l.cache.Flush(); err != nil {
		zap.L().Error("Failed to flush membership cache", zap.Error(err))
	}
}
