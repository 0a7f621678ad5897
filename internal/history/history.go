/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package history keeps a linear log of document snapshots with an undo
// cursor. The cursor is a zero-based index that is always within
// [0, Len()-1] once the log is non-empty; "at head" means Index() == Len()-1.
package history

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Entry is an immutable snapshot of the document tree.
// Value content is opaque to the log; size is estimated as len(Value).
type Entry struct {
	ID        string
	Value     []byte
	CreatedAt time.Time
}

// Config controls depth and memory caps.
type Config struct {
	// MaxEntries limits the number of entries kept (0 means the default).
	MaxEntries int
	// MaxBytes is a soft cap; the oldest entries are pruned when exceeded.
	MaxBytes int
}

const (
	DefaultMaxEntries = 100
	DefaultMaxBytes   = 16 * 1024 * 1024 // 16 MiB
)

// Log is safe for concurrent use.
type Log struct {
	cfg     Config
	mu      sync.Mutex
	entries []Entry
	index   int
	// accounting
	totalBytes int
	now        func() time.Time
}

func New(cfg Config) *Log {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = DefaultMaxEntries
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}
	return &Log{cfg: cfg, index: -1, now: time.Now}
}

// Push checkpoints value. Entries after the cursor are discarded first, then
// the entry is appended and the cursor moves to it.
func (l *Log) Push(value []byte) Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries[l.index+1:] {
		l.totalBytes -= len(e.Value)
	}
	l.entries = l.entries[:l.index+1]
	e := Entry{ID: uuid.NewString(), Value: append([]byte(nil), value...), CreatedAt: l.now()}
	l.entries = append(l.entries, e)
	l.totalBytes += len(e.Value)
	l.index = len(l.entries) - 1
	l.enforceCapsLocked()
	return e
}

// Undo moves the cursor one entry back and returns the entry now current.
// At the oldest entry it is a no-op and reports false.
func (l *Log) Undo() (Entry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.index <= 0 {
		return Entry{}, false
	}
	l.index--
	return l.entries[l.index], true
}

// Redo moves the cursor one entry forward. At head it reports false.
func (l *Log) Redo() (Entry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.index < 0 || l.index >= len(l.entries)-1 {
		return Entry{}, false
	}
	l.index++
	return l.entries[l.index], true
}

// Current returns the entry under the cursor.
func (l *Log) Current() (Entry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.index < 0 {
		return Entry{}, false
	}
	return l.entries[l.index], true
}

func (l *Log) CanUndo() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.index > 0
}

func (l *Log) CanRedo() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.index >= 0 && l.index < len(l.entries)-1
}

func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Index returns the zero-based cursor, or -1 for an empty log.
func (l *Log) Index() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.index
}

// Position is the number of entries up to and including the cursor.
func (l *Log) Position() int {
	return l.Index() + 1
}

// Entries returns a copy of the log. Values are shared and must not be modified.
func (l *Log) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Entry(nil), l.entries...)
}

// Stats returns current sizes for diagnostics.
func (l *Log) Stats() (totalBytes int, entries int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.totalBytes, len(l.entries)
}

// Reset drops every entry.
func (l *Log) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
	l.index = -1
	l.totalBytes = 0
}

func (l *Log) enforceCapsLocked() {
	drop := 0
	if n := len(l.entries); n > l.cfg.MaxEntries {
		drop = n - l.cfg.MaxEntries
	}
	bytes := l.totalBytes
	for i := 0; i < drop; i++ {
		bytes -= len(l.entries[i].Value)
	}
	// Global memory cap: prune oldest, but never the entry under the cursor.
	for bytes > l.cfg.MaxBytes && drop < l.index {
		bytes -= len(l.entries[drop].Value)
		drop++
	}
	if drop == 0 {
		return
	}
	if drop > l.index {
		drop = l.index
	}
	for i := 0; i < drop; i++ {
		l.totalBytes -= len(l.entries[i].Value)
	}
	l.entries = append([]Entry{}, l.entries[drop:]...)
	l.index -= drop
}
