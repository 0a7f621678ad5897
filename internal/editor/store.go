/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package editor owns an editing session: the document tree, the selection,
// the active tool and the undo history. Every mutation goes through Store,
// replaces the state atomically and never fails; unknown ids are no-ops.
package editor

import (
	"log/slog"
	"slices"
	"sync"
	"time"

	"rendless/internal/document"
	"rendless/internal/history"
	applog "rendless/internal/log"
)

// Tool is the active canvas tool.
type Tool string

const (
	ToolSelect Tool = "select"
	ToolRect   Tool = "rect"
	ToolText   Tool = "text"
	ToolImage  Tool = "image"
	ToolHand   Tool = "hand"
)

// HistoryItem describes one checkpoint without its snapshot.
type HistoryItem struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
}

// State is a deep copy of the store state handed to callers and subscribers.
type State struct {
	Tree         *document.Page `json:"tree"`
	Selected     []string       `json:"selected"`
	SelectedTool Tool           `json:"selectedTool"`
	History      []HistoryItem  `json:"history"`
	HistoryIndex int            `json:"historyIndex"`
	CanUndo      bool           `json:"canUndo"`
	CanRedo      bool           `json:"canRedo"`
}

// Options configures a Store.
type Options struct {
	History history.Config
	Logger  *slog.Logger
}

// Store is safe for concurrent use; each operation is a critical section.
// Subscribers are notified after the lock is released.
type Store struct {
	mu       sync.Mutex
	tree     *document.Page
	selected []string
	tool     Tool
	hist     *history.Log
	log      *slog.Logger

	subMu  sync.Mutex
	subs   map[int]func(State)
	nextID int
}

// New creates a store holding a copy of tree (DefaultTree when nil).
func New(tree *document.Page, opts Options) *Store {
	if tree == nil {
		tree = document.DefaultTree()
	}
	l := opts.Logger
	if l == nil {
		l = applog.WithComponent("editor")
	}
	return &Store{
		tree:     tree.CloneTree(),
		selected: []string{},
		tool:     ToolSelect,
		hist:     history.New(opts.History),
		log:      l,
		subs:     map[int]func(State){},
	}
}

// Subscribe registers fn to receive the new state after every change.
// The returned function removes the subscription.
func (s *Store) Subscribe(fn func(State)) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subs, id)
	}
}

func (s *Store) publish(st State) {
	s.subMu.Lock()
	fns := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()
	for _, fn := range fns {
		fn(st)
	}
}

// mutate runs fn under the lock and publishes the resulting state when fn
// reports a change.
func (s *Store) mutate(fn func() bool) {
	s.mu.Lock()
	changed := fn()
	var st State
	if changed {
		st = s.stateLocked()
	}
	s.mu.Unlock()
	if changed {
		s.publish(st)
	}
}

// State returns a deep copy of the current state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

// Tree returns a deep copy of the current tree.
func (s *Store) Tree() *document.Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tree.CloneTree()
}

func (s *Store) stateLocked() State {
	entries := s.hist.Entries()
	items := make([]HistoryItem, len(entries))
	for i, e := range entries {
		items[i] = HistoryItem{ID: e.ID, CreatedAt: e.CreatedAt}
	}
	return State{
		Tree:         s.tree.CloneTree(),
		Selected:     slices.Clone(s.selected),
		SelectedTool: s.tool,
		History:      items,
		HistoryIndex: s.hist.Index(),
		CanUndo:      s.hist.CanUndo(),
		CanRedo:      s.hist.CanRedo(),
	}
}

// checkpointLocked appends a snapshot of the current tree to the history,
// discarding any redo entries.
func (s *Store) checkpointLocked(op string) {
	data, err := document.EncodeTree(s.tree)
	if err != nil {
		// The tree is built from well-typed nodes; encoding cannot fail in practice.
		s.log.Error("history snapshot failed", slog.String("op", op), slog.Any("err", err))
		return
	}
	e := s.hist.Push(data)
	s.log.Debug("checkpoint", slog.String("op", op), slog.String("entry", e.ID), slog.Int("len", s.hist.Len()))
}

// SetTree replaces the whole tree. No history entry is created and the
// selection is cleared.
func (s *Store) SetTree(tree *document.Page) {
	if tree == nil {
		return
	}
	s.mutate(func() bool {
		s.tree = tree.CloneTree()
		s.selected = []string{}
		return true
	})
}

// AddElement appends a copy of n on top of the z-order and checkpoints.
// Pages, nil nodes and duplicate ids are ignored.
func (s *Store) AddElement(n document.Node) {
	if n == nil || n.Kind() == document.KindPage {
		return
	}
	s.mutate(func() bool {
		id := n.Common().ID
		if id == "" || id == s.tree.ID || s.tree.IndexOf(id) >= 0 {
			return false
		}
		s.tree = s.withChildren(append(slices.Clone(s.tree.Children), n.Clone()))
		s.checkpointLocked("add")
		return true
	})
}

// DeleteElements removes every child whose id is in ids, clears the
// selection and checkpoints.
func (s *Store) DeleteElements(ids []string) {
	s.mutate(func() bool {
		kept := make([]document.Node, 0, len(s.tree.Children))
		for _, ch := range s.tree.Children {
			if !slices.Contains(ids, ch.Common().ID) {
				kept = append(kept, ch)
			}
		}
		s.tree = s.withChildren(kept)
		s.selected = []string{}
		s.checkpointLocked("delete")
		return true
	})
}

// UpdateElement applies one patch and checkpoints.
func (s *Store) UpdateElement(p document.Patch) {
	s.UpdateElements([]document.Patch{p}, true)
}

// UpdateElements applies patches in order; later patches see the effect of
// earlier ones on the same node. A patch whose id matches neither a child
// nor the root is skipped. With saveToHistory the whole batch yields exactly
// one checkpoint.
func (s *Store) UpdateElements(patches []document.Patch, saveToHistory bool) {
	if len(patches) == 0 {
		return
	}
	s.mutate(func() bool {
		tree := s.applyPatchesLocked(patches)
		if tree == nil && !saveToHistory {
			return false
		}
		if tree != nil {
			s.tree = tree
		}
		if saveToHistory {
			s.checkpointLocked("update")
		}
		return true
	})
}

// applyPatchesLocked returns the patched tree, or nil when nothing applied.
func (s *Store) applyPatchesLocked(patches []document.Patch) *document.Page {
	root := s.tree
	children := s.tree.Children
	cloned := false
	changed := false
	for _, p := range patches {
		if p.ID == root.ID {
			if out, ok := document.Apply(root, p.Set); ok {
				root = out.(*document.Page)
				changed = true
			}
			continue
		}
		i := indexOf(children, p.ID)
		if i < 0 {
			continue
		}
		out, ok := document.Apply(children[i], p.Set)
		if !ok {
			continue
		}
		if !cloned {
			children = slices.Clone(children)
			cloned = true
		}
		children[i] = out
		changed = true
	}
	if !changed {
		return nil
	}
	if root == s.tree {
		c := *root
		root = &c
	}
	root.Children = children
	return root
}

// Undo steps the history cursor back and restores that snapshot. At the
// oldest entry it does nothing.
func (s *Store) Undo() {
	s.mutate(func() bool {
		e, ok := s.hist.Undo()
		if !ok {
			return false
		}
		return s.restoreLocked(e, "undo")
	})
}

// Redo steps the history cursor forward. At the newest entry it does nothing.
func (s *Store) Redo() {
	s.mutate(func() bool {
		e, ok := s.hist.Redo()
		if !ok {
			return false
		}
		return s.restoreLocked(e, "redo")
	})
}

func (s *Store) restoreLocked(e history.Entry, op string) bool {
	tree, err := document.DecodeTree(e.Value)
	if err != nil {
		s.log.Error("history snapshot unreadable", slog.String("op", op), slog.String("entry", e.ID), slog.Any("err", err))
		return false
	}
	s.tree = tree
	s.selected = slices.DeleteFunc(s.selected, func(id string) bool { return tree.IndexOf(id) < 0 })
	return true
}

// MoveIndexPosition lifts the children in ids out of the z-order, keeping
// their relative order, and reinserts them as one block at newPosition among
// the remaining children. newPosition is clamped. Always checkpoints.
func (s *Store) MoveIndexPosition(ids []string, newPosition int) {
	s.mutate(func() bool {
		s.tree = s.withChildren(moveBlock(s.tree.Children, ids, newPosition))
		s.checkpointLocked("move")
		return true
	})
}

// SetSelected replaces the selection. Unknown ids are dropped and duplicates
// collapse; no history entry is created.
func (s *Store) SetSelected(ids []string) {
	s.mutate(func() bool {
		sel := make([]string, 0, len(ids))
		for _, id := range ids {
			if slices.Contains(sel, id) {
				continue
			}
			if id == s.tree.ID || s.tree.IndexOf(id) >= 0 {
				sel = append(sel, id)
			}
		}
		s.selected = sel
		return true
	})
}

// SetSelectedTool switches the active tool; no history entry is created.
func (s *Store) SetSelectedTool(t Tool) {
	s.mutate(func() bool {
		if s.tool == t {
			return false
		}
		s.tool = t
		return true
	})
}

// withChildren returns a shallow copy of the root holding children.
func (s *Store) withChildren(children []document.Node) *document.Page {
	c := *s.tree
	c.Children = children
	return &c
}

func indexOf(children []document.Node, id string) int {
	for i, ch := range children {
		if ch.Common().ID == id {
			return i
		}
	}
	return -1
}
