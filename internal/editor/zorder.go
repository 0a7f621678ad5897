/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"slices"

	"rendless/internal/document"
)

// moveBlock removes the nodes in ids from children and reinserts them, in
// their existing relative order, at pos among the others.
func moveBlock(children []document.Node, ids []string, pos int) []document.Node {
	block := make([]document.Node, 0, len(ids))
	others := make([]document.Node, 0, len(children))
	for _, ch := range children {
		if slices.Contains(ids, ch.Common().ID) {
			block = append(block, ch)
		} else {
			others = append(others, ch)
		}
	}
	pos = max(0, min(pos, len(others)))
	out := make([]document.Node, 0, len(children))
	out = append(out, others[:pos]...)
	out = append(out, block...)
	return append(out, others[pos:]...)
}

// selectedRange returns the lowest and highest child index among ids.
func selectedRange(children []document.Node, ids []string) (lo, hi int, ok bool) {
	lo, hi = -1, -1
	for i, ch := range children {
		if !slices.Contains(ids, ch.Common().ID) {
			continue
		}
		if lo < 0 {
			lo = i
		}
		hi = i
	}
	return lo, hi, lo >= 0
}

// BringToFront moves ids to the top of the z-order. Like the other
// helpers it does nothing when none of ids is a child.
func (s *Store) BringToFront(ids []string) {
	s.reorder(ids, func(lo, hi, n int) int { return n })
}

// SendToBack moves ids to the bottom of the z-order.
func (s *Store) SendToBack(ids []string) {
	s.reorder(ids, func(lo, hi, n int) int { return 0 })
}

// BringForward moves ids one step up, targeting the highest selected index + 1.
func (s *Store) BringForward(ids []string) {
	s.reorder(ids, func(lo, hi, n int) int { return hi + 1 })
}

// SendBackward moves ids one step down, targeting the lowest selected index - 1
// (clamped to 0 on insertion).
func (s *Store) SendBackward(ids []string) {
	s.reorder(ids, func(lo, hi, n int) int { return lo - 1 })
}

func (s *Store) reorder(ids []string, target func(lo, hi, n int) int) {
	s.mutate(func() bool {
		lo, hi, ok := selectedRange(s.tree.Children, ids)
		if !ok {
			return false
		}
		s.tree = s.withChildren(moveBlock(s.tree.Children, ids, target(lo, hi, len(s.tree.Children))))
		s.checkpointLocked("move")
		return true
	})
}
