/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package server

import (
	"encoding/json"
	"fmt"

	"rendless/internal/document"
	"rendless/internal/editor"
)

// Op is one editor operation sent by the canvas client. Which fields are
// read depends on Op.
type Op struct {
	Op       string           `json:"op"`
	Node     json.RawMessage  `json:"node,omitempty"`     // add
	Tree     json.RawMessage  `json:"tree,omitempty"`     // setTree
	IDs      []string         `json:"ids,omitempty"`      // delete, move, select, z-order
	Patches  []document.Patch `json:"patches,omitempty"`  // update
	Save     *bool            `json:"save,omitempty"`     // update; default true
	Position int              `json:"position,omitempty"` // move
	Tool     string           `json:"tool,omitempty"`     // tool
	ID       string           `json:"id,omitempty"`       // input
	Property string           `json:"property,omitempty"` // input
	Value    string           `json:"value,omitempty"`    // input
}

var knownTools = map[editor.Tool]bool{
	editor.ToolSelect: true,
	editor.ToolRect:   true,
	editor.ToolText:   true,
	editor.ToolImage:  true,
	editor.ToolHand:   true,
}

// decodeOps validates every op before any is applied, so a bad batch never
// leaves the store half changed.
func decodeOps(ops []Op) ([]func(*editor.Store) bool, error) {
	out := make([]func(*editor.Store) bool, 0, len(ops))
	for i, op := range ops {
		fn, err := decodeOp(op)
		if err != nil {
			return nil, fmt.Errorf("op %d (%s): %w", i, op.Op, err)
		}
		out = append(out, fn)
	}
	return out, nil
}

func decodeOp(op Op) (func(*editor.Store) bool, error) {
	applied := func(f func(*editor.Store)) func(*editor.Store) bool {
		return func(s *editor.Store) bool { f(s); return true }
	}
	switch op.Op {
	case "add":
		n, err := document.DecodeNode(op.Node)
		if err != nil {
			return nil, err
		}
		if err := document.ValidateNode(n); err != nil {
			return nil, err
		}
		return applied(func(s *editor.Store) { s.AddElement(n) }), nil
	case "setTree":
		p, err := document.ParseTree(op.Tree)
		if err != nil {
			return nil, err
		}
		return applied(func(s *editor.Store) { s.SetTree(p) }), nil
	case "delete":
		return applied(func(s *editor.Store) { s.DeleteElements(op.IDs) }), nil
	case "update":
		save := op.Save == nil || *op.Save
		return applied(func(s *editor.Store) { s.UpdateElements(op.Patches, save) }), nil
	case "undo":
		return applied(func(s *editor.Store) { s.Undo() }), nil
	case "redo":
		return applied(func(s *editor.Store) { s.Redo() }), nil
	case "move":
		return applied(func(s *editor.Store) { s.MoveIndexPosition(op.IDs, op.Position) }), nil
	case "bringToFront":
		return applied(func(s *editor.Store) { s.BringToFront(op.IDs) }), nil
	case "sendToBack":
		return applied(func(s *editor.Store) { s.SendToBack(op.IDs) }), nil
	case "bringForward":
		return applied(func(s *editor.Store) { s.BringForward(op.IDs) }), nil
	case "sendBackward":
		return applied(func(s *editor.Store) { s.SendBackward(op.IDs) }), nil
	case "select":
		return applied(func(s *editor.Store) { s.SetSelected(op.IDs) }), nil
	case "tool":
		t := editor.Tool(op.Tool)
		if !knownTools[t] {
			return nil, fmt.Errorf("unknown tool %q", op.Tool)
		}
		return applied(func(s *editor.Store) { s.SetSelectedTool(t) }), nil
	case "input":
		return func(s *editor.Store) bool { return s.ApplyInput(op.ID, op.Property, op.Value) }, nil
	}
	return nil, fmt.Errorf("unknown op %q", op.Op)
}
