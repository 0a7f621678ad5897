/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package crash

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestRecover_RunsAutosave ensures Recover handles a panic, writes a report,
// runs the autosave hook, and does not terminate the test process due to injected exitFn.
func TestRecover_RunsAutosave(t *testing.T) {
	// Capture stderr temporarily to avoid noisy test logs
	oldStderr := os.Stderr
	r, w, _ := os.Pipe()
	os.Stderr = w
	defer func() {
		_ = w.Close()
		os.Stderr = oldStderr
		_, _ = io.Copy(io.Discard, r)
	}()

	called := 0
	oldExit := exitFn
	exitFn = func(code int) { called = code }
	defer func() { exitFn = oldExit }()

	dir := t.TempDir()
	var savedTo string
	h := &Handle{Dir: dir, Command: "serve", Autosave: func(d string) (string, error) {
		savedTo = d
		return "1 session", os.WriteFile(filepath.Join(d, "session-1.json"), []byte("{}"), 0o644)
	}}

	func() {
		defer Recover(h)
		panic("boom")
	}()

	var found string
	files, _ := os.ReadDir(dir)
	for _, f := range files {
		if strings.HasPrefix(f.Name(), "rendless-crash-") && strings.HasSuffix(f.Name(), ".log") {
			found = filepath.Join(dir, f.Name())
			break
		}
	}
	if found == "" {
		t.Fatalf("expected crash report file under %s", dir)
	}
	b, err := os.ReadFile(found)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if !bytes.Contains(b, []byte("Panic: boom")) {
		t.Fatalf("report does not contain panic: %s", string(b))
	}
	if savedTo != dir {
		t.Fatalf("autosave not run in report dir, got %q", savedTo)
	}
	if _, err := os.Stat(filepath.Join(dir, "session-1.json")); err != nil {
		t.Fatalf("autosave output missing: %v", err)
	}
	if called != 2 {
		t.Fatalf("expected exit code 2, got %d", called)
	}
}
