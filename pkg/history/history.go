// Package history implements the undo/redo stack of the flow editor.
//
// A [Stack] is an ordered list of graph snapshots with a pointer to the
// current one. Recording a new snapshot drops every entry after the pointer,
// so redo is only possible until the next edit.
//
// Restoring a snapshot through [Stack.Undo] or [Stack.Redo] changes the
// editor's graph, which would normally be recorded as a new edit. The stack
// therefore ignores the next [Stack.Push] after a replay, exactly once.
//
// Stack is a value. Every method returns the updated stack and leaves the
// receiver as it was, so a caller can keep an old stack around (for example
// in a reducer's previous state) without it changing.
package history

import (
	"slices"
	"time"

	"github.com/matzehuels/factoryflow/pkg/flow"
)

// Source tells where a snapshot came from.
type Source string

const (
	// SourceBackend marks the snapshot loaded from the document store.
	SourceBackend Source = "backend"
	// SourceUser marks snapshots recorded after an edit.
	SourceUser Source = "user"
)

// Snapshot is one entry of the stack.
type Snapshot struct {
	Graph     flow.Graph `json:"graph"`
	Timestamp time.Time  `json:"timestamp"`
	Source    Source     `json:"source"`
}

// Stack is the undo/redo history. The zero value is an empty stack.
type Stack struct {
	entries []Snapshot
	index   int
	replay  bool
}

// Seed returns a stack holding only g as a backend snapshot.
func Seed(g flow.Graph, at time.Time) Stack {
	return Stack{
		entries: []Snapshot{{Graph: g, Timestamp: at, Source: SourceBackend}},
	}
}

// Len returns the number of snapshots.
func (s Stack) Len() int { return len(s.entries) }

// Index returns the position of the current snapshot, or -1 when empty.
func (s Stack) Index() int {
	if len(s.entries) == 0 {
		return -1
	}
	return s.index
}

// Entries returns a copy of every snapshot.
func (s Stack) Entries() []Snapshot { return slices.Clone(s.entries) }

// CanUndo reports whether Undo would move the pointer.
func (s Stack) CanUndo() bool { return len(s.entries) > 0 && s.index > 0 }

// CanRedo reports whether Redo would move the pointer.
func (s Stack) CanRedo() bool { return len(s.entries) > 0 && s.index < len(s.entries)-1 }

// HasChanges reports whether the current snapshot is a later edit than the
// first one.
func (s Stack) HasChanges() bool { return len(s.entries) > 0 && s.index > 0 }

// Replaying reports whether the next Push will be ignored.
func (s Stack) Replaying() bool { return s.replay }

// Push records g as a user snapshot after the current one and drops any redo
// entries. It reports false, and only clears the replay guard, when the
// previous operation was an Undo or Redo.
func (s Stack) Push(g flow.Graph, at time.Time) (Stack, bool) {
	if s.replay {
		s.replay = false
		return s, false
	}
	keep := 0
	if len(s.entries) > 0 {
		keep = s.index + 1
	}
	snap := Snapshot{Graph: g, Timestamp: at, Source: SourceUser}
	s.entries = append(slices.Clip(s.entries[:keep]), snap)
	s.index = len(s.entries) - 1
	return s, true
}

// Undo moves the pointer back one entry and returns the snapshot now
// current. ok is false when there is nothing to undo.
func (s Stack) Undo() (out Stack, snap Snapshot, ok bool) {
	if !s.CanUndo() {
		return s, Snapshot{}, false
	}
	s.index--
	s.replay = true
	return s, s.entries[s.index], true
}

// Redo moves the pointer forward one entry and returns the snapshot now
// current. ok is false when there is nothing to redo.
func (s Stack) Redo() (out Stack, snap Snapshot, ok bool) {
	if !s.CanRedo() {
		return s, Snapshot{}, false
	}
	s.index++
	s.replay = true
	return s, s.entries[s.index], true
}
