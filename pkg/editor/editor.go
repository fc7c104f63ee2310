// Package editor is the state machine of the factory flow editor.
//
// [Reduce] is a pure transition function from a [State] and an [Action] to
// the next state plus notices for the user. [Editor] wraps it with a mutex so
// a state can be shared between an input loop and background saves:
//
//	ed := editor.New(editor.Env{Layout: editor.LayoutWith(gv)}, logger)
//	ed.Dispatch(ctx, editor.Load{FactoryID: "F1", Graph: g})
//	notices := ed.Dispatch(ctx, editor.Connect{Source: "shopFloor_S1", Target: "asset_A1_1"})
//
// Every graph change is recorded in the history stack, so Undo and Redo walk
// back through connects, drops, deletes and moves alike.
package editor

import (
	"context"
	"io"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/factoryflow/pkg/notice"
	"github.com/matzehuels/factoryflow/pkg/observability"
)

// Editor holds the current state. It is safe for concurrent use; actions are
// applied one at a time.
type Editor struct {
	mu     sync.Mutex
	env    Env
	state  State
	logger *log.Logger
}

// New creates an editor with an empty state.
func New(env Env, logger *log.Logger) *Editor {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Editor{env: env, logger: logger}
}

// State returns the current state.
func (e *Editor) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Dispatch applies a and returns its notices.
func (e *Editor) Dispatch(ctx context.Context, a Action) []notice.Notice {
	e.mu.Lock()
	defer e.mu.Unlock()

	before := e.state.Graph.Fingerprint()
	next, notices := Reduce(ctx, e.env, e.state, a)
	e.state = next
	changed := next.Graph.Fingerprint() != before

	observability.Editor().OnAction(ctx, a.Name(), changed)
	e.logger.Debug("action", "name", a.Name(), "changed", changed, "nodes", len(next.Graph.Nodes), "edges", len(next.Graph.Edges))
	for _, n := range notices {
		e.logger.Debug("notice", "severity", n.Severity, "summary", n.Summary, "detail", n.Detail)
	}
	return notices
}

// Key dispatches the action bound to a keyboard shortcut. ok is false for
// unbound keys.
func (e *Editor) Key(ctx context.Context, key string) (notices []notice.Notice, ok bool) {
	a, ok := ActionForKey(key)
	if !ok {
		return nil, false
	}
	return e.Dispatch(ctx, a), true
}
