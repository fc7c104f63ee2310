package persist

import (
	"context"
	"sync"
)

// Guard saves a dirty graph before the user leaves the editor. At most one
// save runs at a time.
type Guard struct {
	mu      sync.Mutex
	running bool
}

// BeforeLeave reports whether navigation may proceed. A clean graph leaves
// at once. A dirty graph is saved first and navigation is allowed once save
// returns, whatever its outcome. A caller arriving while a save is still
// running is refused.
func (g *Guard) BeforeLeave(ctx context.Context, dirty bool, save func(ctx context.Context) error) bool {
	if !dirty {
		return true
	}
	g.mu.Lock()
	if g.running {
		g.mu.Unlock()
		return false
	}
	g.running = true
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		g.running = false
		g.mu.Unlock()
	}()
	_ = save(ctx)
	return true
}

// Saving reports whether a guarded save is in progress.
func (g *Guard) Saving() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.running
}
