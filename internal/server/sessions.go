package server

import (
	"context"
	"sync"
	"time"

	"github.com/matzehuels/factoryflow/pkg/editor"
	apperr "github.com/matzehuels/factoryflow/pkg/errors"
	"github.com/matzehuels/factoryflow/pkg/persist"
	"github.com/matzehuels/factoryflow/pkg/session"
)

// liveSession is a session with its editor in memory.
type liveSession struct {
	ed    *editor.Editor
	guard persist.Guard

	mu   sync.Mutex // guards meta and the busy check-and-set
	meta *session.Session
}

// lookup returns the live session id, restoring it from the session store
// when this process has not seen it yet.
func (s *Server) lookup(ctx context.Context, id string) (*liveSession, error) {
	if !session.ValidID(id) {
		return nil, apperr.New(apperr.ErrCodeSessionNotFound, "session %q not found", id)
	}

	s.mu.Lock()
	l, ok := s.live[id]
	s.mu.Unlock()
	if ok {
		return l, nil
	}

	// Restoring fetches and lays out the graph; other sessions stay
	// available meanwhile.
	meta, err := s.deps.Sessions.Get(ctx, id)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrCodeInternal, err, "read session %s", id)
	}
	if meta == nil {
		return nil, apperr.New(apperr.ErrCodeSessionNotFound, "session %q not found", id)
	}

	l = &liveSession{ed: s.newEditor(), meta: meta}
	load := editor.Load{FactoryID: meta.FactoryID, Persisted: meta.Persisted}
	if meta.Draft != nil {
		load.Graph = *meta.Draft
	} else {
		g, err := s.deps.Sync.Load(ctx, meta.FactoryID, meta.FactoryName)
		if err != nil {
			return nil, err
		}
		load.Graph, load.Persisted = g, ""
	}
	l.ed.Dispatch(ctx, load)

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.live[id]; ok {
		// A concurrent request restored it first.
		return existing, nil
	}
	s.live[id] = l
	s.reportSessions()
	s.logger.Info("restored session", "session", id, "factory", meta.FactoryID, "draft", meta.Draft != nil)
	return l, nil
}

func (s *Server) newEditor() *editor.Editor {
	return editor.New(editor.Env{Layout: s.deps.Layout}, s.logger)
}

// open loads a factory into a new session.
func (s *Server) open(ctx context.Context, factoryID, factoryName string) (string, *liveSession, error) {
	meta, err := session.New(factoryID, factoryName, s.deps.SessionTTL)
	if err != nil {
		return "", nil, err
	}
	g, err := s.deps.Sync.Load(ctx, factoryID, factoryName)
	if err != nil {
		return "", nil, err
	}

	l := &liveSession{ed: s.newEditor(), meta: meta}
	l.ed.Dispatch(ctx, editor.Load{FactoryID: factoryID, Graph: g})
	if err := s.checkpoint(ctx, l); err != nil {
		return "", nil, err
	}

	s.mu.Lock()
	s.live[meta.ID] = l
	s.reportSessions()
	s.mu.Unlock()
	s.logger.Info("opened session", "session", meta.ID, "factory", factoryID)
	return meta.ID, l, nil
}

// checkpoint writes the editor's graph to the session store. A clean graph
// clears the draft.
func (s *Server) checkpoint(ctx context.Context, l *liveSession) error {
	st := l.ed.State()

	l.mu.Lock()
	if st.Dirty() {
		l.meta.SetDraft(st.Graph)
	} else {
		l.meta.Draft = nil
	}
	l.meta.Persisted = st.Persisted
	l.meta.Touch(s.deps.SessionTTL)
	snapshot := *l.meta
	l.mu.Unlock()

	if err := s.deps.Sessions.Set(ctx, &snapshot); err != nil {
		return apperr.Wrap(apperr.ErrCodeInternal, err, "write session %s", snapshot.ID)
	}
	return nil
}

// forget drops a session from memory and the store.
func (s *Server) forget(ctx context.Context, id string) error {
	s.mu.Lock()
	delete(s.live, id)
	s.reportSessions()
	s.mu.Unlock()
	return s.deps.Sessions.Delete(ctx, id)
}

// reportSessions must be called with s.mu held.
func (s *Server) reportSessions() {
	if s.deps.Metrics != nil {
		s.deps.Metrics.SetSessions(len(s.live))
	}
}

// Sweep evicts expired sessions from memory and the store. It returns the
// number of sessions evicted from memory.
func (s *Server) Sweep(ctx context.Context) (int, error) {
	s.mu.Lock()
	evicted := 0
	for id, l := range s.live {
		l.mu.Lock()
		expired := l.meta.IsExpired()
		l.mu.Unlock()
		if expired {
			delete(s.live, id)
			evicted++
		}
	}
	s.reportSessions()
	s.mu.Unlock()

	removed, err := s.deps.Sessions.Cleanup(ctx)
	if evicted > 0 || removed > 0 {
		s.logger.Info("swept sessions", "live", evicted, "stored", removed)
	}
	return evicted, err
}

// DefaultSweepInterval is used when RunSweeper is given no interval.
const DefaultSweepInterval = 5 * time.Minute

// RunSweeper calls [Server.Sweep] every interval until ctx is cancelled.
func (s *Server) RunSweeper(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			if _, err := s.Sweep(ctx); err != nil {
				s.logger.Warn("sweep failed", "err", err)
			}
		}
	}
}

// beginSave raises the busy flag unless a save is already running.
func (l *liveSession) beginSave(ctx context.Context) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ed.State().Busy {
		return false
	}
	l.ed.Dispatch(ctx, editor.SetBusy{Busy: true})
	return true
}
