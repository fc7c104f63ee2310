package server

import (
	"context"
	"io"
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/factoryflow/pkg/editor"
	apperr "github.com/matzehuels/factoryflow/pkg/errors"
	"github.com/matzehuels/factoryflow/pkg/flow"
	"github.com/matzehuels/factoryflow/pkg/notice"
	"github.com/matzehuels/factoryflow/pkg/persist"
)

// CreateRequest opens a session.
type CreateRequest struct {
	FactoryID   string `json:"factoryId"`
	FactoryName string `json:"factoryName"`
}

// SessionResponse is the editor state of a session.
type SessionResponse struct {
	ID          string           `json:"id"`
	FactoryID   string           `json:"factoryId"`
	FactoryName string           `json:"factoryName"`
	Graph       flow.Graph       `json:"graph"`
	Selection   editor.Selection `json:"selection"`
	Collapsed   []string         `json:"collapsed"`
	Dirty       bool             `json:"dirty"`
	CanUndo     bool             `json:"canUndo"`
	CanRedo     bool             `json:"canRedo"`
	Busy        bool             `json:"busy"`
	Horizontal  bool             `json:"horizontal"`
	Notices     []notice.Notice  `json:"notices,omitempty"`
	Report      *persist.Report  `json:"report,omitempty"`
}

// CloseResponse reports how a session was closed.
type CloseResponse struct {
	Saved  bool            `json:"saved"`
	Report *persist.Report `json:"report,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.respondError(w, err)
		return
	}
	id, l, err := s.open(r.Context(), req.FactoryID, req.FactoryName)
	if err != nil {
		s.respondError(w, err)
		return
	}
	w.Header().Set("Location", "/sessions/"+id)
	s.respondJSON(w, http.StatusCreated, s.view(l, nil, nil))
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	l, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := s.checkpoint(r.Context(), l); err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, s.view(l, nil, nil))
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	l, ok := s.session(w, r)
	if !ok {
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
	if err != nil {
		s.respondError(w, apperr.Wrap(apperr.ErrCodeInvalidPayload, err, "read action"))
		return
	}
	a, err := editor.DecodeAction(body)
	if err != nil {
		s.respondError(w, err)
		return
	}

	notices := l.ed.Dispatch(r.Context(), a)
	if err := s.checkpoint(r.Context(), l); err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, s.view(l, notices, nil))
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	l, ok := s.session(w, r)
	if !ok {
		return
	}
	report, err := s.save(r.Context(), l)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, s.view(l, nil, &report))
}

// save persists the session's graph. The editor stays readable while the
// remote calls run; mutating actions are refused until they finish.
func (s *Server) save(ctx context.Context, l *liveSession) (persist.Report, error) {
	if !l.beginSave(ctx) {
		return persist.Report{}, apperr.New(apperr.ErrCodeBusy, "a save is already running")
	}
	st := l.ed.State()
	report := s.deps.Sync.SaveOrUpdate(ctx, st.FactoryID, st.Graph)

	l.ed.Dispatch(ctx, editor.SetBusy{Busy: false})
	if report.OK() && l.ed.State().Graph.Fingerprint() == st.Graph.Fingerprint() {
		l.ed.Dispatch(ctx, editor.MarkSaved{})
	}
	return report, s.checkpoint(ctx, l)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	l, ok := s.session(w, r)
	if !ok {
		return
	}
	s.replace(w, r, l, func(ctx context.Context, st editor.State, name string) (flow.Graph, persist.Report) {
		return s.deps.Sync.Refresh(ctx, st.FactoryID, name)
	}, false)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	l, ok := s.session(w, r)
	if !ok {
		return
	}
	s.replace(w, r, l, func(ctx context.Context, st editor.State, _ string) (flow.Graph, persist.Report) {
		return s.deps.Sync.Reset(ctx, st.FactoryID, st.Graph)
	}, true)
}

// replace runs a saga that yields a new graph and loads it into the editor.
// Refresh keeps the current graph on failure; reset loads the pruned graph
// either way.
func (s *Server) replace(w http.ResponseWriter, r *http.Request, l *liveSession,
	run func(context.Context, editor.State, string) (flow.Graph, persist.Report), loadOnFailure bool,
) {
	ctx := r.Context()
	if !l.beginSave(ctx) {
		s.respondError(w, apperr.New(apperr.ErrCodeBusy, "a save is already running"))
		return
	}
	l.mu.Lock()
	name := l.meta.FactoryName
	l.mu.Unlock()

	st := l.ed.State()
	g, report := run(ctx, st, name)
	l.ed.Dispatch(ctx, editor.SetBusy{Busy: false})
	if report.OK() || loadOnFailure {
		l.ed.Dispatch(ctx, editor.Load{FactoryID: st.FactoryID, Graph: g})
	}
	if err := s.checkpoint(ctx, l); err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, s.view(l, nil, &report))
}

// handleClose is the navigation guard: a dirty graph is saved once before
// the session closes, and a close that arrives while that save runs is
// refused.
func (s *Server) handleClose(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	l, ok := s.session(w, r)
	if !ok {
		return
	}

	var resp CloseResponse
	allowed := l.guard.BeforeLeave(r.Context(), l.ed.State().Dirty(), func(ctx context.Context) error {
		report, err := s.save(ctx, l)
		resp.Saved, resp.Report = err == nil && report.OK(), &report
		if err != nil {
			return err
		}
		return report.Err
	})
	if !allowed {
		s.respondError(w, apperr.New(apperr.ErrCodeBusy, "session %s is saving", id))
		return
	}
	if err := s.forget(r.Context(), id); err != nil {
		s.logger.Warn("delete session", "session", id, "err", err)
	}
	s.logger.Info("closed session", "session", id, "saved", resp.Saved)
	s.respondJSON(w, http.StatusOK, resp)
}

// session resolves the {id} URL parameter, writing the error response when
// it fails.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*liveSession, bool) {
	l, err := s.lookup(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, err)
		return nil, false
	}
	return l, true
}

func (s *Server) view(l *liveSession, notices []notice.Notice, report *persist.Report) SessionResponse {
	st := l.ed.State()
	l.mu.Lock()
	id, name := l.meta.ID, l.meta.FactoryName
	l.mu.Unlock()

	collapsed := make([]string, 0, len(st.Collapsed))
	for node, c := range st.Collapsed {
		if c {
			collapsed = append(collapsed, node)
		}
	}
	slices.Sort(collapsed)

	if report != nil {
		notices = append(notices, report.Notices...)
	}
	return SessionResponse{
		ID:          id,
		FactoryID:   st.FactoryID,
		FactoryName: name,
		Graph:       st.Graph,
		Selection:   st.Selection,
		Collapsed:   collapsed,
		Dirty:       st.Dirty(),
		CanUndo:     st.CanUndo(),
		CanRedo:     st.CanRedo(),
		Busy:        st.Busy,
		Horizontal:  st.Horizontal,
		Notices:     notices,
		Report:      report,
	}
}
