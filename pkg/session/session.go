// Package session keeps editor sessions of the factoryflow server and CLI.
//
// A session ties a factory to an open editor and carries the editor's
// unsaved draft, so a restarted server or a later `factoryflow edit` run can
// resume where the user left off. Implementations:
//   - MemoryStore: single-process server and tests
//   - RedisStore: shared by several server instances
//   - FileStore: the CLI, one JSON file per session
//
// # Usage
//
//	sess, err := session.New("F1", "Plant", session.DefaultTTL)
//	if err != nil {
//	    return err
//	}
//	sess.SetDraft(state.Graph)
//	store.Set(ctx, sess)
//
//	sess, err = store.Get(ctx, id)
//	if err != nil {
//	    return err
//	}
//	if sess == nil {
//	    // unknown or expired
//	}
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	apperr "github.com/matzehuels/factoryflow/pkg/errors"
	"github.com/matzehuels/factoryflow/pkg/flow"
)

// ErrNotFound is returned when a session does not exist.
var ErrNotFound = errors.New("session not found")

// DefaultTTL is how long an idle session is kept.
const DefaultTTL = 12 * time.Hour

// Session is one open editor.
type Session struct {
	ID          string      `json:"id"`
	FactoryID   string      `json:"factoryId"`
	FactoryName string      `json:"factoryName,omitempty"`
	Draft       *flow.Graph `json:"draft,omitempty"`
	Persisted   string      `json:"persisted,omitempty"` // fingerprint of the stored graph
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
	ExpiresAt   time.Time   `json:"expiresAt"`
}

// New creates a session with a random id for factoryID.
func New(factoryID, factoryName string, ttl time.Duration) (*Session, error) {
	if err := apperr.ValidateFactoryID(factoryID); err != nil {
		return nil, err
	}
	id, err := uuid.NewRandom()
	if err != nil {
		return nil, err
	}
	now := time.Now()
	return &Session{
		ID:          id.String(),
		FactoryID:   factoryID,
		FactoryName: factoryName,
		CreatedAt:   now,
		UpdatedAt:   now,
		ExpiresAt:   now.Add(ttl),
	}, nil
}

// IsExpired returns true if the session has expired.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// Touch extends the session by ttl from now.
func (s *Session) Touch(ttl time.Duration) {
	now := time.Now()
	s.UpdatedAt = now
	s.ExpiresAt = now.Add(ttl)
}

// SetDraft records the editor's current graph.
func (s *Session) SetDraft(g flow.Graph) {
	c := g.Clone()
	s.Draft = &c
	s.UpdatedAt = time.Now()
}

// TTL returns the time left before expiry, at least one second.
func (s *Session) TTL() time.Duration {
	return max(time.Until(s.ExpiresAt), time.Second)
}

// ValidID reports whether id is a session id issued by [New].
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// Store is the interface for session storage backends.
type Store interface {
	// Get retrieves a session by ID.
	// Returns nil, nil if the session doesn't exist or has expired.
	Get(ctx context.Context, sessionID string) (*Session, error)

	// Set stores a session.
	Set(ctx context.Context, session *Session) error

	// Delete removes a session.
	Delete(ctx context.Context, sessionID string) error

	// Cleanup removes expired sessions and returns how many were removed.
	// It may be a no-op for backends that expire keys themselves.
	Cleanup(ctx context.Context) (int, error)

	Close() error
}
