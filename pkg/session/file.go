package session

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileStore is a file-based session store for CLI applications.
// Sessions are stored as JSON files in a config directory.
type FileStore struct {
	mu      sync.RWMutex
	baseDir string
}

// NewFileStore creates a new file-based session store.
// If baseDir is empty, defaults to ~/.config/factoryflow/sessions/
func NewFileStore(baseDir string) (*FileStore, error) {
	if baseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home dir: %w", err)
		}
		baseDir = filepath.Join(home, ".config", "factoryflow", "sessions")
	}
	if err := os.MkdirAll(baseDir, 0o700); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}
	return &FileStore{baseDir: baseDir}, nil
}

func (s *FileStore) sessionPath(sessionID string) string {
	return filepath.Join(s.baseDir, filepath.Base(sessionID)+".json")
}

func (s *FileStore) Get(_ context.Context, sessionID string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	path := s.sessionPath(sessionID)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read session file: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("parse session: %w", err)
	}

	if sess.IsExpired() {
		_ = os.Remove(path)
		return nil, nil
	}
	return &sess, nil
}

func (s *FileStore) Set(_ context.Context, sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	path := s.sessionPath(sess.ID)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	return nil
}

func (s *FileStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.sessionPath(sessionID)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}

func (s *FileStore) Cleanup(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return 0, fmt.Errorf("read session dir: %w", err)
	}

	now := time.Now()
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		path := filepath.Join(s.baseDir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var sess Session
		if err := json.Unmarshal(data, &sess); err != nil {
			continue
		}
		if now.After(sess.ExpiresAt) && os.Remove(path) == nil {
			removed++
		}
	}
	return removed, nil
}

func (s *FileStore) Close() error { return nil }

// Path returns the base directory for session files.
func (s *FileStore) Path() string {
	return s.baseDir
}

var _ Store = (*FileStore)(nil)

// =============================================================================
// CLI drafts
// =============================================================================

// DraftStore keeps one session per factory for the terminal editor, so an
// unsaved draft survives quitting `factoryflow edit`.
type DraftStore struct {
	store *FileStore
	ttl   time.Duration
}

// NewDraftStore creates a draft store under dir (the default session
// directory when empty).
func NewDraftStore(dir string, ttl time.Duration) (*DraftStore, error) {
	store, err := NewFileStore(dir)
	if err != nil {
		return nil, err
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &DraftStore{store: store, ttl: ttl}, nil
}

func draftID(factoryID string) string { return "factory-" + factoryID }

// Load returns the draft session of factoryID, or nil when there is none.
func (d *DraftStore) Load(ctx context.Context, factoryID string) (*Session, error) {
	return d.store.Get(ctx, draftID(factoryID))
}

// Save stores sess as the draft of its factory.
func (d *DraftStore) Save(ctx context.Context, sess *Session) error {
	cp := *sess
	cp.ID = draftID(sess.FactoryID)
	cp.Touch(d.ttl)
	return d.store.Set(ctx, &cp)
}

// Discard removes the draft of factoryID.
func (d *DraftStore) Discard(ctx context.Context, factoryID string) error {
	return d.store.Delete(ctx, draftID(factoryID))
}

// Path returns the draft file of factoryID.
func (d *DraftStore) Path(factoryID string) string {
	return d.store.sessionPath(draftID(factoryID))
}
