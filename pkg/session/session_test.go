package session

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/matzehuels/factoryflow/pkg/flow"
)

func draft() flow.Graph {
	return flow.Graph{Nodes: []flow.Node{{
		ID:       "factory_F1",
		Position: flow.Position{X: 250, Y: 70},
		Data:     flow.FactoryData{Label: "Plant", FactoryID: "F1"},
	}}}
}

func TestNew(t *testing.T) {
	s, err := New("F1", "Plant", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if !ValidID(s.ID) {
		t.Errorf("id %q is not a uuid", s.ID)
	}
	if s.IsExpired() {
		t.Error("new session expired")
	}
	if other, _ := New("F1", "Plant", time.Hour); other.ID == s.ID {
		t.Error("ids repeat")
	}

	if _, err := New("", "Plant", time.Hour); err == nil {
		t.Error("empty factory id accepted")
	}
	if _, err := New("F1/../x", "Plant", time.Hour); err == nil {
		t.Error("path-like factory id accepted")
	}
}

func TestSetDraftCopies(t *testing.T) {
	s, _ := New("F1", "Plant", time.Hour)
	g := draft()
	s.SetDraft(g)
	g.Nodes[0].Position.X = 999

	if s.Draft.Nodes[0].Position.X != 250 {
		t.Error("draft shares memory with the caller's graph")
	}
}

func stores(t *testing.T) map[string]Store {
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return map[string]Store{"memory": NewMemoryStore(), "file": fs}
}

func TestStores(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			defer store.Close()

			s, _ := New("F1", "Plant", time.Hour)
			s.SetDraft(draft())
			if err := store.Set(ctx, s); err != nil {
				t.Fatal(err)
			}

			got, err := store.Get(ctx, s.ID)
			if err != nil || got == nil {
				t.Fatalf("Get() = %v, %v", got, err)
			}
			if got.FactoryID != "F1" || got.Draft == nil || len(got.Draft.Nodes) != 1 {
				t.Errorf("session = %+v", got)
			}

			if missing, err := store.Get(ctx, "nope"); missing != nil || err != nil {
				t.Errorf("Get(missing) = %v, %v", missing, err)
			}

			if err := store.Delete(ctx, s.ID); err != nil {
				t.Fatal(err)
			}
			if gone, _ := store.Get(ctx, s.ID); gone != nil {
				t.Error("session survived Delete")
			}
			if err := store.Delete(ctx, s.ID); err != nil {
				t.Errorf("second Delete() = %v", err)
			}
		})
	}
}

func TestStoresExpire(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			live, _ := New("F1", "Plant", time.Hour)
			dead, _ := New("F2", "Old", time.Hour)
			dead.ExpiresAt = time.Now().Add(-time.Minute)
			_ = store.Set(ctx, live)
			_ = store.Set(ctx, dead)

			if got, _ := store.Get(ctx, dead.ID); got != nil {
				t.Error("expired session returned")
			}
			// Get already dropped the expired file; set it again for Cleanup.
			_ = store.Set(ctx, dead)
			n, err := store.Cleanup(ctx)
			if err != nil {
				t.Fatal(err)
			}
			if n != 1 {
				t.Errorf("Cleanup() removed %d, want 1", n)
			}
			if got, _ := store.Get(ctx, live.ID); got == nil {
				t.Error("live session removed")
			}
		})
	}
}

func TestMemoryStoreIsolation(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	s, _ := New("F1", "Plant", time.Hour)
	s.SetDraft(draft())
	_ = store.Set(ctx, s)

	s.Draft.Nodes[0].Position.X = 1
	got, _ := store.Get(ctx, s.ID)
	got.FactoryName = "changed"

	again, _ := store.Get(ctx, s.ID)
	if again.Draft.Nodes[0].Position.X != 250 || again.FactoryName != "Plant" {
		t.Errorf("store shares memory with callers: %+v", again)
	}
	if store.Len() != 1 {
		t.Errorf("Len() = %d", store.Len())
	}
}

func TestDraftStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	d, err := NewDraftStore(dir, time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	if got, err := d.Load(ctx, "F1"); got != nil || err != nil {
		t.Fatalf("Load(empty) = %v, %v", got, err)
	}

	s, _ := New("F1", "Plant", time.Minute)
	s.SetDraft(draft())
	if err := d.Save(ctx, s); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(d.Path("F1")); err != nil {
		t.Errorf("draft file missing: %v", err)
	}

	got, err := d.Load(ctx, "F1")
	if err != nil || got == nil {
		t.Fatalf("Load() = %v, %v", got, err)
	}
	if got.ID != "factory-F1" || got.Draft == nil {
		t.Errorf("draft = %+v", got)
	}
	if s.ID == "factory-F1" {
		t.Error("Save modified the caller's session")
	}

	if err := d.Discard(ctx, "F1"); err != nil {
		t.Fatal(err)
	}
	if got, _ := d.Load(ctx, "F1"); got != nil {
		t.Error("draft survived Discard")
	}
}
