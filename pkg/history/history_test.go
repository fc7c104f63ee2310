package history

import (
	"testing"
	"time"

	"github.com/matzehuels/factoryflow/pkg/flow"
)

var t0 = time.UnixMilli(1700000000000)

func graphWith(n int) flow.Graph {
	g := flow.Graph{Nodes: []flow.Node{{ID: "factory_F1", Data: flow.FactoryData{FactoryID: "F1"}}}}
	for i := 0; i < n; i++ {
		g = g.WithNodes(flow.Node{ID: flow.ShopFloorNodeID(string(rune('A' + i))), Data: flow.ShopFloorData{}})
	}
	return g
}

// applied consumes the replay guard the way the editor does, by pushing the
// restored graph.
func applied(s Stack, snap Snapshot) Stack {
	s, _ = s.Push(snap.Graph, t0)
	return s
}

func TestUndoReturnsToBackendSnapshot(t *testing.T) {
	const n = 4
	s := Seed(graphWith(0), t0)
	for i := 1; i <= n; i++ {
		var ok bool
		if s, ok = s.Push(graphWith(i), t0.Add(time.Duration(i)*time.Second)); !ok {
			t.Fatalf("Push %d ignored", i)
		}
	}
	if s.Len() != n+1 || s.Index() != n {
		t.Fatalf("Len, Index = %d, %d, want %d, %d", s.Len(), s.Index(), n+1, n)
	}

	var snap Snapshot
	for i := 0; i < n; i++ {
		var ok bool
		s, snap, ok = s.Undo()
		if !ok {
			t.Fatalf("Undo %d failed", i)
		}
		s = applied(s, snap)
	}
	if snap.Source != SourceBackend {
		t.Errorf("Source = %q, want backend", snap.Source)
	}
	if len(snap.Graph.Nodes) != 1 {
		t.Errorf("restored %d nodes, want 1", len(snap.Graph.Nodes))
	}
	if _, _, ok := s.Undo(); ok {
		t.Error("Undo at index 0 should be a no-op")
	}
}

func TestRedoRestoresSnapshot(t *testing.T) {
	s := Seed(graphWith(0), t0)
	s, _ = s.Push(graphWith(1), t0)
	s, _ = s.Push(graphWith(2), t0)
	want := graphWith(2).Fingerprint()

	s, undone, _ := s.Undo()
	s = applied(s, undone)
	s, snap, ok := s.Redo()
	if !ok {
		t.Fatal("Redo failed")
	}
	if snap.Graph.Fingerprint() != want {
		t.Error("Redo did not restore the exact prior snapshot")
	}
	if _, _, ok := applied(s, snap).Redo(); ok {
		t.Error("Redo at the end should be a no-op")
	}
}

func TestPushAfterUndoDropsRedoBranch(t *testing.T) {
	s := Seed(graphWith(0), t0)
	s, _ = s.Push(graphWith(1), t0)
	s, _ = s.Push(graphWith(2), t0)
	s, snap, _ := s.Undo()
	s, snap, _ = applied(s, snap).Undo()
	s = applied(s, snap)

	s, ok := s.Push(graphWith(3), t0)
	if !ok {
		t.Fatal("Push ignored")
	}
	if s.Len() != 2 {
		t.Errorf("Len = %d, want 2", s.Len())
	}
	if s.CanRedo() {
		t.Error("redo should be unavailable after a new edit")
	}
}

func TestReplayGuardSuppressesOnePush(t *testing.T) {
	s := Seed(graphWith(0), t0)
	s, _ = s.Push(graphWith(1), t0)
	s, snap, _ := s.Undo()
	if !s.Replaying() {
		t.Fatal("Undo should arm the replay guard")
	}

	s, ok := s.Push(snap.Graph, t0)
	if ok {
		t.Error("first Push after Undo should be ignored")
	}
	if s.Len() != 2 || !s.CanRedo() {
		t.Error("ignored Push changed the stack")
	}

	if _, ok = s.Push(graphWith(5), t0); !ok {
		t.Error("second Push after Undo should be recorded")
	}
}

func TestStackIsValue(t *testing.T) {
	base := Seed(graphWith(0), t0)
	base, _ = base.Push(graphWith(1), t0)
	base, _ = base.Push(graphWith(2), t0)
	undone, snap, _ := base.Undo()

	branch, _ := applied(undone, snap).Push(graphWith(7), t0)

	if base.Len() != 3 || base.Index() != 2 {
		t.Errorf("base changed: Len=%d Index=%d", base.Len(), base.Index())
	}
	if got := base.Entries()[2].Graph.Fingerprint(); got != graphWith(2).Fingerprint() {
		t.Error("branching overwrote an entry of the original stack")
	}
	if branch.Len() != 3 {
		t.Errorf("branch Len = %d, want 3", branch.Len())
	}
}

func TestPushOnEmptyStack(t *testing.T) {
	var s Stack
	if s.Index() != -1 {
		t.Errorf("Index = %d, want -1", s.Index())
	}
	s, ok := s.Push(graphWith(0), t0)
	if !ok || s.Index() != 0 || s.Len() != 1 {
		t.Errorf("Push on empty: ok=%v Index=%d Len=%d", ok, s.Index(), s.Len())
	}
}

func TestHasChanges(t *testing.T) {
	s := Seed(graphWith(0), t0)
	if s.HasChanges() {
		t.Error("seeded stack should have no changes")
	}
	s, _ = s.Push(graphWith(1), t0)
	if !s.HasChanges() {
		t.Error("stack should have changes after a push")
	}
	s, _, _ = s.Undo()
	if s.HasChanges() {
		t.Error("undo back to the seed should clear changes")
	}
}
