//go:build integration

package mongostore

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/matzehuels/factoryflow/pkg/flow"
)

func TestStore_Integration(t *testing.T) {
	uri := os.Getenv("FACTORYFLOW_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("FACTORYFLOW_TEST_MONGO_URI not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s, err := Connect(ctx, Config{URI: uri, Database: "factoryflow_test", Collection: "flows_" + time.Now().Format("150405")}, nil)
	if err != nil {
		t.Fatalf("Connect() error: %v", err)
	}
	defer func() {
		_ = s.coll.Drop(ctx)
		_ = s.Close(ctx)
	}()

	doc := flow.Document{FactoryID: "F1", FactoryData: skeleton()}
	if err := s.Create(ctx, doc); err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if err := s.Create(ctx, doc); !errors.Is(err, ErrConflict) {
		t.Errorf("second Create() = %v, want ErrConflict", err)
	}

	got, found, err := s.Fetch(ctx, "F1")
	if err != nil || !found {
		t.Fatalf("Fetch() = %v, %v", found, err)
	}
	if got.FactoryData.Fingerprint() != doc.FactoryData.Fingerprint() {
		t.Error("fetched graph differs from created graph")
	}

	if err := s.Update(ctx, flow.Document{FactoryID: "F2", FactoryData: skeleton()}); err != nil {
		t.Fatalf("Update() upsert error: %v", err)
	}
	ids, err := s.List(ctx)
	if err != nil || len(ids) != 2 {
		t.Errorf("List() = %v, %v", ids, err)
	}
}
