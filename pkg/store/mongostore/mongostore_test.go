package mongostore

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	apperr "github.com/matzehuels/factoryflow/pkg/errors"
	"github.com/matzehuels/factoryflow/pkg/flow"
)

func skeleton() flow.Graph {
	return flow.Graph{
		Nodes: []flow.Node{
			{ID: "factory_F1", Position: flow.Position{X: 250, Y: 70}, Data: flow.FactoryData{Label: "Plant", FactoryID: "F1", Undeletable: true}},
			{ID: "shopFloor_S1", Position: flow.Position{X: 150, Y: 197}, Data: flow.ShopFloorData{Label: "Hall A", ShopFloorID: "S1"}},
		},
		Edges: []flow.Edge{{ID: "e1", Source: "factory_F1", Target: "shopFloor_S1"}},
	}
}

func stored(t *testing.T, doc flow.Document) bson.D {
	t.Helper()
	raw, err := bson.Marshal(newRecord(doc, time.Unix(0, 0).UTC()))
	if err != nil {
		t.Fatal(err)
	}
	var d bson.D
	if err := bson.Unmarshal(raw, &d); err != nil {
		t.Fatal(err)
	}
	return d
}

func TestRecordDocument(t *testing.T) {
	doc := flow.Document{FactoryID: "F1", FactoryData: skeleton()}
	raw, err := bson.Marshal(newRecord(doc, time.Now()))
	if err != nil {
		t.Fatal(err)
	}
	var rec record
	if err := bson.Unmarshal(raw, &rec); err != nil {
		t.Fatal(err)
	}
	got, err := rec.document()
	if err != nil {
		t.Fatal(err)
	}
	if got.FactoryData.Fingerprint() != doc.FactoryData.Fingerprint() {
		t.Errorf("graph changed through bson: %+v", got.FactoryData)
	}
	if rec.FactoryData.Nodes[1].Type != "shopFloor" {
		t.Errorf("stored type = %q", rec.FactoryData.Nodes[1].Type)
	}
}

func TestStore(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ns := "factoryflow.flows"

	mt.Run("fetch found", func(mt *mtest.T) {
		doc := flow.Document{FactoryID: "F1", FactoryData: skeleton()}
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, stored(t, doc)))

		got, found, err := New(mt.Coll, nil).Fetch(context.Background(), "F1")
		if err != nil {
			mt.Fatal(err)
		}
		if !found || len(got.FactoryData.Nodes) != 2 || len(got.FactoryData.Edges) != 1 {
			mt.Errorf("found=%v doc=%+v", found, got)
		}
	})

	mt.Run("fetch missing", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		_, found, err := New(mt.Coll, nil).Fetch(context.Background(), "F1")
		if err != nil || found {
			mt.Errorf("found=%v err=%v", found, err)
		}
	})

	mt.Run("create", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		if err := New(mt.Coll, nil).Create(context.Background(), flow.Document{FactoryID: "F1", FactoryData: skeleton()}); err != nil {
			mt.Fatal(err)
		}
	})

	mt.Run("create conflict", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index: 0, Code: 11000, Message: "duplicate key error",
		}))

		err := New(mt.Coll, nil).Create(context.Background(), flow.Document{FactoryID: "F1"})
		if !errors.Is(err, ErrConflict) || apperr.GetCode(err) != apperr.ErrCodeConflict {
			mt.Errorf("err = %v, want ErrConflict", err)
		}
	})

	mt.Run("update", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 1},
		))

		if err := New(mt.Coll, nil).Update(context.Background(), flow.Document{FactoryID: "F1", FactoryData: skeleton()}); err != nil {
			mt.Fatal(err)
		}
	})

	mt.Run("update failure", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code: 91, Name: "ShutdownInProgress", Message: "shutting down",
		}))

		err := New(mt.Coll, nil).Update(context.Background(), flow.Document{FactoryID: "F1"})
		if apperr.GetCode(err) != apperr.ErrCodeNetwork {
			mt.Errorf("err = %v", err)
		}
	})

	mt.Run("list", func(mt *mtest.T) {
		first := mtest.CreateCursorResponse(1, ns, mtest.FirstBatch,
			bson.D{{Key: "factoryId", Value: "F1"}},
			bson.D{{Key: "factoryId", Value: "F2"}},
		)
		end := mtest.CreateCursorResponse(0, ns, mtest.NextBatch)
		mt.AddMockResponses(first, end)

		ids, err := New(mt.Coll, nil).List(context.Background())
		if err != nil {
			mt.Fatal(err)
		}
		if len(ids) != 2 || ids[0] != "F1" || ids[1] != "F2" {
			mt.Errorf("ids = %v", ids)
		}
	})
}

func TestConnectRequiresConfig(t *testing.T) {
	_, err := Connect(context.Background(), Config{URI: "mongodb://localhost:27017"}, nil)
	if apperr.GetCode(err) != apperr.ErrCodeInvalidConfig {
		t.Errorf("err = %v", err)
	}
}
