// Package mongostore is a [persist.DocumentStore] backed by MongoDB.
//
// Documents are kept one per factory in a collection (default "flows"),
// keyed by a unique index on factoryId. Nodes are stored in their react-flow
// encoding so the collection stays readable by other tools:
//
//	{
//	  "factoryId": "F1",
//	  "factoryData": {"nodes": [...], "edges": [...]},
//	  "createdAt": ISODate(...),
//	  "updatedAt": ISODate(...)
//	}
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	apperr "github.com/matzehuels/factoryflow/pkg/errors"
	"github.com/matzehuels/factoryflow/pkg/flow"
	"github.com/matzehuels/factoryflow/pkg/persist"
)

// DefaultCollection is the collection used by [Connect].
const DefaultCollection = "flows"

// ErrConflict is returned by Create when the factory already has a document.
var ErrConflict = errors.New("document already exists")

// Store reads and writes flow documents.
type Store struct {
	client *mongo.Client // nil when the collection was supplied by the caller
	coll   *mongo.Collection
	now    func() time.Time
	logger *log.Logger
}

var _ persist.DocumentStore = (*Store)(nil)

// Config names the database to connect to.
type Config struct {
	URI        string
	Database   string
	Collection string // DefaultCollection when empty
	Timeout    time.Duration
}

// Connect dials MongoDB, pings it and ensures the factoryId index.
func Connect(ctx context.Context, cfg Config, logger *log.Logger) (*Store, error) {
	if cfg.URI == "" || cfg.Database == "" {
		return nil, apperr.New(apperr.ErrCodeInvalidConfig, "mongo uri and database are required")
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetTimeout(cfg.Timeout).
		SetBSONOptions(&options.BSONOptions{DefaultDocumentM: true})
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrCodeNetwork, err, "connect to mongo")
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, apperr.Wrap(apperr.ErrCodeNetwork, err, "ping mongo")
	}

	s := New(client.Database(cfg.Database).Collection(cfg.Collection), logger)
	s.client = client
	if err := s.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

// New wraps an existing collection. Close does not disconnect its client.
func New(coll *mongo.Collection, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Store{coll: coll, now: time.Now, logger: logger}
}

// EnsureIndexes creates the unique factoryId index.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "factoryId", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("factoryId_unique"),
	})
	if err != nil {
		return apperr.Wrap(apperr.ErrCodeInternal, err, "create factoryId index")
	}
	return nil
}

// Fetch returns the document of factoryID. found is false when none exists.
func (s *Store) Fetch(ctx context.Context, factoryID string) (flow.Document, bool, error) {
	var rec record
	err := s.coll.FindOne(ctx, bson.M{"factoryId": factoryID}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return flow.Document{}, false, nil
	}
	if err != nil {
		return flow.Document{}, false, wrap(err, "find %s", factoryID)
	}
	doc, err := rec.document()
	if err != nil {
		return flow.Document{}, false, apperr.Wrap(apperr.ErrCodeInvalidGraph, err, "decode %s", factoryID)
	}
	return doc, true, nil
}

// Create inserts a new document. It fails with [ErrConflict] when the
// factory already has one.
func (s *Store) Create(ctx context.Context, doc flow.Document) error {
	now := s.now().UTC()
	rec := newRecord(doc, now)
	rec.CreatedAt = now
	if _, err := s.coll.InsertOne(ctx, rec); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperr.Wrap(apperr.ErrCodeConflict, fmt.Errorf("%w: %s", ErrConflict, doc.FactoryID), "create %s", doc.FactoryID)
		}
		return wrap(err, "insert %s", doc.FactoryID)
	}
	s.logger.Debug("document created", "factory", doc.FactoryID, "nodes", len(doc.FactoryData.Nodes))
	return nil
}

// Update replaces the graph of doc.FactoryID, inserting the document when
// it does not exist yet.
func (s *Store) Update(ctx context.Context, doc flow.Document) error {
	now := s.now().UTC()
	rec := newRecord(doc, now)
	update := bson.M{
		"$set":         bson.M{"factoryData": rec.FactoryData, "updatedAt": now},
		"$setOnInsert": bson.M{"createdAt": now},
	}
	res, err := s.coll.UpdateOne(ctx, bson.M{"factoryId": doc.FactoryID}, update, options.Update().SetUpsert(true))
	if err != nil {
		return wrap(err, "update %s", doc.FactoryID)
	}
	s.logger.Debug("document updated", "factory", doc.FactoryID, "matched", res.MatchedCount, "upserted", res.UpsertedCount)
	return nil
}

// Delete removes the document of factoryID. Deleting a missing document is
// not an error.
func (s *Store) Delete(ctx context.Context, factoryID string) error {
	if _, err := s.coll.DeleteOne(ctx, bson.M{"factoryId": factoryID}); err != nil {
		return wrap(err, "delete %s", factoryID)
	}
	return nil
}

// List returns the ids of every stored factory.
func (s *Store) List(ctx context.Context) ([]string, error) {
	cur, err := s.coll.Find(ctx, bson.M{}, options.Find().
		SetProjection(bson.M{"factoryId": 1}).
		SetSort(bson.D{{Key: "factoryId", Value: 1}}))
	if err != nil {
		return nil, wrap(err, "list")
	}
	defer cur.Close(ctx)

	var ids []string
	for cur.Next(ctx) {
		var rec struct {
			FactoryID string `bson:"factoryId"`
		}
		if err := cur.Decode(&rec); err != nil {
			return nil, wrap(err, "decode")
		}
		ids = append(ids, rec.FactoryID)
	}
	if err := cur.Err(); err != nil {
		return nil, wrap(err, "list")
	}
	return ids, nil
}

// Close disconnects the client opened by [Connect].
func (s *Store) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}

func wrap(err error, format string, args ...any) error {
	code := apperr.ErrCodeNetwork
	if errors.Is(err, context.DeadlineExceeded) || mongo.IsTimeout(err) {
		code = apperr.ErrCodeTimeout
	}
	return apperr.Wrap(code, err, format, args...)
}
