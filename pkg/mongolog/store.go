// Package mongolog stores log entries in a MongoDB collection.
// mongolog 패키지는 로그 항목을 MongoDB 컬렉션에 저장합니다.
package mongolog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/x/mongo/driver/topology"

	"go-elevator-logsim/internal/logger"
	"go-elevator-logsim/pkg/logwriter"
)

// Document field names.
const (
	FieldTimestamp = "Timestamp"
	FieldEventType = "EventType"
	FieldFloor     = "Floor"
	FieldStatus    = "Status"
	FieldTravelMs  = "TravelMs"
)

// Config selects the collection.
type Config struct {
	URI            string
	Database       string
	Collection     string
	ConnectTimeout time.Duration // server selection timeout
}

// Store is a logwriter.Sink backed by one collection.
type Store struct {
	client *mongo.Client
	coll   *mongo.Collection
	logger zerolog.Logger
}

var _ logwriter.Sink = (*Store)(nil)

// document is the decoded form of a stored entry.
type document struct {
	Timestamp time.Time `bson:"Timestamp"`
	EventType string    `bson:"EventType"`
	Floor     int       `bson:"Floor"`
	Status    string    `bson:"Status"`
	TravelMs  *int      `bson:"TravelMs,omitempty"`
}

// Connect creates the client. The driver connects lazily, so an unreachable
// server is only detected by Ping or the first write.
func Connect(ctx context.Context, cfg Config) (*Store, error) {
	opts := options.Client().ApplyURI(cfg.URI)
	if cfg.ConnectTimeout > 0 {
		opts.SetServerSelectionTimeout(cfg.ConnectTimeout).SetConnectTimeout(cfg.ConnectTimeout)
	}
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect %s: %w", cfg.URI, err)
	}
	return &Store{
		client: client,
		coll:   client.Database(cfg.Database).Collection(cfg.Collection),
		logger: logger.Component("mongolog").With().
			Str("db", cfg.Database).
			Str("collection", cfg.Collection).
			Logger(),
	}, nil
}

// Ping checks that the primary is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		return classify(err)
	}
	return nil
}

// InsertMany writes entries as one ordered bulk write.
func (s *Store) InsertMany(ctx context.Context, entries []logwriter.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	models := make([]mongo.WriteModel, 0, len(entries))
	for _, e := range entries {
		models = append(models, mongo.NewInsertOneModel().SetDocument(toDocument(e)))
	}
	res, err := s.coll.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(true))
	if err != nil {
		return classify(err)
	}
	s.logger.Debug().Int64("inserted", res.InsertedCount).Msg("Bulk write done")
	return nil
}

// FindAll returns every entry, newest first.
func (s *Store) FindAll(ctx context.Context) ([]logwriter.Entry, error) {
	opts := options.Find().SetSort(bson.D{{Key: FieldTimestamp, Value: -1}})
	cur, err := s.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, classify(err)
	}
	var docs []document
	if err := cur.All(ctx, &docs); err != nil {
		return nil, classify(err)
	}
	entries := make([]logwriter.Entry, len(docs))
	for i, d := range docs {
		entries[i] = fromDocument(d)
	}
	return entries, nil
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func toDocument(e logwriter.Entry) bson.D {
	doc := bson.D{
		{Key: FieldTimestamp, Value: e.Timestamp.UTC()},
		{Key: FieldEventType, Value: e.EventType},
		{Key: FieldFloor, Value: e.Floor},
		{Key: FieldStatus, Value: e.Status},
	}
	if e.TravelMs != nil {
		doc = append(doc, bson.E{Key: FieldTravelMs, Value: *e.TravelMs})
	}
	return doc
}

func fromDocument(d document) logwriter.Entry {
	return logwriter.Entry{
		Timestamp: d.Timestamp,
		EventType: d.EventType,
		Floor:     d.Floor,
		Status:    d.Status,
		TravelMs:  d.TravelMs,
	}
}

// classify marks connectivity failures with logwriter.ErrSinkUnavailable.
func classify(err error) error {
	if isUnavailable(err) {
		return fmt.Errorf("%w: %v", logwriter.ErrSinkUnavailable, err)
	}
	return err
}

func isUnavailable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, mongo.ErrClientDisconnected),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return true
	case mongo.IsNetworkError(err), mongo.IsTimeout(err):
		return true
	}
	var sse topology.ServerSelectionError
	return errors.As(err, &sse)
}
