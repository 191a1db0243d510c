package mongolog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/x/mongo/driver/topology"

	"go-elevator-logsim/internal/logger"
	"go-elevator-logsim/pkg/logwriter"
)

func TestMain(m *testing.M) {
	logger.Configure(zerolog.Disabled)
	os.Exit(m.Run())
}

func TestToDocument_Shape(t *testing.T) {
	ts := time.Date(2024, 5, 1, 9, 30, 0, 0, time.FixedZone("KST", 9*3600))
	doc := toDocument(logwriter.Entry{
		Timestamp: ts,
		EventType: logwriter.TypeTrip,
		Floor:     3,
		Status:    "Completed trip in 1.50s",
		TravelMs:  logwriter.TravelMs(1500),
	})

	wantKeys := []string{FieldTimestamp, FieldEventType, FieldFloor, FieldStatus, FieldTravelMs}
	if len(doc) != len(wantKeys) {
		t.Fatalf("Expected %d fields, got %v", len(wantKeys), doc)
	}
	for i, k := range wantKeys {
		if doc[i].Key != k {
			t.Errorf("Field %d: expected %s, got %s", i, k, doc[i].Key)
		}
	}
	if got := doc[0].Value.(time.Time); !got.Equal(ts) || got.Location() != time.UTC {
		t.Errorf("Expected UTC timestamp, got %v", got)
	}
	if doc[4].Value != 1500 {
		t.Errorf("Expected TravelMs 1500, got %v", doc[4].Value)
	}

	// TravelMs is omitted when absent
	doc = toDocument(logwriter.Entry{Timestamp: ts, EventType: logwriter.TypeStatus, Floor: 1, Status: "Idle"})
	if len(doc) != 4 {
		t.Errorf("Expected 4 fields without TravelMs, got %v", doc)
	}
}

func TestDocument_RoundTrip(t *testing.T) {
	ts := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	raw, err := bson.Marshal(toDocument(logwriter.Entry{Timestamp: ts, EventType: "Hall", Floor: 2, Status: "Requested floor 2"}))
	if err != nil {
		t.Fatal(err)
	}
	var d document
	if err := bson.Unmarshal(raw, &d); err != nil {
		t.Fatal(err)
	}
	e := fromDocument(d)
	if !e.Timestamp.Equal(ts) || e.EventType != "Hall" || e.Floor != 2 || e.TravelMs != nil {
		t.Errorf("Unexpected entry: %+v", e)
	}
}

func TestClassify(t *testing.T) {
	generic := errors.New("E11000 duplicate key")
	tests := []struct {
		name        string
		err         error
		unavailable bool
	}{
		{"deadline", fmt.Errorf("write: %w", context.DeadlineExceeded), true},
		{"disconnected", mongo.ErrClientDisconnected, true},
		{"server selection", fmt.Errorf("insert: %w", topology.ServerSelectionError{Wrapped: errors.New("connection refused")}), true},
		{"look-alike text", errors.New("server selection error: not from the driver"), false},
		{"generic", generic, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.err)
			if errors.Is(got, logwriter.ErrSinkUnavailable) != tt.unavailable {
				t.Errorf("classify(%v) = %v, unavailable want %v", tt.err, got, tt.unavailable)
			}
		})
	}
	if classify(generic) != generic {
		t.Error("Expected generic errors to pass through unchanged")
	}
}

// TestStore_Integration runs against a real server when ELEVATOR_TEST_MONGO_URI is set.
func TestStore_Integration(t *testing.T) {
	uri := os.Getenv("ELEVATOR_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("ELEVATOR_TEST_MONGO_URI not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	s, err := Connect(ctx, Config{
		URI:            uri,
		Database:       "ElevatorTest",
		Collection:     "logs_" + uuid.NewString(),
		ConnectTimeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		_ = s.coll.Drop(ctx)
		_ = s.Close(ctx)
	}()
	if err := s.Ping(ctx); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}

	base := time.Now().UTC().Truncate(time.Millisecond)
	entries := []logwriter.Entry{
		{Timestamp: base, EventType: logwriter.TypeStatus, Floor: 1, Status: "Idle"},
		{Timestamp: base.Add(time.Second), EventType: logwriter.TypeTrip, Floor: 2, Status: "Completed trip in 1.00s", TravelMs: logwriter.TravelMs(1000)},
	}
	if err := s.InsertMany(ctx, entries); err != nil {
		t.Fatalf("InsertMany failed: %v", err)
	}

	got, err := s.FindAll(ctx)
	if err != nil {
		t.Fatalf("FindAll failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(got))
	}
	if got[0].EventType != logwriter.TypeTrip || got[0].TravelMs == nil || *got[0].TravelMs != 1000 {
		t.Errorf("Expected newest trip entry first, got %+v", got[0])
	}
	if !got[1].Timestamp.Equal(base) {
		t.Errorf("Expected %v, got %v", base, got[1].Timestamp)
	}
}

func TestStore_UnreachableIsUnavailable(t *testing.T) {
	if testing.Short() {
		t.Skip("dials a closed port")
	}
	ctx := context.Background()
	s, err := Connect(ctx, Config{
		URI:            "mongodb://127.0.0.1:1/?directConnection=true",
		Database:       "ElevatorTest",
		Collection:     "logs",
		ConnectTimeout: 200 * time.Millisecond,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close(ctx)

	err = s.InsertMany(ctx, []logwriter.Entry{{Timestamp: time.Now(), EventType: logwriter.TypeStatus, Status: "Idle"}})
	if !errors.Is(err, logwriter.ErrSinkUnavailable) {
		t.Errorf("Expected ErrSinkUnavailable, got %v", err)
	}
}
