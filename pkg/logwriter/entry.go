package logwriter

import (
	"context"
	"errors"
	"time"
)

// Entry is one append-only fact about a state transition.
// Entry는 상태 전이를 기록하는 불변 로그 항목입니다.
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	EventType string    `json:"eventType"`
	Floor     int       `json:"floor"`
	Status    string    `json:"status"`
	TravelMs  *int      `json:"travelMs,omitempty"`
}

// TravelMs returns a pointer suitable for Entry.TravelMs.
func TravelMs(ms int) *int {
	return &ms
}

// ErrSinkUnavailable marks connectivity failures. Sinks wrap their transport
// errors with it so the writer can back off instead of retrying at once.
var ErrSinkUnavailable = errors.New("log sink unavailable")

// Sink is the persistent store behind the writer.
type Sink interface {
	// InsertMany writes entries in order as one bulk operation.
	InsertMany(ctx context.Context, entries []Entry) error
	// FindAll returns every stored entry, newest first.
	FindAll(ctx context.Context) ([]Entry, error)
}
