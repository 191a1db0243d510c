package logwriter

import (
	"fmt"
	"time"

	"go-elevator-logsim/pkg/eventbus"
)

// Log entry event types.
const (
	TypeStart        = "Start"
	TypeStatus       = "Status"
	TypeFloorAligned = "FloorAligned"
	TypeTrip         = "Trip"
	TypeRequest      = "Request" // used when a request carries no source tag
)

// Submitter accepts entries without blocking.
type Submitter interface {
	Submit(Entry)
}

// Recorder turns bus events into log entries.
// Recorder는 버스 이벤트를 로그 항목으로 변환하여 Writer에 제출합니다.
type Recorder struct {
	out Submitter
}

// NewRecorder creates a recorder submitting to out.
func NewRecorder(out Submitter) *Recorder {
	return &Recorder{out: out}
}

// Attach subscribes the recorder to bus.
func (r *Recorder) Attach(bus *eventbus.Bus) (detach func()) {
	return bus.Subscribe(r.Handle)
}

// Handle records ev if it maps to an entry.
func (r *Recorder) Handle(ev eventbus.Event) {
	if e, ok := EntryFromEvent(ev); ok {
		r.out.Submit(e)
	}
}

// EntryFromEvent maps an event to its persisted form. Position updates are
// not persisted.
func EntryFromEvent(ev eventbus.Event) (Entry, bool) {
	e := Entry{Timestamp: ev.Timestamp, Floor: ev.Floor}
	switch ev.Type {
	case eventbus.EventRequested:
		e.EventType = ev.Source
		if e.EventType == "" {
			e.EventType = TypeRequest
		}
		e.Status = fmt.Sprintf("Requested floor %d", ev.Floor)
	case eventbus.EventStatusChanged:
		e.EventType = TypeStatus
		e.Status = ev.Status
	case eventbus.EventFloorAligned:
		e.EventType = TypeFloorAligned
		e.Status = fmt.Sprintf("Aligned with F%d", ev.Floor)
	case eventbus.EventTripCompleted:
		e.EventType = TypeTrip
		e.Status = fmt.Sprintf("Completed trip in %.2fs", float64(ev.ElapsedMs)/1000)
		e.TravelMs = TravelMs(int(ev.ElapsedMs))
	default:
		return Entry{}, false
	}
	return e, true
}

// StartEntry is written once when the simulation boots.
func StartEntry(ts time.Time, floor int) Entry {
	return Entry{
		Timestamp: ts,
		EventType: TypeStart,
		Floor:     floor,
		Status:    "System started",
	}
}
