// Package eventbus fans elevator notifications out to independent consumers.
// eventbus 패키지는 엘리베이터 알림을 여러 소비자(로그, 화면)에게 전달합니다.
package eventbus

import (
	"sync"
	"sync/atomic"
	"time"
)

// EventType represents the category of an elevator notification.
// EventType는 엘리베이터 알림의 카테고리를 나타냅니다.
type EventType string

const (
	EventStatusChanged EventType = "StatusChanged"
	EventFloorAligned  EventType = "FloorAligned"
	EventCarMoved      EventType = "CarMoved"
	EventTripCompleted EventType = "TripCompleted"
	EventRequested     EventType = "Requested"
)

// Event carries one state change of the car.
// Only the fields relevant to Type are set.
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`

	Status    string  `json:"status,omitempty"`    // StatusChanged
	Floor     int     `json:"floor"`               // aligned/requested floor, nearest floor otherwise
	Position  float64 `json:"position"`            // car position at emission time
	ElapsedMs int64   `json:"elapsedMs,omitempty"` // TripCompleted
	Source    string  `json:"source,omitempty"`    // Requested
}

// Handler consumes events synchronously, in publish order.
type Handler func(Event)

type subscriber struct {
	id      uint64
	handler Handler
}

// Bus is an explicit observer list.
// Bus는 명시적인 구독자 목록으로, 게시 순서대로 이벤트를 전달합니다.
type Bus struct {
	mu     sync.RWMutex
	subs   []subscriber
	nextID uint64

	dropped atomic.Uint64 // 채널 구독자 버퍼 초과로 버려진 이벤트 수
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{}
}

// Subscribe registers h and returns a function removing it again.
// Handlers run on the publisher's goroutine and must not block.
func (b *Bus) Subscribe(h Handler) (unsubscribe func()) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscriber{id: id, handler: h})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(id) })
	}
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s.id == id {
			// copy-on-write so a concurrent Publish keeps iterating its own slice
			subs := make([]subscriber, 0, len(b.subs)-1)
			subs = append(subs, b.subs[:i]...)
			b.subs = append(subs, b.subs[i+1:]...)
			return
		}
	}
}

// Publish delivers ev to every subscriber in subscription order.
func (b *Bus) Publish(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	b.mu.RLock()
	subs := b.subs
	b.mu.RUnlock()

	for _, s := range subs {
		s.handler(ev)
	}
}

// Channel subscribes a buffered channel to the bus.
// Sends never block the publisher: when the buffer is full the event is
// dropped and counted. The returned cancel function unsubscribes and closes
// the channel.
// Channel은 버퍼 채널 구독을 만듭니다. 버퍼가 가득 차면 이벤트를 버립니다.
func (b *Bus) Channel(buffer int) (<-chan Event, func()) {
	ch := make(chan Event, buffer)
	var mu sync.Mutex
	closed := false

	unsubscribe := b.Subscribe(func(ev Event) {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		select {
		case ch <- ev:
		default:
			b.dropped.Add(1)
		}
	})

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			unsubscribe()
			mu.Lock()
			closed = true
			close(ch)
			mu.Unlock()
		})
	}
	return ch, cancel
}

// Dropped returns the number of events lost to full channel subscribers.
func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}

// Len returns the current number of subscribers.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
