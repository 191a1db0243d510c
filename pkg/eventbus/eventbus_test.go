package eventbus

import (
	"testing"
)

func TestBus_PublishOrder(t *testing.T) {
	bus := New()

	var got []string
	bus.Subscribe(func(ev Event) { got = append(got, "a:"+ev.Status) })
	bus.Subscribe(func(ev Event) { got = append(got, "b:"+ev.Status) })

	bus.Publish(Event{Type: EventStatusChanged, Status: "one"})
	bus.Publish(Event{Type: EventStatusChanged, Status: "two"})

	want := []string{"a:one", "b:one", "a:two", "b:two"}
	if len(got) != len(want) {
		t.Fatalf("Expected %d deliveries, got %d (%v)", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Delivery %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestBus_Timestamp(t *testing.T) {
	bus := New()
	var ev Event
	bus.Subscribe(func(e Event) { ev = e })
	bus.Publish(Event{Type: EventCarMoved})
	if ev.Timestamp.IsZero() {
		t.Error("Expected Publish to stamp the event")
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := New()
	count := 0
	unsubscribe := bus.Subscribe(func(Event) { count++ })

	bus.Publish(Event{Type: EventCarMoved})
	unsubscribe()
	unsubscribe() // idempotent
	bus.Publish(Event{Type: EventCarMoved})

	if count != 1 {
		t.Errorf("Expected 1 delivery before unsubscribe, got %d", count)
	}
	if bus.Len() != 0 {
		t.Errorf("Expected no subscribers, got %d", bus.Len())
	}
}

func TestBus_ChannelOverflow(t *testing.T) {
	bus := New()
	ch, cancel := bus.Channel(2)
	defer cancel()

	for i := 0; i < 5; i++ {
		bus.Publish(Event{Type: EventFloorAligned, Floor: i + 1})
	}

	if bus.Dropped() != 3 {
		t.Errorf("Expected 3 dropped events, got %d", bus.Dropped())
	}
	first := <-ch
	second := <-ch
	if first.Floor != 1 || second.Floor != 2 {
		t.Errorf("Expected floors 1 and 2 to be buffered, got %d and %d", first.Floor, second.Floor)
	}
}

func TestBus_ChannelCancelCloses(t *testing.T) {
	bus := New()
	ch, cancel := bus.Channel(1)
	cancel()
	cancel()

	if _, ok := <-ch; ok {
		t.Error("Expected channel to be closed after cancel")
	}
	// Publishing after cancel must not panic on the closed channel.
	bus.Publish(Event{Type: EventCarMoved})
}
