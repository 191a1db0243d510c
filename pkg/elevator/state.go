package elevator

import (
	"fmt"
)

// State is the active behavioural state of the car.
// State는 엘리베이터의 현재 동작 상태입니다 (Idle, Moving, DoorOpen 중 하나).
type State int

const (
	StateIdle State = iota
	StateMoving
	StateDoorOpen
	numStates
)

func (s State) String() string {
	if s < 0 || s >= numStates {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return [...]string{"Idle", "Moving", "DoorOpen"}[s]
}

// MarshalText renders the state by name in JSON payloads.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name produced by MarshalText.
func (s *State) UnmarshalText(b []byte) error {
	for st := StateIdle; st < numStates; st++ {
		if st.String() == string(b) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown elevator state %q", b)
}

// Direction indicates the vertical movement vector.
// Direction은 수직 이동 벡터를 나타냅니다.
type Direction string

const (
	DirUp   Direction = "Up"
	DirDown Direction = "Down"
	DirNone Direction = "None"
)

// Status narration published on StatusChanged.
const (
	StatusIdle         = "Idle"
	StatusDoorsOpening = "Doors opening"
	StatusArrived      = "Arrived – Doors opening"
	StatusDoorsClosing = "Doors closing"
)

func movingStatus(source string, floor int) string {
	return fmt.Sprintf("Moving (%s) → Floor %d", source, floor)
}

// stateHandler is the behaviour of one state. Nil hooks are no-ops.
type stateHandler struct {
	enter   func(*Elevator)
	exit    func(*Elevator)
	request func(*Elevator, TripRequest)
	tick    func(*Elevator)
}

// handlers is filled in init to break the initialization cycle between the
// table and the methods that consult it.
var handlers [numStates]stateHandler

func init() {
	handlers = [numStates]stateHandler{
		StateIdle: {
			enter:   (*Elevator).enterIdle,
			request: (*Elevator).requestIdle,
		},
		StateMoving: {
			enter:   (*Elevator).enterMoving,
			exit:    (*Elevator).exitMoving,
			request: (*Elevator).enqueueRequest,
			tick:    (*Elevator).stepTowardsTarget,
		},
		StateDoorOpen: {
			enter:   (*Elevator).enterDoorOpen,
			exit:    (*Elevator).exitDoorOpen,
			request: (*Elevator).enqueueRequest,
		},
	}
}

// setState performs exit → switch → enter as one step on the scheduler goroutine.
func (e *Elevator) setState(next State) {
	prev := e.state
	if h := handlers[prev].exit; h != nil {
		h(e)
	}
	e.state = next
	e.logger.Debug().Stringer("from", prev).Stringer("to", next).Msg("State changed")
	if h := handlers[next].enter; h != nil {
		h(e)
	}
}

// --- Idle ---

func (e *Elevator) enterIdle() {
	e.announce(StatusIdle)
}

func (e *Elevator) requestIdle(r TripRequest) {
	if r.Floor == e.currentFloor {
		// zero-duration trip: doors open in place, no animation
		e.publishFloorAligned(e.currentFloor)
		e.announce(StatusDoorsOpening)
		e.setState(StateDoorOpen)
		return
	}
	e.beginTrip(r)
	e.setState(StateMoving)
}

// --- Moving ---

func (e *Elevator) enterMoving() {
	e.stopTicks = e.sched.Every(e.Config.TickInterval, e.tick)
}

func (e *Elevator) exitMoving() {
	if e.stopTicks != nil {
		e.stopTicks()
		e.stopTicks = nil
	}
}

// --- DoorOpen ---

func (e *Elevator) enterDoorOpen() {
	e.doorOpenedAt = e.sched.Now()
	e.cancelDwell = e.sched.After(e.Config.DwellTime, e.dwellExpired)
}

func (e *Elevator) exitDoorOpen() {
	if e.cancelDwell != nil {
		e.cancelDwell()
		e.cancelDwell = nil
	}
}

func (e *Elevator) dwellExpired() {
	if e.state != StateDoorOpen {
		return
	}
	e.announce(StatusDoorsClosing)
	if next, ok := e.queue.TryDequeueOldest(); ok {
		e.logger.Info().Int("floor", next.Floor).Str("source", next.Source).Int("waiting", e.queue.Len()).Msg("Serving queued request")
		e.beginTrip(next)
		e.setState(StateMoving)
		return
	}
	e.setState(StateIdle)
}

// enqueueRequest queues a request while the car is busy. Doors never reopen early,
// even for the current floor.
func (e *Elevator) enqueueRequest(r TripRequest) {
	e.queue.Enqueue(r)
	e.logger.Debug().Int("floor", r.Floor).Str("source", r.Source).Stringer("state", e.state).Int("waiting", e.queue.Len()).Msg("Request deferred")
}
