// Package elevator implements a single-car elevator state machine.
// 이 패키지는 단일 엘리베이터의 상태 머신(Idle, Moving, DoorOpen)을 구현합니다.
// 요청은 FIFO 큐에 보관되며, 모든 상태 변화는 이벤트 버스로 전파됩니다.
//
// An Elevator is not safe for concurrent use: every method, tick and timer
// callback must run on its Scheduler's goroutine (see Loop.Do and Loop.Call).
package elevator

import (
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
	"github.com/tiendc/go-deepcopy"

	"go-elevator-logsim/internal/logger"
	"go-elevator-logsim/pkg/eventbus"
)

const (
	DefaultTickInterval = 16 * time.Millisecond  // ~60 steps per second
	DefaultDwellTime    = 800 * time.Millisecond // door-open dwell
	DefaultFloorSpacing = 3.0
)

// Config holds immutable configuration parameters.
// Config는 시스템 시작 시 설정되며, 런타임 중에 변경되지 않습니다.
type Config struct {
	ID             string
	Floors         int           // 층 수 N (>= 2)
	StartFloor     int           // 초기 층 (1..N)
	FloorPositions []float64     // 층별 수직 위치, index 0 = 1층 (비어 있으면 FloorSpacing 간격)
	FloorSpacing   float64       // 층 간 거리
	SpeedPerTick   float64       // 틱당 이동 거리
	TickInterval   time.Duration // 애니메이션 틱 간격
	DwellTime      time.Duration // 문 열림 유지 시간
}

// Elevator is the state machine context.
// Elevator는 상태 머신의 컨텍스트로, 현재 층, 목표 층, 카 위치와 대기 큐를 소유합니다.
type Elevator struct {
	Config Config

	positions []float64 // index 1..N, index 0 unused
	sched     Scheduler
	bus       *eventbus.Bus
	logger    zerolog.Logger

	// --- State ---
	state        State
	currentFloor int
	targetFloor  int
	carPosition  float64
	queue        RequestQueue

	// --- Timing ---
	tripStart    time.Time
	doorOpenedAt time.Time
	stopTicks    func()
	cancelDwell  func()
}

// New validates config and returns an Idle elevator parked at StartFloor.
// 잘못된 설정이 감지되면 즉시 에러를 반환합니다 (Fail Fast).
func New(config Config, sched Scheduler, bus *eventbus.Bus) (*Elevator, error) {
	if sched == nil {
		return nil, fmt.Errorf("invalid config: scheduler is required")
	}
	if config.Floors < 2 {
		return nil, fmt.Errorf("invalid config: requires at least 2 floors, got %d", config.Floors)
	}
	if config.StartFloor == 0 {
		config.StartFloor = 1
	}
	if config.StartFloor < 1 || config.StartFloor > config.Floors {
		return nil, fmt.Errorf("invalid config: start floor %d outside 1..%d", config.StartFloor, config.Floors)
	}
	if config.SpeedPerTick <= 0 || math.IsNaN(config.SpeedPerTick) || math.IsInf(config.SpeedPerTick, 0) {
		return nil, fmt.Errorf("invalid config: speed per tick must be positive, got %v", config.SpeedPerTick)
	}
	if config.TickInterval <= 0 {
		config.TickInterval = DefaultTickInterval
	}
	if config.DwellTime <= 0 {
		config.DwellTime = DefaultDwellTime
	}
	if config.FloorSpacing <= 0 {
		config.FloorSpacing = DefaultFloorSpacing
	}

	positions, err := floorPositions(config)
	if err != nil {
		return nil, err
	}
	config.FloorPositions = append([]float64(nil), positions[1:]...)

	if bus == nil {
		bus = eventbus.New()
	}

	id := config.ID
	if id == "" {
		id = "car"
	}

	e := &Elevator{
		Config:       config,
		positions:    positions,
		sched:        sched,
		bus:          bus,
		logger:       logger.Component("elevator").With().Str("id", id).Logger(),
		state:        StateIdle,
		currentFloor: config.StartFloor,
		targetFloor:  config.StartFloor,
		carPosition:  positions[config.StartFloor],
	}

	e.logger.Info().
		Int("floors", config.Floors).
		Int("start_floor", config.StartFloor).
		Float64("speed_per_tick", config.SpeedPerTick).
		Dur("dwell", config.DwellTime).
		Msg("Elevator initialized")

	handlers[StateIdle].enter(e)
	return e, nil
}

// floorPositions returns the 1-indexed position table.
func floorPositions(config Config) ([]float64, error) {
	positions := make([]float64, config.Floors+1)
	if len(config.FloorPositions) == 0 {
		for f := 1; f <= config.Floors; f++ {
			positions[f] = float64(f-1) * config.FloorSpacing
		}
		return positions, nil
	}

	if len(config.FloorPositions) != config.Floors {
		return nil, fmt.Errorf("invalid config: %d floor positions for %d floors", len(config.FloorPositions), config.Floors)
	}
	for i, p := range config.FloorPositions {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return nil, fmt.Errorf("invalid config: floor %d position %v", i+1, p)
		}
		if i > 0 && p <= config.FloorPositions[i-1] {
			return nil, fmt.Errorf("invalid config: floor %d position %v not above floor %d", i+1, p, i)
		}
		positions[i+1] = p
	}
	return positions, nil
}

// RequestFloor is the only externally triggered operation. Floors outside
// 1..N are ignored without an event.
// RequestFloor는 층 요청을 받아 현재 상태의 핸들러로 전달합니다.
func (e *Elevator) RequestFloor(floor int, source string) {
	if floor < 1 || floor > e.Config.Floors {
		e.logger.Debug().Int("floor", floor).Str("source", source).Msg("Request ignored: floor out of range")
		return
	}

	r := TripRequest{Floor: floor, Source: source}
	e.logger.Info().Int("floor", floor).Str("source", source).Stringer("state", e.state).Msg("Floor requested")
	handlers[e.state].request(e, r)
	// published after arbitration so the resulting status change is logged first
	e.publish(eventbus.Event{Type: eventbus.EventRequested, Floor: floor, Source: source})
}

func (e *Elevator) tick() {
	if h := handlers[e.state].tick; h != nil {
		h(e)
	}
}

// beginTrip starts timing a trip to r.Floor. The caller switches to Moving.
func (e *Elevator) beginTrip(r TripRequest) {
	e.targetFloor = r.Floor
	e.tripStart = e.sched.Now()
	e.announce(movingStatus(r.Source, r.Floor))
}

// stepTowardsTarget advances the car one tick, clamped to the target.
func (e *Elevator) stepTowardsTarget() {
	target := e.positions[e.targetFloor]
	speed := e.Config.SpeedPerTick

	if e.carPosition < target {
		e.carPosition = math.Min(target, e.carPosition+speed)
	} else if e.carPosition > target {
		e.carPosition = math.Max(target, e.carPosition-speed)
	}
	e.publish(eventbus.Event{Type: eventbus.EventCarMoved})

	if e.carPosition == target {
		e.arrive()
	}
}

// arrive handles the completion of a trip.
// arrive는 목표 층 도착 시 이동 시간 측정을 종료하고 문을 엽니다.
func (e *Elevator) arrive() {
	elapsed := e.sched.Now().Sub(e.tripStart).Milliseconds()
	e.currentFloor = e.targetFloor

	e.logger.Info().Int("floor", e.currentFloor).Int64("travel_ms", elapsed).Msg("Arrived at floor")
	e.publishFloorAligned(e.currentFloor)
	e.publish(eventbus.Event{Type: eventbus.EventTripCompleted, Floor: e.currentFloor, ElapsedMs: elapsed})
	e.announce(StatusArrived)
	e.setState(StateDoorOpen)
}

// --- Publishing ---

func (e *Elevator) publish(ev eventbus.Event) {
	ev.Timestamp = e.sched.Now()
	ev.Position = e.carPosition
	if ev.Floor == 0 {
		ev.Floor = e.nearestFloor()
	}
	e.bus.Publish(ev)
}

func (e *Elevator) announce(status string) {
	e.publish(eventbus.Event{Type: eventbus.EventStatusChanged, Status: status})
}

func (e *Elevator) publishFloorAligned(floor int) {
	e.publish(eventbus.Event{Type: eventbus.EventFloorAligned, Floor: floor})
}

// nearestFloor is currentFloor while stationary and the closest floor to
// the interpolated position while moving.
func (e *Elevator) nearestFloor() int {
	if e.state != StateMoving {
		return e.currentFloor
	}
	best, bestDist := e.currentFloor, math.Inf(1)
	for f := 1; f <= e.Config.Floors; f++ {
		if d := math.Abs(e.carPosition - e.positions[f]); d < bestDist {
			best, bestDist = f, d
		}
	}
	return best
}

// --- Accessors ---

// State returns the active state.
func (e *Elevator) State() State { return e.state }

// CurrentFloor returns the last floor the car stood at.
func (e *Elevator) CurrentFloor() int { return e.currentFloor }

// TargetFloor returns the destination of the current or last trip.
func (e *Elevator) TargetFloor() int { return e.targetFloor }

// CarPosition returns the continuous car position.
func (e *Elevator) CarPosition() float64 { return e.carPosition }

// QueueLen returns the number of deferred requests.
func (e *Elevator) QueueLen() int { return e.queue.Len() }

// FloorPosition returns the fixed position of floor f.
func (e *Elevator) FloorPosition(f int) (float64, bool) {
	if f < 1 || f > e.Config.Floors {
		return 0, false
	}
	return e.positions[f], true
}

// Bus returns the bus the elevator publishes on.
func (e *Elevator) Bus() *eventbus.Bus { return e.bus }

// Snapshot is a detached copy of the elevator state.
type Snapshot struct {
	ID             string        `json:"id"`
	State          State         `json:"state"`
	CurrentFloor   int           `json:"currentFloor"`
	TargetFloor    int           `json:"targetFloor"`
	NearestFloor   int           `json:"nearestFloor"`
	CarPosition    float64       `json:"carPosition"`
	Direction      Direction     `json:"direction"`
	Queue          []TripRequest `json:"queue"`
	FloorPositions []float64     `json:"floorPositions"`
	DoorOpenSince  *time.Time    `json:"doorOpenSince,omitempty"`
}

// Snapshot returns a deep copy of the current state, safe to hand to other
// goroutines.
// Snapshot은 다른 고루틴에 전달해도 안전한 상태 복사본을 반환합니다.
func (e *Elevator) Snapshot() Snapshot {
	view := Snapshot{
		ID:             e.Config.ID,
		State:          e.state,
		CurrentFloor:   e.currentFloor,
		TargetFloor:    e.targetFloor,
		NearestFloor:   e.nearestFloor(),
		CarPosition:    e.carPosition,
		Direction:      e.direction(),
		Queue:          e.queue.items[e.queue.head:],
		FloorPositions: e.positions[1:],
	}
	var snap Snapshot
	if err := deepcopy.Copy(&snap, &view); err != nil {
		e.logger.Error().Err(err).Msg("Snapshot copy failed")
		snap = view
		snap.Queue = e.queue.Items()
		snap.FloorPositions = append([]float64(nil), e.positions[1:]...)
	}
	if snap.Queue == nil {
		snap.Queue = []TripRequest{}
	}
	if e.state == StateDoorOpen {
		since := e.doorOpenedAt
		snap.DoorOpenSince = &since
	}
	return snap
}

func (e *Elevator) direction() Direction {
	if e.state != StateMoving {
		return DirNone
	}
	target := e.positions[e.targetFloor]
	switch {
	case target > e.carPosition:
		return DirUp
	case target < e.carPosition:
		return DirDown
	}
	return DirNone
}
