package elevator

import (
	"context"
	"sync"
	"time"
)

// ManualScheduler is a Scheduler driven by an explicit virtual clock.
// Nothing runs until Advance or Step is called, which makes the state
// machine fully deterministic in tests and offline replays.
// ManualScheduler는 가상 시계로 구동되는 스케줄러입니다 (테스트용).
type ManualScheduler struct {
	mu    sync.Mutex
	now   time.Time
	seq   uint64
	tasks []*manualTask
}

type manualTask struct {
	due      time.Time
	seq      uint64
	interval time.Duration // 0 for one-shot tasks
	run      func()
	dead     bool
}

// NewManualScheduler creates a scheduler whose clock starts at start.
func NewManualScheduler(start time.Time) *ManualScheduler {
	return &ManualScheduler{now: start}
}

func (s *ManualScheduler) add(delay, interval time.Duration, task func()) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	t := &manualTask{
		due:      s.now.Add(delay),
		seq:      s.seq,
		interval: interval,
		run:      task,
	}
	s.tasks = append(s.tasks, t)
	return func() {
		s.mu.Lock()
		t.dead = true
		s.mu.Unlock()
	}
}

// Every implements Scheduler.
func (s *ManualScheduler) Every(interval time.Duration, task func()) func() {
	return s.add(interval, interval, task)
}

// After implements Scheduler.
func (s *ManualScheduler) After(delay time.Duration, task func()) func() {
	return s.add(delay, 0, task)
}

// Now implements Scheduler.
func (s *ManualScheduler) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// Do runs task inline. The caller is the goroutine driving the clock.
func (s *ManualScheduler) Do(task func()) {
	task()
}

// Call runs task inline.
func (s *ManualScheduler) Call(ctx context.Context, task func()) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	task()
	return nil
}

// Pending reports the number of live tasks.
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.compact()
	return len(s.tasks)
}

func (s *ManualScheduler) compact() {
	live := s.tasks[:0]
	for _, t := range s.tasks {
		if !t.dead {
			live = append(live, t)
		}
	}
	for i := len(live); i < len(s.tasks); i++ {
		s.tasks[i] = nil
	}
	s.tasks = live
}

// next pops the earliest live task due at or before limit.
func (s *ManualScheduler) next(limit time.Time) *manualTask {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.compact()

	var best *manualTask
	for _, t := range s.tasks {
		if t.due.After(limit) {
			continue
		}
		if best == nil || t.due.Before(best.due) || (t.due.Equal(best.due) && t.seq < best.seq) {
			best = t
		}
	}
	if best == nil {
		return nil
	}
	s.now = best.due
	if best.interval > 0 {
		best.due = best.due.Add(best.interval)
	} else {
		best.dead = true
	}
	return best
}

// Advance moves the clock forward by d, running every task that falls due,
// in time order. Tasks scheduled while advancing run too if they are due.
// It returns the number of tasks run.
func (s *ManualScheduler) Advance(d time.Duration) int {
	s.mu.Lock()
	limit := s.now.Add(d)
	s.mu.Unlock()

	n := 0
	for {
		t := s.next(limit)
		if t == nil {
			break
		}
		t.run()
		n++
	}

	s.mu.Lock()
	s.now = limit
	s.mu.Unlock()
	return n
}

// Step runs the single earliest pending task, moving the clock to its due
// time. It returns false when nothing is scheduled.
func (s *ManualScheduler) Step() bool {
	t := s.next(time.Unix(1<<62, 0))
	if t == nil {
		return false
	}
	t.run()
	return true
}
