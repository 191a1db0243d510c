package elevator

import (
	"context"
	"sync/atomic"
	"time"
)

// Scheduler is the only source of time for the state machine.
// Every task it runs must be executed sequentially, never concurrently with
// another task, so state handlers need no locking.
// Scheduler는 상태 머신의 유일한 시간 공급원입니다. 모든 작업은 순차적으로 실행됩니다.
type Scheduler interface {
	// Every runs task repeatedly every interval until stop is called.
	Every(interval time.Duration, task func()) (stop func())
	// After runs task once after delay unless cancel is called first.
	After(delay time.Duration, task func()) (cancel func())
	// Now returns the scheduler clock.
	Now() time.Time
}

// Executor is a Scheduler that also accepts work from other goroutines.
type Executor interface {
	Scheduler
	// Do runs task on the scheduler without waiting for it.
	Do(task func())
	// Call runs task on the scheduler and waits for it to finish.
	Call(ctx context.Context, task func()) error
}

var (
	_ Executor = (*Loop)(nil)
	_ Executor = (*ManualScheduler)(nil)
)

// Loop is the realtime Scheduler: one goroutine executes ticks, timer expiry
// and externally posted work in arrival order.
// Loop는 실시간 스케줄러로, 하나의 고루틴이 모든 작업을 직렬로 실행합니다.
type Loop struct {
	tasks chan func()
	done  chan struct{}
}

// NewLoop creates a loop whose inbox holds up to buffer pending tasks.
func NewLoop(buffer int) *Loop {
	if buffer <= 0 {
		buffer = 256
	}
	return &Loop{
		tasks: make(chan func(), buffer),
		done:  make(chan struct{}),
	}
}

// Run executes posted tasks until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	defer close(l.done)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case task := <-l.tasks:
			task()
		}
	}
}

// Do posts task to the loop. It blocks only while the inbox is full and
// gives up once the loop has stopped.
func (l *Loop) Do(task func()) {
	select {
	case l.tasks <- task:
	case <-l.done:
	}
}

// Call runs task on the loop and waits for it to finish.
func (l *Loop) Call(ctx context.Context, task func()) error {
	finished := make(chan struct{})
	wrapped := func() {
		defer close(finished)
		task()
	}
	select {
	case l.tasks <- wrapped:
	case <-l.done:
		return context.Canceled
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-finished:
		return nil
	case <-l.done:
		return context.Canceled
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Every implements Scheduler. The ticker goroutine only posts; the task
// itself runs on the loop.
func (l *Loop) Every(interval time.Duration, task func()) func() {
	var stopped atomic.Bool
	quit := make(chan struct{})

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-quit:
				return
			case <-l.done:
				return
			case <-ticker.C:
				l.Do(func() {
					// ticks already in the inbox when stop was called are discarded
					if !stopped.Load() {
						task()
					}
				})
			}
		}
	}()

	return func() {
		if stopped.CompareAndSwap(false, true) {
			close(quit)
		}
	}
}

// After implements Scheduler.
func (l *Loop) After(delay time.Duration, task func()) func() {
	var cancelled atomic.Bool
	timer := time.AfterFunc(delay, func() {
		l.Do(func() {
			if !cancelled.Load() {
				task()
			}
		})
	})
	return func() {
		cancelled.Store(true)
		timer.Stop()
	}
}

// Now implements Scheduler.
func (l *Loop) Now() time.Time {
	return time.Now()
}
