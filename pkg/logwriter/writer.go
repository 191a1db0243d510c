// Package logwriter persists state-change entries asynchronously.
// logwriter 패키지는 상태 변경 로그를 비동기로 일괄 저장합니다.
// Submit은 절대 블록되지 않으며, 저장소 장애는 호출자에게 전파되지 않습니다.
package logwriter

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"go-elevator-logsim/internal/logger"
)

// Config holds the flush loop tunables.
type Config struct {
	BatchSize       int           // 한 번의 bulk write 최대 항목 수
	IdleInterval    time.Duration // 큐가 비었을 때 대기
	BackoffInterval time.Duration // 연결 장애 시 대기
	RetryInterval   time.Duration // 기타 장애 또는 저장소 미설정 시 대기
	WriteTimeout    time.Duration // bulk write 하나의 제한 시간
}

// DefaultConfig returns the production timings.
func DefaultConfig() Config {
	return Config{
		BatchSize:       32,
		IdleInterval:    100 * time.Millisecond,
		BackoffInterval: time.Second,
		RetryInterval:   300 * time.Millisecond,
		WriteTimeout:    5 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.BatchSize <= 0 {
		c.BatchSize = d.BatchSize
	}
	if c.IdleInterval <= 0 {
		c.IdleInterval = d.IdleInterval
	}
	if c.BackoffInterval <= 0 {
		c.BackoffInterval = d.BackoffInterval
	}
	if c.RetryInterval <= 0 {
		c.RetryInterval = d.RetryInterval
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = d.WriteTimeout
	}
	return c
}

// Stats is a diagnostic snapshot of the writer.
type Stats struct {
	Healthy bool   `json:"healthy"`
	Pending int    `json:"pending"`
	Written uint64 `json:"written"`
	Dropped uint64 `json:"dropped"`
}

// Writer buffers entries in memory and drains them to a Sink from one
// background goroutine, one batch at a time.
// Writer는 항목을 메모리에 버퍼링하고, 하나의 백그라운드 고루틴이 배치 단위로 저장합니다.
type Writer struct {
	sink   Sink
	cfg    Config
	queue  entryQueue
	logger zerolog.Logger

	healthy  atomic.Bool
	stopping atomic.Bool
	started  atomic.Bool
	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}

	written atomic.Uint64
	dropped atomic.Uint64
}

// New creates a writer. A nil sink is allowed: entries are then accepted and
// kept in memory, and the writer reports itself unhealthy.
func New(sink Sink, cfg Config) *Writer {
	w := &Writer{
		sink:   sink,
		cfg:    cfg.withDefaults(),
		logger: logger.Component("logwriter"),
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
	w.healthy.Store(sink != nil)
	if sink == nil {
		w.logger.Warn().Msg("No log sink configured: entries stay in memory")
	}
	return w
}

// Start launches the flush loop. Calling it more than once has no effect.
func (w *Writer) Start() {
	if !w.started.CompareAndSwap(false, true) {
		return
	}
	w.logger.Info().
		Int("batch_size", w.cfg.BatchSize).
		Dur("idle", w.cfg.IdleInterval).
		Dur("backoff", w.cfg.BackoffInterval).
		Msg("Log writer started")
	go w.run()
}

// Submit buffers e. It never blocks on the sink and never fails, whatever
// the health of the writer.
func (w *Writer) Submit(e Entry) {
	w.queue.push(e)
}

// Healthy reports whether the sink was reachable at the last attempt.
// It is diagnostic only and does not gate Submit.
func (w *Writer) Healthy() bool {
	return w.healthy.Load()
}

// MarkUnhealthy records a failure observed outside the flush loop, such as a
// failed startup ping.
func (w *Writer) MarkUnhealthy(err error) {
	if w.healthy.Swap(false) {
		w.logger.Warn().Err(err).Msg("Log sink marked unhealthy")
	}
}

// Pending returns the number of buffered entries.
func (w *Writer) Pending() int {
	return w.queue.len()
}

// Written returns the number of entries accepted by the sink.
func (w *Writer) Written() uint64 { return w.written.Load() }

// Dropped returns the number of entries lost to failed flushes.
func (w *Writer) Dropped() uint64 { return w.dropped.Load() }

// Stats returns the current counters.
func (w *Writer) Stats() Stats {
	return Stats{
		Healthy: w.Healthy(),
		Pending: w.Pending(),
		Written: w.Written(),
		Dropped: w.Dropped(),
	}
}

// Stop asks the loop to exit after its current iteration and waits for it.
// A flush already in progress is allowed to finish; entries still buffered
// are discarded.
func (w *Writer) Stop() {
	w.stopOnce.Do(func() {
		w.stopping.Store(true)
		close(w.stopCh)
	})
	if w.started.Load() {
		<-w.done
	}
	if n := w.Pending(); n > 0 {
		w.logger.Warn().Int("discarded", n).Msg("Log writer stopped with buffered entries")
	}
}

// FetchAll reads the sink directly, bypassing the buffer, newest first.
// Any failure yields an empty result.
func (w *Writer) FetchAll(ctx context.Context) []Entry {
	if w.sink == nil {
		return []Entry{}
	}
	entries, err := w.sink.FindAll(ctx)
	if err != nil {
		w.logger.Warn().Err(err).Msg("FetchAll failed")
		return []Entry{}
	}
	if entries == nil {
		entries = []Entry{}
	}
	return entries
}

func (w *Writer) run() {
	defer close(w.done)
	for !w.stopping.Load() {
		w.iterate()
	}
	w.logger.Info().Uint64("written", w.written.Load()).Uint64("dropped", w.dropped.Load()).Msg("Log writer stopped")
}

// iterate performs one pass of the flush loop.
func (w *Writer) iterate() {
	if w.sink == nil {
		w.sleep(w.cfg.RetryInterval)
		return
	}

	batch := w.queue.popN(w.cfg.BatchSize)
	if len(batch) == 0 {
		w.sleep(w.cfg.IdleInterval)
		return
	}

	err := w.flush(batch)
	if err == nil {
		w.written.Add(uint64(len(batch)))
		if !w.healthy.Swap(true) {
			w.logger.Info().Msg("Log sink recovered")
		}
		return
	}

	// best effort: the dequeued batch is not re-queued
	w.dropped.Add(uint64(len(batch)))
	if errors.Is(err, ErrSinkUnavailable) {
		if w.healthy.Swap(false) {
			w.logger.Warn().Err(err).Int("dropped", len(batch)).Msg("Log sink unreachable, backing off")
		} else {
			w.logger.Debug().Err(err).Int("dropped", len(batch)).Msg("Log sink still unreachable")
		}
		w.sleep(w.cfg.BackoffInterval)
		return
	}
	w.logger.Error().Err(err).Int("dropped", len(batch)).Msg("Log flush failed")
	w.sleep(w.cfg.RetryInterval)
}

// flush writes one batch. A panicking sink is reported as an error so the
// loop keeps running.
func (w *Writer) flush(batch []Entry) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("log sink panic: %v", r)
		}
	}()
	ctx, cancel := context.WithTimeout(context.Background(), w.cfg.WriteTimeout)
	defer cancel()
	return w.sink.InsertMany(ctx, batch)
}

// sleep waits for d or until Stop is called.
func (w *Writer) sleep(d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-w.stopCh:
	}
}
