package telemetry

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// Sink receives one GenerationStats record per generation.
// Emit must not retain references into engine state.
type Sink interface {
	Emit(stats GenerationStats) error
	Close() error
}

// Discard is a Sink that drops every record.
var Discard Sink = discard{}

type discard struct{}

func (discard) Emit(GenerationStats) error { return nil }
func (discard) Close() error               { return nil }

// MemorySink keeps every record in memory.
type MemorySink struct {
	mu      sync.Mutex
	records []GenerationStats
}

// NewMemorySink creates an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Emit appends the record.
func (m *MemorySink) Emit(stats GenerationStats) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, stats)
	return nil
}

// Records returns a copy of the collected records.
func (m *MemorySink) Records() []GenerationStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]GenerationStats, len(m.records))
	copy(out, m.records)
	return out
}

// Close is a no-op.
func (m *MemorySink) Close() error { return nil }

// LogSink logs every Nth generation through slog.
type LogSink struct {
	every int
}

// NewLogSink creates a sink logging every n generations. n <= 0 disables logging.
func NewLogSink(every int) *LogSink {
	return &LogSink{every: every}
}

// Emit logs the record when its generation is a multiple of the interval.
func (l *LogSink) Emit(stats GenerationStats) error {
	if l.every > 0 && stats.Generation%l.every == 0 {
		stats.LogStats()
	}
	return nil
}

// Close is a no-op.
func (l *LogSink) Close() error { return nil }

// multiSink fans records out to several sinks in order.
type multiSink struct {
	sinks []Sink
}

// Multi returns a Sink that emits to every non-nil sink in order.
// The first Emit error stops the fan-out; Close closes all and joins errors.
func Multi(sinks ...Sink) Sink {
	var out []Sink
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return &multiSink{sinks: out}
}

func (m *multiSink) Emit(stats GenerationStats) error {
	for _, s := range m.sinks {
		if err := s.Emit(stats); err != nil {
			return err
		}
	}
	return nil
}

func (m *multiSink) Close() error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// AsyncSink buffers records on a channel and forwards them to another sink
// from a single goroutine, preserving order. The first downstream error is
// reported by the next Emit or by Close.
type AsyncSink struct {
	next Sink
	ch   chan GenerationStats
	done chan struct{}

	mu  sync.Mutex
	err error

	closeOnce sync.Once
}

// NewAsyncSink starts the forwarding goroutine. buffer is the channel capacity.
func NewAsyncSink(next Sink, buffer int) *AsyncSink {
	if buffer < 1 {
		buffer = 1
	}
	a := &AsyncSink{
		next: next,
		ch:   make(chan GenerationStats, buffer),
		done: make(chan struct{}),
	}
	go a.run()
	return a
}

func (a *AsyncSink) run() {
	defer close(a.done)
	for stats := range a.ch {
		if a.failed() != nil {
			continue
		}
		if err := a.next.Emit(stats); err != nil {
			slog.Error("async sink emit failed", "generation", stats.Generation, "error", err)
			a.mu.Lock()
			a.err = fmt.Errorf("generation %d: %w", stats.Generation, err)
			a.mu.Unlock()
		}
	}
}

func (a *AsyncSink) failed() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.err
}

// Emit queues the record. Blocks when the buffer is full.
func (a *AsyncSink) Emit(stats GenerationStats) error {
	if err := a.failed(); err != nil {
		return err
	}
	a.ch <- stats
	return nil
}

// Close drains the queue, closes the downstream sink and returns the first error.
func (a *AsyncSink) Close() error {
	var closeErr error
	a.closeOnce.Do(func() {
		close(a.ch)
		<-a.done
		closeErr = a.next.Close()
	})
	return errors.Join(a.failed(), closeErr)
}
