package telemetry

import (
	"errors"
	"testing"
)

var errBoom = errors.New("boom")

type failingSink struct {
	failAt int
	closed bool
}

func (f *failingSink) Emit(stats GenerationStats) error {
	if stats.Generation == f.failAt {
		return errBoom
	}
	return nil
}

func (f *failingSink) Close() error {
	f.closed = true
	return nil
}

func TestMultiSinkFanOut(t *testing.T) {
	a, b := NewMemorySink(), NewMemorySink()
	sink := Multi(a, nil, b)

	for gen := 1; gen <= 3; gen++ {
		if err := sink.Emit(GenerationStats{Generation: gen}); err != nil {
			t.Fatalf("Emit failed: %v", err)
		}
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if len(a.Records()) != 3 || len(b.Records()) != 3 {
		t.Errorf("expected 3 records per sink, got %d and %d", len(a.Records()), len(b.Records()))
	}
}

func TestMultiSinkStopsOnError(t *testing.T) {
	mem := NewMemorySink()
	failing := &failingSink{failAt: 2}
	sink := Multi(failing, mem)

	if err := sink.Emit(GenerationStats{Generation: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := sink.Emit(GenerationStats{Generation: 2}); !errors.Is(err, errBoom) {
		t.Fatalf("expected errBoom, got %v", err)
	}
	if len(mem.Records()) != 1 {
		t.Errorf("sink after the failing one should not see generation 2, got %d records", len(mem.Records()))
	}

	sink.Close()
	if !failing.closed {
		t.Error("Close should reach every sink")
	}
}

func TestAsyncSinkPreservesOrder(t *testing.T) {
	mem := NewMemorySink()
	sink := NewAsyncSink(mem, 4)

	for gen := 1; gen <= 100; gen++ {
		if err := sink.Emit(GenerationStats{Generation: gen}); err != nil {
			t.Fatalf("Emit failed: %v", err)
		}
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	records := mem.Records()
	if len(records) != 100 {
		t.Fatalf("expected 100 records, got %d", len(records))
	}
	for i, r := range records {
		if r.Generation != i+1 {
			t.Fatalf("record %d has generation %d", i, r.Generation)
		}
	}

	// Second Close is a no-op.
	if err := sink.Close(); err != nil {
		t.Errorf("second Close returned %v", err)
	}
}

func TestAsyncSinkReportsDownstreamError(t *testing.T) {
	failing := &failingSink{failAt: 3}
	sink := NewAsyncSink(failing, 1)

	for gen := 1; gen <= 5; gen++ {
		if err := sink.Emit(GenerationStats{Generation: gen}); err != nil {
			if !errors.Is(err, errBoom) {
				t.Fatalf("unexpected error: %v", err)
			}
			break
		}
	}

	err := sink.Close()
	if !errors.Is(err, errBoom) {
		t.Fatalf("Close should report the downstream error, got %v", err)
	}
	if !failing.closed {
		t.Error("downstream sink not closed")
	}
}

func TestLogSinkInterval(t *testing.T) {
	sink := NewLogSink(0)
	if err := sink.Emit(GenerationStats{Generation: 10}); err != nil {
		t.Errorf("disabled log sink returned %v", err)
	}
	if err := Discard.Emit(GenerationStats{}); err != nil {
		t.Errorf("Discard returned %v", err)
	}
}
