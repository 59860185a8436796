package telemetry

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/pthm-cable/cavefish/config"
)

func TestSQLiteSinkRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "runs.db")

	sink := NewSQLiteSink(path)
	if err := sink.Init(ctx, config.Default(), 42); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer sink.Close()

	if sink.RunID() == "" {
		t.Fatal("expected a run ID after Init")
	}

	for gen := 1; gen <= 3; gen++ {
		stats := GenerationStats{
			Generation:     gen,
			PopulationSize: 100 * gen,
			Evaluated:      90,
			Viable:         80,
			MeanFitness:    0.5 + 0.1*float64(gen),
		}
		if err := sink.Emit(stats); err != nil {
			t.Fatalf("Emit(%d) failed: %v", gen, err)
		}
	}
	if err := sink.WriteBookmark(Bookmark{Type: BookmarkCapacityReached, Generation: 2, Description: "full"}); err != nil {
		t.Fatalf("WriteBookmark failed: %v", err)
	}
	if err := sink.Finish(ctx, "completed", 3, ""); err != nil {
		t.Fatalf("Finish failed: %v", err)
	}

	got, err := sink.Generations(ctx, sink.RunID())
	if err != nil {
		t.Fatalf("Generations failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 generations, got %d", len(got))
	}
	for i, g := range got {
		if g.Generation != i+1 {
			t.Errorf("record %d: generation = %d, want %d", i, g.Generation, i+1)
		}
		if g.PopulationSize != 100*(i+1) {
			t.Errorf("record %d: population = %d", i, g.PopulationSize)
		}
	}

	outcome, gen, _, err := sink.Outcome(ctx, sink.RunID())
	if err != nil {
		t.Fatalf("Outcome failed: %v", err)
	}
	if outcome != "completed" || gen != 3 {
		t.Errorf("Outcome = (%q, %d), want (completed, 3)", outcome, gen)
	}
}

func TestSQLiteSinkReemitReplacesRecord(t *testing.T) {
	ctx := context.Background()
	sink := NewSQLiteSink(filepath.Join(t.TempDir(), "runs.db"))
	if err := sink.Init(ctx, config.Default(), 7); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer sink.Close()

	first := GenerationStats{Generation: 4, PopulationSize: 10, Viable: 5, MeanFitness: 0.3, MeanEyeSize: 0.9}
	second := GenerationStats{
		Generation:        4,
		PopulationSize:    20,
		Evaluated:         18,
		Viable:            12,
		OffspringRaw:      40,
		MeanFitness:       0.6,
		FitnessStd:        0.1,
		FitnessP10:        0.45,
		FitnessP50:        0.6,
		FitnessP90:        0.75,
		MeanPigmentation:  0.2,
		MeanEyeSize:       0.25,
		MeanMetabolicRate: 0.3,
		MeanLateralLine:   0.7,
		MeanOlfactoryBulb: 0.8,
		MeanLight:         0.05,
		MeanFood:          0.4,
		MeanTemperature:   15,
		ResourceUsage:     1.5,
	}
	for _, stats := range []GenerationStats{first, second} {
		if err := sink.Emit(stats); err != nil {
			t.Fatalf("Emit failed: %v", err)
		}
	}

	got, err := sink.Generations(ctx, sink.RunID())
	if err != nil {
		t.Fatalf("Generations failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 generation, got %d", len(got))
	}
	if got[0] != second {
		t.Errorf("stored record = %+v, want %+v", got[0], second)
	}
}

func TestSQLiteSinkRequiresInit(t *testing.T) {
	sink := NewSQLiteSink(filepath.Join(t.TempDir(), "runs.db"))
	if err := sink.Emit(GenerationStats{Generation: 1}); err == nil {
		t.Error("expected error emitting before Init")
	}
	if err := sink.Close(); err != nil {
		t.Errorf("Close before Init should be a no-op, got %v", err)
	}
}

func TestSQLiteSinkEmptyPath(t *testing.T) {
	if err := NewSQLiteSink("").Init(context.Background(), config.Default(), 1); err == nil {
		t.Error("expected error for empty path")
	}
}
