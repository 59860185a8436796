package telemetry

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pthm-cable/cavefish/config"
)

func TestOutputManagerDisabled(t *testing.T) {
	om, err := NewOutputManager("")
	if err != nil {
		t.Fatalf("NewOutputManager failed: %v", err)
	}
	if om != nil {
		t.Fatal("expected nil manager for empty dir")
	}
	// Nil manager methods are no-ops.
	if err := om.Emit(GenerationStats{Generation: 1}); err != nil {
		t.Errorf("nil Emit returned %v", err)
	}
	if err := om.Close(); err != nil {
		t.Errorf("nil Close returned %v", err)
	}
}

func TestOutputManagerGenerations(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "run")
	om, err := NewOutputManager(dir)
	if err != nil {
		t.Fatalf("NewOutputManager failed: %v", err)
	}

	for gen := 1; gen <= 3; gen++ {
		stats := GenerationStats{
			Generation:       gen,
			PopulationSize:   10 * gen,
			MeanFitness:      0.25 * float64(gen),
			MeanPigmentation: 0.8 - 0.1*float64(gen),
		}
		if err := om.Emit(stats); err != nil {
			t.Fatalf("Emit failed: %v", err)
		}
	}
	if err := om.WriteBookmark(Bookmark{Type: BookmarkCapacityReached, Generation: 2, Description: "full"}); err != nil {
		t.Fatalf("WriteBookmark failed: %v", err)
	}
	if err := om.WriteConfig(config.Default()); err != nil {
		t.Fatalf("WriteConfig failed: %v", err)
	}
	if err := om.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	records, err := ReadGenerations(filepath.Join(dir, "generations.csv"))
	if err != nil {
		t.Fatalf("ReadGenerations failed: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	for i, r := range records {
		if r.Generation != i+1 || r.PopulationSize != 10*(i+1) {
			t.Errorf("record %d = %+v", i, r)
		}
		if math.Abs(r.MeanFitness-0.25*float64(i+1)) > 1e-9 {
			t.Errorf("record %d mean_fitness = %v", i, r.MeanFitness)
		}
	}

	data, err := os.ReadFile(filepath.Join(dir, "bookmarks.csv"))
	if err != nil {
		t.Fatalf("reading bookmarks.csv: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[0], "type,generation,description") {
		t.Errorf("unexpected bookmarks.csv:\n%s", data)
	}

	if _, err := config.Load(filepath.Join(dir, "config.yaml")); err != nil {
		t.Errorf("written config does not load: %v", err)
	}
}
