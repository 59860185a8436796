package telemetry

import (
	"testing"

	"github.com/pthm-cable/cavefish/traits"
)

func hasBookmark(bookmarks []Bookmark, typ BookmarkType) bool {
	for _, bm := range bookmarks {
		if bm.Type == typ {
			return true
		}
	}
	return false
}

// midTraits keeps every trait mean away from fixation.
func midTraits(s GenerationStats) GenerationStats {
	s.SetTraitMeans(traits.Vector{0.5, 0.5, 0.5, 0.5, 0.5})
	return s
}

func TestBookmarkDetector_FitnessBreakthrough(t *testing.T) {
	bd := NewBookmarkDetector(10, 1000)

	for i := 0; i < 5; i++ {
		bd.Check(midTraits(GenerationStats{Generation: i, PopulationSize: 500, MeanFitness: 0.4}))
	}

	bookmarks := bd.Check(midTraits(GenerationStats{Generation: 5, PopulationSize: 500, MeanFitness: 0.6}))
	if !hasBookmark(bookmarks, BookmarkFitnessBreakthrough) {
		t.Error("expected fitness_breakthrough bookmark")
	}
}

func TestBookmarkDetector_PopulationCrash(t *testing.T) {
	bd := NewBookmarkDetector(10, 1000)

	for i := 0; i < 5; i++ {
		bd.Check(midTraits(GenerationStats{Generation: i, PopulationSize: 100}))
	}

	bookmarks := bd.Check(midTraits(GenerationStats{Generation: 5, PopulationSize: 50}))
	if !hasBookmark(bookmarks, BookmarkPopulationCrash) {
		t.Error("expected population_crash bookmark")
	}

	// Peak was reset; the same size does not crash again.
	bookmarks = bd.Check(midTraits(GenerationStats{Generation: 6, PopulationSize: 50}))
	if hasBookmark(bookmarks, BookmarkPopulationCrash) {
		t.Error("population_crash should not repeat without a new peak")
	}
}

func TestBookmarkDetector_TraitFixationOnce(t *testing.T) {
	bd := NewBookmarkDetector(10, 1000)

	s := GenerationStats{Generation: 1, PopulationSize: 100}
	s.SetTraitMeans(traits.Vector{0.02, 0.5, 0.5, 0.5, 0.5})

	bookmarks := bd.Check(s)
	if !hasBookmark(bookmarks, BookmarkTraitFixation) {
		t.Fatal("expected trait_fixation bookmark")
	}

	s.Generation = 2
	if hasBookmark(bd.Check(s), BookmarkTraitFixation) {
		t.Error("trait_fixation should trigger once per fixation")
	}

	// Released, then fixed again.
	s.Generation = 3
	s.SetTraitMeans(traits.Vector{0.5, 0.5, 0.5, 0.5, 0.5})
	bd.Check(s)
	s.Generation = 4
	s.SetTraitMeans(traits.Vector{0.01, 0.5, 0.5, 0.5, 0.5})
	if !hasBookmark(bd.Check(s), BookmarkTraitFixation) {
		t.Error("expected trait_fixation after release")
	}
}

func TestBookmarkDetector_CapacityAndRisk(t *testing.T) {
	bd := NewBookmarkDetector(10, 200)

	bookmarks := bd.Check(midTraits(GenerationStats{Generation: 1, PopulationSize: 200, Evaluated: 100, Viable: 5}))
	if !hasBookmark(bookmarks, BookmarkCapacityReached) {
		t.Error("expected capacity_reached bookmark")
	}
	if !hasBookmark(bookmarks, BookmarkExtinctionRisk) {
		t.Error("expected extinction_risk bookmark")
	}

	bookmarks = bd.Check(midTraits(GenerationStats{Generation: 2, PopulationSize: 200, Evaluated: 200, Viable: 10}))
	if hasBookmark(bookmarks, BookmarkCapacityReached) || hasBookmark(bookmarks, BookmarkExtinctionRisk) {
		t.Error("transition bookmarks should not repeat while the condition holds")
	}
}

func TestBookmarkDetector_StablePopulation(t *testing.T) {
	bd := NewBookmarkDetector(10, 1000)

	found := false
	for i := 0; i < 10; i++ {
		bookmarks := bd.Check(midTraits(GenerationStats{Generation: i, PopulationSize: 100}))
		if hasBookmark(bookmarks, BookmarkStablePopulation) {
			if i != 8 {
				t.Errorf("stable_population at generation %d, want 8", i)
			}
			found = true
		}
	}
	if !found {
		t.Error("expected stable_population bookmark")
	}
}
