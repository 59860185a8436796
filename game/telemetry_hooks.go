package game

import (
	"github.com/pthm-cable/cavefish/telemetry"
)

// Snapshot captures the current population and patches.
// The optional bookmark is attached to the snapshot.
func (e *Engine) Snapshot(bm *telemetry.Bookmark) *telemetry.Snapshot {
	s := &telemetry.Snapshot{
		Version:    telemetry.SnapshotVersion,
		Seed:       e.seed,
		Generation: e.generation,
		Outcome:    e.outcome.String(),
		Bookmark:   bm,
	}

	for _, p := range e.env.Patches() {
		ps := telemetry.PatchState{
			ID:               p.ID,
			LightLevel:       p.LightLevel,
			FoodAvailability: p.FoodAvailability,
			Temperature:      p.Temperature,
		}
		if optimal, ok := p.OptimalTraits(); ok {
			ps.OptimalTraits = optimal.Map()
		}
		s.Patches = append(s.Patches, ps)
	}

	for _, m := range e.population() {
		s.Organisms = append(s.Organisms, telemetry.OrganismState{
			ID:         m.org.ID,
			Generation: m.org.Generation,
			ParentA:    m.org.ParentA,
			ParentB:    m.org.ParentB,
			Patch:      m.patch,
			Fitness:    m.fitness,
			Viable:     m.viable,
			Traits:     m.traits.Map(),
		})
	}
	return s
}

// SaveSnapshot writes the current state to dir and returns the file path.
func (e *Engine) SaveSnapshot(dir string, bm *telemetry.Bookmark) (string, error) {
	return telemetry.SaveSnapshot(e.Snapshot(bm), dir)
}
