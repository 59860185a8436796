package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pthm-cable/cavefish/traits"
)

// SnapshotVersion is incremented when the format changes.
const SnapshotVersion = 1

// Snapshot holds the population and environment at the end of a generation.
type Snapshot struct {
	Version int   `json:"version"`
	Seed    int64 `json:"seed"`

	Generation int    `json:"generation"`
	Outcome    string `json:"outcome"`

	Patches   []PatchState    `json:"patches"`
	Organisms []OrganismState `json:"organisms"`

	Bookmark *Bookmark `json:"bookmark,omitempty"`
}

// PatchState holds one patch's fields.
type PatchState struct {
	ID               int                `json:"id"`
	LightLevel       float64            `json:"light_level"`
	FoodAvailability float64            `json:"food_availability"`
	Temperature      float64            `json:"temperature"`
	OptimalTraits    map[string]float64 `json:"optimal_traits,omitempty"`
}

// OrganismState holds one organism's heritable and per-generation state.
type OrganismState struct {
	ID         uint32             `json:"id"`
	Generation int                `json:"generation"`
	ParentA    uint32             `json:"parent_a,omitempty"`
	ParentB    uint32             `json:"parent_b,omitempty"`
	Patch      int                `json:"patch"`
	Fitness    float64            `json:"fitness"`
	Viable     bool               `json:"viable"`
	Traits     map[string]float64 `json:"traits"`
}

// TraitVector converts the named trait map back into a vector.
func (o OrganismState) TraitVector() (traits.Vector, error) {
	return traits.FromMap(o.Traits)
}

// SaveSnapshot writes a snapshot to disk.
// Returns the filepath where it was saved.
func SaveSnapshot(snapshot *Snapshot, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}

	name := fmt.Sprintf("snapshot_%d", snapshot.Generation)
	if snapshot.Bookmark != nil {
		sanitized := strings.ReplaceAll(string(snapshot.Bookmark.Type), " ", "_")
		name = fmt.Sprintf("snapshot_%d_%s", snapshot.Generation, sanitized)
	}
	name += ".json"

	path := filepath.Join(dir, name)

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}

	return path, nil
}

// LoadSnapshot reads a snapshot from disk.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	if snapshot.Version != SnapshotVersion {
		return nil, fmt.Errorf("snapshot version %d, want %d", snapshot.Version, SnapshotVersion)
	}

	return &snapshot, nil
}
