package components

// Organism bundles identity and ancestry.
// Parents are zero for founders.
type Organism struct {
	ID         uint32
	Generation int // generation in which the organism was born; 0 for founders
	ParentA    uint32
	ParentB    uint32
}

// IsFounder reports whether the organism belongs to the initial population.
func (o *Organism) IsFounder() bool {
	return o.Generation == 0
}
