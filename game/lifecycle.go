package game

import (
	"math/rand/v2"
	"sort"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/cavefish/components"
	"github.com/pthm-cable/cavefish/traits"
)

// member is a copy of one organism's state taken at the start of a step.
type member struct {
	entity  ecs.Entity
	org     components.Organism
	traits  traits.Vector
	patch   int
	fitness float64
	viable  bool
}

// child is an offspring waiting to be spawned into the next generation.
type child struct {
	traits  traits.Vector
	patch   int
	parentA uint32
	parentB uint32
}

// spawnFounders creates the initial population with freshly sampled traits.
func (e *Engine) spawnFounders(n int) {
	for i := 0; i < n; i++ {
		e.spawn(child{traits: e.founders.Initialize(e.rng)}, 0)
	}
}

// spawn creates one organism entity.
func (e *Engine) spawn(c child, generation int) ecs.Entity {
	e.nextID++
	org := components.Organism{
		ID:         e.nextID,
		Generation: generation,
		ParentA:    c.parentA,
		ParentB:    c.parentB,
	}
	genome := components.Genome{Traits: c.traits}
	fit := components.Fitness{}
	res := components.Residency{Patch: c.patch}
	return e.organismMapper.NewEntity(&org, &genome, &fit, &res)
}

// population copies every organism's state, ordered by organism ID.
func (e *Engine) population() []member {
	var out []member
	query := e.organismFilter.Query()
	for query.Next() {
		org, genome, fit, res := query.Get()
		out = append(out, member{
			entity:  query.Entity(),
			org:     *org,
			traits:  genome.Traits,
			patch:   res.Patch,
			fitness: fit.Value,
			viable:  fit.Viable,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].org.ID < out[j].org.ID })
	return out
}

// PopulationSize returns the number of live organisms.
func (e *Engine) PopulationSize() int {
	n := 0
	query := e.organismFilter.Query()
	for query.Next() {
		n++
	}
	return n
}

// applyEvaluation writes assignment and selection results back to the entities.
func (e *Engine) applyEvaluation(pop []member) {
	for i := range pop {
		_, _, fit, res := e.organismMapper.Get(pop[i].entity)
		fit.Value = pop[i].fitness
		fit.Viable = pop[i].viable
		res.Patch = pop[i].patch
	}
}

// replaceGeneration removes the old population and spawns the children.
// Generations do not overlap. Removed entities are recycled by the world.
func (e *Engine) replaceGeneration(old []member, children []child, generation int) {
	for _, m := range old {
		e.world.RemoveEntity(m.entity)
	}
	for _, c := range children {
		e.spawn(c, generation)
	}
}

// enforceCapacity uniformly subsamples children down to capacity with a
// partial Fisher-Yates shuffle.
func enforceCapacity(children []child, capacity int, rng *rand.Rand) []child {
	if len(children) <= capacity {
		return children
	}
	for i := 0; i < capacity; i++ {
		j := i + rng.IntN(len(children)-i)
		children[i], children[j] = children[j], children[i]
	}
	return children[:capacity]
}
