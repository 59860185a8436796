package game

import (
	"math/rand/v2"

	"github.com/sourcegraph/conc/pool"

	"github.com/pthm-cable/cavefish/genetics"
)

// workChunk is a half-open index range handed to one worker.
type workChunk struct {
	start, end int
}

// chunks splits n items into at most workers contiguous ranges.
func chunks(n, workers int) []workChunk {
	if n == 0 {
		return nil
	}
	if workers < 1 {
		workers = 1
	}
	size := (n + workers - 1) / workers
	out := make([]workChunk, 0, workers)
	for start := 0; start < n; start += size {
		end := min(start+size, n)
		out = append(out, workChunk{start: start, end: end})
	}
	return out
}

// forEachChunk runs fn over every chunk. Below the parallel threshold, or
// with a single worker, everything runs on the calling goroutine.
func (e *Engine) forEachChunk(n int, fn func(c workChunk)) {
	if e.workers == 1 || n < e.threshold {
		fn(workChunk{start: 0, end: n})
		return
	}
	p := pool.New().WithMaxGoroutines(e.workers)
	for _, c := range chunks(n, e.workers) {
		p.Go(func() { fn(c) })
	}
	p.Wait()
}

// evaluate scores every member against its assigned patch. Patches are frozen
// for the duration of the call. The first failure in population order is
// returned as a PatchError.
func (e *Engine) evaluate(pop []member, generation int) error {
	failed := make([]error, len(pop))
	e.forEachChunk(len(pop), func(c workChunk) {
		for i := c.start; i < c.end; i++ {
			f, err := e.fitness.Evaluate(pop[i].traits, e.env.Patch(pop[i].patch))
			if err != nil {
				failed[i] = err
				continue
			}
			pop[i].fitness = f
		}
	})

	for i, err := range failed {
		if err != nil {
			return &PatchError{Generation: generation, PatchID: pop[i].patch, Err: err}
		}
	}
	return nil
}

// reproduce produces every parent's offspring batch. Each parent draws from
// its own stream seeded sequentially from the engine source, so the result
// does not depend on worker count. Batches are concatenated in parent order.
func (e *Engine) reproduce(pop []member, viable []int, counts []int) []child {
	fitness := make([]float64, len(viable))
	for i, idx := range viable {
		fitness[i] = pop[idx].fitness
	}
	partners := newPartnerPicker(e.cfg.Reproduction.MateChoice, fitness)

	seeds := make([]uint64, len(viable))
	for i := range seeds {
		seeds[i] = e.rng.Uint64()
	}

	batches := make([][]child, len(viable))
	e.forEachChunk(len(viable), func(c workChunk) {
		for i := c.start; i < c.end; i++ {
			if counts[i] == 0 {
				continue
			}
			stream := rand.New(rand.NewPCG(seeds[i], uint64(i)))
			batches[i] = e.offspringBatch(pop, viable, i, counts[i], partners, stream)
		}
	})

	out := make([]child, 0, sumCounts(counts))
	for _, b := range batches {
		out = append(out, b...)
	}
	return out
}

// offspringBatch produces count children for the viable parent at position i.
func (e *Engine) offspringBatch(pop []member, viable []int, i, count int, partners *partnerPicker, rng *rand.Rand) []child {
	parent := pop[viable[i]]
	batch := make([]child, count)
	for k := range batch {
		mate := pop[viable[partners.pick(i, rng)]]
		traits := genetics.Reproduce(parent.traits, mate.traits, rng)
		e.mutator.Mutate(&traits, rng)
		batch[k] = child{
			traits:  traits,
			patch:   parent.patch,
			parentA: parent.org.ID,
			parentB: mate.org.ID,
		}
	}
	return batch
}
