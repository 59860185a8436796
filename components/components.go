// Package components defines ECS components for the simulation.
package components

import "github.com/pthm-cable/cavefish/traits"

// Genome holds an organism's heritable trait values, each in [0,1].
type Genome struct {
	Traits traits.Vector
}

// Fitness holds the result of the most recent evaluation.
type Fitness struct {
	Value  float64 // >= 0
	Viable bool    // passed the selection threshold this generation
}

// Residency records which environment patch an organism lives in.
type Residency struct {
	Patch int
}
