package telemetry

import (
	"log/slog"
	"time"
)

// Phase names for the generation step.
const (
	PhaseEnvironment  = "environment"
	PhaseAssignment   = "assignment"
	PhaseEvaluation   = "evaluation"
	PhaseSelection    = "selection"
	PhaseOffspring    = "offspring"
	PhaseReproduction = "reproduction"
	PhaseCapacity     = "capacity"
	PhaseResources    = "resources"
	PhaseMetrics      = "metrics"
)

// Phases lists the generation phases in execution order.
var Phases = []string{
	PhaseEnvironment, PhaseAssignment, PhaseEvaluation,
	PhaseSelection, PhaseOffspring, PhaseReproduction,
	PhaseCapacity, PhaseResources, PhaseMetrics,
}

// PerfSample holds timing data for a single generation.
type PerfSample struct {
	Duration time.Duration
	Phases   map[string]time.Duration
}

// PerfCollector tracks performance metrics over a rolling window of generations.
type PerfCollector struct {
	windowSize    int
	samples       []PerfSample
	writeIndex    int
	sampleCount   int
	currentPhases map[string]time.Duration
	genStart      time.Time
	phaseStart    time.Time
	lastPhase     string
}

// NewPerfCollector creates a new performance collector averaging over
// windowSize generations.
func NewPerfCollector(windowSize int) *PerfCollector {
	if windowSize < 1 {
		windowSize = 20
	}
	return &PerfCollector{
		windowSize:    windowSize,
		samples:       make([]PerfSample, windowSize),
		currentPhases: make(map[string]time.Duration),
	}
}

// StartGeneration begins timing a new generation.
func (p *PerfCollector) StartGeneration() {
	p.genStart = time.Now()
	p.currentPhases = make(map[string]time.Duration)
	p.lastPhase = ""
}

// StartPhase begins timing a specific phase, ending the previous one.
func (p *PerfCollector) StartPhase(phase string) {
	now := time.Now()
	if p.lastPhase != "" {
		p.currentPhases[p.lastPhase] += now.Sub(p.phaseStart)
	}
	p.phaseStart = now
	p.lastPhase = phase
}

// EndGeneration finishes timing the current generation and records the sample.
func (p *PerfCollector) EndGeneration() {
	now := time.Now()
	if p.lastPhase != "" {
		p.currentPhases[p.lastPhase] += now.Sub(p.phaseStart)
		p.lastPhase = ""
	}

	p.samples[p.writeIndex] = PerfSample{
		Duration: now.Sub(p.genStart),
		Phases:   p.currentPhases,
	}
	p.writeIndex = (p.writeIndex + 1) % p.windowSize
	if p.sampleCount < p.windowSize {
		p.sampleCount++
	}
}

// PerfStats holds aggregated performance statistics.
type PerfStats struct {
	AvgGeneration time.Duration
	MinGeneration time.Duration
	MaxGeneration time.Duration

	// Phase breakdown (average durations)
	PhaseAvg map[string]time.Duration

	// Phase percentages of total generation time
	PhasePct map[string]float64

	GenerationsPerSecond float64
}

// Stats computes aggregated statistics over the current window.
func (p *PerfCollector) Stats() PerfStats {
	if p.sampleCount == 0 {
		return PerfStats{
			PhaseAvg: make(map[string]time.Duration),
			PhasePct: make(map[string]float64),
		}
	}

	var total, minDur, maxDur time.Duration
	phaseSum := make(map[string]time.Duration)

	for i := 0; i < p.sampleCount; i++ {
		s := p.samples[i]
		total += s.Duration

		if i == 0 || s.Duration < minDur {
			minDur = s.Duration
		}
		if s.Duration > maxDur {
			maxDur = s.Duration
		}
		for phase, dur := range s.Phases {
			phaseSum[phase] += dur
		}
	}

	avg := total / time.Duration(p.sampleCount)

	phaseAvg := make(map[string]time.Duration)
	phasePct := make(map[string]float64)
	for phase, sum := range phaseSum {
		phaseAvg[phase] = sum / time.Duration(p.sampleCount)
		if avg > 0 {
			phasePct[phase] = float64(phaseAvg[phase]) / float64(avg) * 100
		}
	}

	var perSec float64
	if avg > 0 {
		perSec = float64(time.Second) / float64(avg)
	}

	return PerfStats{
		AvgGeneration:        avg,
		MinGeneration:        minDur,
		MaxGeneration:        maxDur,
		PhaseAvg:             phaseAvg,
		PhasePct:             phasePct,
		GenerationsPerSecond: perSec,
	}
}

// LogStats logs performance statistics.
func (s PerfStats) LogStats() {
	attrs := []any{
		"avg_generation_us", s.AvgGeneration.Microseconds(),
		"min_generation_us", s.MinGeneration.Microseconds(),
		"max_generation_us", s.MaxGeneration.Microseconds(),
		"generations_per_sec", int(s.GenerationsPerSecond),
	}
	for _, phase := range Phases {
		if pct, ok := s.PhasePct[phase]; ok && pct > 0.1 {
			attrs = append(attrs, phase+"_pct", int(pct*10)/10.0)
		}
	}
	slog.Info("perf", attrs...)
}

// LogValue implements slog.LogValuer for structured logging.
func (s PerfStats) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int64("avg_generation_us", s.AvgGeneration.Microseconds()),
		slog.Int64("min_generation_us", s.MinGeneration.Microseconds()),
		slog.Int64("max_generation_us", s.MaxGeneration.Microseconds()),
		slog.Float64("generations_per_sec", s.GenerationsPerSecond),
	}
	for _, phase := range Phases {
		if pct, ok := s.PhasePct[phase]; ok {
			attrs = append(attrs, slog.Float64(phase+"_pct", pct))
		}
	}
	return slog.GroupValue(attrs...)
}

// PerfStatsCSV is a flat struct for CSV export of performance stats.
type PerfStatsCSV struct {
	Generation        int     `csv:"generation"`
	AvgGenerationUS   int64   `csv:"avg_generation_us"`
	MinGenerationUS   int64   `csv:"min_generation_us"`
	MaxGenerationUS   int64   `csv:"max_generation_us"`
	GenerationsPerSec float64 `csv:"generations_per_sec"`
	EnvironmentPct    float64 `csv:"environment_pct"`
	AssignmentPct     float64 `csv:"assignment_pct"`
	EvaluationPct     float64 `csv:"evaluation_pct"`
	SelectionPct      float64 `csv:"selection_pct"`
	OffspringPct      float64 `csv:"offspring_pct"`
	ReproductionPct   float64 `csv:"reproduction_pct"`
	CapacityPct       float64 `csv:"capacity_pct"`
	ResourcesPct      float64 `csv:"resources_pct"`
	MetricsPct        float64 `csv:"metrics_pct"`
}

// ToCSV converts PerfStats to a flat CSV-friendly struct.
func (s PerfStats) ToCSV(generation int) PerfStatsCSV {
	return PerfStatsCSV{
		Generation:        generation,
		AvgGenerationUS:   s.AvgGeneration.Microseconds(),
		MinGenerationUS:   s.MinGeneration.Microseconds(),
		MaxGenerationUS:   s.MaxGeneration.Microseconds(),
		GenerationsPerSec: s.GenerationsPerSecond,
		EnvironmentPct:    s.PhasePct[PhaseEnvironment],
		AssignmentPct:     s.PhasePct[PhaseAssignment],
		EvaluationPct:     s.PhasePct[PhaseEvaluation],
		SelectionPct:      s.PhasePct[PhaseSelection],
		OffspringPct:      s.PhasePct[PhaseOffspring],
		ReproductionPct:   s.PhasePct[PhaseReproduction],
		CapacityPct:       s.PhasePct[PhaseCapacity],
		ResourcesPct:      s.PhasePct[PhaseResources],
		MetricsPct:        s.PhasePct[PhaseMetrics],
	}
}
