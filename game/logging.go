package game

import "log/slog"

// LogValue implements slog.LogValuer for structured logging.
func (r Result) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("outcome", r.Outcome.String()),
		slog.Int("generation", r.Generation),
		slog.Int("final_population", r.FinalPopulation),
	}
	if r.Cause != "" {
		attrs = append(attrs, slog.String("cause", r.Cause))
	}
	return slog.GroupValue(attrs...)
}

// LogResult logs the run result using slog.
func (r Result) LogResult() {
	if r.Outcome == Extinct {
		slog.Warn("run finished", "result", r)
		return
	}
	slog.Info("run finished", "result", r)
}

// LogPerf logs phase timings when a perf collector is attached.
func (e *Engine) LogPerf() {
	if e.perf == nil {
		return
	}
	e.perf.Stats().LogStats()
}
