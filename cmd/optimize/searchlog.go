package main

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strconv"
	"time"
)

// searchLog appends one optimize_log.csv row per candidate and remembers the
// best clamped parameter set seen so far.
type searchLog struct {
	params   *ParamVector
	file     *os.File
	w        *csv.Writer
	maxEvals int
	started  time.Time

	count    int
	best     float64
	bestVals []float64
}

func newSearchLog(path string, params *ParamVector, maxEvals int) (*searchLog, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating search log: %w", err)
	}
	l := &searchLog{
		params:   params,
		file:     f,
		w:        csv.NewWriter(f),
		maxEvals: maxEvals,
		started:  time.Now(),
		best:     math.Inf(1),
	}

	header := []string{"eval", "fitness", "quality"}
	for _, spec := range params.Specs {
		header = append(header, spec.Name)
	}
	if err := l.w.Write(header); err != nil {
		f.Close()
		return nil, fmt.Errorf("writing search log header: %w", err)
	}
	return l, nil
}

// record logs one candidate. vals are the clamped values the run used.
func (l *searchLog) record(vals []float64, fitness, quality float64) error {
	l.count++
	if fitness < l.best {
		l.best = fitness
		l.bestVals = append(l.bestVals[:0], vals...)
	}

	row := make([]string, 0, 3+len(vals))
	row = append(row, strconv.Itoa(l.count),
		strconv.FormatFloat(fitness, 'f', 6, 64),
		strconv.FormatFloat(quality, 'f', 6, 64))
	for _, v := range vals {
		row = append(row, strconv.FormatFloat(v, 'f', 6, 64))
	}
	if err := l.w.Write(row); err != nil {
		return err
	}
	l.w.Flush()

	elapsed := time.Since(l.started)
	eta := time.Duration(l.maxEvals-l.count) * (elapsed / time.Duration(l.count))
	slog.Info("evaluation",
		"eval", l.count,
		"of", l.maxEvals,
		"fitness", fitness,
		"quality", quality,
		"best", l.best,
		"elapsed", elapsed.Round(time.Second).String(),
		"eta", eta.Round(time.Second).String(),
	)
	return l.w.Error()
}

// Best returns the best parameter values and their fitness, or nil before
// any candidate was recorded.
func (l *searchLog) Best() ([]float64, float64) {
	return l.bestVals, l.best
}

// Close flushes and closes the log file.
func (l *searchLog) Close() error {
	l.w.Flush()
	if err := l.w.Error(); err != nil {
		l.file.Close()
		return err
	}
	return l.file.Close()
}
