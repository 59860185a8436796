package telemetry

import (
	"fmt"
	"log/slog"

	"github.com/pthm-cable/cavefish/traits"
)

// BookmarkType identifies the type of bookmark.
type BookmarkType string

const (
	BookmarkFitnessBreakthrough BookmarkType = "fitness_breakthrough"
	BookmarkPopulationCrash     BookmarkType = "population_crash"
	BookmarkTraitFixation       BookmarkType = "trait_fixation"
	BookmarkCapacityReached     BookmarkType = "capacity_reached"
	BookmarkExtinctionRisk      BookmarkType = "extinction_risk"
	BookmarkStablePopulation    BookmarkType = "stable_population"
)

// Fixation bounds: a trait mean outside [fixationLow, fixationHigh] is fixed;
// it must return inside [releaseLow, releaseHigh] before it can fix again.
const (
	fixationLow  = 0.05
	fixationHigh = 0.95
	releaseLow   = 0.10
	releaseHigh  = 0.90
)

// Bookmark represents an automatically triggered bookmark.
type Bookmark struct {
	Type        BookmarkType `csv:"type"`
	Generation  int          `csv:"generation"`
	Description string       `csv:"description"`
}

// LogBookmark logs the bookmark using slog.
func (b Bookmark) LogBookmark() {
	slog.Info("bookmark",
		"type", string(b.Type),
		"generation", b.Generation,
		"description", b.Description,
	)
}

// BookmarkDetector detects notable generations in a run.
type BookmarkDetector struct {
	capacity int

	// Rolling history (circular buffer)
	history     []GenerationStats
	historySize int
	historyIdx  int
	historyFull bool

	// State tracking
	recentPeak        int  // peak population in recent history
	atCapacity        bool // population was at capacity last generation
	atRisk            bool // viable fraction was low last generation
	fixed             [traits.NumKinds]bool
	stableGenerations int // consecutive generations with a stable population
}

// NewBookmarkDetector creates a detector with the given history size.
// capacity is the run's carrying capacity.
func NewBookmarkDetector(historySize, capacity int) *BookmarkDetector {
	if historySize < 5 {
		historySize = 5 // minimum for stable population detection
	}
	return &BookmarkDetector{
		capacity:    capacity,
		history:     make([]GenerationStats, historySize),
		historySize: historySize,
	}
}

// Check analyzes the latest stats and returns any triggered bookmarks.
func (bd *BookmarkDetector) Check(stats GenerationStats) []Bookmark {
	var bookmarks []Bookmark

	if bd.historyFull || bd.historyIdx > 0 {
		if b := bd.checkFitnessBreakthrough(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}
		if b := bd.checkPopulationCrash(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}
		if b := bd.checkStablePopulation(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}
	}
	bookmarks = append(bookmarks, bd.checkTraitFixation(stats)...)
	if b := bd.checkCapacityReached(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}
	if b := bd.checkExtinctionRisk(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}

	bd.addToHistory(stats)

	if stats.PopulationSize > bd.recentPeak {
		bd.recentPeak = stats.PopulationSize
	}

	return bookmarks
}

func (bd *BookmarkDetector) addToHistory(stats GenerationStats) {
	bd.history[bd.historyIdx] = stats
	bd.historyIdx = (bd.historyIdx + 1) % bd.historySize
	if bd.historyIdx == 0 {
		bd.historyFull = true
	}
}

func (bd *BookmarkDetector) getHistory() []GenerationStats {
	if bd.historyFull {
		return bd.history
	}
	return bd.history[:bd.historyIdx]
}

func (bd *BookmarkDetector) checkFitnessBreakthrough(stats GenerationStats) *Bookmark {
	history := bd.getHistory()
	if len(history) < 3 {
		return nil
	}

	var total float64
	for _, h := range history {
		total += h.MeanFitness
	}
	avg := total / float64(len(history))
	if avg == 0 {
		return nil
	}

	if stats.MeanFitness > avg*1.2 && stats.MeanFitness-avg > 0.05 {
		return &Bookmark{
			Type:        BookmarkFitnessBreakthrough,
			Generation:  stats.Generation,
			Description: fmt.Sprintf("Mean fitness %.3f is %.2fx rolling average (%.3f)", stats.MeanFitness, stats.MeanFitness/avg, avg),
		}
	}
	return nil
}

func (bd *BookmarkDetector) checkPopulationCrash(stats GenerationStats) *Bookmark {
	if bd.recentPeak == 0 {
		return nil
	}

	drop := 1.0 - float64(stats.PopulationSize)/float64(bd.recentPeak)
	if drop > 0.30 && stats.PopulationSize < bd.recentPeak-10 {
		// Reset peak after crash
		oldPeak := bd.recentPeak
		bd.recentPeak = stats.PopulationSize

		return &Bookmark{
			Type:        BookmarkPopulationCrash,
			Generation:  stats.Generation,
			Description: fmt.Sprintf("Population crashed %.0f%% from peak %d to %d", drop*100, oldPeak, stats.PopulationSize),
		}
	}
	return nil
}

func (bd *BookmarkDetector) checkTraitFixation(stats GenerationStats) []Bookmark {
	if stats.PopulationSize == 0 {
		return nil
	}

	var bookmarks []Bookmark
	means := stats.TraitMeans()
	for _, k := range traits.All {
		m := means[k]
		switch {
		case !bd.fixed[k] && (m < fixationLow || m > fixationHigh):
			bd.fixed[k] = true
			bookmarks = append(bookmarks, Bookmark{
				Type:        BookmarkTraitFixation,
				Generation:  stats.Generation,
				Description: fmt.Sprintf("Trait %s fixed at mean %.3f", k, m),
			})
		case bd.fixed[k] && m > releaseLow && m < releaseHigh:
			bd.fixed[k] = false
		}
	}
	return bookmarks
}

func (bd *BookmarkDetector) checkCapacityReached(stats GenerationStats) *Bookmark {
	at := bd.capacity > 0 && stats.PopulationSize >= bd.capacity
	defer func() { bd.atCapacity = at }()

	if at && !bd.atCapacity {
		return &Bookmark{
			Type:        BookmarkCapacityReached,
			Generation:  stats.Generation,
			Description: fmt.Sprintf("Population reached carrying capacity %d", bd.capacity),
		}
	}
	return nil
}

func (bd *BookmarkDetector) checkExtinctionRisk(stats GenerationStats) *Bookmark {
	risk := stats.Evaluated > 0 && float64(stats.Viable)/float64(stats.Evaluated) < 0.1
	defer func() { bd.atRisk = risk }()

	if risk && !bd.atRisk {
		return &Bookmark{
			Type:        BookmarkExtinctionRisk,
			Generation:  stats.Generation,
			Description: fmt.Sprintf("Only %d of %d organisms viable", stats.Viable, stats.Evaluated),
		}
	}
	return nil
}

func (bd *BookmarkDetector) checkStablePopulation(stats GenerationStats) *Bookmark {
	if stats.PopulationSize < 10 {
		bd.stableGenerations = 0
		return nil
	}

	history := bd.getHistory()
	if len(history) < 4 {
		return nil
	}

	recent := history[len(history)-4:]
	var sum float64
	for _, h := range recent {
		sum += float64(h.PopulationSize)
	}
	mean := sum / 4

	var variance float64
	for _, h := range recent {
		d := float64(h.PopulationSize) - mean
		variance += d * d
	}
	variance /= 4

	cv2 := 0.0
	if mean > 0 {
		cv2 = variance / (mean * mean)
	}

	if cv2 < 0.04 { // CV^2 < 0.04 means CV < 0.2
		bd.stableGenerations++
	} else {
		bd.stableGenerations = 0
	}

	if bd.stableGenerations == 5 { // trigger exactly once at 5 generations
		return &Bookmark{
			Type:        BookmarkStablePopulation,
			Generation:  stats.Generation,
			Description: fmt.Sprintf("Stable population around %d over 5+ generations", stats.PopulationSize),
		}
	}
	return nil
}

// BookmarkWriter persists bookmarks.
type BookmarkWriter interface {
	WriteBookmark(b Bookmark) error
}

// BookmarkSink runs bookmark detection on every record, logs each bookmark
// and forwards it to the configured writers.
type BookmarkSink struct {
	detector  *BookmarkDetector
	writers   []BookmarkWriter
	bookmarks []Bookmark
}

// NewBookmarkSink creates a sink around a detector.
func NewBookmarkSink(detector *BookmarkDetector, writers ...BookmarkWriter) *BookmarkSink {
	return &BookmarkSink{detector: detector, writers: writers}
}

// Emit checks the record for bookmarks.
func (s *BookmarkSink) Emit(stats GenerationStats) error {
	for _, b := range s.detector.Check(stats) {
		b.LogBookmark()
		s.bookmarks = append(s.bookmarks, b)
		for _, w := range s.writers {
			if err := w.WriteBookmark(b); err != nil {
				return err
			}
		}
	}
	return nil
}

// Bookmarks returns every bookmark detected so far.
func (s *BookmarkSink) Bookmarks() []Bookmark {
	return s.bookmarks
}

// Close is a no-op; writers are closed by their owners.
func (s *BookmarkSink) Close() error { return nil }
