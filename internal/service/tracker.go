package service

import "math"

// Trend labels the recent direction of consensus scores.
type Trend string

const (
	TrendConverging Trend = "CONVERGING"
	TrendDiverging  Trend = "DIVERGING"
	TrendStable     Trend = "STABLE"
	TrendUnknown    Trend = "UNKNOWN"
)

// ConvergenceTracker records per-round consensus scores and detects trends
// over a sliding window. Diagnostic only: the orchestrator's termination is
// driven by full consensus or round-budget exhaustion, never by the tracker.
type ConvergenceTracker struct {
	history    []float64
	windowSize int
	tolerance  float64
}

// NewConvergenceTracker creates a tracker with the given window size.
// Non-positive sizes fall back to 3.
func NewConvergenceTracker(windowSize int) *ConvergenceTracker {
	if windowSize <= 0 {
		windowSize = 3
	}
	return &ConvergenceTracker{
		windowSize: windowSize,
		tolerance:  0.05,
	}
}

// AddScore appends the consensus percentage of a closed round.
func (t *ConvergenceTracker) AddScore(score float64) {
	t.history = append(t.history, score)
}

// History returns a copy of the recorded scores.
func (t *ConvergenceTracker) History() []float64 {
	out := make([]float64, len(t.history))
	copy(out, t.history)
	return out
}

// IsConverging reports whether the last window of scores is strictly
// monotonically increasing.
func (t *ConvergenceTracker) IsConverging() bool {
	recent := t.window()
	if recent == nil {
		return false
	}
	for i := 0; i < len(recent)-1; i++ {
		if recent[i+1] <= recent[i] {
			return false
		}
	}
	return true
}

// IsDiverging reports whether the last window of scores is strictly
// monotonically decreasing.
func (t *ConvergenceTracker) IsDiverging() bool {
	recent := t.window()
	if recent == nil {
		return false
	}
	for i := 0; i < len(recent)-1; i++ {
		if recent[i+1] >= recent[i] {
			return false
		}
	}
	return true
}

// IsStable reports whether every score in the window deviates from the
// window mean by at most the tolerance.
func (t *ConvergenceTracker) IsStable() bool {
	recent := t.window()
	if recent == nil {
		return false
	}
	mean := 0.0
	for _, s := range recent {
		mean += s
	}
	mean /= float64(len(recent))
	for _, s := range recent {
		if math.Abs(s-mean) > t.tolerance {
			return false
		}
	}
	return true
}

// GetTrend returns the first applicable trend label.
func (t *ConvergenceTracker) GetTrend() Trend {
	switch {
	case t.IsConverging():
		return TrendConverging
	case t.IsDiverging():
		return TrendDiverging
	case t.IsStable():
		return TrendStable
	default:
		return TrendUnknown
	}
}

// Statistics summarizes the tracker state.
type Statistics struct {
	TotalRounds  int       `json:"total_rounds"`
	CurrentScore float64   `json:"current_score"`
	Trend        Trend     `json:"trend"`
	History      []float64 `json:"history"`
}

// GetStatistics returns convergence statistics for status reporting.
func (t *ConvergenceTracker) GetStatistics() Statistics {
	stats := Statistics{
		TotalRounds: len(t.history),
		Trend:       t.GetTrend(),
		History:     t.History(),
	}
	if len(t.history) > 0 {
		stats.CurrentScore = t.history[len(t.history)-1]
	}
	return stats
}

func (t *ConvergenceTracker) window() []float64 {
	if len(t.history) < t.windowSize {
		return nil
	}
	return t.history[len(t.history)-t.windowSize:]
}
