package service

import (
	"fmt"
	"sync"

	"github.com/hugo-lorenzo-mato/consilium/internal/core"
)

// HostAnalyst is the single in-process producer. Its contributions are
// injected by the caller before the run; the orchestrator never calls a
// remote service for it. An empty slot yields a placeholder that the
// integrity validator rejects, which excludes the host from that phase
// without aborting the round.
type HostAnalyst struct {
	mu       sync.RWMutex
	analysis *core.Analysis
	reviews  map[string]*core.Review
	debate   *core.DebateOutcome
}

// HostVersion is recorded as the participant version of injected host
// contributions that do not carry one.
const HostVersion = "host-self"

// NewHostAnalyst creates a host analyst with all slots empty.
func NewHostAnalyst() *HostAnalyst {
	return &HostAnalyst{reviews: make(map[string]*core.Review)}
}

// SetAnalysis fills the analysis slot.
func (h *HostAnalyst) SetAnalysis(a *core.Analysis) {
	h.mu.Lock()
	defer h.mu.Unlock()
	clone := *a
	clone.ParticipantName = core.HostAnalystName
	if clone.ParticipantVersion == "" {
		clone.ParticipantVersion = HostVersion
	}
	h.analysis = &clone
}

// SetReview fills the review slot for one reviewed participant.
func (h *HostAnalyst) SetReview(reviewedName string, r *core.Review) {
	h.mu.Lock()
	defer h.mu.Unlock()
	clone := *r
	clone.ReviewerName = core.HostAnalystName
	clone.ReviewedName = reviewedName
	h.reviews[reviewedName] = &clone
}

// SetDebate fills the debate slot.
func (h *HostAnalyst) SetDebate(d *core.DebateOutcome) {
	h.mu.Lock()
	defer h.mu.Unlock()
	clone := *d
	clone.ParticipantName = core.HostAnalystName
	h.debate = &clone
}

// Analysis returns the injected analysis or a placeholder.
func (h *HostAnalyst) Analysis() *core.Analysis {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.analysis != nil {
		clone := *h.analysis
		return &clone
	}
	return &core.Analysis{
		ParticipantName:    core.HostAnalystName,
		ParticipantVersion: HostVersion,
		AnalysisText:       "[host analysis pending - inject one before running]",
		Conclusion:         "[no host conclusion set]",
		Placeholder:        true,
	}
}

// ReviewFor returns the injected review of reviewedName or a placeholder.
func (h *HostAnalyst) ReviewFor(reviewedName string) *core.Review {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if r, ok := h.reviews[reviewedName]; ok {
		clone := *r
		return &clone
	}
	return &core.Review{
		ReviewerName: core.HostAnalystName,
		ReviewedName: reviewedName,
		Feedback:     fmt.Sprintf("[host review of %s pending]", reviewedName),
		Placeholder:  true,
	}
}

// DebateOutcome returns the injected debate result or a placeholder.
func (h *HostAnalyst) DebateOutcome() *core.DebateOutcome {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.debate != nil {
		clone := *h.debate
		return &clone
	}
	return &core.DebateOutcome{
		ParticipantName: core.HostAnalystName,
		FlatPosition:    "[host debate outcome pending]",
		Placeholder:     true,
	}
}

// Reset clears every slot. Used between rounds when the caller wants to
// re-inject fresh contributions.
func (h *HostAnalyst) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.analysis = nil
	h.debate = nil
	h.reviews = make(map[string]*core.Review)
}
