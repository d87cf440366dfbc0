package service

import (
	"strings"

	"github.com/hugo-lorenzo-mato/consilium/internal/core"
	"github.com/hugo-lorenzo-mato/consilium/internal/semantic"
)

// ConsensusChecker maps a snapshot of analyses to a consensus judgement.
type ConsensusChecker struct {
	threshold  float64
	comparator *semantic.Comparator
}

// NewConsensusChecker creates a checker with the given quorum threshold and
// the default similarity threshold for conclusion clustering.
func NewConsensusChecker(threshold float64) *ConsensusChecker {
	return NewConsensusCheckerWithSimilarity(threshold, core.DefaultSimilarityThreshold)
}

// NewConsensusCheckerWithSimilarity creates a checker with explicit quorum
// and similarity thresholds. The two are deliberately distinct numbers: the
// quorum threshold decides FULL_CONSENSUS, the similarity threshold decides
// whether two short conclusions mean the same thing.
func NewConsensusCheckerWithSimilarity(threshold, similarity float64) *ConsensusChecker {
	return &ConsensusChecker{
		threshold:  threshold,
		comparator: semantic.NewComparator(similarity),
	}
}

// Threshold returns the quorum threshold.
func (c *ConsensusChecker) Threshold() float64 { return c.threshold }

// CheckConsensus evaluates agreement by semantic clustering of conclusions.
// Analyses are expected to be pre-filtered for validity; iteration order of
// the slice defines all tie-breaks.
func (c *ConsensusChecker) CheckConsensus(analyses []*core.Analysis) *core.ConsensusResult {
	if len(analyses) < 2 {
		return &core.ConsensusResult{
			Status:     core.StatusNoConsensus,
			NextAction: core.ActionNeedMoreAnalyses,
			Details:    map[string]interface{}{"reason": "not enough analyses to compare"},
		}
	}

	conclusions := make([]string, len(analyses))
	names := make([]string, len(analyses))
	allEmpty := true
	for i, a := range analyses {
		conclusions[i] = NormalizeConclusion(a.Conclusion)
		names[i] = a.ParticipantName
		if conclusions[i] != "" {
			allEmpty = false
		}
	}

	if allEmpty {
		return &core.ConsensusResult{
			Status:     core.StatusNoConsensus,
			NextAction: core.ActionNeedMoreAnalyses,
			Details:    map[string]interface{}{"reason": "all conclusions empty"},
		}
	}

	comparison := c.comparator.Compare(conclusions)

	// Largest cluster wins; ties go to the cluster whose anchor appeared
	// first in the input.
	largest := 0
	for i, cluster := range comparison.Clusters {
		if len(cluster) > len(comparison.Clusters[largest]) {
			largest = i
		}
	}

	var agreed, disputed []core.ClusterItem
	for i, cluster := range comparison.Clusters {
		item := core.ClusterItem{
			Conclusion: conclusions[cluster[0]],
			Count:      len(cluster),
		}
		for _, idx := range cluster {
			item.Participants = append(item.Participants, names[idx])
		}
		if i == largest {
			agreed = append(agreed, item)
		} else {
			disputed = append(disputed, item)
		}
	}

	percentage := float64(len(comparison.Clusters[largest])) / float64(len(analyses))
	status, next := c.decide(percentage, core.ActionCrossReview)

	return &core.ConsensusResult{
		Status:              status,
		ConsensusPercentage: percentage,
		AgreedItems:         agreed,
		DisputedItems:       disputed,
		NextAction:          next,
		Details: map[string]interface{}{
			"total_analyses":  len(analyses),
			"unique_clusters": len(comparison.Clusters),
			"max_similarity":  comparison.MaxSimilarity,
		},
	}
}

// CheckCrossReviewConsensus evaluates agreement from cross-review feedback.
// A partial result routes to DEBATE rather than another review pass since
// review already happened.
func (c *ConsensusChecker) CheckCrossReviewConsensus(reviews []*core.Review) *core.ConsensusResult {
	if len(reviews) == 0 {
		return &core.ConsensusResult{
			Status:     core.StatusNoConsensus,
			NextAction: core.ActionNeedReviews,
		}
	}

	agree, disagree := 0, 0
	for _, r := range reviews {
		agree += len(r.AgreementPoints)
		disagree += len(r.DisagreementPoints)
	}

	ratio := 0.0
	if total := agree + disagree; total > 0 {
		ratio = float64(agree) / float64(total)
	}

	status, next := c.decide(ratio, core.ActionDebate)

	return &core.ConsensusResult{
		Status:              status,
		ConsensusPercentage: ratio,
		NextAction:          next,
		Details: map[string]interface{}{
			"total_reviews":       len(reviews),
			"agreement_points":    agree,
			"disagreement_points": disagree,
		},
	}
}

// decide applies the threshold table. partialAction is the next action for a
// partial result (CROSS_REVIEW on first check, DEBATE after review).
func (c *ConsensusChecker) decide(percentage float64, partialAction core.NextAction) (core.ConsensusStatus, core.NextAction) {
	switch {
	case percentage >= c.threshold:
		return core.StatusFullConsensus, core.ActionNone
	case percentage >= 0.5:
		return core.StatusPartialConsensus, partialAction
	default:
		return core.StatusNoConsensus, core.ActionDebate
	}
}

// NormalizeConclusion lowercases, trims and collapses internal whitespace.
func NormalizeConclusion(conclusion string) string {
	return strings.Join(strings.Fields(strings.ToLower(conclusion)), " ")
}
