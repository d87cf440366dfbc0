package service

import (
	"math"
	"testing"

	"github.com/hugo-lorenzo-mato/consilium/internal/core"
)

func analysisWith(name, conclusion string) *core.Analysis {
	return &core.Analysis{
		ParticipantName: name,
		AnalysisText:    "A sufficiently long analysis body that passes the validator checks.",
		Conclusion:      conclusion,
		Confidence:      0.9,
		HasConfidence:   true,
	}
}

func TestCheckConsensus_NotEnoughAnalyses(t *testing.T) {
	checker := NewConsensusChecker(0.8)

	for _, analyses := range [][]*core.Analysis{
		nil,
		{analysisWith("gpt", "use redis")},
	} {
		result := checker.CheckConsensus(analyses)
		if result.Status != core.StatusNoConsensus {
			t.Errorf("Status = %v, want NO_CONSENSUS", result.Status)
		}
		if result.NextAction != core.ActionNeedMoreAnalyses {
			t.Errorf("NextAction = %v, want NEED_MORE_ANALYSES", result.NextAction)
		}
	}
}

func TestCheckConsensus_AllConclusionsEmpty(t *testing.T) {
	checker := NewConsensusChecker(0.8)

	result := checker.CheckConsensus([]*core.Analysis{
		analysisWith("gpt", "   "),
		analysisWith("gemini", ""),
	})

	if result.Status != core.StatusNoConsensus {
		t.Errorf("Status = %v, want NO_CONSENSUS", result.Status)
	}
	if reason := result.Details["reason"]; reason != "all conclusions empty" {
		t.Errorf("reason = %v, want all conclusions empty", reason)
	}
}

func TestCheckConsensus_UnanimousIsFullAtAnyThreshold(t *testing.T) {
	// If every participant returns the same normalised conclusion, status
	// is FULL_CONSENSUS at 100% regardless of threshold.
	for _, threshold := range []float64{0.5, 0.8, 1.0} {
		checker := NewConsensusChecker(threshold)
		result := checker.CheckConsensus([]*core.Analysis{
			analysisWith("gpt", "Use Redis for distributed caching"),
			analysisWith("gemini", "use  redis for Distributed caching"),
			analysisWith("host", "USE REDIS FOR DISTRIBUTED CACHING"),
		})

		if result.Status != core.StatusFullConsensus {
			t.Errorf("threshold %v: Status = %v, want FULL_CONSENSUS", threshold, result.Status)
		}
		if result.ConsensusPercentage != 1.0 {
			t.Errorf("threshold %v: percentage = %v, want 1.0", threshold, result.ConsensusPercentage)
		}
		if result.NextAction != core.ActionNone {
			t.Errorf("threshold %v: NextAction = %v, want none", threshold, result.NextAction)
		}
	}
}

func TestCheckConsensus_ThresholdBoundary(t *testing.T) {
	analyses := []*core.Analysis{
		analysisWith("gpt", "use postgres for the primary datastore"),
		analysisWith("gemini", "use postgres for the primary datastore"),
		analysisWith("host", "adopt kafka as the event backbone"),
	}

	tests := []struct {
		name       string
		threshold  float64
		wantStatus core.ConsensusStatus
		wantAction core.NextAction
	}{
		{name: "threshold at two thirds", threshold: 2.0 / 3.0, wantStatus: core.StatusFullConsensus, wantAction: core.ActionNone},
		{name: "threshold below two thirds", threshold: 0.6, wantStatus: core.StatusFullConsensus, wantAction: core.ActionNone},
		{name: "threshold above two thirds", threshold: 0.8, wantStatus: core.StatusPartialConsensus, wantAction: core.ActionCrossReview},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NewConsensusChecker(tt.threshold).CheckConsensus(analyses)

			if math.Abs(result.ConsensusPercentage-2.0/3.0) > 1e-12 {
				t.Errorf("percentage = %v, want 2/3", result.ConsensusPercentage)
			}
			if result.Status != tt.wantStatus {
				t.Errorf("Status = %v, want %v", result.Status, tt.wantStatus)
			}
			if result.NextAction != tt.wantAction {
				t.Errorf("NextAction = %v, want %v", result.NextAction, tt.wantAction)
			}
		})
	}
}

func TestCheckConsensus_SemanticClusteringNonExact(t *testing.T) {
	// Same salient terms, different phrasing: clusters at the default 0.3
	// similarity threshold even though the strings differ.
	checker := NewConsensusChecker(0.8)
	result := checker.CheckConsensus([]*core.Analysis{
		analysisWith("gpt", "Use Redis for caching to improve API response times and reduce database load"),
		analysisWith("gemini", "Redis caching is recommended to improve API response times and reduce database load"),
	})

	if result.Status != core.StatusFullConsensus {
		t.Errorf("Status = %v, want FULL_CONSENSUS (clustered paraphrase)", result.Status)
	}
	if result.ConsensusPercentage != 1.0 {
		t.Errorf("percentage = %v, want 1.0", result.ConsensusPercentage)
	}
}

func TestCheckConsensus_ThreeWaySplit(t *testing.T) {
	checker := NewConsensusChecker(0.8)
	result := checker.CheckConsensus([]*core.Analysis{
		analysisWith("gpt", "rust"),
		analysisWith("gemini", "go"),
		analysisWith("host", "python"),
	})

	if result.Status != core.StatusNoConsensus {
		t.Errorf("Status = %v, want NO_CONSENSUS", result.Status)
	}
	if result.NextAction != core.ActionDebate {
		t.Errorf("NextAction = %v, want DEBATE", result.NextAction)
	}
	if len(result.AgreedItems) != 1 || len(result.DisputedItems) != 2 {
		t.Errorf("agreed/disputed = %d/%d, want 1/2", len(result.AgreedItems), len(result.DisputedItems))
	}
	// Tie-break: the cluster anchored by the first input wins.
	if result.AgreedItems[0].Conclusion != "rust" {
		t.Errorf("agreed anchor = %q, want rust", result.AgreedItems[0].Conclusion)
	}
	if result.AgreedItems[0].Participants[0] != "gpt" {
		t.Errorf("agreed participants = %v, want [gpt]", result.AgreedItems[0].Participants)
	}
}

func TestCheckConsensus_ClusterItemsCarryParticipants(t *testing.T) {
	checker := NewConsensusChecker(0.8)
	result := checker.CheckConsensus([]*core.Analysis{
		analysisWith("gpt", "use kong as the api gateway"),
		analysisWith("gemini", "adopt linkerd service mesh"),
		analysisWith("host", "use kong as the api gateway"),
	})

	if result.Status != core.StatusPartialConsensus {
		t.Fatalf("Status = %v, want PARTIAL_CONSENSUS", result.Status)
	}
	agreed := result.AgreedItems[0]
	if agreed.Count != 2 {
		t.Errorf("agreed count = %d, want 2", agreed.Count)
	}
	if agreed.Participants[0] != "gpt" || agreed.Participants[1] != "host" {
		t.Errorf("agreed participants = %v, want [gpt host]", agreed.Participants)
	}
}

func TestCheckCrossReviewConsensus(t *testing.T) {
	checker := NewConsensusChecker(0.8)

	tests := []struct {
		name       string
		reviews    []*core.Review
		wantStatus core.ConsensusStatus
		wantAction core.NextAction
		wantRatio  float64
	}{
		{
			name:       "no reviews",
			reviews:    nil,
			wantStatus: core.StatusNoConsensus,
			wantAction: core.ActionNeedReviews,
		},
		{
			name: "full agreement",
			reviews: []*core.Review{
				{AgreementPoints: []string{"a", "b", "c", "d"}},
				{AgreementPoints: []string{"e", "f", "g", "h"}},
			},
			wantStatus: core.StatusFullConsensus,
			wantAction: core.ActionNone,
			wantRatio:  1.0,
		},
		{
			name: "partial routes to debate",
			reviews: []*core.Review{
				{AgreementPoints: []string{"a", "b", "c"}, DisagreementPoints: []string{"x"}},
				{AgreementPoints: []string{"d"}, DisagreementPoints: []string{"y"}},
			},
			wantStatus: core.StatusPartialConsensus,
			wantAction: core.ActionDebate,
			wantRatio:  4.0 / 6.0,
		},
		{
			name: "mostly disagreement",
			reviews: []*core.Review{
				{AgreementPoints: []string{"a"}, DisagreementPoints: []string{"x", "y", "z"}},
			},
			wantStatus: core.StatusNoConsensus,
			wantAction: core.ActionDebate,
			wantRatio:  0.25,
		},
		{
			name:       "no points at all",
			reviews:    []*core.Review{{Feedback: "looks fine"}},
			wantStatus: core.StatusNoConsensus,
			wantAction: core.ActionDebate,
			wantRatio:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := checker.CheckCrossReviewConsensus(tt.reviews)
			if result.Status != tt.wantStatus {
				t.Errorf("Status = %v, want %v", result.Status, tt.wantStatus)
			}
			if result.NextAction != tt.wantAction {
				t.Errorf("NextAction = %v, want %v", result.NextAction, tt.wantAction)
			}
			if math.Abs(result.ConsensusPercentage-tt.wantRatio) > 1e-12 {
				t.Errorf("ratio = %v, want %v", result.ConsensusPercentage, tt.wantRatio)
			}
		})
	}
}

func TestNormalizeConclusion(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  Use   Redis  ", "use redis"},
		{"ALL CAPS\tTABBED", "all caps tabbed"},
		{"", ""},
		{"  \n ", ""},
	}
	for _, tt := range tests {
		if got := NormalizeConclusion(tt.in); got != tt.want {
			t.Errorf("NormalizeConclusion(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
