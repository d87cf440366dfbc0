// Package testutil provides scripted fakes for debate tests.
package testutil

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/hugo-lorenzo-mato/consilium/internal/core"
)

// FakeParticipant is a scriptable external analyst. Zero-value behavior:
// preflight succeeds and every operation returns a minimal valid result.
type FakeParticipant struct {
	ParticipantName string
	Version         string

	// Conclusion drives the analysis result. Conclusions, when non-empty,
	// is consumed one element per analyze call (last element repeats).
	Conclusion  string
	Conclusions []string
	Confidence  float64
	Text        string
	KeyPoints   []string

	// Errors to inject.
	PreflightErr error
	AnalyzeErr   error
	ReviewErr    error
	DebateErr    error

	// PreflightBlocks makes Preflight hang until its context is done.
	PreflightBlocks bool

	// Review scripting.
	AgreementPoints    []string
	DisagreementPoints []string

	// Debate scripting. DebateConclusion overrides the updated position;
	// FlatDebate returns the position as a flat string instead.
	DebateConclusion string
	FlatDebate       string

	analyzeCalls   atomic.Int64
	reviewCalls    atomic.Int64
	debateCalls    atomic.Int64
	preflightCalls atomic.Int64
}

// Name implements core.Participant.
func (f *FakeParticipant) Name() string { return f.ParticipantName }

// Preflight implements core.Participant.
func (f *FakeParticipant) Preflight(ctx context.Context) error {
	f.preflightCalls.Add(1)
	if f.PreflightBlocks {
		<-ctx.Done()
		return ctx.Err()
	}
	return f.PreflightErr
}

// Analyze implements core.Participant.
func (f *FakeParticipant) Analyze(ctx context.Context, task, _ string) (*core.Analysis, error) {
	call := f.analyzeCalls.Add(1)
	if f.AnalyzeErr != nil {
		return nil, f.AnalyzeErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	conclusion := f.Conclusion
	if len(f.Conclusions) > 0 {
		idx := int(call) - 1
		if idx >= len(f.Conclusions) {
			idx = len(f.Conclusions) - 1
		}
		conclusion = f.Conclusions[idx]
	}

	text := f.Text
	if text == "" {
		text = strings.Repeat("Detailed assessment of the task at hand. ", 3)
	}
	confidence := f.Confidence
	if confidence == 0 {
		confidence = 0.85
	}

	return &core.Analysis{
		ParticipantVersion: f.Version,
		AnalysisText:       text,
		Conclusion:         conclusion,
		Confidence:         confidence,
		HasConfidence:      true,
		KeyPoints:          f.KeyPoints,
	}, nil
}

// Review implements core.Participant.
func (f *FakeParticipant) Review(ctx context.Context, _ string, peer, _ *core.Analysis) (*core.Review, error) {
	f.reviewCalls.Add(1)
	if f.ReviewErr != nil {
		return nil, f.ReviewErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &core.Review{
		Feedback:           "Assessment of " + peer.ParticipantName,
		AgreementPoints:    f.AgreementPoints,
		DisagreementPoints: f.DisagreementPoints,
	}, nil
}

// Debate implements core.Participant.
func (f *FakeParticipant) Debate(ctx context.Context, _ string, own *core.Analysis, _ []*core.Analysis) (*core.DebateOutcome, error) {
	f.debateCalls.Add(1)
	if f.DebateErr != nil {
		return nil, f.DebateErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.FlatDebate != "" {
		return &core.DebateOutcome{FlatPosition: f.FlatDebate}, nil
	}
	conclusion := f.DebateConclusion
	if conclusion == "" {
		conclusion = own.Conclusion
	}
	return &core.DebateOutcome{
		UpdatedPosition: &core.Position{
			Conclusion: conclusion,
			Confidence: own.Confidence,
		},
		Rebuttals: []string{"Holding position after considering opposing views"},
	}, nil
}

// AnalyzeCalls returns how many analyze calls were made.
func (f *FakeParticipant) AnalyzeCalls() int { return int(f.analyzeCalls.Load()) }

// ReviewCalls returns how many review calls were made.
func (f *FakeParticipant) ReviewCalls() int { return int(f.reviewCalls.Load()) }

// DebateCalls returns how many debate calls were made.
func (f *FakeParticipant) DebateCalls() int { return int(f.debateCalls.Load()) }

// PreflightCalls returns how many preflight calls were made.
func (f *FakeParticipant) PreflightCalls() int { return int(f.preflightCalls.Load()) }

// ValidAnalysis builds a valid analysis for host injection in tests.
func ValidAnalysis(conclusion string) *core.Analysis {
	return &core.Analysis{
		AnalysisText:  strings.Repeat("Considered view of the problem space. ", 3),
		Conclusion:    conclusion,
		Confidence:    0.9,
		HasConfidence: true,
	}
}

var _ core.Participant = (*FakeParticipant)(nil)
