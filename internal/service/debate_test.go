package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hugo-lorenzo-mato/consilium/internal/core"
	"github.com/hugo-lorenzo-mato/consilium/internal/store"
	"github.com/hugo-lorenzo-mato/consilium/internal/testutil"
)

func newTestDebate(t *testing.T, task string, cfg *DebateConfig) (*Debate, *store.DebateStore) {
	t.Helper()
	debateStore := store.New(t.TempDir())
	debate, err := NewDebate(task, cfg, debateStore, nil, WithTaskID("debate_test_"+strings.ReplaceAll(t.Name(), "/", "_")))
	if err != nil {
		t.Fatalf("NewDebate() = %v", err)
	}
	return debate, debateStore
}

func TestNewDebate_Validation(t *testing.T) {
	debateStore := store.New(t.TempDir())

	if _, err := NewDebate("   ", nil, debateStore, nil); err == nil {
		t.Error("empty task accepted")
	}

	cfg := DefaultDebateConfig()
	cfg.ConsensusThreshold = 0.3
	if _, err := NewDebate("task", cfg, debateStore, nil); err == nil {
		t.Error("threshold below 0.5 accepted")
	}

	cfg = DefaultDebateConfig()
	cfg.MaxRounds = 0
	if _, err := NewDebate("task", cfg, debateStore, nil); err == nil {
		t.Error("zero max rounds accepted")
	}
}

func TestRun_ImmediateConsensus(t *testing.T) {
	// Three participants, same conclusion: one round, no review, no debate.
	cfg := DefaultDebateConfig()
	cfg.IncludeHost = false
	debate, debateStore := newTestDebate(t, "Pick a caching layer", cfg)

	participants := []*testutil.FakeParticipant{
		{ParticipantName: "gpt", Conclusion: "Use Redis for distributed caching"},
		{ParticipantName: "gemini", Conclusion: "Use Redis for distributed caching"},
		{ParticipantName: "grok", Conclusion: "Use Redis for distributed caching"},
	}
	for _, p := range participants {
		if err := debate.RegisterParticipant(p); err != nil {
			t.Fatalf("RegisterParticipant(%s) = %v", p.ParticipantName, err)
		}
	}

	dossier, err := debate.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() = %v", err)
	}

	if dossier.Status != core.StatusFullConsensus {
		t.Errorf("Status = %v, want FULL_CONSENSUS", dossier.Status)
	}
	if dossier.TotalRounds != 0 {
		t.Errorf("TotalRounds = %d, want 0", dossier.TotalRounds)
	}
	if dossier.ConsensusPercentage != 1.0 {
		t.Errorf("percentage = %v, want 1.0", dossier.ConsensusPercentage)
	}
	if got := dossier.FinalStrategy.Conclusion; got != "use redis for distributed caching" {
		t.Errorf("strategy conclusion = %q", got)
	}

	taskDir := debateStore.TaskDir(debate.TaskID())
	for _, p := range participants {
		path := filepath.Join(taskDir, "round_00", p.ParticipantName+".md")
		if _, err := os.Stat(path); err != nil {
			t.Errorf("missing analysis artifact %s: %v", path, err)
		}
	}
	if _, err := os.Stat(filepath.Join(taskDir, "FINAL.md")); err != nil {
		t.Errorf("missing FINAL.md: %v", err)
	}
	for _, p := range participants {
		if p.ReviewCalls() != 0 || p.DebateCalls() != 0 {
			t.Errorf("%s: review/debate called on immediate consensus", p.ParticipantName)
		}
	}
}

func TestRun_PartialThenCrossReview(t *testing.T) {
	// Host + two externals, 2-vs-1 split at threshold 0.8: partial
	// consensus routes through cross-review.
	cfg := DefaultDebateConfig()
	cfg.MaxRounds = 2
	debate, debateStore := newTestDebate(t, "Pick an api gateway", cfg)

	a := &testutil.FakeParticipant{
		ParticipantName:    "gpt",
		Conclusion:         "use kong as the api gateway",
		AgreementPoints:    []string{"both favour managed gateways", "both want rate limiting"},
		DisagreementPoints: []string{"proxy layer choice"},
	}
	b := &testutil.FakeParticipant{
		ParticipantName:    "gemini",
		Conclusion:         "adopt envoy as the proxy",
		AgreementPoints:    []string{"rate limiting matters"},
		DisagreementPoints: []string{"gateway product"},
	}
	_ = debate.RegisterParticipant(a)
	_ = debate.RegisterParticipant(b)
	debate.SetHostAnalysis(testutil.ValidAnalysis("use kong as the api gateway"))

	dossier, err := debate.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() = %v", err)
	}

	switch dossier.Status {
	case core.StatusFullConsensus, core.StatusPartialConsensus, core.StatusNoConsensus:
	default:
		t.Errorf("Status = %v, want a consensus status", dossier.Status)
	}

	if a.ReviewCalls() == 0 || b.ReviewCalls() == 0 {
		t.Error("cross review was not exercised")
	}

	reviewsDir := filepath.Join(debateStore.TaskDir(debate.TaskID()), "round_00", "reviews")
	entries, err := os.ReadDir(reviewsDir)
	if err != nil {
		t.Fatalf("reading reviews dir: %v", err)
	}
	if len(entries) == 0 {
		t.Error("round_00/reviews is empty")
	}
	for _, e := range entries {
		if !strings.Contains(e.Name(), "__reviews__") {
			t.Errorf("unexpected review file name %q", e.Name())
		}
	}
}

func TestRun_ThreeWaySplitDebates(t *testing.T) {
	// A three-way split goes straight to debate; with rounds left the
	// orchestrator re-enters a new round.
	cfg := DefaultDebateConfig()
	cfg.MaxRounds = 2
	cfg.IncludeHost = false
	debate, debateStore := newTestDebate(t, "Pick a language", cfg)

	participants := []*testutil.FakeParticipant{
		{ParticipantName: "gpt", Conclusion: "rust"},
		{ParticipantName: "gemini", Conclusion: "go"},
		{ParticipantName: "grok", Conclusion: "python"},
	}
	for _, p := range participants {
		_ = debate.RegisterParticipant(p)
	}

	dossier, err := debate.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() = %v", err)
	}

	if dossier.Status != core.StatusNoConsensus {
		t.Errorf("Status = %v, want NO_CONSENSUS", dossier.Status)
	}
	if dossier.TotalRounds != 2 {
		t.Errorf("TotalRounds = %d, want 2 (budget exhausted)", dossier.TotalRounds)
	}

	debatesDir := filepath.Join(debateStore.TaskDir(debate.TaskID()), "round_00", "debates")
	for _, p := range participants {
		if _, err := os.Stat(filepath.Join(debatesDir, p.ParticipantName+".md")); err != nil {
			t.Errorf("missing debate artifact for %s: %v", p.ParticipantName, err)
		}
		if p.ReviewCalls() != 0 {
			t.Errorf("%s: review called on a NO_CONSENSUS round", p.ParticipantName)
		}
		// Two rounds, one analyze each.
		if p.AnalyzeCalls() != 2 {
			t.Errorf("%s: AnalyzeCalls = %d, want 2", p.ParticipantName, p.AnalyzeCalls())
		}
	}
	if _, err := os.Stat(filepath.Join(debateStore.TaskDir(debate.TaskID()), "round_01")); err != nil {
		t.Errorf("second round directory missing: %v", err)
	}
}

func TestRun_DebateUpdatesPositions(t *testing.T) {
	// After a debate round, evolved conclusions feed the next consensus
	// check: here everyone converges on round 1.
	cfg := DefaultDebateConfig()
	cfg.MaxRounds = 3
	cfg.IncludeHost = false
	debate, _ := newTestDebate(t, "Pick a language", cfg)

	converged := "settle on go for the backend"
	participants := []*testutil.FakeParticipant{
		{ParticipantName: "gpt", Conclusions: []string{"rust", converged}, DebateConclusion: converged},
		{ParticipantName: "gemini", Conclusions: []string{"go", converged}, DebateConclusion: converged},
		{ParticipantName: "grok", Conclusions: []string{"python", converged}, FlatDebate: converged},
	}
	for _, p := range participants {
		_ = debate.RegisterParticipant(p)
	}

	dossier, err := debate.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() = %v", err)
	}

	if dossier.Status != core.StatusFullConsensus {
		t.Errorf("Status = %v, want FULL_CONSENSUS after convergence", dossier.Status)
	}
	if dossier.TotalRounds != 1 {
		t.Errorf("TotalRounds = %d, want 1", dossier.TotalRounds)
	}
}

func TestRun_GracefulParticipantFailure(t *testing.T) {
	// One analyze call fails; the other external and the host carry the round.
	cfg := DefaultDebateConfig()
	debate, _ := newTestDebate(t, "Assess the rollout plan", cfg)

	ok := &testutil.FakeParticipant{ParticipantName: "gpt", Conclusion: "ship it behind a flag"}
	broken := &testutil.FakeParticipant{
		ParticipantName: "gemini",
		AnalyzeErr:      errors.New("connection reset by peer"),
	}
	_ = debate.RegisterParticipant(ok)
	_ = debate.RegisterParticipant(broken)
	debate.SetHostAnalysis(testutil.ValidAnalysis("ship it behind a flag"))

	dossier, err := debate.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() = %v", err)
	}

	if dossier.Status != core.StatusFullConsensus {
		t.Errorf("Status = %v, want FULL_CONSENSUS from survivors", dossier.Status)
	}
	reason, recorded := dossier.FailedParticipants["gemini"]
	if !recorded {
		t.Fatal("gemini missing from failed participants")
	}
	if !strings.Contains(reason, "connection reset") {
		t.Errorf("failure reason = %q", reason)
	}
	supporting := dossier.FinalStrategy.SupportingParticipants
	if len(supporting) != 2 {
		t.Errorf("supporting participants = %v, want the two survivors", supporting)
	}
}

func TestRun_StrictWithoutExternals(t *testing.T) {
	// Strict mode with an empty external registry fails before any analysis.
	cfg := DefaultDebateConfig()
	cfg.Strict = true
	debate, debateStore := newTestDebate(t, "Anything", cfg)
	debate.SetHostAnalysis(testutil.ValidAnalysis("does not matter"))

	_, err := debate.Run(context.Background())
	if !core.IsNoParticipants(err) {
		t.Fatalf("Run() = %v, want NoAvailableParticipants", err)
	}
	if _, statErr := os.Stat(filepath.Join(debateStore.TaskDir(debate.TaskID()), "round_00")); !os.IsNotExist(statErr) {
		t.Error("round_00 exists, Phase 1 must not have run")
	}
}

func TestRun_StrictAfterPreflightPrune(t *testing.T) {
	cfg := DefaultDebateConfig()
	cfg.Strict = true
	debate, _ := newTestDebate(t, "Anything", cfg)
	_ = debate.RegisterParticipant(&testutil.FakeParticipant{
		ParticipantName: "gpt",
		PreflightErr:    errors.New("401 unauthorized"),
	})

	_, err := debate.Run(context.Background())
	if !core.IsNoParticipants(err) {
		t.Fatalf("Run() = %v, want NoAvailableParticipants", err)
	}
}

func TestRun_PreflightPruning(t *testing.T) {
	cfg := DefaultDebateConfig()
	cfg.IncludeHost = false
	debate, _ := newTestDebate(t, "Assess the design", cfg)

	healthy := &testutil.FakeParticipant{ParticipantName: "gpt", Conclusion: "approve"}
	dead := &testutil.FakeParticipant{
		ParticipantName: "gemini",
		Conclusion:      "approve",
		PreflightErr:    errors.New("token expired"),
	}
	_ = debate.RegisterParticipant(healthy)
	_ = debate.RegisterParticipant(dead)

	dossier, err := debate.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() = %v", err)
	}

	if dead.AnalyzeCalls() != 0 {
		t.Error("preflight-failed participant was still asked to analyze")
	}
	if _, ok := dossier.FailedParticipants["gemini"]; !ok {
		t.Error("preflight failure not recorded")
	}
}

func TestRun_PlaceholderHostExcluded(t *testing.T) {
	// An unfilled host slot yields a placeholder the validator rejects;
	// the round proceeds without the host.
	cfg := DefaultDebateConfig()
	debate, _ := newTestDebate(t, "Assess the design", cfg)
	_ = debate.RegisterParticipant(&testutil.FakeParticipant{ParticipantName: "gpt", Conclusion: "approve the design"})
	_ = debate.RegisterParticipant(&testutil.FakeParticipant{ParticipantName: "gemini", Conclusion: "approve the design"})
	// No SetHostAnalysis.

	dossier, err := debate.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() = %v", err)
	}

	if dossier.Status != core.StatusFullConsensus {
		t.Errorf("Status = %v, want FULL_CONSENSUS from externals alone", dossier.Status)
	}
	if _, ok := dossier.FailedParticipants[core.HostAnalystName]; !ok {
		t.Error("placeholder host not recorded in failed participants")
	}
	for _, name := range dossier.FinalStrategy.SupportingParticipants {
		if name == core.HostAnalystName {
			t.Error("placeholder host appears in supporting participants")
		}
	}
}

func TestRun_ParticipantVersionPreserved(t *testing.T) {
	// The verbatim provider version must appear unmodified on disk.
	const version = "gpt-5.3-codex-20260201"
	cfg := DefaultDebateConfig()
	cfg.IncludeHost = false
	debate, debateStore := newTestDebate(t, "Version check", cfg)
	_ = debate.RegisterParticipant(&testutil.FakeParticipant{
		ParticipantName: "gpt", Version: version, Conclusion: "fine",
	})
	_ = debate.RegisterParticipant(&testutil.FakeParticipant{
		ParticipantName: "gemini", Conclusion: "fine",
	})

	if _, err := debate.Run(context.Background()); err != nil {
		t.Fatalf("Run() = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(debateStore.TaskDir(debate.TaskID()), "round_00", "gpt.md"))
	if err != nil {
		t.Fatalf("reading artifact: %v", err)
	}
	if !strings.Contains(string(data), version) {
		t.Errorf("artifact does not contain version %q", version)
	}
}

func TestRun_Cancellation(t *testing.T) {
	cfg := DefaultDebateConfig()
	cfg.IncludeHost = false
	debate, debateStore := newTestDebate(t, "Cancelled work", cfg)
	_ = debate.RegisterParticipant(&testutil.FakeParticipant{ParticipantName: "gpt", Conclusion: "x"})
	_ = debate.RegisterParticipant(&testutil.FakeParticipant{ParticipantName: "gemini", Conclusion: "y"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := debate.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() = %v, want context.Canceled", err)
	}
	if _, statErr := os.Stat(filepath.Join(debateStore.TaskDir(debate.TaskID()), "FINAL.md")); !os.IsNotExist(statErr) {
		t.Error("FINAL.md written for a cancelled run")
	}
}

func TestRunVerification_Shape(t *testing.T) {
	// The verification shortcut never reviews, never debates, and never
	// creates a debates directory.
	cfg := DefaultDebateConfig()
	debate, debateStore := newTestDebate(t, "Is this implementation acceptable?", cfg)

	a := &testutil.FakeParticipant{ParticipantName: "gpt", Conclusion: "APPROVE"}
	b := &testutil.FakeParticipant{ParticipantName: "gemini", Conclusion: "APPROVE"}
	_ = debate.RegisterParticipant(a)
	_ = debate.RegisterParticipant(b)
	debate.SetHostAnalysis(testutil.ValidAnalysis("APPROVE"))

	result, err := debate.RunVerification(context.Background())
	if err != nil {
		t.Fatalf("RunVerification() = %v", err)
	}

	if result.Status != core.StatusFullConsensus {
		t.Errorf("Status = %v, want FULL_CONSENSUS", result.Status)
	}
	if len(result.AnalysesByName) != 3 {
		t.Errorf("AnalysesByName = %v, want three entries", result.AnalysesByName)
	}
	if a.ReviewCalls() != 0 || a.DebateCalls() != 0 || b.ReviewCalls() != 0 || b.DebateCalls() != 0 {
		t.Error("verification invoked review or debate operations")
	}
	if _, statErr := os.Stat(filepath.Join(debateStore.TaskDir(debate.TaskID()), "round_00", "debates")); !os.IsNotExist(statErr) {
		t.Error("verification produced a debates directory")
	}
}

func TestGetStatus(t *testing.T) {
	cfg := DefaultDebateConfig()
	debate, _ := newTestDebate(t, "Status check", cfg)
	_ = debate.RegisterParticipant(&testutil.FakeParticipant{ParticipantName: "gpt", Conclusion: "approve this"})
	_ = debate.RegisterParticipant(&testutil.FakeParticipant{ParticipantName: "gemini", Conclusion: "approve this"})
	debate.SetHostAnalysis(testutil.ValidAnalysis("approve this"))

	status := debate.GetStatus()
	if status.ConsensusStatus != "PENDING" {
		t.Errorf("initial ConsensusStatus = %v, want PENDING", status.ConsensusStatus)
	}
	if len(status.ParticipatingNames) != 3 {
		t.Errorf("ParticipatingNames = %v, want externals plus host", status.ParticipatingNames)
	}

	if _, err := debate.Run(context.Background()); err != nil {
		t.Fatalf("Run() = %v", err)
	}

	status = debate.GetStatus()
	if status.ConsensusStatus != core.StatusFullConsensus {
		t.Errorf("final ConsensusStatus = %v, want FULL_CONSENSUS", status.ConsensusStatus)
	}
}

func TestRun_HostReservedNameRegistration(t *testing.T) {
	debate, _ := newTestDebate(t, "Guard check", DefaultDebateConfig())
	err := debate.RegisterParticipant(&testutil.FakeParticipant{ParticipantName: "host"})
	var domErr *core.DomainError
	if !errors.As(err, &domErr) || domErr.Code != core.CodeReservedName {
		t.Fatalf("RegisterParticipant(host) = %v, want RESERVED_NAME", err)
	}
}

func TestAssembleDossier_DegenerateExit(t *testing.T) {
	debate, _ := newTestDebate(t, "Never ran", DefaultDebateConfig())
	dossier := debate.assembleDossier()
	if dossier.Status != core.StatusFailed {
		t.Errorf("Status = %v, want FAILED", dossier.Status)
	}
	if dossier.FinalStrategy.Conclusion != "" {
		t.Error("degenerate dossier must carry an empty strategy")
	}
}
