package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hugo-lorenzo-mato/consilium/internal/core"
	"github.com/hugo-lorenzo-mato/consilium/internal/events"
	"github.com/hugo-lorenzo-mato/consilium/internal/logging"
	"golang.org/x/sync/errgroup"
)

// DebateConfig tunes one debate run.
type DebateConfig struct {
	MaxRounds           int
	ConsensusThreshold  float64
	SimilarityThreshold float64
	IncludeHost         bool
	Strict              bool
	Strategy            StrategyType
}

// DefaultDebateConfig returns default configuration.
func DefaultDebateConfig() *DebateConfig {
	return &DebateConfig{
		MaxRounds:           core.DefaultMaxRounds,
		ConsensusThreshold:  core.DefaultConsensusThreshold,
		SimilarityThreshold: core.DefaultSimilarityThreshold,
		IncludeHost:         true,
		Strategy:            StrategyNormal,
	}
}

// Debate orchestrates the five-phase consensus workflow over a set of
// participants. It owns all debate state exclusively; state is mutated only
// between phase barriers, never while a fan-out is in flight.
type Debate struct {
	task   string
	taskID string
	config *DebateConfig

	registry  *ParticipantRegistry
	host      *HostAnalyst
	validator *IntegrityValidator
	checker   *ConsensusChecker
	tracker   *ConvergenceTracker
	store     core.ContextStore
	bus       *events.EventBus
	logger    *logging.Logger
	persister *RetryPolicy

	// mu guards the snapshot fields below for readers on other goroutines
	// (status API); the orchestrating goroutine is the only writer.
	mu              sync.RWMutex
	round           int
	currentOrder    []string
	currentAnalyses map[string]*core.Analysis
	lastConsensus   *core.ConsensusResult
	failed          map[string]string
}

// DebateOption configures a debate.
type DebateOption func(*Debate)

// WithTaskID overrides the generated task id.
func WithTaskID(id string) DebateOption {
	return func(d *Debate) { d.taskID = id }
}

// WithEventBus attaches an event bus for progress events.
func WithEventBus(bus *events.EventBus) DebateOption {
	return func(d *Debate) { d.bus = bus }
}

// NewDebate creates a debate orchestrator for one task.
func NewDebate(task string, config *DebateConfig, store core.ContextStore, logger *logging.Logger, opts ...DebateOption) (*Debate, error) {
	if strings.TrimSpace(task) == "" {
		return nil, core.ErrValidation(core.CodeEmptyTask, "task description cannot be empty")
	}
	if len(task) > core.MaxTaskLength {
		return nil, core.ErrValidation(core.CodeEmptyTask,
			fmt.Sprintf("task exceeds maximum length of %d characters", core.MaxTaskLength))
	}
	if config == nil {
		config = DefaultDebateConfig()
	}
	if config.ConsensusThreshold < core.MinConsensusThreshold || config.ConsensusThreshold > core.MaxConsensusThreshold {
		return nil, core.ErrValidation(core.CodeInvalidThreshold,
			fmt.Sprintf("consensus threshold %.2f outside [%.1f, %.1f]",
				config.ConsensusThreshold, core.MinConsensusThreshold, core.MaxConsensusThreshold))
	}
	if config.MaxRounds <= 0 {
		return nil, core.ErrValidation(core.CodeInvalidRounds, "max rounds must be positive")
	}
	if config.SimilarityThreshold <= 0 {
		config.SimilarityThreshold = core.DefaultSimilarityThreshold
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	d := &Debate{
		task:            task,
		taskID:          generateTaskID(),
		config:          config,
		registry:        NewParticipantRegistry(logger),
		host:            NewHostAnalyst(),
		validator:       NewIntegrityValidator(logger),
		checker:         NewConsensusCheckerWithSimilarity(config.ConsensusThreshold, config.SimilarityThreshold),
		tracker:         NewConvergenceTracker(3),
		store:           store,
		persister:       DefaultRetryPolicy(),
		currentAnalyses: make(map[string]*core.Analysis),
		failed:          make(map[string]string),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = logger.WithTask(d.taskID)
	return d, nil
}

// generateTaskID builds a unique, sortable debate id.
func generateTaskID() string {
	return fmt.Sprintf("debate_%s_%s",
		time.Now().Format("20060102_150405"),
		strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// TaskID returns the debate's task id.
func (d *Debate) TaskID() string { return d.taskID }

// RegisterParticipant adds an external analyst. The reserved host name is
// refused before any network I/O.
func (d *Debate) RegisterParticipant(p core.Participant, opts ...EntryOption) error {
	return d.registry.Register(p, opts...)
}

// UnregisterParticipant removes an external analyst by name.
func (d *Debate) UnregisterParticipant(name string) error {
	return d.registry.Unregister(name)
}

// SetHostAnalysis injects the host analyst's analysis slot.
func (d *Debate) SetHostAnalysis(a *core.Analysis) { d.host.SetAnalysis(a) }

// SetHostReview injects the host analyst's review slot for one peer.
func (d *Debate) SetHostReview(reviewedName string, r *core.Review) {
	d.host.SetReview(reviewedName, r)
}

// SetHostDebate injects the host analyst's debate slot.
func (d *Debate) SetHostDebate(o *core.DebateOutcome) { d.host.SetDebate(o) }

// Run executes the complete debate workflow and returns the final dossier.
// Only NoAvailableParticipants and cancellation surface as errors; every
// other failure is recorded in the dossier.
func (d *Debate) Run(ctx context.Context) (*core.FinalDossier, error) {
	if d.config.Strict && d.registry.Len() == 0 {
		return nil, core.ErrNoParticipants(
			"strict mode requires at least one external participant")
	}

	d.persist(ctx, func() error {
		return d.store.SaveTask(d.taskID, d.task, core.ArtifactMeta{Status: "RUNNING"})
	})

	// Preflight prunes dead participants before round 0. Single attempt.
	d.publish(events.NewPhaseStartedEvent(d.taskID, core.PhasePreflight.String(), 0))
	for name, reason := range d.registry.Preflight(ctx) {
		d.recordFailure(name, "preflight", reason)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if d.config.Strict && d.registry.Len() == 0 {
		return nil, core.ErrNoParticipants(fmt.Sprintf(
			"preflight eliminated all external participants: %v", d.failedNames()))
	}
	d.publish(events.NewPhaseCompletedEvent(d.taskID, core.PhasePreflight.String(), 0))

	for d.Round() < d.config.MaxRounds {
		round := d.Round()
		d.logger.Info("round started", "round", round, "max_rounds", d.config.MaxRounds)
		d.publish(events.NewRoundStartedEvent(d.taskID, round, d.config.MaxRounds))

		// Phase 1: parallel analysis.
		if err := d.runParallelAnalysis(ctx); err != nil {
			return nil, err
		}

		// Phase 2: consensus check. Purely local.
		result := d.checker.CheckConsensus(d.orderedAnalyses())
		d.setConsensus(result)
		d.tracker.AddScore(result.ConsensusPercentage)
		d.persist(ctx, func() error {
			return d.store.SaveConsensus(d.taskID, round, result)
		})
		d.logger.Info("consensus evaluated",
			"round", round,
			"status", result.Status,
			"percentage", result.ConsensusPercentage,
			"next_action", result.NextAction,
			"trend", d.tracker.GetTrend(),
		)
		d.publish(events.NewConsensusEvaluatedEvent(d.taskID, round, string(result.Status),
			result.ConsensusPercentage, string(result.NextAction), string(d.tracker.GetTrend())))

		if result.IsFull() {
			break
		}

		// Phase 3: cross review after partial consensus. The revised check
		// can only seal full consensus; it never widens the disputed set.
		runDebate := result.NextAction == core.ActionDebate
		if result.NextAction == core.ActionCrossReview {
			reviews, err := d.runCrossReview(ctx)
			if err != nil {
				return nil, err
			}
			revised := d.checker.CheckCrossReviewConsensus(reviews)
			d.publish(events.NewConsensusEvaluatedEvent(d.taskID, round, string(revised.Status),
				revised.ConsensusPercentage, string(revised.NextAction), string(d.tracker.GetTrend())))
			if revised.IsFull() {
				d.setConsensus(revised)
				d.persist(ctx, func() error {
					return d.store.SaveConsensus(d.taskID, round, revised)
				})
				break
			}
			runDebate = true
		}

		// Phase 4: debate round with evolved positions.
		if runDebate {
			shape := ShapeRound(d.config.Strategy, d.roundContext())
			if err := d.runDebateRound(ctx, shape); err != nil {
				return nil, err
			}
		}

		d.incRound()
	}

	// Phase 5: final dossier.
	dossier := d.assembleDossier()
	d.persist(ctx, func() error {
		return d.store.SaveFinal(d.taskID, dossier)
	})
	d.logger.Info("debate completed",
		"status", dossier.Status,
		"percentage", dossier.ConsensusPercentage,
		"total_rounds", dossier.TotalRounds,
	)
	d.publish(events.NewDebateCompletedEvent(d.taskID, string(dossier.Status),
		dossier.ConsensusPercentage, dossier.TotalRounds))
	return dossier, nil
}

// RunVerification is the reduced analyze-then-check workflow: one analysis
// fan-out, one consensus evaluation, no review, no debate, no extra rounds.
func (d *Debate) RunVerification(ctx context.Context) (*core.VerificationResult, error) {
	if d.config.Strict && d.registry.Len() == 0 {
		return nil, core.ErrNoParticipants(
			"strict mode requires at least one external participant")
	}

	d.persist(ctx, func() error {
		return d.store.SaveTask(d.taskID, d.task, core.ArtifactMeta{Status: "VERIFICATION"})
	})

	if err := d.runParallelAnalysis(ctx); err != nil {
		return nil, err
	}

	result := d.checker.CheckConsensus(d.orderedAnalyses())
	d.setConsensus(result)
	d.persist(ctx, func() error {
		return d.store.SaveConsensus(d.taskID, 0, result)
	})

	d.mu.RLock()
	defer d.mu.RUnlock()
	conclusions := make(map[string]string, len(d.currentAnalyses))
	for name, a := range d.currentAnalyses {
		conclusions[name] = a.Conclusion
	}
	return &core.VerificationResult{
		Status:              result.Status,
		ConsensusPercentage: result.ConsensusPercentage,
		AgreedItems:         result.AgreedItems,
		DisputedItems:       result.DisputedItems,
		AnalysesByName:      conclusions,
	}, nil
}

// GetStatus returns a live snapshot of the debate.
func (d *Debate) GetStatus() *core.DebateStatus {
	d.mu.RLock()
	defer d.mu.RUnlock()

	status := &core.DebateStatus{
		TaskID:             d.taskID,
		Round:              d.round,
		MaxRounds:          d.config.MaxRounds,
		ConsensusStatus:    "PENDING",
		RegisteredNames:    d.registry.Names(),
		IncludeHost:        d.config.IncludeHost,
		FailedParticipants: make(map[string]string, len(d.failed)),
	}
	for name, reason := range d.failed {
		status.FailedParticipants[name] = reason
	}
	if d.lastConsensus != nil {
		status.ConsensusStatus = d.lastConsensus.Status
		status.ConsensusPercentage = d.lastConsensus.ConsensusPercentage
	}
	status.ParticipatingNames = append(status.ParticipatingNames, status.RegisteredNames...)
	if d.config.IncludeHost {
		status.ParticipatingNames = append(status.ParticipatingNames, core.HostAnalystName)
	}
	return status
}

// TrackerStatistics exposes convergence diagnostics.
func (d *Debate) TrackerStatistics() Statistics {
	return d.tracker.GetStatistics()
}

// runParallelAnalysis is Phase 1: fan out Analyze to every registered
// external, await all, then validate in registry order and append the host
// contribution last. The barrier is strict: no state mutation before every
// in-flight call has returned.
func (d *Debate) runParallelAnalysis(ctx context.Context) error {
	round := d.Round()
	d.publish(events.NewPhaseStartedEvent(d.taskID, core.PhaseAnalyze.String(), round))

	names := d.registry.Names()
	var mu sync.Mutex
	results := make(map[string]*core.Analysis, len(names))
	failures := make(map[string]string)

	g, gctx := errgroup.WithContext(ctx)
	for _, name := range names {
		entry, ok := d.registry.Get(name)
		if !ok {
			continue
		}
		g.Go(func() error {
			opCtx, cancel := context.WithTimeout(gctx, entry.Timeout())
			defer cancel()

			analysis, err := entry.Participant.Analyze(opCtx, d.task, "")
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures[name] = err.Error()
				return nil
			}
			results[name] = analysis
			return nil
		})
	}
	_ = g.Wait() // Goroutines never return errors; failures are collected.
	if err := ctx.Err(); err != nil {
		return err
	}

	analyses := make(map[string]*core.Analysis, len(results)+1)
	var order []string

	for _, name := range names {
		if reason, ok := failures[name]; ok {
			d.recordFailure(name, "analyze", reason)
			continue
		}
		analysis, ok := results[name]
		if !ok || analysis == nil {
			d.recordFailure(name, "analyze", "no analysis returned")
			continue
		}
		// The registry key is recorded as the participant name; the version
		// reported by the provider is preserved verbatim and never replaced.
		analysis.ParticipantName = name
		if analysis.ParticipantVersion == "" {
			analysis.ParticipantVersion = name
		}
		if err := d.validator.Validate(analysis); err != nil {
			d.recordFailure(name, "analyze", err.Error())
			continue
		}
		analyses[name] = analysis
		order = append(order, name)
		d.persist(ctx, func() error {
			return d.store.SaveAnalysis(d.taskID, round, analysis)
		})
	}

	// The host contribution is appended after the external fan-in and goes
	// through the validator like any other; an unfilled slot is a
	// placeholder the validator rejects, excluding the host silently.
	if d.config.IncludeHost {
		hostAnalysis := d.host.Analysis()
		if err := d.validator.Validate(hostAnalysis); err != nil {
			d.recordFailure(core.HostAnalystName, "analyze", err.Error())
		} else {
			analyses[core.HostAnalystName] = hostAnalysis
			order = append(order, core.HostAnalystName)
			d.persist(ctx, func() error {
				return d.store.SaveAnalysis(d.taskID, round, hostAnalysis)
			})
		}
	}

	if len(analyses) == 0 {
		return core.ErrNoParticipants("no participant produced a valid analysis").
			WithDetail("failed", d.failedNames())
	}

	d.mu.Lock()
	d.currentAnalyses = analyses
	d.currentOrder = order
	d.mu.Unlock()

	d.publish(events.NewPhaseCompletedEvent(d.taskID, core.PhaseAnalyze.String(), round))
	return nil
}

// runCrossReview is Phase 3: every participant with a current-round
// analysis reviews every other such analysis. Pairs are enumerated over the
// round's survivors, not the global registry, so preflight-failed
// participants spawn no phantom reviews.
func (d *Debate) runCrossReview(ctx context.Context) ([]*core.Review, error) {
	round := d.Round()
	d.publish(events.NewPhaseStartedEvent(d.taskID, core.PhaseReview.String(), round))

	d.mu.RLock()
	order := append([]string(nil), d.currentOrder...)
	analyses := make(map[string]*core.Analysis, len(d.currentAnalyses))
	for name, a := range d.currentAnalyses {
		analyses[name] = a
	}
	d.mu.RUnlock()

	type pair struct{ reviewer, reviewed string }
	var externalPairs []pair
	for _, reviewer := range order {
		if reviewer == core.HostAnalystName {
			continue
		}
		for _, reviewed := range order {
			if reviewer != reviewed {
				externalPairs = append(externalPairs, pair{reviewer, reviewed})
			}
		}
	}

	var mu sync.Mutex
	collected := make(map[pair]*core.Review, len(externalPairs))
	failures := make(map[string]string)

	g, gctx := errgroup.WithContext(ctx)
	for _, p := range externalPairs {
		entry, ok := d.registry.Get(p.reviewer)
		if !ok {
			continue
		}
		g.Go(func() error {
			opCtx, cancel := context.WithTimeout(gctx, entry.Timeout())
			defer cancel()

			review, err := entry.Participant.Review(opCtx, d.task, analyses[p.reviewed], analyses[p.reviewer])
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures[p.reviewer] = err.Error()
				return nil
			}
			collected[p] = review
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var reviews []*core.Review
	for _, p := range externalPairs {
		review, ok := collected[p]
		if !ok || review == nil {
			continue
		}
		review.ReviewerName = p.reviewer
		review.ReviewedName = p.reviewed
		reviews = append(reviews, review)
		d.persist(ctx, func() error {
			return d.store.SaveReview(d.taskID, round, review)
		})
	}
	for reviewer, reason := range failures {
		d.recordFailure(reviewer, "review", reason)
	}

	// Host reviews come from injected slots; unfilled slots stay
	// placeholders and are excluded from the consensus count.
	if d.config.IncludeHost {
		if _, ok := analyses[core.HostAnalystName]; ok {
			for _, reviewed := range order {
				if reviewed == core.HostAnalystName {
					continue
				}
				review := d.host.ReviewFor(reviewed)
				if review.Placeholder {
					continue
				}
				reviews = append(reviews, review)
				d.persist(ctx, func() error {
					return d.store.SaveReview(d.taskID, round, review)
				})
			}
		}
	}

	d.publish(events.NewPhaseCompletedEvent(d.taskID, core.PhaseReview.String(), round))
	return reviews, nil
}

// runDebateRound is Phase 4: every surviving participant argues its
// position against the others, then the evolved conclusions overwrite the
// live analyses so the next round's consensus check sees updated opinions.
func (d *Debate) runDebateRound(ctx context.Context, shape RoundShape) error {
	round := d.Round()
	d.publish(events.NewPhaseStartedEvent(d.taskID, core.PhaseDebate.String(), round))

	d.mu.RLock()
	order := append([]string(nil), d.currentOrder...)
	analyses := make(map[string]*core.Analysis, len(d.currentAnalyses))
	for name, a := range d.currentAnalyses {
		analyses[name] = a
	}
	d.mu.RUnlock()

	debateTask := d.task
	if shape.TaskFocus != "" {
		debateTask = shape.TaskFocus
	}
	if shape.Instructions != "" {
		debateTask += "\n\n" + shape.Instructions
	}

	var mu sync.Mutex
	outcomes := make(map[string]*core.DebateOutcome, len(order))
	failures := make(map[string]string)

	g, gctx := errgroup.WithContext(ctx)
	for _, name := range order {
		if name == core.HostAnalystName {
			continue
		}
		entry, ok := d.registry.Get(name)
		if !ok {
			continue
		}

		own := analyses[name]
		if assigned, ok := shape.AssignedPositions[name]; ok && assigned != "" {
			shifted := *own
			shifted.Conclusion = assigned
			own = &shifted
		}
		var opposing []*core.Analysis
		for _, other := range order {
			if other != name {
				opposing = append(opposing, analyses[other])
			}
		}

		g.Go(func() error {
			opCtx, cancel := context.WithTimeout(gctx, entry.Timeout())
			defer cancel()

			outcome, err := entry.Participant.Debate(opCtx, debateTask, own, opposing)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures[name] = err.Error()
				return nil
			}
			outcomes[name] = outcome
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return err
	}

	updated := make(map[string]string)
	for _, name := range order {
		if name == core.HostAnalystName {
			continue
		}
		if reason, ok := failures[name]; ok {
			d.recordFailure(name, "debate", reason)
			continue
		}
		outcome, ok := outcomes[name]
		if !ok || outcome == nil {
			continue
		}
		outcome.ParticipantName = name
		d.persist(ctx, func() error {
			return d.store.SaveDebate(d.taskID, round, outcome)
		})
		// Evolved position: the flat-string back-compat form assigns the
		// whole string as the conclusion.
		updated[name] = outcome.EffectiveConclusion()
	}

	if d.config.IncludeHost {
		if _, ok := analyses[core.HostAnalystName]; ok {
			outcome := d.host.DebateOutcome()
			if outcome.Placeholder {
				d.recordFailure(core.HostAnalystName, "debate", "placeholder debate outcome")
			} else {
				d.persist(ctx, func() error {
					return d.store.SaveDebate(d.taskID, round, outcome)
				})
				updated[core.HostAnalystName] = outcome.EffectiveConclusion()
			}
		}
	}

	d.mu.Lock()
	for name, conclusion := range updated {
		if a, ok := d.currentAnalyses[name]; ok {
			a.Conclusion = conclusion
		}
	}
	d.mu.Unlock()

	d.publish(events.NewPhaseCompletedEvent(d.taskID, core.PhaseDebate.String(), round))
	return nil
}

// assembleDossier builds the terminal artifact from the last consensus
// result. A degenerate early exit yields FAILED with an empty strategy.
func (d *Debate) assembleDossier() *core.FinalDossier {
	d.mu.RLock()
	defer d.mu.RUnlock()

	dossier := &core.FinalDossier{
		TaskID:             d.taskID,
		Status:             core.StatusFailed,
		TotalRounds:        d.round,
		FailedParticipants: make(map[string]string, len(d.failed)),
	}
	for name, reason := range d.failed {
		dossier.FailedParticipants[name] = reason
	}

	if d.lastConsensus == nil {
		return dossier
	}

	dossier.Status = d.lastConsensus.Status
	dossier.ConsensusPercentage = d.lastConsensus.ConsensusPercentage
	dossier.AgreedItems = d.lastConsensus.AgreedItems
	dossier.DisputedItems = d.lastConsensus.DisputedItems
	if len(d.lastConsensus.AgreedItems) > 0 {
		top := d.lastConsensus.AgreedItems[0]
		dossier.FinalStrategy = core.FinalStrategy{
			Conclusion:             top.Conclusion,
			SupportingParticipants: top.Participants,
			Confidence:             d.lastConsensus.ConsensusPercentage,
		}
	}
	return dossier
}

// Helper methods.

// Round returns the current round index.
func (d *Debate) Round() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.round
}

func (d *Debate) incRound() {
	d.mu.Lock()
	d.round++
	d.mu.Unlock()
}

func (d *Debate) setConsensus(result *core.ConsensusResult) {
	d.mu.Lock()
	d.lastConsensus = result
	d.mu.Unlock()
}

func (d *Debate) orderedAnalyses() []*core.Analysis {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]*core.Analysis, 0, len(d.currentOrder))
	for _, name := range d.currentOrder {
		if a, ok := d.currentAnalyses[name]; ok {
			out = append(out, a)
		}
	}
	return out
}

func (d *Debate) roundContext() RoundContext {
	d.mu.RLock()
	defer d.mu.RUnlock()
	analyses := make(map[string]*core.Analysis, len(d.currentAnalyses))
	for name, a := range d.currentAnalyses {
		analyses[name] = a
	}
	return RoundContext{
		Task:      d.task,
		Round:     d.round,
		Order:     append([]string(nil), d.currentOrder...),
		Analyses:  analyses,
		Consensus: d.lastConsensus,
	}
}

func (d *Debate) recordFailure(name, operation, reason string) {
	d.mu.Lock()
	d.failed[name] = reason
	d.mu.Unlock()
	d.logger.Warn("participant failed",
		"participant", name,
		"operation", operation,
		"reason", reason,
	)
	d.publish(events.NewParticipantFailedEvent(d.taskID, name, operation, reason))
}

func (d *Debate) failedNames() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, 0, len(d.failed))
	for name := range d.failed {
		names = append(names, name)
	}
	return names
}

// persist runs a store write with the retry policy. Failures are logged and
// recorded but do not abort the round: the state is still in memory and the
// next phases keep computing.
func (d *Debate) persist(ctx context.Context, fn func() error) {
	err := d.persister.Execute(ctx, func(context.Context) error { return fn() })
	if err != nil {
		d.logger.Error("persistence failed", "error", err)
	}
}

func (d *Debate) publish(event events.Event) {
	if d.bus != nil {
		d.bus.Publish(event)
	}
}
