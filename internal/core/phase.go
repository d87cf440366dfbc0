package core

// Phase represents a stage in the debate round state machine.
type Phase string

const (
	// PhasePreflight verifies participant credentials before round 0.
	PhasePreflight Phase = "preflight"

	// PhaseAnalyze fans out independent analyses to all participants.
	PhaseAnalyze Phase = "analyze"

	// PhaseConsensus evaluates agreement across the live analyses.
	// Purely local computation, no participant calls.
	PhaseConsensus Phase = "consensus"

	// PhaseReview runs pairwise cross-review after partial consensus.
	PhaseReview Phase = "review"

	// PhaseDebate runs a debate round after no consensus.
	PhaseDebate Phase = "debate"

	// PhaseFinal assembles and persists the terminal dossier.
	PhaseFinal Phase = "final"
)

// String returns the phase name.
func (p Phase) String() string { return string(p) }

// AllPhases returns the phases in workflow order.
func AllPhases() []Phase {
	return []Phase{PhasePreflight, PhaseAnalyze, PhaseConsensus, PhaseReview, PhaseDebate, PhaseFinal}
}
