package core

import (
	"context"
	"time"
)

// =============================================================================
// Participant Port
// =============================================================================

// Participant defines the contract for external analyst adapters.
// All operations are blocking and honor context cancellation; transport-level
// retries are the implementation's concern, not the orchestrator's.
type Participant interface {
	// Name returns the registry identifier (e.g. "gpt", "gemini").
	Name() string

	// Preflight verifies credentials and reachability. Idempotent,
	// bounded by the orchestrator to PreflightTimeout.
	Preflight(ctx context.Context) error

	// Analyze produces an independent analysis of the task.
	Analyze(ctx context.Context, task string, priorContext string) (*Analysis, error)

	// Review assesses a peer's analysis against the participant's own.
	Review(ctx context.Context, task string, peer *Analysis, own *Analysis) (*Review, error)

	// Debate argues the participant's position against opposing views and
	// returns a possibly updated stance.
	Debate(ctx context.Context, task string, own *Analysis, opposing []*Analysis) (*DebateOutcome, error)
}

// ParticipantEntry pairs a participant with per-entry settings.
type ParticipantEntry struct {
	Participant Participant

	// OperationTimeout bounds each analyze/review/debate call.
	// Zero means DefaultOperationTimeout.
	OperationTimeout time.Duration
}

// Timeout resolves the effective per-operation deadline.
func (e ParticipantEntry) Timeout() time.Duration {
	if e.OperationTimeout > 0 {
		return e.OperationTimeout
	}
	return DefaultOperationTimeout
}

// =============================================================================
// ContextStore Port
// =============================================================================

// LoadLevel selects how much of a chunked artifact to read back.
// Levels are ordered: each level includes everything below it.
type LoadLevel int

const (
	LoadMetadata   LoadLevel = iota // frontmatter only
	LoadSummary                     // + SUMMARY chunk (~300 B)
	LoadConclusion                  // + CONCLUSION chunk (~800 B)
	LoadFull                        // + FULL chunk (~4000 B)
)

// String returns the level name.
func (l LoadLevel) String() string {
	switch l {
	case LoadMetadata:
		return "METADATA"
	case LoadSummary:
		return "SUMMARY"
	case LoadConclusion:
		return "CONCLUSION"
	case LoadFull:
		return "FULL"
	default:
		return "UNKNOWN"
	}
}

// ParseLoadLevel maps a level name to a LoadLevel. Unknown names resolve
// to LoadFull so sloppy callers read more rather than less.
func ParseLoadLevel(s string) LoadLevel {
	switch s {
	case "METADATA", "metadata":
		return LoadMetadata
	case "SUMMARY", "summary":
		return LoadSummary
	case "CONCLUSION", "conclusion":
		return LoadConclusion
	default:
		return LoadFull
	}
}

// ArtifactMeta is the frontmatter of a chunked artifact.
type ArtifactMeta struct {
	TaskID    string    `json:"task_id"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// Chunks carries the progressively detailed regions of an artifact.
// Absent regions are empty strings.
type Chunks struct {
	Summary    string `json:"summary,omitempty"`
	Conclusion string `json:"conclusion,omitempty"`
	Full       string `json:"full,omitempty"`
}

// Artifact is a loaded chunked artifact at some level.
type Artifact struct {
	Meta   ArtifactMeta `json:"meta"`
	Chunks Chunks       `json:"chunks"`
}

// ContextStore is the durable, multi-level deliberation log keyed by task
// id. Writers are full-file rewrites; the orchestrator never issues
// concurrent writes for a single path.
type ContextStore interface {
	// SaveTask writes <task_id>/TASK.md.
	SaveTask(taskID, task string, meta ArtifactMeta) error

	// SaveAnalysis writes round_{NN}/<participant>.md.
	SaveAnalysis(taskID string, round int, a *Analysis) error

	// SaveReview writes round_{NN}/reviews/<reviewer>__reviews__<reviewed>.md.
	SaveReview(taskID string, round int, r *Review) error

	// SaveDebate writes round_{NN}/debates/<participant>.md.
	SaveDebate(taskID string, round int, d *DebateOutcome) error

	// SaveConsensus writes round_{NN}/CONSENSUS.md.
	SaveConsensus(taskID string, round int, result *ConsensusResult) error

	// SaveFinal writes FINAL.md and flips the task status to the dossier's.
	SaveFinal(taskID string, dossier *FinalDossier) error

	// Load reads one artifact at the requested level.
	Load(taskID string, relPath string, level LoadLevel) (*Artifact, error)

	// Status reports per-round artifact counts for a task.
	Status(taskID string) (*StoreStatus, error)
}

// RoundStatus counts the artifacts present for one persisted round.
type RoundStatus struct {
	Round     int  `json:"round"`
	Analyses  int  `json:"analyses"`
	Reviews   int  `json:"reviews"`
	Debates   int  `json:"debates"`
	Consensus bool `json:"consensus"`
}

// StoreStatus summarizes a task's on-disk deliberation log.
type StoreStatus struct {
	TaskID   string        `json:"task_id"`
	HasTask  bool          `json:"has_task"`
	HasFinal bool          `json:"has_final"`
	Rounds   []RoundStatus `json:"rounds"`
}
