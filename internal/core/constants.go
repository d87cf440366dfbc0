package core

import "time"

// HostAnalystName is the reserved registry key for the in-process host
// analyst. Registering an external participant under this name fails before
// any network I/O so a remote participant cannot impersonate the
// orchestrator.
const HostAnalystName = "host"

// Default tuning values for a debate.
const (
	// DefaultConsensusThreshold is the quorum threshold: the consensus
	// percentage at or above which the protocol returns FULL_CONSENSUS.
	DefaultConsensusThreshold = 0.8

	// DefaultSimilarityThreshold is the TF-IDF cosine similarity floor for
	// clustering short conclusions. Deliberately much lower than the quorum
	// threshold; tuned for one-sentence conclusions.
	DefaultSimilarityThreshold = 0.3

	// DefaultMaxRounds bounds the debate before forced conclusion.
	DefaultMaxRounds = 5

	// MinConsensusThreshold and MaxConsensusThreshold bound configurable
	// quorum thresholds.
	MinConsensusThreshold = 0.5
	MaxConsensusThreshold = 1.0
)

// Timeouts.
const (
	// PreflightTimeout bounds a single participant preflight check.
	PreflightTimeout = 30 * time.Second

	// DefaultOperationTimeout bounds a single analyze/review/debate call
	// unless the participant entry configures its own deadline.
	DefaultOperationTimeout = 5 * time.Minute
)

// MaxTaskLength is the maximum allowed task description length.
const MaxTaskLength = 100000
