package core

// FinalStrategy is the winning position extracted from the agreed cluster.
type FinalStrategy struct {
	Conclusion             string   `json:"conclusion,omitempty"`
	SupportingParticipants []string `json:"supporting_participants,omitempty"`
	// Confidence mirrors the consensus percentage of the closing round.
	Confidence float64 `json:"confidence,omitempty"`
}

// FinalDossier is the terminal artifact of a debate run.
type FinalDossier struct {
	TaskID              string          `json:"task_id"`
	Status              ConsensusStatus `json:"status"`
	FinalStrategy       FinalStrategy   `json:"final_strategy"`
	TotalRounds         int             `json:"total_rounds"`
	ConsensusPercentage float64         `json:"consensus_percentage"`
	AgreedItems         []ClusterItem   `json:"agreed_items,omitempty"`
	DisputedItems       []ClusterItem   `json:"disputed_items,omitempty"`
	// FailedParticipants maps participant name to the reason it was
	// excluded (preflight failure, operation failure, integrity rejection).
	FailedParticipants map[string]string `json:"failed_participants,omitempty"`
}

// VerificationResult is the reduced analyze-then-check outcome returned by
// the verification shortcut. No review, no debate, no extra rounds.
type VerificationResult struct {
	Status              ConsensusStatus   `json:"status"`
	ConsensusPercentage float64           `json:"consensus_percentage"`
	AgreedItems         []ClusterItem     `json:"agreed_items,omitempty"`
	DisputedItems       []ClusterItem     `json:"disputed_items,omitempty"`
	AnalysesByName      map[string]string `json:"analyses_by_name"`
}

// DebateStatus is a live snapshot of an in-flight or finished debate.
type DebateStatus struct {
	TaskID              string            `json:"task_id"`
	Round               int               `json:"current_round"`
	MaxRounds           int               `json:"max_rounds"`
	ConsensusStatus     ConsensusStatus   `json:"consensus_status"`
	ConsensusPercentage float64           `json:"consensus_percentage"`
	RegisteredNames     []string          `json:"registered_names"`
	ParticipatingNames  []string          `json:"participating_names"`
	IncludeHost         bool              `json:"include_host"`
	FailedParticipants  map[string]string `json:"failed_participants,omitempty"`
}
