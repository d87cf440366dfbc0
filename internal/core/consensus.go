package core

// ConsensusStatus classifies the outcome of a consensus evaluation.
type ConsensusStatus string

const (
	StatusFullConsensus    ConsensusStatus = "FULL_CONSENSUS"
	StatusPartialConsensus ConsensusStatus = "PARTIAL_CONSENSUS"
	StatusNoConsensus      ConsensusStatus = "NO_CONSENSUS"
	// StatusFailed marks a degenerate early exit with no consensus result.
	StatusFailed ConsensusStatus = "FAILED"
)

// NextAction tells the orchestrator what to do after a consensus check.
type NextAction string

const (
	ActionNone             NextAction = ""
	ActionCrossReview      NextAction = "CROSS_REVIEW"
	ActionDebate           NextAction = "DEBATE"
	ActionNeedMoreAnalyses NextAction = "NEED_MORE_ANALYSES"
	ActionNeedReviews      NextAction = "NEED_REVIEWS"
)

// ClusterItem summarizes one semantic cluster of conclusions.
type ClusterItem struct {
	// Conclusion is the anchor conclusion representing the cluster.
	Conclusion   string   `json:"conclusion"`
	Participants []string `json:"participants"`
	Count        int      `json:"count"`
}

// ConsensusResult is the protocol's judgement over one snapshot of analyses.
type ConsensusResult struct {
	Status              ConsensusStatus        `json:"status"`
	ConsensusPercentage float64                `json:"consensus_percentage"`
	AgreedItems         []ClusterItem          `json:"agreed_items,omitempty"`
	DisputedItems       []ClusterItem          `json:"disputed_items,omitempty"`
	NextAction          NextAction             `json:"next_action,omitempty"`
	Details             map[string]interface{} `json:"details,omitempty"`
}

// IsFull reports whether full consensus was reached.
func (r *ConsensusResult) IsFull() bool {
	return r != nil && r.Status == StatusFullConsensus
}
