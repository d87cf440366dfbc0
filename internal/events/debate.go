package events

// Event type constants for debate events.
const (
	TypeRoundStarted       = "round_started"
	TypePhaseStarted       = "phase_started"
	TypePhaseCompleted     = "phase_completed"
	TypeConsensusEvaluated = "consensus_evaluated"
	TypeParticipantFailed  = "participant_failed"
	TypeDebateCompleted    = "debate_completed"
)

// RoundStartedEvent is emitted when a new round opens.
type RoundStartedEvent struct {
	BaseEvent
	Round     int `json:"round"`
	MaxRounds int `json:"max_rounds"`
}

// NewRoundStartedEvent creates a round started event.
func NewRoundStartedEvent(taskID string, round, maxRounds int) RoundStartedEvent {
	return RoundStartedEvent{
		BaseEvent: NewBaseEvent(TypeRoundStarted, taskID),
		Round:     round,
		MaxRounds: maxRounds,
	}
}

// PhaseEvent is emitted at phase boundaries.
type PhaseEvent struct {
	BaseEvent
	Phase string `json:"phase"`
	Round int    `json:"round"`
}

// NewPhaseStartedEvent creates a phase started event.
func NewPhaseStartedEvent(taskID, phase string, round int) PhaseEvent {
	return PhaseEvent{
		BaseEvent: NewBaseEvent(TypePhaseStarted, taskID),
		Phase:     phase,
		Round:     round,
	}
}

// NewPhaseCompletedEvent creates a phase completed event.
func NewPhaseCompletedEvent(taskID, phase string, round int) PhaseEvent {
	return PhaseEvent{
		BaseEvent: NewBaseEvent(TypePhaseCompleted, taskID),
		Phase:     phase,
		Round:     round,
	}
}

// ConsensusEvaluatedEvent is emitted after every consensus evaluation.
type ConsensusEvaluatedEvent struct {
	BaseEvent
	Round      int     `json:"round"`
	Status     string  `json:"status"`
	Percentage float64 `json:"percentage"`
	NextAction string  `json:"next_action,omitempty"`
	Trend      string  `json:"trend,omitempty"`
}

// NewConsensusEvaluatedEvent creates a consensus evaluated event.
func NewConsensusEvaluatedEvent(taskID string, round int, status string, percentage float64, nextAction, trend string) ConsensusEvaluatedEvent {
	return ConsensusEvaluatedEvent{
		BaseEvent:  NewBaseEvent(TypeConsensusEvaluated, taskID),
		Round:      round,
		Status:     status,
		Percentage: percentage,
		NextAction: nextAction,
		Trend:      trend,
	}
}

// ParticipantFailedEvent is emitted when a participant fails an operation.
type ParticipantFailedEvent struct {
	BaseEvent
	Participant string `json:"participant"`
	Operation   string `json:"operation"`
	Reason      string `json:"reason"`
}

// NewParticipantFailedEvent creates a participant failed event.
func NewParticipantFailedEvent(taskID, participant, operation, reason string) ParticipantFailedEvent {
	return ParticipantFailedEvent{
		BaseEvent:   NewBaseEvent(TypeParticipantFailed, taskID),
		Participant: participant,
		Operation:   operation,
		Reason:      reason,
	}
}

// DebateCompletedEvent is emitted once per run with the final status.
// Subscribe with priority: this event must not be dropped.
type DebateCompletedEvent struct {
	BaseEvent
	Status      string  `json:"status"`
	Percentage  float64 `json:"percentage"`
	TotalRounds int     `json:"total_rounds"`
}

// NewDebateCompletedEvent creates a debate completed event.
func NewDebateCompletedEvent(taskID, status string, percentage float64, totalRounds int) DebateCompletedEvent {
	return DebateCompletedEvent{
		BaseEvent:   NewBaseEvent(TypeDebateCompleted, taskID),
		Status:      status,
		Percentage:  percentage,
		TotalRounds: totalRounds,
	}
}
