package service

import (
	"fmt"
	"strings"

	"github.com/hugo-lorenzo-mato/consilium/internal/core"
)

// StrategyType selects how the next debate round is shaped.
type StrategyType string

const (
	StrategyNormal           StrategyType = "normal"
	StrategyMediated         StrategyType = "mediated"
	StrategyScopeReduced     StrategyType = "scope_reduced"
	StrategyPerspectiveShift StrategyType = "perspective_shift"
)

// ParseStrategy maps a name to a StrategyType, defaulting to normal.
func ParseStrategy(s string) (StrategyType, error) {
	switch StrategyType(strings.ToLower(strings.TrimSpace(s))) {
	case "", StrategyNormal:
		return StrategyNormal, nil
	case StrategyMediated:
		return StrategyMediated, nil
	case StrategyScopeReduced:
		return StrategyScopeReduced, nil
	case StrategyPerspectiveShift:
		return StrategyPerspectiveShift, nil
	default:
		return StrategyNormal, core.ErrValidation("INVALID_STRATEGY",
			fmt.Sprintf("unknown strategy %q", s))
	}
}

// RoundContext is the input a strategy sees before a debate phase.
type RoundContext struct {
	Task      string
	Round     int
	Order     []string
	Analyses  map[string]*core.Analysis
	Consensus *core.ConsensusResult
}

// RoundShape is the pure value a strategy produces. The orchestrator
// consults it but retains final control over which phase executes.
type RoundShape struct {
	// Action hints at the strategy's intent (CONTINUE, MEDIATE,
	// REDUCE_SCOPE, SHIFT_PERSPECTIVES, SKIP).
	Action string

	// TaskFocus replaces the task text handed to participants when
	// non-empty (scope reduction).
	TaskFocus string

	// Instructions is a facilitation preamble appended for every
	// participant when non-empty (mediation).
	Instructions string

	// AssignedPositions maps participant name to the conclusion it must
	// argue instead of its own (perspective shift).
	AssignedPositions map[string]string
}

// ShapeRound applies a strategy to the round context. Pure: no state is
// mutated, the orchestrator decides what to do with the result.
func ShapeRound(strategy StrategyType, rc RoundContext) RoundShape {
	switch strategy {
	case StrategyMediated:
		return RoundShape{
			Action: "MEDIATE",
			Instructions: "Act under a neutral facilitator: focus on common ground, " +
				"acknowledge valid points from all perspectives, and seek compromise " +
				"where disagreements exist.",
		}

	case StrategyScopeReduced:
		if rc.Consensus == nil || len(rc.Consensus.DisputedItems) == 0 {
			return RoundShape{Action: "SKIP"}
		}
		topics := make([]string, 0, len(rc.Consensus.DisputedItems))
		for _, item := range rc.Consensus.DisputedItems {
			if item.Conclusion != "" {
				topics = append(topics, item.Conclusion)
			}
		}
		return RoundShape{
			Action: "REDUCE_SCOPE",
			TaskFocus: fmt.Sprintf("%s\n\nFocus only on the disputed topics: %s. "+
				"Ignore agreed-upon items.", rc.Task, strings.Join(topics, "; ")),
		}

	case StrategyPerspectiveShift:
		if len(rc.Order) < 2 {
			return RoundShape{Action: "SKIP"}
		}
		assigned := make(map[string]string, len(rc.Order))
		for i, name := range rc.Order {
			next := rc.Order[(i+1)%len(rc.Order)]
			if a, ok := rc.Analyses[next]; ok {
				assigned[name] = a.Conclusion
			}
		}
		return RoundShape{
			Action:            "SHIFT_PERSPECTIVES",
			AssignedPositions: assigned,
			Instructions: "Argue from the assigned perspective, not your original " +
				"position. This exercise exposes weaknesses in opposing views.",
		}

	default:
		return RoundShape{Action: "CONTINUE"}
	}
}
