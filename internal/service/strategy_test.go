package service

import (
	"strings"
	"testing"

	"github.com/hugo-lorenzo-mato/consilium/internal/core"
)

func strategyContext() RoundContext {
	return RoundContext{
		Task:  "choose an api gateway",
		Order: []string{"gpt", "gemini", "host"},
		Analyses: map[string]*core.Analysis{
			"gpt":    analysisWith("gpt", "kong"),
			"gemini": analysisWith("gemini", "envoy"),
			"host":   analysisWith("host", "kong"),
		},
		Consensus: &core.ConsensusResult{
			Status: core.StatusPartialConsensus,
			DisputedItems: []core.ClusterItem{
				{Conclusion: "envoy", Participants: []string{"gemini"}, Count: 1},
			},
		},
	}
}

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		in      string
		want    StrategyType
		wantErr bool
	}{
		{in: "", want: StrategyNormal},
		{in: "normal", want: StrategyNormal},
		{in: "Mediated", want: StrategyMediated},
		{in: "scope_reduced", want: StrategyScopeReduced},
		{in: "perspective_shift", want: StrategyPerspectiveShift},
		{in: "bogus", want: StrategyNormal, wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseStrategy(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseStrategy(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseStrategy(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestShapeRound_Normal(t *testing.T) {
	shape := ShapeRound(StrategyNormal, strategyContext())
	if shape.Action != "CONTINUE" {
		t.Errorf("Action = %v, want CONTINUE", shape.Action)
	}
	if shape.TaskFocus != "" || shape.Instructions != "" || shape.AssignedPositions != nil {
		t.Error("normal strategy must be a pass-through")
	}
}

func TestShapeRound_Mediated(t *testing.T) {
	shape := ShapeRound(StrategyMediated, strategyContext())
	if shape.Action != "MEDIATE" {
		t.Errorf("Action = %v, want MEDIATE", shape.Action)
	}
	if !strings.Contains(shape.Instructions, "common ground") {
		t.Errorf("Instructions = %q, want facilitation preamble", shape.Instructions)
	}
	if shape.TaskFocus != "" {
		t.Error("mediation must not change the task scope")
	}
}

func TestShapeRound_ScopeReduced(t *testing.T) {
	shape := ShapeRound(StrategyScopeReduced, strategyContext())
	if shape.Action != "REDUCE_SCOPE" {
		t.Errorf("Action = %v, want REDUCE_SCOPE", shape.Action)
	}
	if !strings.Contains(shape.TaskFocus, "envoy") {
		t.Errorf("TaskFocus = %q, want disputed topic", shape.TaskFocus)
	}
	if !strings.Contains(shape.TaskFocus, "choose an api gateway") {
		t.Errorf("TaskFocus = %q, must retain the original task", shape.TaskFocus)
	}
}

func TestShapeRound_ScopeReducedNoDisputes(t *testing.T) {
	rc := strategyContext()
	rc.Consensus = &core.ConsensusResult{Status: core.StatusFullConsensus}
	shape := ShapeRound(StrategyScopeReduced, rc)
	if shape.Action != "SKIP" {
		t.Errorf("Action = %v, want SKIP without disputed items", shape.Action)
	}
}

func TestShapeRound_PerspectiveShift(t *testing.T) {
	shape := ShapeRound(StrategyPerspectiveShift, strategyContext())
	if shape.Action != "SHIFT_PERSPECTIVES" {
		t.Errorf("Action = %v, want SHIFT_PERSPECTIVES", shape.Action)
	}
	// Fixed rotation: each participant argues the next one's position.
	if shape.AssignedPositions["gpt"] != "envoy" {
		t.Errorf("gpt assigned %q, want envoy", shape.AssignedPositions["gpt"])
	}
	if shape.AssignedPositions["gemini"] != "kong" {
		t.Errorf("gemini assigned %q, want kong", shape.AssignedPositions["gemini"])
	}
	if shape.AssignedPositions["host"] != "kong" {
		t.Errorf("host assigned %q, want kong (wraps to first)", shape.AssignedPositions["host"])
	}
}

func TestShapeRound_PerspectiveShiftTooFew(t *testing.T) {
	rc := strategyContext()
	rc.Order = []string{"gpt"}
	shape := ShapeRound(StrategyPerspectiveShift, rc)
	if shape.Action != "SKIP" {
		t.Errorf("Action = %v, want SKIP for a single participant", shape.Action)
	}
}
