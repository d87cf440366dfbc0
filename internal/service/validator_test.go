package service

import (
	"math"
	"strings"
	"testing"

	"github.com/hugo-lorenzo-mato/consilium/internal/core"
)

func validAnalysis() *core.Analysis {
	return &core.Analysis{
		ParticipantName: "gpt",
		AnalysisText:    strings.Repeat("A thorough examination of the problem. ", 3),
		Conclusion:      "use redis",
		Confidence:      0.8,
		HasConfidence:   true,
	}
}

func TestValidator_AcceptsGenuineAnalysis(t *testing.T) {
	v := NewIntegrityValidator(nil)
	if err := v.Validate(validAnalysis()); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
}

func TestValidator_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*core.Analysis)
	}{
		{name: "placeholder flag", mutate: func(a *core.Analysis) { a.Placeholder = true }},
		{name: "missing analysis text", mutate: func(a *core.Analysis) { a.AnalysisText = "" }},
		{name: "missing conclusion", mutate: func(a *core.Analysis) { a.Conclusion = "" }},
		{name: "missing confidence", mutate: func(a *core.Analysis) { a.HasConfidence = false }},
		{name: "short analysis", mutate: func(a *core.Analysis) { a.AnalysisText = "too short" }},
		{name: "49 code points", mutate: func(a *core.Analysis) { a.AnalysisText = strings.Repeat("x", 49) }},
		{name: "confidence negative", mutate: func(a *core.Analysis) { a.Confidence = -0.1 }},
		{name: "confidence above one", mutate: func(a *core.Analysis) { a.Confidence = 1.5 }},
		{name: "confidence NaN", mutate: func(a *core.Analysis) { a.Confidence = math.NaN() }},
		{name: "confidence Inf", mutate: func(a *core.Analysis) { a.Confidence = math.Inf(1) }},
	}

	v := NewIntegrityValidator(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := validAnalysis()
			tt.mutate(a)
			err := v.Validate(a)
			if err == nil {
				t.Fatal("Validate() = nil, want rejection")
			}
			if !core.IsCategory(err, core.ErrCatIntegrity) {
				t.Errorf("category = %v, want integrity", core.GetCategory(err))
			}
		})
	}
}

func TestValidator_LengthIsCodePoints(t *testing.T) {
	// 50 multibyte runes must pass even though the byte count differs.
	a := validAnalysis()
	a.AnalysisText = strings.Repeat("é", 50)

	if err := NewIntegrityValidator(nil).Validate(a); err != nil {
		t.Errorf("Validate() = %v, want nil for 50 code points", err)
	}
}

func TestValidator_BoundaryConfidence(t *testing.T) {
	v := NewIntegrityValidator(nil)
	for _, confidence := range []float64{0, 1} {
		a := validAnalysis()
		a.Confidence = confidence
		if err := v.Validate(a); err != nil {
			t.Errorf("Validate() with confidence %v = %v, want nil", confidence, err)
		}
	}
}

func TestValidator_NilAnalysis(t *testing.T) {
	if err := NewIntegrityValidator(nil).Validate(nil); err == nil {
		t.Error("Validate(nil) = nil, want rejection")
	}
}
