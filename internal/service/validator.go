package service

import (
	"fmt"

	"github.com/hugo-lorenzo-mato/consilium/internal/core"
	"github.com/hugo-lorenzo-mato/consilium/internal/logging"
)

// IntegrityValidator rejects malformed, placeholder or below-minimum-length
// analyses before they can influence a consensus check.
type IntegrityValidator struct {
	logger *logging.Logger
}

// NewIntegrityValidator creates a validator.
func NewIntegrityValidator(logger *logging.Logger) *IntegrityValidator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &IntegrityValidator{logger: logger}
}

// Validate returns nil for a genuine analysis or a reason string wrapped in
// an integrity error. The checks mirror the acceptance invariant: no
// placeholder flag, all required fields present, text of at least
// MinAnalysisLength code points, confidence finite and within [0, 1].
func (v *IntegrityValidator) Validate(a *core.Analysis) error {
	reason := v.rejectionReason(a)
	if reason == "" {
		return nil
	}
	name := ""
	if a != nil {
		name = a.ParticipantName
	}
	v.logger.Warn("analysis rejected",
		"participant", name,
		"reason", reason,
	)
	return core.ErrIntegrity(name, reason)
}

func (v *IntegrityValidator) rejectionReason(a *core.Analysis) string {
	if a == nil {
		return "missing analysis"
	}
	if a.Placeholder {
		return "placeholder analysis"
	}
	if a.AnalysisText == "" {
		return "missing field analysis_text"
	}
	if a.Conclusion == "" {
		return "missing field conclusion"
	}
	if !a.HasConfidence {
		return "missing field confidence"
	}
	if length := a.TextLength(); length < core.MinAnalysisLength {
		return fmt.Sprintf("analysis too short (%d chars, need %d)", length, core.MinAnalysisLength)
	}
	if !a.ConfidenceInRange() {
		return fmt.Sprintf("confidence out of range (%v)", a.Confidence)
	}
	return ""
}
