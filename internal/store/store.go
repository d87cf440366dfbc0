package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/hugo-lorenzo-mato/consilium/internal/core"
	"github.com/hugo-lorenzo-mato/consilium/internal/fsutil"
)

// DebateStore is the filesystem-backed context store. Layout:
//
//	<base>/<task_id>/
//	  TASK.md
//	  round_{NN}/
//	    <participant>.md
//	    reviews/<reviewer>__reviews__<reviewed>.md
//	    debates/<participant>.md
//	    CONSENSUS.md
//	  FINAL.md
//
// Writes are full-file atomic rewrites. Parallel writes to distinct paths
// are safe; concurrent writers for the same path are not supported.
type DebateStore struct {
	baseDir string
	now     func() time.Time
}

// Option configures the store.
type Option func(*DebateStore)

// WithClock overrides the timestamp source (for tests).
func WithClock(now func() time.Time) Option {
	return func(s *DebateStore) { s.now = now }
}

// New creates a store rooted at baseDir.
func New(baseDir string, opts ...Option) *DebateStore {
	s := &DebateStore{baseDir: baseDir, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BaseDir returns the store root.
func (s *DebateStore) BaseDir() string { return s.baseDir }

// TaskDir returns the directory of one task's deliberation log.
func (s *DebateStore) TaskDir(taskID string) string {
	return filepath.Join(s.baseDir, taskID)
}

// roundDir returns round_{NN} with the zero-padded two-digit round index.
func roundDir(round int) string {
	return fmt.Sprintf("round_%02d", round)
}

// SaveTask writes <task_id>/TASK.md.
func (s *DebateStore) SaveTask(taskID, task string, meta core.ArtifactMeta) error {
	meta.TaskID = taskID
	if meta.Timestamp.IsZero() {
		meta.Timestamp = s.now()
	}

	summary := task
	if len(summary) > 280 {
		summary = summary[:277] + "..."
	}
	chunks := core.Chunks{
		Summary:    summary,
		Conclusion: fmt.Sprintf("Task status: %s", meta.Status),
		Full:       task,
	}
	return s.write(filepath.Join(s.TaskDir(taskID), "TASK.md"), meta, chunks)
}

// SaveAnalysis writes round_{NN}/<participant>.md. The participant version
// reported by the provider lands verbatim in the CONCLUSION chunk.
func (s *DebateStore) SaveAnalysis(taskID string, round int, a *core.Analysis) error {
	if !fsutil.SafeSegment(a.ParticipantName) {
		return core.ErrValidation("UNSAFE_NAME",
			fmt.Sprintf("participant name %q is not a safe file name", a.ParticipantName))
	}

	var conclusion strings.Builder
	conclusion.WriteString(fmt.Sprintf("Participant version: %s\n", a.ParticipantVersion))
	if len(a.KeyPoints) > 0 {
		conclusion.WriteString("\nKey points:\n")
		for _, kp := range a.KeyPoints {
			conclusion.WriteString(fmt.Sprintf("- %s\n", kp))
		}
	}

	meta := core.ArtifactMeta{TaskID: taskID, Status: "SAVED", Timestamp: s.now()}
	chunks := core.Chunks{
		Summary:    fmt.Sprintf("%s (confidence %.2f)", a.Conclusion, a.Confidence),
		Conclusion: conclusion.String(),
		Full:       a.AnalysisText,
	}
	path := filepath.Join(s.TaskDir(taskID), roundDir(round), a.ParticipantName+".md")
	return s.write(path, meta, chunks)
}

// SaveReview writes round_{NN}/reviews/<reviewer>__reviews__<reviewed>.md.
func (s *DebateStore) SaveReview(taskID string, round int, r *core.Review) error {
	if !fsutil.SafeSegment(r.ReviewerName) || !fsutil.SafeSegment(r.ReviewedName) {
		return core.ErrValidation("UNSAFE_NAME", "review participant names are not safe file names")
	}

	var conclusion strings.Builder
	if len(r.AgreementPoints) > 0 {
		conclusion.WriteString("Agreement points:\n")
		for _, p := range r.AgreementPoints {
			conclusion.WriteString(fmt.Sprintf("- %s\n", p))
		}
	}
	if len(r.DisagreementPoints) > 0 {
		conclusion.WriteString("Disagreement points:\n")
		for _, p := range r.DisagreementPoints {
			conclusion.WriteString(fmt.Sprintf("- %s\n", p))
		}
	}

	var full strings.Builder
	full.WriteString(r.Feedback)
	if len(r.SuggestedImprovements) > 0 {
		full.WriteString("\n\nSuggested improvements:\n")
		for _, p := range r.SuggestedImprovements {
			full.WriteString(fmt.Sprintf("- %s\n", p))
		}
	}

	meta := core.ArtifactMeta{TaskID: taskID, Status: "SAVED", Timestamp: s.now()}
	chunks := core.Chunks{
		Summary:    fmt.Sprintf("%s reviews %s: %d agreements, %d disagreements", r.ReviewerName, r.ReviewedName, len(r.AgreementPoints), len(r.DisagreementPoints)),
		Conclusion: conclusion.String(),
		Full:       full.String(),
	}
	name := fmt.Sprintf("%s__reviews__%s.md", r.ReviewerName, r.ReviewedName)
	path := filepath.Join(s.TaskDir(taskID), roundDir(round), "reviews", name)
	return s.write(path, meta, chunks)
}

// SaveDebate writes round_{NN}/debates/<participant>.md.
func (s *DebateStore) SaveDebate(taskID string, round int, d *core.DebateOutcome) error {
	if !fsutil.SafeSegment(d.ParticipantName) {
		return core.ErrValidation("UNSAFE_NAME",
			fmt.Sprintf("participant name %q is not a safe file name", d.ParticipantName))
	}

	var conclusion strings.Builder
	if len(d.Rebuttals) > 0 {
		conclusion.WriteString("Rebuttals:\n")
		for _, p := range d.Rebuttals {
			conclusion.WriteString(fmt.Sprintf("- %s\n", p))
		}
	}
	if len(d.Concessions) > 0 {
		conclusion.WriteString("Concessions:\n")
		for _, p := range d.Concessions {
			conclusion.WriteString(fmt.Sprintf("- %s\n", p))
		}
	}

	var full strings.Builder
	if len(d.RemainingDisagreements) > 0 {
		full.WriteString("Remaining disagreements:\n")
		for _, p := range d.RemainingDisagreements {
			full.WriteString(fmt.Sprintf("- %s\n", p))
		}
		full.WriteString("\n")
	}
	if raw, err := json.MarshalIndent(d, "", "  "); err == nil {
		full.WriteString("```json\n")
		full.Write(raw)
		full.WriteString("\n```\n")
	}

	meta := core.ArtifactMeta{TaskID: taskID, Status: "SAVED", Timestamp: s.now()}
	chunks := core.Chunks{
		Summary:    fmt.Sprintf("Updated position: %s", d.EffectiveConclusion()),
		Conclusion: conclusion.String(),
		Full:       full.String(),
	}
	path := filepath.Join(s.TaskDir(taskID), roundDir(round), "debates", d.ParticipantName+".md")
	return s.write(path, meta, chunks)
}

// SaveConsensus writes round_{NN}/CONSENSUS.md.
func (s *DebateStore) SaveConsensus(taskID string, round int, result *core.ConsensusResult) error {
	meta := core.ArtifactMeta{TaskID: taskID, Status: string(result.Status), Timestamp: s.now()}
	chunks := core.Chunks{
		Summary:    fmt.Sprintf("%s (%.1f%%)", result.Status, result.ConsensusPercentage*100),
		Conclusion: renderClusters(result.AgreedItems, result.DisputedItems),
		Full:       renderDetails(result.Details),
	}
	path := filepath.Join(s.TaskDir(taskID), roundDir(round), "CONSENSUS.md")
	return s.write(path, meta, chunks)
}

// SaveFinal writes FINAL.md and flips the TASK.md status to the terminal
// one. The dossier content always carries the terminal result in full.
func (s *DebateStore) SaveFinal(taskID string, dossier *core.FinalDossier) error {
	var conclusion strings.Builder
	conclusion.WriteString(fmt.Sprintf("Final strategy: %s\n", dossier.FinalStrategy.Conclusion))
	if len(dossier.FinalStrategy.SupportingParticipants) > 0 {
		conclusion.WriteString(fmt.Sprintf("Supported by: %s\n",
			strings.Join(dossier.FinalStrategy.SupportingParticipants, ", ")))
	}
	conclusion.WriteString(fmt.Sprintf("Total rounds: %d\n", dossier.TotalRounds))

	var full strings.Builder
	full.WriteString(renderClusters(dossier.AgreedItems, dossier.DisputedItems))
	if len(dossier.FailedParticipants) > 0 {
		full.WriteString("\nFailed participants:\n")
		names := make([]string, 0, len(dossier.FailedParticipants))
		for name := range dossier.FailedParticipants {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			full.WriteString(fmt.Sprintf("- %s: %s\n", name, dossier.FailedParticipants[name]))
		}
	}

	meta := core.ArtifactMeta{TaskID: taskID, Status: string(dossier.Status), Timestamp: s.now()}
	chunks := core.Chunks{
		Summary: fmt.Sprintf("%s (%.1f%% consensus)", dossier.Status,
			dossier.ConsensusPercentage*100),
		Conclusion: conclusion.String(),
		Full:       full.String(),
	}
	if err := s.write(filepath.Join(s.TaskDir(taskID), "FINAL.md"), meta, chunks); err != nil {
		return err
	}

	return s.updateTaskStatus(taskID, string(dossier.Status))
}

// updateTaskStatus rewrites TASK.md with a new status, preserving the body.
func (s *DebateStore) updateTaskStatus(taskID, status string) error {
	taskPath := filepath.Join(s.TaskDir(taskID), "TASK.md")
	artifact, err := s.Load(taskID, "TASK.md", core.LoadFull)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	meta := artifact.Meta
	meta.Status = status
	chunks := artifact.Chunks
	chunks.Conclusion = fmt.Sprintf("Task status: %s", status)
	return s.write(taskPath, meta, chunks)
}

// Load reads one artifact at the requested level. relPath is relative to
// the task directory (e.g. "round_00/gpt.md").
func (s *DebateStore) Load(taskID string, relPath string, level core.LoadLevel) (*core.Artifact, error) {
	cleaned := filepath.Clean(relPath)
	if strings.HasPrefix(cleaned, "..") || filepath.IsAbs(cleaned) {
		return nil, core.ErrValidation("UNSAFE_PATH", fmt.Sprintf("artifact path %q escapes the task directory", relPath))
	}

	data, err := fsutil.ReadFileScoped(filepath.Join(s.TaskDir(taskID), cleaned))
	if err != nil {
		return nil, err
	}
	return parseArtifact(string(data), level), nil
}

// Status reports per-round artifact counts for a task.
func (s *DebateStore) Status(taskID string) (*core.StoreStatus, error) {
	taskDir := s.TaskDir(taskID)
	status := &core.StoreStatus{TaskID: taskID}

	entries, err := os.ReadDir(taskDir)
	if err != nil {
		if os.IsNotExist(err) {
			return status, nil
		}
		return nil, err
	}

	for _, entry := range entries {
		switch {
		case !entry.IsDir() && entry.Name() == "TASK.md":
			status.HasTask = true
		case !entry.IsDir() && entry.Name() == "FINAL.md":
			status.HasFinal = true
		case entry.IsDir() && strings.HasPrefix(entry.Name(), "round_"):
			round, err := strconv.Atoi(strings.TrimPrefix(entry.Name(), "round_"))
			if err != nil {
				continue
			}
			rs := core.RoundStatus{Round: round}
			roundPath := filepath.Join(taskDir, entry.Name())
			if roundEntries, err := os.ReadDir(roundPath); err == nil {
				for _, re := range roundEntries {
					switch {
					case re.Name() == "CONSENSUS.md":
						rs.Consensus = true
					case !re.IsDir() && strings.HasSuffix(re.Name(), ".md"):
						rs.Analyses++
					case re.IsDir() && re.Name() == "reviews":
						rs.Reviews = countFiles(filepath.Join(roundPath, "reviews"))
					case re.IsDir() && re.Name() == "debates":
						rs.Debates = countFiles(filepath.Join(roundPath, "debates"))
					}
				}
			}
			status.Rounds = append(status.Rounds, rs)
		}
	}

	sort.Slice(status.Rounds, func(i, j int) bool {
		return status.Rounds[i].Round < status.Rounds[j].Round
	})
	return status, nil
}

// ListTasks returns the task ids present in the store, newest directory
// name last.
func (s *DebateStore) ListTasks() ([]string, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var ids []string
	for _, entry := range entries {
		if entry.IsDir() {
			ids = append(ids, entry.Name())
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *DebateStore) write(path string, meta core.ArtifactMeta, chunks core.Chunks) error {
	if err := fsutil.EnsureDir(filepath.Dir(path)); err != nil {
		return core.ErrPersistence(path, err)
	}
	if err := atomicWriteFile(path, renderChunked(meta, chunks), 0o600); err != nil {
		return core.ErrPersistence(path, err)
	}
	return nil
}

func renderClusters(agreed, disputed []core.ClusterItem) string {
	var b strings.Builder
	if len(agreed) > 0 {
		b.WriteString("Agreed items:\n")
		for _, item := range agreed {
			b.WriteString(fmt.Sprintf("- %s (%d: %s)\n", item.Conclusion, item.Count,
				strings.Join(item.Participants, ", ")))
		}
	}
	if len(disputed) > 0 {
		b.WriteString("Disputed items:\n")
		for _, item := range disputed {
			b.WriteString(fmt.Sprintf("- %s (%d: %s)\n", item.Conclusion, item.Count,
				strings.Join(item.Participants, ", ")))
		}
	}
	return b.String()
}

func renderDetails(details map[string]interface{}) string {
	if len(details) == 0 {
		return ""
	}
	raw, err := json.MarshalIndent(details, "", "  ")
	if err != nil {
		return ""
	}
	return "```json\n" + string(raw) + "\n```\n"
}

func countFiles(dir string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	count := 0
	for _, e := range entries {
		if !e.IsDir() {
			count++
		}
	}
	return count
}

// Verify that DebateStore implements core.ContextStore.
var _ core.ContextStore = (*DebateStore)(nil)
