// Package store implements the durable, chunked deliberation log. Every
// artifact is a markdown file carrying frontmatter plus up to three
// delimited regions of increasing detail, so downstream readers can
// re-consume a deliberation at the level they can afford.
package store

import (
	"fmt"
	"strings"
	"time"

	"github.com/hugo-lorenzo-mato/consilium/internal/core"
)

// Chunk markers. Each chunk is wrapped by a unique open/close pair placed
// on their own lines so the regions survive round-tripping.
const (
	summaryStart    = "<!-- CHUNK:SUMMARY:START -->"
	summaryEnd      = "<!-- CHUNK:SUMMARY:END -->"
	conclusionStart = "<!-- CHUNK:CONCLUSION:START -->"
	conclusionEnd   = "<!-- CHUNK:CONCLUSION:END -->"
	fullStart       = "<!-- CHUNK:FULL:START -->"
	fullEnd         = "<!-- CHUNK:FULL:END -->"
)

// renderChunked builds a full artifact file: frontmatter then the SUMMARY,
// CONCLUSION and FULL regions in that order.
func renderChunked(meta core.ArtifactMeta, chunks core.Chunks) []byte {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("# Task: %s\n\n", meta.TaskID))
	b.WriteString("## Metadata\n")
	b.WriteString(fmt.Sprintf("- Created: %s\n", meta.Timestamp.UTC().Format(time.RFC3339)))
	b.WriteString(fmt.Sprintf("- Status: %s\n\n", meta.Status))

	writeChunk(&b, summaryStart, summaryEnd, chunks.Summary)
	writeChunk(&b, conclusionStart, conclusionEnd, chunks.Conclusion)
	writeChunk(&b, fullStart, fullEnd, chunks.Full)

	return []byte(b.String())
}

func writeChunk(b *strings.Builder, start, end, content string) {
	b.WriteString(start)
	b.WriteString("\n")
	b.WriteString(content)
	b.WriteString("\n")
	b.WriteString(end)
	b.WriteString("\n\n")
}

// parseArtifact extracts the frontmatter and the regions at or below the
// requested load level.
func parseArtifact(content string, level core.LoadLevel) *core.Artifact {
	artifact := &core.Artifact{Meta: parseMeta(content)}

	if level >= core.LoadSummary {
		artifact.Chunks.Summary = extractChunk(content, summaryStart, summaryEnd)
	}
	if level >= core.LoadConclusion {
		artifact.Chunks.Conclusion = extractChunk(content, conclusionStart, conclusionEnd)
	}
	if level >= core.LoadFull {
		artifact.Chunks.Full = extractChunk(content, fullStart, fullEnd)
	}

	return artifact
}

func parseMeta(content string) core.ArtifactMeta {
	var meta core.ArtifactMeta
	for _, line := range strings.SplitN(content, "\n", 24) {
		switch {
		case strings.HasPrefix(line, "# Task: "):
			meta.TaskID = strings.TrimSpace(strings.TrimPrefix(line, "# Task: "))
		case strings.HasPrefix(line, "- Created: "):
			if ts, err := time.Parse(time.RFC3339, strings.TrimSpace(strings.TrimPrefix(line, "- Created: "))); err == nil {
				meta.Timestamp = ts
			}
		case strings.HasPrefix(line, "- Status: "):
			meta.Status = strings.TrimSpace(strings.TrimPrefix(line, "- Status: "))
		}
	}
	return meta
}

func extractChunk(content, start, end string) string {
	startIdx := strings.Index(content, start)
	endIdx := strings.Index(content, end)
	if startIdx == -1 || endIdx == -1 || endIdx < startIdx {
		return ""
	}
	// Strip only the two newlines writeChunk puts around the content.
	body := strings.TrimPrefix(content[startIdx+len(start):endIdx], "\n")
	return strings.TrimSuffix(body, "\n")
}
