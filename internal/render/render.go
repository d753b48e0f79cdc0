// Package render writes finished reports to disk as JSON and Markdown
// artifacts.
package render

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/dgallion1/papersumm/internal/summary"
)

const artifactSuffix = "-engineering-summary"

// Artifacts holds the paths of the files written for one report.
type Artifacts struct {
	JSONPath     string `json:"json_path"`
	MarkdownPath string `json:"markdown_path"`
}

type Renderer struct {
	outDir string
}

func New(outDir string) *Renderer {
	return &Renderer{outDir: outDir}
}

// Write renders both artifact forms for the report and returns their paths.
func (r *Renderer) Write(report *summary.Report) (*Artifacts, error) {
	if err := os.MkdirAll(r.outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	base := SanitizeFilename(report.Title)
	if base == "" {
		base = "untitled"
	}

	jsonPath := filepath.Join(r.outDir, base+artifactSuffix+".json")
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(jsonPath, append(data, '\n'), 0o644); err != nil {
		return nil, fmt.Errorf("write %s: %w", jsonPath, err)
	}

	mdPath := filepath.Join(r.outDir, base+artifactSuffix+".md")
	if err := os.WriteFile(mdPath, []byte(Markdown(report)), 0o644); err != nil {
		return nil, fmt.Errorf("write %s: %w", mdPath, err)
	}

	return &Artifacts{JSONPath: jsonPath, MarkdownPath: mdPath}, nil
}

// Markdown renders the report as a standalone Markdown document: title, key
// takeaways, the per-section summaries in document order, and the Engineer's
// Corner advice block.
func Markdown(report *summary.Report) string {
	var sb strings.Builder

	title := strings.TrimSpace(report.Title)
	if title == "" {
		title = "Untitled Paper"
	}
	fmt.Fprintf(&sb, "# %s\n\n", title)

	if len(report.Takeaways) > 0 {
		sb.WriteString("## Key Takeaways\n\n")
		for _, tk := range report.Takeaways {
			fmt.Fprintf(&sb, "- %s\n", tk)
		}
		if report.SynthesisDegraded {
			sb.WriteString("\n*Final synthesis unavailable; takeaways are unranked section candidates.*\n")
		}
		sb.WriteString("\n")
	}

	for _, sec := range report.Sections {
		fmt.Fprintf(&sb, "## %s\n\n%s\n", sec.Label, strings.TrimSpace(sec.Summary))
		if sec.ExcerptDerived {
			sb.WriteString("\n*Model summary unavailable; shown text is an excerpt of the source.*\n")
		}
		sb.WriteString("\n")
	}

	if advice := strings.TrimSpace(report.ImplementationAdvice); advice != "" {
		fmt.Fprintf(&sb, "## Engineer's Corner\n\n%s\n", advice)
	}

	return strings.TrimRight(sb.String(), "\n") + "\n"
}

var invalidFilenameRe = regexp.MustCompile(`[\\/*?:"<>|]`)

// SanitizeFilename replaces filesystem-invalid characters with underscores.
func SanitizeFilename(name string) string {
	return strings.TrimSpace(invalidFilenameRe.ReplaceAllString(name, "_"))
}
