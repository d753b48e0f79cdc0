package render

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dgallion1/papersumm/internal/summary"
)

func sampleReport() *summary.Report {
	return &summary.Report{
		Title:     "Adaptive Batching: A Field Study",
		Takeaways: []string{"Batch from observed queue depth", "Static sizes waste tail latency"},
		Sections: []summary.ReportSection{
			{Label: "Introduction", Summary: "The tension between batching and latency."},
			{Label: "Appendix", Summary: "Raw measurement tables.", ExcerptDerived: true},
		},
		ImplementationAdvice: "Start with a feedback controller on batch size.",
	}
}

func TestWrite_ProducesBothArtifacts(t *testing.T) {
	dir := t.TempDir()
	arts, err := New(dir).Write(sampleReport())
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	data, err := os.ReadFile(arts.JSONPath)
	if err != nil {
		t.Fatalf("read json artifact: %v", err)
	}
	var got summary.Report
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("json artifact not parseable: %v", err)
	}
	if got.Title != "Adaptive Batching: A Field Study" {
		t.Errorf("round-tripped title = %q", got.Title)
	}

	md, err := os.ReadFile(arts.MarkdownPath)
	if err != nil {
		t.Fatalf("read markdown artifact: %v", err)
	}
	for _, want := range []string{"# Adaptive Batching", "## Key Takeaways", "## Introduction", "## Engineer's Corner", "excerpt of the source"} {
		if !strings.Contains(string(md), want) {
			t.Errorf("markdown missing %q", want)
		}
	}

	// The colon in the title must not reach the filesystem.
	if strings.ContainsRune(filepath.Base(arts.JSONPath), ':') {
		t.Errorf("unsanitized artifact name %q", arts.JSONPath)
	}
}

func TestSanitizeFilename(t *testing.T) {
	got := SanitizeFilename(`a/b\c:d*e?f"g<h>i|j`)
	if strings.ContainsAny(got, `\/*?:"<>|`) {
		t.Errorf("invalid characters survived: %q", got)
	}
	if got != "a_b_c_d_e_f_g_h_i_j" {
		t.Errorf("got %q", got)
	}
}

func TestMarkdown_EmptyTitle(t *testing.T) {
	r := sampleReport()
	r.Title = ""
	md := Markdown(r)
	if !strings.HasPrefix(md, "# Untitled Paper") {
		t.Errorf("missing title fallback: %q", md[:40])
	}
}
