package summary

import (
	"fmt"
	"strings"
	"testing"

	"github.com/dgallion1/papersumm/internal/chunker"
	"github.com/dgallion1/papersumm/internal/similarity"
)

func repeatSentence(sentence string, n int) string {
	var sb strings.Builder
	for i := 0; i < n; i++ {
		sb.WriteString(sentence)
		sb.WriteByte(' ')
	}
	return strings.TrimSpace(sb.String())
}

func TestDetect_NumberedHeadings(t *testing.T) {
	text := strings.Join([]string{
		repeatSentence("authors, affiliations and grant acknowledgements open the manuscript before any numbered material begins.", 4),
		"1. Introduction",
		repeatSentence("stream processors face a persistent tension between batching efficiency and end-to-end responsiveness.", 4),
		"2. Methods",
		repeatSentence("we instrument three production clusters and sample queue depth at millisecond granularity.", 4),
		"3. Results",
		repeatSentence("tail percentiles drop sharply once the controller adapts its window to observed arrival bursts.", 4),
		"4. Conclusion",
		repeatSentence("adaptive policies outperform every static configuration we evaluated, often by a wide margin.", 4),
	}, "\n\n")

	d := NewDetector(similarity.NewTFIDFScorer(), DefaultConfig())
	sections := d.Detect(text)

	want := []string{"Preamble", "Introduction", "Methods", "Results", "Conclusion"}
	if len(sections) != len(want) {
		for _, s := range sections {
			t.Logf("got section %q (%d chars)", s.Label, len(s.Text))
		}
		t.Fatalf("expected %d sections, got %d", len(want), len(sections))
	}
	for i, s := range sections {
		if s.Label != want[i] {
			t.Errorf("section %d: label = %q, want %q", i, s.Label, want[i])
		}
		if s.Ordinal != i {
			t.Errorf("section %q: ordinal = %d, want %d", s.Label, s.Ordinal, i)
		}
		if strings.TrimSpace(s.Text) == "" {
			t.Errorf("section %q has empty text", s.Label)
		}
	}
}

func TestDetect_HeadingLabelsNormalized(t *testing.T) {
	text := strings.Join([]string{
		repeatSentence("editorial front matter precedes the numbered body of this manuscript by a comfortable margin.", 4),
		"1. introduction:",
		repeatSentence("our motivation stems from operating replicated queues at scale for several years.", 4),
		"2. RELATED WORK",
		repeatSentence("earlier systems explored static batching but never closed the loop on observed load.", 4),
	}, "\n\n")

	d := NewDetector(similarity.NewTFIDFScorer(), DefaultConfig())
	sections := d.Detect(text)

	labels := make([]string, len(sections))
	for i, s := range sections {
		labels[i] = s.Label
	}
	joined := strings.Join(labels, "|")
	if !strings.Contains(joined, "Introduction") {
		t.Errorf("expected normalized label Introduction, got %v", labels)
	}
}

// With the boundary threshold forced to 1.0, every adjacent window pair in
// heading-less text opens a boundary, so each window becomes its own part.
func TestDetect_WindowFallbackMaxSensitivity(t *testing.T) {
	topics := []string{
		"caching layers and eviction policies for hot keys",
		"consensus protocols and leader election timeouts",
		"columnar storage formats and vectorized scans",
	}
	var paras []string
	for _, topic := range topics {
		paras = append(paras, repeatSentence("this passage concerns "+topic+" exclusively.", 6))
	}
	text := strings.Join(paras, "\n\n")

	cfg := DefaultConfig()
	cfg.MinSimilarity = 1.0
	cfg.WindowSize = 700

	d := NewDetector(similarity.NewTFIDFScorer(), cfg)
	sections := d.Detect(text)

	windows := chunker.Split(text, cfg.WindowSize)
	if len(sections) != len(windows) {
		t.Fatalf("expected one section per window (%d), got %d", len(windows), len(sections))
	}
	for i, s := range sections {
		want := fmt.Sprintf("Part %d", i+1)
		if s.Label != want {
			t.Errorf("section %d: label = %q, want %q", i, s.Label, want)
		}
	}
}

func TestDetect_DegenerateSingleSection(t *testing.T) {
	d := NewDetector(similarity.NewTFIDFScorer(), DefaultConfig())
	sections := d.Detect("just a short note without any structure to speak of.")
	if len(sections) != 1 {
		t.Fatalf("expected 1 section, got %d", len(sections))
	}
	if sections[0].Label != "Full Text" {
		t.Errorf("label = %q, want %q", sections[0].Label, "Full Text")
	}
	if sections[0].Ordinal != 0 {
		t.Errorf("ordinal = %d, want 0", sections[0].Ordinal)
	}
}

func TestDetect_CoalesceMergesNearDuplicateSections(t *testing.T) {
	same := repeatSentence("the replicated benchmark narrative repeats identically across both of these sections.", 4)
	text := strings.Join([]string{
		repeatSentence("front matter introduces the venue, the authors and the reproducibility artifacts.", 4),
		"1. Results",
		same,
		"2. Discussion",
		same,
		"3. Conclusion",
		repeatSentence("closing remarks sketch future work on heterogeneous hardware deployments.", 4),
	}, "\n\n")

	d := NewDetector(similarity.NewTFIDFScorer(), DefaultConfig())
	sections := d.Detect(text)

	for i := 1; i < len(sections); i++ {
		if sections[i-1].Label == "Results" && sections[i].Label == "Discussion" {
			t.Fatal("near-identical adjacent sections were not coalesced")
		}
	}
}

func TestExtractAbstract(t *testing.T) {
	text := "Adaptive Batching for Stream Processors\n\nAbstract\nWe present an adaptive batching strategy that adjusts batch size from observed queue depth, cutting p99 latency by 38% on three production workloads without throughput loss.\n\n1. Introduction\nStream processors face a tension between latency and throughput."
	got := ExtractAbstract(text)
	if !strings.Contains(got, "adaptive batching strategy") {
		t.Errorf("abstract not extracted, got %q", got)
	}
	if strings.Contains(got, "\n") {
		t.Errorf("abstract should be whitespace-collapsed, got %q", got)
	}
}

func TestExtractAbstract_FallsBackToFirstParagraph(t *testing.T) {
	text := "This paper studies tail latency in replicated queues under bursty arrivals.\n\nMore body text follows here."
	got := ExtractAbstract(text)
	if !strings.Contains(got, "tail latency") {
		t.Errorf("expected first-paragraph fallback, got %q", got)
	}
}
