package summary

import (
	"strings"
	"testing"

	"github.com/dgallion1/papersumm/internal/similarity"
)

const relevanceTitle = "Adaptive Batching for Stream Processors"

const relevanceAbstract = "We present an adaptive batching strategy for stream processors " +
	"that adjusts batch size from observed queue depth to balance latency and throughput."

func topicalSection(label string) *Section {
	return &Section{
		Label: label,
		Text: strings.Repeat("The adaptive batching controller observes queue depth in the stream "+
			"processor and adjusts batch size to balance latency against throughput. ", 5),
	}
}

func bibliographySection(label string) *Section {
	return &Section{
		Label: label,
		Text: strings.Repeat("[12] Frobisher, Q. and Wendell, P. Grommet calibration under "+
			"crepuscular illumination. Journal of Ancillary Widgetry, vol. 7, 1989. ", 5),
	}
}

func newTestDetector(cfg Config) *Detector {
	return NewDetector(similarity.NewTFIDFScorer(), cfg)
}

func TestFilterRelevant_DropsReferencesByLabel(t *testing.T) {
	d := newTestDetector(DefaultConfig())
	sections := []*Section{
		topicalSection("Introduction"),
		topicalSection("Evaluation"),
		topicalSection("Conclusion"),
		bibliographySection("References"),
	}
	for i, sec := range sections {
		sec.Ordinal = i
	}

	got := d.FilterRelevant(sections, relevanceTitle, relevanceAbstract)
	if len(got) != 3 {
		t.Fatalf("expected 3 surviving sections, got %d", len(got))
	}
	for i, sec := range got {
		if sec.Label == "References" {
			t.Error("references section should never survive filtering")
		}
		if sec.Ordinal != i {
			t.Errorf("section %q ordinal = %d, want %d", sec.Label, sec.Ordinal, i)
		}
	}
}

func TestFilterRelevant_DropsOffTopicSection(t *testing.T) {
	d := newTestDetector(DefaultConfig())
	offTopic := &Section{
		Label: "Part 4",
		Text: strings.Repeat("Crepuscular grommets exhibit unusual widgetry when calibrated "+
			"against seasonal marmalade fluctuations near coastal observatories. ", 5),
	}
	sections := []*Section{
		topicalSection("Introduction"),
		topicalSection("Design"),
		topicalSection("Evaluation"),
		offTopic,
	}

	got := d.FilterRelevant(sections, relevanceTitle, relevanceAbstract)
	if len(got) != 3 {
		t.Fatalf("expected 3 surviving sections, got %d", len(got))
	}
	for _, sec := range got {
		if sec.Label == "Part 4" {
			t.Error("off-topic section should be filtered out")
		}
	}
}

func TestFilterRelevant_KeepsTopSectionsWhenThresholdTooHigh(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RelevanceSimilarity = 1.0
	d := newTestDetector(cfg)
	sections := []*Section{
		topicalSection("Introduction"),
		topicalSection("Design"),
		topicalSection("Evaluation"),
		topicalSection("Conclusion"),
	}

	got := d.FilterRelevant(sections, relevanceTitle, relevanceAbstract)
	if len(got) != 3 {
		t.Fatalf("floor should keep 3 sections, got %d", len(got))
	}
	// Survivors stay in source order.
	for i := 1; i < len(got); i++ {
		prev, cur := labelIndex(sections, got[i-1].Label), labelIndex(sections, got[i].Label)
		if prev >= cur {
			t.Errorf("source order lost: %q before %q", got[i-1].Label, got[i].Label)
		}
	}
}

func TestFilterRelevant_EmptyTopicOnlyDropsBoilerplate(t *testing.T) {
	d := newTestDetector(DefaultConfig())
	sections := []*Section{
		topicalSection("Full Text"),
		bibliographySection("Bibliography"),
		bibliographySection("Acknowledgements"),
	}

	got := d.FilterRelevant(sections, "", "")
	if len(got) != 1 || got[0].Label != "Full Text" {
		t.Fatalf("expected only Full Text to survive, got %d sections", len(got))
	}
}

func TestFilterRelevant_AllBoilerplatePassesThrough(t *testing.T) {
	d := newTestDetector(DefaultConfig())
	sections := []*Section{bibliographySection("References")}

	got := d.FilterRelevant(sections, relevanceTitle, relevanceAbstract)
	if len(got) != 1 {
		t.Fatalf("a boilerplate-only document should pass through, got %d sections", len(got))
	}
}

func labelIndex(sections []*Section, label string) int {
	for i, sec := range sections {
		if sec.Label == label {
			return i
		}
	}
	return -1
}
