package summary

// Document is the section-detected form of one input file. Immutable after
// detection; the pipeline only annotates it with derived summaries.
type Document struct {
	Title    string
	Abstract string // topical context for the final synthesis, may be empty
	RawLen   int    // characters of extracted text
	Sections []*Section
}

// Section is a topically coherent span of the source document.
type Section struct {
	Label   string
	Ordinal int
	Text    string
	Chunks  []*Chunk
	Summary *SectionSummary // nil until reduce phase completes
}

// Chunk is a bounded-size unit of section text, one map call each.
type Chunk struct {
	Text    string
	Ordinal int           // position within the section
	Summary *ChunkSummary // nil until map phase completes
}

// ChunkSummary is the typed result of one map call.
type ChunkSummary struct {
	Text           string
	Takeaways      []string
	ExcerptDerived bool // true when the model call failed and a raw excerpt stands in
}

// SectionSummary is the reduced summary of one section.
type SectionSummary struct {
	Label          string
	Text           string
	Takeaways      []string // merged, deduplicated candidates from this section's chunks
	ExcerptDerived bool
}

// Synthesis is the document-level reduce output.
type Synthesis struct {
	Takeaways            []string
	ImplementationAdvice string
	ExcerptDerived       bool
}

// Report is the terminal artifact handed to the renderer.
type Report struct {
	Title                string          `json:"title"`
	Takeaways            []string        `json:"takeaways"`
	Sections             []ReportSection `json:"sections"`
	ImplementationAdvice string          `json:"implementation_advice"`
	SynthesisDegraded    bool            `json:"synthesis_degraded,omitempty"` // takeaways are raw section candidates, not a ranked synthesis
}

// ReportSection mirrors Document section order exactly.
type ReportSection struct {
	Label          string `json:"label"`
	Summary        string `json:"summary"`
	ExcerptDerived bool   `json:"excerpt_derived,omitempty"`
}
