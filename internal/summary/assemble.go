package summary

import "fmt"

// IncompleteSummaryError reports a section that reached assembly without a
// summary. The degradation ladder makes this unreachable in normal operation,
// so it indicates a pipeline bug rather than a model failure.
type IncompleteSummaryError struct {
	Label   string
	Ordinal int
}

func (e *IncompleteSummaryError) Error() string {
	return fmt.Sprintf("section %q (ordinal %d) has no summary", e.Label, e.Ordinal)
}

// Assemble builds the final report from a fully reduced document. Sections
// appear in document order; every section must carry a summary.
func Assemble(doc *Document, syn *Synthesis) (*Report, error) {
	sections := make([]ReportSection, 0, len(doc.Sections))
	for _, sec := range doc.Sections {
		if sec.Summary == nil {
			return nil, &IncompleteSummaryError{Label: sec.Label, Ordinal: sec.Ordinal}
		}
		sections = append(sections, ReportSection{
			Label:          sec.Summary.Label,
			Summary:        sec.Summary.Text,
			ExcerptDerived: sec.Summary.ExcerptDerived,
		})
	}
	return &Report{
		Title:                doc.Title,
		Takeaways:            syn.Takeaways,
		Sections:             sections,
		ImplementationAdvice: syn.ImplementationAdvice,
		SynthesisDegraded:    syn.ExcerptDerived,
	}, nil
}
