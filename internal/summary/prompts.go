package summary

import (
	"fmt"
	"strings"
)

const chunkPrompt = `Summarize the following passage from a technical research paper for a practicing engineer. Respond with ONLY a JSON object with these fields:

- "summary": an engaging, insight-focused summary of the passage (string)
- "takeaways": 2-5 short, self-contained statements an engineer could act on (list of strings)

Rules:
- Prioritize practical applications, real-world impact, and actionable insights
- Keep technical terms but explain them in plain language where needed
- Highlight key findings and innovations, not just methodology
- Begin the summary with the most interesting aspect, never with "This section discusses"
- Each takeaway must stand on its own without the surrounding text

Respond with ONLY the JSON object, no other text.`

// BuildChunkPrompt creates the full map-phase prompt for one chunk,
// including document title and section label context.
func BuildChunkPrompt(docTitle, sectionLabel, chunkText string) string {
	var sb strings.Builder
	sb.WriteString(chunkPrompt)
	sb.WriteString("\n\n---\n")
	if docTitle != "" {
		fmt.Fprintf(&sb, "Document: %q\n", docTitle)
	}
	if sectionLabel != "" {
		fmt.Fprintf(&sb, "Section: %s\n", sectionLabel)
	}
	sb.WriteString("---\n")
	sb.WriteString(chunkText)
	return sb.String()
}

const pairReducePrompt = `Merge these two partial summaries of consecutive passages from the same section of a research paper into one coherent summary. Preserve every distinct finding and all numerical results; remove only repetition. Keep the engineering-application focus. Respond with ONLY the merged summary text.`

// BuildPairReducePrompt merges two adjacent intermediate summaries.
func BuildPairReducePrompt(sectionLabel, left, right string) string {
	var sb strings.Builder
	sb.WriteString(pairReducePrompt)
	sb.WriteString("\n\n---\n")
	if sectionLabel != "" {
		fmt.Fprintf(&sb, "Section: %s\n", sectionLabel)
	}
	sb.WriteString("---\nFIRST PART:\n\n")
	sb.WriteString(left)
	sb.WriteString("\n\nSECOND PART:\n\n")
	sb.WriteString(right)
	return sb.String()
}

const sectionReducePrompt = `Synthesize these partial summaries of one section of a research paper into a single coherent section summary. Your synthesis must:
1. Preserve chunk order and every distinct finding
2. Highlight practical applications and real-world impact
3. Explain numerical data in context of why it matters
4. Read as one continuous piece, not a list of fragments

Respond with ONLY the section summary text.`

// BuildSectionReducePrompt combines a section's chunk summaries in order.
func BuildSectionReducePrompt(docTitle, sectionLabel string, parts []string) string {
	var sb strings.Builder
	sb.WriteString(sectionReducePrompt)
	sb.WriteString("\n\n---\n")
	if docTitle != "" {
		fmt.Fprintf(&sb, "Document: %q\n", docTitle)
	}
	fmt.Fprintf(&sb, "Section: %s\n", sectionLabel)
	sb.WriteString("---\n")
	for i, p := range parts {
		fmt.Fprintf(&sb, "\nPART %d:\n\n%s\n", i+1, p)
	}
	return sb.String()
}

const synthesisPrompt = `You are given section summaries of a technical research paper, in document order, plus candidate takeaways extracted per section. Produce the final engineering-focused synthesis. Respond with ONLY a JSON object with these fields:

- "takeaways": the top %d takeaways, ranked most valuable first, deduplicated (list of strings)
- "implementation_advice": an "Engineer's Corner" block covering practical applications available now, future possibilities, implementation tips, and suggested tools or resources (string)

Rules:
- Focus on what engineers can DO with this research
- Connect the dots between sections; define acronyms in plain language
- Base takeaways on the candidates but rewrite for clarity; drop near-duplicates
- Do not invent results that are not in the summaries

Respond with ONLY the JSON object, no other text.`

// BuildSynthesisPrompt creates the document-level reduce prompt.
func BuildSynthesisPrompt(docTitle, abstract string, sections []*SectionSummary, topN int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, synthesisPrompt, topN)
	sb.WriteString("\n\n---\n")
	if docTitle != "" {
		fmt.Fprintf(&sb, "Document: %q\n", docTitle)
	}
	if abstract != "" {
		fmt.Fprintf(&sb, "Abstract: %s\n", abstract)
	}
	sb.WriteString("---\n")
	for _, sec := range sections {
		fmt.Fprintf(&sb, "\n## %s\n\n%s\n", sec.Label, sec.Text)
		if len(sec.Takeaways) > 0 {
			sb.WriteString("\nCandidate takeaways:\n")
			for _, tk := range sec.Takeaways {
				fmt.Fprintf(&sb, "- %s\n", tk)
			}
		}
	}
	return sb.String()
}
