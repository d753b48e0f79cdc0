package summary

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/dgallion1/papersumm/internal/chunker"
	"github.com/dgallion1/papersumm/internal/similarity"
)

// Detector segments raw extracted text into an ordered sequence of labeled
// sections using heading heuristics, with a similarity-based sliding-window
// fallback for text that carries no detectable headings.
type Detector struct {
	scorer similarity.Scorer
	cfg    Config
}

func NewDetector(scorer similarity.Scorer, cfg Config) *Detector {
	return &Detector{scorer: scorer, cfg: cfg.withDefaults()}
}

var (
	numberedHeadingRe = regexp.MustCompile(`^\d{1,2}(\.\d{1,2})*[.)]?\s+\S`)
	numberPrefixRe    = regexp.MustCompile(`^\d{1,2}(\.\d{1,2})*[.)]?\s*`)
	knownSectionRe    = regexp.MustCompile(`(?i)^(abstract|introduction|related work|background|methodology|methods?|experiments?|experimental setup|implementation|architecture|results|evaluation|discussion|future work|limitations|conclusions?|references|bibliography|acknowledge?ments?|appendix)\b`)
)

// Headings accepted closer together than this are treated as false
// positives, mirroring the minimum-gap filter of typical paper layouts.
const minHeadingGap = 200

// Preamble text before the first heading shorter than this is dropped
// (usually title, authors, venue lines).
const minPreambleChars = 200

type headingMark struct {
	start int // byte offset of the heading line
	end   int // byte offset just past the heading line (incl. newline)
	label string
}

// Detect splits rawText into ordered sections. It never returns zero
// sections: undetectable structure degrades to a single "Full Text" section.
func (d *Detector) Detect(rawText string) []*Section {
	if strings.TrimSpace(rawText) == "" {
		return []*Section{{Label: "Full Text", Ordinal: 0, Text: strings.TrimSpace(rawText)}}
	}

	marks := d.scanHeadings(rawText)

	var sections []*Section
	if len(marks) >= 2 {
		sections = d.sectionsFromHeadings(rawText, marks)
		sections = d.coalesce(sections)
	}
	if len(sections) == 0 {
		sections = d.windowFallback(rawText)
	}
	if len(sections) == 0 {
		sections = []*Section{{Label: "Full Text", Text: strings.TrimSpace(rawText)}}
	}

	for i, sec := range sections {
		sec.Ordinal = i
	}
	return sections
}

func (d *Detector) scanHeadings(text string) []headingMark {
	var marks []headingMark
	offset := 0
	for _, line := range strings.SplitAfter(text, "\n") {
		lineLen := len(line)
		trimmed := strings.TrimSpace(line)
		if isHeadingLine(trimmed) {
			if len(marks) == 0 || offset-marks[len(marks)-1].end >= minHeadingGap {
				marks = append(marks, headingMark{
					start: offset,
					end:   offset + lineLen,
					label: cleanLabel(trimmed),
				})
			}
		}
		offset += lineLen
	}
	return marks
}

func (d *Detector) sectionsFromHeadings(text string, marks []headingMark) []*Section {
	var sections []*Section

	// Text before the first heading is usually title/author boilerplate;
	// keep it only when substantial.
	preamble := strings.TrimSpace(text[:marks[0].start])
	if len(preamble) >= minPreambleChars {
		sections = append(sections, &Section{Label: "Preamble", Text: preamble})
	}

	for i, mark := range marks {
		end := len(text)
		if i+1 < len(marks) {
			end = marks[i+1].start
		}
		content := strings.TrimSpace(text[mark.end:end])
		if content == "" {
			continue
		}
		label := mark.label
		if label == "" {
			label = "Unlabeled"
		}
		sections = append(sections, &Section{Label: label, Text: content})
	}
	return sections
}

// windowFallback segments heading-less text by topical similarity between
// adjacent fixed-size windows: a drop below MinSimilarity opens a boundary.
func (d *Detector) windowFallback(text string) []*Section {
	windows := chunker.Split(text, d.cfg.WindowSize)
	if len(windows) == 0 {
		return nil
	}
	if len(windows) == 1 {
		return []*Section{{Label: "Full Text", Text: windows[0]}}
	}

	var groups [][]string
	current := []string{windows[0]}
	for i := 1; i < len(windows); i++ {
		if d.scorer.Score(windows[i-1], windows[i]) < d.cfg.MinSimilarity {
			groups = append(groups, current)
			current = []string{windows[i]}
		} else {
			current = append(current, windows[i])
		}
	}
	groups = append(groups, current)

	if len(groups) == 1 {
		return []*Section{{Label: "Full Text", Text: strings.Join(groups[0], "\n\n")}}
	}

	sections := make([]*Section, 0, len(groups))
	for i, g := range groups {
		sections = append(sections, &Section{
			Label: fmt.Sprintf("Part %d", i+1),
			Text:  strings.Join(g, "\n\n"),
		})
	}
	return sections
}

// coalesce merges adjacent heading-derived sections whose similarity exceeds
// the merge threshold, guarding against pathological over-segmentation.
func (d *Detector) coalesce(sections []*Section) []*Section {
	if len(sections) < 2 {
		return sections
	}
	out := []*Section{sections[0]}
	for _, sec := range sections[1:] {
		last := out[len(out)-1]
		if d.scorer.Score(last.Text, sec.Text) > d.cfg.MergeSimilarity {
			last.Text = last.Text + "\n\n" + sec.Text
			continue
		}
		out = append(out, sec)
	}
	return out
}

func isHeadingLine(line string) bool {
	if line == "" || len(line) > 80 {
		return false
	}
	if knownSectionRe.MatchString(stripNumbering(line)) {
		return true
	}
	if numberedHeadingRe.MatchString(line) && !strings.HasSuffix(line, ".") {
		return true
	}
	return isShortTitleCase(line)
}

// isShortTitleCase accepts short title-case lines without sentence
// punctuation, e.g. "Threat Model" or "System Design".
func isShortTitleCase(line string) bool {
	if strings.ContainsAny(line, ".,:;!?") {
		return false
	}
	words := strings.Fields(line)
	if len(words) == 0 || len(words) > 8 {
		return false
	}
	capitalized := 0
	for _, w := range words {
		r := []rune(w)[0]
		if unicode.IsUpper(r) {
			capitalized++
		} else if !unicode.IsLower(r) {
			return false
		}
	}
	// Every word capitalized except small connector words.
	return capitalized >= (len(words)+1)/2 && unicode.IsUpper([]rune(words[0])[0])
}

func stripNumbering(line string) string {
	return strings.TrimSpace(numberPrefixRe.ReplaceAllString(line, ""))
}

// cleanLabel normalizes a heading line into a section label: numbering
// stripped, trailing punctuation removed, first letter capitalized.
func cleanLabel(line string) string {
	label := stripNumbering(line)
	label = strings.TrimRight(label, " :.-")
	if label == "" {
		return ""
	}
	runes := []rune(label)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

var abstractPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?is)abstract\s*\n+(.*?)(?:\n\s*\n|\n(?:[A-Z]|\d))`),
	regexp.MustCompile(`(?is)abstract[:.\s]+(.*?)(?:\n\s*\n|\n(?:[A-Z]|\d))`),
}

var wsCollapseRe = regexp.MustCompile(`\s+`)

// ExtractAbstract pulls the abstract out of paper text, if present, falling
// back to the first paragraph. Used as topical context for the final
// synthesis call.
func ExtractAbstract(text string) string {
	for _, pat := range abstractPatterns {
		if m := pat.FindStringSubmatch(text); len(m) > 1 {
			abstract := wsCollapseRe.ReplaceAllString(strings.TrimSpace(m[1]), " ")
			if len(abstract) > 50 {
				return abstract
			}
		}
	}
	first := strings.SplitN(text, "\n\n", 2)[0]
	first = wsCollapseRe.ReplaceAllString(strings.TrimSpace(first), " ")
	if len(first) > 500 {
		first = first[:500]
	}
	if len(first) > 100 {
		return first
	}
	return ""
}
