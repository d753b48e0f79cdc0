package summary

import (
	"regexp"
	"sort"
	"strings"
)

// Labels of sections that never carry summarizable content, dropped before
// any model call is spent on them.
var boilerplateLabelRe = regexp.MustCompile(`(?i)^(references|bibliography|acknowledge?ments?)\b`)

// FilterRelevant drops sections with no topical relation to the paper:
// reference lists and acknowledgements by label, everything else by scoring
// the section text against the title and abstract. When the threshold would
// leave fewer than three sections, the highest scoring ones are kept instead,
// in source order. A document that is nothing but boilerplate passes through
// untouched.
func (d *Detector) FilterRelevant(sections []*Section, title, abstract string) []*Section {
	candidates := make([]*Section, 0, len(sections))
	for _, sec := range sections {
		if boilerplateLabelRe.MatchString(sec.Label) {
			continue
		}
		candidates = append(candidates, sec)
	}
	if len(candidates) == 0 {
		return sections
	}

	topic := strings.TrimSpace(title + " " + abstract)
	if topic == "" {
		return renumber(candidates)
	}

	scores := make(map[*Section]float64, len(candidates))
	var kept []*Section
	for _, sec := range candidates {
		score := d.scorer.Score(topic, sec.Text)
		scores[sec] = score
		if score >= d.cfg.RelevanceSimilarity {
			kept = append(kept, sec)
		}
	}

	// An aggressive threshold must not hollow out the document.
	if want := min(3, len(candidates)); len(kept) < want {
		ranked := append([]*Section(nil), candidates...)
		sort.SliceStable(ranked, func(i, j int) bool { return scores[ranked[i]] > scores[ranked[j]] })
		top := make(map[*Section]bool, want)
		for _, sec := range ranked[:want] {
			top[sec] = true
		}
		kept = kept[:0]
		for _, sec := range candidates {
			if top[sec] {
				kept = append(kept, sec)
			}
		}
	}
	return renumber(kept)
}

func renumber(sections []*Section) []*Section {
	for i, sec := range sections {
		sec.Ordinal = i
	}
	return sections
}
