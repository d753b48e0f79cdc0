package chunker

import "strings"

// Split breaks text into ordered chunks of at most maxChars characters.
// Boundaries prefer paragraph breaks, then sentence breaks. A single sentence
// longer than maxChars is emitted alone as an oversized chunk rather than
// truncated; content is never dropped. Chunks are never empty, and joining
// them reproduces the input text modulo boundary whitespace.
func Split(text string, maxChars int) []string {
	if maxChars <= 0 {
		maxChars = 15000
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	paragraphs := splitByParagraphs(text)

	var chunks []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
		}
	}
	add := func(part, sep string) {
		if current.Len() > 0 {
			if current.Len()+len(sep)+len(part) > maxChars {
				flush()
			} else {
				current.WriteString(sep)
			}
		}
		current.WriteString(part)
	}

	for _, para := range paragraphs {
		if len(para) > maxChars {
			// Paragraph cannot fit whole; fall back to sentence boundaries.
			for _, sent := range splitSentences(para) {
				if len(sent) > maxChars {
					// Atomic oversized sentence: emit alone.
					flush()
					chunks = append(chunks, sent)
					continue
				}
				add(sent, " ")
			}
			continue
		}
		add(para, "\n\n")
	}
	flush()

	return chunks
}

// splitByParagraphs splits on blank lines, dropping empty segments.
func splitByParagraphs(text string) []string {
	parts := strings.Split(text, "\n\n")
	var result []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// splitSentences does basic sentence splitting on terminal punctuation
// followed by whitespace.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	for i, r := range text {
		current.WriteRune(r)
		if (r == '.' || r == '!' || r == '?') && i+1 < len(text) && isSpace(text[i+1]) {
			s := strings.TrimSpace(current.String())
			if s != "" {
				sentences = append(sentences, s)
			}
			current.Reset()
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}

	return sentences
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\n' || b == '\t' || b == '\r'
}
