package similarity

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

// TFIDFScorer scores topical similarity between two texts using TF-IDF
// weighted cosine similarity over the pair's own vocabulary. Stopwords are
// filtered so boilerplate prose does not inflate scores.
type TFIDFScorer struct {
	tokenPattern *regexp.Regexp
	stopwords    map[string]struct{}
}

func NewTFIDFScorer() *TFIDFScorer {
	return &TFIDFScorer{
		tokenPattern: regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`),
		stopwords:    defaultStopwords(),
	}
}

// Score returns the cosine similarity of the TF-IDF vectors of a and b,
// clamped to [0,1]. Empty or stopword-only inputs score 0.
func (s *TFIDFScorer) Score(a, b string) float64 {
	ta := s.termFreqs(a)
	tb := s.termFreqs(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	// Vocabulary of the pair, in stable order.
	vocab := make(map[string]int)
	for term := range ta {
		if _, ok := vocab[term]; !ok {
			vocab[term] = 0
		}
	}
	for term := range tb {
		if _, ok := vocab[term]; !ok {
			vocab[term] = 0
		}
	}
	terms := make([]string, 0, len(vocab))
	for term := range vocab {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	for i, term := range terms {
		vocab[term] = i
	}

	// Smoothed IDF over the two-document corpus.
	idf := make([]float64, len(terms))
	for i, term := range terms {
		df := 0
		if ta[term] > 0 {
			df++
		}
		if tb[term] > 0 {
			df++
		}
		idf[i] = math.Log(3.0/(1.0+float64(df))) + 1.0
	}

	va := vectorize(ta, vocab, idf)
	vb := vectorize(tb, vocab, idf)

	sim := dot(va, vb)
	if sim < 0 {
		return 0
	}
	if sim > 1 {
		return 1
	}
	return sim
}

func (s *TFIDFScorer) termFreqs(text string) map[string]int {
	freqs := make(map[string]int)
	for _, tok := range s.tokenPattern.FindAllString(strings.ToLower(text), -1) {
		if _, isStop := s.stopwords[tok]; isStop {
			continue
		}
		freqs[tok]++
	}
	return freqs
}

// vectorize builds an L2-normalized TF-IDF vector.
func vectorize(tf map[string]int, vocab map[string]int, idf []float64) []float64 {
	vec := make([]float64, len(vocab))
	total := 0
	for _, count := range tf {
		total += count
	}
	if total == 0 {
		return vec
	}
	for term, count := range tf {
		idx := vocab[term]
		vec[idx] = (float64(count) / float64(total)) * idf[idx]
	}
	norm := 0.0
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec
}

func dot(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
