package similarity

// Scorer reports topical similarity between two text spans.
// Implementations must return a value in [0,1] where 1 means the spans
// cover the same topic.
type Scorer interface {
	Score(a, b string) float64
}
