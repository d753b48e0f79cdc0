package summary

// Phase identifies which stage of the engine a progress event belongs to.
type Phase string

const (
	PhaseMap       Phase = "map"
	PhaseReduce    Phase = "reduce"
	PhaseSynthesis Phase = "synthesis"
)

// ProgressFunc receives completed/total counts as a phase advances. Called
// from multiple goroutines during the map phase.
type ProgressFunc func(phase Phase, completed, total int)

// Config holds the engine tunables. It is passed by value into the
// constructors and never mutated afterwards.
type Config struct {
	ChunkSize           int     // max characters per map-phase unit
	MinSimilarity       float64 // section-boundary threshold for window fallback
	MergeSimilarity     float64 // coalesce adjacent sections above this
	DedupSimilarity     float64 // drop a takeaway whose similarity to a kept one reaches this
	RelevanceSimilarity float64 // drop a section scoring below this against title+abstract
	WindowSize          int     // sliding-window width for fallback segmentation
	TopNTakeaways       int     // ranked takeaways in the final report
	MaxConcurrency      int     // outstanding LLM calls

	Progress ProgressFunc // optional phase progress callback
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		ChunkSize:           15000,
		MinSimilarity:       0.15,
		MergeSimilarity:     0.60,
		DedupSimilarity:     0.80,
		RelevanceSimilarity: 0.15,
		WindowSize:          4000,
		TopNTakeaways:       6,
		MaxConcurrency:      5,
	}
}

// withDefaults treats non-positive and out-of-range values as unset, so a
// zero-value Config behaves exactly like DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.ChunkSize <= 0 {
		c.ChunkSize = d.ChunkSize
	}
	if c.MinSimilarity <= 0 || c.MinSimilarity > 1 {
		c.MinSimilarity = d.MinSimilarity
	}
	if c.MergeSimilarity <= 0 || c.MergeSimilarity > 1 {
		c.MergeSimilarity = d.MergeSimilarity
	}
	if c.DedupSimilarity <= 0 || c.DedupSimilarity > 1 {
		c.DedupSimilarity = d.DedupSimilarity
	}
	if c.RelevanceSimilarity <= 0 || c.RelevanceSimilarity > 1 {
		c.RelevanceSimilarity = d.RelevanceSimilarity
	}
	if c.WindowSize <= 0 {
		c.WindowSize = d.WindowSize
	}
	if c.TopNTakeaways <= 0 {
		c.TopNTakeaways = d.TopNTakeaways
	}
	if c.MaxConcurrency <= 0 {
		c.MaxConcurrency = d.MaxConcurrency
	}
	return c
}
