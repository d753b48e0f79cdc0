package summary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/dgallion1/papersumm/internal/llm"
	"github.com/dgallion1/papersumm/internal/similarity"
)

// Per-call output token budgets, roughly matching the verbosity each phase
// needs: map summaries are short, section reductions medium, the final
// synthesis carries takeaways plus the advice block.
const (
	mapMaxTokens       = 1500
	reduceMaxTokens    = 2500
	synthesisMaxTokens = 4000
)

const (
	retryDelay   = 2 * time.Second
	excerptChars = 600
)

// errInvalidPayload marks a model response that came back but could not be
// parsed into the expected shape. Eligible for the single retry, like any
// other call failure.
var errInvalidPayload = errors.New("invalid model payload")

// MapReducer runs the hierarchical map-reduce summarization: one map call
// per chunk, a balanced pairwise reduction tree per section, and a single
// document-level synthesis.
type MapReducer struct {
	client llm.Client
	scorer similarity.Scorer
	cfg    Config
	log    *slog.Logger
}

func NewMapReducer(client llm.Client, scorer similarity.Scorer, cfg Config, log *slog.Logger) *MapReducer {
	if log == nil {
		log = slog.Default()
	}
	return &MapReducer{client: client, scorer: scorer, cfg: cfg.withDefaults(), log: log}
}

// Summarize runs the full engine over a detected, chunked document and
// returns the assembled report. Chunk-level failures degrade locally and
// never abort the document; only cancellation or the assembly invariant
// produce an error. Partial results are discarded on cancellation.
func (m *MapReducer) Summarize(ctx context.Context, doc *Document) (*Report, error) {
	if err := m.mapPhase(ctx, doc); err != nil {
		return nil, err
	}
	for i, sec := range doc.Sections {
		m.progress(PhaseReduce, i, len(doc.Sections))
		if err := m.reduceSection(ctx, doc.Title, sec); err != nil {
			return nil, err
		}
	}
	m.progress(PhaseReduce, len(doc.Sections), len(doc.Sections))
	m.progress(PhaseSynthesis, 0, 1)
	syn, err := m.synthesize(ctx, doc)
	if err != nil {
		return nil, err
	}
	return Assemble(doc, syn)
}

// mapPhase summarizes every chunk of every section with bounded concurrency.
// Each chunk's summary is written exactly once, to its own slot; there is no
// other shared state between tasks.
func (m *MapReducer) mapPhase(ctx context.Context, doc *Document) error {
	total := 0
	for _, sec := range doc.Sections {
		total += len(sec.Chunks)
	}
	m.progress(PhaseMap, 0, total)

	var done atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.cfg.MaxConcurrency)

	for _, sec := range doc.Sections {
		sec := sec
		for _, ch := range sec.Chunks {
			ch := ch
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				ch.Summary = m.summarizeChunk(gctx, doc.Title, sec.Label, ch)
				m.progress(PhaseMap, int(done.Add(1)), total)
				return gctx.Err()
			})
		}
	}
	return g.Wait()
}

func (m *MapReducer) progress(phase Phase, completed, total int) {
	if m.cfg.Progress != nil {
		m.cfg.Progress(phase, completed, total)
	}
}

// summarizeChunk issues one map call and parses the typed payload. After the
// retry, it degrades to a truncated-excerpt placeholder.
func (m *MapReducer) summarizeChunk(ctx context.Context, docTitle, sectionLabel string, ch *Chunk) *ChunkSummary {
	prompt := BuildChunkPrompt(docTitle, sectionLabel, ch.Text)

	var cs *ChunkSummary
	err := m.withRetry(ctx, func() error {
		raw, err := m.client.Generate(ctx, prompt, mapMaxTokens)
		if err != nil {
			return err
		}
		parsed, err := parseChunkPayload(raw)
		if err != nil {
			return err
		}
		cs = parsed
		return nil
	})
	if err != nil {
		m.log.Warn("chunk summarization degraded to excerpt",
			"section", sectionLabel, "chunk", ch.Ordinal, "error", err)
		return &ChunkSummary{Text: excerpt(ch.Text, excerptChars), ExcerptDerived: true}
	}
	return cs
}

// reduceSection combines a section's chunk summaries into its SectionSummary.
// When the concatenation exceeds the chunk budget, adjacent summaries are
// pairwise-reduced level by level, bounding sequential rounds to O(log n).
func (m *MapReducer) reduceSection(ctx context.Context, docTitle string, sec *Section) error {
	if len(sec.Chunks) == 0 {
		sec.Summary = &SectionSummary{
			Label:          sec.Label,
			Text:           excerpt(sec.Text, excerptChars),
			ExcerptDerived: true,
		}
		return nil
	}

	texts := make([]string, len(sec.Chunks))
	degraded := false
	var candidates []string
	for i, ch := range sec.Chunks {
		texts[i] = ch.Summary.Text
		degraded = degraded || ch.Summary.ExcerptDerived
		candidates = append(candidates, ch.Summary.Takeaways...)
	}
	takeaways := m.dedupTakeaways(candidates)

	if len(texts) == 1 {
		sec.Summary = &SectionSummary{Label: sec.Label, Text: texts[0], Takeaways: takeaways, ExcerptDerived: degraded}
		return nil
	}

	texts, levels, treeDegraded, err := m.reduceTree(ctx, sec.Label, texts)
	if err != nil {
		return err
	}
	degraded = degraded || treeDegraded
	if levels > 0 {
		m.log.Debug("pairwise reduction", "section", sec.Label, "levels", levels)
	}

	var final string
	if len(texts) == 1 {
		final = texts[0]
	} else {
		out, ok := m.reduceAll(ctx, docTitle, sec.Label, texts)
		if !ok {
			degraded = true
		}
		final = out
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	sec.Summary = &SectionSummary{Label: sec.Label, Text: final, Takeaways: takeaways, ExcerptDerived: degraded}
	return nil
}

// reduceTree pairwise-reduces ordered parts level by level until their total
// size fits the chunk budget (or one part remains). Pairs within a level run
// concurrently; levels are strictly ordered. Returns the surviving parts,
// the number of levels executed, and whether any node degraded.
func (m *MapReducer) reduceTree(ctx context.Context, sectionLabel string, texts []string) ([]string, int, bool, error) {
	levels := 0
	degraded := false

	for totalLen(texts) > m.cfg.ChunkSize && len(texts) > 1 {
		levels++
		next := make([]string, (len(texts)+1)/2)
		oks := make([]bool, len(next))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(m.cfg.MaxConcurrency)
		for i := 0; i+1 < len(texts); i += 2 {
			slot := i / 2
			left, right := texts[i], texts[i+1]
			g.Go(func() error {
				merged, ok := m.reducePair(gctx, sectionLabel, left, right)
				next[slot] = merged
				oks[slot] = ok
				return gctx.Err()
			})
		}
		if len(texts)%2 == 1 {
			next[len(next)-1] = texts[len(texts)-1]
			oks[len(oks)-1] = true
		}
		if err := g.Wait(); err != nil {
			return nil, levels, degraded, err
		}
		for _, ok := range oks {
			if !ok {
				degraded = true
			}
		}
		texts = next
	}
	return texts, levels, degraded, nil
}

// reducePair merges two adjacent summaries with one call, degrading to a
// bounded concatenation after the retry. The bool reports success.
func (m *MapReducer) reducePair(ctx context.Context, sectionLabel, left, right string) (string, bool) {
	var merged string
	err := m.withRetry(ctx, func() error {
		out, err := m.client.Generate(ctx, BuildPairReducePrompt(sectionLabel, left, right), reduceMaxTokens)
		if err != nil {
			return err
		}
		out = strings.TrimSpace(out)
		if out == "" {
			return fmt.Errorf("%w: empty reduction", errInvalidPayload)
		}
		merged = out
		return nil
	})
	if err != nil {
		m.log.Warn("pair reduction degraded to concatenation", "section", sectionLabel, "error", err)
		return concatFallback([]string{left, right}, m.cfg.ChunkSize), false
	}
	return merged, true
}

// reduceAll synthesizes the final section summary from parts that fit one
// call, degrading to a bounded concatenation after the retry.
func (m *MapReducer) reduceAll(ctx context.Context, docTitle, sectionLabel string, parts []string) (string, bool) {
	var final string
	err := m.withRetry(ctx, func() error {
		out, err := m.client.Generate(ctx, BuildSectionReducePrompt(docTitle, sectionLabel, parts), reduceMaxTokens)
		if err != nil {
			return err
		}
		out = strings.TrimSpace(out)
		if out == "" {
			return fmt.Errorf("%w: empty reduction", errInvalidPayload)
		}
		final = out
		return nil
	})
	if err != nil {
		m.log.Warn("section reduction degraded to concatenation", "section", sectionLabel, "error", err)
		return concatFallback(parts, m.cfg.ChunkSize), false
	}
	return final, true
}

// synthesize runs the document-level reduce: all section summaries, in
// order, into ranked takeaways plus the implementation advice block. After
// the retry it degrades to the deduplicated candidate takeaways.
func (m *MapReducer) synthesize(ctx context.Context, doc *Document) (*Synthesis, error) {
	secs := make([]*SectionSummary, 0, len(doc.Sections))
	var candidates []string
	for _, sec := range doc.Sections {
		if sec.Summary == nil {
			continue
		}
		secs = append(secs, sec.Summary)
		candidates = append(candidates, sec.Summary.Takeaways...)
	}
	candidates = m.dedupTakeaways(candidates)

	prompt := BuildSynthesisPrompt(doc.Title, doc.Abstract, secs, m.cfg.TopNTakeaways)

	var syn *Synthesis
	err := m.withRetry(ctx, func() error {
		raw, err := m.client.Generate(ctx, prompt, synthesisMaxTokens)
		if err != nil {
			return err
		}
		parsed, err := m.parseSynthesisPayload(raw)
		if err != nil {
			return err
		}
		syn = parsed
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		m.log.Warn("document synthesis degraded to candidate takeaways", "error", err)
		return &Synthesis{
			Takeaways:      clampTakeaways(candidates, m.cfg.TopNTakeaways),
			ExcerptDerived: true,
		}, nil
	}
	return syn, nil
}

// withRetry runs fn once and, if it fails with a retryable model error
// (including unparseable payloads), once more after a backoff. Cancellation
// wins over retries.
func (m *MapReducer) withRetry(ctx context.Context, fn func() error) error {
	err := fn()
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if _, isCall := llm.KindOf(err); !isCall && !errors.Is(err, errInvalidPayload) {
		return err
	}
	select {
	case <-time.After(retryBackoff()):
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := fn(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

type chunkPayload struct {
	Summary   string   `json:"summary"`
	Takeaways []string `json:"takeaways"`
}

// parseChunkPayload validates the map-call JSON at the boundary; raw
// payloads never travel deeper into the pipeline.
func parseChunkPayload(raw string) (*ChunkSummary, error) {
	var p chunkPayload
	if err := json.Unmarshal([]byte(llm.StripCodeBlock(raw)), &p); err != nil {
		return nil, fmt.Errorf("%w: %s", errInvalidPayload, err)
	}
	text := strings.TrimSpace(p.Summary)
	if text == "" {
		return nil, fmt.Errorf("%w: empty summary", errInvalidPayload)
	}
	takeaways := make([]string, 0, len(p.Takeaways))
	for _, tk := range p.Takeaways {
		tk = strings.TrimSpace(tk)
		if tk != "" {
			takeaways = append(takeaways, tk)
		}
		if len(takeaways) == 8 {
			break
		}
	}
	return &ChunkSummary{Text: text, Takeaways: takeaways}, nil
}

type synthesisPayload struct {
	Takeaways            []string `json:"takeaways"`
	ImplementationAdvice string   `json:"implementation_advice"`
}

func (m *MapReducer) parseSynthesisPayload(raw string) (*Synthesis, error) {
	var p synthesisPayload
	if err := json.Unmarshal([]byte(llm.StripCodeBlock(raw)), &p); err != nil {
		return nil, fmt.Errorf("%w: %s", errInvalidPayload, err)
	}
	takeaways := m.dedupTakeaways(p.Takeaways)
	if len(takeaways) == 0 {
		return nil, fmt.Errorf("%w: no takeaways", errInvalidPayload)
	}
	return &Synthesis{
		Takeaways:            clampTakeaways(takeaways, m.cfg.TopNTakeaways),
		ImplementationAdvice: strings.TrimSpace(p.ImplementationAdvice),
	}, nil
}

// dedupTakeaways drops candidates whose similarity to an already-kept
// takeaway reaches the dedup threshold. Order-preserving, so reruns with a
// deterministic model are byte-identical.
func (m *MapReducer) dedupTakeaways(candidates []string) []string {
	var kept []string
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		dup := false
		for _, k := range kept {
			if m.scorer.Score(c, k) >= m.cfg.DedupSimilarity {
				dup = true
				break
			}
		}
		if !dup {
			kept = append(kept, c)
		}
	}
	return kept
}

// retryBackoff is the delay before the single retry, with jitter so a burst
// of rate-limited calls does not retry in lockstep.
func retryBackoff() time.Duration {
	return retryDelay + time.Duration(rand.Int63n(int64(retryDelay/2)))
}

func clampTakeaways(takeaways []string, n int) []string {
	if len(takeaways) > n {
		return takeaways[:n]
	}
	return takeaways
}

func totalLen(texts []string) int {
	total := 0
	for _, t := range texts {
		total += len(t)
	}
	return total
}

// excerpt returns a truncated lead of text, cut at a word boundary, or at
// a rune boundary when no usable space is found.
func excerpt(text string, n int) string {
	text = strings.TrimSpace(text)
	if len(text) <= n {
		return text
	}
	end := n
	for end > 0 && !utf8.RuneStart(text[end]) {
		end--
	}
	cut := text[:end]
	if idx := strings.LastIndexByte(cut, ' '); idx > n/2 {
		cut = cut[:idx]
	}
	return cut + "..."
}

// concatFallback joins parts in order, truncating the result to the budget.
func concatFallback(parts []string, budget int) string {
	joined := strings.Join(parts, "\n\n")
	if len(joined) <= budget {
		return joined
	}
	return excerpt(joined, budget)
}
