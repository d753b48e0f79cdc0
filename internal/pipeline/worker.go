package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/dgallion1/papersumm/internal/chunker"
	"github.com/dgallion1/papersumm/internal/config"
	"github.com/dgallion1/papersumm/internal/llm"
	"github.com/dgallion1/papersumm/internal/parser"
	"github.com/dgallion1/papersumm/internal/render"
	"github.com/dgallion1/papersumm/internal/similarity"
	"github.com/dgallion1/papersumm/internal/summary"
)

// Worker processes a single summarization job end to end: parse, segment,
// chunk, map-reduce, render.
type Worker struct {
	client   llm.Client
	scorer   similarity.Scorer
	renderer *render.Renderer
	jobs     *JobStore
	log      *slog.Logger
	cfg      config.Config
}

func NewWorker(client llm.Client, scorer similarity.Scorer, renderer *render.Renderer, jobs *JobStore, log *slog.Logger, cfg config.Config) *Worker {
	return &Worker{
		client:   client,
		scorer:   scorer,
		renderer: renderer,
		jobs:     jobs,
		log:      log,
		cfg:      cfg,
	}
}

// Process runs the full pipeline for a job.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "filename", job.Filename)

	// Phase 1: Parse
	job.SetStatus(StatusParsing, "parsing")
	p, err := parser.ForFile(job.Filename)
	if err != nil {
		log.Error("unsupported format", "error", err)
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, "parsing")
		return
	}

	tree, err := p.Parse(bytes.NewReader(job.FileData()), job.Filename)
	if err != nil {
		log.Error("parse failed", "error", err)
		job.AddError(fmt.Sprintf("parse: %s", err))
		job.SetStatus(StatusFailed, "parsing")
		return
	}
	if job.Title == "" {
		job.SetTitle(tree.Title)
	}

	rawText := tree.Flatten()
	job.SetContentHash(ContentHashHex([]byte(rawText)))

	// Identical uploads reuse the retained result instead of spending
	// another round of model calls.
	if prior := w.jobs.FindCompletedByHash(job.ContentHash); prior != nil && prior.ID != job.ID {
		report, arts := prior.Result()
		if report != nil {
			log.Info("duplicate document, reusing result", "prior_job_id", prior.ID)
			job.SetResult(report, arts)
			job.SetStatus(StatusDupSkipped, "dedup")
			return
		}
	}

	// Phase 2: Segment
	job.SetStatus(StatusSegmenting, "segmenting")
	detector := summary.NewDetector(w.scorer, w.engineConfig(nil))
	sections := detector.Detect(rawText)
	abstract := summary.ExtractAbstract(rawText)

	// Off-topic sections (bibliographies, acknowledgements, stray front
	// matter) are filtered out here so they never consume model calls.
	detected := len(sections)
	sections = detector.FilterRelevant(sections, job.Title, abstract)
	if dropped := detected - len(sections); dropped > 0 {
		log.Info("irrelevant sections filtered", "detected", detected, "dropped", dropped)
	}

	// Phase 3: Chunk
	job.SetStatus(StatusChunking, "chunking")
	totalChunks := 0
	for _, sec := range sections {
		for i, text := range chunker.Split(sec.Text, w.cfg.ChunkSize) {
			sec.Chunks = append(sec.Chunks, &summary.Chunk{Text: text, Ordinal: i})
			totalChunks++
		}
	}
	job.SetTotals(len(sections), totalChunks)
	log.Info("document prepared", "sections", len(sections), "chunks", totalChunks)

	if totalChunks == 0 {
		job.AddError("no extractable content")
		job.SetStatus(StatusFailed, "chunking")
		return
	}

	doc := &summary.Document{
		Title:    job.Title,
		Abstract: abstract,
		RawLen:   len(rawText),
		Sections: sections,
	}

	// Phase 4: Map-reduce
	job.SetStatus(StatusMapping, "mapping")
	engine := summary.NewMapReducer(w.client, w.scorer, w.engineConfig(job), log)
	report, err := engine.Summarize(ctx, doc)
	if err != nil {
		log.Error("summarization failed", "error", err)
		job.AddError(fmt.Sprintf("summarize: %s", err))
		job.SetStatus(StatusFailed, "summarizing")
		return
	}

	// Phase 5: Render
	job.SetStatus(StatusRendering, "rendering")
	arts, err := w.renderer.Write(report)
	if err != nil {
		log.Error("render failed", "error", err)
		job.AddError(fmt.Sprintf("render: %s", err))
		job.SetResult(report, nil)
		job.SetStatus(StatusPartial, "rendering")
		return
	}
	job.SetResult(report, arts)

	degraded := 0
	for _, sec := range report.Sections {
		if sec.ExcerptDerived {
			degraded++
		}
	}
	job.SetDegradedSections(degraded)
	if degraded > 0 {
		log.Warn("completed with degraded sections", "degraded", degraded)
		job.SetStatus(StatusPartial, "done")
		return
	}
	log.Info("summarization complete", "sections", len(report.Sections))
	job.SetStatus(StatusCompleted, "done")
}

// engineConfig maps service configuration onto the engine tunables. When job
// is non-nil, engine progress feeds the job's counters.
func (w *Worker) engineConfig(job *Job) summary.Config {
	cfg := summary.Config{
		ChunkSize:           w.cfg.ChunkSize,
		MinSimilarity:       w.cfg.MinSimilarity,
		MergeSimilarity:     w.cfg.MergeSimilarity,
		DedupSimilarity:     w.cfg.DedupSimilarity,
		RelevanceSimilarity: w.cfg.RelevanceSimilarity,
		WindowSize:          w.cfg.WindowSize,
		TopNTakeaways:       w.cfg.TopNTakeaways,
		MaxConcurrency:      w.cfg.MaxConcurrency,
	}
	if job != nil {
		cfg.Progress = func(phase summary.Phase, completed, total int) {
			switch phase {
			case summary.PhaseMap:
				job.SetChunksSummarized(completed)
			case summary.PhaseReduce:
				job.SetStatus(StatusReducing, "reducing")
				job.SetSectionsReduced(completed)
			case summary.PhaseSynthesis:
				job.SetStatus(StatusReducing, "synthesis")
			}
		}
	}
	return cfg
}
