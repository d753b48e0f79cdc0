package cli

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"sync/atomic"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dgallion1/papersumm/internal/config"
	"github.com/dgallion1/papersumm/internal/llm"
	"github.com/dgallion1/papersumm/internal/parser"
	"github.com/dgallion1/papersumm/internal/pipeline"
	"github.com/dgallion1/papersumm/internal/render"
	"github.com/dgallion1/papersumm/internal/similarity"
)

var (
	inputFile     string
	inputDir      string
	outDir        string
	modelOverride string
	minSimilarity float64
	relevanceSim  float64
	chunkSize     int
	batchWorkers  int
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize",
	Short: "Summarize one paper or a directory of papers",
	Long: `Summarize a single input file, or every supported file in a directory.
Artifacts (JSON and Markdown) are written to the output directory; a failure
on one document never aborts the rest of a batch.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("min-similarity") {
			cfg.MinSimilarity = minSimilarity
		}
		if cmd.Flags().Changed("relevance-similarity") {
			cfg.RelevanceSimilarity = relevanceSim
		}
		if cmd.Flags().Changed("chunk-size") {
			cfg.ChunkSize = chunkSize
		}
		if modelOverride != "" {
			cfg.LLMModel = modelOverride
		}
		if outDir != "" {
			cfg.OutputDir = outDir
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		paths, err := collectInputs()
		if err != nil {
			return err
		}

		log := slog.New(slog.NewJSONHandler(os.Stderr, nil))
		client := llm.NewAnthropicClient(cfg.AnthropicAPIKey, cfg.LLMModel, cfg.LLMTimeout)
		defer client.Close()

		jobs := pipeline.NewJobStore(cfg.JobTTL)
		worker := pipeline.NewWorker(client, similarity.NewTFIDFScorer(), render.New(cfg.OutputDir), jobs, log, cfg)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		var failed atomic.Int32
		var g errgroup.Group
		g.SetLimit(batchWorkers)
		for _, path := range paths {
			path := path
			g.Go(func() error {
				if ctx.Err() != nil {
					failed.Add(1)
					return nil
				}
				if err := summarizeOne(ctx, worker, jobs, path, log); err != nil {
					failed.Add(1)
					log.Error("summarization failed", "input", path, "error", err)
				}
				return nil
			})
		}
		g.Wait()

		if n := failed.Load(); n > 0 {
			return fmt.Errorf("%d of %d documents failed", n, len(paths))
		}
		return nil
	},
}

func summarizeOne(ctx context.Context, worker *pipeline.Worker, jobs *pipeline.JobStore, path string, log *slog.Logger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	job := pipeline.NewJob(filepath.Base(path), data)
	jobs.Put(job)
	worker.Process(ctx, job)

	snap := job.Snapshot()
	switch snap.Status {
	case pipeline.StatusCompleted, pipeline.StatusPartial, pipeline.StatusDupSkipped:
		if snap.Status == pipeline.StatusPartial {
			log.Warn("completed with degraded content", "input", path, "errors", snap.Progress.Errors)
		}
		_, arts := job.Result()
		if arts != nil {
			fmt.Printf("saved: %s\n", arts.MarkdownPath)
			fmt.Printf("saved: %s\n", arts.JSONPath)
		}
		return nil
	default:
		return fmt.Errorf("job %s: %v", snap.Status, snap.Progress.Errors)
	}
}

func collectInputs() ([]string, error) {
	switch {
	case inputFile != "" && inputDir != "":
		return nil, fmt.Errorf("--input and --input-dir are mutually exclusive")
	case inputFile != "":
		return []string{inputFile}, nil
	case inputDir != "":
		var paths []string
		err := filepath.WalkDir(inputDir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && parser.IsSupportedExtension(path) {
				paths = append(paths, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		if len(paths) == 0 {
			return nil, fmt.Errorf("no supported files found in %s", inputDir)
		}
		sort.Strings(paths)
		return paths, nil
	default:
		return nil, fmt.Errorf("either --input or --input-dir is required")
	}
}

func init() {
	summarizeCmd.Flags().StringVarP(&inputFile, "input", "i", "", "paper to summarize")
	summarizeCmd.Flags().StringVar(&inputDir, "input-dir", "", "summarize every supported file in this directory")
	summarizeCmd.Flags().StringVarP(&outDir, "out-dir", "o", "", "directory for summary artifacts (default OUTPUT_DIR or .)")
	summarizeCmd.Flags().StringVar(&modelOverride, "model", "", "override the configured model")
	summarizeCmd.Flags().Float64Var(&minSimilarity, "min-similarity", 0, "section-boundary similarity threshold")
	summarizeCmd.Flags().Float64Var(&relevanceSim, "relevance-similarity", 0, "drop sections scoring below this against title and abstract")
	summarizeCmd.Flags().IntVar(&chunkSize, "chunk-size", 0, "max characters per chunk")
	summarizeCmd.Flags().IntVar(&batchWorkers, "batch-workers", 2, "documents processed concurrently in a batch")

	rootCmd.AddCommand(summarizeCmd)
}
