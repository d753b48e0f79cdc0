package cli

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dgallion1/papersumm/internal/api"
	"github.com/dgallion1/papersumm/internal/config"
	"github.com/dgallion1/papersumm/internal/llm"
	"github.com/dgallion1/papersumm/internal/pipeline"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the summarization HTTP service",
	Long: `Run the HTTP API: uploads are queued as jobs, processed by a worker
pool, and reports are retrievable once a job completes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		if err := cfg.ValidateServe(); err != nil {
			return err
		}

		log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		client := llm.NewAnthropicClient(cfg.AnthropicAPIKey, cfg.LLMModel, cfg.LLMTimeout)

		orch := pipeline.NewOrchestrator(cfg, client, log)
		orch.Start(ctx)

		srv := api.NewServer(orch, client, log, cfg)

		httpServer := &http.Server{
			Addr:         ":" + cfg.Port,
			Handler:      srv,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 120 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		// Graceful shutdown.
		go func() {
			<-ctx.Done()
			log.Info("shutting down...")

			orch.Stop()

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			httpServer.Shutdown(shutdownCtx)

			client.Close()
		}()

		log.Info("starting papersumm", "port", cfg.Port, "model", client.Model())
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
