// Package main is the entry point for the worker binary. One instance
// is started with one --kind, subscribes to that kind's channel group
// and runs the matching demo ProcessFunc. On the shared ai and
// media-processing channels that ProcessFunc serves every node of the
// group, whichever of its kinds was selected. A full local deployment
// launches one process per channel group (validation, metadata,
// extract-text, ai, media-processing), since every subscriber of a
// request channel receives every request.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Sunzheini/AegisAI-sub000/internal/config"
	"github.com/Sunzheini/AegisAI-sub000/internal/workerservice"
	"github.com/Sunzheini/AegisAI-sub000/internal/workerservice/demo"
)

var (
	version = "dev"
	commit  = "none"
)

type appConfig struct {
	kind                   string
	metricsAddr            string
	stateBackend           string
	redisAddr              string
	boltPath               string
	logLevel               string
	allowedContentTypes    string
	enableChecksumSentinel bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := &appConfig{}

	root := &cobra.Command{
		Use:   "worker",
		Short: "Media ingestion worker: runs one demo pipeline step against its request channel",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cfg)
		},
	}

	root.AddCommand(newVersionCmd())

	root.PersistentFlags().StringVar(&cfg.kind, "kind", config.EnvOrDefault("INGEST_WORKER_KIND", ""), fmt.Sprintf("Worker kind, one of: %s", strings.Join(config.WorkerKinds, ", ")))
	root.PersistentFlags().StringVar(&cfg.metricsAddr, "metrics-addr", config.EnvOrDefault("INGEST_METRICS_ADDR", ":9100"), "Listen address for GET /health and GET /metrics")
	root.PersistentFlags().StringVar(&cfg.stateBackend, "state-backend", config.EnvOrDefault("INGEST_STATE_BACKEND", "bolt"), "Broker backend (redis or bolt); worker only uses the broker half")
	root.PersistentFlags().StringVar(&cfg.redisAddr, "redis-addr", config.EnvOrDefault("INGEST_REDIS_ADDR", "localhost:6379"), "Redis address, used when --state-backend=redis")
	root.PersistentFlags().StringVar(&cfg.boltPath, "bolt-path", config.EnvOrDefault("INGEST_BOLT_PATH", "./worker.db"), "bbolt file path, used when --state-backend=bolt (unused by the broker half but kept symmetric with the orchestrator flag set)")
	root.PersistentFlags().StringVar(&cfg.logLevel, "log-level", config.EnvOrDefault("INGEST_LOG_LEVEL", "info"), "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&cfg.allowedContentTypes, "allowed-content-types", config.EnvOrDefault("INGEST_ALLOWED_CONTENT_TYPES", "application/pdf,image/png,image/jpeg,video/mp4"), "Comma-separated list consulted by the validation worker")
	root.PersistentFlags().BoolVar(&cfg.enableChecksumSentinel, "enable-checksum-sentinel", config.EnvOrDefault("INGEST_ENABLE_CHECKSUM_SENTINEL", "true") == "true", "Validation worker rejects checksums ending in '0' (dev-only policy, see SPEC_FULL.md §9)")

	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("worker %s (commit: %s)\n", version, commit)
		},
	}
}

func run(ctx context.Context, cfg *appConfig) error {
	logger, err := config.BuildLogger(cfg.logLevel)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	node, ok := config.NodeForKind[cfg.kind]
	if !ok {
		return fmt.Errorf("unknown --kind %q (want one of: %s)", cfg.kind, strings.Join(config.WorkerKinds, ", "))
	}
	channel, ok := config.NodeChannel[node]
	if !ok {
		return fmt.Errorf("internal error: no channel configured for node %q", node)
	}

	process, err := processFuncFor(cfg)
	if err != nil {
		return err
	}

	logger.Info("starting worker",
		zap.String("version", version),
		zap.String("kind", cfg.kind),
		zap.String("node", node),
		zap.String("request_channel", channel.RequestChannel),
	)

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	backends, err := config.BuildBackends(cfg.stateBackend, cfg.redisAddr, cfg.boltPath)
	if err != nil {
		return fmt.Errorf("failed to build backends: %w", err)
	}
	defer backends.Close()

	svc := workerservice.New(backends.Broker, channel.WorkerName, channel.RequestChannel, channel.CallbackChannel, process, logger)

	go func() {
		if err := svc.Run(ctx); err != nil {
			logger.Error("worker service stopped", zap.Error(err))
			cancel()
		}
	}()

	// --- health/metrics mux ---
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	httpSrv := &http.Server{
		Addr:         cfg.metricsAddr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info("health/metrics server listening", zap.String("addr", cfg.metricsAddr))
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("health/metrics server error", zap.Error(err))
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down worker")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("health/metrics server graceful shutdown error", zap.Error(err))
	}

	logger.Info("worker stopped")
	return nil
}

// processFuncFor selects the demo ProcessFunc for cfg.kind. Kinds that
// share a channel (the three AI-style branch finals, the three media
// steps) resolve to the same dispatching function: see
// workerservice/demo.AI and demo.MediaProcessing.
func processFuncFor(cfg *appConfig) (workerservice.ProcessFunc, error) {
	switch cfg.kind {
	case "validation":
		allowed := strings.Split(cfg.allowedContentTypes, ",")
		return demo.Validation(demo.ValidationConfig{
			AllowedContentTypes:    allowed,
			EnableChecksumSentinel: cfg.enableChecksumSentinel,
		}), nil
	case "metadata":
		return demo.Metadata, nil
	case "extract-text":
		return demo.ExtractText, nil
	case "summarize", "analyze-image", "video-summary":
		return demo.AI, nil
	case "thumbnails", "extract-audio", "transcribe":
		return demo.MediaProcessing, nil
	default:
		return nil, fmt.Errorf("unknown --kind %q", cfg.kind)
	}
}
