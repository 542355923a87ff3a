// Package main is the entry point for the orchestrator binary: it owns
// the broker/store backend, wires the pipeline graph, and serves the
// HTTP surface (job submission, lookup, live stream, health, metrics)
// alongside the command_queue ingress listener.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Sunzheini/AegisAI-sub000/internal/api"
	"github.com/Sunzheini/AegisAI-sub000/internal/config"
	"github.com/Sunzheini/AegisAI-sub000/internal/ingress"
	"github.com/Sunzheini/AegisAI-sub000/internal/orchestrator"
	"github.com/Sunzheini/AegisAI-sub000/internal/workerclient"
	"github.com/Sunzheini/AegisAI-sub000/internal/wshub"
)

var (
	version = "dev"
	commit  = "none"
)

type appConfig struct {
	httpAddr      string
	stateBackend  string
	redisAddr     string
	boltPath      string
	logLevel      string
	strictRouting bool
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
		Use:   "orchestrator",
		Short: "Media ingestion orchestrator: drives jobs through the branching worker pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cfg)
		},
	}

	root.AddCommand(newVersionCmd())

	root.PersistentFlags().StringVar(&cfg.httpAddr, "http-addr", config.EnvOrDefault("INGEST_HTTP_ADDR", ":8080"), "HTTP API listen address")
	root.PersistentFlags().StringVar(&cfg.stateBackend, "state-backend", config.EnvOrDefault("INGEST_STATE_BACKEND", "bolt"), "Job-state and broker backend (redis or bolt)")
	root.PersistentFlags().StringVar(&cfg.redisAddr, "redis-addr", config.EnvOrDefault("INGEST_REDIS_ADDR", "localhost:6379"), "Redis address, used when --state-backend=redis")
	root.PersistentFlags().StringVar(&cfg.boltPath, "bolt-path", config.EnvOrDefault("INGEST_BOLT_PATH", "./orchestrator.db"), "bbolt file path, used when --state-backend=bolt")
	root.PersistentFlags().StringVar(&cfg.logLevel, "log-level", config.EnvOrDefault("INGEST_LOG_LEVEL", "info"), "Log level (debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&cfg.strictRouting, "strict-routing", config.EnvOrDefault("INGEST_STRICT_ROUTING", "false") == "true", "Fail jobs with an unrecognised content type instead of defaulting to image_branch")

	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("orchestrator %s (commit: %s)\n", version, commit)
		},
	}
}

func run(ctx context.Context, cfg *appConfig) error {
	logger, err := config.BuildLogger(cfg.logLevel)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	logger.Info("starting orchestrator",
		zap.String("version", version),
		zap.String("http_addr", cfg.httpAddr),
		zap.String("state_backend", cfg.stateBackend),
		zap.Bool("strict_routing", cfg.strictRouting),
	)

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// --- 1. Backends ---
	backends, err := config.BuildBackends(cfg.stateBackend, cfg.redisAddr, cfg.boltPath)
	if err != nil {
		return fmt.Errorf("failed to build backends: %w", err)
	}
	defer backends.Close()

	// --- 2. Worker clients, one per worker-bound node (task name = node
	// name); nodes in the same channel group get clients on the same
	// request/callback channel pair ---
	clientFor := func(ch config.WorkerChannel, taskName string) *workerclient.Client {
		return workerclient.New(backends.Broker, ch.WorkerName, taskName, ch.RequestChannel, ch.CallbackChannel)
	}

	clients := make(map[string]*workerclient.Client, len(config.NodeChannel))
	timeouts := make(map[string]time.Duration, len(config.NodeChannel))
	for node, ch := range config.NodeChannel {
		clients[node] = clientFor(ch, node)
		timeouts[node] = ch.Timeout
	}

	graph := orchestrator.NewDefaultGraph(clients, timeouts, cfg.strictRouting)

	// --- 3. Live status stream ---
	hub := wshub.NewHub()
	go hub.Run(ctx)

	// --- 4. Orchestrator engine ---
	engine := orchestrator.NewEngine(graph, backends.Store, hub, logger)

	// --- 5. Ingress: submitter shared by HTTP and the command_queue listener ---
	submitter := ingress.NewSubmitter(backends.Store, engine, logger)
	listener := ingress.NewListener(backends.Broker, submitter, logger)

	go func() {
		if err := listener.Run(ctx); err != nil {
			logger.Error("ingress listener stopped", zap.Error(err))
			cancel()
		}
	}()

	// --- 6. HTTP server ---
	router := api.NewRouter(api.RouterConfig{
		Submitter: submitter,
		Store:     backends.Store,
		Hub:       hub,
		Logger:    logger,
	})

	httpSrv := &http.Server{
		Addr:         cfg.httpAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.httpAddr))
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", zap.Error(err))
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down orchestrator")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http server graceful shutdown error", zap.Error(err))
	}

	logger.Info("orchestrator stopped")
	return nil
}
