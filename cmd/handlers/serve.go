package handlers

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ffnexus/internal/logger"
	"ffnexus/internal/pipeline"
	"ffnexus/internal/server"

	"github.com/spf13/cobra"
)

const shutdownTimeout = 15 * time.Second

// NewServeCmd creates the serve command for starting the HTTP server
func NewServeCmd() *cobra.Command {
	var (
		port int
		host string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the message pipeline and HTTP API",
		Long: `Start the FFNexus pipeline behind an HTTP API.

The server provides:
  • POST /api/messages   queue a chat message for processing
  • POST /api/classify   score text without recording it
  • GET  /api/keywords   current keyword set (POST adds, admin key required)
  • GET  /api/incidents  per-type window counts and alert state
  • GET  /health         database health check

Keywords are reloaded from the configured store every
keywords.reload_interval and learned from logged messages every
keywords.learn_interval.

Examples:
  # Start server on default port 8080
  ffnexus serve

  # Start on custom port
  ffnexus serve --port 3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), port, host)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "HTTP server port (default from config: 8080)")
	cmd.Flags().StringVar(&host, "host", "", "HTTP server host (default from config: 0.0.0.0)")

	return cmd
}

func runServe(ctx context.Context, port int, host string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	log := logger.Get()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Override server config from flags if provided
	serverCfg := cfg.Server
	if port != 0 {
		serverCfg.Port = port
	}
	if host != "" {
		serverCfg.Host = host
	}

	a, err := newApp(ctx, cfg, appOptions{alerts: true, logMessages: true})
	if err != nil {
		return err
	}
	defer a.Close()

	runner := pipeline.NewRunner(a.pipeline, a.manager, a.db, pipeline.RunnerOptions{
		QueueSize:      cfg.Pipeline.QueueSize,
		ReloadInterval: cfg.Keywords.ReloadInterval,
		LearnInterval:  cfg.Keywords.LearnInterval,
	})

	runCtx, stopRunner := context.WithCancel(ctx)
	defer stopRunner()
	runnerDone := make(chan error, 1)
	go func() {
		runnerDone <- runner.Run(runCtx)
	}()

	srv := server.New(server.Dependencies{
		Pipeline: a.pipeline,
		Queue:    runner,
		Keywords: a.manager,
		DB:       a.db,
	}, serverCfg)

	// Channel to listen for errors coming from the server
	serverErrors := make(chan error, 1)

	go func() {
		log.Info(fmt.Sprintf("Server listening on http://%s:%d", serverCfg.Host, serverCfg.Port))
		log.Info("Press Ctrl+C to stop")
		serverErrors <- srv.Start()
	}()

	// Channel to listen for interrupt signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	var serveErr error
	select {
	case err := <-serverErrors:
		serveErr = fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		log.Info("Server shutdown initiated", "signal", sig.String())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("Server shutdown failed", "error", err)
			serveErr = err
		}
	}

	// Stop the event loop; queued messages are processed before Run returns.
	stopRunner()
	if err := <-runnerDone; err != nil {
		log.Error("Pipeline stopped with error", "error", err)
	}

	log.Info("Server stopped", "pending", runner.Pending())
	return serveErr
}
