package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"ffnexus/internal/config"
	"ffnexus/internal/incidents"
	"ffnexus/internal/keywords"
	"ffnexus/internal/logger"
	"ffnexus/internal/messaging"
	"ffnexus/internal/pipeline"
	"ffnexus/internal/relevance"
	"ffnexus/internal/store"
)

// appOptions selects which optional parts newApp builds.
type appOptions struct {
	alerts         bool // Start the alert dispatcher
	logMessages    bool // Persist admitted messages
	useMessageTime bool // Window incidents by message createdAt
}

// app holds the wired components shared by the commands.
type app struct {
	cfg        *config.Config
	db         *store.Store
	kwStore    keywords.Store
	manager    *keywords.Manager
	dispatcher *messaging.Dispatcher
	pipeline   *pipeline.Pipeline
	log        *slog.Logger

	closers []func()
}

// newApp opens storage and builds the pipeline from configuration.
func newApp(ctx context.Context, cfg *config.Config, opts appOptions) (*app, error) {
	a := &app{cfg: cfg, log: logger.Get()}

	db, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.db = db
	a.closers = append(a.closers, func() { db.Close() })

	a.kwStore, err = buildKeywordStore(cfg, db)
	if err != nil {
		a.Close()
		return nil, err
	}
	if c, ok := a.kwStore.(interface{ Close() error }); ok {
		a.closers = append(a.closers, func() { c.Close() })
	}

	lex, err := relevance.LoadLexicon(cfg.Relevance.LexiconFile)
	if err != nil {
		a.Close()
		return nil, err
	}
	types, err := incidents.LoadTypes(cfg.Relevance.LexiconFile)
	if err != nil {
		a.Close()
		return nil, err
	}

	adapter := keywords.NewAdapter(a.kwStore, lex.DefaultKeywords, cfg.Keywords.Timeout)
	a.manager = keywords.NewManager(adapter, keywords.NewLearner(keywords.LearnerOptions{
		MinFrequency:   cfg.Keywords.LearnMinFrequency,
		MinTokenLength: cfg.Keywords.LearnMinTokenLength,
	}))

	b := pipeline.NewBuilder().
		WithLexicon(lex).
		WithScoring(relevance.Options{
			MinScore:  cfg.Relevance.MinScore,
			MinWords:  cfg.Relevance.MinWords,
			MinLength: cfg.Relevance.MinLength,
		}).
		WithIncidentTypes(types).
		WithTracker(incidents.Options{
			Window:    cfg.Incidents.Window(),
			Threshold: cfg.Incidents.Threshold,
			Cooldown:  cfg.Incidents.Cooldown,
		}).
		WithKeywords(a.manager).
		WithConfig(&pipeline.Config{
			StoreTimeout:   cfg.Keywords.Timeout,
			UseMessageTime: opts.useMessageTime,
		})

	if opts.logMessages {
		b = b.WithMessageLog(db)
	}
	if opts.alerts {
		a.dispatcher = buildDispatcher(cfg)
		a.closers = append(a.closers, a.dispatcher.Close)
		b = b.WithAlerts(a.dispatcher)
		if !a.dispatcher.Enabled() {
			a.log.Warn("No alert destination configured, alerts are disabled",
				"platform", cfg.Alerts.Platform)
		}
	}

	a.pipeline, err = b.Build()
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to build pipeline: %w", err)
	}
	return a, nil
}

// Close releases resources in reverse order of acquisition. The
// dispatcher is flushed before the store closes.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func openStore(ctx context.Context, cfg *config.Config) (*store.Store, error) {
	if cfg.Storage.Driver == store.DriverSQLite {
		if err := os.MkdirAll(cfg.App.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	db, err := store.Open(ctx, cfg.Storage.Driver, cfg.Storage.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.Storage.Driver, err)
	}
	logger.Debug("Storage ready", "driver", db.Driver())
	return db, nil
}

func buildKeywordStore(cfg *config.Config, db *store.Store) (keywords.Store, error) {
	switch cfg.Keywords.Backend {
	case "sql":
		return keywords.NewSQLStore(db, keywords.DefaultDocumentKey), nil
	case "mcp":
		m := cfg.Keywords.MCP
		return keywords.NewCommandMCPStore(m.Command, m.Args, m.Path), nil
	case "memory":
		return keywords.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown keyword backend %q", cfg.Keywords.Backend)
	}
}

func buildDispatcher(cfg *config.Config) *messaging.Dispatcher {
	ac := cfg.Alerts
	platform := messaging.MessagePlatform(ac.Platform)
	dest := ac.Destination()

	if dest != "" && platform != messaging.PlatformDiscord {
		if err := messaging.ValidateWebhookURL(platform, dest); err != nil {
			logger.Warn("Alert webhook URL looks wrong", "platform", platform, "error", err)
		}
	}

	client := messaging.NewMessagingClient(ac.BotToken, ac.SlackWebhookURL, ac.DiscordWebhookURL, ac.Timeout)
	return messaging.NewDispatcher(client, messaging.DispatcherConfig{
		Platform:    platform,
		Destination: dest,
		Language:    messaging.Language(ac.Language),
		Footer:      ac.Footer,
		QueueSize:   ac.QueueSize,
		Timeout:     ac.Timeout,
	})
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}
