package pipeline

import (
	"fmt"
	"time"

	"ffnexus/internal/incidents"
	"ffnexus/internal/logger"
	"ffnexus/internal/relevance"
)

// Builder helps construct a fully configured Pipeline
type Builder struct {
	lexicon     relevance.Lexicon
	scoring     relevance.Options
	types       []incidents.Type
	trackerOpts incidents.Options
	keywords    KeywordSource
	messages    MessageLog
	alerts      AlertDispatcher
	config      *Config
	now         func() time.Time
}

// NewBuilder creates a new pipeline builder with default settings
func NewBuilder() *Builder {
	return &Builder{
		lexicon:     relevance.DefaultLexicon(),
		scoring:     relevance.DefaultOptions(),
		types:       incidents.DefaultTypes(),
		trackerOpts: incidents.DefaultOptions(),
		config:      DefaultConfig(),
		now:         time.Now,
	}
}

// WithLexicon sets the scoring lexicon
func (b *Builder) WithLexicon(lex relevance.Lexicon) *Builder {
	b.lexicon = lex
	return b
}

// WithScoring sets the scoring thresholds
func (b *Builder) WithScoring(opts relevance.Options) *Builder {
	b.scoring = opts
	return b
}

// WithIncidentTypes sets the incident types in priority order
func (b *Builder) WithIncidentTypes(types []incidents.Type) *Builder {
	b.types = types
	return b
}

// WithTracker sets the window and throttle settings
func (b *Builder) WithTracker(opts incidents.Options) *Builder {
	b.trackerOpts = opts
	return b
}

// WithKeywords sets the keyword source
func (b *Builder) WithKeywords(src KeywordSource) *Builder {
	b.keywords = src
	return b
}

// WithMessageLog enables persistence of admitted messages
func (b *Builder) WithMessageLog(log MessageLog) *Builder {
	b.messages = log
	return b
}

// WithAlerts sets the alert dispatcher
func (b *Builder) WithAlerts(d AlertDispatcher) *Builder {
	b.alerts = d
	return b
}

// WithConfig sets the pipeline configuration
func (b *Builder) WithConfig(config *Config) *Builder {
	b.config = config
	return b
}

// WithClock sets the time source used for incident windows
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// Build constructs a fully configured Pipeline
func (b *Builder) Build() (*Pipeline, error) {
	if b.keywords == nil {
		return nil, fmt.Errorf("keyword source is required")
	}
	if len(b.types) == 0 {
		return nil, fmt.Errorf("at least one incident type is required")
	}

	scorer, err := relevance.NewScorer(b.lexicon, b.scoring)
	if err != nil {
		return nil, fmt.Errorf("failed to build scorer: %w", err)
	}

	config := b.config
	if config == nil {
		config = DefaultConfig()
	}
	if config.StoreTimeout <= 0 {
		config.StoreTimeout = DefaultConfig().StoreTimeout
	}

	tracker := incidents.NewTrackerWithClock(b.trackerOpts, b.now)
	monitor := incidents.NewMonitor(incidents.NewClassifier(b.types), tracker)

	return &Pipeline{
		scorer:   scorer,
		keywords: b.keywords,
		monitor:  monitor,
		messages: b.messages,
		alerts:   b.alerts,
		config:   config,
		now:      b.now,
		log:      logger.Get(),
	}, nil
}
