package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"ffnexus/internal/core"
	"ffnexus/internal/incidents"
	"ffnexus/internal/relevance"

	"github.com/google/uuid"
)

var (
	// ErrQueueFull is returned by Submit when the runner's queue has no room.
	ErrQueueFull = errors.New("pipeline: queue full")
	// ErrStopped is returned by Submit after the runner has stopped.
	ErrStopped = errors.New("pipeline: stopped")
)

// Pipeline runs a single message through filtering, scoring, incident
// tracking and alert dispatch. Process is meant to be called from one
// goroutine at a time so per-type window updates follow arrival order.
type Pipeline struct {
	scorer   *relevance.Scorer
	keywords KeywordSource
	monitor  *incidents.Monitor
	messages MessageLog      // Optional
	alerts   AlertDispatcher // Optional

	config *Config
	now    func() time.Time
	log    *slog.Logger
}

// Config holds pipeline configuration
type Config struct {
	// StoreTimeout bounds each message log write
	StoreTimeout time.Duration

	// UseMessageTime records incident occurrences at the message's createdAt
	// instead of the processing time. Used when replaying history.
	UseMessageTime bool
}

// DefaultConfig returns sensible default configuration
func DefaultConfig() *Config {
	return &Config{
		StoreTimeout:   4 * time.Second,
		UseMessageTime: false,
	}
}

// Result describes what happened to one message.
type Result struct {
	MessageID   string                 `json:"id,omitempty"`
	Normalized  string                 `json:"normalized"`
	Noise       bool                   `json:"noise"`
	Verdict     core.Verdict           `json:"verdict"`
	Breakdown   relevance.Breakdown    `json:"breakdown"`
	KeywordHit  bool                   `json:"keywordHit"` // Any learned keyword present, or an empty set
	Incident    *incidents.Observation `json:"incident,omitempty"`
	Persisted   bool                   `json:"persisted"`
	AlertQueued bool                   `json:"alertQueued"`
}

// Process handles one message. Messages without an id are given one. Store
// and dispatch failures are logged and never returned.
func (p *Pipeline) Process(ctx context.Context, msg core.Message) Result {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	res := p.evaluate(msg.Content)
	res.MessageID = msg.ID
	if !res.Verdict.Admitted {
		return res
	}

	at := p.now()
	if p.config.UseMessageTime && msg.CreatedAt != 0 {
		at = msg.CreatedTime()
	}

	var incident string
	if obs, ok := p.monitor.Observe(msg, res.Normalized, at); ok {
		res.Incident = &obs
		incident = obs.Type.Key
		p.log.Info("Incident occurrence",
			"incident", incident,
			"count", obs.Decision.Count,
			"state", obs.Decision.State.String(),
		)
		if obs.Alert != nil && p.alerts != nil {
			res.AlertQueued = p.alerts.Dispatch(*obs.Alert)
		}
	}

	if p.messages != nil {
		sctx, cancel := context.WithTimeout(ctx, p.config.StoreTimeout)
		err := p.messages.SaveMessage(sctx, msg, res.Verdict.Score, incident)
		cancel()
		if err != nil {
			p.log.Warn("Failed to log message", "id", msg.ID, "error", err)
		} else {
			res.Persisted = true
		}
	}

	return res
}

// Classify explains how text would be handled without recording anything.
func (p *Pipeline) Classify(text string) Result {
	res := p.evaluate(text)
	if t, ok := p.monitor.Classifier().Classify(res.Normalized); ok && !res.Noise {
		res.Incident = &incidents.Observation{Type: t}
	}
	return res
}

func (p *Pipeline) evaluate(text string) Result {
	normalized := relevance.Normalize(text)
	items := p.keywords.Snapshot().Items()
	b := p.scorer.Explain(normalized, items)
	return Result{
		Normalized: normalized,
		Noise:      b.Noise,
		Verdict:    core.Verdict{Admitted: b.Admitted, Score: b.Score},
		Breakdown:  b,
		KeywordHit: relevance.PassesKeywordFilter(normalized, items),
	}
}

// Keywords returns the pipeline's keyword source.
func (p *Pipeline) Keywords() KeywordSource {
	return p.keywords
}

// Monitor returns the incident monitor.
func (p *Pipeline) Monitor() *incidents.Monitor {
	return p.monitor
}
