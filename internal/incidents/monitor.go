package incidents

import (
	"time"

	"github.com/google/uuid"

	"ffnexus/internal/core"
)

// Observation is the result of running one message through the monitor.
type Observation struct {
	Type     Type             `json:"type"`
	Decision Decision         `json:"decision"`
	Alert    *core.AlertEvent `json:"alert,omitempty"`
}

// Monitor classifies messages and feeds matches into the window tracker.
type Monitor struct {
	classifier *Classifier
	tracker    *Tracker
}

// NewMonitor pairs a classifier with a tracker.
func NewMonitor(classifier *Classifier, tracker *Tracker) *Monitor {
	return &Monitor{classifier: classifier, tracker: tracker}
}

// Classifier returns the monitor's classifier.
func (m *Monitor) Classifier() *Classifier { return m.classifier }

// Tracker returns the monitor's tracker.
func (m *Monitor) Tracker() *Tracker { return m.tracker }

// Observe classifies normalized text and, on a match, records an occurrence
// at the given time. ok is false when the text matches no incident type.
func (m *Monitor) Observe(msg core.Message, normalized string, at time.Time) (obs Observation, ok bool) {
	t, ok := m.classifier.Classify(normalized)
	if !ok {
		return Observation{}, false
	}

	d := m.tracker.RecordAt(t.Key, at)
	obs = Observation{Type: t, Decision: d}
	if d.Alert {
		obs.Alert = m.newAlert(t, d, msg, at)
	}
	return obs, true
}

func (m *Monitor) newAlert(t Type, d Decision, msg core.Message, at time.Time) *core.AlertEvent {
	ts := msg.CreatedTime()
	if ts.IsZero() {
		ts = at
	}
	return &core.AlertEvent{
		ID:            uuid.NewString(),
		Type:          t.Key,
		Label:         t.Label,
		Count:         d.Count,
		WindowMinutes: int(m.tracker.Options().Window / time.Minute),
		GuildID:       msg.GuildID,
		ChannelID:     msg.ChannelID,
		Author:        msg.Author(),
		URL:           msg.URL,
		Timestamp:     ts,
	}
}
