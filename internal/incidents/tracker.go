package incidents

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// State is the alerting state of one incident type.
type State int

const (
	StateIdle State = iota
	StateAccumulating
	StateAlertEligible
	StateThrottled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAccumulating:
		return "accumulating"
	case StateAlertEligible:
		return "alert_eligible"
	case StateThrottled:
		return "throttled"
	default:
		return "unknown"
	}
}

// MarshalText renders the state name in JSON.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name.
func (s *State) UnmarshalText(text []byte) error {
	switch string(text) {
	case "idle":
		*s = StateIdle
	case "accumulating":
		*s = StateAccumulating
	case "alert_eligible":
		*s = StateAlertEligible
	case "throttled":
		*s = StateThrottled
	default:
		return fmt.Errorf("unknown incident state %q", text)
	}
	return nil
}

// Options configures the trailing window and the alert throttle.
type Options struct {
	Window    time.Duration // Trailing window for counting occurrences
	Threshold int           // Occurrences required before alerting
	Cooldown  time.Duration // Minimum spacing between alerts of one type
}

// DefaultOptions: 15 minute window, alert on the first occurrence, two
// minute cooldown.
func DefaultOptions() Options {
	return Options{
		Window:    15 * time.Minute,
		Threshold: 1,
		Cooldown:  2 * time.Minute,
	}
}

// Decision is the outcome of recording one occurrence.
type Decision struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
	State State  `json:"state"`
	Alert bool   `json:"alert"`
}

// Status is a read-only view of one type's window.
type Status struct {
	Type        string     `json:"type"`
	Count       int        `json:"count"`
	State       State      `json:"state"`
	LastAlertAt *time.Time `json:"lastAlertAt"`
}

// window holds the sorted occurrence times of one type.
type window struct {
	times       []time.Time
	lastAlertAt time.Time
}

// Tracker keeps a trailing window per incident type and throttles alerts.
// Windows are created on first use and never removed.
type Tracker struct {
	opts Options
	now  func() time.Time

	mu      sync.Mutex
	windows map[string]*window
}

// NewTrackerWithClock returns a tracker reading time from now.
func NewTrackerWithClock(opts Options, now func() time.Time) *Tracker {
	return &Tracker{
		opts:    opts,
		now:     now,
		windows: make(map[string]*window),
	}
}

// Options returns the tracker configuration.
func (t *Tracker) Options() Options {
	return t.opts
}

// Record registers an occurrence of key at the tracker's current time.
func (t *Tracker) Record(key string) Decision {
	return t.RecordAt(key, t.now())
}

// RecordAt registers an occurrence of key at the given time. The window is
// pruned relative to at; an alert is due when the count reaches the
// threshold and no alert was raised within the cooldown.
func (t *Tracker) RecordAt(key string, at time.Time) Decision {
	t.mu.Lock()
	defer t.mu.Unlock()

	w := t.window(key)
	i := sort.Search(len(w.times), func(i int) bool { return w.times[i].After(at) })
	w.times = append(w.times, time.Time{})
	copy(w.times[i+1:], w.times[i:])
	w.times[i] = at
	w.prune(at, t.opts.Window)

	d := Decision{Type: key, Count: len(w.times)}
	switch {
	case d.Count < t.opts.Threshold:
		d.State = StateAccumulating
	case t.throttled(w, at):
		d.State = StateThrottled
	default:
		d.State = StateAlertEligible
		d.Alert = true
		w.lastAlertAt = at
	}
	return d
}

// Status reports every known type's window as of the current time.
func (t *Tracker) Status() []Status {
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	keys := make([]string, 0, len(t.windows))
	for k := range t.windows {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]Status, 0, len(keys))
	for _, k := range keys {
		w := t.windows[k]
		w.prune(now, t.opts.Window)

		s := Status{Type: k, Count: len(w.times)}
		if !w.lastAlertAt.IsZero() {
			last := w.lastAlertAt
			s.LastAlertAt = &last
		}
		switch {
		case s.Count == 0:
			s.State = StateIdle
		case t.throttled(w, now):
			s.State = StateThrottled
		case s.Count < t.opts.Threshold:
			s.State = StateAccumulating
		default:
			s.State = StateAlertEligible
		}
		out = append(out, s)
	}
	return out
}

func (t *Tracker) window(key string) *window {
	w, ok := t.windows[key]
	if !ok {
		w = &window{}
		t.windows[key] = w
	}
	return w
}

func (t *Tracker) throttled(w *window, at time.Time) bool {
	return !w.lastAlertAt.IsZero() && at.Sub(w.lastAlertAt) < t.opts.Cooldown
}

// prune drops occurrences older than window before now.
func (w *window) prune(now time.Time, window time.Duration) {
	cutoff := now.Add(-window)
	i := sort.Search(len(w.times), func(i int) bool { return !w.times[i].Before(cutoff) })
	if i > 0 {
		w.times = append(w.times[:0], w.times[i:]...)
	}
}
