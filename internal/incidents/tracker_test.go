package incidents

import (
	"testing"
	"time"

	"ffnexus/internal/core"
)

// fakeClock is a settable time source.
type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func TestTrackerThrottlesWithinCooldown(t *testing.T) {
	clock := newClock()
	tr := NewTrackerWithClock(DefaultOptions(), clock.Now)

	first := tr.Record("login")
	if !first.Alert || first.Count != 1 || first.State != StateAlertEligible {
		t.Fatalf("first occurrence: %+v", first)
	}

	clock.Advance(30 * time.Second)
	second := tr.Record("login")
	clock.Advance(30 * time.Second)
	third := tr.Record("login")

	if second.Alert || third.Alert {
		t.Fatalf("expected suppression within cooldown: %+v %+v", second, third)
	}
	if second.Count != 2 || third.Count != 3 {
		t.Errorf("counts = %d, %d; want 2, 3", second.Count, third.Count)
	}
	if third.State != StateThrottled {
		t.Errorf("state = %v, want throttled", third.State)
	}

	clock.Advance(2 * time.Minute)
	fourth := tr.Record("login")
	if !fourth.Alert || fourth.Count != 4 {
		t.Errorf("expected alert after cooldown, got %+v", fourth)
	}
}

func TestTrackerPrunesStaleOccurrences(t *testing.T) {
	clock := newClock()
	tr := NewTrackerWithClock(Options{Window: 15 * time.Minute, Threshold: 2, Cooldown: 2 * time.Minute}, clock.Now)

	if d := tr.Record("crash"); d.Alert || d.State != StateAccumulating {
		t.Fatalf("first crash: %+v", d)
	}

	clock.Advance(16 * time.Minute)
	d := tr.Record("crash")
	if d.Count != 1 {
		t.Errorf("expected stale occurrence pruned, count = %d", d.Count)
	}
	if d.Alert || d.State != StateAccumulating {
		t.Errorf("single occurrence under threshold 2 must not alert: %+v", d)
	}
}

func TestTrackerRealertsAfterWindowReset(t *testing.T) {
	clock := newClock()
	tr := NewTrackerWithClock(DefaultOptions(), clock.Now)

	tr.Record("crash")
	clock.Advance(16 * time.Minute)
	d := tr.Record("crash")
	if d.Count != 1 || !d.Alert {
		t.Errorf("expected fresh alert with count 1, got %+v", d)
	}
}

func TestTrackerWindowBoundaryInclusive(t *testing.T) {
	clock := newClock()
	tr := NewTrackerWithClock(Options{Window: time.Minute, Threshold: 5, Cooldown: 0}, clock.Now)

	tr.Record("lag")
	clock.Advance(time.Minute)
	if d := tr.Record("lag"); d.Count != 2 {
		t.Errorf("occurrence exactly one window old should be kept, count = %d", d.Count)
	}
	clock.Advance(time.Nanosecond)
	if d := tr.Record("lag"); d.Count != 2 {
		t.Errorf("expected oldest pruned, count = %d", d.Count)
	}
}

func TestTrackerKeepsSortedOrder(t *testing.T) {
	clock := newClock()
	tr := NewTrackerWithClock(Options{Window: 10 * time.Minute, Threshold: 10}, clock.Now)
	base := clock.Now()

	for _, off := range []time.Duration{5, 1, 3, 2, 4} {
		tr.RecordAt("lag", base.Add(off*time.Minute))
	}

	w := tr.windows["lag"]
	for i := 1; i < len(w.times); i++ {
		if w.times[i].Before(w.times[i-1]) {
			t.Fatalf("window not sorted: %v", w.times)
		}
	}
	if len(w.times) != 5 {
		t.Errorf("expected 5 occurrences, got %d", len(w.times))
	}
}

func TestTrackerTypesAreIndependent(t *testing.T) {
	clock := newClock()
	tr := NewTrackerWithClock(DefaultOptions(), clock.Now)

	if !tr.Record("login").Alert {
		t.Fatal("login should alert")
	}
	if !tr.Record("lag").Alert {
		t.Fatal("lag cooldown must not be shared with login")
	}
}

func TestTrackerStatus(t *testing.T) {
	clock := newClock()
	tr := NewTrackerWithClock(DefaultOptions(), clock.Now)

	if len(tr.Status()) != 0 {
		t.Fatal("expected no windows before first occurrence")
	}

	tr.Record("login")
	st := tr.Status()
	if len(st) != 1 || st[0].State != StateThrottled || st[0].LastAlertAt == nil {
		t.Fatalf("unexpected status: %+v", st)
	}

	clock.Advance(20 * time.Minute)
	st = tr.Status()
	if st[0].Count != 0 || st[0].State != StateIdle {
		t.Errorf("expected idle after window elapsed, got %+v", st[0])
	}
}

func TestMonitorObserve(t *testing.T) {
	clock := newClock()
	m := NewMonitor(NewClassifier(DefaultTypes()), NewTrackerWithClock(DefaultOptions(), clock.Now))

	msg := core.Message{
		ID:        "1",
		AuthorID:  "42",
		GuildID:   "g",
		ChannelID: "c",
		URL:       "https://discord.com/channels/g/c/1",
		CreatedAt: clock.Now().Add(-time.Second).UnixMilli(),
	}

	obs, ok := m.Observe(msg, "login nao funciona", clock.Now())
	if !ok || obs.Type.Key != "login" {
		t.Fatalf("expected login observation, got %+v, %v", obs, ok)
	}
	a := obs.Alert
	if a == nil {
		t.Fatal("expected alert")
	}
	if a.Count != 1 || a.WindowMinutes != 15 || a.Author != "42" || a.Label != "Problemas de login/conexão" {
		t.Errorf("unexpected alert: %+v", a)
	}
	if !a.Timestamp.Equal(msg.CreatedTime()) {
		t.Errorf("alert timestamp = %v, want message time", a.Timestamp)
	}
	if a.ID == "" {
		t.Error("alert id should be set")
	}

	obs, _ = m.Observe(msg, "servidor caiu", clock.Now())
	if obs.Alert != nil || obs.Decision.State != StateThrottled {
		t.Errorf("expected throttled second observation, got %+v", obs)
	}

	if _, ok := m.Observe(msg, "skin bonita", clock.Now()); ok {
		t.Error("unclassified text should not be observed")
	}
}

func TestStateText(t *testing.T) {
	for _, s := range []State{StateIdle, StateAccumulating, StateAlertEligible, StateThrottled} {
		text, err := s.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText(%v): %v", s, err)
		}
		var got State
		if err := got.UnmarshalText(text); err != nil || got != s {
			t.Errorf("UnmarshalText(%q) = %v, %v", text, got, err)
		}
	}

	var s State
	if err := s.UnmarshalText([]byte("exploded")); err == nil {
		t.Error("expected error for unknown state")
	}
}
