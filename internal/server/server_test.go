package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"ffnexus/internal/config"
	"ffnexus/internal/core"
	"ffnexus/internal/keywords"
	"ffnexus/internal/pipeline"
	"ffnexus/internal/relevance"
)

type fakeQueue struct {
	mu   sync.Mutex
	msgs []core.Message
	err  error
}

func (q *fakeQueue) Submit(msg core.Message) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.msgs = append(q.msgs, msg)
	return nil
}

func (q *fakeQueue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.msgs)
}

type fakeDB struct{ err error }

func (d fakeDB) Ping(context.Context) error { return d.err }

type testEnv struct {
	server   *Server
	pipeline *pipeline.Pipeline
	queue    *fakeQueue
	manager  *keywords.Manager
}

func newTestEnv(t *testing.T, cfg config.Server) *testEnv {
	t.Helper()
	adapter := keywords.NewAdapter(keywords.NewMemoryStore(), relevance.DefaultLexicon().DefaultKeywords, time.Second)
	manager := keywords.NewManager(adapter, keywords.NewLearner(keywords.DefaultLearnerOptions()))

	p, err := pipeline.NewBuilder().WithKeywords(manager).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	queue := &fakeQueue{}
	srv := New(Dependencies{Pipeline: p, Queue: queue, Keywords: manager, DB: fakeDB{}}, cfg)
	return &testEnv{server: srv, pipeline: p, queue: queue, manager: manager}
}

func (e *testEnv) do(t *testing.T, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.server.Router().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, config.Server{})
	rec := env.do(t, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "ok" || resp.Checks["database"] != "ok" {
		t.Errorf("unexpected health response %+v", resp)
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("security headers missing")
	}

	env.server.deps.DB = fakeDB{err: errors.New("down")}
	rec = env.do(t, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status with failing DB = %d", rec.Code)
	}
}

func TestSubmitMessage(t *testing.T) {
	env := newTestEnv(t, config.Server{})
	rec := env.do(t, http.MethodPost, "/api/messages", `{"content":"login não funciona, servidor caiu","channelId":"c1"}`, nil)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	var resp SubmitResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.ID == "" || !resp.Queued {
		t.Errorf("unexpected response %+v", resp)
	}
	if len(env.queue.msgs) != 1 {
		t.Fatalf("queued %d messages", len(env.queue.msgs))
	}
	msg := env.queue.msgs[0]
	if msg.ID != resp.ID || msg.CreatedAt == 0 || msg.ChannelID != "c1" {
		t.Errorf("message not filled in: %+v", msg)
	}
}

func TestSubmitMessageRejections(t *testing.T) {
	env := newTestEnv(t, config.Server{})

	if rec := env.do(t, http.MethodPost, "/api/messages", `{"content":`, nil); rec.Code != http.StatusBadRequest {
		t.Errorf("malformed JSON status = %d", rec.Code)
	}
	if rec := env.do(t, http.MethodPost, "/api/messages", `{"content":"   "}`, nil); rec.Code != http.StatusBadRequest {
		t.Errorf("empty content status = %d", rec.Code)
	}

	env.queue.err = pipeline.ErrQueueFull
	rec := env.do(t, http.MethodPost, "/api/messages", `{"content":"lag absurdo no jogo hoje"}`, nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("full queue status = %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
}

func TestClassify(t *testing.T) {
	env := newTestEnv(t, config.Server{})
	rec := env.do(t, http.MethodPost, "/api/classify", `{"text":"login não funciona, servidor caiu"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var res pipeline.Result
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !res.Verdict.Admitted {
		t.Errorf("expected admitted verdict, got %+v", res.Verdict)
	}
	if res.Incident == nil || res.Incident.Type.Key != "login" {
		t.Errorf("expected login incident, got %+v", res.Incident)
	}

	// Classification must not touch the tracker.
	for _, st := range env.pipeline.Monitor().Tracker().Status() {
		if st.Count != 0 {
			t.Errorf("classify recorded an occurrence: %+v", st)
		}
	}
}

func TestKeywords(t *testing.T) {
	env := newTestEnv(t, config.Server{AdminAPIKey: "secret"})

	rec := env.do(t, http.MethodGet, "/api/keywords", "", nil)
	var list KeywordsResponse
	if err := json.NewDecoder(rec.Body).Decode(&list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if list.Count == 0 || list.Count != len(list.Keywords) {
		t.Errorf("unexpected keyword list %+v", list)
	}

	body := `{"keywords":["Matchmaking"]}`
	if rec := env.do(t, http.MethodPost, "/api/keywords", body, nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("missing auth status = %d", rec.Code)
	}
	if rec := env.do(t, http.MethodPost, "/api/keywords", body, map[string]string{"Authorization": "Bearer nope"}); rec.Code != http.StatusUnauthorized {
		t.Errorf("bad key status = %d", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/api/keywords", body, map[string]string{"Authorization": "Bearer secret"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	var res keywords.LearnResult
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Added != 1 || !res.Persisted {
		t.Errorf("unexpected add result %+v", res)
	}
	if !env.manager.Snapshot().Contains("matchmaking") {
		t.Error("keyword not in snapshot")
	}
}

func TestAdminDisabledWithoutKey(t *testing.T) {
	env := newTestEnv(t, config.Server{})
	rec := env.do(t, http.MethodPost, "/api/keywords", `{"keywords":["x"]}`, map[string]string{"Authorization": "Bearer x"})
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestIncidents(t *testing.T) {
	env := newTestEnv(t, config.Server{})
	env.pipeline.Process(context.Background(), core.Message{ID: "m1", Content: "login não funciona, servidor caiu"})

	rec := env.do(t, http.MethodGet, "/api/incidents", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var rows []IncidentStatus
	if err := json.NewDecoder(rec.Body).Decode(&rows); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected all 3 types, got %d", len(rows))
	}

	byType := make(map[string]IncidentStatus)
	for _, r := range rows {
		byType[r.Type] = r
	}
	login := byType["login"]
	if login.Count != 1 || login.LastAlertAt == nil || login.State != "throttled" {
		t.Errorf("unexpected login status %+v", login)
	}
	if lag := byType["lag"]; lag.State != "idle" || lag.Count != 0 || lag.Label == "" {
		t.Errorf("unexpected lag status %+v", lag)
	}
}

func TestStatus(t *testing.T) {
	env := newTestEnv(t, config.Server{})
	env.queue.msgs = append(env.queue.msgs, core.Message{ID: "x"})
	rec := env.do(t, http.MethodGet, "/api/status", "", nil)
	if !strings.Contains(rec.Body.String(), `"pending":1`) {
		t.Errorf("unexpected status body %s", rec.Body.String())
	}
}
