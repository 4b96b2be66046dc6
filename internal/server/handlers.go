package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"ffnexus/internal/core"
	"ffnexus/internal/pipeline"

	"github.com/google/uuid"
)

// maxBodyBytes bounds request bodies; chat messages are small.
const maxBodyBytes = 1 << 20

// Health check response
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// StatusResponse summarizes the running pipeline
type StatusResponse struct {
	Uptime   string `json:"uptime"`
	Pending  int    `json:"pending"`
	Keywords int    `json:"keywords"`
}

// SubmitResponse acknowledges a queued message
type SubmitResponse struct {
	ID     string `json:"id"`
	Queued bool   `json:"queued"`
}

// ClassifyRequest is the body of POST /api/classify
type ClassifyRequest struct {
	Text string `json:"text"`
}

// KeywordsRequest is the body of POST /api/keywords
type KeywordsRequest struct {
	Keywords []string `json:"keywords"`
}

// KeywordsResponse lists the keywords in effect
type KeywordsResponse struct {
	Keywords []string `json:"keywords"`
	Count    int      `json:"count"`
}

// IncidentStatus is one row of GET /api/incidents
type IncidentStatus struct {
	Type        string     `json:"type"`
	Label       string     `json:"label"`
	Count       int        `json:"count"`
	State       string     `json:"state"`
	LastAlertAt *time.Time `json:"lastAlertAt"`
}

// ErrorResponse is returned for failed requests
type ErrorResponse struct {
	Error string `json:"error"`
}

// handleHealth handles the /health endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{"pipeline": "ok"}

	if s.deps.DB != nil {
		if err := s.deps.DB.Ping(r.Context()); err != nil {
			checks["database"] = "error"
			s.respondJSON(w, http.StatusServiceUnavailable, HealthResponse{
				Status: "unhealthy",
				Checks: checks,
			})
			return
		}
		checks["database"] = "ok"
	}

	s.respondJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Checks: checks,
	})
}

// handleStatus handles GET /api/status
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Uptime:   time.Since(s.startedAt).Round(time.Second).String(),
		Keywords: s.deps.Pipeline.Keywords().Snapshot().Len(),
	}
	if s.deps.Queue != nil {
		resp.Pending = s.deps.Queue.Pending()
	}
	s.respondJSON(w, http.StatusOK, resp)
}

// handleSubmitMessage handles POST /api/messages
func (s *Server) handleSubmitMessage(w http.ResponseWriter, r *http.Request) {
	if s.deps.Queue == nil {
		s.respondError(w, http.StatusServiceUnavailable, "message ingestion is not enabled")
		return
	}

	var msg core.Message
	if err := decodeJSON(w, r, &msg); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if strings.TrimSpace(msg.Content) == "" {
		s.respondError(w, http.StatusBadRequest, "content is required")
		return
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt == 0 {
		msg.CreatedAt = time.Now().UnixMilli()
	}

	if err := s.deps.Queue.Submit(msg); err != nil {
		if errors.Is(err, pipeline.ErrQueueFull) || errors.Is(err, pipeline.ErrStopped) {
			s.log.Warn("Message rejected", "id", msg.ID, "error", err)
			w.Header().Set("Retry-After", "1")
			s.respondError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusAccepted, SubmitResponse{ID: msg.ID, Queued: true})
}

// handleClassify handles POST /api/classify. Nothing is recorded.
func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	var req ClassifyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, s.deps.Pipeline.Classify(req.Text))
}

// handleListKeywords handles GET /api/keywords
func (s *Server) handleListKeywords(w http.ResponseWriter, r *http.Request) {
	set := s.deps.Pipeline.Keywords().Snapshot()
	s.respondJSON(w, http.StatusOK, KeywordsResponse{Keywords: set.Items(), Count: set.Len()})
}

// handleAddKeywords handles POST /api/keywords
func (s *Server) handleAddKeywords(w http.ResponseWriter, r *http.Request) {
	if s.deps.Keywords == nil {
		s.respondError(w, http.StatusNotImplemented, "keyword editing is not enabled")
		return
	}

	var req KeywordsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if len(req.Keywords) == 0 {
		s.respondError(w, http.StatusBadRequest, "keywords must not be empty")
		return
	}

	res := s.deps.Keywords.Add(r.Context(), req.Keywords...)
	s.log.Info("Keywords added via API", "added", res.Added, "total", res.Total, "persisted", res.Persisted)
	s.respondJSON(w, http.StatusOK, res)
}

// handleIncidents handles GET /api/incidents. Every configured type is
// listed; types with no occurrences yet report idle.
func (s *Server) handleIncidents(w http.ResponseWriter, r *http.Request) {
	monitor := s.deps.Pipeline.Monitor()

	known := make(map[string]IncidentStatus)
	for _, st := range monitor.Tracker().Status() {
		known[st.Type] = IncidentStatus{
			Type:        st.Type,
			Count:       st.Count,
			State:       st.State.String(),
			LastAlertAt: st.LastAlertAt,
		}
	}

	types := monitor.Classifier().Types()
	out := make([]IncidentStatus, 0, len(types))
	for _, t := range types {
		row, ok := known[t.Key]
		if !ok {
			row = IncidentStatus{Type: t.Key, State: "idle"}
		}
		row.Label = t.Label
		out = append(out, row)
	}

	s.respondJSON(w, http.StatusOK, out)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return dec.Decode(v)
}

// respondJSON writes a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error("Failed to encode JSON response", "error", err)
	}
}

// respondError writes an error response
func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, ErrorResponse{Error: message})
}
