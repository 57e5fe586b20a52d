// Package stubserver is a scripted stand-in for the prediction service. It
// speaks the same event-stream contract without running any model.
package stubserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/himanishpuri/GenreGenius/internal/observability"
	"github.com/himanishpuri/GenreGenius/pkg/genregenius"
	"github.com/himanishpuri/GenreGenius/pkg/logger"
	"github.com/himanishpuri/GenreGenius/pkg/utils"
)

// ErrorResponse is the JSON body of non-stream failures.
type ErrorResponse struct {
	Error string `json:"error"`
}

type Server struct {
	log genregenius.Logger

	mu       sync.RWMutex
	fallback Script
	scripts  map[string]Script // by YouTube video ID
}

func New(fallback Script) *Server {
	return &Server{
		log:      logger.GetLogger().With("stub"),
		fallback: fallback,
		scripts:  make(map[string]Script),
	}
}

// SetLogger replaces the server logger.
func (s *Server) SetLogger(log genregenius.Logger) { s.log = log }

// Handle plays script for requests whose source resolves to videoID.
func (s *Server) Handle(videoID string, script Script) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scripts[videoID] = script
}

func (s *Server) scriptFor(source string) Script {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id, err := utils.ExtractYouTubeID(source); err == nil {
		if sc, ok := s.scripts[id]; ok {
			return sc
		}
	}
	return s.fallback
}

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/predict", s.handlePredict)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// handlePredict handles GET /predict?url=...
func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	source := strings.TrimSpace(r.URL.Query().Get("url"))
	if source == "" {
		observability.StubStreams.WithLabelValues("rejected").Inc()
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Missing YouTube URL"})
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "streaming unsupported"})
		return
	}

	streamID := middleware.GetReqID(r.Context())
	if streamID == "" {
		streamID = uuid.NewString()
	}
	script := s.scriptFor(source)
	s.log.Infof("[%s] Streaming prediction for %s", streamID, source)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx := r.Context()
	send := func(event, data string) bool {
		if !sleep(ctx, script.Delay) {
			return false
		}
		writeEvent(w, event, data)
		flusher.Flush()
		return true
	}

	for _, step := range script.Progress {
		if !send(genregenius.EventProgress, step) {
			s.aborted(streamID)
			return
		}
	}

	switch {
	case script.Truncate:
		observability.StubStreams.WithLabelValues("truncated").Inc()
		s.log.Warnf("[%s] Ending stream without a terminal event", streamID)
	case script.Failure != "":
		if !send(genregenius.EventError, script.Failure) {
			s.aborted(streamID)
			return
		}
		observability.StubStreams.WithLabelValues("error").Inc()
		s.log.Infof("[%s] Sent error event", streamID)
	default:
		if !send(genregenius.EventResult, script.ResultPayload()) {
			s.aborted(streamID)
			return
		}
		observability.StubStreams.WithLabelValues("result").Inc()
		s.log.Infof("[%s] Sent result event", streamID)
	}
}

func (s *Server) aborted(streamID string) {
	observability.StubStreams.WithLabelValues("aborted").Inc()
	s.log.Infof("[%s] Client went away", streamID)
}

// writeEvent frames one event, splitting multi-line data across data fields.
func writeEvent(w http.ResponseWriter, event, data string) {
	fmt.Fprintf(w, "event: %s\n", event)
	for _, line := range strings.Split(data, "\n") {
		fmt.Fprintf(w, "data: %s\n", line)
	}
	fmt.Fprint(w, "\n")
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
