package stubserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/himanishpuri/GenreGenius/pkg/genregenius"
	"github.com/himanishpuri/GenreGenius/pkg/genregenius/sse"
	"github.com/himanishpuri/GenreGenius/pkg/logger"
)

func newTestServer(t *testing.T, fallback Script) (*Server, *httptest.Server) {
	t.Helper()
	s := New(fallback)
	s.SetLogger(logger.New(logger.Config{Level: logger.ERROR, Output: io.Discard}))
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func collect(t *testing.T, ts *httptest.Server, source string) []sse.Event {
	t.Helper()
	stream, err := sse.NewClient(ts.URL+"/predict", ts.Client()).Open(context.Background(), source)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer stream.Close()

	var events []sse.Event
	for ev := range stream.Events() {
		events = append(events, ev)
	}
	return events
}

func TestPredictStreamsScript(t *testing.T) {
	script := DefaultScript()
	script.Delay = 0
	_, ts := newTestServer(t, script)

	events := collect(t, ts, "https://youtu.be/dQw4w9WgXcQ")
	if len(events) != 4 {
		t.Fatalf("got %d events, want 3 progress + result: %+v", len(events), events)
	}
	for i, want := range script.Progress {
		if events[i].Name != genregenius.EventProgress || events[i].Data != want {
			t.Errorf("event %d = %+v, want progress %q", i, events[i], want)
		}
	}

	last := events[3]
	if last.Name != genregenius.EventResult {
		t.Fatalf("last event = %q, want result", last.Name)
	}
	d, err := genregenius.ParseDistribution(last.Data)
	if err != nil {
		t.Fatalf("result payload does not parse: %v", err)
	}
	if d.Predicted() != "Rock" || len(d.Entries) != len(script.Genres) {
		t.Errorf("distribution = %+v", d)
	}
}

func TestPercentEnvelope(t *testing.T) {
	script := Script{
		Genres:  []genregenius.Entry{{Label: "Hip-hop", Probability: 0.7}, {Label: "Pop", Probability: 0.3}},
		Percent: true,
	}
	if got := script.ResultPayload(); got != `{"genre_probabilities":{"Hip-hop":70,"Pop":30}}` {
		t.Errorf("ResultPayload = %s", got)
	}

	_, ts := newTestServer(t, script)
	events := collect(t, ts, "https://youtu.be/x")
	if len(events) != 1 {
		t.Fatalf("events = %+v", events)
	}
	d, err := genregenius.ParseDistribution(events[0].Data)
	if err != nil {
		t.Fatalf("ParseDistribution: %v", err)
	}
	if d.Entries[0].Probability != 0.7 {
		t.Errorf("probability = %v, want rescaled 0.7", d.Entries[0].Probability)
	}
}

func TestPerVideoScripts(t *testing.T) {
	s, ts := newTestServer(t, Script{Genres: []genregenius.Entry{{Label: "Pop", Probability: 1}}})
	s.Handle("broken12345", Script{
		Progress: []string{"Converting to WAV..."},
		Failure:  "ERROR: [youtube] broken12345: Video unavailable\nSecond line",
	})

	events := collect(t, ts, "https://www.youtube.com/watch?v=broken12345")
	if len(events) != 2 || events[1].Name != genregenius.EventError {
		t.Fatalf("events = %+v", events)
	}
	if events[1].Data != "ERROR: [youtube] broken12345: Video unavailable\nSecond line" {
		t.Errorf("multi-line diagnostic not preserved: %q", events[1].Data)
	}

	other := collect(t, ts, "https://youtu.be/another")
	if len(other) != 1 || other[0].Name != genregenius.EventResult {
		t.Errorf("fallback script not used: %+v", other)
	}
}

func TestTruncatedStream(t *testing.T) {
	_, ts := newTestServer(t, Script{Progress: []string{"Predicting genre..."}, Truncate: true})

	events := collect(t, ts, "https://youtu.be/x")
	if len(events) != 1 || events[0].Name != genregenius.EventProgress {
		t.Errorf("events = %+v, want only progress", events)
	}
}

func TestPredictMissingURL(t *testing.T) {
	_, ts := newTestServer(t, DefaultScript())

	for _, target := range []string{"/predict", "/predict?url=", "/predict?url=%20"} {
		resp, err := http.Get(ts.URL + target)
		if err != nil {
			t.Fatalf("GET %s: %v", target, err)
		}
		var body ErrorResponse
		json.NewDecoder(resp.Body).Decode(&body)
		resp.Body.Close()

		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", target, resp.StatusCode)
		}
		if body.Error != "Missing YouTube URL" {
			t.Errorf("%s: error = %q", target, body.Error)
		}
	}

	_, err := sse.NewClient(ts.URL+"/predict", ts.Client()).Open(context.Background(), "")
	var se *sse.StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusBadRequest {
		t.Errorf("client should see a status error, got %v", err)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	_, ts := newTestServer(t, DefaultScript())

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	var health map[string]string
	json.NewDecoder(resp.Body).Decode(&health)
	resp.Body.Close()
	if health["status"] != "healthy" {
		t.Errorf("health = %v", health)
	}

	resp, err = http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "go_goroutines") {
		t.Errorf("metrics endpoint status %d", resp.StatusCode)
	}
}
