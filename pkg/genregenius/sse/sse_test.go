package sse

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func decodeAll(t *testing.T, raw string) []Event {
	t.Helper()
	var got []Event
	if err := Decode(strings.NewReader(raw), func(ev Event) bool {
		got = append(got, ev)
		return true
	}); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return got
}

func TestDecodeFraming(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []Event
	}{
		{
			name: "named events in order",
			raw:  "event: progress\ndata: Converting to WAV...\n\nevent: result\ndata: {\"Rock\":0.8}\n\n",
			want: []Event{{"progress", "Converting to WAV..."}, {"result", `{"Rock":0.8}`}},
		},
		{
			name: "crlf and comments",
			raw:  ": keepalive\r\nevent: progress\r\ndata: step\r\n\r\n",
			want: []Event{{"progress", "step"}},
		},
		{
			name: "multi-line data",
			raw:  "event: error\ndata: line one\ndata: line two\n\n",
			want: []Event{{"error", "line one\nline two"}},
		},
		{
			name: "unnamed defaults to message",
			raw:  "data: hello\n\n",
			want: []Event{{"message", "hello"}},
		},
		{
			name: "no space after colon",
			raw:  "event:progress\ndata:tight\n\n",
			want: []Event{{"progress", "tight"}},
		},
		{
			name: "event without data is not dispatched",
			raw:  "event: progress\n\nevent: progress\ndata: kept\n\n",
			want: []Event{{"progress", "kept"}},
		},
		{
			name: "trailing event without blank line is dropped",
			raw:  "event: progress\ndata: a\n\nevent: result\ndata: {}",
			want: []Event{{"progress", "a"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := decodeAll(t, tt.raw)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d events %+v, want %d", len(got), got, len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("event %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestDecodeStopsWhenEmitDeclines(t *testing.T) {
	raw := "data: 1\n\ndata: 2\n\ndata: 3\n\n"
	n := 0
	if err := Decode(strings.NewReader(raw), func(Event) bool {
		n++
		return n < 2
	}); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if n != 2 {
		t.Errorf("emit called %d times, want 2", n)
	}
}

func TestRequestURLEncodesSource(t *testing.T) {
	c := NewClient("http://localhost:5000/predict", nil)
	got, err := c.RequestURL("https://www.youtube.com/watch?v=abc&t=10")
	if err != nil {
		t.Fatalf("RequestURL: %v", err)
	}
	want := "http://localhost:5000/predict?url=https%3A%2F%2Fwww.youtube.com%2Fwatch%3Fv%3Dabc%26t%3D10"
	if got != want {
		t.Errorf("RequestURL = %q, want %q", got, want)
	}

	if _, err := NewClient("ftp://host/predict", nil).RequestURL("x"); err == nil {
		t.Error("expected error for non-http endpoint")
	}
}

func TestOpenStreamsEvents(t *testing.T) {
	var gotParam string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotParam = r.URL.Query().Get("url")
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "event: progress\ndata: Predicting genre...\n\n")
		fmt.Fprint(w, "event: result\ndata: {\"Jazz\":1}\n\n")
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/predict", srv.Client())
	stream, err := c.Open(context.Background(), "https://youtu.be/x")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer stream.Close()

	var names []string
	for ev := range stream.Events() {
		names = append(names, ev.Name)
	}
	if strings.Join(names, ",") != "progress,result" {
		t.Errorf("events = %v", names)
	}
	if gotParam != "https://youtu.be/x" {
		t.Errorf("server saw url=%q", gotParam)
	}
	if err := stream.Err(); err != nil {
		t.Errorf("clean end should have no error, got %v", err)
	}
}

func TestOpenRejectsBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error": "Missing YouTube URL"}`)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, srv.Client()).Open(context.Background(), "x")
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if se.StatusCode != http.StatusBadRequest || !strings.Contains(se.Body, "Missing YouTube URL") {
		t.Errorf("unexpected status error: %+v", se)
	}
}

func TestOpenRejectsWrongContentType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"pred_genre": "Rock"}`)
	}))
	defer srv.Close()

	if _, err := NewClient(srv.URL, srv.Client()).Open(context.Background(), "x"); err == nil {
		t.Fatal("expected content type error")
	}
}

func TestCloseUnblocksOpenStream(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.(http.Flusher).Flush()
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer srv.Close()
	defer close(release)

	stream, err := NewClient(srv.URL, srv.Client()).Open(context.Background(), "x")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	stream.Close()
	stream.Close()

	select {
	case _, ok := <-stream.Events():
		if ok {
			t.Fatal("expected no events after close")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("events channel not closed after Close")
	}
	if err := stream.Err(); err != nil {
		t.Errorf("Err after Close = %v, want nil", err)
	}
}
