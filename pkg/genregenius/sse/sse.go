// Package sse opens server-sent-event streams over HTTP GET and decodes them
// into named events.
package sse

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
)

// DefaultParam is the query parameter that carries the source URL.
const DefaultParam = "url"

const maxEventBytes = 1 << 20

// Event is one dispatched server-sent event.
type Event struct {
	Name string // "message" when the server sent no event field
	Data string
}

// StatusError reports a non-2xx answer to the stream request.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("stream request rejected: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("stream request rejected: %d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), e.Body)
}

// Client opens event streams against a single endpoint.
type Client struct {
	endpoint   string
	param      string
	httpClient *http.Client
}

// NewClient creates a stream client. A nil httpClient uses a client without an
// overall timeout, since streams stay open for the whole prediction.
func NewClient(endpoint string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		endpoint:   endpoint,
		param:      DefaultParam,
		httpClient: httpClient,
	}
}

// Endpoint returns the configured endpoint address.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// RequestURL returns the endpoint with sourceURL encoded as the query parameter.
func (c *Client) RequestURL(sourceURL string) (string, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return "", fmt.Errorf("parse endpoint %q: %w", c.endpoint, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("endpoint %q must be http or https", c.endpoint)
	}
	q := u.Query()
	q.Set(c.param, sourceURL)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Open issues the GET request and returns once response headers arrive.
// The returned Stream must be closed by the caller.
func (c *Client) Open(ctx context.Context, sourceURL string) (*Stream, error) {
	target, err := c.RequestURL(sourceURL)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("open stream: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		cancel()
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	ct := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(strings.ToLower(ct), "text/event-stream") {
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("unexpected content type %q", ct)
	}

	s := &Stream{
		events: make(chan Event),
		body:   resp.Body,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go s.read()
	return s, nil
}

// Stream is an open event stream. Events are delivered in send order; the
// channel is closed when the stream ends or is closed.
type Stream struct {
	events chan Event
	body   io.ReadCloser
	cancel context.CancelFunc
	done   chan struct{}

	closeOnce sync.Once
	mu        sync.Mutex
	err       error
}

// Events returns the ordered event channel.
func (s *Stream) Events() <-chan Event {
	return s.events
}

// Err returns the read error that ended the stream, if any. It is nil for a
// clean end of stream and after Close.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close aborts the request and releases the connection. Safe to call more
// than once and from any goroutine.
func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		s.cancel()
		s.body.Close()
	})
	return nil
}

func (s *Stream) read() {
	defer close(s.events)

	err := Decode(s.body, func(ev Event) bool {
		select {
		case s.events <- ev:
			return true
		case <-s.done:
			return false
		}
	})

	select {
	case <-s.done:
		return
	default:
	}
	if err != nil {
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
	}
}

// Decode reads the text/event-stream framing from r and calls emit for each
// dispatched event until r ends or emit returns false.
func Decode(r io.Reader, emit func(Event) bool) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), maxEventBytes)

	var (
		name    string
		data    strings.Builder
		hasData bool
	)

	for scanner.Scan() {
		line := strings.TrimSuffix(scanner.Text(), "\r")

		if line == "" {
			if hasData {
				ev := Event{Name: name, Data: data.String()}
				if ev.Name == "" {
					ev.Name = "message"
				}
				if !emit(ev) {
					return nil
				}
			}
			name, hasData = "", false
			data.Reset()
			continue
		}

		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, found := strings.Cut(line, ":")
		if found {
			value = strings.TrimPrefix(value, " ")
		}

		switch field {
		case "event":
			name = value
		case "data":
			if hasData {
				data.WriteByte('\n')
			}
			data.WriteString(value)
			hasData = true
		}
		// id and retry are not used: channels are never resumed.
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read stream: %w", err)
	}
	return nil
}
