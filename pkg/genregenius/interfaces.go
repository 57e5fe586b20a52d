package genregenius

import (
	"context"

	"github.com/himanishpuri/GenreGenius/pkg/genregenius/sse"
)

// Event names the prediction service sends.
const (
	EventProgress = "progress"
	EventResult   = "result"
	EventError    = "error"
)

// Channel is one open server-push connection for a single request.
type Channel interface {
	// Events delivers events in send order and is closed when the
	// connection ends.
	Events() <-chan sse.Event
	// Close releases the connection. It must be idempotent.
	Close() error
}

// Opener establishes a Channel for a source URL.
type Opener interface {
	Open(ctx context.Context, sourceURL string) (Channel, error)
}

// Journal records finished predictions for operators. Session state is never
// read back from it.
type Journal interface {
	Record(ctx context.Context, o Outcome) error
}

type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Debugf(format string, args ...any)
}

// sseOpener adapts sse.Client to Opener.
type sseOpener struct {
	client *sse.Client
}

func (o sseOpener) Open(ctx context.Context, sourceURL string) (Channel, error) {
	stream, err := o.client.Open(ctx, sourceURL)
	if err != nil {
		return nil, err
	}
	return stream, nil
}
