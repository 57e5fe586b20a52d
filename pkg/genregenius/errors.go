package genregenius

import (
	"errors"
	"fmt"
)

// ErrorKind classifies prediction failures.
type ErrorKind string

const (
	KindEmptyInput         ErrorKind = "empty_input"
	KindChannelOpenFailure ErrorKind = "channel_open_failure"
	KindPredictionFailed   ErrorKind = "prediction_failed"
	KindMalformedResult    ErrorKind = "malformed_result"
)

var (
	ErrEmptyInput       = errors.New("source URL is empty")
	ErrChannelOpen      = errors.New("prediction channel could not be established")
	ErrPredictionFailed = errors.New("prediction service reported an error")
	ErrMalformedResult  = errors.New("prediction result is malformed")
)

// Fixed user-facing messages. Raw diagnostics never reach these.
const (
	MessageEmptyInput  = "Please enter a YouTube URL."
	MessageChannelOpen = "Failed to predict genre. Please try again."
	MessageFailed      = "Could not predict the genre. Please use a link to an official audio source."
)

func (k ErrorKind) sentinel() error {
	switch k {
	case KindEmptyInput:
		return ErrEmptyInput
	case KindChannelOpenFailure:
		return ErrChannelOpen
	case KindMalformedResult:
		return ErrMalformedResult
	default:
		return ErrPredictionFailed
	}
}

// PredictionError is a terminal failure of the current session.
type PredictionError struct {
	Kind       ErrorKind
	Diagnostic string // operator-side detail, never displayed
	Err        error  // underlying cause, if any
}

func newPredictionError(kind ErrorKind, diagnostic string, cause error) *PredictionError {
	return &PredictionError{Kind: kind, Diagnostic: diagnostic, Err: cause}
}

func (e *PredictionError) Error() string {
	msg := e.Kind.sentinel().Error()
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Diagnostic != "" {
		return fmt.Sprintf("%s: %s", msg, e.Diagnostic)
	}
	return msg
}

// Unwrap exposes both the kind sentinel and the cause to errors.Is/As.
func (e *PredictionError) Unwrap() []error {
	errs := []error{e.Kind.sentinel()}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// UserMessage returns the fixed text shown to the end user.
func (e *PredictionError) UserMessage() string {
	switch e.Kind {
	case KindEmptyInput:
		return MessageEmptyInput
	case KindChannelOpenFailure:
		return MessageChannelOpen
	default:
		return MessageFailed
	}
}
