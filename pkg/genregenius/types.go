package genregenius

import "time"

// Status is the client-visible phase of a prediction session.
type Status int

const (
	StatusIdle Status = iota
	StatusSubmitting
	StatusInProgress
	StatusSucceeded
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusSubmitting:
		return "submitting"
	case StatusInProgress:
		return "in_progress"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Active reports whether a channel may be live in this status.
func (s Status) Active() bool {
	return s == StatusSubmitting || s == StatusInProgress
}

// Display texts for statuses that carry no server message.
const (
	ReadyMessage      = "ready"
	SubmittingMessage = "submitting"
)

// Entry is one (label, probability) pair of a distribution.
type Entry struct {
	Label       string  // Genre label as sent by the service
	Probability float64 // In [0,1]
}

// GenreDistribution is the ranked result of one prediction. Entries keep the
// order the service delivered them in; the first entry is the prediction.
type GenreDistribution struct {
	Entries []Entry
}

// Predicted returns the label of the first entry.
func (d *GenreDistribution) Predicted() string {
	if d == nil || len(d.Entries) == 0 {
		return ""
	}
	return d.Entries[0].Label
}

// Snapshot is a copy of the session state handed to the presentation layer.
type Snapshot struct {
	SessionID    string
	Generation   uint64
	Status       Status
	Message      string             // Status text to display
	Distribution *GenreDistribution // Non-nil only after a successful result
	Err          *PredictionError   // Last surfaced error, if any
}

// Predicted returns the predicted genre label, or "" when there is no result.
func (s Snapshot) Predicted() string {
	return s.Distribution.Predicted()
}

// Terminal reports whether the snapshot's generation has finished.
func (s Snapshot) Terminal() bool {
	return s.Status == StatusSucceeded || s.Status == StatusFailed
}

// Outcome is the operator-side record of a finished prediction. It carries
// the raw diagnostic that is never shown to the user.
type Outcome struct {
	SessionID  string
	Generation uint64
	SourceURL  string
	Status     Status
	Kind       ErrorKind // Empty on success
	Predicted  string
	Diagnostic string
	Duration   time.Duration
	FinishedAt time.Time
}
