package genregenius

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/himanishpuri/GenreGenius/internal/observability"
	"github.com/himanishpuri/GenreGenius/pkg/genregenius/sse"
	"github.com/himanishpuri/GenreGenius/pkg/logger"
	"github.com/himanishpuri/GenreGenius/pkg/utils"
)

var errStreamEnded = errors.New("stream ended before a result or error event")

type doneSignal struct {
	once sync.Once
	ch   chan struct{}
}

func newDoneSignal() *doneSignal {
	return &doneSignal{ch: make(chan struct{})}
}

func (d *doneSignal) fire() {
	d.once.Do(func() { close(d.ch) })
}

// Session owns the state of one prediction client: the current status, the
// live channel and the last distribution or error.
//
// Every Submit bumps a generation token. Events are applied only when they
// carry the current generation and the session is still waiting for a
// terminal event, so a superseded or finished channel can never mutate state.
type Session struct {
	id      string
	opener  Opener
	log     Logger
	journal Journal

	mu        sync.Mutex
	gen       uint64
	status    Status
	message   string
	dist      *GenreDistribution
	err       *PredictionError
	channel   Channel
	cancel    context.CancelFunc
	done      *doneSignal // fired when the current generation ends
	sourceURL string
	startedAt time.Time
	seq       uint64 // bumped on every mutation

	notifyMu  sync.Mutex
	listeners []func(Snapshot)
	delivered uint64 // seq of the newest snapshot handed to listeners
}

// NewSession creates an idle session.
func NewSession(opts ...Option) *Session {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.SessionID == "" {
		cfg.SessionID = uuid.NewString()
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.GetLogger().With("session=" + shortID(cfg.SessionID))
	}
	if cfg.Opener == nil {
		client := sse.NewClient(cfg.Endpoint, cfg.HTTPClient)
		cfg.Opener = sseOpener{client: client}
		cfg.Logger.Debugf("Using prediction endpoint %s", client.Endpoint())
	}

	return &Session{
		id:      cfg.SessionID,
		opener:  cfg.Opener,
		log:     cfg.Logger,
		journal: cfg.Journal,
		status:  StatusIdle,
		message: ReadyMessage,
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// OnChange registers fn to receive a snapshot after every state change.
// Snapshots arrive in mutation order; one overtaken by a newer change before
// it could be delivered is dropped. Listeners run on the goroutine that made
// the change and must not call Submit or Cancel synchronously.
func (s *Session) OnChange(fn func(Snapshot)) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// publishLocked records a mutation and returns its snapshot and sequence
// number for notify.
func (s *Session) publishLocked() (Snapshot, uint64) {
	s.seq++
	return s.snapshotLocked(), s.seq
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		SessionID:  s.id,
		Generation: s.gen,
		Status:     s.status,
		Message:    s.message,
		Err:        s.err,
	}
	if s.dist != nil {
		entries := make([]Entry, len(s.dist.Entries))
		copy(entries, s.dist.Entries)
		snap.Distribution = &GenreDistribution{Entries: entries}
	}
	return snap
}

// Submit starts a prediction for sourceURL. Empty input fails immediately
// with an EmptyInput error and leaves the session untouched otherwise. Valid
// input releases any live channel first, then opens a new one in the
// background; results arrive through OnChange and Wait.
func (s *Session) Submit(sourceURL string) error {
	src := strings.TrimSpace(sourceURL)
	if src == "" {
		perr := newPredictionError(KindEmptyInput, "", nil)

		s.mu.Lock()
		s.err = perr
		snap, seq := s.publishLocked()
		s.mu.Unlock()

		observability.Submissions.WithLabelValues("empty_input").Inc()
		s.log.Warnf("Rejected submit: %v", perr)
		s.notify(seq, snap)
		return perr
	}

	s.mu.Lock()
	if s.channel != nil || s.cancel != nil {
		s.log.Infof("Superseding generation %d", s.gen)
	}
	s.releaseLocked()
	s.gen++
	gen := s.gen
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.status = StatusSubmitting
	s.message = SubmittingMessage
	s.dist = nil
	s.err = nil
	s.sourceURL = src
	s.startedAt = time.Now()
	s.done = newDoneSignal()
	snap, seq := s.publishLocked()
	s.mu.Unlock()

	observability.Submissions.WithLabelValues("accepted").Inc()
	if videoID, err := utils.ExtractYouTubeID(src); err == nil {
		s.log.Infof("Submitting generation %d (video %s)", gen, videoID)
	} else {
		s.log.Infof("Submitting generation %d: %s", gen, src)
		if !utils.IsYouTubeURL(src) {
			s.log.Debugf("Source is not a YouTube link; the service may reject it")
		}
	}

	s.notify(seq, snap)
	go s.pump(ctx, gen, src)
	return nil
}

// Cancel releases the live channel, if any, and returns the session to idle.
// Events still in flight for the cancelled request are discarded.
func (s *Session) Cancel() {
	s.mu.Lock()
	if !s.status.Active() {
		s.mu.Unlock()
		return
	}
	s.releaseLocked()
	s.gen++
	s.status = StatusIdle
	s.message = ReadyMessage
	snap, seq := s.publishLocked()
	s.mu.Unlock()

	s.log.Infof("Cancelled prediction")
	s.notify(seq, snap)
}

// Wait blocks until the current generation ends (terminal event, supersession
// or cancellation) or ctx is done, and returns the snapshot at that point.
// After a terminal event it returns once listeners and the journal have seen
// the outcome.
func (s *Session) Wait(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()

	if done == nil {
		return s.Snapshot(), nil
	}
	select {
	case <-done.ch:
		return s.Snapshot(), nil
	case <-ctx.Done():
		return s.Snapshot(), ctx.Err()
	}
}

// releaseLocked closes the live channel and ends the current generation's
// wait. Safe to call with nothing live.
func (s *Session) releaseLocked() {
	s.closeChannelLocked()
	if s.done != nil {
		s.done.fire()
		s.done = nil
	}
}

func (s *Session) closeChannelLocked() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if s.channel != nil {
		if err := s.channel.Close(); err != nil {
			s.log.Warnf("Closing channel: %v", err)
		}
		s.channel = nil
		observability.LiveChannels.Dec()
	}
}

// currentLocked reports whether gen is the generation still awaiting a terminal
// event.
func (s *Session) currentLocked(gen uint64) bool {
	return gen == s.gen && s.status.Active()
}

func (s *Session) pump(ctx context.Context, gen uint64, src string) {
	ch, err := s.opener.Open(ctx, src)
	if err != nil {
		s.fail(gen, newPredictionError(KindChannelOpenFailure, err.Error(), err))
		return
	}
	if !s.attach(gen, ch) {
		ch.Close()
		return
	}

	for ev := range ch.Events() {
		if !s.apply(gen, ev) {
			return
		}
	}

	cause := errStreamEnded
	if e, ok := ch.(interface{ Err() error }); ok && e.Err() != nil {
		cause = e.Err()
	}
	s.fail(gen, newPredictionError(KindChannelOpenFailure, cause.Error(), cause))
}

func (s *Session) attach(gen uint64, ch Channel) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.currentLocked(gen) {
		s.log.Debugf("Dropping channel for superseded generation %d", gen)
		return false
	}
	s.channel = ch
	observability.LiveChannels.Inc()
	return true
}

// apply interprets one event for generation gen. It returns false once the
// channel should no longer be read.
func (s *Session) apply(gen uint64, ev sse.Event) bool {
	s.mu.Lock()
	if !s.currentLocked(gen) {
		s.mu.Unlock()
		observability.EventsDiscarded.WithLabelValues("stale").Inc()
		s.log.Debugf("Discarding %s event from generation %d", ev.Name, gen)
		return false
	}

	switch ev.Name {
	case EventProgress:
		s.status = StatusInProgress
		s.message = ev.Data
		if s.err != nil && s.err.Kind == KindEmptyInput {
			s.err = nil
		}
		snap, seq := s.publishLocked()
		s.mu.Unlock()

		observability.EventsApplied.WithLabelValues(EventProgress).Inc()
		s.log.Debugf("Progress: %s", ev.Data)
		s.notify(seq, snap)
		return true

	case EventResult:
		dist, err := ParseDistribution(ev.Data)
		var out Outcome
		if err != nil {
			out = s.finishLocked(StatusFailed, newPredictionError(KindMalformedResult, ev.Data, err))
		} else {
			s.dist = dist
			out = s.finishLocked(StatusSucceeded, nil)
		}
		done := s.done
		snap, seq := s.publishLocked()
		s.mu.Unlock()

		observability.EventsApplied.WithLabelValues(EventResult).Inc()
		s.finished(out, seq, snap, done)
		return false

	case EventError:
		out := s.finishLocked(StatusFailed, newPredictionError(KindPredictionFailed, ev.Data, nil))
		done := s.done
		snap, seq := s.publishLocked()
		s.mu.Unlock()

		observability.EventsApplied.WithLabelValues(EventError).Inc()
		s.finished(out, seq, snap, done)
		return false

	default:
		s.mu.Unlock()
		observability.EventsDiscarded.WithLabelValues("unknown").Inc()
		s.log.Debugf("Ignoring unknown event %q", ev.Name)
		return true
	}
}

// fail ends generation gen with perr unless it has already ended.
func (s *Session) fail(gen uint64, perr *PredictionError) {
	s.mu.Lock()
	if !s.currentLocked(gen) {
		s.mu.Unlock()
		s.log.Debugf("Ignoring %s for finished generation %d", perr.Kind, gen)
		return
	}
	out := s.finishLocked(StatusFailed, perr)
	done := s.done
	snap, seq := s.publishLocked()
	s.mu.Unlock()

	s.finished(out, seq, snap, done)
}

func (s *Session) finishLocked(status Status, perr *PredictionError) Outcome {
	s.status = status
	s.err = perr
	if perr != nil {
		s.message = perr.UserMessage()
	} else {
		s.message = ReadyMessage
	}
	s.closeChannelLocked()

	out := Outcome{
		SessionID:  s.id,
		Generation: s.gen,
		SourceURL:  s.sourceURL,
		Status:     status,
		Predicted:  s.dist.Predicted(),
		FinishedAt: time.Now(),
	}
	out.Duration = out.FinishedAt.Sub(s.startedAt)
	if perr != nil {
		out.Kind = perr.Kind
		out.Diagnostic = perr.Diagnostic
	}
	return out
}

// finished logs, counts and journals a terminal outcome, notifies listeners
// and finally releases waiters.
func (s *Session) finished(out Outcome, seq uint64, snap Snapshot, done *doneSignal) {
	label := "succeeded"
	switch out.Kind {
	case "":
		s.log.Infof("Predicted %s in %s", out.Predicted, out.Duration.Round(time.Millisecond))
	case KindMalformedResult:
		label = string(out.Kind)
		s.log.Errorf("Malformed result payload: %v (payload %q)", snap.Err.Err, out.Diagnostic)
	case KindPredictionFailed:
		label = string(out.Kind)
		s.log.Errorf("Prediction service error: %s", out.Diagnostic)
	default:
		label = string(out.Kind)
		s.log.Errorf("Prediction channel failed: %s", out.Diagnostic)
	}

	observability.Outcomes.WithLabelValues(label).Inc()
	observability.PredictionDuration.WithLabelValues(label).Observe(out.Duration.Seconds())

	if s.journal != nil {
		if err := s.journal.Record(context.Background(), out); err != nil {
			s.log.Warnf("Journal record failed: %v", err)
		}
	}

	s.notify(seq, snap)
	if done != nil {
		done.fire()
	}
}

func (s *Session) notify(seq uint64, snap Snapshot) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	if seq < s.delivered {
		s.log.Debugf("Dropping overtaken snapshot of generation %d", snap.Generation)
		return
	}
	s.delivered = seq
	for _, fn := range s.listeners {
		fn(snap)
	}
}
