package stubserver

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/himanishpuri/GenreGenius/pkg/genregenius"
)

// Script is the fixed sequence one prediction stream plays back.
type Script struct {
	Progress []string
	// Delay is slept before every event.
	Delay time.Duration
	// Genres is sent as the result mapping, in this order.
	Genres []genregenius.Entry
	// Percent sends probabilities scaled to 0-100 inside a
	// {"genre_probabilities": {...}} envelope.
	Percent bool
	// Failure, when set, replaces the result with an error event.
	Failure string
	// Truncate ends the stream after the progress events with no terminal
	// event.
	Truncate bool
}

// DefaultScript plays the steps the hosted prediction service reports.
func DefaultScript() Script {
	return Script{
		Progress: []string{
			"Converting to WAV...",
			"Extracting audio features...",
			"Predicting genre...",
		},
		Delay: 200 * time.Millisecond,
		Genres: []genregenius.Entry{
			{Label: "Rock", Probability: 0.62},
			{Label: "Metal", Probability: 0.21},
			{Label: "Blues", Probability: 0.09},
			{Label: "Pop", Probability: 0.05},
			{Label: "Jazz", Probability: 0.03},
		},
	}
}

// ResultPayload encodes Genres as a JSON object keeping the entry order.
func (s Script) ResultPayload() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, e := range s.Genres {
		if i > 0 {
			b.WriteByte(',')
		}
		key, _ := json.Marshal(e.Label)
		b.Write(key)
		b.WriteByte(':')
		p := e.Probability
		if s.Percent {
			p *= 100
		}
		b.WriteString(strconv.FormatFloat(p, 'f', -1, 64))
	}
	b.WriteByte('}')

	if s.Percent {
		return `{"genre_probabilities":` + b.String() + `}`
	}
	return b.String()
}
