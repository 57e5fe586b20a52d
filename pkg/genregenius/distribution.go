package genregenius

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// envelopeKey wraps the mapping in payloads from the hosted prediction service.
const envelopeKey = "genre_probabilities"

// ParseDistribution decodes a result payload into a distribution. The payload
// is either a label->probability object or that object wrapped under
// "genre_probabilities". Entry order is the order of keys in the payload.
//
// Percent-scaled payloads (every value in [0,100], some above 1) are
// rescaled to [0,1].
func ParseDistribution(payload string) (*GenreDistribution, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil, fmt.Errorf("empty payload")
	}
	if !gjson.Valid(payload) {
		return nil, fmt.Errorf("payload is not valid JSON")
	}

	root := gjson.Parse(payload)
	if !root.IsObject() {
		return nil, fmt.Errorf("payload is %s, want object", root.Type)
	}

	mapping := root
	if wrapped := root.Get(envelopeKey); wrapped.Exists() {
		if !wrapped.IsObject() {
			return nil, fmt.Errorf("%s is %s, want object", envelopeKey, wrapped.Type)
		}
		mapping = wrapped
	}

	var (
		entries []Entry
		seen    = make(map[string]struct{})
		maxVal  float64
		bad     error
	)
	mapping.ForEach(func(key, value gjson.Result) bool {
		label := key.String()
		if strings.TrimSpace(label) == "" {
			bad = fmt.Errorf("empty genre label")
			return false
		}
		if _, dup := seen[label]; dup {
			bad = fmt.Errorf("duplicate genre label %q", label)
			return false
		}
		if value.Type != gjson.Number {
			bad = fmt.Errorf("probability for %q is %s, want number", label, value.Type)
			return false
		}
		p := value.Float()
		if p < 0 || p > 100 {
			bad = fmt.Errorf("probability for %q out of range: %v", label, p)
			return false
		}
		if p > maxVal {
			maxVal = p
		}
		seen[label] = struct{}{}
		entries = append(entries, Entry{Label: label, Probability: p})
		return true
	})
	if bad != nil {
		return nil, bad
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("no genre probabilities in payload")
	}

	if maxVal > 1 {
		for i := range entries {
			entries[i].Probability /= 100
		}
	}

	return &GenreDistribution{Entries: entries}, nil
}
