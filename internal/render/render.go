// Package render prints session snapshots to a terminal.
package render

import (
	"fmt"
	"io"
	"math"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/himanishpuri/GenreGenius/pkg/genregenius"
)

const defaultBarWidth = 30

var (
	accent  = lipgloss.Color("#50E3C2")
	muted   = lipgloss.Color("#8CA1AE")
	warning = lipgloss.Color("#FF6B6B")
	barFill = lipgloss.Color("#F6AE2D")
)

// Renderer writes status lines and the final distribution. It is safe to use
// as a session OnChange listener.
type Renderer struct {
	mu  sync.Mutex
	out io.Writer

	status    lipgloss.Style
	headline  lipgloss.Style
	label     lipgloss.Style
	bar       lipgloss.Style
	failure   lipgloss.Style
	barWidth  int
	lastGen   uint64
	lastShown string
}

// New returns a renderer writing to w. Colour is used only when w is a
// terminal.
func New(w io.Writer) *Renderer {
	lg := lipgloss.NewRenderer(w)
	return &Renderer{
		out:      w,
		status:   lg.NewStyle().Foreground(muted),
		headline: lg.NewStyle().Bold(true).Foreground(accent),
		label:    lg.NewStyle().Width(12),
		bar:      lg.NewStyle().Foreground(barFill),
		failure:  lg.NewStyle().Bold(true).Foreground(warning),
		barWidth: defaultBarWidth,
	}
}

// Snapshot renders one state change. Repeated status text within a
// generation is printed once and snapshots from older generations are
// ignored.
func (r *Renderer) Snapshot(snap genregenius.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if snap.Generation < r.lastGen {
		return
	}

	key := snap.Status.String() + "\x00" + snap.Message
	if snap.Err != nil {
		key += "\x00" + string(snap.Err.Kind)
	}
	if snap.Generation == r.lastGen && key == r.lastShown {
		return
	}
	r.lastGen = snap.Generation
	r.lastShown = key

	// An error here is either the terminal failure or a rejected blank
	// submit, which may arrive in any status.
	switch {
	case snap.Err != nil:
		fmt.Fprintln(r.out, r.failure.Render(snap.Err.UserMessage()))
	case snap.Status == genregenius.StatusSucceeded:
		fmt.Fprintln(r.out, r.Distribution(snap.Distribution))
	case snap.Status.Active():
		fmt.Fprintln(r.out, r.status.Render("⏳ "+snap.Message))
	}
}

// Distribution formats the predicted genre followed by one bar per entry in
// delivered order.
func (r *Renderer) Distribution(d *genregenius.GenreDistribution) string {
	if d == nil || len(d.Entries) == 0 {
		return ""
	}

	var b strings.Builder
	top := d.Predicted()
	b.WriteString(r.headline.Render(fmt.Sprintf("%s %s", GlyphFor(top), top)))
	for _, e := range d.Entries {
		b.WriteString("\n")
		b.WriteString(r.label.Render(e.Label))
		b.WriteString(" ")
		b.WriteString(r.bar.Render(Bar(e.Probability, r.barWidth)))
		b.WriteString(fmt.Sprintf(" %5.1f%%", e.Probability*100))
	}
	return b.String()
}

// Bar draws p in [0,1] as a fixed-width bar.
func Bar(p float64, width int) string {
	if width <= 0 {
		return ""
	}
	p = math.Max(0, math.Min(1, p))
	filled := int(math.Round(p * float64(width)))
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}
