package render

import "strings"

// DefaultGlyph is shown for labels outside the table.
const DefaultGlyph = "🎵"

var glyphs = map[string]string{
	"rock":      "🎸",
	"pop":       "🎤",
	"jazz":      "🎷",
	"blues":     "🎺",
	"classical": "🎻",
	"country":   "🤠",
	"hiphop":    "🎧",
	"metal":     "🤘",
	"disco":     "🪩",
	"reggae":    "🌴",
}

// GlyphFor maps a genre label to its display glyph. Matching ignores case,
// spaces and hyphens, so "Hip-hop" and "hip hop" share one entry.
func GlyphFor(label string) string {
	key := strings.ToLower(label)
	key = strings.NewReplacer(" ", "", "-", "", "_", "").Replace(key)
	if g, ok := glyphs[key]; ok {
		return g
	}
	return DefaultGlyph
}
