// Package dsp models the flat DSP-settings record described in spec
// section 3 and the ffmpeg filter chain it implies.
package dsp

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Settings is the flat transform record attached to every queue element by
// the request parser. Zero value is "no transform, no loop."
type Settings struct {
	PitchShift float64 // semitones, [-24, 24]
	TempoScale float64 // |x| in [1/4, 4]; negative => play reversed
	Echo       bool
	Metal      bool
	Reverb     bool
	Loop       bool
}

// Default returns the zero-transform settings record with TempoScale at
// unity (1, not 0 — a 0 tempo scale is meaningless and never produced by
// the parser).
func Default() Settings {
	return Settings{TempoScale: 1}
}

// PitchScale is 2^(pitch_shift/12), the sample-rate multiplier that
// produces the requested pitch shift when combined with asetrate.
func (s Settings) PitchScale() float64 {
	return math.Pow(2, s.PitchShift/12)
}

// RequiresFFmpeg reports whether this element needs an external filter
// pass before it can play. A pure positive-speed change is handled by the
// player's own playback rate (see boundary scenario "tempo only") and
// never reaches ffmpeg; reverse playback, pitch shift, and the three
// preset filters all do.
func (s Settings) RequiresFFmpeg() bool {
	return s.PitchShift != 0 || s.Reversed() || s.Echo || s.Metal || s.Reverb
}

// Any is the bool(settings) invariant: any transform OR loop, independent
// of whether that transform happens to require ffmpeg.
func (s Settings) Any() bool {
	return s.PitchShift != 0 || math.Abs(s.TempoScale) != 1 || s.Echo || s.Metal || s.Reverb || s.Loop
}

// Reversed reports whether the tempo scale requests reverse playback.
func (s Settings) Reversed() bool {
	return s.TempoScale < 0
}

// Print renders s back into the canonical brace-directive tokens
// (spec section 4.1's grammar) that, fed through parser.Parse, produce
// an identical Settings — the print side of the "Parse ∘ print is
// identity modulo synonym normalisation" round-trip in spec section 8.
// Only the canonical directive name is ever used (e.g. "tempo", never
// "nightcore" or one of its other synonyms), and a field at its default
// (PitchShift 0, TempoScale 1, flags false) is omitted entirely.
func (s Settings) Print() string {
	var blocks []string

	if s.PitchShift != 0 {
		blocks = append(blocks, fmt.Sprintf("{pitch:%s}", formatDirectiveFloat(s.PitchShift)))
	}
	if s.TempoScale != 1 {
		blocks = append(blocks, fmt.Sprintf("{tempo:%s}", formatDirectiveFloat(s.TempoScale)))
	}
	if s.Echo {
		blocks = append(blocks, "{echo}")
	}
	if s.Metal {
		blocks = append(blocks, "{metal}")
	}
	if s.Reverb {
		blocks = append(blocks, "{reverb}")
	}
	if s.Loop {
		blocks = append(blocks, "{loop}")
	}

	return strings.Join(blocks, " ")
}

// formatDirectiveFloat renders v with the minimum digits that still
// round-trip exactly through strconv.ParseFloat, matching how the
// parser reads a directive value back in.
func formatDirectiveFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
