// Package parser implements the chat-command request parser from spec
// section 4.1: it turns a queue command's argument vector into a DSP
// settings record plus a classified source (search text, URL, or
// uploaded blob), aborting on the first error with no partial settings
// applied.
package parser

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/jukeproc/juked/internal/dsp"
)

var validate = validator.New()

// SourceKind classifies how the free text (or attached blob) resolves to
// an audio source, per spec section 4.1.
type SourceKind int

const (
	SourceSearch SourceKind = iota
	SourceURL
	SourceUploadedBlob
)

// Request is the parsed result: a DSP settings record and a classified
// source reference.
type Request struct {
	Settings dsp.Settings
	Kind     SourceKind
	Query    string // search text or raw URL; empty when Kind is SourceUploadedBlob
}

// Error is a single user-visible parse failure. Parsing aborts on the
// first one; no partial settings are ever returned alongside it.
type Error struct {
	Message string
}

func (e *Error) Error() string { return e.Message }

func fail(format string, args ...any) error {
	return &Error{Message: fmt.Sprintf(format, args...)}
}

// playlistPatterns mirrors the fixed set of playlist-URL shapes the
// source gave inconsistent (half-present) treatment to; this parser
// rejects all of them outright rather than expanding them, per the
// resolved open question in section 9.
var playlistPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)[?&]list=`),
	regexp.MustCompile(`(?i)/playlist`),
	regexp.MustCompile(`(?i)/sets/`),
}

// Parse consumes the raw argument tokens of a queue command. hasBlob
// indicates whether a media blob was attached to the same message.
func Parse(tokens []string, hasBlob bool) (*Request, error) {
	blocks, freeTokens := tokenize(tokens)

	settings := dsp.Default()

	for _, block := range blocks {
		key, value, hasValue := splitDirective(block)
		k, ok := synonymTable[strings.ToLower(key)]
		if !ok {
			return nil, fail("unknown directive %q", key)
		}

		switch k {
		case kindPitch:
			v, err := parseFloatDirective(key, value, hasValue)
			if err != nil {
				return nil, err
			}
			if err := validate.Var(v, "min=-24,max=24"); err != nil {
				return nil, fail("pitch %v out of range [-24, 24]", v)
			}
			settings.PitchShift = v

		case kindTempoUp:
			v, err := parseFloatDirective(key, value, hasValue)
			if err != nil {
				return nil, err
			}
			if err := validateTempoMagnitude(v); err != nil {
				return nil, err
			}
			settings.TempoScale = v

		case kindTempoDown:
			v, err := parseFloatDirective(key, value, hasValue)
			if err != nil {
				return nil, err
			}
			if err := validateTempoMagnitude(v); err != nil {
				return nil, err
			}
			if v == 0 {
				return nil, fail("tempo-down value must not be zero")
			}
			settings.TempoScale = 1 / v

		case kindNightcore:
			settings.PitchShift = nightcorePitchShift
			settings.TempoScale = 1.35

		case kindLoop:
			settings.Loop = true

		case kindEcho:
			settings.Echo = true
		case kindMetal:
			settings.Metal = true
		case kindReverb:
			settings.Reverb = true
		}
	}

	query := strings.Join(freeTokens, " ")

	if hasBlob {
		return &Request{Settings: settings, Kind: SourceUploadedBlob}, nil
	}

	if query == "" {
		return nil, fail("nothing to queue: no media attached and no query text")
	}

	if looksLikeURL(query) {
		for _, p := range playlistPatterns {
			if p.MatchString(query) {
				return nil, fail("playlists not supported")
			}
		}
		return &Request{Settings: settings, Kind: SourceURL, Query: query}, nil
	}

	return &Request{Settings: settings, Kind: SourceSearch, Query: query}, nil
}

func parseFloatDirective(key, value string, hasValue bool) (float64, error) {
	if !hasValue {
		return 0, fail("directive %q requires a value", key)
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fail("%q is not a valid number for %q", value, key)
	}
	return v, nil
}

func validateTempoMagnitude(v float64) error {
	mag := v
	if mag < 0 {
		mag = -mag
	}
	if err := validate.Var(mag, "min=0.25,max=4"); err != nil {
		return fail("tempo magnitude %v out of range [1/4, 4]", mag)
	}
	return nil
}

func looksLikeURL(s string) bool {
	u, err := url.ParseRequestURI(s)
	if err != nil {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}
