package parser

import "math"

// kind identifies which canonical directive a synonym resolves to.
type kind int

const (
	kindPitch kind = iota
	kindTempoUp
	kindTempoDown
	kindNightcore
	kindLoop
	kindEcho
	kindMetal
	kindReverb
)

// synonymTable maps every case-folded synonym from spec section 4.1 to its
// canonical kind. Declaration order in the table below is the tie-break
// order for ambiguous synonyms shared between tempo-up and tempo-down
// (notably "tempo" itself): the first matching rule wins, so "tempo" binds
// to tempo-up here.
var synonymTable = buildSynonymTable()

func buildSynonymTable() map[string]kind {
	t := make(map[string]kind)
	add := func(k kind, synonyms ...string) {
		for _, s := range synonyms {
			if _, exists := t[s]; !exists {
				t[s] = k
			}
		}
	}

	add(kindPitch,
		"pitch", "freq", "frequency", "pitch shift", "pitch adjust",
		"freq shift", "freq adjust", "frequency shift", "frequency adjust")

	add(kindTempoUp,
		"contract", "quicken", "time contract", "speed", "time scale",
		"scale time", "contract time", "speed scale", "tempo scale", "tempo",
		"scale tempo", "tempo adjust", "speed adjust", "speed up",
		"playback speed", "playback rate", "playback tempo")

	add(kindTempoDown,
		"stretch", "elongate", "time stretch", "slow", "time slow",
		"slow time", "stretch time", "tempo slow", "tempo", "slow tempo",
		"slow down")

	add(kindNightcore, "nightcore", "night-core", "sped up", "sped-up")

	add(kindLoop, "loop", "repeat", "loop forever")

	add(kindEcho, "echo")
	add(kindMetal, "metal")
	add(kindReverb, "reverb")

	return t
}

// nightcorePitchShift is 12·log2(1.35), the semitone shift the nightcore
// directive applies alongside its fixed 1.35 tempo scale.
var nightcorePitchShift = 12 * math.Log2(1.35)
