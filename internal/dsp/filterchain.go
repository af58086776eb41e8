package dsp

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// echoPreset is one of the three canned aecho parameter sets from the
// glossary: in-gain, out-gain, and parallel delay/decay taps.
type echoPreset struct {
	inGain, outGain float64
	delaysMs        []float64
	decays          []float64
}

var (
	echoPresetEcho = echoPreset{
		inGain: 0.6, outGain: 0.3,
		delaysMs: []float64{100, 200, 300},
		decays:   []float64{0.5, 0.25, 0.125},
	}
	echoPresetMetal = echoPreset{
		inGain: 0.8, outGain: 0.88,
		delaysMs: []float64{20, 40},
		decays:   []float64{0.8, 0.4},
	}
	echoPresetReverb = buildReverbPreset()
)

// buildReverbPreset expands the glossary's "delays 8…248, decays 0.95ⁱ"
// shorthand into the explicit per-tap lists aecho requires: one tap every
// 8ms from 8 to 248, each decaying by a further factor of 0.95.
func buildReverbPreset() echoPreset {
	var delays, decays []float64
	for i := 1; i <= 31; i++ {
		delays = append(delays, float64(i*8))
		decays = append(decays, math.Pow(0.95, float64(i)))
	}
	return echoPreset{inGain: 0.8, outGain: 0.88, delaysMs: delays, decays: decays}
}

func (p echoPreset) arg() string {
	join := func(vals []float64, prec int) string {
		parts := make([]string, len(vals))
		for i, v := range vals {
			parts[i] = strconv.FormatFloat(v, 'f', prec, 64)
		}
		return strings.Join(parts, "|")
	}
	return fmt.Sprintf("aecho=%s:%s:%s:%s",
		strconv.FormatFloat(p.inGain, 'f', 2, 64),
		strconv.FormatFloat(p.outGain, 'f', 2, 64),
		join(p.delaysMs, 0),
		join(p.decays, 4),
	)
}

// FilterChain builds the ordered ffmpeg -af filter list described in spec
// section 4.2 step 3 and the glossary's "Filter chain" entry. sampleRate is
// the source's native rate, needed to express asetrate in absolute Hz.
// Called only when RequiresFFmpeg is true; a pure-tempo element never
// reaches this and is instead handled by the player's own playback rate.
func (s Settings) FilterChain(sampleRate int) []string {
	var chain []string

	if s.Reversed() {
		chain = append(chain, "areverse")
	}

	if s.PitchShift != 0 {
		rate := strconv.FormatFloat(float64(sampleRate)*s.PitchScale(), 'f', 0, 64)
		tempo := math.Abs(s.TempoScale) / s.PitchScale()
		chain = append(chain,
			fmt.Sprintf("asetrate=%s", rate),
			fmt.Sprintf("aresample=%d", sampleRate),
			fmt.Sprintf("atempo=%s", strconv.FormatFloat(tempo, 'f', 6, 64)),
		)
	}

	// Echo, metal, and reverb are independent, chainable filters — a
	// request can set more than one (e.g. {echo}{metal}) and every one
	// set contributes its own aecho stage.
	if s.Echo {
		chain = append(chain, echoPresetEcho.arg())
	}
	if s.Metal {
		chain = append(chain, echoPresetMetal.arg())
	}
	if s.Reverb {
		chain = append(chain, echoPresetReverb.arg())
	}

	return chain
}

// FFmpegArgs assembles the full command-line argument vector for a
// one-shot ffmpeg invocation: read srcPath, apply the filter chain, write
// to outPath, overwriting any file already there (-y).
func FFmpegArgs(srcPath, outPath string, sampleRate int, s Settings) []string {
	args := []string{"-y", "-i", srcPath}
	if chain := s.FilterChain(sampleRate); len(chain) > 0 {
		args = append(args, "-af", strings.Join(chain, ","))
	}
	args = append(args, outPath)
	return args
}
