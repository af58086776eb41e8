package dsp

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterChain_EchoAlone(t *testing.T) {
	s := Settings{TempoScale: 1, Echo: true}
	chain := s.FilterChain(44100)
	require.Len(t, chain, 1)
	assert.Contains(t, chain[0], "aecho=0.60:0.30:")
}

func TestFilterChain_EchoAndMetalAreBothApplied(t *testing.T) {
	s := Settings{TempoScale: 1, Echo: true, Metal: true}
	chain := s.FilterChain(44100)
	require.Len(t, chain, 2)
	assert.Contains(t, chain[0], "aecho=0.60:0.30:", "echo stage must still be present")
	assert.Contains(t, chain[1], "aecho=0.80:0.88:", "metal stage must also be present")
}

func TestFilterChain_AllThreePresetsChain(t *testing.T) {
	s := Settings{TempoScale: 1, Echo: true, Metal: true, Reverb: true}
	chain := s.FilterChain(44100)
	require.Len(t, chain, 3)
	for _, stage := range chain {
		assert.True(t, strings.HasPrefix(stage, "aecho="))
	}
}

func TestFilterChain_ReverbWithPitchOrdersReverseThenPitchThenPreset(t *testing.T) {
	s := Settings{PitchShift: 5, TempoScale: -1, Reverb: true}
	chain := s.FilterChain(44100)
	require.Len(t, chain, 5) // areverse, asetrate, aresample, atempo, aecho
	assert.Equal(t, "areverse", chain[0])
	assert.True(t, strings.HasPrefix(chain[len(chain)-1], "aecho="))
}
