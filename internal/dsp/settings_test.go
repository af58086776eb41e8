package dsp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSettings_PrintOmitsDefaults(t *testing.T) {
	assert.Equal(t, "", Default().Print())
}

func TestSettings_PrintEmitsEveryNonDefaultField(t *testing.T) {
	s := Settings{PitchShift: 2, TempoScale: 1.5, Echo: true, Metal: true, Reverb: true, Loop: true}
	assert.Equal(t, "{pitch:2} {tempo:1.5} {echo} {metal} {reverb} {loop}", s.Print())
}

func TestSettings_AnyFalseForDefault(t *testing.T) {
	assert.False(t, Default().Any())
}

func TestSettings_AnyTrueForLoopAlone(t *testing.T) {
	s := Default()
	s.Loop = true
	assert.True(t, s.Any())
}
