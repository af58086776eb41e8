// Package audioqueue implements the queue engine from spec section 4.2:
// element lifecycle, the main/SFX playback loops, skip protocol, and the
// two-lane player sharing one physical output and one volume control.
// Grounded in the teacher's internal/audio.Player (beep/speaker wiring,
// volume curve, debug-log convention).
package audioqueue

import (
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/mp3"
	"github.com/gopxl/beep/speaker"
)

var (
	speakerOnce sync.Once
	speakerErr  error
)

// lane is one of the two independent playback chains (main, sfx) that
// share a single physical output via one beep.Mixer.
type lane struct {
	ctrl   *beep.Ctrl
	volume *effects.Volume
}

func newLane() *lane {
	ctrl := &beep.Ctrl{Paused: false}
	vol := &effects.Volume{Streamer: ctrl, Base: 2}
	return &lane{ctrl: ctrl, volume: vol}
}

func (l *lane) setVolume(v float64) {
	if v <= 0 {
		l.volume.Silent = true
		return
	}
	l.volume.Silent = false
	l.volume.Volume = (v - 1) * 5
}

func (l *lane) attach(streamer beep.Streamer) {
	l.ctrl.Streamer = streamer
	l.ctrl.Paused = false
}

// Player owns the two playback lanes described in spec section 3:
// main_player and sfx_player, independent output handles sharing one
// volume control.
type Player struct {
	mu         sync.Mutex
	sampleRate beep.SampleRate
	main       *lane
	sfx        *lane
	debug      bool

	mainActive atomic.Bool
}

// NewPlayer initializes the shared speaker (once per process) at
// sampleRate and wires both lanes into a single beep.Mixer fed to it.
func NewPlayer(sampleRate int, debug bool) (*Player, error) {
	sr := beep.SampleRate(sampleRate)
	speakerOnce.Do(func() {
		speakerErr = speaker.Init(sr, sr.N(200*time.Millisecond))
	})
	if speakerErr != nil {
		return nil, fmt.Errorf("init speaker: %w", speakerErr)
	}

	p := &Player{sampleRate: sr, main: newLane(), sfx: newLane(), debug: debug}
	mixer := beep.Mixer{}
	mixer.Add(p.main.volume, p.sfx.volume)
	speaker.Play(&mixer)

	p.debugLog("player initialized, sample rate %d", sampleRate)
	return p, nil
}

func (p *Player) debugLog(format string, args ...any) {
	if p.debug {
		log.Printf("[AUDIO] "+format, args...)
	}
}

// PlayMain attaches path to the main lane at the given playback rate
// (vlc_settings.tempo_scale's fallback path, applied via beep.Resample
// when no ffmpeg pass already baked the tempo in). The returned channel
// closes when the clip drains naturally — the playback loop's
// "main_player.state in {ENDED, STOPPED}" check.
func (p *Player) PlayMain(path string, rate float64) (<-chan struct{}, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	streamer, _, err := decodeMP3(path)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	var s beep.Streamer = streamer
	if rate != 1 {
		s = beep.ResampleRatio(4, rate, streamer)
	}

	done := make(chan struct{})
	sequenced := beep.Seq(s, beep.Callback(func() {
		p.mainActive.Store(false)
		close(done)
	}))

	p.mainActive.Store(true)
	speaker.Lock()
	p.main.attach(sequenced)
	speaker.Unlock()
	p.debugLog("main lane playing %s at rate %.3f", path, rate)
	return done, nil
}

// PlaySFX attaches path to the SFX lane. The SFX lane never blocks on, and
// is never blocked by, the main lane.
func (p *Player) PlaySFX(path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	streamer, _, err := decodeMP3(path)
	if err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	speaker.Lock()
	p.sfx.attach(streamer)
	speaker.Unlock()
	p.debugLog("sfx lane playing %s", path)
	return nil
}

// MainPlaying reports whether the main lane's current clip hasn't
// finished yet.
func (p *Player) MainPlaying() bool {
	return p.mainActive.Load()
}

// StopMain detaches whatever the main lane is playing.
func (p *Player) StopMain() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mainActive.Store(false)
	speaker.Lock()
	p.main.ctrl.Streamer = nil
	speaker.Unlock()
}

// PauseMain/ResumeMain toggle the main lane's beep.Ctrl without touching
// the SFX lane.
func (p *Player) PauseMain() {
	speaker.Lock()
	p.main.ctrl.Paused = true
	speaker.Unlock()
}

func (p *Player) ResumeMain() {
	speaker.Lock()
	p.main.ctrl.Paused = false
	speaker.Unlock()
}

// SetVolume applies to both lanes at once — volume is the only
// cross-lane shared tunable, per spec section 5.
func (p *Player) SetVolume(v float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	speaker.Lock()
	p.main.setVolume(v)
	p.sfx.setVolume(v)
	speaker.Unlock()
}

func decodeMP3(path string) (beep.StreamSeekCloser, beep.Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, beep.Format{}, err
	}
	return mp3.Decode(f)
}
