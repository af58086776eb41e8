package audioqueue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jukeproc/juked/internal/dsp"
	"github.com/jukeproc/juked/internal/source"
)

// fakeSource is a minimal source.Source for tests that never touches
// ffmpeg or beep: it reports a pre-set path (or error) without writing
// any real audio file.
type fakeSource struct {
	path string
	err  error
	wait chan struct{} // if non-nil, Download blocks until closed or ctx.Done
}

func (f *fakeSource) Download(ctx context.Context, r *source.Resource) (string, error) {
	if f.wait != nil {
		select {
		case <-f.wait:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.path, f.err
}
func (f *fakeSource) Title() string            { return "fake" }
func (f *fakeSource) Duration() time.Duration  { return time.Minute }
func (f *fakeSource) Author() (string, string) { return "artist", "nobody" }
func (f *fakeSource) URL() (string, bool)      { return "", false }

func TestElement_SkipIsMonotonic(t *testing.T) {
	var statuses []string
	e := newElement(1, nil, &fakeSource{}, dsp.Default(), func(s string, skippable bool) {
		statuses = append(statuses, s)
	})

	assert.True(t, e.skip("alice"))
	assert.True(t, e.Skipped())
	assert.False(t, e.skip("bob"), "skipping an already-skipped element must be a no-op")
	assert.True(t, e.Skipped())
}

func TestElement_FinishClosesResourceExactlyOnce(t *testing.T) {
	root := t.TempDir()
	res, err := source.ClaimResource(root)
	require.NoError(t, err)

	e := newElement(1, res, &fakeSource{}, dsp.Default(), nil)
	e.finish()
	assert.True(t, res.Closed())

	e.finish() // must not panic or double-remove
	assert.True(t, res.Closed())
}

func TestElement_DownloadFailureMarksSkipped(t *testing.T) {
	e := newElement(1, nil, &fakeSource{err: errors.New("network down")}, dsp.Default(), nil)
	e.startDownload(context.Background(), "ffmpeg", 44100)

	path := <-e.pathCh
	assert.Empty(t, path)
	assert.True(t, e.Skipped())
}

func TestElement_PureTempoSkipsFFmpegAndRecordsVLCTempo(t *testing.T) {
	settings := dsp.Default()
	settings.TempoScale = 0.8
	require.False(t, settings.RequiresFFmpeg())

	e := newElement(1, nil, &fakeSource{path: "/tmp/song.mp3"}, settings, nil)
	e.startDownload(context.Background(), "ffmpeg", 44100)

	path := <-e.pathCh
	assert.Equal(t, "/tmp/song.mp3", path)
	assert.Equal(t, 0.8, e.VLCTempo())
}

func TestQueue_SkipNothingCurrentReturnsFalse(t *testing.T) {
	q := &Queue{mainQueue: newFifo(), sfxQueue: newFifo()}
	assert.False(t, q.Skip("alice"))
}

func TestQueue_SkipAllCapturesCurrentOnceAndSkipsQueued(t *testing.T) {
	q := &Queue{mainQueue: newFifo(), sfxQueue: newFifo()}

	current := newElement(1, nil, &fakeSource{}, dsp.Default(), nil)
	q.current.Store(current)

	queued1 := newElement(2, nil, &fakeSource{}, dsp.Default(), nil)
	queued2 := newElement(3, nil, &fakeSource{}, dsp.Default(), nil)
	q.mainQueue.push(queued1)
	q.mainQueue.push(queued2)

	n := q.SkipAll("mod")
	assert.Equal(t, 3, n)
	assert.True(t, current.Skipped())
	assert.True(t, queued1.Skipped())
	assert.True(t, queued2.Skipped())
}

func TestQueue_SetVolumeRejectsOutOfRange(t *testing.T) {
	q := &Queue{
		mainQueue: newFifo(), sfxQueue: newFifo(),
		cfg: Config{Volume: VolumeConfig{HundredPercentRatio: 1.0, MaxAbsolutePercent: 200}},
		player: mustTestPlayer(t),
	}
	require.NoError(t, q.SetVolume(50))
	assert.Error(t, q.SetVolume(-1))
	assert.Error(t, q.SetVolume(500))
}

func TestQueue_SetVolumeClampedNeverErrors(t *testing.T) {
	q := &Queue{
		mainQueue: newFifo(), sfxQueue: newFifo(),
		cfg: Config{Volume: VolumeConfig{HundredPercentRatio: 1.0, MaxAbsolutePercent: 200}},
		player: mustTestPlayer(t),
	}
	q.SetVolumeClamped(-50)
	assert.Equal(t, 0.0, q.GetVolume())
	q.SetVolumeClamped(9000)
	assert.Equal(t, 200.0, q.GetVolume())
}

func TestDeriveState(t *testing.T) {
	cases := []struct {
		name          string
		player        playerState
		queueNonEmpty bool
		currentLive   bool
		want          State
	}{
		{"playing with live current", playerPlaying, false, true, StatePlaying},
		{"paused with live current", playerPaused, true, true, StatePaused},
		{"idle empty queue no current", playerIdle, false, false, StateEmpty},
		{"error always wins", playerError, true, true, StatePlayerError},
		{"idle but queue nonempty is loading", playerIdle, true, false, StateLoading},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, deriveState(tc.player, tc.queueNonEmpty, tc.currentLive))
		})
	}
}

func mustTestPlayer(t *testing.T) *Player {
	t.Helper()
	// A Player with no initialized speaker still supports SetVolume,
	// since it only touches the lane structs built in NewPlayer. No test
	// in this file calls NewPlayer, which needs speaker.Init.
	return &Player{main: newLane(), sfx: newLane()}
}
