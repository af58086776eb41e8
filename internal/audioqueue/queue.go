package audioqueue

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jukeproc/juked/internal/dsp"
	"github.com/jukeproc/juked/internal/source"
)

// State is the queue's externally observable status, one of the values
// the state-derivation table in spec section 4.2 can produce.
type State int

const (
	StateLoading State = iota
	StateEmpty
	StatePaused
	StatePlaying
	StateUnknownError
	StatePlayerError
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "LOADING"
	case StateEmpty:
		return "EMPTY"
	case StatePaused:
		return "PAUSED"
	case StatePlaying:
		return "PLAYING"
	case StatePlayerError:
		return "PLAYER_ERROR"
	default:
		return "UNKNOWN_ERROR"
	}
}

// playerState mirrors the coarse playback states spec section 4.2's
// derivation table distinguishes.
type playerState int

const (
	playerIdle playerState = iota
	playerPlaying
	playerPaused
	playerError
)

// deriveState implements the pure function from the table in spec
// section 4.2: state = f(player_state, queue_nonempty, current_live).
func deriveState(p playerState, queueNonEmpty, currentLive bool) State {
	switch {
	case p == playerError:
		return StatePlayerError
	case currentLive && p == playerPlaying:
		return StatePlaying
	case currentLive && p == playerPaused:
		return StatePaused
	case !queueNonEmpty && !currentLive && (p == playerIdle):
		return StateEmpty
	case currentLive:
		return StateLoading
	case queueNonEmpty:
		return StateLoading
	default:
		return StateUnknownError
	}
}

// QuietHoursFunc reports whether quiet hours are in effect right now; the
// queue calls it on every playback poll tick.
type QuietHoursFunc func(time.Time) bool

// VolumeConfig carries the absolute-volume conversion and clamp from spec
// section 4.2: "logical percent × absolute_100_percent_ratio -> integer
// absolute; rejected if outside [0, max_absolute*100]."
type VolumeConfig struct {
	HundredPercentRatio float64
	MaxAbsolutePercent  float64
}

// Config bundles everything Queue needs beyond the elements it's handed.
type Config struct {
	FFmpegPath      string
	SampleRate      int
	RefreshPeriod   time.Duration
	QuietHours      QuietHoursFunc
	Volume          VolumeConfig
	Debug           bool
}

// Queue is the audio queue engine from spec section 4.2: two FIFOs, a
// current element, two player lanes sharing one volume, and the main/SFX
// playback loops.
type Queue struct {
	cfg    Config
	player *Player

	mainQueue *fifo
	sfxQueue  *fifo

	current atomic.Pointer[Element]
	paused  atomic.Bool
	lastErr atomic.Pointer[string]

	idCounter atomic.Int64
	volumePct atomic.Value // float64

	ctx    context.Context
	cancel context.CancelFunc

	wg      sync.WaitGroup
	doneCh  chan struct{}
	doneSet atomic.Bool
}

// NewQueue constructs a queue and starts its main and SFX playback loops.
func NewQueue(cfg Config, player *Player) *Queue {
	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{cfg: cfg, player: player, mainQueue: newFifo(), sfxQueue: newFifo(), ctx: ctx, cancel: cancel, doneCh: make(chan struct{})}
	q.volumePct.Store(100.0)

	q.wg.Add(2)
	go func() { defer q.wg.Done(); q.mainLoop() }()
	go func() { defer q.wg.Done(); q.sfxLoop() }()
	go func() {
		q.wg.Wait()
		if q.doneSet.CompareAndSwap(false, true) {
			close(q.doneCh)
		}
	}()
	return q
}

// Close cancels both playback loops' context; Done reports when they've
// actually returned.
func (q *Queue) Close() {
	q.cancel()
}

// Done is closed once both the main and SFX loop goroutines have
// returned — the signal a caller waits on to know the queue has fully
// drained after Close, rather than assuming a fixed grace window was
// long enough.
func (q *Queue) Done() <-chan struct{} {
	return q.doneCh
}

func (q *Queue) debugLog(format string, args ...any) {
	if q.cfg.Debug {
		log.Printf("[QUEUE] "+format, args...)
	}
}

// Add enqueues a ready element and spawns its download task, per the
// `add` operation in spec section 4.2. makeCallback (if non-nil) is
// invoked with the freshly assigned id to build the element's status
// callback — indirected through a factory rather than handed a plain
// StatusCallback so callers can bind the id into their callback without
// racing the download goroutine, which may report "Downloading" before
// Add returns.
func (q *Queue) Add(res *source.Resource, src source.Source, settings dsp.Settings, makeCallback func(id int64) StatusCallback) *Element {
	id := q.idCounter.Add(1)
	var cb StatusCallback
	if makeCallback != nil {
		cb = makeCallback(id)
	}
	e := newElement(id, res, src, settings, cb)
	go e.startDownload(q.ctx, q.cfg.FFmpegPath, q.cfg.SampleRate)
	q.mainQueue.push(e)
	q.debugLog("added element %d", id)
	return e
}

// Skip skips the current element. Returns false if nothing is current.
func (q *Queue) Skip(user string) bool {
	cur := q.current.Load()
	if cur == nil {
		return false
	}
	return cur.skip(user)
}

// SkipSpecific skips the element matching id: current if it matches,
// else whichever queued element matches.
func (q *Queue) SkipSpecific(user string, id int64) bool {
	if cur := q.current.Load(); cur != nil && cur.ID == id {
		return cur.skip(user)
	}
	for _, e := range q.mainQueue.snapshot() {
		if e.ID == id {
			return e.skip(user)
		}
	}
	return false
}

// SkipAll skips every unskipped element including current. It captures
// current once, at entry, and walks the queue snapshot in reverse — so
// that "skip every element that exists right now" is well-defined even
// as other goroutines push to the queue concurrently, and so concurrent
// skips don't race on front-of-queue bookkeeping (spec section 4.2).
func (q *Queue) SkipAll(user string) int {
	cur := q.current.Load()
	items := q.mainQueue.snapshot()

	count := 0
	for i := len(items) - 1; i >= 0; i-- {
		if items[i].skip(user) {
			count++
		}
	}
	if cur != nil && cur.skip(user) {
		count++
	}
	return count
}

// Pause/Resume toggle the main lane only, per spec section 4.2.
func (q *Queue) Pause() {
	q.paused.Store(true)
	q.player.PauseMain()
}

func (q *Queue) Resume() {
	q.paused.Store(false)
	q.player.ResumeMain()
}

// SetVolume converts a logical percent into an absolute value and applies
// it to both lanes, rejecting values outside [0, max_absolute*100].
func (q *Queue) SetVolume(percent float64) error {
	absolute := percent * q.cfg.Volume.HundredPercentRatio / 100
	maxAbsolute := q.cfg.Volume.MaxAbsolutePercent / 100
	if absolute < 0 || absolute > maxAbsolute {
		return fmt.Errorf("volume %.1f%% out of range [0, %.1f%%]", percent, q.cfg.Volume.MaxAbsolutePercent)
	}
	q.volumePct.Store(percent)
	q.player.SetVolume(absolute)
	return nil
}

// SetVolumeClamped is the forgiving variant: out-of-range requests are
// clamped into range rather than rejected, for callers that never want an
// error. Nothing in this module calls it.
func (q *Queue) SetVolumeClamped(percent float64) {
	if percent < 0 {
		percent = 0
	}
	if percent > q.cfg.Volume.MaxAbsolutePercent {
		percent = q.cfg.Volume.MaxAbsolutePercent
	}
	_ = q.SetVolume(percent)
}

// GetVolume returns the last successfully applied logical percent.
func (q *Queue) GetVolume() float64 {
	return q.volumePct.Load().(float64)
}

// EnqueueSFX downloads name immediately (it's always a local file) and
// appends it to the SFX lane.
func (q *Queue) EnqueueSFX(src source.Source, makeCallback func(id int64) StatusCallback) (*Element, error) {
	id := q.idCounter.Add(1)
	var cb StatusCallback
	if makeCallback != nil {
		cb = makeCallback(id)
	}
	e := newElement(id, nil, src, dsp.Default(), cb)
	path, err := src.Download(q.ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sfx download: %w", err)
	}
	e.pathCh <- path
	close(e.done)
	q.sfxQueue.push(e)
	return e, nil
}

// State reports the queue's current externally observable state.
func (q *Queue) State() State {
	cur := q.current.Load()
	currentLive := cur != nil && !cur.Skipped()

	ps := playerIdle
	switch {
	case q.lastErr.Load() != nil:
		ps = playerError
	case q.paused.Load() && currentLive:
		ps = playerPaused
	case currentLive && q.player.MainPlaying():
		ps = playerPlaying
	}

	return deriveState(ps, q.mainQueue.nonEmpty(), currentLive)
}

// CurrentID returns the id of the element the main lane is on, or 0 if
// none.
func (q *Queue) CurrentID() (int64, bool) {
	cur := q.current.Load()
	if cur == nil {
		return 0, false
	}
	return cur.ID, true
}
