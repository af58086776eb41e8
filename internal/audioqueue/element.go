package audioqueue

import (
	"context"
	"fmt"
	"log"
	"os/exec"
	"sync/atomic"

	"github.com/jukeproc/juked/internal/dsp"
	"github.com/jukeproc/juked/internal/source"
)

// StatusCallback is invoked on every state change of an element, per the
// status_callback field in spec section 3. skippable reports whether a
// "skip" issued right now would have any effect.
type StatusCallback func(status string, skippable bool)

// Element is the unit of work described in spec section 3: a queue
// element progressing CREATED -> QUEUED -> DOWNLOADING -> (PROCESSING?)
// -> READY -> PLAYING -> FINISHED, or SKIPPED at any point before
// FINISHED.
type Element struct {
	ID       int64
	Resource *source.Resource // nil for SFX elements
	Src      source.Source
	DSP      dsp.Settings

	statusCb StatusCallback

	pathCh chan string // buffered 1; "" means cancelled

	active  atomic.Bool
	skipped atomic.Bool
	freed   atomic.Bool

	cancel context.CancelFunc
	done   chan struct{} // closed when the download task returns

	vlcTempo atomic.Value // float64, defaults to 1
}

func newElement(id int64, res *source.Resource, src source.Source, settings dsp.Settings, cb StatusCallback) *Element {
	e := &Element{
		ID:       id,
		Resource: res,
		Src:      src,
		DSP:      settings,
		statusCb: cb,
		pathCh:   make(chan string, 1),
		done:     make(chan struct{}),
	}
	e.vlcTempo.Store(1.0)
	return e
}

func (e *Element) status(s string, skippable bool) {
	if e.statusCb != nil {
		e.statusCb(s, skippable)
	}
}

// VLCTempo returns the fallback playback rate the downloader recorded
// when the transform didn't require an ffmpeg pass (pure positive-speed
// changes — see dsp.Settings.RequiresFFmpeg).
func (e *Element) VLCTempo() float64 {
	return e.vlcTempo.Load().(float64)
}

// Active reports whether this element is currently feeding its lane.
func (e *Element) Active() bool { return e.active.Load() }

// Skipped reports the monotonic poison flag.
func (e *Element) Skipped() bool { return e.skipped.Load() }

// skip implements the skip protocol from spec section 4.2: returns false
// if the element is already skipped or its resource already freed.
func (e *Element) skip(user string) bool {
	if e.skipped.Load() || e.freed.Load() {
		return false
	}
	e.skipped.Store(true)
	e.active.Store(false)

	if e.cancel != nil {
		e.cancel()
	}
	e.closeResource()
	e.status(fmt.Sprintf("Skipped by %s", user), false)
	return true
}

// closeResource closes the resource exactly once, satisfying the
// "FINISHED or SKIPPED element must have its resource closed exactly
// once" invariant.
func (e *Element) closeResource() {
	if !e.freed.CompareAndSwap(false, true) {
		return
	}
	if e.Resource != nil {
		if err := e.Resource.Close(); err != nil {
			log.Printf("[QUEUE] close resource %d: %v", e.Resource.ID(), err)
		}
	}
}

// finish marks the element FINISHED: resource closed exactly once, no
// further lifecycle transitions possible.
func (e *Element) finish() {
	e.active.Store(false)
	e.closeResource()
	e.status("Finished", false)
}

// startDownload runs the per-element download task described in spec
// section 4.2: downloads via the source, optionally runs the ffmpeg
// filter chain, then resolves the path promise. Must be launched on its
// own goroutine — "must run on a worker thread, never on the scheduling
// thread."
func (e *Element) startDownload(ctx context.Context, ffmpegPath string, sampleRate int) {
	ctx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	defer close(e.done)

	e.status("Downloading", false)
	path, err := e.Src.Download(ctx, e.Resource)
	if err != nil {
		if e.skipped.Load() {
			e.pathCh <- ""
			return
		}
		log.Printf("[QUEUE] element %d download failed: %v", e.ID, err)
		e.skipped.Store(true)
		e.closeResource()
		e.status(fmt.Sprintf("Download failed: %v", err), false)
		e.pathCh <- ""
		return
	}

	if e.skipped.Load() {
		e.pathCh <- ""
		return
	}

	if e.DSP.RequiresFFmpeg() {
		e.status("Processing", false)
		processed, err := runFilterChain(ctx, ffmpegPath, path, e.Resource, sampleRate, e.DSP)
		if err != nil {
			if e.skipped.Load() {
				e.pathCh <- ""
				return
			}
			log.Printf("[QUEUE] element %d filter chain failed: %v", e.ID, err)
			e.skipped.Store(true)
			e.closeResource()
			e.status(fmt.Sprintf("Processing failed: %v", err), false)
			e.pathCh <- ""
			return
		}
		path = processed
	} else {
		e.vlcTempo.Store(absFloat(e.DSP.TempoScale))
	}

	if e.skipped.Load() {
		e.pathCh <- ""
		return
	}

	e.status("Queued", true)
	e.pathCh <- path
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// runFilterChain invokes ffmpeg with the args dsp.FFmpegArgs computes,
// writing to <resource>/processed.<ext> and returning that path.
func runFilterChain(ctx context.Context, ffmpegPath, srcPath string, res *source.Resource, sampleRate int, s dsp.Settings) (string, error) {
	outPath := res.Path("processed.wav")
	args := dsp.FFmpegArgs(srcPath, outPath, sampleRate, s)

	cmd := exec.CommandContext(ctx, ffmpegPath, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("ffmpeg: %w: %s", err, string(out))
	}
	return outPath, nil
}
