package audioqueue

import (
	"time"
)

// mainLoop is the pseudocode from spec section 4.2, started once at
// construction and running for the life of the queue.
func (q *Queue) mainLoop() {
	for {
		element, ok := q.mainQueue.dequeue(q.ctx)
		if !ok {
			return // queue closed
		}
		if element.Skipped() {
			continue
		}

		q.current.Store(element)

		path, ok := <-element.pathCh
		if !ok || path == "" {
			q.current.Store(nil)
			continue
		}

		if q.quietHours() {
			q.SkipAll("quiet hours")
			q.current.Store(nil)
			continue
		}

		q.playMainElement(element, path)
		q.current.Store(nil)
	}
}

// playMainElement runs one element through the main lane, looping it
// while element.DSP.Loop is set, until it ends, is skipped, or quiet
// hours begin.
func (q *Queue) playMainElement(element *Element, path string) {
	for {
		done, err := q.player.PlayMain(path, element.VLCTempo())
		if err != nil {
			q.lastErr.Store(strPtr(err.Error()))
			element.finish()
			return
		}

		element.status("Playing", true)
		element.active.Store(true)

		ticker := time.NewTicker(q.cfg.RefreshPeriod)
	poll:
		for {
			select {
			case <-done:
				break poll
			case <-q.ctx.Done():
				ticker.Stop()
				return
			case <-ticker.C:
				if element.Skipped() || q.quietHours() {
					break poll
				}
			}
		}
		ticker.Stop()

		quiet := q.quietHours()
		if quiet {
			q.SkipAll("quiet hours")
		}
		if q.player.MainPlaying() {
			q.player.StopMain()
		}

		if !element.DSP.Loop || element.Skipped() || quiet {
			break
		}
	}
	element.finish()
}

// sfxLoop is identical in structure to mainLoop but uses sfx_queue +
// sfx_player: it never calls SkipAll, and on quiet hours it simply drops
// the element instead of playing it.
func (q *Queue) sfxLoop() {
	for {
		element, ok := q.sfxQueue.dequeue(q.ctx)
		if !ok {
			return
		}
		if element.Skipped() {
			continue
		}

		path, ok := <-element.pathCh
		if !ok || path == "" {
			continue
		}

		if q.quietHours() {
			element.status("Dropped (quiet hours)", false)
			element.finish()
			continue
		}

		if err := q.player.PlaySFX(path); err != nil {
			q.lastErr.Store(strPtr(err.Error()))
			element.finish()
			continue
		}
		element.status("Playing", false)
		element.active.Store(true)
		element.finish()
	}
}

func (q *Queue) quietHours() bool {
	if q.cfg.QuietHours == nil {
		return false
	}
	return q.cfg.QuietHours(time.Now())
}

func strPtr(s string) *string { return &s }
