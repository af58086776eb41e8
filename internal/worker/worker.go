// Package worker implements the worker-side half of spec sections 4.2,
// 6, and 7: the command-surface dispatch table (wiring internal/parser,
// internal/audioqueue, and internal/selector together) and the scheduler
// lifecycle that reports upward over internal/ipc. Rendering chat
// messages, resolving a chat user's role into a selector.Principal, and
// routing raw chat updates into a command name are the collaborator's
// job (spec.md's "command dispatch glue"/"help-text rendering"
// non-goals) — this package only decides, for an already-parsed command,
// what the audio queue should do and what text should go back.
package worker

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/jukeproc/juked/internal/audioqueue"
	"github.com/jukeproc/juked/internal/ipc"
	"github.com/jukeproc/juked/internal/retry"
	"github.com/jukeproc/juked/internal/search"
	"github.com/jukeproc/juked/internal/settings"
	"github.com/jukeproc/juked/internal/source"
)

// ChatTransport is the out-of-scope chat-SDK collaborator a Worker reports
// element status changes through. Rendering, formatting, and delivery are
// entirely its concern.
type ChatTransport interface {
	StatusUpdate(elementID int64, status string, skippable bool)
}

// Config bundles everything a Worker needs beyond the queue it drives.
type Config struct {
	FFmpegPath   string
	SfxDir       string
	ResourceRoot string
	Debug        bool
	// RetryPolicy wraps the resolver.Resolve call made while resolving a
	// search/URL source; the later Stream call made by the download task
	// is not wrapped. OnFloodControl is overwritten
	// with the worker's own upward-reporting hook regardless of what's
	// set here; Limiter and the retry ceilings are the caller's to tune.
	RetryPolicy retry.Policy
}

// Worker owns the audio queue, the persistent settings store, the
// upward IPC channel, and the SFX directory index; Dispatch is its single
// entry point for a parsed chat command.
type Worker struct {
	cfg        Config
	queue      *audioqueue.Queue
	store      *settings.Store
	resolver   source.Resolver
	channel    *ipc.Channel
	httpClient *retryablehttp.Client

	sfxEntries []search.Entry
}

// New constructs a Worker. channel may be nil for tests that never need
// upward events (e.g. unit tests of Dispatch alone). httpClient is shared
// with the rest of the process's outbound traffic, per the teacher's
// single-client convention; it may be nil if uploaded-blob sources are
// never exercised.
func New(cfg Config, queue *audioqueue.Queue, store *settings.Store, resolver source.Resolver, channel *ipc.Channel, httpClient *retryablehttp.Client) *Worker {
	w := &Worker{
		cfg:        cfg,
		queue:      queue,
		store:      store,
		resolver:   resolver,
		channel:    channel,
		httpClient: httpClient,
	}
	w.reindexSFX()
	return w
}

func (w *Worker) debugLog(format string, args ...any) {
	if w.cfg.Debug {
		log.Printf("[WORKER] "+format, args...)
	}
}

// reindexSFX lists cfg.SfxDir and builds the fuzzy-match corpus "hampter"
// and future canned-SFX lookups search against. A missing/unreadable
// directory just yields an empty corpus.
func (w *Worker) reindexSFX() {
	if w.cfg.SfxDir == "" {
		return
	}
	entries, err := os.ReadDir(w.cfg.SfxDir)
	if err != nil {
		w.debugLog("reindex sfx dir %s: %v", w.cfg.SfxDir, err)
		return
	}
	w.sfxEntries = w.sfxEntries[:0]
	for _, ent := range entries {
		if ent.IsDir() {
			continue
		}
		name := strings.TrimSuffix(ent.Name(), filepath.Ext(ent.Name()))
		w.sfxEntries = append(w.sfxEntries, search.Entry{Name: name, Path: filepath.Join(w.cfg.SfxDir, ent.Name())})
	}
}

// Run is the worker's scheduler lifecycle (spec section 7's "worker
// scheduler" row): it blocks listening for a downward ShutDown over the
// IPC channel (if one is wired) or for ctx cancellation, then tears the
// queue down and reports the correct upward terminal event. A forced
// ShutDown reports no upward event and returns an error, so the cmd layer
// exits non-zero. A panic recovered here is reported as ExceptionShutdown
// rather than crashing the process silently.
func (w *Worker) Run(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			w.reportUp(ipc.ExceptionShutdown{Err: fmt.Sprintf("%v", r)})
			err = fmt.Errorf("worker scheduler panic: %v", r)
		}
	}()

	downward := make(chan ipc.Message)
	if w.channel != nil {
		go func() {
			for {
				msg, recvErr := w.channel.Recv()
				if recvErr != nil {
					close(downward)
					return
				}
				downward <- msg
			}
		}()
	}

	for {
		select {
		case <-ctx.Done():
			if !w.shutdown(false) {
				w.reportUp(ipc.ThreadingFailedShutdown{})
				return fmt.Errorf("worker threads did not terminate within grace window")
			}
			w.reportUp(ipc.CleanShutdown{})
			return nil

		case msg, ok := <-downward:
			if !ok {
				return nil
			}
			sd, isShutdown := msg.(*ipc.ShutDown)
			if !isShutdown {
				w.debugLog("unexpected downward message %T", msg)
				continue
			}
			if sd.Force {
				w.shutdown(true)
				return fmt.Errorf("forced shutdown requested by supervisor")
			}
			if !w.shutdown(sd.Force) {
				w.reportUp(ipc.ThreadingFailedShutdown{})
				return fmt.Errorf("worker threads did not terminate within grace window")
			}
			w.reportUp(ipc.CleanShutdown{})
			return nil
		}
	}
}

// shutdownGrace bounds how long shutdown waits for the queue's loop
// goroutines to actually return before reporting ThreadingFailedShutdown.
const shutdownGrace = 5 * time.Second

// shutdown closes the queue and waits for its loop goroutines to return,
// reporting false if they don't settle within shutdownGrace. force=true
// skips the wait, matching spec section 6's "non-zero on fatal force=1
// shutdown" exit-code contract at the cmd layer.
func (w *Worker) shutdown(force bool) bool {
	w.queue.Close()
	if force {
		return true
	}
	select {
	case <-w.queue.Done():
		return true
	case <-time.After(shutdownGrace):
		return false
	}
}

func (w *Worker) reportUp(msg ipc.Message) {
	if w.channel == nil {
		return
	}
	if err := w.channel.Send(msg); err != nil {
		w.debugLog("send upward %T: %v", msg, err)
	}
}

// emitFloodControl is passed as a retry.Policy.OnFloodControl hook by
// callers wrapping outbound calls (e.g. the media-fetcher collaborator)
// so a throttle observed deep in a retry loop still reaches the
// supervisor as spec section 4.4 requires.
func (w *Worker) emitFloodControl(delay time.Duration) {
	w.reportUp(ipc.FloodControlIssues{DelaySeconds: delay.Seconds()})
}

// parseIntArg is a small helper shared by volume-style commands that take
// an optional single integer argument.
func parseIntArg(args []string) (int, bool, error) {
	if len(args) == 0 {
		return 0, false, nil
	}
	v, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, false, fmt.Errorf("%q is not a whole number", args[0])
	}
	return v, true, nil
}
