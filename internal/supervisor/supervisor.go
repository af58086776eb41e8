// Package supervisor implements the privileged controller process from
// spec section 4.3: it spawns and monitors the worker, dispatches its
// upward events, and owns the pinned flood-control notice bookkeeping.
// Process spawn/signal conventions grounded in the teacher's
// cmd/desktop.setupGracefulShutdown; outbound notice posting is kept
// behind the ChatPoster collaborator (chat transport SDK is out of
// scope).
package supervisor

import (
	"context"
	"fmt"
	"log"
	"os/exec"
	"sync"
	"time"

	"github.com/jukeproc/juked/internal/ipc"
	"github.com/jukeproc/juked/internal/metrics"
	"github.com/jukeproc/juked/pkg/chatmsg"
)

// ChatPoster is the out-of-scope chat-transport collaborator the
// supervisor posts notices through.
type ChatPoster interface {
	Post(notice chatmsg.Notice) (messageID string, err error)
	Unpin(messageID string) error
	Delete(messageID string) error
	// ListPinned returns every currently pinned message id in the
	// controlled chat, used at startup to re-establish the pinned-notice
	// invariant.
	ListPinned() ([]string, error)
}

type pinnedNotice struct {
	messageID string
	clearAt   time.Time
}

// Supervisor owns the worker's process handle, the IPC channel, the
// listener goroutine, and the pinned flood-control notice — the
// "supervisor run data" from spec section 3.
type Supervisor struct {
	workerPath string
	workerArgs []string
	chat       ChatPoster
	metrics    *metrics.Metrics
	debug      bool

	mu      sync.Mutex
	cmd     *exec.Cmd
	channel *ipc.Channel
	pinned  *pinnedNotice
}

// New constructs a Supervisor for the given worker binary.
func New(workerPath string, workerArgs []string, chat ChatPoster, m *metrics.Metrics, debug bool) *Supervisor {
	return &Supervisor{workerPath: workerPath, workerArgs: workerArgs, chat: chat, metrics: m, debug: debug}
}

func (s *Supervisor) debugLog(format string, args ...any) {
	if s.debug {
		log.Printf("[SUPERVISOR] "+format, args...)
	}
}

// Start unpins any stale pinned messages (re-establishing the invariant
// from spec section 4.3), spawns the worker as a child process wired to
// one end of the IPC pipe, and starts the listener goroutine. The child
// is not detached: it is started with exec.CommandContext and is killed
// when ctx is cancelled.
func (s *Supervisor) Start(ctx context.Context) error {
	if err := s.clearStalePinned(); err != nil {
		s.debugLog("clear stale pinned notices: %v", err)
	}

	if err := s.spawnWorker(ctx); err != nil {
		return err
	}

	go s.listen(ctx)
	go s.pinnedNoticeJanitor(ctx)
	return nil
}

func (s *Supervisor) clearStalePinned() error {
	ids, err := s.chat.ListPinned()
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := s.chat.Unpin(id); err != nil {
			s.debugLog("unpin %s: %v", id, err)
		}
		if err := s.chat.Delete(id); err != nil {
			s.debugLog("delete %s: %v", id, err)
		}
	}
	return nil
}

func (s *Supervisor) spawnWorker(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cmd := exec.CommandContext(ctx, s.workerPath, s.workerArgs...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("worker stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("worker stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start worker: %w", err)
	}

	s.cmd = cmd
	s.channel = ipc.NewChannel(stdout, stdin)
	if s.metrics != nil {
		s.metrics.WorkerRestarts.Inc()
		s.metrics.WorkerUp.Set(1)
	}
	s.debugLog("worker spawned, session %s", s.channel.SessionID)
	return nil
}

// Shutdown sends a ShutDown command to the worker.
func (s *Supervisor) Shutdown(force bool) error {
	s.mu.Lock()
	ch := s.channel
	s.mu.Unlock()
	if ch == nil {
		return fmt.Errorf("worker not running")
	}
	return ch.Send(ipc.ShutDown{Force: force})
}

// listen receives upward events in arrival order and dispatches them per
// the table in spec section 4.3.
func (s *Supervisor) listen(ctx context.Context) {
	for {
		s.mu.Lock()
		ch := s.channel
		s.mu.Unlock()
		if ch == nil {
			return
		}

		msg, err := ch.Recv()
		if err != nil {
			s.debugLog("listener: channel closed: %v", err)
			if s.metrics != nil {
				s.metrics.WorkerUp.Set(0)
			}
			return
		}

		select {
		case <-ctx.Done():
			return
		default:
		}

		s.dispatch(msg)
	}
}

func (s *Supervisor) dispatch(msg ipc.Message) {
	switch m := msg.(type) {
	case *ipc.CleanShutdown:
		s.post(chatmsg.Notice{Text: "worker shut down cleanly"})

	case *ipc.ExceptionShutdown:
		s.post(chatmsg.Notice{Text: fmt.Sprintf("worker crashed: %s", m.Err)})
		log.Printf("[SUPERVISOR] worker exception: %s", m.Err)

	case *ipc.FloodControlIssues:
		if s.metrics != nil {
			s.metrics.FloodControlEvents.Inc()
		}
		s.handleFloodControl(time.Duration(m.DelaySeconds * float64(time.Second)))

	case *ipc.ThreadingFailedShutdown:
		s.post(chatmsg.Notice{Text: "worker's background threads did not terminate; recommend force shutdown"})

	default:
		s.debugLog("unhandled upward message %T", msg)
	}
}

// handleFloodControl implements the pinned-notice invariant: at most one
// flood-control notice is pinned; a new one is posted+pinned only if none
// exists yet, else the scheduled clear time is extended to
// max(existing, now+d).
func (s *Supervisor) handleFloodControl(delay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	clearAt := time.Now().Add(delay)

	if s.pinned == nil {
		id, err := s.chat.Post(chatmsg.Notice{Text: "requests are being throttled", Pinned: true})
		if err != nil {
			s.debugLog("post flood-control notice: %v", err)
			return
		}
		s.pinned = &pinnedNotice{messageID: id, clearAt: clearAt}
		return
	}

	if clearAt.After(s.pinned.clearAt) {
		s.pinned.clearAt = clearAt
	}
}

func (s *Supervisor) post(n chatmsg.Notice) {
	if _, err := s.chat.Post(n); err != nil {
		s.debugLog("post notice: %v", err)
	}
}

// pinnedNoticeJanitor auto-unpins and deletes the pinned flood-control
// notice once now >= scheduled_clear_time.
func (s *Supervisor) pinnedNoticeJanitor(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			p := s.pinned
			if p != nil && !time.Now().Before(p.clearAt) {
				s.pinned = nil
			}
			s.mu.Unlock()

			if p != nil && !time.Now().Before(p.clearAt) {
				if err := s.chat.Unpin(p.messageID); err != nil {
					s.debugLog("unpin expired notice: %v", err)
				}
				if err := s.chat.Delete(p.messageID); err != nil {
					s.debugLog("delete expired notice: %v", err)
				}
			}
		}
	}
}
