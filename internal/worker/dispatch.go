package worker

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jukeproc/juked/internal/audioqueue"
	"github.com/jukeproc/juked/internal/parser"
	"github.com/jukeproc/juked/internal/retry"
	"github.com/jukeproc/juked/internal/search"
	"github.com/jukeproc/juked/internal/selector"
	"github.com/jukeproc/juked/internal/source"
)

// Invocation is one chat command already reduced to its command word and
// argument tokens by the (out-of-scope) command-dispatch glue; Dispatch
// is the first point in this module that cares what it means.
type Invocation struct {
	Principal selector.Principal
	Args      []string
	HasBlob   bool
	BlobURL   string
	BlobName  string
	Chat      ChatTransport
}

// CallbackQuery is the ("skip_button", element_id) tuple from spec
// section 6.
type CallbackQuery struct {
	ElementID int64
}

type handlerFunc func(ctx context.Context, w *Worker, inv Invocation) (string, error)

type commandDef struct {
	names   []string
	sel     selector.Selector
	handler handlerFunc
}

// commandTable is the static dispatch table from spec section 6's command
// surface. Matching the teacher's preference for small static tables over
// reflection-based routing (see internal/parser's synonym table).
var commandTable = []commandDef{
	{names: []string{"q", "queue"}, sel: selector.Anyone{}, handler: (*Worker).cmdQueueOrEnqueue},
	{names: []string{"add", "enqueue"}, sel: selector.Anyone{}, handler: (*Worker).cmdEnqueue},
	{names: []string{"queued"}, sel: selector.Anyone{}, handler: (*Worker).cmdSnapshot},
	{names: []string{"skip"}, sel: selector.Anyone{}, handler: (*Worker).cmdSkip},
	{names: []string{"skip_all", "clear", "skipall"}, sel: selector.Comptroller{}, handler: (*Worker).cmdSkipAll},
	{names: []string{"pause", "stop"}, sel: selector.Anyone{}, handler: (*Worker).cmdPause},
	{names: []string{"play", "resume", "unpause"}, sel: selector.Anyone{}, handler: (*Worker).cmdResume},
	{names: []string{"volume", "vol", "v"}, sel: selector.Anyone{}, handler: (*Worker).cmdVolume},
	{names: []string{"quiet_hours", "qh"}, sel: selector.Anyone{}, handler: (*Worker).cmdQuietHours},
	{names: []string{"hampter"}, sel: selector.Anyone{}, handler: (*Worker).cmdHampter},
	{names: []string{"help"}, sel: selector.Anyone{}, handler: (*Worker).cmdHelp},
}

func lookupCommand(name string) (*commandDef, bool) {
	name = strings.ToLower(name)
	for i := range commandTable {
		for _, n := range commandTable[i].names {
			if n == name {
				return &commandTable[i], true
			}
		}
	}
	return nil, false
}

// Dispatch resolves cmd through the command table, checks the caller's
// Principal against the matched selector, and runs the handler. The
// returned string is the reply text; callers own formatting/delivery.
func (w *Worker) Dispatch(ctx context.Context, cmd string, inv Invocation) (string, error) {
	def, ok := lookupCommand(cmd)
	if !ok {
		return "", fmt.Errorf("unknown command %q", cmd)
	}
	if !selector.Allows(def.sel, inv.Principal) {
		return "", fmt.Errorf("not authorized for %q", cmd)
	}
	return def.handler(w, ctx, inv)
}

// DispatchCallback handles a ("skip_button", element_id) callback query,
// per spec section 6.
func (w *Worker) DispatchCallback(q CallbackQuery, user string) (string, error) {
	if w.queue.SkipSpecific(user, q.ElementID) {
		return "skipped", nil
	}
	return "", fmt.Errorf("element %d is not skippable", q.ElementID)
}

func (w *Worker) cmdQueueOrEnqueue(ctx context.Context, inv Invocation) (string, error) {
	if inv.HasBlob || len(inv.Args) > 0 {
		return w.cmdEnqueue(ctx, inv)
	}
	return w.cmdSnapshot(ctx, inv)
}

// cmdEnqueue implements "parse + enqueue": internal/parser resolves the
// DSP directives and the source kind, then a concrete source.Source is
// built and handed to the queue.
func (w *Worker) cmdEnqueue(ctx context.Context, inv Invocation) (string, error) {
	req, err := parser.Parse(inv.Args, inv.HasBlob)
	if err != nil {
		return "", err
	}

	src, err := w.resolveSource(ctx, req, inv)
	if err != nil {
		return "", err
	}

	res, err := w.claimResource()
	if err != nil {
		return "", err
	}

	chat := inv.Chat
	elem := w.queue.Add(res, src, req.Settings, func(id int64) audioqueue.StatusCallback {
		return func(status string, skippable bool) {
			if chat != nil {
				chat.StatusUpdate(id, status, skippable)
			}
		}
	})

	return fmt.Sprintf("queued #%d: %s", elem.ID, src.Title()), nil
}

func (w *Worker) resolveSource(ctx context.Context, req *parser.Request, inv Invocation) (source.Source, error) {
	switch req.Kind {
	case parser.SourceUploadedBlob:
		return source.NewUploadedBlob(inv.BlobURL, inv.BlobName, w.httpClient), nil
	case parser.SourceURL, parser.SourceSearch:
		if w.resolver == nil {
			return nil, fmt.Errorf("no media source configured")
		}
		policy := w.cfg.RetryPolicy
		policy.OnFloodControl = w.emitFloodControl
		return retry.Do(ctx, policy, func(ctx context.Context) (*source.RemoteQuery, error) {
			return source.NewRemoteQuery(ctx, req.Query, w.resolver)
		})
	default:
		return nil, fmt.Errorf("unrecognised source kind")
	}
}

func (w *Worker) claimResource() (*source.Resource, error) {
	if w.cfg.ResourceRoot == "" {
		return nil, fmt.Errorf("no resource root configured")
	}
	return source.ClaimResource(w.cfg.ResourceRoot)
}

// cmdSnapshot renders the queue's state for the "render queue snapshot"
// row. Text only — layout/HTML formatting is the chat transport's job.
func (w *Worker) cmdSnapshot(ctx context.Context, inv Invocation) (string, error) {
	id, hasCurrent := w.queue.CurrentID()
	state := w.queue.State()
	if !hasCurrent {
		return fmt.Sprintf("state=%s, nothing playing", state), nil
	}
	return fmt.Sprintf("state=%s, current=#%d", state, id), nil
}

func (w *Worker) cmdSkip(ctx context.Context, inv Invocation) (string, error) {
	user := principalLabel(inv.Principal)
	if !w.queue.Skip(user) {
		return "", fmt.Errorf("nothing to skip")
	}
	return "skipped", nil
}

func (w *Worker) cmdSkipAll(ctx context.Context, inv Invocation) (string, error) {
	user := principalLabel(inv.Principal)
	n := w.queue.SkipAll(user)
	return fmt.Sprintf("skipped %d element(s)", n), nil
}

func (w *Worker) cmdPause(ctx context.Context, inv Invocation) (string, error) {
	w.queue.Pause()
	return "paused", nil
}

func (w *Worker) cmdResume(ctx context.Context, inv Invocation) (string, error) {
	w.queue.Resume()
	return "resumed", nil
}

// cmdVolume implements "get / set digital volume": zero args reads the
// current logical percent, one arg sets it.
func (w *Worker) cmdVolume(ctx context.Context, inv Invocation) (string, error) {
	v, hasArg, err := parseIntArg(inv.Args)
	if err != nil {
		return "", err
	}
	if !hasArg {
		return fmt.Sprintf("volume: %.0f%%", w.queue.GetVolume()), nil
	}
	if err := w.queue.SetVolume(float64(v)); err != nil {
		return "", err
	}
	return fmt.Sprintf("volume set to %d%%", v), nil
}

func (w *Worker) cmdQuietHours(ctx context.Context, inv Invocation) (string, error) {
	if w.store == nil {
		return "", fmt.Errorf("settings unavailable")
	}
	vals := w.store.Get()
	return fmt.Sprintf("quiet hours: weekday %.0fh-%.0fh, weekend %.0fh-%.0fh",
		vals.NormalQuietHoursStartTime, vals.QuietHoursEndTime,
		vals.WeekendQuietHoursStartTime, vals.QuietHoursEndTime), nil
}

// cmdHampter enqueues the canned "hampter" SFX, resolved by fuzzy name
// match against the SFX directory index so a renamed or re-encoded file
// (hampter.mp3 vs hampter.wav) doesn't break the command.
func (w *Worker) cmdHampter(ctx context.Context, inv Invocation) (string, error) {
	entry, ok := search.Best(w.sfxEntries, "hampter")
	if !ok {
		return "", fmt.Errorf("hampter sfx not found")
	}

	chat := inv.Chat
	elem, err := w.queue.EnqueueSFX(source.NewLocalFile(entry.Path), func(id int64) audioqueue.StatusCallback {
		return func(status string, skippable bool) {
			if chat != nil {
				chat.StatusUpdate(id, status, skippable)
			}
		}
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("hampter #%d queued", elem.ID), nil
}

// cmdHelp returns the raw command table as a ranked text block; pretty
// rendering/HTML formatting is explicitly the transport's job.
func (w *Worker) cmdHelp(ctx context.Context, inv Invocation) (string, error) {
	names := make([]string, 0, len(commandTable))
	for _, def := range commandTable {
		names = append(names, strings.Join(def.names, "/"))
	}
	sort.Strings(names)
	return strings.Join(names, "\n"), nil
}

func principalLabel(p selector.Principal) string {
	return fmt.Sprintf("user:%d", p.ID)
}
