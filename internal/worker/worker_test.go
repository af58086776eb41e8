package worker

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jukeproc/juked/internal/audioqueue"
	"github.com/jukeproc/juked/internal/selector"
	"github.com/jukeproc/juked/internal/source"
)

type fakeResolver struct{}

func (fakeResolver) Resolve(ctx context.Context, query string) (source.ResolvedMetadata, error) {
	return source.ResolvedMetadata{Title: "Fake Title: " + query}, nil
}

func (fakeResolver) Stream(ctx context.Context, query string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("")), nil
}

type erroringResolver struct{}

func (erroringResolver) Resolve(ctx context.Context, query string) (source.ResolvedMetadata, error) {
	return source.ResolvedMetadata{}, errors.New("resolver down")
}

func (erroringResolver) Stream(ctx context.Context, query string) (io.ReadCloser, error) {
	return nil, errors.New("resolver down")
}

func newTestWorker(t *testing.T, resolver source.Resolver, sfxDir string) *Worker {
	t.Helper()
	player, err := audioqueue.NewPlayer(44100, false)
	if err != nil {
		t.Skipf("no audio output available in this environment: %v", err)
	}

	q := audioqueue.NewQueue(audioqueue.Config{
		SampleRate:    44100,
		RefreshPeriod: 20 * time.Millisecond,
		Volume:        audioqueue.VolumeConfig{HundredPercentRatio: 1.0, MaxAbsolutePercent: 200},
	}, player)
	t.Cleanup(q.Close)

	return New(Config{
		ResourceRoot: t.TempDir(),
		SfxDir:       sfxDir,
	}, q, nil, resolver, nil, nil)
}

func TestDispatch_UnknownCommandErrors(t *testing.T) {
	w := newTestWorker(t, fakeResolver{}, "")
	_, err := w.Dispatch(context.Background(), "frobnicate", Invocation{})
	assert.Error(t, err)
}

func TestDispatch_EnqueueSearchQuery(t *testing.T) {
	w := newTestWorker(t, fakeResolver{}, "")
	reply, err := w.Dispatch(context.Background(), "q", Invocation{Args: []string{"some", "song"}})
	require.NoError(t, err)
	assert.Contains(t, reply, "queued #1")
	assert.Contains(t, reply, "Fake Title: some song")
}

func TestDispatch_QueueWithNoArgsRendersSnapshotNotEnqueue(t *testing.T) {
	w := newTestWorker(t, fakeResolver{}, "")
	reply, err := w.Dispatch(context.Background(), "queue", Invocation{})
	require.NoError(t, err)
	assert.Contains(t, reply, "state=")
}

func TestDispatch_EnqueuePropagatesResolverError(t *testing.T) {
	w := newTestWorker(t, erroringResolver{}, "")
	_, err := w.Dispatch(context.Background(), "add", Invocation{Args: []string{"anything"}})
	assert.Error(t, err)
}

func TestDispatch_EnqueueRejectsBadDirective(t *testing.T) {
	w := newTestWorker(t, fakeResolver{}, "")
	_, err := w.Dispatch(context.Background(), "add", Invocation{Args: []string{"{pitch:99}", "song"}})
	assert.Error(t, err)
}

func TestDispatch_SkipAllRequiresComptroller(t *testing.T) {
	w := newTestWorker(t, fakeResolver{}, "")

	_, err := w.Dispatch(context.Background(), "skip_all", Invocation{Principal: selector.Principal{ID: 1}})
	assert.Error(t, err, "a plain user must not be able to skip_all")

	reply, err := w.Dispatch(context.Background(), "clear", Invocation{Principal: selector.Principal{ID: 1, IsOwner: true}})
	require.NoError(t, err)
	assert.Contains(t, reply, "skipped")
}

func TestDispatch_VolumeGetAndSet(t *testing.T) {
	w := newTestWorker(t, fakeResolver{}, "")

	reply, err := w.Dispatch(context.Background(), "vol", Invocation{Args: []string{"50"}})
	require.NoError(t, err)
	assert.Contains(t, reply, "50")

	reply, err = w.Dispatch(context.Background(), "volume", Invocation{})
	require.NoError(t, err)
	assert.Contains(t, reply, "50")
}

func TestDispatch_VolumeRejectsOutOfRange(t *testing.T) {
	w := newTestWorker(t, fakeResolver{}, "")
	_, err := w.Dispatch(context.Background(), "v", Invocation{Args: []string{"99999"}})
	assert.Error(t, err)
}

func TestDispatch_Hampter(t *testing.T) {
	sfxDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(sfxDir, "hampter.mp3"), []byte("not real audio"), 0o644))

	w := newTestWorker(t, fakeResolver{}, sfxDir)
	reply, err := w.Dispatch(context.Background(), "hampter", Invocation{})
	require.NoError(t, err)
	assert.Contains(t, reply, "hampter")
}

func TestDispatch_HampterMissingSfxErrors(t *testing.T) {
	w := newTestWorker(t, fakeResolver{}, t.TempDir())
	_, err := w.Dispatch(context.Background(), "hampter", Invocation{})
	assert.Error(t, err)
}

func TestDispatch_Help(t *testing.T) {
	w := newTestWorker(t, fakeResolver{}, "")
	reply, err := w.Dispatch(context.Background(), "help", Invocation{})
	require.NoError(t, err)
	assert.Contains(t, reply, "skip")
}

func TestDispatchCallback_SkipSpecific(t *testing.T) {
	w := newTestWorker(t, fakeResolver{}, "")
	_, err := w.Dispatch(context.Background(), "q", Invocation{Args: []string{"track", "one"}})
	require.NoError(t, err)

	reply, err := w.DispatchCallback(CallbackQuery{ElementID: 1}, "mod")
	require.NoError(t, err)
	assert.Equal(t, "skipped", reply)

	_, err = w.DispatchCallback(CallbackQuery{ElementID: 999}, "mod")
	assert.Error(t, err)
}
