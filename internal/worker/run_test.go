package worker

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jukeproc/juked/internal/audioqueue"
	"github.com/jukeproc/juked/internal/ipc"
)

func newTestWorkerWithChannel(t *testing.T, channel *ipc.Channel) *Worker {
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

	return New(Config{ResourceRoot: t.TempDir()}, q, nil, fakeResolver{}, channel, nil)
}

func TestRun_ContextCancelReportsCleanShutdown(t *testing.T) {
	workerIn, supOut := io.Pipe()
	supIn, workerOut := io.Pipe()
	workerSide := ipc.NewChannel(workerIn, workerOut)
	supSide := ipc.NewChannel(supIn, supOut)

	w := newTestWorkerWithChannel(t, workerSide)

	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() { runErr <- w.Run(ctx) }()

	cancel()

	msg, err := supSide.Recv()
	require.NoError(t, err)
	_, ok := msg.(*ipc.CleanShutdown)
	assert.True(t, ok, "expected *ipc.CleanShutdown, got %T", msg)
	require.NoError(t, <-runErr)
}

func TestRun_DownwardShutdownReportsCleanShutdown(t *testing.T) {
	workerIn, supOut := io.Pipe()
	supIn, workerOut := io.Pipe()
	workerSide := ipc.NewChannel(workerIn, workerOut)
	supSide := ipc.NewChannel(supIn, supOut)

	w := newTestWorkerWithChannel(t, workerSide)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runErr := make(chan error, 1)
	go func() { runErr <- w.Run(ctx) }()

	require.NoError(t, supSide.Send(ipc.ShutDown{Force: false}))

	msg, err := supSide.Recv()
	require.NoError(t, err)
	_, ok := msg.(*ipc.CleanShutdown)
	assert.True(t, ok, "expected *ipc.CleanShutdown, got %T", msg)
	require.NoError(t, <-runErr)
}
