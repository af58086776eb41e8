package ipc

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannel_SendRecvRoundTrip(t *testing.T) {
	r, w := io.Pipe()
	sender := NewChannel(nil, w)
	receiver := NewChannel(r, nil)

	done := make(chan error, 1)
	go func() {
		done <- sender.Send(FloodControlIssues{DelaySeconds: 2.5})
	}()

	msg, err := receiver.Recv()
	require.NoError(t, err)
	require.NoError(t, <-done)

	fc, ok := msg.(*FloodControlIssues)
	require.True(t, ok, "expected *FloodControlIssues, got %T", msg)
	assert.Equal(t, 2.5, fc.DelaySeconds)
}

func TestChannel_RecvPropagatesReadError(t *testing.T) {
	r, w := io.Pipe()
	receiver := NewChannel(r, nil)
	w.Close()

	_, err := receiver.Recv()
	assert.Error(t, err)
}

func TestChannel_SessionIDsAreDistinct(t *testing.T) {
	a := NewChannel(nil, nil)
	b := NewChannel(nil, nil)
	assert.NotEqual(t, a.SessionID, b.SessionID)
}
