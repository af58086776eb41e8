package ipc

import (
	"io"
	"sync"

	"github.com/google/uuid"
)

// Channel is one end of the duplex pipe: writes go to Out, reads come
// from In. SessionID is a random id generated when this end of the channel
// is created; it is not sent over the pipe, so the two ends of one pipe
// carry different ids. The supervisor logs its end's id at worker spawn.
type Channel struct {
	SessionID uuid.UUID

	in  io.Reader
	out io.Writer

	writeMu sync.Mutex
}

// NewChannel wraps an already-connected reader/writer pair (a worker's
// os.Stdin/os.Stdout, or a supervisor's exec.Cmd StdoutPipe/StdinPipe) as
// a typed Channel.
func NewChannel(in io.Reader, out io.Writer) *Channel {
	return &Channel{SessionID: uuid.New(), in: in, out: out}
}

// Send writes one framed message. Safe for concurrent use.
func (c *Channel) Send(msg Message) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return WriteMessage(c.out, msg)
}

// Recv blocks for the next framed message. Not safe for concurrent
// readers — the channel has exactly one listener goroutine per side.
func (c *Channel) Recv() (Message, error) {
	return ReadMessage(c.in)
}
