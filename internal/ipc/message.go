// Package ipc implements the typed supervisor<->worker wire protocol
// from spec section 4.3: a duplex pipe between two OS processes carrying
// tagged-sum messages, framed as a one-byte tag, a four-byte big-endian
// length, and a JSON payload. No corpus example ships a same-host
// anonymous-pipe duplex channel; the closest candidates (gorilla/
// websocket, gRPC) assume network sockets and would be overkill for two
// processes already joined by exec.Cmd's stdin/stdout — see DESIGN.md.
package ipc

// Tag identifies a message's concrete type on the wire.
type Tag byte

const (
	TagShutDown Tag = iota + 1
	TagCleanShutdown
	TagExceptionShutdown
	TagFloodControlIssues
	TagThreadingFailedShutdown
)

// Message is the tagged-sum interface every wire message implements.
type Message interface {
	Tag() Tag
}

// ShutDown is the only downward command (supervisor -> worker): Force
// false attempts a graceful in-band stop, true closes the worker's queue
// without waiting for it to drain and makes the worker exit non-zero.
type ShutDown struct {
	Force bool `json:"force"`
}

func (ShutDown) Tag() Tag { return TagShutDown }

// CleanShutdown is an upward event: the worker's scheduler exited
// normally and all non-main goroutines have terminated.
type CleanShutdown struct{}

func (CleanShutdown) Tag() Tag { return TagCleanShutdown }

// ExceptionShutdown is an upward event carrying a serializable summary of
// a top-level exception the worker caught.
type ExceptionShutdown struct {
	Err string `json:"err"`
}

func (ExceptionShutdown) Tag() Tag { return TagExceptionShutdown }

// FloodControlIssues is an upward event: an outbound API call was
// throttled; the supervisor should pin a notice for DelaySeconds.
type FloodControlIssues struct {
	DelaySeconds float64 `json:"delay_seconds"`
}

func (FloodControlIssues) Tag() Tag { return TagFloodControlIssues }

// ThreadingFailedShutdown is an upward event: the scheduler exited but
// background goroutines did not terminate within the grace window.
type ThreadingFailedShutdown struct{}

func (ThreadingFailedShutdown) Tag() Tag { return TagThreadingFailedShutdown }

// newByTag allocates the zero value for a wire tag, for unmarshalling.
func newByTag(t Tag) (Message, bool) {
	switch t {
	case TagShutDown:
		return &ShutDown{}, true
	case TagCleanShutdown:
		return &CleanShutdown{}, true
	case TagExceptionShutdown:
		return &ExceptionShutdown{}, true
	case TagFloodControlIssues:
		return &FloodControlIssues{}, true
	case TagThreadingFailedShutdown:
		return &ThreadingFailedShutdown{}, true
	default:
		return nil, false
	}
}
