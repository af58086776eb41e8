// Package chatmsg defines the minimal notice value type handed to the
// out-of-scope chat transport collaborator (spec.md's non-goals: "the
// chat transport SDK ... HTML message formatting").
package chatmsg

// Notice is a plain text message the supervisor or worker wants posted
// to the controlled chat. Pinned is set for notices that must stay
// pinned until explicitly cleared (the flood-control notice).
type Notice struct {
	Text   string
	Pinned bool
}
