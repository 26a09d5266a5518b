// Package sse provides a minimal, purpose-built decoder and writer for the
// lincode chat event stream.
//
// The wire format is a strict subset of Server-Sent Events: every frame is an
// optional "event: <name>" line followed by a single "data: <json>" line, and
// frames are separated by a blank line. An "event:" line applies to exactly
// one following "data:" line. Multi-line data, "id:" and "retry:" fields are
// not part of the protocol and are ignored.
//
// See the SSE specification for the general format:
// https://html.spec.whatwg.org/multipage/server-sent-events.html
package sse

// Event names produced by the chat server.
const (
	EventToken = "token"
	EventDone  = "done"
	EventError = "error"
)

// Frame is a single decoded (event, data) unit.
type Frame struct {
	// Event is the value of the most recent "event:" line seen since the
	// previous frame. An empty string means no event line preceded the data.
	Event string

	// Data is the trimmed remainder of the "data:" line. It is not validated:
	// callers decide whether the payload is well formed.
	Data string
}
