// Package accumulator folds decoded chat frames into the growing reply text.
package accumulator

import (
	"encoding/json"

	"github.com/papercomputeco/lincode/pkg/sse"
)

// UnknownError is reported when an error frame carries no message.
const UnknownError = "unknown error"

// Kind classifies the effect of a single frame.
type Kind int

const (
	// KindNoop means the frame changed nothing.
	KindNoop Kind = iota

	// KindPartial means a token was appended to the text.
	KindPartial

	// KindError means the stream was terminated by an error frame.
	KindError
)

// String returns a readable name for k.
func (k Kind) String() string {
	switch k {
	case KindPartial:
		return "partial"
	case KindError:
		return "error"
	default:
		return "noop"
	}
}

// Update is the result of applying one frame.
type Update struct {
	Kind Kind

	// Text is the full accumulated text. Set for KindPartial.
	Text string

	// Message is the error message. Set for KindError.
	Message string
}

// Accumulator holds the text of a single streamed reply.
// It is not safe for concurrent use.
type Accumulator struct {
	text       []byte
	terminated bool
}

// New returns an empty Accumulator.
func New() *Accumulator {
	return &Accumulator{}
}

type tokenPayload struct {
	Token string `json:"token"`
}

type errorPayload struct {
	Error string `json:"error"`
}

// Apply folds frame into the accumulator. Frames must be applied in the order
// the decoder produced them.
func (a *Accumulator) Apply(frame sse.Frame) Update {
	if a.terminated {
		return Update{Kind: KindNoop}
	}

	switch frame.Event {
	case sse.EventToken:
		var p *tokenPayload
		if err := json.Unmarshal([]byte(frame.Data), &p); err != nil || p == nil || p.Token == "" {
			return Update{Kind: KindNoop}
		}
		a.text = append(a.text, p.Token...)
		return Update{Kind: KindPartial, Text: string(a.text)}

	case sse.EventError:
		var p *errorPayload
		if err := json.Unmarshal([]byte(frame.Data), &p); err != nil {
			return Update{Kind: KindNoop}
		}
		msg := UnknownError
		if p != nil && p.Error != "" {
			msg = p.Error
		}
		a.terminated = true
		return Update{Kind: KindError, Message: msg}
	}

	return Update{Kind: KindNoop}
}

// Text returns the accumulated text.
func (a *Accumulator) Text() string {
	return string(a.text)
}

// Terminated reports whether an error frame has ended the stream.
func (a *Accumulator) Terminated() bool {
	return a.terminated
}

// Terminate marks the stream as failed for reasons outside the frame
// sequence, such as a transport error. Later frames are ignored.
func (a *Accumulator) Terminate() {
	a.terminated = true
}
