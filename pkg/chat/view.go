package chat

import (
	"github.com/papercomputeco/lincode/pkg/markdown"
)

// View is what a Sink shows for the reply in flight.
type View struct {
	// Text is the accumulated reply. It is empty once the stream failed.
	Text string

	// Markup is the rendered reply, or the error indicator on failure.
	Markup string

	// Err is the error message when the stream failed.
	Err string

	// Final is set on the last View of a message.
	Final bool
}

// Failed reports whether the view shows an error.
func (v View) Failed() bool {
	return v.Err != ""
}

// Sink presents views. Present is called synchronously from Submit, in order.
type Sink interface {
	Present(View)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(View)

// Present calls f(v).
func (f SinkFunc) Present(v View) {
	f(v)
}

// ErrorMarkup returns the error indicator shown in place of a failed reply.
func ErrorMarkup(msg string) string {
	return `<span class="error-text">ERROR: ` + markdown.Escape(msg) + `</span>`
}
