package sse

import (
	"encoding/json"
	"fmt"
	"io"
)

// Writer produces frames in the chat event-stream format. Each frame is
// written with a single Write call so the underlying transport can flush it
// as one chunk.
type Writer struct {
	w io.Writer
}

// NewWriter returns a Writer that writes frames to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteEvent marshals payload to JSON and writes it as
// "event: <event>\ndata: <json>\n\n".
func (w *Writer) WriteEvent(event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling %s payload: %w", event, err)
	}

	frame := make([]byte, 0, len(eventPrefix)+len(event)+len(dataPrefix)+len(data)+3)
	frame = append(frame, eventPrefix...)
	frame = append(frame, event...)
	frame = append(frame, '\n')
	frame = append(frame, dataPrefix...)
	frame = append(frame, data...)
	frame = append(frame, '\n', '\n')

	if _, err := w.w.Write(frame); err != nil {
		return fmt.Errorf("writing %s frame: %w", event, err)
	}

	return nil
}

// TokenPayload is the data of a "token" frame.
type TokenPayload struct {
	Token string `json:"token"`
}

// ErrorPayload is the data of an "error" frame.
type ErrorPayload struct {
	Error string `json:"error"`
}

// DonePayload is the data of a "done" frame.
type DonePayload struct {
	OK bool `json:"ok"`
}
