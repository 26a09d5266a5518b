package sse

import (
	"errors"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const (
	eventPrefix = "event: "
	dataPrefix  = "data: "
)

// Decoder incrementally turns arbitrary byte chunks into Frames.
//
// Chunk boundaries carry no meaning: a chunk may end in the middle of a line,
// a field prefix, or a multi-byte UTF-8 sequence. Bytes that cannot be
// resolved yet are held until the next call to Feed, so feeding the same
// byte sequence split at any points yields the same frames as feeding it
// whole.
//
// A Decoder never fails. Lines it does not understand are dropped. A Decoder
// is used for a single stream and is not safe for concurrent use.
type Decoder struct {
	// utf8 is a stateful UTF-8 decoder that strips a leading byte order mark
	// and replaces invalid sequences with U+FFFD.
	utf8 transform.Transformer

	// pending holds undecoded bytes, at most an incomplete UTF-8 sequence.
	pending []byte

	// line holds decoded text not yet terminated by a newline.
	line string

	// event is the pending "event:" value for the next data line.
	event string
}

// NewDecoder returns a Decoder ready for a new stream.
func NewDecoder() *Decoder {
	return &Decoder{
		utf8: unicode.UTF8BOM.NewDecoder(),
	}
}

// Feed appends chunk to the stream and returns the frames completed by it,
// in wire order. It returns nil when the chunk completes no data line.
func (d *Decoder) Feed(chunk []byte) []Frame {
	return d.consume(d.decode(chunk, false))
}

// Flush ends the stream. Any bytes still held by the UTF-8 decoder are
// decoded, complete lines among them are processed, and whatever partial line
// remains is discarded and returned for diagnostics. A pending "event:" line
// with no following data line is dropped as well.
func (d *Decoder) Flush() ([]Frame, string) {
	frames := d.consume(d.decode(nil, true))

	partial := d.line
	d.line = ""
	d.event = ""

	return frames, partial
}

// decode runs the streaming UTF-8 decoder over any held bytes plus chunk.
// Unless atEOF is set, a trailing incomplete sequence is kept for next time.
func (d *Decoder) decode(chunk []byte, atEOF bool) string {
	if len(d.pending) == 0 && len(chunk) == 0 && !atEOF {
		return ""
	}

	src := make([]byte, 0, len(d.pending)+len(chunk))
	src = append(src, d.pending...)
	src = append(src, chunk...)
	d.pending = nil

	// Each source byte expands to at most one 3-byte replacement character.
	dst := make([]byte, 3*len(src)+16)
	var out []byte

	for {
		nDst, nSrc, err := d.utf8.Transform(dst, src, atEOF)
		out = append(out, dst[:nDst]...)
		src = src[nSrc:]

		if errors.Is(err, transform.ErrShortDst) && (nDst > 0 || nSrc > 0) {
			continue
		}
		break
	}

	if len(src) > 0 && !atEOF {
		d.pending = src
	}

	return string(out)
}

// consume appends decoded text to the line buffer and processes every line
// that is now complete. The unterminated remainder stays buffered.
func (d *Decoder) consume(text string) []Frame {
	if text == "" {
		return nil
	}

	d.line += text

	var frames []Frame
	for {
		line, rest, ok := strings.Cut(d.line, "\n")
		if !ok {
			break
		}
		d.line = rest

		if frame, ok := d.processLine(line); ok {
			frames = append(frames, frame)
		}
	}

	return frames
}

// processLine interprets a single complete line. It reports whether the line
// produced a frame.
func (d *Decoder) processLine(line string) (Frame, bool) {
	switch {
	case strings.HasPrefix(line, eventPrefix):
		d.event = strings.TrimSpace(line[len(eventPrefix):])

	case strings.HasPrefix(line, dataPrefix):
		frame := Frame{
			Event: d.event,
			Data:  strings.TrimSpace(line[len(dataPrefix):]),
		}
		// An event line applies to exactly one data line.
		d.event = ""
		return frame, true

	default:
		// Blank separators, comments and unknown fields.
	}

	return Frame{}, false
}
