package sse

import (
	"errors"
	"io"
)

const defaultChunkSize = 32 * 1024

// Reader pulls raw chunks from a transport and decodes them into frames,
// optionally writing every raw byte verbatim to a destination io.Writer.
//
// ┌──────────────────┐
// │ source io.Reader │
// └──────────────────┘
// │
// ▼
// ┌──────────────────┐   ┌───────────────────────┐
// │  Reader.Next()   │──▶│ destination io.Writer │
// └──────────────────┘   └───────────────────────┘
// │
// ▼
// ┌──────────────────┐
// │     []Frame      │
// └──────────────────┘
//
// Each call to Next performs exactly one Read on the source, so callers see
// frames as soon as the transport delivers them.
type Reader struct {
	src  io.Reader
	dest io.Writer
	dec  *Decoder
	buf  []byte
	done bool

	// partial is the unterminated line discarded at end of stream.
	partial string
}

// NewReader returns a Reader that decodes frames from src.
func NewReader(src io.Reader) *Reader {
	return NewTeeReader(src, nil)
}

// NewTeeReader returns a Reader that decodes frames from src and writes all
// raw bytes through to dest. A nil dest disables the tee.
func NewTeeReader(src io.Reader, dest io.Writer) *Reader {
	return &Reader{
		src:  src,
		dest: dest,
		dec:  NewDecoder(),
		buf:  make([]byte, defaultChunkSize),
	}
}

// Next reads a single chunk from the source and returns the frames it
// completed, which may be none. When the source is exhausted Next flushes the
// decoder and returns the final frames together with io.EOF; every later call
// returns io.EOF. Any other read error is returned as is, alongside the frames
// decoded from bytes read before the failure.
func (r *Reader) Next() ([]Frame, error) {
	if r.done {
		return nil, io.EOF
	}

	n, err := r.src.Read(r.buf)

	var frames []Frame
	if n > 0 {
		chunk := r.buf[:n]
		if r.dest != nil {
			if _, werr := r.dest.Write(chunk); werr != nil {
				return nil, werr
			}
		}
		frames = r.dec.Feed(chunk)
	}

	if errors.Is(err, io.EOF) {
		r.done = true
		tail, partial := r.dec.Flush()
		r.partial = partial
		return append(frames, tail...), io.EOF
	}

	return frames, err
}

// Partial returns the unterminated line dropped at end of stream. It is only
// meaningful after Next has returned io.EOF.
func (r *Reader) Partial() string {
	return r.partial
}
