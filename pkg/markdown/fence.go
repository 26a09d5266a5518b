package markdown

import (
	"strings"
	"unicode"
)

const fenceMarker = "```"

// SegmentKind distinguishes prose from fenced code.
type SegmentKind int

const (
	// SegmentText is prose subject to inline formatting.
	SegmentText SegmentKind = iota

	// SegmentFence is a complete fenced code block.
	SegmentFence

	// SegmentOpenFence is an opening fence with no closing fence yet, which
	// happens while a reply is still streaming in. It is emitted as escaped
	// literal text.
	SegmentOpenFence
)

// Segment is a contiguous region of the input.
type Segment struct {
	Kind SegmentKind

	// Raw is the exact input covered by the segment, fences included.
	Raw string

	// Lang and Code are set for SegmentFence.
	Lang string
	Code string
}

// Split partitions text into prose and fenced code. A fence runs from a
// "```" marker to the nearest following one, across any number of lines.
// Concatenating the Raw fields of the result yields text.
func Split(text string) []Segment {
	var segs []Segment

	for text != "" {
		open := strings.Index(text, fenceMarker)
		if open < 0 {
			segs = append(segs, Segment{Kind: SegmentText, Raw: text})
			break
		}
		if open > 0 {
			segs = append(segs, Segment{Kind: SegmentText, Raw: text[:open]})
			text = text[open:]
		}

		end := strings.Index(text[len(fenceMarker):], fenceMarker)
		if end < 0 {
			segs = append(segs, Segment{Kind: SegmentOpenFence, Raw: text})
			break
		}
		end += 2 * len(fenceMarker)

		segs = append(segs, parseFence(text[:end]))
		text = text[end:]
	}

	return segs
}

// parseFence splits a complete fence into its language tag and code. The tag
// is the run of word characters right after the opening marker; one newline
// after it is dropped, and so is trailing whitespace in the code.
func parseFence(raw string) Segment {
	body := raw[len(fenceMarker) : len(raw)-len(fenceMarker)]

	n := 0
	for n < len(body) && isWordByte(body[n]) {
		n++
	}
	lang := body[:n]
	code := strings.TrimPrefix(body[n:], "\n")

	return Segment{
		Kind: SegmentFence,
		Raw:  raw,
		Lang: lang,
		Code: strings.TrimRightFunc(code, unicode.IsSpace),
	}
}

func isWordByte(c byte) bool {
	return c == '_' ||
		('a' <= c && c <= 'z') ||
		('A' <= c && c <= 'Z') ||
		('0' <= c && c <= '9')
}
