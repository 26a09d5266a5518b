// Package markdown renders the small markdown dialect used in chat replies
// into safe HTML.
//
// The dialect covers fenced code blocks, **bold**, `inline code` and bullet
// lists. Everything else passes through as escaped text with newlines turned
// into <br>. Only the four characters &, <, > and " are escaped.
//
// Render is pure and re-renders the whole text on every call. A reply that
// streams in n tokens therefore costs O(n²) across the stream.
package markdown

import (
	"strings"
)

var escaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
)

// Escape replaces the reserved markup characters in s.
func Escape(s string) string {
	return escaper.Replace(s)
}

// Render converts text to HTML. It never fails: input it cannot interpret is
// emitted as escaped text.
func Render(text string) string {
	var b strings.Builder
	b.Grow(len(text) + len(text)/4)

	for _, seg := range Split(text) {
		switch seg.Kind {
		case SegmentFence:
			writeFence(&b, seg)
		case SegmentOpenFence:
			escaper.WriteString(&b, seg.Raw)
		default:
			writeLines(&b, Tokenize(seg.Raw))
		}
	}

	return b.String()
}

func writeFence(b *strings.Builder, seg Segment) {
	b.WriteString(`<pre class="code-block"><code class="lang-`)
	escaper.WriteString(b, seg.Lang)
	b.WriteString(`">`)
	escaper.WriteString(b, seg.Code)
	b.WriteString(`</code><button class="copy-btn" onclick="copyCode(this)">[COPY]</button></pre>`)
}

// writeLines emits tokenized lines. Runs of consecutive list items share one
// <ul>, and the line break after each item stays inside it.
func writeLines(b *strings.Builder, lines []Line) {
	for i, line := range lines {
		if line.Item && (i == 0 || !lines[i-1].Item) {
			b.WriteString("<ul>")
		}

		if line.Item {
			b.WriteString("<li>")
		}
		for _, tok := range line.Tokens {
			writeToken(b, tok)
		}
		if line.Item {
			b.WriteString("</li>")
		}

		if line.Break {
			b.WriteString("<br>")
		}

		if line.Item && (i == len(lines)-1 || !lines[i+1].Item) {
			b.WriteString("</ul>")
		}
	}
}

func writeToken(b *strings.Builder, tok Token) {
	switch tok.Kind {
	case TokenBoldOpen:
		b.WriteString("<strong>")
	case TokenBoldClose:
		b.WriteString("</strong>")
	case TokenCodeOpen:
		b.WriteString("<code>")
	case TokenCodeClose:
		b.WriteString("</code>")
	default:
		escaper.WriteString(b, tok.Text)
	}
}
