package markdown

import (
	"sort"
	"strings"
)

// TokenKind identifies an inline token.
type TokenKind int

const (
	TokenText TokenKind = iota
	TokenBoldOpen
	TokenBoldClose
	TokenCodeOpen
	TokenCodeClose
)

// Token is one inline unit of a line. Only TokenText carries Text, which is
// unescaped.
//
// Bold and code spans are found independently of each other, so their
// open and close tokens may interleave rather than nest.
type Token struct {
	Kind TokenKind
	Text string
}

// Line is one line of a prose segment.
type Line struct {
	// Item reports whether the line is a bullet list item. Tokens then cover
	// only the text after the marker.
	Item bool

	Tokens []Token

	// Break reports whether a newline followed the line.
	Break bool
}

// Tokenize splits prose into lines and each line into inline tokens.
func Tokenize(text string) []Line {
	var lines []Line

	for {
		raw, rest, found := strings.Cut(text, "\n")

		content, item := listItem(raw)
		lines = append(lines, Line{
			Item:   item,
			Tokens: tokenizeInline(content),
			Break:  found,
		})

		if !found {
			break
		}
		text = rest
	}

	return lines
}

// listItem reports whether line is a bullet: optional spaces or tabs, a "-"
// or "*", one space, then at least one character. It returns the text after
// the marker for items and the whole line otherwise.
func listItem(line string) (string, bool) {
	trimmed := strings.TrimLeft(line, " \t")
	if len(trimmed) < 3 {
		return line, false
	}
	if (trimmed[0] != '-' && trimmed[0] != '*') || trimmed[1] != ' ' {
		return line, false
	}
	return trimmed[2:], true
}

type marker struct {
	pos  int
	size int
	kind TokenKind
}

func tokenizeInline(s string) []Token {
	marks := append(boldMarkers(s), codeMarkers(s)...)
	if len(marks) == 0 {
		if s == "" {
			return nil
		}
		return []Token{{Kind: TokenText, Text: s}}
	}

	sort.Slice(marks, func(i, j int) bool { return marks[i].pos < marks[j].pos })

	var toks []Token
	prev := 0
	for _, m := range marks {
		if m.pos > prev {
			toks = append(toks, Token{Kind: TokenText, Text: s[prev:m.pos]})
		}
		toks = append(toks, Token{Kind: m.kind})
		prev = m.pos + m.size
	}
	if prev < len(s) {
		toks = append(toks, Token{Kind: TokenText, Text: s[prev:]})
	}

	return toks
}

// boldMarkers finds "**x**" spans left to right, where x is one or more
// characters other than "*".
func boldMarkers(s string) []marker {
	var marks []marker

	for i := 0; i+1 < len(s); {
		if s[i] != '*' || s[i+1] != '*' {
			i++
			continue
		}
		start := i + 2
		end := start
		for end < len(s) && s[end] != '*' {
			end++
		}
		if end == start || end+1 >= len(s) || s[end+1] != '*' {
			i++
			continue
		}
		marks = append(marks,
			marker{pos: i, size: 2, kind: TokenBoldOpen},
			marker{pos: end, size: 2, kind: TokenBoldClose},
		)
		i = end + 2
	}

	return marks
}

// codeMarkers finds "`x`" spans left to right, where x is one or more
// characters other than a backtick.
func codeMarkers(s string) []marker {
	var marks []marker

	for i := 0; i < len(s); {
		if s[i] != '`' {
			i++
			continue
		}
		end := strings.IndexByte(s[i+1:], '`')
		if end < 0 {
			break
		}
		if end == 0 {
			i++
			continue
		}
		end += i + 1
		marks = append(marks,
			marker{pos: i, size: 1, kind: TokenCodeOpen},
			marker{pos: end, size: 1, kind: TokenCodeClose},
		)
		i = end + 1
	}

	return marks
}
