package chatcmder

import (
	"fmt"
	"io"
	"strings"

	"github.com/papercomputeco/lincode/pkg/chat"
	"github.com/papercomputeco/lincode/pkg/cliui"
)

// Output formats for assistant replies.
const (
	FormatAuto     = "auto"
	FormatText     = "text"
	FormatMarkdown = "markdown"
	FormatHTML     = "html"
)

// prefixMarkup precedes every reply in html output.
const prefixMarkup = `<span class="prefix">&gt;&nbsp;</span>`

// ValidFormats lists the values accepted by --format.
func ValidFormats() []string {
	return []string{FormatAuto, FormatText, FormatMarkdown, FormatHTML}
}

// resolveFormat maps "auto" to markdown on a terminal and plain text
// otherwise.
func resolveFormat(format string, isTTY bool) (string, error) {
	switch strings.ToLower(format) {
	case FormatAuto, "":
		if isTTY {
			return FormatMarkdown, nil
		}
		return FormatText, nil
	case FormatText:
		return FormatText, nil
	case FormatMarkdown:
		return FormatMarkdown, nil
	case FormatHTML:
		return FormatHTML, nil
	default:
		return "", fmt.Errorf("unknown format %q (valid formats: %s)", format, strings.Join(ValidFormats(), ", "))
	}
}

// presenter is a chat.Sink that also knows when a new reply starts.
type presenter interface {
	chat.Sink
	Reset()
}

func newPresenter(format string, w io.Writer) presenter {
	switch format {
	case FormatMarkdown:
		return &markdownPresenter{w: w}
	case FormatHTML:
		return &htmlPresenter{w: w}
	default:
		return &textPresenter{w: w}
	}
}

// textPresenter prints each token as it arrives.
type textPresenter struct {
	w       io.Writer
	printed string
}

func (p *textPresenter) Reset() {
	p.printed = ""
}

func (p *textPresenter) Present(v chat.View) {
	if v.Failed() {
		if p.printed != "" {
			fmt.Fprintln(p.w)
		}
		fmt.Fprintf(p.w, "%s %s\n", cliui.FailMark, cliui.ErrorStyle.Render("ERROR: "+v.Err))
		p.printed = ""
		return
	}

	// The reply only ever grows, so print what is new.
	if strings.HasPrefix(v.Text, p.printed) {
		fmt.Fprint(p.w, v.Text[len(p.printed):])
	} else {
		fmt.Fprint(p.w, "\n"+v.Text)
	}
	p.printed = v.Text

	if v.Final {
		fmt.Fprintln(p.w)
	}
}

// markdownPresenter waits for the complete reply and renders it with
// glamour, since partial markdown renders inconsistently.
type markdownPresenter struct {
	w io.Writer
}

func (p *markdownPresenter) Reset() {}

func (p *markdownPresenter) Present(v chat.View) {
	if !v.Final {
		return
	}
	if v.Failed() {
		fmt.Fprintf(p.w, "%s %s\n", cliui.FailMark, cliui.ErrorStyle.Render("ERROR: "+v.Err))
		return
	}

	rendered, err := cliui.RenderMarkdown(v.Text)
	if err != nil {
		fmt.Fprintln(p.w, v.Text)
		return
	}
	fmt.Fprint(p.w, rendered)
}

// htmlPresenter prints the final reply markup, as a browser would show it.
type htmlPresenter struct {
	w io.Writer
}

func (p *htmlPresenter) Reset() {}

func (p *htmlPresenter) Present(v chat.View) {
	if !v.Final {
		return
	}
	fmt.Fprintln(p.w, prefixMarkup+v.Markup)
}
