package chatcmder

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/lincode/pkg/chat"
	"github.com/papercomputeco/lincode/pkg/cliui"
	"github.com/papercomputeco/lincode/pkg/dotdir"
	"github.com/papercomputeco/lincode/pkg/sse"
)

// fakeServer speaks the chat server protocol with a fixed reply.
type fakeServer struct {
	mu       sync.Mutex
	sessions []string
	cleared  []string
}

func (f *fakeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodGet && r.URL.Path == chat.HealthPath:
		_, _ = w.Write([]byte(`{"ok":true}`))

	case r.Method == http.MethodDelete && r.URL.Path == chat.SessionPath:
		var req chat.SessionRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.mu.Lock()
		f.cleared = append(f.cleared, req.SessionID)
		f.mu.Unlock()
		_, _ = w.Write([]byte(`{"ok":true}`))

	case r.Method == http.MethodPost && r.URL.Path == chat.ChatPath:
		var req chat.Request
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.mu.Lock()
		f.sessions = append(f.sessions, req.SessionID)
		f.mu.Unlock()

		w.Header().Set("Content-Type", "text/event-stream")
		sw := sse.NewWriter(w)
		if req.Message == "fail" {
			_ = sw.WriteEvent(sse.EventError, sse.ErrorPayload{Error: "upstream exploded"})
			return
		}
		_ = sw.WriteEvent(sse.EventToken, sse.TokenPayload{Token: "Use "})
		_ = sw.WriteEvent(sse.EventToken, sse.TokenPayload{Token: "`ls`"})
		_ = sw.WriteEvent(sse.EventDone, sse.DonePayload{OK: true})

	default:
		http.NotFound(w, r)
	}
}

func (f *fakeServer) seenSessions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sessions...)
}

func (f *fakeServer) clearedSessions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.cleared...)
}

var _ = Describe("NewChatCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := NewChatCmd()
		Expect(cmd.Use).To(Equal("chat"))
	})

	It("registers its flags with defaults", func() {
		cmd := NewChatCmd()
		defaults := map[string]string{
			"target":            "http://localhost:7777",
			"stall-timeout":     "2m",
			"format":            FormatAuto,
			"dump":              "",
			"new":               "false",
			"skip-health-check": "false",
		}
		for name, def := range defaults {
			f := cmd.Flags().Lookup(name)
			Expect(f).NotTo(BeNil(), name)
			Expect(f.DefValue).To(Equal(def), name)
		}
		Expect(cmd.Flags().Lookup("target").Shorthand).To(Equal("t"))
	})
})

var _ = Describe("resolveFormat", func() {
	DescribeTable("selects the output format",
		func(format string, isTTY bool, expected string) {
			got, err := resolveFormat(format, isTTY)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(expected))
		},
		Entry("auto on a terminal", FormatAuto, true, FormatMarkdown),
		Entry("auto when piped", FormatAuto, false, FormatText),
		Entry("empty means auto", "", false, FormatText),
		Entry("explicit text", FormatText, true, FormatText),
		Entry("explicit html", "HTML", false, FormatHTML),
		Entry("explicit markdown", FormatMarkdown, false, FormatMarkdown),
	)

	It("rejects unknown formats", func() {
		_, err := resolveFormat("pdf", true)
		Expect(err).To(MatchError(ContainSubstring("unknown format")))
	})
})

var _ = Describe("presenters", func() {
	var out *bytes.Buffer

	BeforeEach(func() {
		cliui.DisableColor()
		out = &bytes.Buffer{}
	})

	It("prints text deltas as the reply grows", func() {
		p := newPresenter(FormatText, out)
		p.Present(chat.View{Text: "Use "})
		p.Present(chat.View{Text: "Use `ls`"})
		p.Present(chat.View{Text: "Use `ls`", Final: true})

		Expect(out.String()).To(Equal("Use `ls`\n"))
	})

	It("starts over after Reset", func() {
		p := newPresenter(FormatText, out)
		p.Present(chat.View{Text: "one", Final: true})
		p.Reset()
		p.Present(chat.View{Text: "two", Final: true})

		Expect(out.String()).To(Equal("one\ntwo\n"))
	})

	It("prints errors in text mode", func() {
		p := newPresenter(FormatText, out)
		p.Present(chat.View{Text: "partial"})
		p.Present(chat.View{Err: "boom", Markup: chat.ErrorMarkup("boom"), Final: true})

		Expect(out.String()).To(ContainSubstring("partial\n"))
		Expect(out.String()).To(ContainSubstring("ERROR: boom"))
	})

	It("prints only the final markup in html mode", func() {
		p := newPresenter(FormatHTML, out)
		p.Present(chat.View{Text: "Use ", Markup: "Use "})
		p.Present(chat.View{Text: "Use `ls`", Markup: "Use <code>ls</code>", Final: true})

		Expect(out.String()).To(Equal(prefixMarkup + "Use <code>ls</code>\n"))
	})

	It("prints the error indicator in html mode", func() {
		p := newPresenter(FormatHTML, out)
		p.Present(chat.View{Err: "boom", Markup: chat.ErrorMarkup("boom"), Final: true})

		Expect(out.String()).To(ContainSubstring(`<span class="error-text">ERROR: boom</span>`))
	})

	It("renders the final reply in markdown mode", func() {
		p := newPresenter(FormatMarkdown, out)
		p.Present(chat.View{Text: "**bold**"})
		Expect(out.String()).To(BeEmpty())

		p.Present(chat.View{Text: "Run **ls**", Final: true})
		Expect(out.String()).To(ContainSubstring("Run"))
		Expect(out.String()).To(ContainSubstring("ls"))
	})
})

var _ = Describe("chat session", func() {
	var (
		fake      *fakeServer
		server    *httptest.Server
		configDir string
		out       *bytes.Buffer
		ddm       *dotdir.Manager
	)

	BeforeEach(func() {
		cliui.DisableColor()
		fake = &fakeServer{}
		server = httptest.NewServer(fake)
		DeferCleanup(server.Close)

		configDir = GinkgoT().TempDir()
		out = &bytes.Buffer{}
		ddm = dotdir.NewManager()
	})

	newCommander := func(format string) *chatCommander {
		return &chatCommander{
			target:       server.URL,
			stallTimeout: "5s",
			format:       format,
			configDir:    configDir,
			ddm:          ddm,
		}
	}

	runWith := func(c *chatCommander, input string) error {
		return c.run(context.Background(), strings.NewReader(input), out, false)
	}

	It("streams replies and exits on /exit", func() {
		c := newCommander(FormatHTML)
		Expect(runWith(c, "list files\n/exit\nignored\n")).To(Succeed())

		Expect(out.String()).To(ContainSubstring(prefixMarkup + "Use <code>ls</code>"))
		Expect(fake.seenSessions()).To(HaveLen(1))
	})

	It("exits cleanly at end of input", func() {
		c := newCommander(FormatText)
		Expect(runWith(c, "list files\n")).To(Succeed())
		Expect(out.String()).To(ContainSubstring("Use `ls`"))
	})

	It("skips blank lines", func() {
		c := newCommander(FormatText)
		Expect(runWith(c, "\n   \n")).To(Succeed())
		Expect(fake.seenSessions()).To(BeEmpty())
	})

	It("starts a new session on /clear and remembers it", func() {
		c := newCommander(FormatText)
		Expect(runWith(c, "one\n/clear\ntwo\n")).To(Succeed())

		sessions := fake.seenSessions()
		Expect(sessions).To(HaveLen(2))
		Expect(sessions[0]).NotTo(Equal(sessions[1]))
		Expect(fake.clearedSessions()).To(Equal([]string{sessions[0]}))

		state, err := ddm.LoadSessionState(configDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(state.SessionID).To(Equal(sessions[1]))
		Expect(state.Target).To(Equal(server.URL))
	})

	It("resumes the stored session for the same target", func() {
		Expect(ddm.SaveSessionState(&dotdir.SessionState{SessionID: "resume-me", Target: server.URL}, configDir)).To(Succeed())

		c := newCommander(FormatText)
		Expect(runWith(c, "hi\n")).To(Succeed())

		Expect(fake.seenSessions()).To(Equal([]string{"resume-me"}))
		Expect(out.String()).To(ContainSubstring("Resuming session"))
	})

	It("does not resume a session from another target", func() {
		Expect(ddm.SaveSessionState(&dotdir.SessionState{SessionID: "elsewhere", Target: "http://other:7777"}, configDir)).To(Succeed())

		c := newCommander(FormatText)
		Expect(runWith(c, "hi\n")).To(Succeed())

		Expect(fake.seenSessions()).NotTo(ContainElement("elsewhere"))
	})

	It("starts fresh with --new", func() {
		Expect(ddm.SaveSessionState(&dotdir.SessionState{SessionID: "resume-me", Target: server.URL}, configDir)).To(Succeed())

		c := newCommander(FormatText)
		c.newSession = true
		Expect(runWith(c, "hi\n")).To(Succeed())

		Expect(fake.seenSessions()).NotTo(ContainElement("resume-me"))
	})

	It("shows server errors and keeps going", func() {
		c := newCommander(FormatText)
		Expect(runWith(c, "fail\nlist files\n")).To(Succeed())

		Expect(out.String()).To(ContainSubstring("ERROR: upstream exploded"))
		Expect(out.String()).To(ContainSubstring("Use `ls`"))
	})

	It("dumps the raw event stream", func() {
		c := newCommander(FormatText)
		c.dumpPath = filepath.Join(configDir, "replies.sse")
		Expect(runWith(c, "list files\n")).To(Succeed())

		data, err := os.ReadFile(c.dumpPath)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(ContainSubstring("event: token\n"))
		Expect(string(data)).To(ContainSubstring("event: done\n"))
	})

	It("fails when the server is unreachable", func() {
		c := newCommander(FormatText)
		server.Close()
		Expect(runWith(c, "hi\n")).To(MatchError(ContainSubstring("not reachable")))
	})

	It("rejects an invalid stall timeout", func() {
		c := newCommander(FormatText)
		c.stallTimeout = "soon"
		Expect(runWith(c, "hi\n")).To(HaveOccurred())
	})
})
