package sse

import (
	"bytes"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("closed pipe") }

var _ = Describe("Writer", func() {
	It("writes a complete frame", func() {
		buf := &bytes.Buffer{}
		w := NewWriter(buf)

		Expect(w.WriteEvent(EventToken, TokenPayload{Token: "Hi <b>"})).To(Succeed())
		Expect(buf.String()).To(Equal("event: token\ndata: {\"token\":\"Hi \\u003cb\\u003e\"}\n\n"))
	})

	It("round-trips through the decoder", func() {
		buf := &bytes.Buffer{}
		w := NewWriter(buf)
		Expect(w.WriteEvent(EventToken, TokenPayload{Token: "a\nb"})).To(Succeed())
		Expect(w.WriteEvent(EventError, ErrorPayload{Error: "boom"})).To(Succeed())
		Expect(w.WriteEvent(EventDone, DonePayload{OK: true})).To(Succeed())

		frames, partial := feedAll(buf.Bytes())
		Expect(partial).To(BeEmpty())
		Expect(frames).To(Equal([]Frame{
			{Event: EventToken, Data: `{"token":"a\nb"}`},
			{Event: EventError, Data: `{"error":"boom"}`},
			{Event: EventDone, Data: `{"ok":true}`},
		}))
	})

	It("reports marshal failures", func() {
		w := NewWriter(&bytes.Buffer{})
		Expect(w.WriteEvent(EventToken, make(chan int))).To(MatchError(ContainSubstring("marshaling token payload")))
	})

	It("reports write failures", func() {
		w := NewWriter(failingWriter{})
		Expect(w.WriteEvent(EventDone, DonePayload{OK: true})).To(MatchError(ContainSubstring("closed pipe")))
	})
})
