package testutils

import (
	"context"
	"fmt"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/lincode/pkg/llm"
	"github.com/papercomputeco/lincode/pkg/storage"
)

// DescribeStorageDriver registers the behaviour every storage.Driver must
// have. newDriver is called before each spec; the driver is closed after it.
func DescribeStorageDriver(newDriver func() storage.Driver) {
	var (
		driver storage.Driver
		ctx    context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		driver = newDriver()
		DeferCleanup(func() {
			Expect(driver.Close()).To(Succeed())
		})
	})

	user := func(text string) llm.Message { return llm.NewTextMessage(llm.RoleUser, text) }
	assistant := func(text string) llm.Message { return llm.NewTextMessage(llm.RoleAssistant, text) }

	Describe("History", func() {
		It("is empty for an unknown session", func() {
			history, err := driver.History(ctx, "missing")
			Expect(err).NotTo(HaveOccurred())
			Expect(history).To(BeEmpty())
		})

		It("returns appended messages oldest first", func() {
			Expect(driver.Append(ctx, "s1", user("hi"))).To(Succeed())
			Expect(driver.Append(ctx, "s1", assistant("hello"))).To(Succeed())
			Expect(driver.Append(ctx, "s1", user("ls?"))).To(Succeed())

			history, err := driver.History(ctx, "s1")
			Expect(err).NotTo(HaveOccurred())
			Expect(history).To(Equal([]llm.Message{user("hi"), assistant("hello"), user("ls?")}))
		})

		It("keeps sessions apart", func() {
			Expect(driver.Append(ctx, "s1", user("one"))).To(Succeed())
			Expect(driver.Append(ctx, "s2", user("two"))).To(Succeed())

			history, err := driver.History(ctx, "s2")
			Expect(err).NotTo(HaveOccurred())
			Expect(history).To(Equal([]llm.Message{user("two")}))
		})

		It("preserves content verbatim", func() {
			content := "```bash\necho \"$HOME\" && rm -i './x'\n```\n✓ ünïcode"
			Expect(driver.Append(ctx, "s1", assistant(content))).To(Succeed())

			history, err := driver.History(ctx, "s1")
			Expect(err).NotTo(HaveOccurred())
			Expect(history[0].Content).To(Equal(content))
		})
	})

	Describe("PopLast", func() {
		It("removes the newest message when the role matches", func() {
			Expect(driver.Append(ctx, "s1", assistant("a"))).To(Succeed())
			Expect(driver.Append(ctx, "s1", user("b"))).To(Succeed())

			popped, err := driver.PopLast(ctx, "s1", llm.RoleUser)
			Expect(err).NotTo(HaveOccurred())
			Expect(popped).To(BeTrue())

			history, err := driver.History(ctx, "s1")
			Expect(err).NotTo(HaveOccurred())
			Expect(history).To(Equal([]llm.Message{assistant("a")}))
		})

		It("leaves the history alone when the role differs", func() {
			Expect(driver.Append(ctx, "s1", assistant("a"))).To(Succeed())

			popped, err := driver.PopLast(ctx, "s1", llm.RoleUser)
			Expect(err).NotTo(HaveOccurred())
			Expect(popped).To(BeFalse())

			history, err := driver.History(ctx, "s1")
			Expect(err).NotTo(HaveOccurred())
			Expect(history).To(HaveLen(1))
		})

		It("is a no-op for an empty session", func() {
			popped, err := driver.PopLast(ctx, "missing", llm.RoleUser)
			Expect(err).NotTo(HaveOccurred())
			Expect(popped).To(BeFalse())
		})
	})

	Describe("Delete", func() {
		It("forgets the session", func() {
			Expect(driver.Append(ctx, "s1", user("a"))).To(Succeed())
			Expect(driver.Append(ctx, "s2", user("b"))).To(Succeed())
			Expect(driver.Delete(ctx, "s1")).To(Succeed())

			history, err := driver.History(ctx, "s1")
			Expect(err).NotTo(HaveOccurred())
			Expect(history).To(BeEmpty())

			history, err = driver.History(ctx, "s2")
			Expect(err).NotTo(HaveOccurred())
			Expect(history).To(HaveLen(1))
		})

		It("accepts unknown sessions", func() {
			Expect(driver.Delete(ctx, "missing")).To(Succeed())
		})
	})

	It("rejects an empty session id", func() {
		Expect(driver.Append(ctx, "", user("a"))).To(MatchError(storage.ErrEmptySessionID))
		_, err := driver.History(ctx, "")
		Expect(err).To(MatchError(storage.ErrEmptySessionID))
		_, err = driver.PopLast(ctx, "", llm.RoleUser)
		Expect(err).To(MatchError(storage.ErrEmptySessionID))
		Expect(driver.Delete(ctx, "")).To(MatchError(storage.ErrEmptySessionID))
	})

	It("handles concurrent appends", func() {
		var wg sync.WaitGroup
		for i := range 20 {
			wg.Add(1)
			go func() {
				defer GinkgoRecover()
				defer wg.Done()
				Expect(driver.Append(ctx, "s1", user(fmt.Sprintf("m%d", i)))).To(Succeed())
			}()
		}
		wg.Wait()

		history, err := driver.History(ctx, "s1")
		Expect(err).NotTo(HaveOccurred())
		Expect(history).To(HaveLen(20))
	})
}
