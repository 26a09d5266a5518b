package provider_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/lincode/pkg/llm/provider"
)

var _ = Describe("New", func() {
	It("builds every supported provider", func() {
		for _, name := range provider.SupportedProviders() {
			c, err := provider.New(name, provider.Config{APIKey: "key"})
			Expect(err).NotTo(HaveOccurred())
			Expect(c.Name()).To(Equal(name))
		}
	})

	It("requires an API key for anthropic", func() {
		_, err := provider.New(provider.Anthropic, provider.Config{})
		Expect(err).To(MatchError(ContainSubstring("API key")))
	})

	It("rejects unknown providers", func() {
		_, err := provider.New("openai", provider.Config{})
		Expect(err).To(MatchError(ContainSubstring(`unknown provider type: "openai"`)))
	})
})
