package rag_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/ragloop/pkg/rag"
	"github.com/papercomputeco/ragloop/pkg/vector"
)

var _ = Describe("AssembleContext", func() {
	It("returns an empty string for no matches", func() {
		Expect(rag.AssembleContext(nil)).To(Equal(""))
		Expect(rag.AssembleContext([]vector.QueryResult{})).To(Equal(""))
	})

	It("formats one bullet per match in the given order", func() {
		matches := []vector.QueryResult{
			{Document: vector.Document{ID: "d2", Text: "dogs bark"}, Score: 0.9},
			{Document: vector.Document{ID: "d1", Text: "cats purr"}, Score: 0.4},
		}
		Expect(rag.AssembleContext(matches)).To(Equal("- dogs bark\n- cats purr"))
	})
})

var _ = Describe("Prompt", func() {
	It("omits the context section when nothing was retrieved", func() {
		p, err := rag.ParsePrompt("")
		Expect(err).NotTo(HaveOccurred())

		out, err := p.Render(rag.PromptData{})
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(HavePrefix("You are a helpful assistant."))
		Expect(out).NotTo(ContainSubstring("Relevant context"))
	})

	It("includes the context block", func() {
		p, _ := rag.ParsePrompt("")
		out, err := p.Render(rag.PromptData{Context: "- cats purr"})
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(HaveSuffix("Relevant context from knowledge base:\n- cats purr"))
	})

	It("renders custom templates", func() {
		p, err := rag.ParsePrompt("Answer {{.Query}} using:\n{{.Context}}")
		Expect(err).NotTo(HaveOccurred())
		out, err := p.Render(rag.PromptData{Query: "why?", Context: "- because"})
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal("Answer why? using:\n- because"))
	})

	It("rejects malformed templates", func() {
		_, err := rag.ParsePrompt("{{.Context")
		Expect(err).To(HaveOccurred())
	})
})
