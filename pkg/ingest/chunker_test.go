package ingest_test

import (
	"strings"
	"unicode/utf8"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/ragloop/pkg/ingest"
)

var _ = Describe("Chunker", func() {
	It("uses the defaults", func() {
		c := ingest.NewChunker(0, 200)
		Expect(c.Size()).To(Equal(ingest.DefaultChunkSize))
		Expect(c.Overlap()).To(Equal(200))
	})

	It("clamps the overlap below the size", func() {
		Expect(ingest.NewChunker(10, 10).Overlap()).To(Equal(9))
		Expect(ingest.NewChunker(10, 50).Overlap()).To(Equal(9))
		Expect(ingest.NewChunker(10, -1).Overlap()).To(Equal(0))
	})

	It("returns nothing for blank text", func() {
		Expect(ingest.NewChunker(10, 2).Split(" \n\t ")).To(BeEmpty())
	})

	It("returns short text as one normalized chunk", func() {
		Expect(ingest.NewChunker(100, 10).Split("  cats\n\n  purr\tloudly ")).To(Equal([]string{"cats purr loudly"}))
	})

	It("produces overlapping windows", func() {
		chunks := ingest.NewChunker(4, 2).Split("abcdefgh")
		Expect(chunks).To(Equal([]string{"abcd", "cdef", "efgh"}))
	})

	It("splits on rune boundaries", func() {
		text := strings.Repeat("é", 7)
		chunks := ingest.NewChunker(3, 1).Split(text)
		Expect(chunks).To(Equal([]string{"ééé", "ééé", "ééé"}))
		for _, c := range chunks {
			Expect(utf8.ValidString(c)).To(BeTrue())
		}
	})

	It("covers the whole text with the default settings", func() {
		text := strings.Repeat("x", 2500)
		chunks := ingest.NewChunker(0, ingest.DefaultChunkOverlap).Split(text)
		Expect(chunks).To(HaveLen(3))
		Expect(chunks[0]).To(HaveLen(1000))
		Expect(chunks[2]).To(HaveLen(900))
	})
})
