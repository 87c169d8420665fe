package search_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/ragloop/api/search"
	"github.com/papercomputeco/ragloop/pkg/logger"
	"github.com/papercomputeco/ragloop/pkg/vector"
)

type fakeRetriever struct {
	matches []vector.QueryResult
	err     error
	lastK   int
}

func (f *fakeRetriever) Retrieve(_ context.Context, _ string, k int) ([]vector.QueryResult, error) {
	f.lastK = k
	return f.matches, f.err
}

var _ = Describe("Search", func() {
	var retriever *fakeRetriever

	BeforeEach(func() {
		retriever = &fakeRetriever{matches: []vector.QueryResult{
			{Document: vector.Document{ID: "d1", Text: "cats"}, Score: 0.9},
			{Document: vector.Document{ID: "d2", Text: "dogs"}, Score: 0.4},
		}}
	})

	It("returns results in retrieval order", func() {
		out, err := search.Search(context.Background(), "pets", 2, retriever, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
		Expect(out.Query).To(Equal("pets"))
		Expect(out.Count).To(Equal(2))
		Expect(out.Results).To(Equal([]search.SearchResult{
			{ID: "d1", Score: 0.9, Text: "cats"},
			{ID: "d2", Score: 0.4, Text: "dogs"},
		}))
	})

	It("defaults top-k", func() {
		_, err := search.Search(context.Background(), "pets", 0, retriever, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
		Expect(retriever.lastK).To(Equal(search.DefaultTopK))
	})

	It("rejects blank queries", func() {
		_, err := search.Search(context.Background(), " ", 1, retriever, logger.Nop())
		Expect(err).To(MatchError(search.ErrEmptyQuery))
	})

	It("wraps retrieval errors", func() {
		retriever.err = vector.ErrEmbedding
		_, err := search.Search(context.Background(), "pets", 1, retriever, logger.Nop())
		Expect(errors.Is(err, vector.ErrEmbedding)).To(BeTrue())
	})

	It("returns an empty slice for no matches", func() {
		retriever.matches = nil
		out, err := search.Search(context.Background(), "pets", 1, retriever, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
		Expect(out.Results).NotTo(BeNil())
		Expect(out.Results).To(BeEmpty())
	})
})
