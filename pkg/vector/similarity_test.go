package vector_test

import (
	"errors"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/ragloop/pkg/vector"
)

var _ = Describe("Cosine", func() {
	It("is symmetric", func() {
		pairs := [][2][]float32{
			{{1, 2, 3}, {4, 5, 6}},
			{{-1, 0.5, 2}, {0.3, -0.7, 1}},
			{{0.001, 1000}, {5, -5}},
		}
		for _, p := range pairs {
			ab, err := vector.Cosine(p[0], p[1])
			Expect(err).NotTo(HaveOccurred())
			ba, err := vector.Cosine(p[1], p[0])
			Expect(err).NotTo(HaveOccurred())
			Expect(ab).To(Equal(ba))
		}
	})

	It("scores a vector against itself as 1", func() {
		for _, v := range [][]float32{{1, 0}, {0.3, 0.4, 0.5}, {-2, 7, 1e-3, 9}} {
			s, err := vector.Cosine(v, v)
			Expect(err).NotTo(HaveOccurred())
			Expect(s).To(BeNumerically("~", 1.0, 1e-9))
		}
	})

	It("scores opposite vectors as -1 and orthogonal vectors as 0", func() {
		s, err := vector.Cosine([]float32{1, 2}, []float32{-1, -2})
		Expect(err).NotTo(HaveOccurred())
		Expect(s).To(BeNumerically("~", -1.0, 1e-9))

		s, err = vector.Cosine([]float32{1, 0}, []float32{0, 1})
		Expect(err).NotTo(HaveOccurred())
		Expect(s).To(BeNumerically("==", 0))
	})

	It("ignores magnitude", func() {
		s, err := vector.Cosine([]float32{0.7, 0.7}, []float32{1, 0})
		Expect(err).NotTo(HaveOccurred())
		Expect(s).To(BeNumerically("~", math.Sqrt2/2, 1e-6))
	})

	It("stays within [-1, 1]", func() {
		v := []float32{0.1, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1}
		s, err := vector.Cosine(v, v)
		Expect(err).NotTo(HaveOccurred())
		Expect(s).To(BeNumerically("<=", 1.0))
	})

	It("rejects zero vectors", func() {
		_, err := vector.Cosine([]float32{0, 0}, []float32{1, 0})
		Expect(err).To(MatchError(vector.ErrZeroNorm))

		_, err = vector.Cosine([]float32{1, 0}, []float32{0, 0})
		Expect(err).To(MatchError(vector.ErrZeroNorm))
	})

	It("rejects vectors of different length", func() {
		_, err := vector.Cosine([]float32{1, 0}, []float32{1, 0, 0})
		Expect(errors.Is(err, vector.ErrDimensionMismatch)).To(BeTrue())

		var dimErr *vector.DimensionMismatchError
		Expect(errors.As(err, &dimErr)).To(BeTrue())
		Expect(dimErr.Expected).To(Equal(2))
		Expect(dimErr.Got).To(Equal(3))
	})
})

var _ = Describe("ScoreFromDistance", func() {
	It("converts cosine distance to similarity", func() {
		Expect(vector.ScoreFromDistance(0)).To(BeNumerically("==", 1))
		Expect(vector.ScoreFromDistance(1)).To(BeNumerically("==", 0))
		Expect(vector.ScoreFromDistance(2)).To(BeNumerically("==", -1))
	})

	It("clamps rounding overshoot", func() {
		Expect(vector.ScoreFromDistance(-1e-7)).To(BeNumerically("==", 1))
		Expect(vector.ScoreFromDistance(2.0001)).To(BeNumerically("==", -1))
	})
})

var _ = Describe("ValidateBatch", func() {
	It("fixes the dimension from the first document", func() {
		dims, err := vector.ValidateBatch([]vector.Document{
			{ID: "a", Embedding: []float32{1, 2, 3}},
			{ID: "b", Embedding: []float32{3, 2, 1}},
		}, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(dims).To(Equal(3))
	})

	It("rejects a mismatched document with its ID", func() {
		_, err := vector.ValidateBatch([]vector.Document{
			{ID: "a", Embedding: []float32{1, 2, 3}},
			{ID: "b", Embedding: []float32{3, 2}},
		}, 0)
		var dimErr *vector.DimensionMismatchError
		Expect(errors.As(err, &dimErr)).To(BeTrue())
		Expect(dimErr.ID).To(Equal("b"))
		Expect(err.Error()).To(ContainSubstring(`"b"`))
	})

	It("rejects duplicate IDs inside a batch", func() {
		_, err := vector.ValidateBatch([]vector.Document{
			{ID: "a", Embedding: []float32{1}},
			{ID: "a", Embedding: []float32{2}},
		}, 0)
		Expect(err).To(MatchError(vector.ErrDuplicateDocument))
	})

	It("rejects empty IDs and zero embeddings", func() {
		_, err := vector.ValidateBatch([]vector.Document{{Embedding: []float32{1}}}, 0)
		Expect(err).To(HaveOccurred())

		_, err = vector.ValidateBatch([]vector.Document{{ID: "z", Embedding: []float32{0, 0}}}, 2)
		Expect(err).To(MatchError(vector.ErrZeroNorm))
	})
})

var _ = Describe("RankStable", func() {
	It("orders by score and keeps input order for ties", func() {
		in := []vector.QueryResult{
			{Document: vector.Document{ID: "a"}, Score: 0.5},
			{Document: vector.Document{ID: "b"}, Score: 0.9},
			{Document: vector.Document{ID: "c"}, Score: 0.5},
			{Document: vector.Document{ID: "d"}, Score: 0.1},
		}
		out := vector.RankStable(in, 3)
		ids := []string{}
		for _, r := range out {
			ids = append(ids, r.ID)
		}
		Expect(ids).To(Equal([]string{"b", "a", "c"}))
	})
})
