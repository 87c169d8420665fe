package sqlitevec_test

import (
	"context"
	"log/slog"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/ragloop/pkg/logger"
	"github.com/papercomputeco/ragloop/pkg/vector"
	"github.com/papercomputeco/ragloop/pkg/vector/sqlitevec"
)

var _ = Describe("SQLiteVecDriver", func() {
	var log *slog.Logger

	BeforeEach(func() {
		log = logger.Nop()
	})

	Describe("NewSQLiteVecDriver", func() {
		It("should return an error when DBPath is empty", func() {
			_, err := sqlitevec.NewSQLiteVecDriver(sqlitevec.Config{DBPath: ""}, log)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("database path is required"))
		})

		It("should create a driver with an in-memory database", func() {
			driver, err := sqlitevec.NewSQLiteVecDriver(sqlitevec.Config{
				DBPath:     ":memory:",
				Dimensions: 4,
			}, log)
			Expect(err).NotTo(HaveOccurred())
			Expect(driver).NotTo(BeNil())
			Expect(driver.Close()).To(Succeed())
		})

		It("should error when dimension not specified", func() {
			_, err := sqlitevec.NewSQLiteVecDriver(sqlitevec.Config{
				DBPath: ":memory:",
			}, log)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Interface compliance", func() {
		It("should implement vector.Driver interface", func() {
			var _ vector.Driver = (*sqlitevec.SQLiteVecDriver)(nil)
		})
	})

	Context("with an open driver", func() {
		var (
			ctx    context.Context
			driver *sqlitevec.SQLiteVecDriver
		)

		BeforeEach(func() {
			ctx = context.Background()
			var err error
			driver, err = sqlitevec.NewSQLiteVecDriver(sqlitevec.Config{
				DBPath:     ":memory:",
				Dimensions: 2,
			}, log)
			Expect(err).NotTo(HaveOccurred())
		})

		AfterEach(func() {
			Expect(driver.Close()).To(Succeed())
		})

		Describe("Add", func() {
			It("should do nothing when given empty docs", func() {
				Expect(driver.Add(ctx, []vector.Document{})).To(Succeed())
			})

			It("should store text and embedding", func() {
				Expect(driver.Add(ctx, []vector.Document{
					{ID: "d1", Text: "cats", Embedding: []float32{1, 0}},
				})).To(Succeed())

				docs, err := driver.Get(ctx, []string{"d1"})
				Expect(err).NotTo(HaveOccurred())
				Expect(docs).To(HaveLen(1))
				Expect(docs[0].Text).To(Equal("cats"))
				Expect(docs[0].Embedding).To(Equal([]float32{1, 0}))
			})

			It("should reject an existing ID without changing the store", func() {
				Expect(driver.Add(ctx, []vector.Document{
					{ID: "d1", Text: "cats", Embedding: []float32{1, 0}},
				})).To(Succeed())

				err := driver.Add(ctx, []vector.Document{
					{ID: "d2", Text: "dogs", Embedding: []float32{0, 1}},
					{ID: "d1", Text: "other", Embedding: []float32{0, 1}},
				})
				Expect(err).To(MatchError(vector.ErrDuplicateDocument))

				size, err := driver.Size(ctx)
				Expect(err).NotTo(HaveOccurred())
				Expect(size).To(Equal(1))
			})

			It("should reject a mismatched dimension", func() {
				err := driver.Add(ctx, []vector.Document{
					{ID: "d1", Embedding: []float32{1, 0, 0}},
				})
				Expect(err).To(MatchError(vector.ErrDimensionMismatch))
			})
		})

		Describe("Query", func() {
			BeforeEach(func() {
				Expect(driver.Add(ctx, []vector.Document{
					{ID: "d1", Text: "cats", Embedding: []float32{1, 0}},
					{ID: "d2", Text: "dogs", Embedding: []float32{0, 1}},
				})).To(Succeed())
			})

			It("should return the exact match first with score 1", func() {
				results, err := driver.Query(ctx, []float32{1, 0}, 1)
				Expect(err).NotTo(HaveOccurred())
				Expect(results).To(HaveLen(1))
				Expect(results[0].ID).To(Equal("d1"))
				Expect(results[0].Text).To(Equal("cats"))
				Expect(results[0].Score).To(BeNumerically("~", 1.0, 1e-5))
			})

			It("should keep insertion order for equal scores", func() {
				results, err := driver.Query(ctx, []float32{0.7, 0.7}, 2)
				Expect(err).NotTo(HaveOccurred())
				Expect(results).To(HaveLen(2))
				Expect(results[0].ID).To(Equal("d1"))
				Expect(results[1].ID).To(Equal("d2"))
				Expect(results[0].Score).To(BeNumerically("~", 0.7071, 1e-3))
			})

			It("should reject topK below 1", func() {
				_, err := driver.Query(ctx, []float32{1, 0}, 0)
				Expect(err).To(MatchError(vector.ErrInvalidTopK))
			})

			It("should cap results at the number of documents", func() {
				results, err := driver.Query(ctx, []float32{1, 1}, 10)
				Expect(err).NotTo(HaveOccurred())
				Expect(results).To(HaveLen(2))
			})
		})

		Describe("Clear", func() {
			It("should empty the store", func() {
				Expect(driver.Add(ctx, []vector.Document{
					{ID: "d1", Embedding: []float32{1, 0}},
				})).To(Succeed())
				Expect(driver.Clear(ctx)).To(Succeed())

				size, err := driver.Size(ctx)
				Expect(err).NotTo(HaveOccurred())
				Expect(size).To(BeZero())

				results, err := driver.Query(ctx, []float32{1, 0}, 3)
				Expect(err).NotTo(HaveOccurred())
				Expect(results).To(BeEmpty())
			})
		})
	})

	It("should persist documents across reopen", func() {
		ctx := context.Background()
		path := filepath.Join(GinkgoT().TempDir(), "vectors.db")

		driver, err := sqlitevec.NewSQLiteVecDriver(sqlitevec.Config{DBPath: path, Dimensions: 2}, log)
		Expect(err).NotTo(HaveOccurred())
		Expect(driver.Add(ctx, []vector.Document{{ID: "d1", Text: "cats", Embedding: []float32{1, 0}}})).To(Succeed())
		Expect(driver.Close()).To(Succeed())

		driver, err = sqlitevec.NewSQLiteVecDriver(sqlitevec.Config{DBPath: path, Dimensions: 2}, log)
		Expect(err).NotTo(HaveOccurred())
		defer driver.Close()

		size, err := driver.Size(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(size).To(Equal(1))
	})
})
