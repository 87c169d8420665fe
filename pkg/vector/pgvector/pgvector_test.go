package pgvector_test

import (
	"context"
	"fmt"
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/ragloop/pkg/logger"
	"github.com/papercomputeco/ragloop/pkg/vector"
	"github.com/papercomputeco/ragloop/pkg/vector/pgvector"
)

// Set RAGLOOP_TEST_POSTGRES_DSN to a database with the vector extension
// available to run the integration specs.
const dsnEnv = "RAGLOOP_TEST_POSTGRES_DSN"

var _ = Describe("PgVectorDriver", func() {
	Describe("NewPgVectorDriver", func() {
		It("should require a DSN", func() {
			_, err := pgvector.NewPgVectorDriver(context.Background(), pgvector.Config{Dimensions: 2}, logger.Nop())
			Expect(err).To(MatchError(ContainSubstring("DSN is required")))
		})

		It("should require dimensions", func() {
			_, err := pgvector.NewPgVectorDriver(context.Background(), pgvector.Config{DSN: "postgres://localhost/x"}, logger.Nop())
			Expect(err).To(MatchError(ContainSubstring("dimensions cannot be 0")))
		})

		It("should reject unsafe table names", func() {
			_, err := pgvector.NewPgVectorDriver(context.Background(), pgvector.Config{
				DSN:        "postgres://localhost/x",
				Dimensions: 2,
				Table:      "docs; DROP TABLE users",
			}, logger.Nop())
			Expect(err).To(MatchError(ContainSubstring("invalid table name")))
		})
	})

	Describe("Interface compliance", func() {
		It("should implement vector.Driver interface", func() {
			var _ vector.Driver = (*pgvector.PgVectorDriver)(nil)
		})
	})

	Context("against a live database", func() {
		var (
			ctx    context.Context
			driver *pgvector.PgVectorDriver
		)

		BeforeEach(func() {
			dsn := os.Getenv(dsnEnv)
			if dsn == "" {
				Skip(dsnEnv + " not set")
			}
			ctx = context.Background()

			var err error
			driver, err = pgvector.NewPgVectorDriver(ctx, pgvector.Config{
				DSN:        dsn,
				Table:      fmt.Sprintf("ragloop_test_%d", time.Now().UnixNano()),
				Dimensions: 2,
			}, logger.Nop())
			Expect(err).NotTo(HaveOccurred())

			Expect(driver.Add(ctx, []vector.Document{
				{ID: "d1", Text: "cats", Embedding: []float32{1, 0}},
				{ID: "d2", Text: "dogs", Embedding: []float32{0, 1}},
			})).To(Succeed())
		})

		AfterEach(func() {
			if driver != nil {
				Expect(driver.Clear(ctx)).To(Succeed())
				Expect(driver.Close()).To(Succeed())
			}
		})

		It("should return the exact match first", func() {
			results, err := driver.Query(ctx, []float32{1, 0}, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(1))
			Expect(results[0].ID).To(Equal("d1"))
			Expect(results[0].Score).To(BeNumerically("~", 1.0, 1e-5))
		})

		It("should keep insertion order for ties", func() {
			results, err := driver.Query(ctx, []float32{0.7, 0.7}, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(results[0].ID).To(Equal("d1"))
			Expect(results[1].ID).To(Equal("d2"))
		})

		It("should reject duplicates", func() {
			err := driver.Add(ctx, []vector.Document{{ID: "d1", Embedding: []float32{1, 1}}})
			Expect(err).To(MatchError(vector.ErrDuplicateDocument))
		})

		It("should fetch stored documents", func() {
			docs, err := driver.Get(ctx, []string{"d2"})
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(HaveLen(1))
			Expect(docs[0].Text).To(Equal("dogs"))
			Expect(docs[0].Embedding).To(Equal([]float32{0, 1}))
		})
	})
})
