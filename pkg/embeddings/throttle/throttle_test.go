package throttle_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/ragloop/pkg/embeddings/throttle"
	testutils "github.com/papercomputeco/ragloop/pkg/utils/test"
)

var _ = Describe("Wrap", func() {
	It("returns the embedder unchanged when disabled", func() {
		mock := testutils.NewMockEmbedder()
		Expect(throttle.Wrap(mock, throttle.Config{})).To(BeIdenticalTo(mock))
	})

	It("delegates and keeps the provider name", func() {
		mock := testutils.NewMockEmbedder()
		e := throttle.Wrap(mock, throttle.Config{RequestsPerSecond: 100, BurstSize: 5})

		_, err := e.Embed(context.Background(), "x")
		Expect(err).NotTo(HaveOccurred())
		Expect(mock.CallCount()).To(Equal(1))
		Expect(e.(*throttle.Embedder).Name()).To(Equal("mock"))
	})

	It("gives up when the context ends while waiting", func() {
		mock := testutils.NewMockEmbedder()
		e := throttle.Wrap(mock, throttle.Config{RequestsPerSecond: 0.01, BurstSize: 1})

		_, err := e.Embed(context.Background(), "first")
		Expect(err).NotTo(HaveOccurred())

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		_, err = e.Embed(ctx, "second")
		Expect(err).To(HaveOccurred())
		Expect(mock.CallCount()).To(Equal(1))
	})
})
