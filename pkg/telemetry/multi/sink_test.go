package multi_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/ragloop/pkg/telemetry"
	"github.com/papercomputeco/ragloop/pkg/telemetry/multi"
	testutils "github.com/papercomputeco/ragloop/pkg/utils/test"
)

var _ = Describe("Sink", func() {
	var a, b *testutils.MockSink

	BeforeEach(func() {
		a = testutils.NewMockSink()
		b = testutils.NewMockSink()
	})

	It("skips nil sinks", func() {
		Expect(multi.New(a, nil, b).Len()).To(Equal(2))
	})

	It("delivers to every sink", func() {
		s := multi.New(a, b)
		rec := telemetry.NewRecord("trace-1")

		Expect(s.Record(context.Background(), rec)).To(Succeed())
		Expect(a.Records()).To(ConsistOf(rec))
		Expect(b.Records()).To(ConsistOf(rec))
	})

	It("keeps delivering after a failure and joins errors", func() {
		a.Err = errors.New("broker down")
		s := multi.New(a, b)

		err := s.Record(context.Background(), telemetry.NewRecord(""))
		Expect(err).To(MatchError(ContainSubstring("broker down")))
		Expect(b.Records()).To(HaveLen(1))
	})

	It("rejects nil records", func() {
		Expect(multi.New(a).Record(context.Background(), nil)).To(MatchError(telemetry.ErrNilRecord))
	})

	It("closes every sink", func() {
		Expect(multi.New(a, b).Close()).To(Succeed())
		Expect(a.Closed()).To(BeTrue())
		Expect(b.Closed()).To(BeTrue())
	})
})
