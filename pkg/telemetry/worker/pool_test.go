package worker_test

import (
	"bytes"
	"context"
	"errors"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/ragloop/pkg/logger"
	"github.com/papercomputeco/ragloop/pkg/telemetry"
	"github.com/papercomputeco/ragloop/pkg/telemetry/worker"
	testutils "github.com/papercomputeco/ragloop/pkg/utils/test"
)

// blockingSink holds every delivery until release is closed.
type blockingSink struct {
	release chan struct{}
	mu      sync.Mutex
	count   int
}

func (b *blockingSink) Record(_ context.Context, _ *telemetry.Record) error {
	<-b.release
	b.mu.Lock()
	b.count++
	b.mu.Unlock()
	return nil
}

func (b *blockingSink) Close() error { return nil }

var _ = Describe("Worker Pool", func() {
	var sink *testutils.MockSink

	BeforeEach(func() {
		sink = testutils.NewMockSink()
	})

	It("requires a sink", func() {
		_, err := worker.NewPool(&worker.Config{})
		Expect(err).To(HaveOccurred())
	})

	It("delivers every queued record before Close returns", func() {
		wp, err := worker.NewPool(&worker.Config{Sink: sink, Logger: logger.Nop()})
		Expect(err).NotTo(HaveOccurred())

		for range 10 {
			Expect(wp.Enqueue(telemetry.NewRecord(""))).To(BeTrue())
		}
		Expect(wp.Close()).To(Succeed())

		Expect(sink.Records()).To(HaveLen(10))
		Expect(sink.Closed()).To(BeTrue())
	})

	It("drops records when the queue is full", func() {
		blocking := &blockingSink{release: make(chan struct{})}
		wp, err := worker.NewPool(&worker.Config{
			Sink:       blocking,
			NumWorkers: 1,
			QueueSize:  1,
			Logger:     logger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())

		// One record in flight, one queued, the rest must be dropped.
		accepted := 0
		for range 5 {
			if wp.Enqueue(telemetry.NewRecord("")) {
				accepted++
			}
		}
		Expect(accepted).To(BeNumerically("<=", 2))
		Expect(accepted).To(BeNumerically(">=", 1))

		close(blocking.release)
		Expect(wp.Close()).To(Succeed())
		Expect(blocking.count).To(Equal(accepted))
	})

	It("returns a full queue to the caller without logging the drop", func() {
		var buf bytes.Buffer
		blocking := &blockingSink{release: make(chan struct{})}
		wp, err := worker.NewPool(&worker.Config{
			Sink:       blocking,
			NumWorkers: 1,
			QueueSize:  1,
			Logger:     logger.New(logger.WithWriter(&buf), logger.WithJSON(true)),
		})
		Expect(err).NotTo(HaveOccurred())

		var dropped error
		for range 5 {
			if err := wp.Record(context.Background(), telemetry.NewRecord("t")); err != nil {
				dropped = err
			}
		}
		Expect(errors.Is(dropped, telemetry.ErrTelemetry)).To(BeTrue())
		Expect(errors.Is(dropped, worker.ErrQueueFull)).To(BeTrue())
		Expect(buf.String()).To(BeEmpty())

		close(blocking.release)
		Expect(wp.Close()).To(Succeed())
	})

	It("reports dropped records as telemetry errors through Record", func() {
		wp, err := worker.NewPool(&worker.Config{Sink: sink, Logger: logger.Nop()})
		Expect(err).NotTo(HaveOccurred())
		Expect(wp.Close()).To(Succeed())

		err = wp.Record(context.Background(), telemetry.NewRecord(""))
		Expect(errors.Is(err, telemetry.ErrTelemetry)).To(BeTrue())
		Expect(errors.Is(err, worker.ErrPoolClosed)).To(BeTrue())
	})

	It("logs and swallows downstream failures", func() {
		sink.Err = errors.New("unreachable")
		wp, err := worker.NewPool(&worker.Config{Sink: sink, Logger: logger.Nop()})
		Expect(err).NotTo(HaveOccurred())

		Expect(wp.Record(context.Background(), telemetry.NewRecord(""))).To(Succeed())
		Expect(wp.Close()).To(Succeed())
		Expect(sink.Records()).To(HaveLen(1))
	})

	It("tolerates a second Close", func() {
		wp, _ := worker.NewPool(&worker.Config{Sink: sink, Logger: logger.Nop()})
		Expect(wp.Close()).To(Succeed())
		Expect(wp.Close()).To(Succeed())
	})
})
