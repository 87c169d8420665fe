package ingest

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"time"

	"github.com/fsnotify/fsnotify"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/ragloop/pkg/logger"
	testutils "github.com/papercomputeco/ragloop/pkg/utils/test"
	"github.com/papercomputeco/ragloop/pkg/vector/inmemory"
)

var _ = Describe("watch loop", func() {
	It("releases settled files when the event stream closes", func() {
		in, err := New(Config{
			Embedder: testutils.NewMockEmbedder(),
			Index:    inmemory.NewIndex(inmemory.Config{}, logger.Nop()),
			Logger:   logger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())

		dir := GinkgoT().TempDir()
		events := make(chan fsnotify.Event, 32)
		errs := make(chan error)
		for i := range 32 {
			events <- fsnotify.Event{Name: filepath.Join(dir, fmt.Sprintf("f%d.txt", i)), Op: fsnotify.Create}
		}

		before := runtime.NumGoroutine()
		returned := make(chan error, 1)
		go func() { returned <- in.watch(context.Background(), dir, events, errs, time.Millisecond) }()

		// Let the settle timers fire before the stream ends.
		time.Sleep(50 * time.Millisecond)
		close(events)

		Eventually(returned).Should(Receive(BeNil()))
		Eventually(runtime.NumGoroutine).WithTimeout(2 * time.Second).Should(BeNumerically("<=", before))
	})
})
