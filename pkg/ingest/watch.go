package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
)

// settleDelay lets a burst of write events for one file finish before it is read.
const settleDelay = 250 * time.Millisecond

// Watch ingests matching files created or written in dir until ctx ends.
// Files present before Watch starts are left to IngestDir.
func (in *Ingester) Watch(ctx context.Context, dir string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	in.logger.Info("watching for documents", "dir", dir)

	return in.watch(ctx, dir, watcher.Events, watcher.Errors, settleDelay)
}

// watch runs the event loop of Watch. A file is ingested once no event for
// it has arrived for settle.
func (in *Ingester) watch(ctx context.Context, dir string, events <-chan fsnotify.Event, errs <-chan error, settle time.Duration) error {
	// done releases settle timers that fire after the loop has returned.
	done := make(chan struct{})
	defer close(done)

	ready := make(chan string)
	pending := map[string]*time.Timer{}
	defer func() {
		for _, t := range pending {
			t.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !in.matches(event.Name) {
				continue
			}
			path := event.Name
			if t, ok := pending[path]; ok {
				t.Reset(settle)
				continue
			}
			pending[path] = time.AfterFunc(settle, func() {
				select {
				case ready <- path:
				case <-done:
				}
			})

		case path := <-ready:
			delete(pending, path)
			source := sourceName(dir, path)
			ids, err := in.IngestFile(ctx, source, path)
			switch {
			case errors.Is(err, ErrAlreadyIngested):
				in.logger.Warn("file changed after ingest, documents are immutable", "source", source)
			case err != nil:
				in.logger.Error("ingest failed", "source", source, "error", err)
			default:
				in.logger.Info("ingested file", "source", source, "chunks", len(ids))
			}

		case err, ok := <-errs:
			if !ok {
				return nil
			}
			in.logger.Warn("watcher error", "error", err)
		}
	}
}
