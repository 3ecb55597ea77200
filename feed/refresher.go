/*
refresher.go - Background loader with retry

PURPOSE:
  A collection whose load fails leaves the barrier closed and observers in
  a persistent "loading" state. The Refresher retries the load on an
  interval until every collection has arrived, then exits.

DESIGN:
  - Runs a background goroutine with a configurable retry interval
  - Attempts the first load immediately on Start
  - Stops retrying once Feed reports ready
  - Stop cancels an in-flight load and waits for the goroutine

USAGE:
  r := feed.NewRefresher(f, store, 5*time.Second, log)
  r.Start()
  // ... later
  r.Stop()
*/
package feed

import (
	"context"
	"sync"
	"time"

	"github.com/pumpline/fuel-ledger/ledger"
	"github.com/pumpline/fuel-ledger/pkg/logger"
)

// Refresher keeps retrying Feed.Load until the barrier is satisfied.
type Refresher struct {
	Feed          *Feed
	Source        ledger.RecordSource
	RetryInterval time.Duration

	log    *logger.Logger
	cancel context.CancelFunc
	done   chan struct{}
	mu     sync.Mutex
}

// NewRefresher creates a refresher. It does nothing until Start.
func NewRefresher(f *Feed, src ledger.RecordSource, interval time.Duration, log *logger.Logger) *Refresher {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Refresher{
		Feed:          f,
		Source:        src,
		RetryInterval: interval,
		log:           log.WithComponent("refresher"),
	}
}

// Start begins loading in the background. Calling Start twice is a no-op.
func (r *Refresher) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.done != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.done = make(chan struct{})

	go r.run(ctx, r.done)
	r.log.Infow("started", "retry_interval", r.RetryInterval)
}

// Stop cancels loading and waits for the goroutine to exit.
func (r *Refresher) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.done == nil {
		return
	}
	r.cancel()
	<-r.done
	r.done = nil
	r.log.Infow("stopped")
}

// Done is closed when the refresher exits, either ready or stopped.
func (r *Refresher) Done() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done
}

func (r *Refresher) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(r.RetryInterval)
	defer ticker.Stop()

	for attempt := 1; ; attempt++ {
		err := r.Feed.Load(ctx, r.Source)
		if err == nil && r.Feed.Current().IsReady() {
			r.log.Infow("collections loaded", "attempt", attempt, "generation", r.Feed.Generation())
			return
		}
		if ctx.Err() != nil {
			return
		}
		r.log.Warnw("load incomplete, retrying", "attempt", attempt, "error", err)

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}
