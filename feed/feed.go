/*
Package feed adapts a record store into a stream of joined snapshots.

PURPOSE:
  The collaborator layer delivers the record collections independently and
  asynchronously. Feed keeps the latest state of each collection, bumps a
  generation on every change, and publishes the joined Readiness so that
  nothing downstream ever computes from partial data.

EVENTS:
  Collection finished loading  → generation++ → Readiness published
  New record persisted (Add*)  → generation++ → Readiness published
  Reset                        → generation++ → NotReady published

OBSERVERS:
  Current():   Latest Readiness, non-blocking
  Subscribe(): Latest-wins channel, closed when the observer's context ends
  Await():     Blocks behind the barrier; a cancelled observer gets ctx.Err()
               and no result is ever published against it

SEE ALSO:
  - ledger/collection.go: Collections, Snapshot, Readiness
  - refresher.go: Retries a failed load until the barrier is satisfied
*/
package feed

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pumpline/fuel-ledger/ledger"
	"github.com/pumpline/fuel-ledger/metrics"
	"github.com/pumpline/fuel-ledger/pkg/logger"
)

// Feed is safe for concurrent use.
type Feed struct {
	mu      sync.Mutex
	cols    ledger.Collections
	subs    map[uint64]chan ledger.Readiness
	nextSub uint64
	log     *logger.Logger
}

// New creates a feed with every collection still loading.
func New(log *logger.Logger) *Feed {
	if log == nil {
		log = logger.Nop()
	}
	return &Feed{
		subs: make(map[uint64]chan ledger.Readiness),
		log:  log.WithComponent("feed"),
	}
}

// =============================================================================
// OBSERVERS
// =============================================================================

// Current returns the joined state right now.
func (f *Feed) Current() ledger.Readiness {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cols.Join()
}

// Generation returns the current collections generation.
func (f *Feed) Generation() ledger.Generation {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cols.Generation
}

// Subscribe delivers the current state immediately and every later change.
// Slow observers only see the latest state. The channel is closed once ctx
// is done and is never written after that.
func (f *Feed) Subscribe(ctx context.Context) <-chan ledger.Readiness {
	ch := make(chan ledger.Readiness, 1)

	f.mu.Lock()
	id := f.nextSub
	f.nextSub++
	f.subs[id] = ch
	if ctx.Err() == nil {
		ch <- f.cols.Join()
	}
	f.mu.Unlock()

	go func() {
		<-ctx.Done()
		f.mu.Lock()
		delete(f.subs, id)
		// drop any state that was never read
		select {
		case <-ch:
		default:
		}
		close(ch)
		f.mu.Unlock()
	}()
	return ch
}

// Await blocks until every collection has loaded or ctx ends. Once ctx is
// done it returns ctx.Err() even if the barrier is open.
func (f *Feed) Await(ctx context.Context) (ledger.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return ledger.Snapshot{}, err
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	for r := range f.Subscribe(ctx) {
		if err := ctx.Err(); err != nil {
			return ledger.Snapshot{}, err
		}
		if snap, ok := r.Snapshot(); ok {
			return snap, nil
		}
	}
	return ledger.Snapshot{}, ctx.Err()
}

// =============================================================================
// LOADING
// =============================================================================

// Load fetches every collection from src concurrently. Each collection is
// published as soon as it arrives; the barrier opens with the last one.
// Records added while a collection was loading are kept.
func (f *Feed) Load(ctx context.Context, src ledger.RecordSource) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return load(ctx, f, ledger.SourceCustomers, src.ListCustomers, func(c *ledger.Collections, recs []ledger.Customer) {
			c.Customers = ledger.Collection[ledger.Customer]{Records: merge(recs, c.Customers.Records, customerKey), Loaded: true}
		})
	})
	g.Go(func() error {
		return load(ctx, f, ledger.SourceSuppliers, src.ListSuppliers, func(c *ledger.Collections, recs []ledger.Supplier) {
			c.Suppliers = ledger.Collection[ledger.Supplier]{Records: merge(recs, c.Suppliers.Records, supplierKey), Loaded: true}
		})
	})
	g.Go(func() error {
		return load(ctx, f, ledger.SourceSales, src.ListSales, func(c *ledger.Collections, recs []ledger.Sale) {
			c.Sales = ledger.Collection[ledger.Sale]{Records: merge(recs, c.Sales.Records, saleKey), Loaded: true}
		})
	})
	g.Go(func() error {
		return load(ctx, f, ledger.SourcePurchases, src.ListPurchases, func(c *ledger.Collections, recs []ledger.Purchase) {
			c.Purchases = ledger.Collection[ledger.Purchase]{Records: merge(recs, c.Purchases.Records, purchaseKey), Loaded: true}
		})
	})
	g.Go(func() error {
		return load(ctx, f, ledger.SourceReturns, src.ListReturns, func(c *ledger.Collections, recs []ledger.PurchaseReturn) {
			c.Returns = ledger.Collection[ledger.PurchaseReturn]{Records: merge(recs, c.Returns.Records, returnKey), Loaded: true}
		})
	})
	g.Go(func() error {
		return load(ctx, f, ledger.SourcePayments, src.ListPayments, func(c *ledger.Collections, recs []ledger.CustomerPayment) {
			c.Payments = ledger.Collection[ledger.CustomerPayment]{Records: merge(recs, c.Payments.Records, paymentKey), Loaded: true}
		})
	})
	g.Go(func() error {
		return load(ctx, f, ledger.SourceAdvances, src.ListAdvances, func(c *ledger.Collections, recs []ledger.CashAdvance) {
			c.Advances = ledger.Collection[ledger.CashAdvance]{Records: merge(recs, c.Advances.Records, advanceKey), Loaded: true}
		})
	})

	return g.Wait()
}

func load[T any](
	ctx context.Context,
	f *Feed,
	name ledger.SourceName,
	list func(context.Context) ([]T, error),
	apply func(*ledger.Collections, []T),
) error {
	start := time.Now()
	recs, err := list(ctx)
	if err != nil {
		metrics.ObserveFeedLoad(string(name), metrics.ResultError, time.Since(start))
		f.log.Warnw("collection load failed", "source", name, "error", err)
		return fmt.Errorf("load %s: %w", name, err)
	}
	metrics.ObserveFeedLoad(string(name), metrics.ResultSuccess, time.Since(start))

	f.mutate(func(c *ledger.Collections) { apply(c, recs) })
	f.log.Debugw("collection loaded", "source", name, "records", len(recs))
	return nil
}

// Reset marks every collection as not loaded and drops its records.
func (f *Feed) Reset() {
	f.mutate(func(c *ledger.Collections) {
		gen := c.Generation
		*c = ledger.Collections{Generation: gen}
	})
}

// =============================================================================
// SNAPSHOT CHANGED EVENTS
// =============================================================================

func (f *Feed) AddCustomer(cust ledger.Customer) {
	f.mutate(func(c *ledger.Collections) {
		c.Customers.Records = upsert(c.Customers.Records, cust, customerKey)
	})
}

func (f *Feed) AddSupplier(s ledger.Supplier) {
	f.mutate(func(c *ledger.Collections) {
		c.Suppliers.Records = upsert(c.Suppliers.Records, s, supplierKey)
	})
}

func (f *Feed) AddSale(s ledger.Sale) {
	f.mutate(func(c *ledger.Collections) { c.Sales.Records = append(c.Sales.Records, s) })
}

func (f *Feed) AddPurchase(p ledger.Purchase) {
	f.mutate(func(c *ledger.Collections) { c.Purchases.Records = append(c.Purchases.Records, p) })
}

func (f *Feed) AddReturn(r ledger.PurchaseReturn) {
	f.mutate(func(c *ledger.Collections) { c.Returns.Records = append(c.Returns.Records, r) })
}

func (f *Feed) AddPayment(p ledger.CustomerPayment) {
	f.mutate(func(c *ledger.Collections) { c.Payments.Records = append(c.Payments.Records, p) })
}

func (f *Feed) AddAdvance(a ledger.CashAdvance) {
	f.mutate(func(c *ledger.Collections) { c.Advances.Records = append(c.Advances.Records, a) })
}

// mutate applies one change, bumps the generation and notifies observers.
// Appends only write past the length of any snapshot already handed out.
func (f *Feed) mutate(fn func(*ledger.Collections)) {
	f.mu.Lock()
	defer f.mu.Unlock()

	fn(&f.cols)
	f.cols.Generation++
	metrics.SetGeneration(uint64(f.cols.Generation))

	r := f.cols.Join()
	for _, ch := range f.subs {
		deliver(ch, r)
	}
}

// deliver replaces any undelivered state. Callers hold f.mu, so this is the
// only sender and the second send cannot block.
func deliver(ch chan ledger.Readiness, r ledger.Readiness) {
	select {
	case ch <- r:
	default:
		select {
		case <-ch:
		default:
		}
		ch <- r
	}
}

// =============================================================================
// HELPERS
// =============================================================================

func customerKey(c ledger.Customer) string       { return string(c.ID) }
func supplierKey(s ledger.Supplier) string       { return string(s.ID) }
func saleKey(s ledger.Sale) string               { return string(s.ID) }
func purchaseKey(p ledger.Purchase) string       { return string(p.ID) }
func returnKey(r ledger.PurchaseReturn) string   { return string(r.ID) }
func paymentKey(p ledger.CustomerPayment) string { return string(p.ID) }
func advanceKey(a ledger.CashAdvance) string     { return string(a.ID) }

// merge keeps the loaded order and appends live records the load missed.
func merge[T any](loaded, live []T, key func(T) string) []T {
	seen := make(map[string]bool, len(loaded))
	out := make([]T, 0, len(loaded)+len(live))
	for _, r := range loaded {
		seen[key(r)] = true
		out = append(out, r)
	}
	for _, r := range live {
		if !seen[key(r)] {
			out = append(out, r)
		}
	}
	return out
}

// upsert replaces in a fresh slice so snapshots holding the old one are
// unaffected.
func upsert[T any](recs []T, v T, key func(T) string) []T {
	for i := range recs {
		if key(recs[i]) == key(v) {
			next := slices.Clone(recs)
			next[i] = v
			return next
		}
	}
	return append(recs, v)
}
