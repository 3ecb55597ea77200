package feed_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pumpline/fuel-ledger/feed"
	"github.com/pumpline/fuel-ledger/ledger"
	"github.com/pumpline/fuel-ledger/ledger/store"
)

// =============================================================================
// TEST INFRASTRUCTURE
// =============================================================================

var day = time.Date(2024, time.March, 1, 8, 0, 0, 0, time.UTC)

func seededStore(t *testing.T) *store.Memory {
	t.Helper()
	ctx := context.Background()
	m := store.NewMemory()
	require.NoError(t, m.SaveCustomer(ctx, ledger.Customer{ID: "A", Name: "Alpha"}))
	require.NoError(t, m.AppendSale(ctx, ledger.Sale{
		ID: "s1", At: day, FuelType: ledger.FuelDiesel, CustomerID: "A",
		Volume: ledger.Litres(10), Total: ledger.Money(5000), PaymentMethod: ledger.PaymentCredit,
	}))
	require.NoError(t, m.AppendPayment(ctx, ledger.CustomerPayment{
		ID: "p1", At: day, CustomerID: "A", Amount: ledger.Money(2000),
	}))
	return m
}

// gatedSource blocks ListPayments until release is closed, and fails it
// while failPayments is set.
type gatedSource struct {
	*store.Memory
	release      chan struct{}
	failPayments atomic.Bool
	calls        atomic.Int32
}

func (g *gatedSource) ListPayments(ctx context.Context) ([]ledger.CustomerPayment, error) {
	g.calls.Add(1)
	if g.release != nil {
		select {
		case <-g.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if g.failPayments.Load() {
		return nil, errors.New("payments backend unavailable")
	}
	return g.Memory.ListPayments(ctx)
}

// =============================================================================
// BARRIER
// =============================================================================

func TestFeed_NotReadyBeforeLoad(t *testing.T) {
	f := feed.New(nil)

	r := f.Current()
	assert.False(t, r.IsReady())
	assert.ElementsMatch(t, ledger.AllSources, r.Pending())
}

func TestFeed_LoadOpensBarrier(t *testing.T) {
	// GIVEN: A seeded store
	f := feed.New(nil)

	// WHEN: Loading
	require.NoError(t, f.Load(context.Background(), seededStore(t)))

	// THEN: Ready, and figures come from the loaded records
	snap, ok := f.Current().Snapshot()
	require.True(t, ok)
	assert.Equal(t, "3000", snap.Breakdown("A").Balance.String())
	assert.GreaterOrEqual(t, uint64(snap.Generation), uint64(len(ledger.AllSources)))
}

func TestFeed_OneFailedSourceKeepsBarrierClosed(t *testing.T) {
	// GIVEN: Payments cannot be listed
	src := &gatedSource{Memory: seededStore(t)}
	src.failPayments.Store(true)
	f := feed.New(nil)

	// WHEN
	err := f.Load(context.Background(), src)

	// THEN: The error surfaces and the barrier names payments
	require.Error(t, err)
	r := f.Current()
	assert.False(t, r.IsReady())
	assert.Contains(t, r.Pending(), ledger.SourcePayments)
}

func TestFeed_GenerationIncreasesOnEveryChange(t *testing.T) {
	f := feed.New(nil)
	require.NoError(t, f.Load(context.Background(), store.NewMemory()))
	before := f.Generation()

	f.AddSale(ledger.Sale{ID: "new", FuelType: ledger.FuelPetrol, Volume: ledger.Litres(1), Total: ledger.Money(1)})

	assert.Equal(t, before+1, f.Generation())
	snap, ok := f.Current().Snapshot()
	require.True(t, ok)
	assert.Len(t, snap.Sales, 1)
}

func TestFeed_ResetClosesBarrier(t *testing.T) {
	f := feed.New(nil)
	require.NoError(t, f.Load(context.Background(), seededStore(t)))
	gen := f.Generation()

	f.Reset()

	assert.False(t, f.Current().IsReady())
	assert.Greater(t, f.Generation(), gen)
}

func TestFeed_RecordsAddedDuringLoadAreKept(t *testing.T) {
	// GIVEN: A load stuck on payments
	src := &gatedSource{Memory: seededStore(t), release: make(chan struct{})}
	f := feed.New(nil)

	done := make(chan error, 1)
	go func() { done <- f.Load(context.Background(), src) }()

	// WHEN: A payment is published while the load is in flight
	require.Eventually(t, func() bool { return src.calls.Load() > 0 }, time.Second, 5*time.Millisecond)
	f.AddPayment(ledger.CustomerPayment{ID: "live", At: day, CustomerID: "A", Amount: ledger.Money(500)})
	close(src.release)
	require.NoError(t, <-done)

	// THEN: Both the stored and the live payment are present
	snap, ok := f.Current().Snapshot()
	require.True(t, ok)
	assert.Len(t, snap.Payments, 2)
	assert.Equal(t, "2500", snap.Breakdown("A").Balance.String())
}

func TestFeed_SnapshotUnaffectedByLaterAdds(t *testing.T) {
	f := feed.New(nil)
	require.NoError(t, f.Load(context.Background(), seededStore(t)))
	snap, _ := f.Current().Snapshot()

	f.AddSale(ledger.Sale{ID: "s2", CustomerID: "A", FuelType: ledger.FuelDiesel, Total: ledger.Money(100), Volume: ledger.Litres(1)})
	f.AddCustomer(ledger.Customer{ID: "A", Name: "Renamed"})

	assert.Len(t, snap.Sales, 1)
	assert.Equal(t, "Alpha", snap.Customers[0].Name)
}

// =============================================================================
// OBSERVERS
// =============================================================================

func TestFeed_SubscribeDeliversCurrentThenLatest(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f := feed.New(nil)

	ch := f.Subscribe(ctx)
	first := <-ch
	assert.False(t, first.IsReady())

	require.NoError(t, f.Load(context.Background(), store.NewMemory()))

	// Latest-wins: the next value is at least as new as the ready state
	latest := <-ch
	assert.True(t, latest.IsReady())
	assert.Equal(t, f.Generation(), latest.Generation())
}

func TestFeed_SubscribeClosesOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	f := feed.New(nil)
	ch := f.Subscribe(ctx)
	<-ch

	cancel()

	require.Eventually(t, func() bool {
		select {
		case _, open := <-ch:
			return !open
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)

	// Publishing after teardown must not panic
	f.AddCustomer(ledger.Customer{ID: "late"})
}

func TestFeed_AwaitBlocksUntilReady(t *testing.T) {
	f := feed.New(nil)
	var (
		wg   sync.WaitGroup
		snap ledger.Snapshot
		err  error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		snap, err = f.Await(context.Background())
	}()

	require.NoError(t, f.Load(context.Background(), seededStore(t)))
	wg.Wait()

	require.NoError(t, err)
	assert.Len(t, snap.Customers, 1)
}

func TestFeed_AwaitCancelledReturnsContextError(t *testing.T) {
	// GIVEN: A feed that never loads
	f := feed.New(nil)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	// WHEN
	_, err := f.Await(ctx)

	// THEN: The observer gets ctx.Err(), not a snapshot
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFeed_AwaitOnReadyFeedWithCancelledContext(t *testing.T) {
	// GIVEN: A loaded feed and an observer that has already gone away
	f := feed.New(nil)
	require.NoError(t, f.Load(context.Background(), seededStore(t)))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// WHEN
	snap, err := f.Await(ctx)

	// THEN: No snapshot is handed to the dead observer
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, snap.Customers)
}

func TestFeed_SubscribeWithCancelledContextDeliversNothing(t *testing.T) {
	// GIVEN: A loaded feed
	f := feed.New(nil)
	require.NoError(t, f.Load(context.Background(), seededStore(t)))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// WHEN: Subscribing after the context ended
	ch := f.Subscribe(ctx)

	// THEN: The channel closes without ever carrying a state
	var received int
	for range ch {
		received++
	}
	assert.Zero(t, received)
}

// =============================================================================
// REFRESHER
// =============================================================================

func TestRefresher_RetriesUntilReady(t *testing.T) {
	// GIVEN: Payments fail at first
	src := &gatedSource{Memory: seededStore(t)}
	src.failPayments.Store(true)
	f := feed.New(nil)

	r := feed.NewRefresher(f, src, 10*time.Millisecond, nil)
	r.Start()
	defer r.Stop()

	require.Eventually(t, func() bool { return src.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	assert.False(t, f.Current().IsReady())

	// WHEN: The backend recovers
	src.failPayments.Store(false)

	// THEN: The refresher opens the barrier and exits
	require.Eventually(t, func() bool { return f.Current().IsReady() }, time.Second, 5*time.Millisecond)
	select {
	case <-r.Done():
	case <-time.After(time.Second):
		t.Fatal("refresher did not exit after ready")
	}
}

func TestRefresher_StopIsIdempotent(t *testing.T) {
	src := &gatedSource{Memory: seededStore(t)}
	src.failPayments.Store(true)
	r := feed.NewRefresher(feed.New(nil), src, time.Hour, nil)

	r.Start()
	r.Start()
	r.Stop()
	r.Stop()
}
