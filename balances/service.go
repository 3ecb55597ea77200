/*
Package balances answers single-customer balance queries on demand.

PURPOSE:
  Many independent callers (statement screens, the defaulter badge, the
  sale form's credit hint) ask for one customer's balance at a time. The
  Service memoizes results so each render doesn't rescan every collection.

CACHE:
  Entries are tagged with the collections generation they were computed
  against. The cache holds exactly one generation:
  - Lookup at the cached generation → hit
  - Lookup at a newer generation  → the whole cache is replaced, never
    patched per key
  - A result computed against an older generation is dropped, not stored
  So a caller can never receive a balance that mixes old and new records.

STORAGE:
  Arena + index: breakdowns live in a slice, an id → slot map points into it.

SEE ALSO:
  - ledger/balance.go: The computation being memoized
  - feed/feed.go: Source of Readiness and generations
*/
package balances

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/pumpline/fuel-ledger/ledger"
	"github.com/pumpline/fuel-ledger/metrics"
)

// SnapshotProvider yields the current joined state. *feed.Feed satisfies it.
type SnapshotProvider interface {
	Current() ledger.Readiness
}

// Service is safe for concurrent use.
type Service struct {
	provider SnapshotProvider

	mu    sync.Mutex
	cache *generationCache
}

func NewService(provider SnapshotProvider) *Service {
	return &Service{provider: provider}
}

// =============================================================================
// QUERIES
// =============================================================================

// BalanceOf returns the customer's balance, or a NotReadyError while the
// collections are loading. Unknown ids yield zero.
func (s *Service) BalanceOf(ctx context.Context, id ledger.CustomerID) (ledger.Amount, error) {
	b, err := s.BreakdownOf(ctx, id)
	if err != nil {
		return ledger.Amount{}, err
	}
	return b.Balance, nil
}

// Resolution is one customer's breakdown together with the snapshot facts
// a caller needs to present it.
type Resolution struct {
	ledger.BalanceBreakdown
	Generation ledger.Generation
	// Known is false when the snapshot holds no customer entry for the id.
	Known bool
}

// HasActivity reports whether any record touched the customer.
func (r Resolution) HasActivity() bool {
	return !r.Sales.IsZero() || !r.Advances.IsZero() || !r.Payments.IsZero()
}

// Resolve answers a point query against the current snapshot.
func (s *Service) Resolve(ctx context.Context, id ledger.CustomerID) (Resolution, error) {
	if err := ctx.Err(); err != nil {
		return Resolution{}, err
	}
	snap, err := s.snapshot()
	if err != nil {
		return Resolution{}, err
	}
	_, known := snap.Customer(id)
	return Resolution{
		BalanceBreakdown: s.lookup(snap, id),
		Generation:       snap.Generation,
		Known:            known,
	}, nil
}

// BreakdownOf returns the customer's balance with its component sums.
func (s *Service) BreakdownOf(ctx context.Context, id ledger.CustomerID) (ledger.BalanceBreakdown, error) {
	res, err := s.Resolve(ctx, id)
	if err != nil {
		return ledger.BalanceBreakdown{}, err
	}
	return res.BalanceBreakdown, nil
}

// BreakdownIn resolves against a snapshot the caller already holds, so the
// result shares a generation with whatever else the caller reads from it.
func (s *Service) BreakdownIn(snap ledger.Snapshot, id ledger.CustomerID) ledger.BalanceBreakdown {
	return s.lookup(snap, id)
}

// BalancesOf resolves many customers against the current snapshot.
func (s *Service) BalancesOf(ctx context.Context, ids []ledger.CustomerID) (map[ledger.CustomerID]ledger.BalanceBreakdown, error) {
	snap, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	list, err := s.BalancesIn(ctx, snap, ids)
	if err != nil {
		return nil, err
	}

	out := make(map[ledger.CustomerID]ledger.BalanceBreakdown, len(ids))
	for i, id := range ids {
		out[id] = list[i]
	}
	return out, nil
}

// BalancesIn resolves ids against snap, in the order given. Misses are
// computed concurrently; customers share no state so no coordination is
// needed beyond the cache insert.
func (s *Service) BalancesIn(ctx context.Context, snap ledger.Snapshot, ids []ledger.CustomerID) ([]ledger.BalanceBreakdown, error) {
	results := make([]ledger.BalanceBreakdown, len(ids))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = s.lookup(snap, id)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Generation reports the generation currently cached, zero if empty.
func (s *Service) Generation() ledger.Generation {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cache == nil {
		return 0
	}
	return s.cache.generation
}

func (s *Service) snapshot() (ledger.Snapshot, error) {
	r := s.provider.Current()
	snap, ok := r.Snapshot()
	if !ok {
		return ledger.Snapshot{}, r.Err()
	}
	return snap, nil
}

func (s *Service) lookup(snap ledger.Snapshot, id ledger.CustomerID) ledger.BalanceBreakdown {
	s.mu.Lock()
	if s.cache == nil || s.cache.generation < snap.Generation {
		s.cache = newGenerationCache(snap.Generation)
	}
	if s.cache.generation == snap.Generation {
		if b, ok := s.cache.get(id); ok {
			s.mu.Unlock()
			metrics.IncBalanceLookup(metrics.CacheHit)
			return b
		}
	}
	s.mu.Unlock()
	metrics.IncBalanceLookup(metrics.CacheMiss)

	b := snap.Breakdown(id)

	s.mu.Lock()
	if s.cache.generation == snap.Generation {
		s.cache.put(id, b)
	}
	s.mu.Unlock()
	return b
}

// =============================================================================
// GENERATION CACHE
// =============================================================================

type generationCache struct {
	generation ledger.Generation
	arena      []ledger.BalanceBreakdown
	index      map[ledger.CustomerID]int
}

func newGenerationCache(gen ledger.Generation) *generationCache {
	return &generationCache{
		generation: gen,
		index:      make(map[ledger.CustomerID]int),
	}
}

func (c *generationCache) get(id ledger.CustomerID) (ledger.BalanceBreakdown, bool) {
	slot, ok := c.index[id]
	if !ok {
		return ledger.BalanceBreakdown{}, false
	}
	return c.arena[slot], true
}

func (c *generationCache) put(id ledger.CustomerID, b ledger.BalanceBreakdown) {
	if _, ok := c.index[id]; ok {
		return
	}
	c.index[id] = len(c.arena)
	c.arena = append(c.arena, b)
}
