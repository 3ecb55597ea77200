/*
collection.go - Join barrier over asynchronously loaded collections

PURPOSE:
  The collaborator layer delivers each record collection on its own
  schedule. A derived figure is only valid once every collection it reads
  has finished loading; before that, observers get an explicit NotReady,
  never a zero-filled or partially summed result.

KEY TYPES:
  Collection[T]: An ordered record sequence plus its one-way Loaded flag
  Collections:   The seven collections at one Generation
  Snapshot:      An immutable, fully loaded view of all collections
  Readiness:     Either NotReady(pending sources) or Ready(snapshot)

IMMUTABILITY:
  Snapshot slices are capacity-clipped. A writer appending to the live
  collection can never touch indexes a snapshot holder can see, and a holder
  appending to its snapshot gets a fresh backing array.

SEE ALSO:
  - feed/feed.go: Maintains Collections and publishes Readiness
*/
package ledger

import "slices"

// =============================================================================
// COLLECTION
// =============================================================================

// Collection is one record stream. Loaded flips once from false to true.
type Collection[T any] struct {
	Records []T
	Loaded  bool
}

// SourceName names a collection in NotReady diagnostics.
type SourceName string

const (
	SourceCustomers SourceName = "customers"
	SourceSuppliers SourceName = "suppliers"
	SourceSales     SourceName = "sales"
	SourcePurchases SourceName = "purchases"
	SourceReturns   SourceName = "purchase_returns"
	SourcePayments  SourceName = "customer_payments"
	SourceAdvances  SourceName = "cash_advances"
)

// AllSources lists every collection in a fixed order.
var AllSources = []SourceName{
	SourceCustomers, SourceSuppliers, SourceSales, SourcePurchases,
	SourceReturns, SourcePayments, SourceAdvances,
}

// Collections is the complete input state at one generation.
type Collections struct {
	Generation Generation
	Customers  Collection[Customer]
	Suppliers  Collection[Supplier]
	Sales      Collection[Sale]
	Purchases  Collection[Purchase]
	Returns    Collection[PurchaseReturn]
	Payments   Collection[CustomerPayment]
	Advances   Collection[CashAdvance]
}

// Pending lists the sources that have not finished loading.
func (c Collections) Pending() []SourceName {
	var pending []SourceName
	loaded := map[SourceName]bool{
		SourceCustomers: c.Customers.Loaded,
		SourceSuppliers: c.Suppliers.Loaded,
		SourceSales:     c.Sales.Loaded,
		SourcePurchases: c.Purchases.Loaded,
		SourceReturns:   c.Returns.Loaded,
		SourcePayments:  c.Payments.Loaded,
		SourceAdvances:  c.Advances.Loaded,
	}
	for _, name := range AllSources {
		if !loaded[name] {
			pending = append(pending, name)
		}
	}
	return pending
}

// Join applies the barrier: Ready only when every collection is loaded.
func (c Collections) Join() Readiness {
	if pending := c.Pending(); len(pending) > 0 {
		return NotReady(c.Generation, pending...)
	}
	return Ready(Snapshot{
		Generation: c.Generation,
		Customers:  slices.Clip(c.Customers.Records),
		Suppliers:  slices.Clip(c.Suppliers.Records),
		Sales:      slices.Clip(c.Sales.Records),
		Purchases:  slices.Clip(c.Purchases.Records),
		Returns:    slices.Clip(c.Returns.Records),
		Payments:   slices.Clip(c.Payments.Records),
		Advances:   slices.Clip(c.Advances.Records),
	})
}

// =============================================================================
// SNAPSHOT
// =============================================================================

// Snapshot is a fully loaded, read-only view of every collection.
// Any number of goroutines may read one concurrently without locking.
type Snapshot struct {
	Generation Generation
	Customers  []Customer
	Suppliers  []Supplier
	Sales      []Sale
	Purchases  []Purchase
	Returns    []PurchaseReturn
	Payments   []CustomerPayment
	Advances   []CashAdvance
}

// Customer looks up a customer by id.
func (s Snapshot) Customer(id CustomerID) (Customer, bool) {
	for _, c := range s.Customers {
		if c.ID == id {
			return c, true
		}
	}
	return Customer{}, false
}

// Breakdown computes a customer's balance breakdown from this snapshot.
func (s Snapshot) Breakdown(id CustomerID) BalanceBreakdown {
	return CustomerBreakdown(id, s.Sales, s.Advances, s.Payments)
}

// Stock computes current stock for a fuel type from this snapshot.
func (s Snapshot) Stock(fuel FuelType) Amount {
	return FuelStock(fuel, s.Purchases, s.Sales, s.Returns)
}

// =============================================================================
// READINESS - NotReady | Ready(snapshot)
// =============================================================================

type Readiness struct {
	generation Generation
	snapshot   *Snapshot
	pending    []SourceName
}

func NotReady(gen Generation, pending ...SourceName) Readiness {
	return Readiness{generation: gen, pending: pending}
}

func Ready(s Snapshot) Readiness {
	return Readiness{generation: s.Generation, snapshot: &s}
}

func (r Readiness) IsReady() bool { return r.snapshot != nil }

// Generation is the collections generation this state was observed at.
func (r Readiness) Generation() Generation { return r.generation }

// Pending lists the sources still loading; empty when ready.
func (r Readiness) Pending() []SourceName { return r.pending }

// Snapshot returns the joined snapshot, or false when not ready.
func (r Readiness) Snapshot() (Snapshot, bool) {
	if r.snapshot == nil {
		return Snapshot{}, false
	}
	return *r.snapshot, true
}

// Err returns a NotReadyError when the barrier is not satisfied.
func (r Readiness) Err() error {
	if r.IsReady() {
		return nil
	}
	return &NotReadyError{Generation: r.generation, Pending: r.pending}
}
