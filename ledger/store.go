/*
store.go - Persistence interface for record collections

PURPOSE:
  Defines the boundary between the engine and whatever keeps the records.
  The engine never reads a store directly: the feed loads collections from
  a RecordSource and hands the engine immutable snapshots.

KEY INTERFACES:
  RecordSource: Lists every collection in insertion order
  RecordSink:   Saves parties, appends records
  Store:        Both, plus point lookups for referential checks

APPEND-ONLY CONTRACT:
  Sales, purchases, returns, payments and advances are append-only:
  - Append*(): Single record write
  - NO Update() or Delete() methods exist
  Customers and suppliers are identity records and may be upserted.

IMPLEMENTATIONS:
  - ledger/store/memory.go: In-memory, for tests and demos
  - store/sqlite/sqlite.go: Persistent SQLite store

SEE ALSO:
  - feed/feed.go: Loads a RecordSource into Collections
*/
package ledger

import "context"

// RecordSource lists collections. Every list is in insertion order.
type RecordSource interface {
	ListCustomers(ctx context.Context) ([]Customer, error)
	ListSuppliers(ctx context.Context) ([]Supplier, error)
	ListSales(ctx context.Context) ([]Sale, error)
	ListPurchases(ctx context.Context) ([]Purchase, error)
	ListReturns(ctx context.Context) ([]PurchaseReturn, error)
	ListPayments(ctx context.Context) ([]CustomerPayment, error)
	ListAdvances(ctx context.Context) ([]CashAdvance, error)
}

// RecordSink persists parties and records. Record appends fail with
// ErrDuplicateRecord if the id already exists.
type RecordSink interface {
	SaveCustomer(ctx context.Context, c Customer) error
	SaveSupplier(ctx context.Context, s Supplier) error
	AppendSale(ctx context.Context, s Sale) error
	AppendPurchase(ctx context.Context, p Purchase) error
	AppendReturn(ctx context.Context, r PurchaseReturn) error
	AppendPayment(ctx context.Context, p CustomerPayment) error
	AppendAdvance(ctx context.Context, a CashAdvance) error
}

// Store is the full persistence contract.
type Store interface {
	RecordSource
	RecordSink

	// GetCustomer returns nil, nil when the customer doesn't exist.
	GetCustomer(ctx context.Context, id CustomerID) (*Customer, error)

	// GetSupplier returns nil, nil when the supplier doesn't exist.
	GetSupplier(ctx context.Context, id SupplierID) (*Supplier, error)

	// Reset removes everything. Development and demo scenarios only.
	Reset(ctx context.Context) error
}
