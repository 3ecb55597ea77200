/*
Package sqlite provides a SQLite-backed implementation of ledger.Store.

PURPOSE:
  Persists parties and records so the feed can reload every collection on
  startup. In production, the same patterns apply to PostgreSQL - only
  minor SQL dialect differences.

APPEND-ONLY ENFORCEMENT:
  Record tables are append-only:
  - No UPDATE statements on sales, purchases, returns, payments, advances
  - No DELETE statements except Reset
  - Corrections are new records
  Customers and suppliers are identity rows and are upserted in place.

ORDERING:
  Every table carries an autoincrement seq column. Lists are ordered by seq,
  so a reload yields records in exactly the order they were appended, and
  an upserted customer keeps its original position.

RECORD IDS:
  record_ids holds the id of every record across the five record tables.
  Each append inserts there and into its own table in one transaction, so
  an id can never appear twice anywhere in the ledger.

KEY TABLES:
  customers, suppliers:  Parties
  sales:                 Fuel sales (customer_id NULL for walk-ins)
  purchases:             Deliveries from suppliers
  purchase_returns:      Fuel sent back to suppliers
  customer_payments:     Money received
  cash_advances:         Money lent
  record_ids:            Cross-table id uniqueness

ENCODING:
  Amounts are TEXT decimals (never REAL). Timestamps are RFC3339Nano UTC.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. SQLite is opened in WAL mode so
  readers don't block the single writer.

USAGE:
  store, err := sqlite.New("./data/fuel.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - ledger/store.go: Interface definitions
  - ledger/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pumpline/fuel-ledger/ledger"
)

// Store implements ledger.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ ledger.Store = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// each connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS customers (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		contact TEXT NOT NULL DEFAULT '',
		area TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS suppliers (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		contact TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS record_ids (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sales (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		at TEXT NOT NULL,
		fuel_type TEXT NOT NULL,
		volume TEXT NOT NULL,
		total TEXT NOT NULL,
		payment_method TEXT NOT NULL,
		customer_id TEXT,
		bank_account_id TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_sales_customer ON sales(customer_id);
	CREATE INDEX IF NOT EXISTS idx_sales_fuel_at ON sales(fuel_type, at);

	CREATE TABLE IF NOT EXISTS purchases (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		at TEXT NOT NULL,
		supplier_id TEXT NOT NULL,
		supplier_name TEXT NOT NULL DEFAULT '',
		fuel_type TEXT NOT NULL,
		volume TEXT NOT NULL,
		total_cost TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS purchase_returns (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		at TEXT NOT NULL,
		supplier_id TEXT NOT NULL,
		supplier_name TEXT NOT NULL DEFAULT '',
		fuel_type TEXT NOT NULL,
		volume TEXT NOT NULL,
		total_refund TEXT NOT NULL,
		reason TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS customer_payments (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		at TEXT NOT NULL,
		customer_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		note TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_payments_customer ON customer_payments(customer_id);

	CREATE TABLE IF NOT EXISTS cash_advances (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		at TEXT NOT NULL,
		customer_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		purpose TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_advances_customer ON cash_advances(customer_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// PARTIES
// =============================================================================

// SaveCustomer inserts or updates a customer. An update keeps its seq.
func (s *Store) SaveCustomer(ctx context.Context, c ledger.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO customers (id, name, contact, area) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, contact = excluded.contact, area = excluded.area
	`, c.ID, c.Name, c.Contact, c.Area)
	if err != nil {
		return fmt.Errorf("failed to save customer: %w", err)
	}
	return nil
}

// GetCustomer retrieves a customer by ID.
func (s *Store) GetCustomer(ctx context.Context, id ledger.CustomerID) (*ledger.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var c ledger.Customer
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, contact, area FROM customers WHERE id = ?", id,
	).Scan(&c.ID, &c.Name, &c.Contact, &c.Area)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListCustomers returns all customers in insertion order.
func (s *Store) ListCustomers(ctx context.Context) ([]ledger.Customer, error) {
	return queryAll(ctx, s, "SELECT id, name, contact, area FROM customers ORDER BY seq",
		func(r scanner) (ledger.Customer, error) {
			var c ledger.Customer
			err := r.Scan(&c.ID, &c.Name, &c.Contact, &c.Area)
			return c, err
		})
}

// SaveSupplier inserts or updates a supplier. An update keeps its seq.
func (s *Store) SaveSupplier(ctx context.Context, sup ledger.Supplier) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO suppliers (id, name, contact) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, contact = excluded.contact
	`, sup.ID, sup.Name, sup.Contact)
	if err != nil {
		return fmt.Errorf("failed to save supplier: %w", err)
	}
	return nil
}

// GetSupplier retrieves a supplier by ID.
func (s *Store) GetSupplier(ctx context.Context, id ledger.SupplierID) (*ledger.Supplier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sup ledger.Supplier
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, contact FROM suppliers WHERE id = ?", id,
	).Scan(&sup.ID, &sup.Name, &sup.Contact)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sup, nil
}

// ListSuppliers returns all suppliers in insertion order.
func (s *Store) ListSuppliers(ctx context.Context) ([]ledger.Supplier, error) {
	return queryAll(ctx, s, "SELECT id, name, contact FROM suppliers ORDER BY seq",
		func(r scanner) (ledger.Supplier, error) {
			var sup ledger.Supplier
			err := r.Scan(&sup.ID, &sup.Name, &sup.Contact)
			return sup, err
		})
}

// =============================================================================
// RECORDS - Append-only
// =============================================================================

func (s *Store) AppendSale(ctx context.Context, sale ledger.Sale) error {
	return s.appendRecord(ctx, "sale", sale.ID, `
		INSERT INTO sales (id, at, fuel_type, volume, total, payment_method, customer_id, bank_account_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		sale.ID,
		formatTime(sale.At),
		sale.FuelType,
		sale.Volume.Value.String(),
		sale.Total.Value.String(),
		sale.PaymentMethod,
		nullString(string(sale.CustomerID)),
		nullString(sale.BankAccountID),
	)
}

func (s *Store) ListSales(ctx context.Context) ([]ledger.Sale, error) {
	return queryAll(ctx, s, `
		SELECT id, at, fuel_type, volume, total, payment_method, customer_id, bank_account_id
		FROM sales ORDER BY seq
	`, func(r scanner) (ledger.Sale, error) {
		var (
			sale                  ledger.Sale
			at, volume, total     string
			customerID, bankAccID sql.NullString
		)
		if err := r.Scan(&sale.ID, &at, &sale.FuelType, &volume, &total, &sale.PaymentMethod, &customerID, &bankAccID); err != nil {
			return sale, err
		}
		var err error
		if sale.At, err = parseTime(at); err != nil {
			return sale, err
		}
		if sale.Volume, err = ledger.ParseAmount(volume, ledger.UnitLitres); err != nil {
			return sale, err
		}
		if sale.Total, err = ledger.ParseAmount(total, ledger.UnitMoney); err != nil {
			return sale, err
		}
		sale.CustomerID = ledger.CustomerID(customerID.String)
		sale.BankAccountID = bankAccID.String
		return sale, nil
	})
}

func (s *Store) AppendPurchase(ctx context.Context, p ledger.Purchase) error {
	return s.appendRecord(ctx, "purchase", p.ID, `
		INSERT INTO purchases (id, at, supplier_id, supplier_name, fuel_type, volume, total_cost)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		p.ID,
		formatTime(p.At),
		p.SupplierID,
		p.SupplierName,
		p.FuelType,
		p.Volume.Value.String(),
		p.TotalCost.Value.String(),
	)
}

func (s *Store) ListPurchases(ctx context.Context) ([]ledger.Purchase, error) {
	return queryAll(ctx, s, `
		SELECT id, at, supplier_id, supplier_name, fuel_type, volume, total_cost
		FROM purchases ORDER BY seq
	`, func(r scanner) (ledger.Purchase, error) {
		var (
			p                ledger.Purchase
			at, volume, cost string
		)
		if err := r.Scan(&p.ID, &at, &p.SupplierID, &p.SupplierName, &p.FuelType, &volume, &cost); err != nil {
			return p, err
		}
		var err error
		if p.At, err = parseTime(at); err != nil {
			return p, err
		}
		if p.Volume, err = ledger.ParseAmount(volume, ledger.UnitLitres); err != nil {
			return p, err
		}
		if p.TotalCost, err = ledger.ParseAmount(cost, ledger.UnitMoney); err != nil {
			return p, err
		}
		return p, nil
	})
}

func (s *Store) AppendReturn(ctx context.Context, ret ledger.PurchaseReturn) error {
	return s.appendRecord(ctx, "purchase_return", ret.ID, `
		INSERT INTO purchase_returns (id, at, supplier_id, supplier_name, fuel_type, volume, total_refund, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		ret.ID,
		formatTime(ret.At),
		ret.SupplierID,
		ret.SupplierName,
		ret.FuelType,
		ret.Volume.Value.String(),
		ret.TotalRefund.Value.String(),
		ret.Reason,
	)
}

func (s *Store) ListReturns(ctx context.Context) ([]ledger.PurchaseReturn, error) {
	return queryAll(ctx, s, `
		SELECT id, at, supplier_id, supplier_name, fuel_type, volume, total_refund, reason
		FROM purchase_returns ORDER BY seq
	`, func(r scanner) (ledger.PurchaseReturn, error) {
		var (
			ret                ledger.PurchaseReturn
			at, volume, refund string
		)
		if err := r.Scan(&ret.ID, &at, &ret.SupplierID, &ret.SupplierName, &ret.FuelType, &volume, &refund, &ret.Reason); err != nil {
			return ret, err
		}
		var err error
		if ret.At, err = parseTime(at); err != nil {
			return ret, err
		}
		if ret.Volume, err = ledger.ParseAmount(volume, ledger.UnitLitres); err != nil {
			return ret, err
		}
		if ret.TotalRefund, err = ledger.ParseAmount(refund, ledger.UnitMoney); err != nil {
			return ret, err
		}
		return ret, nil
	})
}

func (s *Store) AppendPayment(ctx context.Context, p ledger.CustomerPayment) error {
	return s.appendRecord(ctx, "customer_payment", p.ID, `
		INSERT INTO customer_payments (id, at, customer_id, amount, note) VALUES (?, ?, ?, ?, ?)
	`, p.ID, formatTime(p.At), p.CustomerID, p.Amount.Value.String(), p.Note)
}

func (s *Store) ListPayments(ctx context.Context) ([]ledger.CustomerPayment, error) {
	return queryAll(ctx, s, `
		SELECT id, at, customer_id, amount, note FROM customer_payments ORDER BY seq
	`, func(r scanner) (ledger.CustomerPayment, error) {
		var (
			p          ledger.CustomerPayment
			at, amount string
		)
		if err := r.Scan(&p.ID, &at, &p.CustomerID, &amount, &p.Note); err != nil {
			return p, err
		}
		var err error
		if p.At, err = parseTime(at); err != nil {
			return p, err
		}
		if p.Amount, err = ledger.ParseAmount(amount, ledger.UnitMoney); err != nil {
			return p, err
		}
		return p, nil
	})
}

func (s *Store) AppendAdvance(ctx context.Context, a ledger.CashAdvance) error {
	return s.appendRecord(ctx, "cash_advance", a.ID, `
		INSERT INTO cash_advances (id, at, customer_id, amount, purpose) VALUES (?, ?, ?, ?, ?)
	`, a.ID, formatTime(a.At), a.CustomerID, a.Amount.Value.String(), a.Purpose)
}

func (s *Store) ListAdvances(ctx context.Context) ([]ledger.CashAdvance, error) {
	return queryAll(ctx, s, `
		SELECT id, at, customer_id, amount, purpose FROM cash_advances ORDER BY seq
	`, func(r scanner) (ledger.CashAdvance, error) {
		var (
			a          ledger.CashAdvance
			at, amount string
		)
		if err := r.Scan(&a.ID, &at, &a.CustomerID, &amount, &a.Purpose); err != nil {
			return a, err
		}
		var err error
		if a.At, err = parseTime(at); err != nil {
			return a, err
		}
		if a.Amount, err = ledger.ParseAmount(amount, ledger.UnitMoney); err != nil {
			return a, err
		}
		return a, nil
	})
}

// appendRecord claims the id in record_ids and inserts the row in one
// transaction.
func (s *Store) appendRecord(ctx context.Context, kind string, id ledger.RecordID, query string, args ...any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "INSERT INTO record_ids (id, kind) VALUES (?, ?)", id, kind); err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("%w: %s", ledger.ErrDuplicateRecord, id)
		}
		return fmt.Errorf("failed to reserve %s id: %w", kind, err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("%w: %s", ledger.ErrDuplicateRecord, id)
		}
		return fmt.Errorf("failed to append %s: %w", kind, err)
	}
	return tx.Commit()
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{
		"sales", "purchases", "purchase_returns", "customer_payments",
		"cash_advances", "record_ids", "customers", "suppliers",
	}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func queryAll[T any](ctx context.Context, s *Store, query string, scan func(scanner) (T, error)) ([]T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]T, 0)
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad timestamp %q: %w", s, err)
	}
	return t, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "PRIMARY KEY") ||
		strings.Contains(msg, "duplicate key")
}
