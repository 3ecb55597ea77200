// Package store provides in-memory ledger.Store implementations.
package store

import (
	"context"
	"sync"

	"github.com/pumpline/fuel-ledger/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu sync.RWMutex

	customers []ledger.Customer
	suppliers []ledger.Supplier
	sales     []ledger.Sale
	purchases []ledger.Purchase
	returns   []ledger.PurchaseReturn
	payments  []ledger.CustomerPayment
	advances  []ledger.CashAdvance

	// record ids across all five record collections
	ids map[ledger.RecordID]bool
}

var _ ledger.Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{ids: make(map[ledger.RecordID]bool)}
}

// SaveCustomer inserts or replaces a customer, keeping its original position.
func (m *Memory) SaveCustomer(_ context.Context, c ledger.Customer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.customers {
		if m.customers[i].ID == c.ID {
			m.customers[i] = c
			return nil
		}
	}
	m.customers = append(m.customers, c)
	return nil
}

// SaveSupplier inserts or replaces a supplier, keeping its original position.
func (m *Memory) SaveSupplier(_ context.Context, s ledger.Supplier) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.suppliers {
		if m.suppliers[i].ID == s.ID {
			m.suppliers[i] = s
			return nil
		}
	}
	m.suppliers = append(m.suppliers, s)
	return nil
}

func (m *Memory) AppendSale(_ context.Context, s ledger.Sale) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.claimLocked(s.ID); err != nil {
		return err
	}
	m.sales = append(m.sales, s)
	return nil
}

func (m *Memory) AppendPurchase(_ context.Context, p ledger.Purchase) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.claimLocked(p.ID); err != nil {
		return err
	}
	m.purchases = append(m.purchases, p)
	return nil
}

func (m *Memory) AppendReturn(_ context.Context, r ledger.PurchaseReturn) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.claimLocked(r.ID); err != nil {
		return err
	}
	m.returns = append(m.returns, r)
	return nil
}

func (m *Memory) AppendPayment(_ context.Context, p ledger.CustomerPayment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.claimLocked(p.ID); err != nil {
		return err
	}
	m.payments = append(m.payments, p)
	return nil
}

func (m *Memory) AppendAdvance(_ context.Context, a ledger.CashAdvance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.claimLocked(a.ID); err != nil {
		return err
	}
	m.advances = append(m.advances, a)
	return nil
}

func (m *Memory) claimLocked(id ledger.RecordID) error {
	if m.ids[id] {
		return ledger.ErrDuplicateRecord
	}
	m.ids[id] = true
	return nil
}

func (m *Memory) GetCustomer(_ context.Context, id ledger.CustomerID) (*ledger.Customer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.customers {
		if c.ID == id {
			c := c
			return &c, nil
		}
	}
	return nil, nil
}

func (m *Memory) GetSupplier(_ context.Context, id ledger.SupplierID) (*ledger.Supplier, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.suppliers {
		if s.ID == id {
			s := s
			return &s, nil
		}
	}
	return nil, nil
}

func (m *Memory) ListCustomers(_ context.Context) ([]ledger.Customer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneOf(m.customers), nil
}

func (m *Memory) ListSuppliers(_ context.Context) ([]ledger.Supplier, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneOf(m.suppliers), nil
}

func (m *Memory) ListSales(_ context.Context) ([]ledger.Sale, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneOf(m.sales), nil
}

func (m *Memory) ListPurchases(_ context.Context) ([]ledger.Purchase, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneOf(m.purchases), nil
}

func (m *Memory) ListReturns(_ context.Context) ([]ledger.PurchaseReturn, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneOf(m.returns), nil
}

func (m *Memory) ListPayments(_ context.Context) ([]ledger.CustomerPayment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneOf(m.payments), nil
}

func (m *Memory) ListAdvances(_ context.Context) ([]ledger.CashAdvance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneOf(m.advances), nil
}

// Reset clears all collections.
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.customers = nil
	m.suppliers = nil
	m.sales = nil
	m.purchases = nil
	m.returns = nil
	m.payments = nil
	m.advances = nil
	m.ids = make(map[ledger.RecordID]bool)
	return nil
}

func cloneOf[T any](in []T) []T {
	out := make([]T, len(in))
	copy(out, in)
	return out
}
