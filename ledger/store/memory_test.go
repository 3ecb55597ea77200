package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pumpline/fuel-ledger/ledger"
	"github.com/pumpline/fuel-ledger/ledger/store"
)

var day = time.Date(2024, time.March, 1, 8, 0, 0, 0, time.UTC)

func TestMemory_AppendsKeepInsertionOrder(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()

	for _, id := range []string{"s3", "s1", "s2"} {
		require.NoError(t, m.AppendSale(ctx, ledger.Sale{ID: ledger.RecordID(id), At: day, FuelType: ledger.FuelPetrol}))
	}

	sales, err := m.ListSales(ctx)
	require.NoError(t, err)
	require.Len(t, sales, 3)
	assert.Equal(t, ledger.RecordID("s3"), sales[0].ID)
	assert.Equal(t, ledger.RecordID("s1"), sales[1].ID)
	assert.Equal(t, ledger.RecordID("s2"), sales[2].ID)
}

func TestMemory_DuplicateRecordIDAcrossCollections(t *testing.T) {
	// GIVEN: A sale with id "x"
	ctx := context.Background()
	m := store.NewMemory()
	require.NoError(t, m.AppendSale(ctx, ledger.Sale{ID: "x"}))

	// WHEN: A payment reuses the id
	err := m.AppendPayment(ctx, ledger.CustomerPayment{ID: "x", CustomerID: "A", Amount: ledger.Money(1)})

	// THEN: Rejected, and nothing was appended
	assert.ErrorIs(t, err, ledger.ErrDuplicateRecord)
	payments, _ := m.ListPayments(ctx)
	assert.Empty(t, payments)
}

func TestMemory_CustomerUpsertKeepsPosition(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	require.NoError(t, m.SaveCustomer(ctx, ledger.Customer{ID: "A", Name: "Alpha"}))
	require.NoError(t, m.SaveCustomer(ctx, ledger.Customer{ID: "B", Name: "Beta"}))

	require.NoError(t, m.SaveCustomer(ctx, ledger.Customer{ID: "A", Name: "Alpha Renamed"}))

	customers, err := m.ListCustomers(ctx)
	require.NoError(t, err)
	require.Len(t, customers, 2)
	assert.Equal(t, "Alpha Renamed", customers[0].Name)
	assert.Equal(t, ledger.CustomerID("B"), customers[1].ID)
}

func TestMemory_GetMissingReturnsNil(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()

	c, err := m.GetCustomer(ctx, "nobody")
	assert.NoError(t, err)
	assert.Nil(t, c)

	s, err := m.GetSupplier(ctx, "nobody")
	assert.NoError(t, err)
	assert.Nil(t, s)
}

func TestMemory_ListReturnsCopies(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	require.NoError(t, m.AppendAdvance(ctx, ledger.CashAdvance{ID: "a1", CustomerID: "A", Amount: ledger.Money(10)}))

	list, _ := m.ListAdvances(ctx)
	list[0].CustomerID = "tampered"

	again, _ := m.ListAdvances(ctx)
	assert.Equal(t, ledger.CustomerID("A"), again[0].CustomerID)
}

func TestMemory_Reset(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	require.NoError(t, m.SaveSupplier(ctx, ledger.Supplier{ID: "S"}))
	require.NoError(t, m.AppendPurchase(ctx, ledger.Purchase{ID: "p1", SupplierID: "S"}))

	require.NoError(t, m.Reset(ctx))

	suppliers, _ := m.ListSuppliers(ctx)
	purchases, _ := m.ListPurchases(ctx)
	assert.Empty(t, suppliers)
	assert.Empty(t, purchases)

	// ids are released too
	assert.NoError(t, m.AppendPurchase(ctx, ledger.Purchase{ID: "p1", SupplierID: "S"}))
}
