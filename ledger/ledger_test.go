/*
ledger_test.go - Behavior tests for the derived-figure computations

ORGANIZATION:
  1. Customer balance - sums, exclusions, idempotence
  2. Fuel stock - flows, oversold, returns
  3. End-to-end station scenarios

Each test has GIVEN/WHEN/THEN comments describing the scenario.
*/
package ledger_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pumpline/fuel-ledger/ledger"
)

// =============================================================================
// TEST INFRASTRUCTURE
// =============================================================================

var day = time.Date(2024, time.March, 1, 8, 0, 0, 0, time.UTC)

func at(hours int) time.Time { return day.Add(time.Duration(hours) * time.Hour) }

func sale(id string, cust ledger.CustomerID, fuel ledger.FuelType, litres, total float64) ledger.Sale {
	method := ledger.PaymentCredit
	if cust == "" {
		method = ledger.PaymentCash
	}
	return ledger.Sale{
		ID:            ledger.RecordID(id),
		At:            day,
		FuelType:      fuel,
		Volume:        ledger.Litres(litres),
		Total:         ledger.Money(total),
		PaymentMethod: method,
		CustomerID:    cust,
	}
}

func purchase(id string, fuel ledger.FuelType, litres, cost float64) ledger.Purchase {
	return ledger.Purchase{
		ID:         ledger.RecordID(id),
		At:         day,
		SupplierID: "sup-1",
		FuelType:   fuel,
		Volume:     ledger.Litres(litres),
		TotalCost:  ledger.Money(cost),
	}
}

func ret(id string, fuel ledger.FuelType, litres float64) ledger.PurchaseReturn {
	return ledger.PurchaseReturn{
		ID:          ledger.RecordID(id),
		At:          day,
		SupplierID:  "sup-1",
		FuelType:    fuel,
		Volume:      ledger.Litres(litres),
		TotalRefund: ledger.ZeroMoney(),
	}
}

func payment(id string, cust ledger.CustomerID, amount float64) ledger.CustomerPayment {
	return ledger.CustomerPayment{ID: ledger.RecordID(id), At: day, CustomerID: cust, Amount: ledger.Money(amount)}
}

func advance(id string, cust ledger.CustomerID, amount float64) ledger.CashAdvance {
	return ledger.CashAdvance{ID: ledger.RecordID(id), At: day, CustomerID: cust, Amount: ledger.Money(amount)}
}

func assertAmount(t *testing.T, want float64, got ledger.Amount, msgAndArgs ...any) {
	t.Helper()
	assert.True(t, decimal.NewFromFloat(want).Equal(got.Value),
		append([]any{"want %v, got %s", want, got.String()}, msgAndArgs...)...)
}

// =============================================================================
// 1. CUSTOMER BALANCE
// =============================================================================

func TestCustomerBalance_SalesPlusAdvancesMinusPayments(t *testing.T) {
	// GIVEN: Customer A with sales, advances and payments, plus noise for B
	sales := []ledger.Sale{
		sale("s1", "A", ledger.FuelDiesel, 10, 2000),
		sale("s2", "B", ledger.FuelDiesel, 10, 9999),
		sale("s3", "A", ledger.FuelPetrol, 10, 3000),
	}
	advances := []ledger.CashAdvance{advance("a1", "A", 1000)}
	payments := []ledger.CustomerPayment{payment("p1", "A", 1200), payment("p2", "A", 1800)}

	// WHEN: Computing A's breakdown
	b := ledger.CustomerBreakdown("A", sales, advances, payments)

	// THEN: Each component and the balance are exact
	assertAmount(t, 5000, b.Sales)
	assertAmount(t, 1000, b.Advances)
	assertAmount(t, 3000, b.Payments)
	assertAmount(t, 3000, b.Balance)
	assert.True(t, b.Owes())
	assertAmount(t, 3000, ledger.CustomerBalance("A", sales, advances, payments))
}

func TestCustomerBalance_NoRecordsIsZero(t *testing.T) {
	// GIVEN: No records at all
	// WHEN/THEN: Balance is zero, not an error
	b := ledger.CustomerBreakdown("ghost", nil, nil, nil)
	assert.True(t, b.Balance.IsZero())
	assert.False(t, b.Owes())
	assert.Equal(t, ledger.UnitMoney, b.Balance.Unit)
}

func TestCustomerBalance_OverpaymentIsNegative(t *testing.T) {
	// GIVEN: Customer paid more than they owe
	sales := []ledger.Sale{sale("s1", "A", ledger.FuelPetrol, 5, 1000)}
	payments := []ledger.CustomerPayment{payment("p1", "A", 1500)}

	// WHEN
	b := ledger.CustomerBreakdown("A", sales, nil, payments)

	// THEN: Credit balance is reported as negative and not owed
	assertAmount(t, -500, b.Balance)
	assert.False(t, b.Owes())
}

func TestCustomerBalance_WalkInSalesNeverCount(t *testing.T) {
	// GIVEN: Walk-in sales (no customer) alongside one credit sale
	sales := []ledger.Sale{
		sale("w1", "", ledger.FuelPetrol, 20, 5000),
		sale("s1", "A", ledger.FuelPetrol, 10, 2500),
		sale("w2", "", ledger.FuelDiesel, 30, 8000),
	}

	// WHEN: Asking for A, and for the empty id
	a := ledger.CustomerBreakdown("A", sales, nil, nil)
	empty := ledger.CustomerBreakdown("", sales, nil, nil)

	// THEN: Walk-ins belong to no customer
	assertAmount(t, 2500, a.Balance)
	assert.True(t, empty.Balance.IsZero(), "walk-in sales must not form a balance")
}

func TestCustomerBalance_OrphanPaymentStillCounts(t *testing.T) {
	// GIVEN: A payment referencing an id that has no sales and no customer
	payments := []ledger.CustomerPayment{payment("p1", "orphan", 700)}

	// WHEN
	b := ledger.CustomerBreakdown("orphan", nil, nil, payments)

	// THEN: The payment is reflected as a credit
	assertAmount(t, -700, b.Balance)
}

func TestCustomerBalance_Idempotent(t *testing.T) {
	// GIVEN: The same inputs
	sales := []ledger.Sale{sale("s1", "A", ledger.FuelDiesel, 1, 123.45)}
	advances := []ledger.CashAdvance{advance("a1", "A", 0.55)}
	payments := []ledger.CustomerPayment{payment("p1", "A", 24)}

	// WHEN: Computed twice
	first := ledger.CustomerBalance("A", sales, advances, payments)
	second := ledger.CustomerBalance("A", sales, advances, payments)

	// THEN: Identical, and decimal-exact
	assert.True(t, first.Equal(second))
	assertAmount(t, 100, first)
}

func TestCustomerBalance_DoesNotMutateInputs(t *testing.T) {
	sales := []ledger.Sale{sale("s1", "A", ledger.FuelDiesel, 1, 10)}
	before := sales[0]

	_ = ledger.CustomerBalance("A", sales, nil, nil)

	assert.Equal(t, before, sales[0])
}

// =============================================================================
// 2. FUEL STOCK
// =============================================================================

func TestFuelStock_PurchasesMinusSalesMinusReturns(t *testing.T) {
	// GIVEN: Diesel purchases 10000, sales 4000, returns 500; petrol noise
	purchases := []ledger.Purchase{
		purchase("p1", ledger.FuelDiesel, 6000, 0),
		purchase("p2", ledger.FuelDiesel, 4000, 0),
		purchase("p3", ledger.FuelPetrol, 9999, 0),
	}
	sales := []ledger.Sale{
		sale("s1", "", ledger.FuelDiesel, 1500, 0),
		sale("s2", "A", ledger.FuelDiesel, 2500, 0),
	}
	returns := []ledger.PurchaseReturn{ret("r1", ledger.FuelDiesel, 500)}

	// WHEN
	stock := ledger.FuelStock(ledger.FuelDiesel, purchases, sales, returns)
	flows := ledger.Flows(ledger.FuelDiesel, purchases, sales, returns)

	// THEN
	assertAmount(t, 5500, stock)
	assert.Equal(t, ledger.UnitLitres, stock.Unit)
	assertAmount(t, 10000, flows.Purchased)
	assertAmount(t, 4000, flows.Sold)
	assertAmount(t, 500, flows.Returned)
}

func TestFuelStock_OversoldIsNegativeNotClamped(t *testing.T) {
	// GIVEN: More diesel sold than purchased
	purchases := []ledger.Purchase{purchase("p1", ledger.FuelDiesel, 1000, 0)}
	sales := []ledger.Sale{sale("s1", "", ledger.FuelDiesel, 1500, 0)}

	// WHEN
	stock := ledger.FuelStock(ledger.FuelDiesel, purchases, sales, nil)

	// THEN: Reported as negative
	assertAmount(t, -500, stock)
	assert.True(t, stock.IsNegative())
}

func TestFuelStock_NoRecordsIsZero(t *testing.T) {
	for _, fuel := range ledger.FuelTypes {
		assert.True(t, ledger.FuelStock(fuel, nil, nil, nil).IsZero(), fuel)
	}
}

// =============================================================================
// 3. AMOUNTS / TYPES
// =============================================================================

func TestAmount_DivOrZero(t *testing.T) {
	assert.True(t, ledger.Money(100).DivOrZero(ledger.ZeroLitres()).IsZero())
	assertAmount(t, 25, ledger.Money(100).DivOrZero(ledger.Litres(4)))
	assert.Equal(t, ledger.UnitMoney, ledger.Money(100).DivOrZero(ledger.Litres(4)).Unit)
}

func TestAmount_DecimalExactness(t *testing.T) {
	// 0.1 + 0.2 must be exactly 0.3
	sum := ledger.Money(0.1).Add(ledger.Money(0.2))
	assertAmount(t, 0.3, sum)
}

func TestParseAmount(t *testing.T) {
	a, err := ledger.ParseAmount(" 1250.50 ", ledger.UnitMoney)
	require.NoError(t, err)
	assert.Equal(t, "1250.50", a.Fixed())

	_, err = ledger.ParseAmount("twelve", ledger.UnitMoney)
	assert.Error(t, err)
}

func TestParseFuelType(t *testing.T) {
	f, err := ledger.ParseFuelType(" Diesel ")
	require.NoError(t, err)
	assert.Equal(t, ledger.FuelDiesel, f)

	_, err = ledger.ParseFuelType("kerosene")
	assert.ErrorIs(t, err, ledger.ErrUnknownFuelType)
	assert.True(t, ledger.IsClientError(err))
}

func TestPaymentMethod_Valid(t *testing.T) {
	assert.True(t, ledger.PaymentBankTransfer.Valid())
	assert.False(t, ledger.PaymentMethod("cheque").Valid())
}

// =============================================================================
// 4. END-TO-END STATION SCENARIOS
// =============================================================================

func TestScenario_CustomerBalance(t *testing.T) {
	// GIVEN: Customer A: sales 5000, advances 1000, payments 3000
	sales := []ledger.Sale{sale("s1", "A", ledger.FuelDiesel, 10, 3000), sale("s2", "A", ledger.FuelDiesel, 10, 2000)}
	advances := []ledger.CashAdvance{advance("a1", "A", 1000)}
	payments := []ledger.CustomerPayment{payment("p1", "A", 3000)}

	// THEN: balance == 3000
	assertAmount(t, 3000, ledger.CustomerBalance("A", sales, advances, payments))
}

func TestScenario_DieselStock(t *testing.T) {
	// GIVEN: Purchases 10000 L, sales 4000 L, returns 500 L
	purchases := []ledger.Purchase{purchase("p1", ledger.FuelDiesel, 10000, 0)}
	sales := []ledger.Sale{sale("s1", "", ledger.FuelDiesel, 4000, 0)}
	returns := []ledger.PurchaseReturn{ret("r1", ledger.FuelDiesel, 500)}

	// THEN: stock == 5500
	assertAmount(t, 5500, ledger.FuelStock(ledger.FuelDiesel, purchases, sales, returns))
}

func TestScenario_OversoldDiesel(t *testing.T) {
	// GIVEN: Purchases 1000 L, sales 1500 L, no returns
	purchases := []ledger.Purchase{purchase("p1", ledger.FuelDiesel, 1000, 0)}
	sales := []ledger.Sale{sale("s1", "", ledger.FuelDiesel, 1500, 0)}

	// THEN: stock == -500
	assertAmount(t, -500, ledger.FuelStock(ledger.FuelDiesel, purchases, sales, nil))
}
