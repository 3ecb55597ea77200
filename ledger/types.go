/*
Package ledger provides the ledger and stock aggregation engine.

PURPOSE:
  This package turns independent streams of sale, purchase, return, payment,
  and cash-advance records into per-customer balances and per-fuel-type
  stock levels. Every figure is re-derived from the full record collections
  on each call: there is no stored balance and no running stock counter.

KEY CONCEPTS IN THIS FILE (types.go):
  - Amount: A decimal quantity with a unit (money or litres)
  - FuelType: The closed set of fuels the station sells
  - IDs: Type-safe identifiers for customers, suppliers and records

DESIGN PRINCIPLES:
  1. Immutability: Records are never modified, only appended
  2. Precision: Uses decimal.Decimal so sums are exact and repeatable
  3. Type Safety: Strong typing for IDs prevents mixing customer/supplier IDs
  4. Purity: Aggregates take their inputs as arguments, never from globals

USAGE:
  total := ledger.Money(5000)
  balance := ledger.CustomerBalance("cust-1", sales, advances, payments)
  stock := ledger.FuelStock(ledger.FuelDiesel, purchases, sales, returns)

SEE ALSO:
  - records.go: Record shapes delivered by the collaborator layer
  - balance.go: Customer balance calculation
  - stock.go: Fuel stock calculation
  - collection.go: Join barrier over asynchronously loaded collections
*/
package ledger

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// AMOUNT - Decimal quantity with unit
// =============================================================================

type Amount struct {
	Value decimal.Decimal
	Unit  Unit
}

type Unit string

const (
	UnitMoney  Unit = "money"
	UnitLitres Unit = "litres"
)

func NewAmount(value float64, unit Unit) Amount {
	return Amount{Value: decimal.NewFromFloat(value), Unit: unit}
}

func NewAmountFromInt(value int64, unit Unit) Amount {
	return Amount{Value: decimal.NewFromInt(value), Unit: unit}
}

func NewAmountFromDecimal(value decimal.Decimal, unit Unit) Amount {
	return Amount{Value: value, Unit: unit}
}

// ParseAmount parses a decimal string such as "1250.50".
func ParseAmount(s string, unit Unit) (Amount, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Amount{}, fmt.Errorf("parse %s amount %q: %w", unit, s, err)
	}
	return Amount{Value: d, Unit: unit}, nil
}

// Money and Litres are shorthands used throughout tests and fixtures.
func Money(v float64) Amount  { return NewAmount(v, UnitMoney) }
func Litres(v float64) Amount { return NewAmount(v, UnitLitres) }

func ZeroMoney() Amount  { return Amount{Value: decimal.Zero, Unit: UnitMoney} }
func ZeroLitres() Amount { return Amount{Value: decimal.Zero, Unit: UnitLitres} }

func (a Amount) Zero() Amount                 { return Amount{Value: decimal.Zero, Unit: a.Unit} }
func (a Amount) Add(b Amount) Amount          { return Amount{Value: a.Value.Add(b.Value), Unit: a.Unit} }
func (a Amount) Sub(b Amount) Amount          { return Amount{Value: a.Value.Sub(b.Value), Unit: a.Unit} }
func (a Amount) Mul(s decimal.Decimal) Amount { return Amount{Value: a.Value.Mul(s), Unit: a.Unit} }
func (a Amount) Neg() Amount                  { return Amount{Value: a.Value.Neg(), Unit: a.Unit} }
func (a Amount) IsNegative() bool             { return a.Value.IsNegative() }
func (a Amount) IsZero() bool                 { return a.Value.IsZero() }
func (a Amount) IsPositive() bool             { return a.Value.IsPositive() }
func (a Amount) GreaterThan(b Amount) bool    { return a.Value.GreaterThan(b.Value) }
func (a Amount) LessThan(b Amount) bool       { return a.Value.LessThan(b.Value) }
func (a Amount) Equal(b Amount) bool          { return a.Value.Equal(b.Value) }
func (a Amount) Cmp(b Amount) int             { return a.Value.Cmp(b.Value) }
func (a Amount) String() string               { return a.Value.String() }

// Fixed renders the value with two decimal places, for tables and exports.
func (a Amount) Fixed() string { return a.Value.StringFixed(2) }

// DivOrZero divides by a quantity and yields zero when the divisor is zero.
// The result carries the receiver's unit (price per litre is money).
func (a Amount) DivOrZero(by Amount) Amount {
	if by.Value.IsZero() {
		return a.Zero()
	}
	return Amount{Value: a.Value.Div(by.Value), Unit: a.Unit}
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

type CustomerID string
type SupplierID string
type RecordID string

// Generation identifies one immutable state of the record collections.
// It increases every time any collection changes or finishes loading.
type Generation uint64

// =============================================================================
// FUEL TYPE - Closed set
// =============================================================================

type FuelType string

const (
	FuelPetrol     FuelType = "petrol"
	FuelDiesel     FuelType = "diesel"
	FuelHighOctane FuelType = "high_octane"
)

// FuelTypes lists every fuel in the order reports present them.
var FuelTypes = []FuelType{FuelPetrol, FuelDiesel, FuelHighOctane}

func ParseFuelType(s string) (FuelType, error) {
	f := FuelType(strings.ToLower(strings.TrimSpace(s)))
	if !f.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownFuelType, s)
	}
	return f, nil
}

func (f FuelType) Valid() bool {
	switch f {
	case FuelPetrol, FuelDiesel, FuelHighOctane:
		return true
	}
	return false
}

// Label is the display name used on exported reports.
func (f FuelType) Label() string {
	switch f {
	case FuelPetrol:
		return "Petrol"
	case FuelDiesel:
		return "Diesel"
	case FuelHighOctane:
		return "High Octane"
	}
	return string(f)
}

// =============================================================================
// PAYMENT METHOD
// =============================================================================

type PaymentMethod string

const (
	PaymentCash         PaymentMethod = "cash"
	PaymentCard         PaymentMethod = "card"
	PaymentCredit       PaymentMethod = "credit"
	PaymentBankTransfer PaymentMethod = "bank_transfer"
)

func (p PaymentMethod) Valid() bool {
	switch p {
	case PaymentCash, PaymentCard, PaymentCredit, PaymentBankTransfer:
		return true
	}
	return false
}
