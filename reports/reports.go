/*
Package reports builds read-only, ordered report rows from a snapshot.

PURPOSE:
  Every report here is a pure function of one ledger.Snapshot. Nothing is
  cached or carried between calls; a report is recomputed in full each time.

REPORTS:
  Defaulters:     Customers with balance > 0, highest first (stable)
  ProductSales:   Per fuel: quantity, revenue, average price per litre
  StockMovement:  Per fuel: purchased, sold, returned, and current stock
  ProfitMargin:   Per fuel: (avg sale price - avg cost price) × quantity sold

DIVISION GUARD:
  Any average over a zero quantity is zero, not an error.

SEE ALSO:
  - service.go: Barrier-aware wrapper producing report envelopes
  - export.go: XLSX / PDF rendering
*/
package reports

import (
	"sort"
	"strings"
	"time"

	"github.com/pumpline/fuel-ledger/ledger"
)

// =============================================================================
// FILTERS
// =============================================================================

// Period bounds records by timestamp. A zero bound is open.
type Period struct {
	From time.Time
	To   time.Time
}

func (p Period) Contains(t time.Time) bool {
	if !p.From.IsZero() && t.Before(p.From) {
		return false
	}
	if !p.To.IsZero() && t.After(p.To) {
		return false
	}
	return true
}

func (p Period) IsOpen() bool { return p.From.IsZero() && p.To.IsZero() }

// DefaulterFilter narrows the defaulter report. Area matches
// case-insensitively; empty means every area.
type DefaulterFilter struct {
	Area string
}

// =============================================================================
// ROWS
// =============================================================================

type DefaulterRow struct {
	CustomerID ledger.CustomerID
	Name       string
	Contact    string
	Area       string
	Sales      ledger.Amount
	Advances   ledger.Amount
	Payments   ledger.Amount
	Balance    ledger.Amount
}

type ProductSalesRow struct {
	FuelType        ledger.FuelType
	SaleCount       int
	TotalQuantity   ledger.Amount
	TotalRevenue    ledger.Amount
	AvgPricePerUnit ledger.Amount
}

type StockMovementRow struct {
	FuelType       ledger.FuelType
	TotalPurchased ledger.Amount
	TotalSold      ledger.Amount
	TotalReturned  ledger.Amount
	CurrentStock   ledger.Amount
}

type ProfitMarginRow struct {
	FuelType      ledger.FuelType
	QuantitySold  ledger.Amount
	AvgCostPrice  ledger.Amount
	AvgSalePrice  ledger.Amount
	MarginPerUnit ledger.Amount
	Margin        ledger.Amount
}

// =============================================================================
// DEFAULTERS
// =============================================================================

// Defaulters lists every customer whose balance is strictly positive,
// sorted by balance descending. Ties keep customer-collection order.
func Defaulters(snap ledger.Snapshot, filter DefaulterFilter) []DefaulterRow {
	rows := make([]DefaulterRow, 0)
	for _, c := range snap.Customers {
		if filter.Area != "" && !strings.EqualFold(c.Area, filter.Area) {
			continue
		}
		b := snap.Breakdown(c.ID)
		if !b.Owes() {
			continue
		}
		rows = append(rows, DefaulterRow{
			CustomerID: c.ID,
			Name:       c.Name,
			Contact:    c.Contact,
			Area:       c.Area,
			Sales:      b.Sales,
			Advances:   b.Advances,
			Payments:   b.Payments,
			Balance:    b.Balance,
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Balance.GreaterThan(rows[j].Balance)
	})
	return rows
}

// =============================================================================
// PRODUCT SALES
// =============================================================================

// ProductSales returns one row per fuel type, including fuels with no sales.
func ProductSales(snap ledger.Snapshot, period Period) []ProductSalesRow {
	rows := make([]ProductSalesRow, 0, len(ledger.FuelTypes))
	for _, fuel := range ledger.FuelTypes {
		row := ProductSalesRow{
			FuelType:      fuel,
			TotalQuantity: ledger.ZeroLitres(),
			TotalRevenue:  ledger.ZeroMoney(),
		}
		for _, s := range snap.Sales {
			if s.FuelType != fuel || !period.Contains(s.At) {
				continue
			}
			row.SaleCount++
			row.TotalQuantity = row.TotalQuantity.Add(s.Volume)
			row.TotalRevenue = row.TotalRevenue.Add(s.Total)
		}
		row.AvgPricePerUnit = row.TotalRevenue.DivOrZero(row.TotalQuantity)
		rows = append(rows, row)
	}
	return rows
}

// =============================================================================
// STOCK MOVEMENT
// =============================================================================

// StockMovement returns flow totals next to the independently computed
// current stock, so a discrepancy between the two is visible.
func StockMovement(snap ledger.Snapshot) []StockMovementRow {
	rows := make([]StockMovementRow, 0, len(ledger.FuelTypes))
	for _, fuel := range ledger.FuelTypes {
		flows := ledger.Flows(fuel, snap.Purchases, snap.Sales, snap.Returns)
		rows = append(rows, StockMovementRow{
			FuelType:       fuel,
			TotalPurchased: flows.Purchased,
			TotalSold:      flows.Sold,
			TotalReturned:  flows.Returned,
			CurrentStock:   ledger.FuelStock(fuel, snap.Purchases, snap.Sales, snap.Returns),
		})
	}
	return rows
}

// =============================================================================
// PROFIT MARGIN
// =============================================================================

// ProfitMargin uses the volume-weighted average purchase price as cost
// basis and the product sales average as revenue basis. Only sales are
// bounded by the period; the cost basis covers every delivery up to its end.
func ProfitMargin(snap ledger.Snapshot, period Period) []ProfitMarginRow {
	sales := ProductSales(snap, period)
	rows := make([]ProfitMarginRow, 0, len(sales))
	for _, ps := range sales {
		var (
			cost   = ledger.ZeroMoney()
			volume = ledger.ZeroLitres()
		)
		for _, p := range snap.Purchases {
			if p.FuelType != ps.FuelType || (!period.To.IsZero() && p.At.After(period.To)) {
				continue
			}
			cost = cost.Add(p.TotalCost)
			volume = volume.Add(p.Volume)
		}

		avgCost := cost.DivOrZero(volume)
		perUnit := ps.AvgPricePerUnit.Sub(avgCost)
		rows = append(rows, ProfitMarginRow{
			FuelType:      ps.FuelType,
			QuantitySold:  ps.TotalQuantity,
			AvgCostPrice:  avgCost,
			AvgSalePrice:  ps.AvgPricePerUnit,
			MarginPerUnit: perUnit,
			Margin:        perUnit.Mul(ps.TotalQuantity.Value),
		})
	}
	return rows
}
