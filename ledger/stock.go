package ledger

// =============================================================================
// FUEL STOCK - Always derived, never stored
// =============================================================================

// StockFlows holds the three flow totals for one fuel type.
type StockFlows struct {
	FuelType  FuelType
	Purchased Amount
	Sold      Amount
	Returned  Amount
}

// Flows sums purchase, sale and return volumes for a fuel type.
func Flows(fuel FuelType, purchases []Purchase, sales []Sale, returns []PurchaseReturn) StockFlows {
	flows := StockFlows{
		FuelType:  fuel,
		Purchased: ZeroLitres(),
		Sold:      ZeroLitres(),
		Returned:  ZeroLitres(),
	}
	for _, p := range purchases {
		if p.FuelType == fuel {
			flows.Purchased = flows.Purchased.Add(p.Volume)
		}
	}
	for _, s := range sales {
		if s.FuelType == fuel {
			flows.Sold = flows.Sold.Add(s.Volume)
		}
	}
	for _, r := range returns {
		if r.FuelType == fuel {
			flows.Returned = flows.Returned.Add(r.Volume)
		}
	}
	return flows
}

// FuelStock returns the volume on hand: purchased - sold - returned.
// The result is not clamped; a negative figure means fuel was sold before
// the delivery covering it was recorded.
func FuelStock(fuel FuelType, purchases []Purchase, sales []Sale, returns []PurchaseReturn) Amount {
	stock := ZeroLitres()
	for _, p := range purchases {
		if p.FuelType == fuel {
			stock = stock.Add(p.Volume)
		}
	}
	for _, s := range sales {
		if s.FuelType == fuel {
			stock = stock.Sub(s.Volume)
		}
	}
	for _, r := range returns {
		if r.FuelType == fuel {
			stock = stock.Sub(r.Volume)
		}
	}
	return stock
}
