/*
balance.go - Customer balance calculation

PURPOSE:
  Computes what a customer owes from the three collections that touch a
  customer account. This answers "how much does this customer owe us?"

FORMULA:
  balance = Σ sales(customer).Total
          + Σ advances(customer).Amount
          - Σ payments(customer).Amount

  Positive: the customer owes the station (defaulter candidate)
  Zero or negative: nothing outstanding

ORDERING:
  Each collection is summed in its insertion order and never re-ordered.
  Decimal addition is exact, but keeping the order fixed means the audit
  trail and the figure are produced the same way every time.

MISSING REFERENCES:
  Records are matched by customer id only. A payment for an id that is not
  in the loaded customer collection still counts; showing a placeholder
  name for it is the presentation layer's concern.

SEE ALSO:
  - statement.go: Running-balance view of the same records
  - balances/service.go: Memoized point queries over this function
*/
package ledger

// =============================================================================
// BALANCE BREAKDOWN
// =============================================================================

// BalanceBreakdown keeps the three component sums next to the result so a
// caller can show where a balance comes from.
type BalanceBreakdown struct {
	CustomerID CustomerID
	Sales      Amount
	Advances   Amount
	Payments   Amount
	Balance    Amount
}

// Owes reports whether the customer is a defaulter (balance strictly > 0).
func (b BalanceBreakdown) Owes() bool {
	return b.Balance.IsPositive()
}

// CustomerBreakdown sums every record that references the customer.
// A customer with no records yields an all-zero breakdown.
func CustomerBreakdown(id CustomerID, sales []Sale, advances []CashAdvance, payments []CustomerPayment) BalanceBreakdown {
	var (
		salesTotal    = ZeroMoney()
		advancesTotal = ZeroMoney()
		paymentsTotal = ZeroMoney()
	)

	for _, s := range sales {
		if s.IsWalkIn() || s.CustomerID != id {
			continue
		}
		salesTotal = salesTotal.Add(s.Total)
	}
	for _, a := range advances {
		if a.CustomerID == id {
			advancesTotal = advancesTotal.Add(a.Amount)
		}
	}
	for _, p := range payments {
		if p.CustomerID == id {
			paymentsTotal = paymentsTotal.Add(p.Amount)
		}
	}

	return BalanceBreakdown{
		CustomerID: id,
		Sales:      salesTotal,
		Advances:   advancesTotal,
		Payments:   paymentsTotal,
		Balance:    salesTotal.Add(advancesTotal).Sub(paymentsTotal),
	}
}

// CustomerBalance returns the customer's outstanding balance.
func CustomerBalance(id CustomerID, sales []Sale, advances []CashAdvance, payments []CustomerPayment) Amount {
	return CustomerBreakdown(id, sales, advances, payments).Balance
}
