package ledger

import "time"

// =============================================================================
// PARTIES - Identity only, never carry a balance
// =============================================================================

type Customer struct {
	ID      CustomerID
	Name    string
	Contact string
	Area    string // optional
}

type Supplier struct {
	ID      SupplierID
	Name    string
	Contact string
}

// =============================================================================
// RECORDS - Immutable, appended by the collaborator layer
// =============================================================================

// Sale is a fuel sale. An empty CustomerID marks a walk-in sale, which counts
// toward stock and product sales but never toward any customer balance.
type Sale struct {
	ID            RecordID
	At            time.Time
	FuelType      FuelType
	Volume        Amount
	Total         Amount
	PaymentMethod PaymentMethod
	CustomerID    CustomerID
	BankAccountID string
}

func (s Sale) IsWalkIn() bool { return s.CustomerID == "" }

// Purchase is a delivery from a supplier. It increases stock.
type Purchase struct {
	ID           RecordID
	At           time.Time
	SupplierID   SupplierID
	SupplierName string
	FuelType     FuelType
	Volume       Amount
	TotalCost    Amount
}

// PurchaseReturn is fuel sent back to a supplier. It decreases stock.
type PurchaseReturn struct {
	ID           RecordID
	At           time.Time
	SupplierID   SupplierID
	SupplierName string
	FuelType     FuelType
	Volume       Amount
	TotalRefund  Amount
	Reason       string
}

// CustomerPayment is money received from a customer (credit).
type CustomerPayment struct {
	ID         RecordID
	At         time.Time
	CustomerID CustomerID
	Amount     Amount
	Note       string
}

// CashAdvance is money lent to a customer (debit).
type CashAdvance struct {
	ID         RecordID
	At         time.Time
	CustomerID CustomerID
	Amount     Amount
	Purpose    string
}
