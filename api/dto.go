/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the ledger model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - Create*Request: Request body types from clients
  - *Response: Wrappers (errors, barrier state)

AMOUNTS:
  Money and litres travel as decimal strings ("1250.50") in responses.
  Requests accept either a JSON string or number; both decode into
  decimal.Decimal without passing through float64.

VALIDATION:
  Request types carry go-playground/validator tags. Custom tags:
  - fuel:           petrol | diesel | high_octane
  - payment_method: cash | card | credit | bank_transfer
  Decimal fields are compared numerically (gt=0, gte=0).

SEE ALSO:
  - handlers.go: Uses these types
  - validate.go: Validator setup
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/pumpline/fuel-ledger/ledger"
	"github.com/pumpline/fuel-ledger/reports"
)

// =============================================================================
// PARTIES
// =============================================================================

type CustomerDTO struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Contact string `json:"contact"`
	Area    string `json:"area,omitempty"`
}

// CreateCustomerRequest creates or updates a customer. ID is generated
// when empty.
type CreateCustomerRequest struct {
	ID      string `json:"id"`
	Name    string `json:"name" validate:"required,max=120"`
	Contact string `json:"contact" validate:"max=60"`
	Area    string `json:"area" validate:"max=60"`
}

type SupplierDTO struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Contact string `json:"contact"`
}

type CreateSupplierRequest struct {
	ID      string `json:"id"`
	Name    string `json:"name" validate:"required,max=120"`
	Contact string `json:"contact" validate:"max=60"`
}

// =============================================================================
// RECORDS
// =============================================================================

type SaleDTO struct {
	ID            string `json:"id"`
	At            string `json:"at"`
	FuelType      string `json:"fuel_type"`
	Volume        string `json:"volume"`
	Total         string `json:"total"`
	PaymentMethod string `json:"payment_method"`
	CustomerID    string `json:"customer_id,omitempty"`
	BankAccountID string `json:"bank_account_id,omitempty"`
	WalkIn        bool   `json:"walk_in"`
}

// CreateSaleRequest records a sale. A credit sale must name a customer;
// any other sale without one is a walk-in.
type CreateSaleRequest struct {
	At            *time.Time      `json:"at"`
	FuelType      string          `json:"fuel_type" validate:"required,fuel"`
	Volume        decimal.Decimal `json:"volume" validate:"gt=0"`
	Total         decimal.Decimal `json:"total" validate:"gte=0"`
	PaymentMethod string          `json:"payment_method" validate:"required,payment_method"`
	CustomerID    string          `json:"customer_id" validate:"required_if=PaymentMethod credit"`
	BankAccountID string          `json:"bank_account_id" validate:"required_if=PaymentMethod bank_transfer"`
}

type PurchaseDTO struct {
	ID           string `json:"id"`
	At           string `json:"at"`
	SupplierID   string `json:"supplier_id"`
	SupplierName string `json:"supplier_name"`
	FuelType     string `json:"fuel_type"`
	Volume       string `json:"volume"`
	TotalCost    string `json:"total_cost"`
}

type CreatePurchaseRequest struct {
	At         *time.Time      `json:"at"`
	SupplierID string          `json:"supplier_id" validate:"required"`
	FuelType   string          `json:"fuel_type" validate:"required,fuel"`
	Volume     decimal.Decimal `json:"volume" validate:"gt=0"`
	TotalCost  decimal.Decimal `json:"total_cost" validate:"gte=0"`
}

type ReturnDTO struct {
	ID           string `json:"id"`
	At           string `json:"at"`
	SupplierID   string `json:"supplier_id"`
	SupplierName string `json:"supplier_name"`
	FuelType     string `json:"fuel_type"`
	Volume       string `json:"volume"`
	TotalRefund  string `json:"total_refund"`
	Reason       string `json:"reason,omitempty"`
}

type CreateReturnRequest struct {
	At          *time.Time      `json:"at"`
	SupplierID  string          `json:"supplier_id" validate:"required"`
	FuelType    string          `json:"fuel_type" validate:"required,fuel"`
	Volume      decimal.Decimal `json:"volume" validate:"gt=0"`
	TotalRefund decimal.Decimal `json:"total_refund" validate:"gte=0"`
	Reason      string          `json:"reason" validate:"max=200"`
}

type PaymentDTO struct {
	ID         string `json:"id"`
	At         string `json:"at"`
	CustomerID string `json:"customer_id"`
	Amount     string `json:"amount"`
	Note       string `json:"note,omitempty"`
}

type CreatePaymentRequest struct {
	At         *time.Time      `json:"at"`
	CustomerID string          `json:"customer_id" validate:"required"`
	Amount     decimal.Decimal `json:"amount" validate:"gt=0"`
	Note       string          `json:"note" validate:"max=200"`
}

type AdvanceDTO struct {
	ID         string `json:"id"`
	At         string `json:"at"`
	CustomerID string `json:"customer_id"`
	Amount     string `json:"amount"`
	Purpose    string `json:"purpose,omitempty"`
}

type CreateAdvanceRequest struct {
	At         *time.Time      `json:"at"`
	CustomerID string          `json:"customer_id" validate:"required"`
	Amount     decimal.Decimal `json:"amount" validate:"gt=0"`
	Purpose    string          `json:"purpose" validate:"max=200"`
}

// =============================================================================
// DERIVED FIGURES
// =============================================================================

// BalanceDTO is a customer's balance with the sums it was derived from.
type BalanceDTO struct {
	CustomerID string `json:"customer_id"`
	Sales      string `json:"sales"`
	Advances   string `json:"advances"`
	Payments   string `json:"payments"`
	Balance    string `json:"balance"`
	Owes       bool   `json:"owes"`
	Generation uint64 `json:"generation"`
}

type StatementEntryDTO struct {
	At          string `json:"at"`
	Kind        string `json:"kind"`
	RecordID    string `json:"record_id"`
	Description string `json:"description"`
	Debit       string `json:"debit"`
	Credit      string `json:"credit"`
	Balance     string `json:"balance"`
}

type StatementDTO struct {
	Customer   CustomerDTO         `json:"customer"`
	Entries    []StatementEntryDTO `json:"entries"`
	Closing    string              `json:"closing_balance"`
	Generation uint64              `json:"generation"`
}

// StockDTO is one fuel's flows and current stock. Oversold marks a
// negative stock figure, which is reported as-is.
type StockDTO struct {
	FuelType   string `json:"fuel_type"`
	Label      string `json:"label"`
	Purchased  string `json:"purchased"`
	Sold       string `json:"sold"`
	Returned   string `json:"returned"`
	Current    string `json:"current"`
	Oversold   bool   `json:"oversold"`
	Generation uint64 `json:"generation"`
}

// =============================================================================
// REPORTS
// =============================================================================

type ReportEnvelopeDTO struct {
	Report      string `json:"report"`
	Generation  uint64 `json:"generation"`
	GeneratedAt string `json:"generated_at"`
	From        string `json:"from,omitempty"`
	To          string `json:"to,omitempty"`
}

type DefaulterRowDTO struct {
	CustomerID string `json:"customer_id"`
	Name       string `json:"name"`
	Contact    string `json:"contact"`
	Area       string `json:"area,omitempty"`
	Sales      string `json:"sales"`
	Advances   string `json:"advances"`
	Payments   string `json:"payments"`
	Balance    string `json:"balance"`
}

type DefaulterReportDTO struct {
	ReportEnvelopeDTO
	Area             string            `json:"area,omitempty"`
	Rows             []DefaulterRowDTO `json:"rows"`
	TotalOutstanding string            `json:"total_outstanding"`
}

type ProductSalesRowDTO struct {
	FuelType        string `json:"fuel_type"`
	SaleCount       int    `json:"sale_count"`
	TotalQuantity   string `json:"total_quantity"`
	TotalRevenue    string `json:"total_revenue"`
	AvgPricePerUnit string `json:"avg_price_per_unit"`
}

type ProductSalesReportDTO struct {
	ReportEnvelopeDTO
	Rows         []ProductSalesRowDTO `json:"rows"`
	TotalRevenue string               `json:"total_revenue"`
}

type StockMovementRowDTO struct {
	FuelType       string `json:"fuel_type"`
	TotalPurchased string `json:"total_purchased"`
	TotalSold      string `json:"total_sold"`
	TotalReturned  string `json:"total_returned"`
	CurrentStock   string `json:"current_stock"`
}

type StockMovementReportDTO struct {
	ReportEnvelopeDTO
	Rows []StockMovementRowDTO `json:"rows"`
}

type ProfitMarginRowDTO struct {
	FuelType      string `json:"fuel_type"`
	QuantitySold  string `json:"quantity_sold"`
	AvgCostPrice  string `json:"avg_cost_price"`
	AvgSalePrice  string `json:"avg_sale_price"`
	MarginPerUnit string `json:"margin_per_unit"`
	Margin        string `json:"margin"`
}

type ProfitMarginReportDTO struct {
	ReportEnvelopeDTO
	Rows        []ProfitMarginRowDTO `json:"rows"`
	TotalMargin string               `json:"total_margin"`
}

// =============================================================================
// STATUS / SCENARIOS / ERRORS
// =============================================================================

// StatusDTO is the join barrier state.
type StatusDTO struct {
	Status     string   `json:"status"` // loading | ready
	Generation uint64   `json:"generation"`
	Pending    []string `json:"pending,omitempty"`
	Store      string   `json:"store,omitempty"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id" validate:"required"`
}

type LoadScenarioResponse struct {
	ScenarioID string `json:"scenario_id"`
	Customers  int    `json:"customers"`
	Suppliers  int    `json:"suppliers"`
	Records    int    `json:"records"`
	Generation uint64 `json:"generation"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Details string            `json:"details,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// NotReadyResponse answers any read made before every collection loaded.
type NotReadyResponse struct {
	Status     string   `json:"status"`
	Generation uint64   `json:"generation"`
	Pending    []string `json:"pending"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func toCustomerDTO(c ledger.Customer) CustomerDTO {
	return CustomerDTO{ID: string(c.ID), Name: c.Name, Contact: c.Contact, Area: c.Area}
}

func toSupplierDTO(s ledger.Supplier) SupplierDTO {
	return SupplierDTO{ID: string(s.ID), Name: s.Name, Contact: s.Contact}
}

func toSaleDTO(s ledger.Sale) SaleDTO {
	return SaleDTO{
		ID:            string(s.ID),
		At:            formatTime(s.At),
		FuelType:      string(s.FuelType),
		Volume:        s.Volume.String(),
		Total:         s.Total.String(),
		PaymentMethod: string(s.PaymentMethod),
		CustomerID:    string(s.CustomerID),
		BankAccountID: s.BankAccountID,
		WalkIn:        s.IsWalkIn(),
	}
}

func toPurchaseDTO(p ledger.Purchase) PurchaseDTO {
	return PurchaseDTO{
		ID:           string(p.ID),
		At:           formatTime(p.At),
		SupplierID:   string(p.SupplierID),
		SupplierName: p.SupplierName,
		FuelType:     string(p.FuelType),
		Volume:       p.Volume.String(),
		TotalCost:    p.TotalCost.String(),
	}
}

func toReturnDTO(r ledger.PurchaseReturn) ReturnDTO {
	return ReturnDTO{
		ID:           string(r.ID),
		At:           formatTime(r.At),
		SupplierID:   string(r.SupplierID),
		SupplierName: r.SupplierName,
		FuelType:     string(r.FuelType),
		Volume:       r.Volume.String(),
		TotalRefund:  r.TotalRefund.String(),
		Reason:       r.Reason,
	}
}

func toPaymentDTO(p ledger.CustomerPayment) PaymentDTO {
	return PaymentDTO{
		ID:         string(p.ID),
		At:         formatTime(p.At),
		CustomerID: string(p.CustomerID),
		Amount:     p.Amount.String(),
		Note:       p.Note,
	}
}

func toAdvanceDTO(a ledger.CashAdvance) AdvanceDTO {
	return AdvanceDTO{
		ID:         string(a.ID),
		At:         formatTime(a.At),
		CustomerID: string(a.CustomerID),
		Amount:     a.Amount.String(),
		Purpose:    a.Purpose,
	}
}

func toBalanceDTO(b ledger.BalanceBreakdown, gen ledger.Generation) BalanceDTO {
	return BalanceDTO{
		CustomerID: string(b.CustomerID),
		Sales:      b.Sales.String(),
		Advances:   b.Advances.String(),
		Payments:   b.Payments.String(),
		Balance:    b.Balance.String(),
		Owes:       b.Owes(),
		Generation: uint64(gen),
	}
}

func toStockDTO(f ledger.StockFlows, current ledger.Amount, gen ledger.Generation) StockDTO {
	return StockDTO{
		FuelType:   string(f.FuelType),
		Label:      f.FuelType.Label(),
		Purchased:  f.Purchased.String(),
		Sold:       f.Sold.String(),
		Returned:   f.Returned.String(),
		Current:    current.String(),
		Oversold:   current.IsNegative(),
		Generation: uint64(gen),
	}
}

func envelope(name string, env reports.Envelope, period reports.Period) ReportEnvelopeDTO {
	dto := ReportEnvelopeDTO{
		Report:      name,
		Generation:  uint64(env.Generation),
		GeneratedAt: formatTime(env.GeneratedAt),
	}
	if !period.From.IsZero() {
		dto.From = formatTime(period.From)
	}
	if !period.To.IsZero() {
		dto.To = formatTime(period.To)
	}
	return dto
}

func toDefaulterReportDTO(r *reports.DefaulterReport) DefaulterReportDTO {
	rows := make([]DefaulterRowDTO, len(r.Rows))
	for i, row := range r.Rows {
		rows[i] = DefaulterRowDTO{
			CustomerID: string(row.CustomerID),
			Name:       row.Name,
			Contact:    row.Contact,
			Area:       row.Area,
			Sales:      row.Sales.String(),
			Advances:   row.Advances.String(),
			Payments:   row.Payments.String(),
			Balance:    row.Balance.String(),
		}
	}
	return DefaulterReportDTO{
		ReportEnvelopeDTO: envelope(reportDefaulters, r.Envelope, reports.Period{}),
		Area:              r.Filter.Area,
		Rows:              rows,
		TotalOutstanding:  r.TotalOutstanding.String(),
	}
}

func toProductSalesReportDTO(r *reports.ProductSalesReport) ProductSalesReportDTO {
	rows := make([]ProductSalesRowDTO, len(r.Rows))
	for i, row := range r.Rows {
		rows[i] = ProductSalesRowDTO{
			FuelType:        string(row.FuelType),
			SaleCount:       row.SaleCount,
			TotalQuantity:   row.TotalQuantity.String(),
			TotalRevenue:    row.TotalRevenue.String(),
			AvgPricePerUnit: row.AvgPricePerUnit.Fixed(),
		}
	}
	return ProductSalesReportDTO{
		ReportEnvelopeDTO: envelope(reportProductSales, r.Envelope, r.Period),
		Rows:              rows,
		TotalRevenue:      r.TotalRevenue.String(),
	}
}

func toStockMovementReportDTO(r *reports.StockMovementReport) StockMovementReportDTO {
	rows := make([]StockMovementRowDTO, len(r.Rows))
	for i, row := range r.Rows {
		rows[i] = StockMovementRowDTO{
			FuelType:       string(row.FuelType),
			TotalPurchased: row.TotalPurchased.String(),
			TotalSold:      row.TotalSold.String(),
			TotalReturned:  row.TotalReturned.String(),
			CurrentStock:   row.CurrentStock.String(),
		}
	}
	return StockMovementReportDTO{
		ReportEnvelopeDTO: envelope(reportStockMovement, r.Envelope, reports.Period{}),
		Rows:              rows,
	}
}

func toProfitMarginReportDTO(r *reports.ProfitMarginReport) ProfitMarginReportDTO {
	rows := make([]ProfitMarginRowDTO, len(r.Rows))
	for i, row := range r.Rows {
		rows[i] = ProfitMarginRowDTO{
			FuelType:      string(row.FuelType),
			QuantitySold:  row.QuantitySold.String(),
			AvgCostPrice:  row.AvgCostPrice.Fixed(),
			AvgSalePrice:  row.AvgSalePrice.Fixed(),
			MarginPerUnit: row.MarginPerUnit.Fixed(),
			Margin:        row.Margin.Fixed(),
		}
	}
	return ProfitMarginReportDTO{
		ReportEnvelopeDTO: envelope(reportProfitMargin, r.Envelope, r.Period),
		Rows:              rows,
		TotalMargin:       r.TotalMargin.Fixed(),
	}
}
