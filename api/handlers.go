/*
handlers.go - HTTP API handlers for the fuel ledger

PURPOSE:
  Exposes the ledger via REST API. Plays the collaborator role around the
  engine: validates input, persists records, publishes them to the feed,
  and renders derived figures read from joined snapshots.

ENDPOINTS:
  Parties:
    GET    /api/customers                 List customers
    POST   /api/customers                 Create or update a customer
    GET    /api/customers/{id}            Customer details
    GET    /api/customers/{id}/balance    Balance with component sums
    GET    /api/customers/{id}/statement  Chronological debit/credit ledger
    GET    /api/balances                  Every customer's balance
    GET    /api/suppliers                 List suppliers
    POST   /api/suppliers                 Create or update a supplier

  Records (append-only):
    GET/POST /api/sales, /api/purchases, /api/returns,
             /api/payments, /api/advances

  Derived:
    GET    /api/stock                     Stock per fuel
    GET    /api/stock/{fuel}              Stock for one fuel
    GET    /api/reports/{name}            See reports.go
    GET    /api/status                    Join barrier state

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Store: Source of truth, written first
  - Feed: Published to after every successful write
  - Balances / Reports: Read from the feed's snapshots

WRITE FLOW:
  1. Decode and validate request
  2. Check referenced customer/supplier exists (against the store)
  3. Assign a uuid, persist
  4. Publish to feed (bumps the generation)

READ FLOW:
  Every read takes one Readiness from the feed. While any collection is
  still loading the answer is 503 {"status":"loading","pending":[...]}.

ERROR HANDLING:
  - 400: Validation errors, invalid input
  - 404: Customer / supplier not found
  - 409: Duplicate record id
  - 503: Collections still loading
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - reports.go: Report endpoints
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/pumpline/fuel-ledger/balances"
	"github.com/pumpline/fuel-ledger/feed"
	"github.com/pumpline/fuel-ledger/ledger"
	"github.com/pumpline/fuel-ledger/metrics"
	"github.com/pumpline/fuel-ledger/pkg/logger"
	"github.com/pumpline/fuel-ledger/reports"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store    ledger.Store
	Feed     *feed.Feed
	Balances *balances.Service
	Reports  *reports.Service

	// RetryInterval paces background reloads after a failed scenario load.
	RetryInterval time.Duration

	validate *validator.Validate
	log      *logger.Logger
	now      func() time.Time
	newID    func() string

	// Track currently loaded scenario
	mu              sync.Mutex
	currentScenario string
	recovery        *feed.Refresher
}

// NewHandler creates a handler. The feed is expected to be loaded from the
// same store, typically by a feed.Refresher.
func NewHandler(store ledger.Store, f *feed.Feed, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{
		Store:    store,
		Feed:     f,
		Balances: balances.NewService(f),
		Reports:  reports.NewService(f, log),

		RetryInterval: time.Second,

		validate: newValidator(),
		log:      log.WithComponent("api"),
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// snapshot returns the joined state, or writes 503 and returns false.
func (h *Handler) snapshot(w http.ResponseWriter) (ledger.Snapshot, bool) {
	r := h.Feed.Current()
	snap, ok := r.Snapshot()
	if !ok {
		writeNotReady(w, r.Err())
		return ledger.Snapshot{}, false
	}
	return snap, true
}

// =============================================================================
// CUSTOMER HANDLERS
// =============================================================================

// ListCustomers returns all customers. ?area= filters case-insensitively.
func (h *Handler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w)
	if !ok {
		return
	}
	area := r.URL.Query().Get("area")

	dtos := make([]CustomerDTO, 0, len(snap.Customers))
	for _, c := range snap.Customers {
		if area != "" && !strings.EqualFold(c.Area, area) {
			continue
		}
		dtos = append(dtos, toCustomerDTO(c))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateCustomer creates or updates a customer.
func (h *Handler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req CreateCustomerRequest
	if !h.decode(w, r, &req) {
		return
	}

	c := ledger.Customer{
		ID:      ledger.CustomerID(req.ID),
		Name:    strings.TrimSpace(req.Name),
		Contact: strings.TrimSpace(req.Contact),
		Area:    strings.TrimSpace(req.Area),
	}
	if c.ID == "" {
		c.ID = ledger.CustomerID(h.newID())
	}

	if err := h.Store.SaveCustomer(r.Context(), c); err != nil {
		h.fail(w, r, "Failed to save customer", err)
		return
	}
	h.Feed.AddCustomer(c)
	metrics.IncRecordIngested("customer")

	writeJSON(w, http.StatusCreated, toCustomerDTO(c))
}

// GetCustomer returns one customer.
func (h *Handler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w)
	if !ok {
		return
	}
	id := ledger.CustomerID(chi.URLParam(r, "id"))

	c, found := snap.Customer(id)
	if !found {
		writeError(w, http.StatusNotFound, "Customer not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toCustomerDTO(c))
}

// GetBalance returns the customer's balance. Ids with records but no
// customer entry still get their sums; ids with neither are 404.
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	id := ledger.CustomerID(chi.URLParam(r, "id"))

	res, err := h.Balances.Resolve(r.Context(), id)
	if err != nil {
		h.fail(w, r, "Failed to resolve balance", err)
		return
	}
	if !res.Known && !res.HasActivity() {
		writeError(w, http.StatusNotFound, "Customer not found", nil)
		return
	}

	writeJSON(w, http.StatusOK, toBalanceDTO(res.BalanceBreakdown, res.Generation))
}

// ListBalances returns every customer's balance in customer order.
// ?area= filters case-insensitively.
func (h *Handler) ListBalances(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w)
	if !ok {
		return
	}
	area := r.URL.Query().Get("area")

	ids := make([]ledger.CustomerID, 0, len(snap.Customers))
	for _, c := range snap.Customers {
		if area != "" && !strings.EqualFold(c.Area, area) {
			continue
		}
		ids = append(ids, c.ID)
	}

	list, err := h.Balances.BalancesIn(r.Context(), snap, ids)
	if err != nil {
		h.fail(w, r, "Failed to resolve balances", err)
		return
	}

	dtos := make([]BalanceDTO, 0, len(list))
	for _, b := range list {
		dtos = append(dtos, toBalanceDTO(b, snap.Generation))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetStatement returns the customer's chronological ledger.
func (h *Handler) GetStatement(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w)
	if !ok {
		return
	}
	id := ledger.CustomerID(chi.URLParam(r, "id"))

	c, found := snap.Customer(id)
	if !found {
		writeError(w, http.StatusNotFound, "Customer not found", nil)
		return
	}

	entries := ledger.CustomerStatement(id, snap.Sales, snap.Advances, snap.Payments)
	dto := StatementDTO{
		Customer:   toCustomerDTO(c),
		Entries:    make([]StatementEntryDTO, len(entries)),
		Closing:    ledger.ZeroMoney().String(),
		Generation: uint64(snap.Generation),
	}
	for i, e := range entries {
		dto.Entries[i] = StatementEntryDTO{
			At:          formatTime(e.At),
			Kind:        string(e.Kind),
			RecordID:    string(e.RecordID),
			Description: e.Description,
			Debit:       e.Debit.String(),
			Credit:      e.Credit.String(),
			Balance:     e.Balance.String(),
		}
		dto.Closing = e.Balance.String()
	}
	writeJSON(w, http.StatusOK, dto)
}

// =============================================================================
// SUPPLIER HANDLERS
// =============================================================================

func (h *Handler) ListSuppliers(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w)
	if !ok {
		return
	}
	dtos := make([]SupplierDTO, len(snap.Suppliers))
	for i, s := range snap.Suppliers {
		dtos[i] = toSupplierDTO(s)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateSupplier(w http.ResponseWriter, r *http.Request) {
	var req CreateSupplierRequest
	if !h.decode(w, r, &req) {
		return
	}

	s := ledger.Supplier{
		ID:      ledger.SupplierID(req.ID),
		Name:    strings.TrimSpace(req.Name),
		Contact: strings.TrimSpace(req.Contact),
	}
	if s.ID == "" {
		s.ID = ledger.SupplierID(h.newID())
	}

	if err := h.Store.SaveSupplier(r.Context(), s); err != nil {
		h.fail(w, r, "Failed to save supplier", err)
		return
	}
	h.Feed.AddSupplier(s)
	metrics.IncRecordIngested("supplier")

	writeJSON(w, http.StatusCreated, toSupplierDTO(s))
}

// =============================================================================
// RECORD HANDLERS - Append-only
// =============================================================================

// ListSales returns sales in insertion order. Filters: ?customer=, ?fuel=.
func (h *Handler) ListSales(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w)
	if !ok {
		return
	}
	customer := ledger.CustomerID(r.URL.Query().Get("customer"))
	fuel := ledger.FuelType(strings.ToLower(r.URL.Query().Get("fuel")))

	dtos := make([]SaleDTO, 0)
	for _, s := range snap.Sales {
		if customer != "" && s.CustomerID != customer {
			continue
		}
		if fuel != "" && s.FuelType != fuel {
			continue
		}
		dtos = append(dtos, toSaleDTO(s))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateSale(w http.ResponseWriter, r *http.Request) {
	var req CreateSaleRequest
	if !h.decode(w, r, &req) {
		return
	}
	ctx := r.Context()

	if req.CustomerID != "" {
		if err := h.requireCustomer(ctx, ledger.CustomerID(req.CustomerID)); err != nil {
			h.fail(w, r, "Invalid sale", err)
			return
		}
	}

	fuel, _ := ledger.ParseFuelType(req.FuelType)
	sale := ledger.Sale{
		ID:            ledger.RecordID(h.newID()),
		At:            h.at(req.At),
		FuelType:      fuel,
		Volume:        ledger.NewAmountFromDecimal(req.Volume, ledger.UnitLitres),
		Total:         ledger.NewAmountFromDecimal(req.Total, ledger.UnitMoney),
		PaymentMethod: ledger.PaymentMethod(req.PaymentMethod),
		CustomerID:    ledger.CustomerID(req.CustomerID),
		BankAccountID: req.BankAccountID,
	}

	if err := h.Store.AppendSale(ctx, sale); err != nil {
		h.fail(w, r, "Failed to record sale", err)
		return
	}
	h.Feed.AddSale(sale)
	metrics.IncRecordIngested("sale")

	writeJSON(w, http.StatusCreated, toSaleDTO(sale))
}

// ListPurchases returns purchases. Filters: ?supplier=, ?fuel=.
func (h *Handler) ListPurchases(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w)
	if !ok {
		return
	}
	supplier := ledger.SupplierID(r.URL.Query().Get("supplier"))
	fuel := ledger.FuelType(strings.ToLower(r.URL.Query().Get("fuel")))

	dtos := make([]PurchaseDTO, 0)
	for _, p := range snap.Purchases {
		if supplier != "" && p.SupplierID != supplier {
			continue
		}
		if fuel != "" && p.FuelType != fuel {
			continue
		}
		dtos = append(dtos, toPurchaseDTO(p))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreatePurchase(w http.ResponseWriter, r *http.Request) {
	var req CreatePurchaseRequest
	if !h.decode(w, r, &req) {
		return
	}
	ctx := r.Context()

	sup, err := h.requireSupplier(ctx, ledger.SupplierID(req.SupplierID))
	if err != nil {
		h.fail(w, r, "Invalid purchase", err)
		return
	}

	fuel, _ := ledger.ParseFuelType(req.FuelType)
	p := ledger.Purchase{
		ID:           ledger.RecordID(h.newID()),
		At:           h.at(req.At),
		SupplierID:   sup.ID,
		SupplierName: sup.Name,
		FuelType:     fuel,
		Volume:       ledger.NewAmountFromDecimal(req.Volume, ledger.UnitLitres),
		TotalCost:    ledger.NewAmountFromDecimal(req.TotalCost, ledger.UnitMoney),
	}

	if err := h.Store.AppendPurchase(ctx, p); err != nil {
		h.fail(w, r, "Failed to record purchase", err)
		return
	}
	h.Feed.AddPurchase(p)
	metrics.IncRecordIngested("purchase")

	writeJSON(w, http.StatusCreated, toPurchaseDTO(p))
}

func (h *Handler) ListReturns(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w)
	if !ok {
		return
	}
	supplier := ledger.SupplierID(r.URL.Query().Get("supplier"))

	dtos := make([]ReturnDTO, 0)
	for _, ret := range snap.Returns {
		if supplier != "" && ret.SupplierID != supplier {
			continue
		}
		dtos = append(dtos, toReturnDTO(ret))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateReturn(w http.ResponseWriter, r *http.Request) {
	var req CreateReturnRequest
	if !h.decode(w, r, &req) {
		return
	}
	ctx := r.Context()

	sup, err := h.requireSupplier(ctx, ledger.SupplierID(req.SupplierID))
	if err != nil {
		h.fail(w, r, "Invalid return", err)
		return
	}

	fuel, _ := ledger.ParseFuelType(req.FuelType)
	ret := ledger.PurchaseReturn{
		ID:           ledger.RecordID(h.newID()),
		At:           h.at(req.At),
		SupplierID:   sup.ID,
		SupplierName: sup.Name,
		FuelType:     fuel,
		Volume:       ledger.NewAmountFromDecimal(req.Volume, ledger.UnitLitres),
		TotalRefund:  ledger.NewAmountFromDecimal(req.TotalRefund, ledger.UnitMoney),
		Reason:       strings.TrimSpace(req.Reason),
	}

	if err := h.Store.AppendReturn(ctx, ret); err != nil {
		h.fail(w, r, "Failed to record return", err)
		return
	}
	h.Feed.AddReturn(ret)
	metrics.IncRecordIngested("purchase_return")

	writeJSON(w, http.StatusCreated, toReturnDTO(ret))
}

func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w)
	if !ok {
		return
	}
	customer := ledger.CustomerID(r.URL.Query().Get("customer"))

	dtos := make([]PaymentDTO, 0)
	for _, p := range snap.Payments {
		if customer != "" && p.CustomerID != customer {
			continue
		}
		dtos = append(dtos, toPaymentDTO(p))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var req CreatePaymentRequest
	if !h.decode(w, r, &req) {
		return
	}
	ctx := r.Context()

	id := ledger.CustomerID(req.CustomerID)
	if err := h.requireCustomer(ctx, id); err != nil {
		h.fail(w, r, "Invalid payment", err)
		return
	}

	p := ledger.CustomerPayment{
		ID:         ledger.RecordID(h.newID()),
		At:         h.at(req.At),
		CustomerID: id,
		Amount:     ledger.NewAmountFromDecimal(req.Amount, ledger.UnitMoney),
		Note:       strings.TrimSpace(req.Note),
	}

	if err := h.Store.AppendPayment(ctx, p); err != nil {
		h.fail(w, r, "Failed to record payment", err)
		return
	}
	h.Feed.AddPayment(p)
	metrics.IncRecordIngested("customer_payment")

	writeJSON(w, http.StatusCreated, toPaymentDTO(p))
}

func (h *Handler) ListAdvances(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w)
	if !ok {
		return
	}
	customer := ledger.CustomerID(r.URL.Query().Get("customer"))

	dtos := make([]AdvanceDTO, 0)
	for _, a := range snap.Advances {
		if customer != "" && a.CustomerID != customer {
			continue
		}
		dtos = append(dtos, toAdvanceDTO(a))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateAdvance(w http.ResponseWriter, r *http.Request) {
	var req CreateAdvanceRequest
	if !h.decode(w, r, &req) {
		return
	}
	ctx := r.Context()

	id := ledger.CustomerID(req.CustomerID)
	if err := h.requireCustomer(ctx, id); err != nil {
		h.fail(w, r, "Invalid advance", err)
		return
	}

	a := ledger.CashAdvance{
		ID:         ledger.RecordID(h.newID()),
		At:         h.at(req.At),
		CustomerID: id,
		Amount:     ledger.NewAmountFromDecimal(req.Amount, ledger.UnitMoney),
		Purpose:    strings.TrimSpace(req.Purpose),
	}

	if err := h.Store.AppendAdvance(ctx, a); err != nil {
		h.fail(w, r, "Failed to record advance", err)
		return
	}
	h.Feed.AddAdvance(a)
	metrics.IncRecordIngested("cash_advance")

	writeJSON(w, http.StatusCreated, toAdvanceDTO(a))
}

// =============================================================================
// STOCK / STATUS
// =============================================================================

// ListStock returns current stock for every fuel, negative when oversold.
func (h *Handler) ListStock(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w)
	if !ok {
		return
	}
	dtos := make([]StockDTO, 0, len(ledger.FuelTypes))
	for _, fuel := range ledger.FuelTypes {
		flows := ledger.Flows(fuel, snap.Purchases, snap.Sales, snap.Returns)
		dtos = append(dtos, toStockDTO(flows, snap.Stock(fuel), snap.Generation))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetStock returns one fuel's stock.
func (h *Handler) GetStock(w http.ResponseWriter, r *http.Request) {
	fuel, err := ledger.ParseFuelType(chi.URLParam(r, "fuel"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Unknown fuel type", err)
		return
	}
	snap, ok := h.snapshot(w)
	if !ok {
		return
	}
	flows := ledger.Flows(fuel, snap.Purchases, snap.Sales, snap.Returns)
	writeJSON(w, http.StatusOK, toStockDTO(flows, snap.Stock(fuel), snap.Generation))
}

type pinger interface {
	Ping(ctx context.Context) error
}

// GetStatus reports the join barrier state. Always 200.
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	cur := h.Feed.Current()
	dto := StatusDTO{Status: "ready", Generation: uint64(cur.Generation())}
	if !cur.IsReady() {
		dto.Status = "loading"
		dto.Pending = sourceNames(cur.Pending())
	}
	if p, ok := h.Store.(pinger); ok {
		dto.Store = "ok"
		if err := p.Ping(r.Context()); err != nil {
			dto.Store = err.Error()
		}
	}
	writeJSON(w, http.StatusOK, dto)
}

// =============================================================================
// HELPERS
// =============================================================================

// decode reads a JSON body and validates it. It writes 400 and returns
// false on any failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:  "Validation failed",
			Fields: fieldErrors(err),
		})
		return false
	}
	return true
}

func (h *Handler) requireCustomer(ctx context.Context, id ledger.CustomerID) error {
	c, err := h.Store.GetCustomer(ctx, id)
	if err != nil {
		return err
	}
	if c == nil {
		return fmt.Errorf("%w: %s", ledger.ErrCustomerNotFound, id)
	}
	return nil
}

func (h *Handler) requireSupplier(ctx context.Context, id ledger.SupplierID) (*ledger.Supplier, error) {
	s, err := h.Store.GetSupplier(ctx, id)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, fmt.Errorf("%w: %s", ledger.ErrSupplierNotFound, id)
	}
	return s, nil
}

func (h *Handler) at(t *time.Time) time.Time {
	if t == nil || t.IsZero() {
		return h.now().UTC()
	}
	return t.UTC()
}

// fail maps an error to its status code. Unexpected errors are logged.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, message string, err error) {
	switch {
	case ledger.IsNotReady(err):
		writeNotReady(w, err)
	case ledger.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case errors.Is(err, ledger.ErrDuplicateRecord):
		writeError(w, http.StatusConflict, message, err)
	case ledger.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	case errors.Is(err, context.Canceled):
		// client went away; nothing to answer
	default:
		h.log.WithContext(r.Context()).Errorw(message, "error", err, "path", r.URL.Path)
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

func writeNotReady(w http.ResponseWriter, err error) {
	resp := NotReadyResponse{Status: "loading", Pending: []string{}}
	var nre *ledger.NotReadyError
	if errors.As(err, &nre) {
		resp.Generation = uint64(nre.Generation)
		resp.Pending = sourceNames(nre.Pending)
	}
	w.Header().Set("Retry-After", "1")
	writeJSON(w, http.StatusServiceUnavailable, resp)
}

func sourceNames(names []ledger.SourceName) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = string(n)
	}
	return out
}
