/*
handlers_test.go - HTTP tests for the record and party endpoints

Tests for:
- 503 answers while collections are loading
- Customer / supplier creation and lookup
- Record creation with validation and reference checks
- Balance, statement and stock reads after writes
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pumpline/fuel-ledger/feed"
	"github.com/pumpline/fuel-ledger/ledger"
	"github.com/pumpline/fuel-ledger/store/sqlite"
)

// =============================================================================
// TEST INFRASTRUCTURE
// =============================================================================

var testNow = time.Date(2024, time.June, 3, 9, 30, 0, 0, time.UTC)

type testServer struct {
	t       *testing.T
	handler *Handler
	router  *chi.Mux
}

// setupTestServer builds a router over an in-memory SQLite store. The feed
// is loaded unless the caller asks for a server that is still loading.
func setupTestServer(t *testing.T, loaded bool) *testServer {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	f := feed.New(nil)
	if loaded {
		require.NoError(t, f.Load(context.Background(), store))
	}

	h := NewHandler(store, f, nil)
	h.now = func() time.Time { return testNow }
	var seq atomic.Int64
	h.newID = func() string { return fmt.Sprintf("id-%d", seq.Add(1)) }

	return &testServer{t: t, handler: h, router: NewRouter(h, RouterOptions{})}
}

func (s *testServer) do(method, path string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	return s.doWithContext(context.Background(), method, path, body)
}

func (s *testServer) doWithContext(ctx context.Context, method, path string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf).WithContext(ctx)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) mustCreate(path string, body any) {
	s.t.Helper()
	rec := s.do(http.MethodPost, path, body)
	require.Equal(s.t, http.StatusCreated, rec.Code, "POST %s: %s", path, rec.Body.String())
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

// =============================================================================
// LOADING BARRIER
// =============================================================================

func TestAPI_ReadsWhileLoadingAnswer503(t *testing.T) {
	// GIVEN: A feed that has not loaded anything
	s := setupTestServer(t, false)

	for _, path := range []string{
		"/api/customers",
		"/api/customers/A/balance",
		"/api/sales",
		"/api/stock",
		"/api/reports/defaulters",
	} {
		t.Run(path, func(t *testing.T) {
			// WHEN
			rec := s.do(http.MethodGet, path, nil)

			// THEN: 503 naming every pending source
			require.Equal(t, http.StatusServiceUnavailable, rec.Code)
			assert.Equal(t, "1", rec.Header().Get("Retry-After"))
			body := decodeBody[NotReadyResponse](t, rec)
			assert.Equal(t, "loading", body.Status)
			assert.Len(t, body.Pending, len(ledger.AllSources))
		})
	}
}

func TestAPI_StatusReportsBarrier(t *testing.T) {
	loading := setupTestServer(t, false)
	rec := loading.do(http.MethodGet, "/api/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	st := decodeBody[StatusDTO](t, rec)
	assert.Equal(t, "loading", st.Status)
	assert.Contains(t, st.Pending, string(ledger.SourcePayments))
	assert.Equal(t, "ok", st.Store)

	ready := setupTestServer(t, true)
	st = decodeBody[StatusDTO](t, ready.do(http.MethodGet, "/api/status", nil))
	assert.Equal(t, "ready", st.Status)
	assert.Empty(t, st.Pending)
}

// =============================================================================
// PARTIES
// =============================================================================

func TestAPI_CreateAndListCustomers(t *testing.T) {
	s := setupTestServer(t, true)

	rec := s.do(http.MethodPost, "/api/customers", CreateCustomerRequest{Name: "  Bilal Transport ", Area: "North"})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeBody[CustomerDTO](t, rec)
	assert.Equal(t, "id-1", created.ID)
	assert.Equal(t, "Bilal Transport", created.Name)

	s.mustCreate("/api/customers", CreateCustomerRequest{ID: "B", Name: "Karim", Area: "South"})

	all := decodeBody[[]CustomerDTO](t, s.do(http.MethodGet, "/api/customers", nil))
	require.Len(t, all, 2)
	assert.Equal(t, "id-1", all[0].ID)

	north := decodeBody[[]CustomerDTO](t, s.do(http.MethodGet, "/api/customers?area=north", nil))
	require.Len(t, north, 1)

	got := s.do(http.MethodGet, "/api/customers/B", nil)
	require.Equal(t, http.StatusOK, got.Code)
	assert.Equal(t, "Karim", decodeBody[CustomerDTO](t, got).Name)

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/customers/nobody", nil).Code)
}

func TestAPI_CreateCustomerValidation(t *testing.T) {
	s := setupTestServer(t, true)

	rec := s.do(http.MethodPost, "/api/customers", CreateCustomerRequest{})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody[ErrorResponse](t, rec)
	assert.Equal(t, "Validation failed", body.Error)
	assert.Equal(t, "is required", body.Fields["name"])
}

func TestAPI_UnknownFieldsRejected(t *testing.T) {
	s := setupTestServer(t, true)

	rec := s.do(http.MethodPost, "/api/suppliers", `{"name":"Depot","phone":"123"}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid request body", decodeBody[ErrorResponse](t, rec).Error)
}

// =============================================================================
// RECORDS
// =============================================================================

func TestAPI_SaleValidation(t *testing.T) {
	// GIVEN: A credit sale with no customer, bad fuel and zero volume
	s := setupTestServer(t, true)
	body := `{"fuel_type":"kerosene","volume":0,"total":-5,"payment_method":"credit"}`

	// WHEN
	rec := s.do(http.MethodPost, "/api/sales", body)

	// THEN: Every field problem reported by json name
	require.Equal(t, http.StatusBadRequest, rec.Code)
	fields := decodeBody[ErrorResponse](t, rec).Fields
	assert.Contains(t, fields, "fuel_type")
	assert.Contains(t, fields, "volume")
	assert.Contains(t, fields, "total")
	assert.Contains(t, fields, "customer_id")
}

func TestAPI_SaleForUnknownCustomerIs404(t *testing.T) {
	s := setupTestServer(t, true)

	rec := s.do(http.MethodPost, "/api/sales", map[string]any{
		"fuel_type": "diesel", "volume": 10, "total": 3000,
		"payment_method": "credit", "customer_id": "ghost",
	})

	assert.Equal(t, http.StatusNotFound, rec.Code)
	sales := decodeBody[[]SaleDTO](t, s.do(http.MethodGet, "/api/sales", nil))
	assert.Empty(t, sales)
}

func TestAPI_BalanceAndStatementFollowWrites(t *testing.T) {
	// GIVEN: A customer with a credit sale, an advance and a payment
	s := setupTestServer(t, true)
	s.mustCreate("/api/customers", CreateCustomerRequest{ID: "A", Name: "Alpha"})
	s.mustCreate("/api/sales", map[string]any{
		"at": "2024-06-01T08:00:00Z", "fuel_type": "diesel", "volume": "10.5", "total": "3000.50",
		"payment_method": "credit", "customer_id": "A",
	})
	s.mustCreate("/api/sales", map[string]any{
		"fuel_type": "petrol", "volume": 5, "total": 1400, "payment_method": "cash",
	})
	s.mustCreate("/api/advances", map[string]any{
		"at": "2024-06-02T08:00:00Z", "customer_id": "A", "amount": 1000, "purpose": "wages",
	})
	s.mustCreate("/api/payments", map[string]any{
		"at": "2024-06-03T08:00:00Z", "customer_id": "A", "amount": "3000",
	})

	// WHEN: Reading the balance
	rec := s.do(http.MethodGet, "/api/customers/A/balance", nil)

	// THEN: sales + advances - payments, walk-in excluded
	require.Equal(t, http.StatusOK, rec.Code)
	bal := decodeBody[BalanceDTO](t, rec)
	assert.Equal(t, "3000.5", bal.Sales)
	assert.Equal(t, "1000", bal.Advances)
	assert.Equal(t, "3000", bal.Payments)
	assert.Equal(t, "1000.5", bal.Balance)
	assert.True(t, bal.Owes)
	assert.Equal(t, uint64(s.handler.Feed.Generation()), bal.Generation)

	// AND: The statement closes on the same figure
	st := decodeBody[StatementDTO](t, s.do(http.MethodGet, "/api/customers/A/statement", nil))
	require.Len(t, st.Entries, 3)
	assert.Equal(t, "sale", st.Entries[0].Kind)
	assert.Equal(t, "payment", st.Entries[2].Kind)
	assert.Equal(t, "1000.5", st.Closing)

	// AND: The walk-in sale is listed as such
	sales := decodeBody[[]SaleDTO](t, s.do(http.MethodGet, "/api/sales?fuel=petrol", nil))
	require.Len(t, sales, 1)
	assert.True(t, sales[0].WalkIn)
	assert.Equal(t, formatTime(testNow), sales[0].At)
}

func TestAPI_ListBalances(t *testing.T) {
	// GIVEN: Two customers in different areas, one with a credit sale
	s := setupTestServer(t, true)
	s.mustCreate("/api/customers", CreateCustomerRequest{ID: "A", Name: "Alpha", Area: "North"})
	s.mustCreate("/api/customers", CreateCustomerRequest{ID: "B", Name: "Beta", Area: "South"})
	s.mustCreate("/api/sales", map[string]any{
		"fuel_type": "diesel", "volume": 2, "total": 600, "payment_method": "credit", "customer_id": "B",
	})

	// WHEN
	rec := s.do(http.MethodGet, "/api/balances", nil)

	// THEN: Every customer in creation order, all at the same generation
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeBody[[]BalanceDTO](t, rec)
	require.Len(t, list, 2)
	assert.Equal(t, "A", list[0].CustomerID)
	assert.Equal(t, "0", list[0].Balance)
	assert.Equal(t, "600", list[1].Balance)
	assert.Equal(t, list[0].Generation, list[1].Generation)

	south := decodeBody[[]BalanceDTO](t, s.do(http.MethodGet, "/api/balances?area=south", nil))
	require.Len(t, south, 1)
	assert.Equal(t, "B", south[0].CustomerID)
}

func TestAPI_BalanceUnknownCustomer(t *testing.T) {
	s := setupTestServer(t, true)

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/customers/ghost/balance", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/customers/ghost/statement", nil).Code)
}

func TestAPI_PurchaseRequiresSupplier(t *testing.T) {
	s := setupTestServer(t, true)

	rec := s.do(http.MethodPost, "/api/purchases", map[string]any{
		"supplier_id": "nope", "fuel_type": "diesel", "volume": 100, "total_cost": 28000,
	})

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPI_StockGoesNegativeWhenOversold(t *testing.T) {
	// GIVEN: 1000 L delivered, 100 L returned, 1500 L sold
	s := setupTestServer(t, true)
	s.mustCreate("/api/suppliers", CreateSupplierRequest{ID: "S", Name: "Attock"})
	s.mustCreate("/api/purchases", map[string]any{
		"supplier_id": "S", "fuel_type": "diesel", "volume": 1000, "total_cost": 280000,
	})
	s.mustCreate("/api/returns", map[string]any{
		"supplier_id": "S", "fuel_type": "diesel", "volume": 100, "total_refund": 28000, "reason": "water",
	})
	s.mustCreate("/api/sales", map[string]any{
		"fuel_type": "diesel", "volume": 1500, "total": 450000,
		"payment_method": "bank_transfer", "bank_account_id": "MCB-1",
	})

	// WHEN
	rec := s.do(http.MethodGet, "/api/stock/diesel", nil)

	// THEN: Negative stock is reported, flagged, never clamped
	require.Equal(t, http.StatusOK, rec.Code)
	st := decodeBody[StockDTO](t, rec)
	assert.Equal(t, "-600", st.Current)
	assert.Equal(t, "100", st.Returned)
	assert.True(t, st.Oversold)

	all := decodeBody[[]StockDTO](t, s.do(http.MethodGet, "/api/stock", nil))
	require.Len(t, all, len(ledger.FuelTypes))
	assert.Equal(t, "0", all[0].Current)

	purchases := decodeBody[[]PurchaseDTO](t, s.do(http.MethodGet, "/api/purchases?supplier=S", nil))
	require.Len(t, purchases, 1)
	assert.Equal(t, "Attock", purchases[0].SupplierName)

	returns := decodeBody[[]ReturnDTO](t, s.do(http.MethodGet, "/api/returns", nil))
	require.Len(t, returns, 1)
}

func TestAPI_StockUnknownFuel(t *testing.T) {
	s := setupTestServer(t, true)

	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/api/stock/kerosene", nil).Code)
}

func TestAPI_RecordFiltersByCustomer(t *testing.T) {
	s := setupTestServer(t, true)
	s.mustCreate("/api/customers", CreateCustomerRequest{ID: "A", Name: "Alpha"})
	s.mustCreate("/api/customers", CreateCustomerRequest{ID: "B", Name: "Beta"})
	s.mustCreate("/api/payments", map[string]any{"customer_id": "A", "amount": 10})
	s.mustCreate("/api/payments", map[string]any{"customer_id": "B", "amount": 20})
	s.mustCreate("/api/advances", map[string]any{"customer_id": "B", "amount": 5})

	payments := decodeBody[[]PaymentDTO](t, s.do(http.MethodGet, "/api/payments?customer=B", nil))
	require.Len(t, payments, 1)
	assert.Equal(t, "20", payments[0].Amount)

	advances := decodeBody[[]AdvanceDTO](t, s.do(http.MethodGet, "/api/advances?customer=A", nil))
	assert.Empty(t, advances)
}

func TestAPI_MetricsEndpoint(t *testing.T) {
	s := setupTestServer(t, true)

	rec := s.do(http.MethodGet, "/metrics", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
}
