/*
reports.go - Report endpoints

ENDPOINTS:
  GET /api/reports/defaulters       ?area=
  GET /api/reports/product-sales    ?from=&to=
  GET /api/reports/stock-movement
  GET /api/reports/profit-margin    ?from=&to=

  All accept ?format=json (default) | xlsx | pdf.

DATES:
  from/to accept YYYY-MM-DD or RFC3339. A date-only "to" covers the whole
  day. Either bound may be omitted.

CONSISTENCY:
  Each report is computed from one snapshot. The response (or the file's
  header row) carries that snapshot's generation.
*/
package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pumpline/fuel-ledger/reports"
)

const (
	reportDefaulters    = "defaulters"
	reportProductSales  = "product-sales"
	reportStockMovement = "stock-movement"
	reportProfitMargin  = "profit-margin"
)

const (
	formatJSON = "json"
	formatXLSX = "xlsx"
	formatPDF  = "pdf"
)

// tabular is satisfied by every report envelope.
type tabular interface {
	Table() reports.Table
}

// GetReport dispatches on the report name.
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	q := r.URL.Query()

	format := strings.ToLower(q.Get("format"))
	if format == "" {
		format = formatJSON
	}
	if format != formatJSON && format != formatXLSX && format != formatPDF {
		writeError(w, http.StatusBadRequest, "Unknown format", fmt.Errorf("format %q: use json, xlsx or pdf", format))
		return
	}

	period, err := parsePeriod(q.Get("from"), q.Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date range", err)
		return
	}

	ctx := r.Context()
	var (
		body  any
		table tabular
	)
	switch name {
	case reportDefaulters:
		rep, err := h.Reports.Defaulters(ctx, reports.DefaulterFilter{Area: q.Get("area")})
		if err != nil {
			h.fail(w, r, "Failed to build report", err)
			return
		}
		body, table = toDefaulterReportDTO(rep), rep
	case reportProductSales:
		rep, err := h.Reports.ProductSales(ctx, period)
		if err != nil {
			h.fail(w, r, "Failed to build report", err)
			return
		}
		body, table = toProductSalesReportDTO(rep), rep
	case reportStockMovement:
		rep, err := h.Reports.StockMovement(ctx)
		if err != nil {
			h.fail(w, r, "Failed to build report", err)
			return
		}
		body, table = toStockMovementReportDTO(rep), rep
	case reportProfitMargin:
		rep, err := h.Reports.ProfitMargin(ctx, period)
		if err != nil {
			h.fail(w, r, "Failed to build report", err)
			return
		}
		body, table = toProfitMarginReportDTO(rep), rep
	default:
		writeError(w, http.StatusNotFound, "Unknown report", fmt.Errorf("report %q", name))
		return
	}

	if format == formatJSON {
		writeJSON(w, http.StatusOK, body)
		return
	}
	h.writeFile(w, r, name, format, table.Table())
}

func (h *Handler) writeFile(w http.ResponseWriter, r *http.Request, name, format string, t reports.Table) {
	var (
		data        []byte
		err         error
		contentType string
	)
	switch format {
	case formatXLSX:
		data, err = reports.RenderXLSX(t)
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case formatPDF:
		data, err = reports.RenderPDF(t)
		contentType = "application/pdf"
	}
	if err != nil {
		h.fail(w, r, "Failed to render report", err)
		return
	}

	filename := fmt.Sprintf("%s-%s.%s", name, t.AsOf.UTC().Format("20060102-150405"), format)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func parsePeriod(from, to string) (reports.Period, error) {
	var p reports.Period
	if from != "" {
		t, _, err := parseDate(from)
		if err != nil {
			return p, fmt.Errorf("from: %w", err)
		}
		p.From = t
	}
	if to != "" {
		t, dateOnly, err := parseDate(to)
		if err != nil {
			return p, fmt.Errorf("to: %w", err)
		}
		if dateOnly {
			t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
		}
		p.To = t
	}
	if !p.From.IsZero() && !p.To.IsZero() && p.To.Before(p.From) {
		return p, fmt.Errorf("to is before from")
	}
	return p, nil
}

func parseDate(s string) (time.Time, bool, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, true, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("expected YYYY-MM-DD or RFC3339, got %q", s)
	}
	return t, false, nil
}
