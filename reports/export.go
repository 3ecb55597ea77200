package reports

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"
)

// Table is the format-neutral shape every report exports through.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
	Footer  []string // optional totals row
	AsOf    time.Time
}

func (r *DefaulterReport) Table() Table {
	t := Table{
		Title:   "Defaulters",
		Headers: []string{"Customer", "Contact", "Area", "Sales", "Advances", "Payments", "Balance"},
		AsOf:    r.GeneratedAt,
	}
	for _, row := range r.Rows {
		t.Rows = append(t.Rows, []string{
			row.Name, row.Contact, row.Area,
			row.Sales.Fixed(), row.Advances.Fixed(), row.Payments.Fixed(), row.Balance.Fixed(),
		})
	}
	t.Footer = []string{"Total", "", "", "", "", "", r.TotalOutstanding.Fixed()}
	return t
}

func (r *ProductSalesReport) Table() Table {
	t := Table{
		Title:   "Product Sales",
		Headers: []string{"Fuel", "Sales", "Quantity (L)", "Revenue", "Avg Price / L"},
		AsOf:    r.GeneratedAt,
	}
	for _, row := range r.Rows {
		t.Rows = append(t.Rows, []string{
			row.FuelType.Label(), fmt.Sprintf("%d", row.SaleCount),
			row.TotalQuantity.Fixed(), row.TotalRevenue.Fixed(), row.AvgPricePerUnit.Fixed(),
		})
	}
	t.Footer = []string{"Total", "", "", r.TotalRevenue.Fixed(), ""}
	return t
}

func (r *StockMovementReport) Table() Table {
	t := Table{
		Title:   "Stock Movement",
		Headers: []string{"Fuel", "Purchased (L)", "Sold (L)", "Returned (L)", "Current Stock (L)"},
		AsOf:    r.GeneratedAt,
	}
	for _, row := range r.Rows {
		t.Rows = append(t.Rows, []string{
			row.FuelType.Label(), row.TotalPurchased.Fixed(), row.TotalSold.Fixed(),
			row.TotalReturned.Fixed(), row.CurrentStock.Fixed(),
		})
	}
	return t
}

func (r *ProfitMarginReport) Table() Table {
	t := Table{
		Title:   "Profit Margin",
		Headers: []string{"Fuel", "Quantity Sold (L)", "Avg Cost / L", "Avg Sale / L", "Margin / L", "Margin"},
		AsOf:    r.GeneratedAt,
	}
	for _, row := range r.Rows {
		t.Rows = append(t.Rows, []string{
			row.FuelType.Label(), row.QuantitySold.Fixed(), row.AvgCostPrice.Fixed(),
			row.AvgSalePrice.Fixed(), row.MarginPerUnit.Fixed(), row.Margin.Fixed(),
		})
	}
	t.Footer = []string{"Total", "", "", "", "", r.TotalMargin.Fixed()}
	return t
}

// =============================================================================
// RENDERERS
// =============================================================================

// RenderXLSX writes the table to a single-sheet workbook.
func RenderXLSX(t Table) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "report"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	_ = f.SetCellValue(sheet, "A1", t.Title)
	_ = f.SetCellValue(sheet, "A2", "Generated")
	_ = f.SetCellValue(sheet, "B2", t.AsOf.Format(time.RFC3339))

	write := func(row int, values []string) error {
		for i, v := range values {
			cell, err := excelize.CoordinatesToCellName(i+1, row)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
		return nil
	}

	row := 4
	if err := write(row, t.Headers); err != nil {
		return nil, err
	}
	for _, values := range t.Rows {
		row++
		if err := write(row, values); err != nil {
			return nil, err
		}
	}
	if len(t.Footer) > 0 {
		if err := write(row+1, t.Footer); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RenderPDF writes the table to a landscape A4 page.
func RenderPDF(t Table) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.Cell(0, 8, t.Title)
	pdf.Ln(8)
	pdf.SetFont("Arial", "", 9)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", t.AsOf.Format(time.RFC3339)))
	pdf.Ln(10)

	width := 270.0
	if len(t.Headers) > 0 {
		width = 270.0 / float64(len(t.Headers))
	}

	pdf.SetFont("Arial", "B", 9)
	for _, h := range t.Headers {
		pdf.CellFormat(width, 6, h, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, values := range t.Rows {
		for i, v := range values {
			align := "R"
			if i == 0 {
				align = "L"
			}
			pdf.CellFormat(width, 6, v, "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}
	if len(t.Footer) > 0 {
		pdf.SetFont("Arial", "B", 9)
		for i, v := range t.Footer {
			align := "R"
			if i == 0 {
				align = "L"
			}
			pdf.CellFormat(width, 6, v, "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
