/*
Package scenarios provides demo data sets for the fuel ledger.

PURPOSE:
  Each scenario is a YAML fixture embedded in the binary. Loading one
  populates a record store with customers, suppliers and records that show
  a specific behavior of the ledger.

AVAILABLE SCENARIOS:
  quiet-day:    One credit customer, one delivery per fuel, walk-in sales
  credit-book:  Several credit customers, advances, payments, tied defaulters
  oversold:     Diesel sold past what was delivered, one purchase return

HOW SCENARIOS WORK:
  1. Caller resets the store
  2. Apply saves parties first, then appends each record collection
  3. Caller reloads the feed from the store

ADDING NEW SCENARIOS:
  Drop a file into fixtures/. The id field must be unique.

SEE ALSO:
  - api/scenarios.go: HTTP handlers
*/
package scenarios

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pumpline/fuel-ledger/ledger"
)

//go:embed fixtures/*.yaml
var fixtures embed.FS

// Info describes a scenario without its records.
type Info struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Scenario is one parsed fixture.
type Scenario struct {
	Info
	Order int

	Customers []ledger.Customer
	Suppliers []ledger.Supplier
	Sales     []ledger.Sale
	Purchases []ledger.Purchase
	Returns   []ledger.PurchaseReturn
	Payments  []ledger.CustomerPayment
	Advances  []ledger.CashAdvance
}

// =============================================================================
// FIXTURE FORMAT
// =============================================================================

type fixture struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Order       int    `yaml:"order"`

	Customers []struct {
		ID      string `yaml:"id"`
		Name    string `yaml:"name"`
		Contact string `yaml:"contact"`
		Area    string `yaml:"area"`
	} `yaml:"customers"`

	Suppliers []struct {
		ID      string `yaml:"id"`
		Name    string `yaml:"name"`
		Contact string `yaml:"contact"`
	} `yaml:"suppliers"`

	Sales []struct {
		ID          string    `yaml:"id"`
		At          time.Time `yaml:"at"`
		Fuel        string    `yaml:"fuel"`
		Volume      string    `yaml:"volume"`
		Total       string    `yaml:"total"`
		Method      string    `yaml:"method"`
		Customer    string    `yaml:"customer"`
		BankAccount string    `yaml:"bank_account"`
	} `yaml:"sales"`

	Purchases []struct {
		ID        string    `yaml:"id"`
		At        time.Time `yaml:"at"`
		Supplier  string    `yaml:"supplier"`
		Fuel      string    `yaml:"fuel"`
		Volume    string    `yaml:"volume"`
		TotalCost string    `yaml:"total_cost"`
	} `yaml:"purchases"`

	Returns []struct {
		ID          string    `yaml:"id"`
		At          time.Time `yaml:"at"`
		Supplier    string    `yaml:"supplier"`
		Fuel        string    `yaml:"fuel"`
		Volume      string    `yaml:"volume"`
		TotalRefund string    `yaml:"total_refund"`
		Reason      string    `yaml:"reason"`
	} `yaml:"returns"`

	Payments []struct {
		ID       string    `yaml:"id"`
		At       time.Time `yaml:"at"`
		Customer string    `yaml:"customer"`
		Amount   string    `yaml:"amount"`
		Note     string    `yaml:"note"`
	} `yaml:"payments"`

	Advances []struct {
		ID       string    `yaml:"id"`
		At       time.Time `yaml:"at"`
		Customer string    `yaml:"customer"`
		Amount   string    `yaml:"amount"`
		Purpose  string    `yaml:"purpose"`
	} `yaml:"advances"`
}

// =============================================================================
// CATALOG
// =============================================================================

// List returns every embedded scenario, ordered for display.
func List() ([]Info, error) {
	all, err := loadAll()
	if err != nil {
		return nil, err
	}
	out := make([]Info, 0, len(all))
	for _, s := range all {
		out = append(out, s.Info)
	}
	return out, nil
}

// Get parses one scenario by id.
func Get(id string) (*Scenario, error) {
	all, err := loadAll()
	if err != nil {
		return nil, err
	}
	for _, s := range all {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, fmt.Errorf("unknown scenario: %s", id)
}

func loadAll() ([]*Scenario, error) {
	paths, err := fs.Glob(fixtures, "fixtures/*.yaml")
	if err != nil {
		return nil, err
	}

	out := make([]*Scenario, 0, len(paths))
	seen := make(map[string]bool)
	for _, p := range paths {
		raw, err := fixtures.ReadFile(p)
		if err != nil {
			return nil, err
		}
		s, err := Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		if seen[s.ID] {
			return nil, fmt.Errorf("%s: duplicate scenario id %q", p, s.ID)
		}
		seen[s.ID] = true
		out = append(out, s)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

// Parse decodes one YAML fixture.
func Parse(raw []byte) (*Scenario, error) {
	var f fixture
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decode fixture: %w", err)
	}
	if f.ID == "" {
		return nil, fmt.Errorf("fixture has no id")
	}

	s := &Scenario{
		Info:  Info{ID: f.ID, Name: f.Name, Description: f.Description},
		Order: f.Order,
	}

	suppliers := make(map[string]string)
	for _, c := range f.Customers {
		s.Customers = append(s.Customers, ledger.Customer{
			ID: ledger.CustomerID(c.ID), Name: c.Name, Contact: c.Contact, Area: c.Area,
		})
	}
	for _, sup := range f.Suppliers {
		suppliers[sup.ID] = sup.Name
		s.Suppliers = append(s.Suppliers, ledger.Supplier{
			ID: ledger.SupplierID(sup.ID), Name: sup.Name, Contact: sup.Contact,
		})
	}

	p := parser{}
	for _, r := range f.Sales {
		s.Sales = append(s.Sales, ledger.Sale{
			ID:            ledger.RecordID(r.ID),
			At:            r.At,
			FuelType:      p.fuel(r.ID, r.Fuel),
			Volume:        p.amount(r.ID, r.Volume, ledger.UnitLitres),
			Total:         p.amount(r.ID, r.Total, ledger.UnitMoney),
			PaymentMethod: ledger.PaymentMethod(r.Method),
			CustomerID:    ledger.CustomerID(r.Customer),
			BankAccountID: r.BankAccount,
		})
	}
	for _, r := range f.Purchases {
		s.Purchases = append(s.Purchases, ledger.Purchase{
			ID:           ledger.RecordID(r.ID),
			At:           r.At,
			SupplierID:   ledger.SupplierID(r.Supplier),
			SupplierName: suppliers[r.Supplier],
			FuelType:     p.fuel(r.ID, r.Fuel),
			Volume:       p.amount(r.ID, r.Volume, ledger.UnitLitres),
			TotalCost:    p.amount(r.ID, r.TotalCost, ledger.UnitMoney),
		})
	}
	for _, r := range f.Returns {
		s.Returns = append(s.Returns, ledger.PurchaseReturn{
			ID:           ledger.RecordID(r.ID),
			At:           r.At,
			SupplierID:   ledger.SupplierID(r.Supplier),
			SupplierName: suppliers[r.Supplier],
			FuelType:     p.fuel(r.ID, r.Fuel),
			Volume:       p.amount(r.ID, r.Volume, ledger.UnitLitres),
			TotalRefund:  p.amount(r.ID, r.TotalRefund, ledger.UnitMoney),
			Reason:       r.Reason,
		})
	}
	for _, r := range f.Payments {
		s.Payments = append(s.Payments, ledger.CustomerPayment{
			ID:         ledger.RecordID(r.ID),
			At:         r.At,
			CustomerID: ledger.CustomerID(r.Customer),
			Amount:     p.amount(r.ID, r.Amount, ledger.UnitMoney),
			Note:       r.Note,
		})
	}
	for _, r := range f.Advances {
		s.Advances = append(s.Advances, ledger.CashAdvance{
			ID:         ledger.RecordID(r.ID),
			At:         r.At,
			CustomerID: ledger.CustomerID(r.Customer),
			Amount:     p.amount(r.ID, r.Amount, ledger.UnitMoney),
			Purpose:    r.Purpose,
		})
	}

	if p.err != nil {
		return nil, p.err
	}
	return s, nil
}

// parser keeps the first field error so record loops stay flat.
type parser struct {
	err error
}

func (p *parser) fuel(id, raw string) ledger.FuelType {
	f, err := ledger.ParseFuelType(raw)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("record %s: %w", id, err)
	}
	return f
}

func (p *parser) amount(id, raw string, unit ledger.Unit) ledger.Amount {
	a, err := ledger.ParseAmount(raw, unit)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("record %s: %w", id, err)
	}
	return a
}

// =============================================================================
// APPLY
// =============================================================================

// Apply writes the scenario to sink: parties first, then records.
func (s *Scenario) Apply(ctx context.Context, sink ledger.RecordSink) error {
	for _, c := range s.Customers {
		if err := sink.SaveCustomer(ctx, c); err != nil {
			return fmt.Errorf("customer %s: %w", c.ID, err)
		}
	}
	for _, sup := range s.Suppliers {
		if err := sink.SaveSupplier(ctx, sup); err != nil {
			return fmt.Errorf("supplier %s: %w", sup.ID, err)
		}
	}
	for _, p := range s.Purchases {
		if err := sink.AppendPurchase(ctx, p); err != nil {
			return fmt.Errorf("purchase %s: %w", p.ID, err)
		}
	}
	for _, r := range s.Returns {
		if err := sink.AppendReturn(ctx, r); err != nil {
			return fmt.Errorf("return %s: %w", r.ID, err)
		}
	}
	for _, sale := range s.Sales {
		if err := sink.AppendSale(ctx, sale); err != nil {
			return fmt.Errorf("sale %s: %w", sale.ID, err)
		}
	}
	for _, a := range s.Advances {
		if err := sink.AppendAdvance(ctx, a); err != nil {
			return fmt.Errorf("advance %s: %w", a.ID, err)
		}
	}
	for _, p := range s.Payments {
		if err := sink.AppendPayment(ctx, p); err != nil {
			return fmt.Errorf("payment %s: %w", p.ID, err)
		}
	}
	return nil
}

// RecordCount is the number of records, excluding parties.
func (s *Scenario) RecordCount() int {
	return len(s.Sales) + len(s.Purchases) + len(s.Returns) + len(s.Payments) + len(s.Advances)
}
