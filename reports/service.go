package reports

import (
	"context"
	"time"

	"github.com/pumpline/fuel-ledger/ledger"
	"github.com/pumpline/fuel-ledger/metrics"
	"github.com/pumpline/fuel-ledger/pkg/logger"
)

// SnapshotProvider yields the current joined state. *feed.Feed satisfies it.
type SnapshotProvider interface {
	Current() ledger.Readiness
}

// Service runs reports behind the join barrier. Each report reads exactly
// one Readiness, so all of its fields come from the same generation.
type Service struct {
	provider SnapshotProvider
	log      *logger.Logger
	now      func() time.Time
}

func NewService(provider SnapshotProvider, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		provider: provider,
		log:      log.WithComponent("reports"),
		now:      time.Now,
	}
}

// Envelope is the common header of every report.
type Envelope struct {
	Generation  ledger.Generation
	GeneratedAt time.Time
}

type DefaulterReport struct {
	Envelope
	Filter           DefaulterFilter
	Rows             []DefaulterRow
	TotalOutstanding ledger.Amount
}

type ProductSalesReport struct {
	Envelope
	Period       Period
	Rows         []ProductSalesRow
	TotalRevenue ledger.Amount
}

type StockMovementReport struct {
	Envelope
	Rows []StockMovementRow
}

type ProfitMarginReport struct {
	Envelope
	Period      Period
	Rows        []ProfitMarginRow
	TotalMargin ledger.Amount
}

// =============================================================================
// REPORTS
// =============================================================================

func (s *Service) Defaulters(ctx context.Context, filter DefaulterFilter) (*DefaulterReport, error) {
	snap, env, err := s.begin(ctx, "defaulters")
	if err != nil {
		return nil, err
	}
	start := time.Now()

	rows := Defaulters(snap, filter)
	total := ledger.ZeroMoney()
	for _, r := range rows {
		total = total.Add(r.Balance)
	}

	s.done("defaulters", start, env, len(rows))
	return &DefaulterReport{Envelope: env, Filter: filter, Rows: rows, TotalOutstanding: total}, nil
}

func (s *Service) ProductSales(ctx context.Context, period Period) (*ProductSalesReport, error) {
	snap, env, err := s.begin(ctx, "product_sales")
	if err != nil {
		return nil, err
	}
	start := time.Now()

	rows := ProductSales(snap, period)
	total := ledger.ZeroMoney()
	for _, r := range rows {
		total = total.Add(r.TotalRevenue)
	}

	s.done("product_sales", start, env, len(rows))
	return &ProductSalesReport{Envelope: env, Period: period, Rows: rows, TotalRevenue: total}, nil
}

func (s *Service) StockMovement(ctx context.Context) (*StockMovementReport, error) {
	snap, env, err := s.begin(ctx, "stock_movement")
	if err != nil {
		return nil, err
	}
	start := time.Now()

	rows := StockMovement(snap)

	s.done("stock_movement", start, env, len(rows))
	return &StockMovementReport{Envelope: env, Rows: rows}, nil
}

func (s *Service) ProfitMargin(ctx context.Context, period Period) (*ProfitMarginReport, error) {
	snap, env, err := s.begin(ctx, "profit_margin")
	if err != nil {
		return nil, err
	}
	start := time.Now()

	rows := ProfitMargin(snap, period)
	total := ledger.ZeroMoney()
	for _, r := range rows {
		total = total.Add(r.Margin)
	}

	s.done("profit_margin", start, env, len(rows))
	return &ProfitMarginReport{Envelope: env, Period: period, Rows: rows, TotalMargin: total}, nil
}

func (s *Service) begin(ctx context.Context, name string) (ledger.Snapshot, Envelope, error) {
	if err := ctx.Err(); err != nil {
		return ledger.Snapshot{}, Envelope{}, err
	}
	r := s.provider.Current()
	snap, ok := r.Snapshot()
	if !ok {
		metrics.ObserveReport(name, metrics.ResultNotReady, 0)
		return ledger.Snapshot{}, Envelope{}, r.Err()
	}
	return snap, Envelope{Generation: snap.Generation, GeneratedAt: s.now()}, nil
}

func (s *Service) done(name string, start time.Time, env Envelope, rows int) {
	metrics.ObserveReport(name, metrics.ResultSuccess, time.Since(start))
	s.log.Debugw("report generated", "report", name, "generation", env.Generation, "rows", rows)
}
