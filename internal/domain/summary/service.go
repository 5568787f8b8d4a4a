package summary

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"welfare-ledger/internal/domain/interest"
	"welfare-ledger/internal/domain/ledger"
	"welfare-ledger/internal/infrastructure/monitoring"
	"welfare-ledger/internal/pkg/apperrors"
)

// SnapshotSource supplies the four non-deleted entity sets.
type SnapshotSource interface {
	GetSnapshot(ctx context.Context) (*ledger.Snapshot, error)
}

// BalanceSource supplies the interest ledger's running totals.
type BalanceSource interface {
	ListBalances(ctx context.Context) ([]interest.Balance, error)
}

type Service interface {
	// Overall computes the all-time report with today as the cutoff.
	Overall(ctx context.Context) (*Report, error)

	ForFiscalYear(ctx context.Context, startYear int) (*Report, error)

	// Breakdown itemizes one metric, all-time when fyStartYear is nil.
	Breakdown(ctx context.Context, metric Metric, fyStartYear *int, page int) (*Page, error)
}

type serviceImpl struct {
	snapshots  SnapshotSource
	balances   BalanceSource
	aggregator *Aggregator
	now        func() time.Time
	logger     *slog.Logger
}

func NewService(snapshots SnapshotSource, balances BalanceSource, logger *slog.Logger) Service {
	return &serviceImpl{
		snapshots:  snapshots,
		balances:   balances,
		aggregator: NewAggregator(),
		now:        time.Now,
		logger:     logger.With("component", "SummaryService"),
	}
}

func (s *serviceImpl) load(ctx context.Context) (Input, error) {
	snapshot, err := s.snapshots.GetSnapshot(ctx)
	if err != nil {
		return Input{}, err
	}
	balances, err := s.balances.ListBalances(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to list interest balances", "error", err)
		return Input{}, fmt.Errorf("%w: failed to list interest balances: %v", apperrors.ErrInternalServer, err)
	}
	return Input{
		Loans:         snapshot.Loans,
		Installments:  snapshot.Installments,
		Subscriptions: snapshot.Subscriptions,
		Entries:       snapshot.Entries,
		Balances:      balances,
	}, nil
}

func (s *serviceImpl) Overall(ctx context.Context) (*Report, error) {
	in, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	report, err := s.aggregator.Overall(in, s.now())
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to compute overall summary", "error", err)
		return nil, err
	}
	monitoring.RecordSummaryReport("overall")
	return report, nil
}

func (s *serviceImpl) ForFiscalYear(ctx context.Context, startYear int) (*Report, error) {
	if startYear < 1900 || startYear > 9999 {
		return nil, apperrors.NewValidationError("fiscalYear", "must be a four digit year")
	}
	in, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	report, err := s.aggregator.ForFiscalYear(in, FiscalYear{StartYear: startYear})
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to compute fiscal year summary", "fiscalYear", startYear, "error", err)
		return nil, err
	}
	monitoring.RecordSummaryReport("fiscal_year")
	return report, nil
}

func (s *serviceImpl) Breakdown(ctx context.Context, metric Metric, fyStartYear *int, page int) (*Page, error) {
	in, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	win := window{end: s.now()}
	if fyStartYear != nil {
		fy := FiscalYear{StartYear: *fyStartYear}
		win = window{start: fy.Start(), end: fy.End()}
	}

	breakdown, err := s.aggregator.Breakdown(in, metric, win, fyStartYear, page)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to compute breakdown", "metric", string(metric), "error", err)
		return nil, err
	}
	monitoring.RecordSummaryReport("breakdown")
	return breakdown, nil
}
