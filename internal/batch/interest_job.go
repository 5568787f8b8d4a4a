package batch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"welfare-ledger/internal/domain/interest"
	"welfare-ledger/internal/infrastructure/monitoring"

	"github.com/google/uuid"
)

// CustomerSource lists the customers the quarterly run iterates over.
type CustomerSource interface {
	ListCustomerIDs(ctx context.Context) ([]int64, error)
}

// RunSummary is the outcome of one batch run. Skips are not failures: a
// customer whose quarter is already charged, or who has no subscriptions,
// counts as skipped and the run can still finish successfully.
type RunSummary struct {
	RunID                  uuid.UUID
	Quarter                interest.Quarter
	Customers              int
	Applied                int
	SkippedNoSubscriptions int
	SkippedAlreadyApplied  int
	Failed                 int
	Duration               time.Duration
}

type QuarterlyInterestJob struct {
	customers CustomerSource
	interest  interest.Service
	now       func() time.Time
	logger    *slog.Logger
}

func NewQuarterlyInterestJob(customers CustomerSource, interestSvc interest.Service, logger *slog.Logger) *QuarterlyInterestJob {
	if customers == nil || interestSvc == nil || logger == nil {
		panic("QuarterlyInterestJob dependencies cannot be nil")
	}
	return &QuarterlyInterestJob{
		customers: customers,
		interest:  interestSvc,
		now:       time.Now,
		logger:    logger.With("job", "QuarterlyInterest"),
	}
}

// Run applies interest to every known customer for the most recently
// completed fiscal quarter. The per-quarter idempotency lives in storage, so
// re-running after a partial failure only charges the customers that were
// missed.
func (j *QuarterlyInterestJob) Run(ctx context.Context) (RunSummary, error) {
	startTime := j.now()
	summary := RunSummary{
		RunID:   uuid.New(),
		Quarter: interest.PreviousQuarter(startTime),
	}
	logCtx := j.logger.With(
		slog.String("runID", summary.RunID.String()),
		slog.Time("periodStart", summary.Quarter.Start),
	)
	logCtx.InfoContext(ctx, "Starting quarterly interest batch run.")

	customerIDs, err := j.customers.ListCustomerIDs(ctx)
	if err != nil {
		logCtx.ErrorContext(ctx, "Failed to list customers, aborting run.", slog.Any("error", err))
		return summary, fmt.Errorf("cannot run job, failed to list customers: %w", err)
	}
	summary.Customers = len(customerIDs)

	if len(customerIDs) == 0 {
		summary.Duration = time.Since(startTime)
		logCtx.InfoContext(ctx, "No customers found to process.", slog.Duration("duration", summary.Duration))
		return summary, nil
	}

	var wg sync.WaitGroup
	var applied, skippedNoSubs, skippedApplied, failed int64

	for _, customerID := range customerIDs {
		wg.Add(1)
		go func(currentID int64) {
			defer wg.Done()

			custLog := logCtx.With(slog.Int64("customerID", currentID))
			result, applyErr := j.interest.ApplyQuarterlyInterest(ctx, currentID, summary.Quarter)
			if applyErr != nil {
				custLog.ErrorContext(ctx, "Failed to apply quarterly interest", slog.Any("error", applyErr))
				atomic.AddInt64(&failed, 1)
				return
			}

			switch {
			case result.Applied:
				atomic.AddInt64(&applied, 1)
			case result.Reason == interest.ReasonNoSubscriptions:
				atomic.AddInt64(&skippedNoSubs, 1)
			case result.Reason == interest.ReasonAlreadyApplied:
				custLog.DebugContext(ctx, "Interest already applied for this quarter.")
				atomic.AddInt64(&skippedApplied, 1)
			}
		}(customerID)
	}

	wg.Wait()
	summary.Applied = int(atomic.LoadInt64(&applied))
	summary.SkippedNoSubscriptions = int(atomic.LoadInt64(&skippedNoSubs))
	summary.SkippedAlreadyApplied = int(atomic.LoadInt64(&skippedApplied))
	summary.Failed = int(atomic.LoadInt64(&failed))
	summary.Duration = time.Since(startTime)
	monitoring.RecordBatchRun(summary.Duration)

	summaryLog := logCtx.With(
		slog.Duration("duration", summary.Duration),
		slog.Int("customers", summary.Customers),
		slog.Int("applied", summary.Applied),
		slog.Int("skipped_no_subscriptions", summary.SkippedNoSubscriptions),
		slog.Int("skipped_already_applied", summary.SkippedAlreadyApplied),
		slog.Int("failed", summary.Failed),
	)
	if summary.Failed > 0 {
		summaryLog.WarnContext(ctx, "Quarterly interest batch run finished with errors.")
		return summary, fmt.Errorf("quarterly interest run completed with %d failures", summary.Failed)
	}
	summaryLog.InfoContext(ctx, "Quarterly interest batch run finished successfully.")
	return summary, nil
}
