package interest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"welfare-ledger/internal/event"
	"welfare-ledger/internal/infrastructure/monitoring"
	"welfare-ledger/internal/pkg/apperrors"

	"github.com/shopspring/decimal"
)

var oneHundred = decimal.NewFromInt(100)

type Service interface {
	// ApplyQuarterlyInterest applies interest for one customer and one fiscal
	// quarter, exactly once per (customer, quarter start).
	ApplyQuarterlyInterest(ctx context.Context, customerID int64, quarter Quarter) (ApplyResult, error)

	// ApplyForCustomer applies interest for the most recently completed
	// fiscal quarter. This is the surface invoked per-customer or iterated by
	// the batch run.
	ApplyForCustomer(ctx context.Context, customerID int64) (ApplyResult, error)

	GetBalance(ctx context.Context, customerID int64) (*Balance, error)
}

type serviceImpl struct {
	repo      Repository
	publisher event.EventPublisher
	ratePct   decimal.Decimal
	now       func() time.Time
	logger    *slog.Logger
}

func NewService(repo Repository, publisher event.EventPublisher, ratePct decimal.Decimal, logger *slog.Logger) Service {
	if ratePct.LessThanOrEqual(decimal.Zero) {
		ratePct = DefaultRatePct
	}
	return &serviceImpl{
		repo:      repo,
		publisher: publisher,
		ratePct:   ratePct,
		now:       time.Now,
		logger:    logger.With("component", "InterestService"),
	}
}

func (s *serviceImpl) ApplyQuarterlyInterest(ctx context.Context, customerID int64, quarter Quarter) (ApplyResult, error) {
	logCtx := s.logger.With(slog.Int64("customerID", customerID), slog.Time("periodStart", quarter.Start))
	logCtx.InfoContext(ctx, "Applying quarterly interest")

	basis, count, err := s.repo.SubscriptionBasis(ctx, customerID, quarter.End)
	if err != nil {
		logCtx.ErrorContext(ctx, "Failed to compute subscription basis", slog.Any("error", err))
		monitoring.RecordInterestApplication("failure")
		return ApplyResult{}, fmt.Errorf("%w: failed to compute subscription basis for customer %d: %v",
			apperrors.ErrInternalServer, customerID, err)
	}

	if count == 0 {
		logCtx.InfoContext(ctx, "Skipping customer without subscriptions")
		monitoring.RecordInterestApplication("skipped_no_subscriptions")
		return ApplyResult{Applied: false, Reason: ReasonNoSubscriptions}, nil
	}

	amount := basis.Mul(s.ratePct).Div(oneHundred).Round(2)
	charge := &Charge{
		CustomerID:            customerID,
		SubscriptionTotalUsed: basis,
		InterestRatePct:       s.ratePct,
		InterestAmount:        amount,
		PeriodStart:           quarter.Start,
		PeriodEnd:             quarter.End,
		AppliedAt:             s.now(),
	}

	applied, err := s.repo.ApplyCharge(ctx, charge)
	if err != nil {
		logCtx.ErrorContext(ctx, "Failed to apply interest charge", slog.Any("error", err))
		monitoring.RecordInterestApplication("failure")
		return ApplyResult{}, fmt.Errorf("%w: failed to apply interest for customer %d: %v",
			apperrors.ErrInternalServer, customerID, err)
	}

	if !applied {
		logCtx.InfoContext(ctx, "Interest already applied for period")
		monitoring.RecordInterestApplication("skipped_already_applied")
		return ApplyResult{Applied: false, Reason: ReasonAlreadyApplied}, nil
	}

	if s.publisher != nil {
		ev := event.InterestAppliedEvent{
			CustomerID:     customerID,
			PeriodStart:    quarter.Start.Format(time.DateOnly),
			PeriodEnd:      quarter.End.Format(time.DateOnly),
			InterestAmount: amount.String(),
			Timestamp:      s.now(),
		}
		if pubErr := s.publisher.PublishInterestApplied(ctx, ev); pubErr != nil {
			logCtx.WarnContext(ctx, "Failed to publish interest applied event", slog.Any("error", pubErr))
		}
	}

	logCtx.InfoContext(ctx, "Quarterly interest applied", "interestAmount", amount.String(), "basis", basis.String())
	monitoring.RecordInterestApplication("applied")
	return ApplyResult{Applied: true, InterestAmount: &amount}, nil
}

func (s *serviceImpl) ApplyForCustomer(ctx context.Context, customerID int64) (ApplyResult, error) {
	return s.ApplyQuarterlyInterest(ctx, customerID, PreviousQuarter(s.now()))
}

func (s *serviceImpl) GetBalance(ctx context.Context, customerID int64) (*Balance, error) {
	balance, err := s.repo.GetBalance(ctx, customerID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to get interest balance", "customerID", customerID, "error", err)
		return nil, fmt.Errorf("%w: failed to get interest balance for customer %d: %v",
			apperrors.ErrInternalServer, customerID, err)
	}
	if balance == nil {
		// Balance rows are created lazily; a missing row means nothing has
		// been charged yet.
		return &Balance{CustomerID: customerID, TotalInterestCharged: decimal.Zero}, nil
	}
	return balance, nil
}
