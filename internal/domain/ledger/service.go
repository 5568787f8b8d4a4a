package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"welfare-ledger/internal/event"
	"welfare-ledger/internal/pkg/apperrors"

	"github.com/jackc/pgx/v5"
)

type Service interface {
	GetSnapshot(ctx context.Context) (*Snapshot, error)

	// SoftDeleteEntry soft-deletes a ledger entry. For interest charges the
	// repository runs the compensating balance reversal in the same
	// transaction; this service only reports the outcome.
	SoftDeleteEntry(ctx context.Context, entryID int64, deletedBy string) (*Entry, error)
}

type serviceImpl struct {
	repo      Repository
	publisher event.EventPublisher
	logger    *slog.Logger
}

func NewService(repo Repository, publisher event.EventPublisher, logger *slog.Logger) Service {
	return &serviceImpl{
		repo:      repo,
		publisher: publisher,
		logger:    logger.With("component", "LedgerService"),
	}
}

func (s *serviceImpl) GetSnapshot(ctx context.Context) (*Snapshot, error) {
	snapshot, err := s.repo.LoadSnapshot(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to load ledger snapshot", "error", err)
		return nil, fmt.Errorf("%w: failed to load ledger snapshot: %v", apperrors.ErrInternalServer, err)
	}
	return snapshot, nil
}

func (s *serviceImpl) SoftDeleteEntry(ctx context.Context, entryID int64, deletedBy string) (*Entry, error) {
	s.logger.InfoContext(ctx, "Soft-deleting ledger entry", "entryID", entryID, "deletedBy", deletedBy)

	entry, err := s.repo.SoftDeleteEntry(ctx, entryID, deletedBy)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, apperrors.ErrNotFound) {
			s.logger.WarnContext(ctx, "Ledger entry not found", "entryID", entryID)
			return nil, fmt.Errorf("%w: ledger entry %d not found", apperrors.ErrNotFound, entryID)
		}
		s.logger.ErrorContext(ctx, "Failed to soft-delete ledger entry", "entryID", entryID, "error", err)
		return nil, fmt.Errorf("%w: failed to delete ledger entry %d: %v", apperrors.ErrInternalServer, entryID, err)
	}

	if entry.Subtype == SubtypeInterestCharge && s.publisher != nil {
		ev := event.InterestChargeReversedEvent{
			CustomerID: entry.CustomerID,
			Amount:     entry.Amount.String(),
			Timestamp:  time.Now(),
		}
		if pubErr := s.publisher.PublishInterestChargeReversed(ctx, ev); pubErr != nil {
			s.logger.WarnContext(ctx, "Failed to publish interest charge reversed event", "entryID", entryID, "error", pubErr)
		}
	}

	s.logger.InfoContext(ctx, "Ledger entry soft-deleted", "entryID", entryID, "subtype", entry.Subtype)
	return entry, nil
}
