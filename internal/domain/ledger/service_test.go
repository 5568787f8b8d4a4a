package ledger

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"welfare-ledger/internal/event"
	"welfare-ledger/internal/pkg/apperrors"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) LoadSnapshot(ctx context.Context) (*Snapshot, error) {
	args := m.Called(ctx)
	if snapshot, ok := args.Get(0).(*Snapshot); ok {
		return snapshot, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRepository) SoftDeleteEntry(ctx context.Context, entryID int64, deletedBy string) (*Entry, error) {
	args := m.Called(ctx, entryID, deletedBy)
	if entry, ok := args.Get(0).(*Entry); ok {
		return entry, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRepository) ListCustomerIDs(ctx context.Context) ([]int64, error) {
	args := m.Called(ctx)
	if ids, ok := args.Get(0).([]int64); ok {
		return ids, args.Error(1)
	}
	return nil, args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishInterestApplied(ctx context.Context, ev event.InterestAppliedEvent) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}

func (m *MockPublisher) PublishInterestChargeReversed(ctx context.Context, ev event.InterestChargeReversedEvent) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestServiceSoftDeleteEntry(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	t.Run("deleting an interest charge publishes the reversal event", func(t *testing.T) {
		repo := new(MockRepository)
		publisher := new(MockPublisher)
		svc := NewService(repo, publisher, testLogger())

		deleted := &Entry{
			ID:         3,
			CustomerID: 7,
			Amount:     decimal.NewFromInt(3000),
			Type:       EntryTypeDebit,
			Subtype:    SubtypeInterestCharge,
			DeletedAt:  &now,
		}
		repo.On("SoftDeleteEntry", ctx, int64(3), "treasurer").Return(deleted, nil).Once()
		publisher.On("PublishInterestChargeReversed", ctx, mock.MatchedBy(func(ev event.InterestChargeReversedEvent) bool {
			return ev.CustomerID == 7 && ev.Amount == "3000"
		})).Return(nil).Once()

		entry, err := svc.SoftDeleteEntry(ctx, 3, "treasurer")

		require.NoError(t, err)
		assert.Equal(t, deleted, entry)
		repo.AssertExpectations(t)
		publisher.AssertExpectations(t)
	})

	t.Run("deleting other entries publishes nothing", func(t *testing.T) {
		repo := new(MockRepository)
		publisher := new(MockPublisher)
		svc := NewService(repo, publisher, testLogger())

		deleted := &Entry{
			ID:        4,
			Amount:    decimal.NewFromInt(500),
			Type:      EntryTypeExpense,
			Subtype:   SubtypeDeathFund,
			DeletedAt: &now,
		}
		repo.On("SoftDeleteEntry", ctx, int64(4), "treasurer").Return(deleted, nil).Once()

		_, err := svc.SoftDeleteEntry(ctx, 4, "treasurer")

		require.NoError(t, err)
		publisher.AssertNotCalled(t, "PublishInterestChargeReversed", mock.Anything, mock.Anything)
	})

	t.Run("publish failure does not fail the delete", func(t *testing.T) {
		repo := new(MockRepository)
		publisher := new(MockPublisher)
		svc := NewService(repo, publisher, testLogger())

		deleted := &Entry{
			ID:        5,
			Amount:    decimal.NewFromInt(100),
			Type:      EntryTypeDebit,
			Subtype:   SubtypeInterestCharge,
			DeletedAt: &now,
		}
		repo.On("SoftDeleteEntry", ctx, int64(5), "treasurer").Return(deleted, nil).Once()
		publisher.On("PublishInterestChargeReversed", ctx, mock.Anything).Return(assert.AnError).Once()

		entry, err := svc.SoftDeleteEntry(ctx, 5, "treasurer")

		require.NoError(t, err)
		assert.Equal(t, deleted, entry)
	})

	t.Run("missing entry maps to not found", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo, new(MockPublisher), testLogger())

		repo.On("SoftDeleteEntry", ctx, int64(42), "treasurer").Return(nil, apperrors.ErrNotFound).Once()

		_, err := svc.SoftDeleteEntry(ctx, 42, "treasurer")

		require.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})
}

func TestServiceGetSnapshot(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the repository snapshot", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo, new(MockPublisher), testLogger())

		snapshot := &Snapshot{Loans: []Loan{{ID: 1}}}
		repo.On("LoadSnapshot", ctx).Return(snapshot, nil).Once()

		got, err := svc.GetSnapshot(ctx)

		require.NoError(t, err)
		assert.Equal(t, snapshot, got)
	})

	t.Run("wraps repository failures", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo, new(MockPublisher), testLogger())

		repo.On("LoadSnapshot", ctx).Return(nil, assert.AnError).Once()

		_, err := svc.GetSnapshot(ctx)

		require.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrInternalServer)
	})
}
