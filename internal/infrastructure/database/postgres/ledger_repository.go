package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"welfare-ledger/internal/domain/interest"
	"welfare-ledger/internal/domain/ledger"
	"welfare-ledger/internal/infrastructure/monitoring"
	"welfare-ledger/internal/pkg/apperrors"

	"github.com/jackc/pgx/v5"
)

// ReversalHandler consumes the ChargeReversed domain event inside the same
// transaction as the soft-delete that raised it.
type ReversalHandler interface {
	ReverseChargeInTx(ctx context.Context, tx pgx.Tx, ev interest.ChargeReversed) error
}

type LedgerRepository struct {
	db        DBPool
	reversals ReversalHandler
	logger    *slog.Logger
}

func NewLedgerRepository(db DBPool, reversals ReversalHandler, logger *slog.Logger) *LedgerRepository {
	return &LedgerRepository{db: db, reversals: reversals, logger: logger.With("component", "LedgerRepository")}
}

func (r *LedgerRepository) LoadSnapshot(ctx context.Context) (*ledger.Snapshot, error) {
	start := time.Now()
	snapshot := &ledger.Snapshot{}

	loans, err := r.loadLoans(ctx)
	if err != nil {
		monitoring.RecordDBQuery("load_snapshot", "error", time.Since(start))
		return nil, err
	}
	snapshot.Loans = loans

	installments, err := r.loadInstallments(ctx)
	if err != nil {
		monitoring.RecordDBQuery("load_snapshot", "error", time.Since(start))
		return nil, err
	}
	snapshot.Installments = installments

	subscriptions, err := r.loadSubscriptions(ctx)
	if err != nil {
		monitoring.RecordDBQuery("load_snapshot", "error", time.Since(start))
		return nil, err
	}
	snapshot.Subscriptions = subscriptions

	entries, err := r.loadEntries(ctx)
	if err != nil {
		monitoring.RecordDBQuery("load_snapshot", "error", time.Since(start))
		return nil, err
	}
	snapshot.Entries = entries

	monitoring.RecordDBQuery("load_snapshot", "success", time.Since(start))
	r.logger.DebugContext(ctx, "Loaded ledger snapshot",
		"loans", len(loans), "installments", len(installments),
		"subscriptions", len(subscriptions), "entries", len(entries))
	return snapshot, nil
}

func (r *LedgerRepository) loadLoans(ctx context.Context) ([]ledger.Loan, error) {
	sql := `
        SELECT id, customer_id, original_amount, interest_amount, payment_date, total_installments, created_at, updated_at
        FROM loans
        WHERE deleted_at IS NULL
        ORDER BY id`

	rows, err := r.db.Query(ctx, sql)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to load loans", "error", err)
		return nil, fmt.Errorf("%w: failed to load loans: %w", apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	var loans []ledger.Loan
	for rows.Next() {
		var loan ledger.Loan
		if err := rows.Scan(&loan.ID, &loan.CustomerID, &loan.OriginalAmount, &loan.InterestAmount,
			&loan.PaymentDate, &loan.TotalInstallments, &loan.CreatedAt, &loan.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%w: failed to scan loan: %w", apperrors.ErrDatabase, err)
		}
		loans = append(loans, loan)
	}
	return loans, rows.Err()
}

func (r *LedgerRepository) loadInstallments(ctx context.Context) ([]ledger.Installment, error) {
	sql := `
        SELECT id, loan_id, installment_number, amount, date, late_fee, created_at
        FROM installments
        WHERE deleted_at IS NULL
        ORDER BY id`

	rows, err := r.db.Query(ctx, sql)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to load installments", "error", err)
		return nil, fmt.Errorf("%w: failed to load installments: %w", apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	var installments []ledger.Installment
	for rows.Next() {
		var inst ledger.Installment
		if err := rows.Scan(&inst.ID, &inst.LoanID, &inst.InstallmentNumber, &inst.Amount,
			&inst.Date, &inst.LateFee, &inst.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: failed to scan installment: %w", apperrors.ErrDatabase, err)
		}
		installments = append(installments, inst)
	}
	return installments, rows.Err()
}

func (r *LedgerRepository) loadSubscriptions(ctx context.Context) ([]ledger.Subscription, error) {
	sql := `
        SELECT id, customer_id, amount, date, late_fee, created_at
        FROM subscriptions
        WHERE deleted_at IS NULL
        ORDER BY id`

	rows, err := r.db.Query(ctx, sql)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to load subscriptions", "error", err)
		return nil, fmt.Errorf("%w: failed to load subscriptions: %w", apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	var subscriptions []ledger.Subscription
	for rows.Next() {
		var sub ledger.Subscription
		if err := rows.Scan(&sub.ID, &sub.CustomerID, &sub.Amount, &sub.Date, &sub.LateFee, &sub.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: failed to scan subscription: %w", apperrors.ErrDatabase, err)
		}
		subscriptions = append(subscriptions, sub)
	}
	return subscriptions, rows.Err()
}

func (r *LedgerRepository) loadEntries(ctx context.Context) ([]ledger.Entry, error) {
	sql := `
        SELECT id, customer_id, date, amount, type, subtype, deleted_at, deleted_by, created_at
        FROM ledger_entries
        WHERE deleted_at IS NULL
        ORDER BY id`

	rows, err := r.db.Query(ctx, sql)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to load ledger entries", "error", err)
		return nil, fmt.Errorf("%w: failed to load ledger entries: %w", apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	var entries []ledger.Entry
	for rows.Next() {
		var entry ledger.Entry
		if err := rows.Scan(&entry.ID, &entry.CustomerID, &entry.Date, &entry.Amount,
			&entry.Type, &entry.Subtype, &entry.DeletedAt, &entry.DeletedBy, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: failed to scan ledger entry: %w", apperrors.ErrDatabase, err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// SoftDeleteEntry stamps deleted_at/deleted_by and, when the entry is an
// interest charge, runs the compensating balance reversal inside the same
// transaction. The deleting code path never touches the balance table itself.
func (r *LedgerRepository) SoftDeleteEntry(ctx context.Context, entryID int64, deletedBy string) (entry *ledger.Entry, err error) {
	start := time.Now()
	tx, err := r.db.Begin(ctx)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to begin transaction", "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	deleteSQL := `
        UPDATE ledger_entries
        SET deleted_at = NOW(), deleted_by = $2
        WHERE id = $1 AND deleted_at IS NULL
        RETURNING id, customer_id, date, amount, type, subtype, deleted_at, deleted_by, created_at`

	var deleted ledger.Entry
	err = tx.QueryRow(ctx, deleteSQL, entryID, deletedBy).Scan(
		&deleted.ID, &deleted.CustomerID, &deleted.Date, &deleted.Amount,
		&deleted.Type, &deleted.Subtype, &deleted.DeletedAt, &deleted.DeletedBy, &deleted.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			monitoring.RecordDBQuery("soft_delete_entry", "not_found", time.Since(start))
			return nil, fmt.Errorf("%w: ledger entry %d not found or already deleted", apperrors.ErrNotFound, entryID)
		}
		monitoring.RecordDBQuery("soft_delete_entry", "error", time.Since(start))
		r.logger.ErrorContext(ctx, "Failed to soft-delete ledger entry", "entry_id", entryID, "error", err)
		return nil, fmt.Errorf("%w: failed to soft-delete ledger entry: %w", apperrors.ErrDatabase, err)
	}

	if deleted.Subtype == ledger.SubtypeInterestCharge {
		ev := interest.ChargeReversed{CustomerID: deleted.CustomerID, Amount: deleted.Amount}
		if err = r.reversals.ReverseChargeInTx(ctx, tx, ev); err != nil {
			monitoring.RecordDBQuery("soft_delete_entry", "error", time.Since(start))
			return nil, err
		}
	}

	if err = tx.Commit(ctx); err != nil {
		monitoring.RecordDBQuery("soft_delete_entry", "error", time.Since(start))
		r.logger.ErrorContext(ctx, "Failed to commit soft-delete", "entry_id", entryID, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}

	monitoring.RecordDBQuery("soft_delete_entry", "success", time.Since(start))
	return &deleted, nil
}

func (r *LedgerRepository) ListCustomerIDs(ctx context.Context) ([]int64, error) {
	sql := `
        SELECT DISTINCT customer_id FROM subscriptions WHERE deleted_at IS NULL
        UNION
        SELECT DISTINCT customer_id FROM loans WHERE deleted_at IS NULL
        ORDER BY customer_id`

	rows, err := r.db.Query(ctx, sql)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to list customer ids", "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%w: failed to scan customer id: %w", apperrors.ErrDatabase, err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
