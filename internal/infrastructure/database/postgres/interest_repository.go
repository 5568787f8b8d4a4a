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
	"github.com/shopspring/decimal"
)

var errMsgFormat = "%w: %w"

type InterestRepository struct {
	db     DBPool
	logger *slog.Logger
}

func NewInterestRepository(db DBPool, logger *slog.Logger) *InterestRepository {
	return &InterestRepository{db: db, logger: logger.With("component", "InterestRepository")}
}

func (r *InterestRepository) SubscriptionBasis(ctx context.Context, customerID int64, asOf time.Time) (decimal.Decimal, int, error) {
	start := time.Now()
	sql := `
        SELECT COALESCE(SUM(amount), 0), COUNT(*)
        FROM subscriptions
        WHERE customer_id = $1 AND date <= $2 AND deleted_at IS NULL`

	var total decimal.Decimal
	var count int
	err := r.db.QueryRow(ctx, sql, customerID, asOf).Scan(&total, &count)
	if err != nil {
		monitoring.RecordDBQuery("subscription_basis", "error", time.Since(start))
		r.logger.ErrorContext(ctx, "Failed to compute subscription basis", "customer_id", customerID, "error", err)
		return decimal.Zero, 0, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	monitoring.RecordDBQuery("subscription_basis", "success", time.Since(start))
	return total, count, nil
}

// ApplyCharge inserts the audit row, upserts the running balance and writes
// the visible "Interest Charge" ledger line in one transaction. The insert is
// an insert-if-absent on (customer_id, period_start): when the row already
// exists — including when a concurrent caller won the race — nothing is
// written and the method reports applied=false without error.
func (r *InterestRepository) ApplyCharge(ctx context.Context, charge *interest.Charge) (applied bool, err error) {
	start := time.Now()
	tx, err := r.db.Begin(ctx)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to begin transaction", "error", err)
		return false, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	defer func() {
		if err != nil || !applied {
			_ = tx.Rollback(ctx)
		}
	}()

	insertChargeSQL := `
        INSERT INTO interest_ledger
            (customer_id, subscription_total_used, interest_rate_pct, interest_amount, period_start, period_end, applied_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        ON CONFLICT (customer_id, period_start) DO NOTHING`

	tag, err := tx.Exec(ctx, insertChargeSQL,
		charge.CustomerID, charge.SubscriptionTotalUsed, charge.InterestRatePct,
		charge.InterestAmount, charge.PeriodStart, charge.PeriodEnd, charge.AppliedAt,
	)
	if err != nil {
		monitoring.RecordDBQuery("apply_charge", "error", time.Since(start))
		r.logger.ErrorContext(ctx, "Failed to insert interest ledger row", "customer_id", charge.CustomerID, "error", err)
		return false, fmt.Errorf("%w: failed to insert interest ledger row: %w", apperrors.ErrDatabase, err)
	}
	if tag.RowsAffected() == 0 {
		monitoring.RecordDBQuery("apply_charge", "conflict", time.Since(start))
		return false, nil
	}

	upsertBalanceSQL := `
        INSERT INTO customer_interest (customer_id, total_interest_charged, last_applied_quarter, updated_at)
        VALUES ($1, $2, $3, NOW())
        ON CONFLICT (customer_id) DO UPDATE SET
            total_interest_charged = customer_interest.total_interest_charged + EXCLUDED.total_interest_charged,
            last_applied_quarter = EXCLUDED.last_applied_quarter,
            updated_at = NOW()`

	if _, err = tx.Exec(ctx, upsertBalanceSQL, charge.CustomerID, charge.InterestAmount, charge.PeriodStart); err != nil {
		monitoring.RecordDBQuery("apply_charge", "error", time.Since(start))
		r.logger.ErrorContext(ctx, "Failed to upsert customer interest balance", "customer_id", charge.CustomerID, "error", err)
		return false, fmt.Errorf("%w: failed to upsert customer interest balance: %w", apperrors.ErrDatabase, err)
	}

	insertEntrySQL := `
        INSERT INTO ledger_entries (customer_id, date, amount, type, subtype, created_at)
        VALUES ($1, $2, $3, $4, $5, NOW())`

	if _, err = tx.Exec(ctx, insertEntrySQL,
		charge.CustomerID, charge.AppliedAt, charge.InterestAmount,
		string(ledger.EntryTypeDebit), ledger.SubtypeInterestCharge,
	); err != nil {
		monitoring.RecordDBQuery("apply_charge", "error", time.Since(start))
		r.logger.ErrorContext(ctx, "Failed to insert interest charge ledger entry", "customer_id", charge.CustomerID, "error", err)
		return false, fmt.Errorf("%w: failed to insert interest charge ledger entry: %w", apperrors.ErrDatabase, err)
	}

	if err = tx.Commit(ctx); err != nil {
		monitoring.RecordDBQuery("apply_charge", "error", time.Since(start))
		r.logger.ErrorContext(ctx, "Failed to commit interest application", "customer_id", charge.CustomerID, "error", err)
		return false, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}

	monitoring.RecordDBQuery("apply_charge", "success", time.Since(start))
	r.logger.InfoContext(ctx, "Interest charge applied in DB",
		"customer_id", charge.CustomerID, "period_start", charge.PeriodStart, "interest_amount", charge.InterestAmount.String())
	return true, nil
}

func (r *InterestRepository) GetBalance(ctx context.Context, customerID int64) (*interest.Balance, error) {
	sql := `
        SELECT customer_id, total_interest_charged, last_applied_quarter, updated_at
        FROM customer_interest
        WHERE customer_id = $1`

	var balance interest.Balance
	err := r.db.QueryRow(ctx, sql, customerID).Scan(
		&balance.CustomerID, &balance.TotalInterestCharged, &balance.LastAppliedQuarter, &balance.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.ErrorContext(ctx, "Failed to get customer interest balance", "customer_id", customerID, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return &balance, nil
}

func (r *InterestRepository) ListBalances(ctx context.Context) ([]interest.Balance, error) {
	sql := `
        SELECT customer_id, total_interest_charged, last_applied_quarter, updated_at
        FROM customer_interest
        ORDER BY customer_id`

	rows, err := r.db.Query(ctx, sql)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to list customer interest balances", "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	var balances []interest.Balance
	for rows.Next() {
		var balance interest.Balance
		if err := rows.Scan(&balance.CustomerID, &balance.TotalInterestCharged, &balance.LastAppliedQuarter, &balance.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%w: failed to scan interest balance: %w", apperrors.ErrDatabase, err)
		}
		balances = append(balances, balance)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return balances, nil
}

// ReverseChargeInTx deducts a reversed charge from the running balance,
// floored at zero, inside the caller's transaction. Repeating the same
// reversal cannot push the balance negative. The interest_ledger audit row is
// deliberately left untouched, so the quarter stays closed.
func (r *InterestRepository) ReverseChargeInTx(ctx context.Context, tx pgx.Tx, ev interest.ChargeReversed) error {
	sql := `
        UPDATE customer_interest
        SET total_interest_charged = GREATEST(0, total_interest_charged - $2),
            updated_at = NOW()
        WHERE customer_id = $1`

	if _, err := tx.Exec(ctx, sql, ev.CustomerID, ev.Amount); err != nil {
		r.logger.ErrorContext(ctx, "Failed to reverse interest charge", "customer_id", ev.CustomerID, "error", err)
		return fmt.Errorf("%w: failed to reverse interest charge: %w", apperrors.ErrDatabase, err)
	}

	monitoring.RecordChargeReversal()
	r.logger.InfoContext(ctx, "Interest charge reversed",
		"customer_id", ev.CustomerID, "amount", ev.Amount.String())
	return nil
}
