package interest

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type Repository interface {
	// SubscriptionBasis returns the customer's non-deleted subscription total
	// dated on or before asOf, plus the number of subscription rows counted.
	// A zero count means the customer has no subscriptions at all.
	SubscriptionBasis(ctx context.Context, customerID int64, asOf time.Time) (decimal.Decimal, int, error)

	// ApplyCharge atomically inserts the audit charge and upserts the running
	// balance in one transaction. It returns false when a charge already
	// exists for (customer_id, period_start) — including when a concurrent
	// caller won the race — and never reports that case as an error.
	ApplyCharge(ctx context.Context, charge *Charge) (bool, error)

	GetBalance(ctx context.Context, customerID int64) (*Balance, error)

	// ListBalances returns every customer's running balance, for the summary
	// aggregator's quarterly-interest deduction line.
	ListBalances(ctx context.Context) ([]Balance, error)
}
