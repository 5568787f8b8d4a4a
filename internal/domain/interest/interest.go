// Package interest applies quarterly interest charges per customer with
// strict idempotency: at most one charge per (customer, period start),
// enforced by an insert-if-absent storage operation backed by a unique
// constraint.
package interest

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultRatePct is the quarterly interest rate applied to a customer's
// subscription total, as a percentage.
var DefaultRatePct = decimal.NewFromFloat(3.0)

// Skip reasons surfaced in ApplyResult. These are expected business states,
// not errors.
const (
	ReasonNoSubscriptions = "No subscriptions"
	ReasonAlreadyApplied  = "Interest already applied"
)

// Charge is the append-only audit row for one quarterly interest application.
// It is never updated or deleted, even when the visible ledger charge is
// later reversed.
type Charge struct {
	ID                    int64
	CustomerID            int64
	SubscriptionTotalUsed decimal.Decimal
	InterestRatePct       decimal.Decimal
	InterestAmount        decimal.Decimal
	PeriodStart           time.Time
	PeriodEnd             time.Time
	AppliedAt             time.Time
}

// Balance is the running per-customer total. One row per customer, created
// lazily on first application, adjusted by applications and reversals.
type Balance struct {
	CustomerID           int64
	TotalInterestCharged decimal.Decimal
	LastAppliedQuarter   *time.Time
	UpdatedAt            time.Time
}

// ChargeReversed is the domain event raised when an interest charge ledger
// entry is soft-deleted. The handler deducts the amount from the customer's
// running balance, floored at zero, inside the same transaction as the
// soft-delete.
type ChargeReversed struct {
	CustomerID int64
	Amount     decimal.Decimal
}

// ApplyResult reports one application attempt. Applied=false with a Reason is
// a benign skip, not a failure.
type ApplyResult struct {
	Applied        bool             `json:"applied"`
	Reason         string           `json:"reason,omitempty"`
	InterestAmount *decimal.Decimal `json:"interestAmount,omitempty"`
}
