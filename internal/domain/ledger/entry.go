package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntryType classifies generic ledger entries. Expenses carry one of the
// well-known subtypes; credits and debits are free-form adjustments.
type EntryType string

const (
	EntryTypeCredit  EntryType = "credit"
	EntryTypeDebit   EntryType = "debit"
	EntryTypeExpense EntryType = "expense"
)

// Well-known entry subtypes. SubtypeInterestCharge is how a quarterly
// interest application surfaces as a visible ledger line; soft-deleting such
// an entry triggers the compensating balance reversal.
const (
	SubtypeInterestCharge     = "Interest Charge"
	SubtypeSubscriptionReturn = "Subscription Return"
	SubtypeRetirementGift     = "Retirement Gift"
	SubtypeDeathFund          = "Death Fund"
	SubtypeMiscExpense        = "Misc Expense"
)

// Loan is immutable after origination except soft-delete. OriginalAmount is
// the principal; InterestAmount is fixed at origination and does not compound.
type Loan struct {
	ID                int64
	CustomerID        int64
	OriginalAmount    decimal.Decimal
	InterestAmount    decimal.Decimal
	PaymentDate       time.Time
	TotalInstallments int
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// TotalRepayable never changes after creation.
func (l *Loan) TotalRepayable() decimal.Decimal {
	return l.OriginalAmount.Add(l.InterestAmount)
}

type Installment struct {
	ID                int64
	LoanID            int64
	InstallmentNumber int
	Amount            decimal.Decimal
	Date              time.Time
	LateFee           decimal.NullDecimal
	CreatedAt         time.Time
}

func (i *Installment) LateFeeOrZero() decimal.Decimal {
	if i.LateFee.Valid {
		return i.LateFee.Decimal
	}
	return decimal.Zero
}

// Subscription is an independent revenue stream, not tied to a loan. Amount
// may be negative to represent an offsetting adjustment.
type Subscription struct {
	ID         int64
	CustomerID int64
	Amount     decimal.Decimal
	Date       time.Time
	LateFee    decimal.NullDecimal
	CreatedAt  time.Time
}

func (s *Subscription) LateFeeOrZero() decimal.Decimal {
	if s.LateFee.Valid {
		return s.LateFee.Decimal
	}
	return decimal.Zero
}

type Entry struct {
	ID         int64
	CustomerID int64
	Date       time.Time
	Amount     decimal.Decimal
	Type       EntryType
	Subtype    string
	DeletedAt  *time.Time
	DeletedBy  *string
	CreatedAt  time.Time
}

func (e *Entry) Deleted() bool {
	return e.DeletedAt != nil
}

// Snapshot is the full set of non-deleted records the pure calculators
// operate on, fetched in one pass from storage.
type Snapshot struct {
	Loans         []Loan
	Installments  []Installment
	Subscriptions []Subscription
	Entries       []Entry
}
