// Package allocation splits a loan's installment payments between principal
// and interest using the payment waterfall: every payment repays principal
// first, in ascending date order, and only once the original amount is
// exhausted does money count as interest.
package allocation

import (
	"fmt"
	"sort"
	"time"

	"welfare-ledger/internal/domain/ledger"
	"welfare-ledger/internal/pkg/apperrors"

	"github.com/shopspring/decimal"
)

// Split is the waterfall outcome for a loan at some cutoff.
type Split struct {
	PrincipalPaid     decimal.Decimal
	InterestCollected decimal.Decimal
	AmountPaid        decimal.Decimal
}

// Portion is a single installment's share of the split. Attribution is fixed
// by the installment's position in the full date-ordered payment history, so
// filtering portions by date yields the same numbers as running the waterfall
// twice and subtracting.
type Portion struct {
	InstallmentID     int64
	LoanID            int64
	InstallmentNumber int
	Date              time.Time
	Amount            decimal.Decimal
	Principal         decimal.Decimal
	Interest          decimal.Decimal
}

// Portions runs the waterfall over the loan's complete installment history.
// Installments are ordered by (date, installment_number, id); the secondary
// keys make date ties stable across re-fetches from storage.
func Portions(loan *ledger.Loan, installments []ledger.Installment) ([]Portion, error) {
	ordered := make([]ledger.Installment, 0, len(installments))
	for _, inst := range installments {
		if inst.LoanID != loan.ID {
			return nil, fmt.Errorf("%w: installment %d references loan %d, not loan %d",
				apperrors.ErrDataIntegrity, inst.ID, inst.LoanID, loan.ID)
		}
		ordered = append(ordered, inst)
	}
	sort.SliceStable(ordered, func(a, b int) bool {
		if !ordered[a].Date.Equal(ordered[b].Date) {
			return ordered[a].Date.Before(ordered[b].Date)
		}
		if ordered[a].InstallmentNumber != ordered[b].InstallmentNumber {
			return ordered[a].InstallmentNumber < ordered[b].InstallmentNumber
		}
		return ordered[a].ID < ordered[b].ID
	})

	portions := make([]Portion, 0, len(ordered))
	paidSoFar := decimal.Zero
	for _, inst := range ordered {
		principal, interest := splitOne(loan.OriginalAmount, paidSoFar, inst.Amount)

		if principal.IsNegative() || interest.IsNegative() {
			return nil, fmt.Errorf("%w: negative allocation for loan %d installment %d (principal=%s interest=%s)",
				apperrors.ErrArithmeticInvariant, loan.ID, inst.ID, principal, interest)
		}

		portions = append(portions, Portion{
			InstallmentID:     inst.ID,
			LoanID:            inst.LoanID,
			InstallmentNumber: inst.InstallmentNumber,
			Date:              inst.Date,
			Amount:            inst.Amount,
			Principal:         principal,
			Interest:          interest,
		})
		paidSoFar = paidSoFar.Add(inst.Amount)
	}
	return portions, nil
}

// splitOne allocates one installment of value v given the amount paid before
// it. Late fees never pass through here; they are tracked separately.
func splitOne(originalAmount, paidSoFar, v decimal.Decimal) (principal, interest decimal.Decimal) {
	switch {
	case paidSoFar.GreaterThanOrEqual(originalAmount):
		return decimal.Zero, v
	case paidSoFar.Add(v).GreaterThan(originalAmount):
		principal = originalAmount.Sub(paidSoFar)
		return principal, v.Sub(principal)
	default:
		return v, decimal.Zero
	}
}

// Calculate is the unbounded waterfall: all installments count.
func Calculate(loan *ledger.Loan, installments []ledger.Installment) (Split, error) {
	return CalculateThrough(loan, installments, time.Time{})
}

// CalculateThrough bounds the waterfall at installments dated on or before
// cutoff. A zero cutoff means unbounded. A loan with no installments yields
// an all-zero split.
func CalculateThrough(loan *ledger.Loan, installments []ledger.Installment, cutoff time.Time) (Split, error) {
	portions, err := Portions(loan, installments)
	if err != nil {
		return Split{}, err
	}
	return sumPortions(portions, func(p Portion) bool {
		return cutoff.IsZero() || !p.Date.After(cutoff)
	}), nil
}

// PeriodDelta attributes principal and interest to the window
// [periodStart, periodEnd]. Because attribution is order-dependent, this is
// the full-history waterfall restricted to the window, equivalent to running
// it twice and subtracting, and additive over any partition of the window.
func PeriodDelta(loan *ledger.Loan, installments []ledger.Installment, periodStart, periodEnd time.Time) (Split, error) {
	portions, err := Portions(loan, installments)
	if err != nil {
		return Split{}, err
	}
	return sumPortions(portions, func(p Portion) bool {
		if !periodStart.IsZero() && p.Date.Before(periodStart) {
			return false
		}
		return periodEnd.IsZero() || !p.Date.After(periodEnd)
	}), nil
}

func sumPortions(portions []Portion, include func(Portion) bool) Split {
	split := Split{
		PrincipalPaid:     decimal.Zero,
		InterestCollected: decimal.Zero,
		AmountPaid:        decimal.Zero,
	}
	for _, p := range portions {
		if !include(p) {
			continue
		}
		split.PrincipalPaid = split.PrincipalPaid.Add(p.Principal)
		split.InterestCollected = split.InterestCollected.Add(p.Interest)
		split.AmountPaid = split.AmountPaid.Add(p.Amount)
	}
	return split
}
