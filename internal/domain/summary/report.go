// Package summary aggregates all monetary flows — loans, installments,
// subscriptions, ledger entries and the interest ledger's running totals —
// into all-time and fiscal-year financial reports, with per-metric
// drill-down breakdowns. Everything here is a pure function of an explicit
// snapshot; nothing reads the clock or storage.
package summary

import (
	"fmt"
	"time"

	"welfare-ledger/internal/domain/allocation"
	"welfare-ledger/internal/domain/interest"
	"welfare-ledger/internal/domain/ledger"
	"welfare-ledger/internal/pkg/apperrors"

	"github.com/shopspring/decimal"
)

// ExpenseSubtypes is the fixed set of expense categories reported as their
// own lines. Interest charges are deducted separately and are not part of
// this set.
var ExpenseSubtypes = []string{
	ledger.SubtypeSubscriptionReturn,
	ledger.SubtypeRetirementGift,
	ledger.SubtypeDeathFund,
	ledger.SubtypeMiscExpense,
}

// Input is the full snapshot the aggregator works from: the four non-deleted
// entity sets plus every customer's interest running balance.
type Input struct {
	Loans         []ledger.Loan
	Installments  []ledger.Installment
	Subscriptions []ledger.Subscription
	Entries       []ledger.Entry
	Balances      []interest.Balance
}

// Report is one computed summary, all-time or fiscal-year scoped. The
// invariant NetTotal == (SubscriptionsCollected + InterestCollected +
// LateFees) − (ExpenseTotal + QuarterlyInterestCharged) holds for every
// report.
type Report struct {
	FiscalYearStart *int      `json:"fiscalYearStart,omitempty"`
	Cutoff          time.Time `json:"cutoff"`

	SubscriptionsCollected decimal.Decimal `json:"subscriptionsCollected"`
	InterestCollected      decimal.Decimal `json:"interestCollected"`
	InstallmentLateFees    decimal.Decimal `json:"installmentLateFees"`
	SubscriptionLateFees   decimal.Decimal `json:"subscriptionLateFees"`
	LateFees               decimal.Decimal `json:"lateFees"`

	LoansGiven         decimal.Decimal `json:"loansGiven"`
	PrincipalRecovered decimal.Decimal `json:"principalRecovered"`
	LoanBalance        decimal.Decimal `json:"loanBalance"`

	SubscriptionReturns decimal.Decimal `json:"subscriptionReturns"`
	SubscriptionBalance decimal.Decimal `json:"subscriptionBalance"`

	Expenses     map[string]decimal.Decimal `json:"expenses"`
	ExpenseTotal decimal.Decimal            `json:"expenseTotal"`

	QuarterlyInterestCharged decimal.Decimal `json:"quarterlyInterestCharged"`
	NetTotal                 decimal.Decimal `json:"netTotal"`
}

// window bounds a report. A zero start means all-time.
type window struct {
	start time.Time
	end   time.Time
}

func (w window) contains(t time.Time) bool {
	if !w.start.IsZero() && t.Before(w.start) {
		return false
	}
	return !t.After(w.end)
}

func (w window) allTime() bool {
	return w.start.IsZero()
}

type Aggregator struct{}

func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// Overall computes the all-time report as of cutoff.
func (a *Aggregator) Overall(in Input, cutoff time.Time) (*Report, error) {
	return a.report(in, window{end: cutoff}, nil)
}

// ForFiscalYear computes the report for the fiscal year starting April 1 of
// startYear. Per-loan principal/interest inside the year comes from the
// waterfall's window attribution, not a naive date filter, because a single
// installment's value may straddle the boundary in its attribution.
func (a *Aggregator) ForFiscalYear(in Input, fy FiscalYear) (*Report, error) {
	fyStart := fy.StartYear
	return a.report(in, window{start: fy.Start(), end: fy.End()}, &fyStart)
}

func (a *Aggregator) report(in Input, win window, fyStart *int) (*Report, error) {
	installmentsByLoan, err := groupInstallments(in)
	if err != nil {
		return nil, err
	}

	r := &Report{
		FiscalYearStart:          fyStart,
		Cutoff:                   win.end,
		SubscriptionsCollected:   decimal.Zero,
		InterestCollected:        decimal.Zero,
		InstallmentLateFees:      decimal.Zero,
		SubscriptionLateFees:     decimal.Zero,
		LoansGiven:               decimal.Zero,
		PrincipalRecovered:       decimal.Zero,
		SubscriptionReturns:      decimal.Zero,
		ExpenseTotal:             decimal.Zero,
		QuarterlyInterestCharged: decimal.Zero,
		Expenses:                 make(map[string]decimal.Decimal, len(ExpenseSubtypes)),
	}
	for _, subtype := range ExpenseSubtypes {
		r.Expenses[subtype] = decimal.Zero
	}

	for i := range in.Loans {
		loan := &in.Loans[i]
		if win.contains(loan.PaymentDate) {
			r.LoansGiven = r.LoansGiven.Add(loan.OriginalAmount)
		}

		split, err := allocation.PeriodDelta(loan, installmentsByLoan[loan.ID], win.start, win.end)
		if err != nil {
			return nil, err
		}
		r.PrincipalRecovered = r.PrincipalRecovered.Add(split.PrincipalPaid)
		r.InterestCollected = r.InterestCollected.Add(split.InterestCollected)
	}
	r.LoanBalance = r.LoansGiven.Sub(r.PrincipalRecovered)

	for i := range in.Installments {
		inst := &in.Installments[i]
		if win.contains(inst.Date) {
			r.InstallmentLateFees = r.InstallmentLateFees.Add(inst.LateFeeOrZero())
		}
	}

	for i := range in.Subscriptions {
		sub := &in.Subscriptions[i]
		if !win.contains(sub.Date) {
			continue
		}
		r.SubscriptionsCollected = r.SubscriptionsCollected.Add(sub.Amount)
		r.SubscriptionLateFees = r.SubscriptionLateFees.Add(sub.LateFeeOrZero())
	}
	r.LateFees = r.InstallmentLateFees.Add(r.SubscriptionLateFees)

	for i := range in.Entries {
		entry := &in.Entries[i]
		if entry.Deleted() || !win.contains(entry.Date) {
			continue
		}
		if total, ok := r.Expenses[entry.Subtype]; ok {
			r.Expenses[entry.Subtype] = total.Add(entry.Amount)
			r.ExpenseTotal = r.ExpenseTotal.Add(entry.Amount)
		}
	}
	r.SubscriptionReturns = r.Expenses[ledger.SubtypeSubscriptionReturn]
	r.SubscriptionBalance = r.SubscriptionsCollected.Sub(r.SubscriptionReturns)

	r.QuarterlyInterestCharged = quarterlyInterestCharged(in, win)

	collected := r.SubscriptionsCollected.Add(r.InterestCollected).Add(r.LateFees)
	deducted := r.ExpenseTotal.Add(r.QuarterlyInterestCharged)
	r.NetTotal = collected.Sub(deducted)

	return r, nil
}

// quarterlyInterestCharged is the deduction line fed by the interest ledger.
// All-time it is the sum of the running balances (which reversals already
// compensated); fiscal-year scoped it is the sum of the visible, non-deleted
// interest charge entries dated inside the year.
func quarterlyInterestCharged(in Input, win window) decimal.Decimal {
	total := decimal.Zero
	if win.allTime() {
		for i := range in.Balances {
			total = total.Add(in.Balances[i].TotalInterestCharged)
		}
		return total
	}
	for i := range in.Entries {
		entry := &in.Entries[i]
		if entry.Deleted() || entry.Subtype != ledger.SubtypeInterestCharge {
			continue
		}
		if win.contains(entry.Date) {
			total = total.Add(entry.Amount)
		}
	}
	return total
}

func groupInstallments(in Input) (map[int64][]ledger.Installment, error) {
	loanIDs := make(map[int64]struct{}, len(in.Loans))
	for i := range in.Loans {
		loanIDs[in.Loans[i].ID] = struct{}{}
	}

	grouped := make(map[int64][]ledger.Installment, len(in.Loans))
	for _, inst := range in.Installments {
		if _, ok := loanIDs[inst.LoanID]; !ok {
			return nil, fmt.Errorf("%w: installment %d references missing loan %d",
				apperrors.ErrDataIntegrity, inst.ID, inst.LoanID)
		}
		grouped[inst.LoanID] = append(grouped[inst.LoanID], inst)
	}
	return grouped, nil
}
