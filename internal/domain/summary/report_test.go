package summary

import (
	"testing"
	"time"

	"welfare-ledger/internal/domain/interest"
	"welfare-ledger/internal/domain/ledger"
	"welfare-ledger/internal/pkg/apperrors"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func day(y int, m time.Month, dd int) time.Time {
	return time.Date(y, m, dd, 0, 0, 0, 0, time.UTC)
}

func nd(s string) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: d(s), Valid: true}
}

// fixtureInput is one loan repaid across two fiscal years (the second
// installment straddles the principal cap), two subscriptions, a handful of
// ledger entries including one soft-deleted one, and one interest balance.
func fixtureInput() Input {
	return Input{
		Loans: []ledger.Loan{
			{
				ID:                1,
				CustomerID:        1,
				OriginalAmount:    d("100000"),
				InterestAmount:    d("25000"),
				PaymentDate:       day(2023, time.May, 1),
				TotalInstallments: 2,
			},
		},
		Installments: []ledger.Installment{
			{ID: 1, LoanID: 1, InstallmentNumber: 1, Amount: d("60000"), Date: day(2023, time.June, 10), LateFee: nd("50")},
			{ID: 2, LoanID: 1, InstallmentNumber: 2, Amount: d("60000"), Date: day(2024, time.June, 10)},
		},
		Subscriptions: []ledger.Subscription{
			{ID: 1, CustomerID: 1, Amount: d("5000"), Date: day(2023, time.July, 1), LateFee: nd("100")},
			{ID: 2, CustomerID: 2, Amount: d("3000"), Date: day(2024, time.May, 1)},
		},
		Entries: []ledger.Entry{
			{ID: 1, CustomerID: 2, Date: day(2024, time.May, 2), Amount: d("1000"), Type: ledger.EntryTypeExpense, Subtype: ledger.SubtypeMiscExpense},
			{ID: 2, CustomerID: 1, Date: day(2023, time.August, 1), Amount: d("500"), Type: ledger.EntryTypeExpense, Subtype: ledger.SubtypeSubscriptionReturn},
			{ID: 3, CustomerID: 1, Date: day(2024, time.July, 5), Amount: d("3000"), Type: ledger.EntryTypeDebit, Subtype: ledger.SubtypeInterestCharge},
		},
		Balances: []interest.Balance{
			{CustomerID: 1, TotalInterestCharged: d("3000")},
		},
	}
}

func assertNetTotalIdentity(t *testing.T, r *Report) {
	t.Helper()
	collected := r.SubscriptionsCollected.Add(r.InterestCollected).Add(r.LateFees)
	deducted := r.ExpenseTotal.Add(r.QuarterlyInterestCharged)
	assert.True(t, r.NetTotal.Equal(collected.Sub(deducted)),
		"net total identity violated: net=%s collected=%s deducted=%s", r.NetTotal, collected, deducted)
}

func TestOverall(t *testing.T) {
	agg := NewAggregator()
	cutoff := day(2025, time.January, 1)

	report, err := agg.Overall(fixtureInput(), cutoff)
	require.NoError(t, err)

	assert.True(t, report.SubscriptionsCollected.Equal(d("8000")))
	assert.True(t, report.InterestCollected.Equal(d("20000")))
	assert.True(t, report.LateFees.Equal(d("150")))
	assert.True(t, report.LoansGiven.Equal(d("100000")))
	assert.True(t, report.PrincipalRecovered.Equal(d("100000")))
	assert.True(t, report.LoanBalance.IsZero())
	assert.True(t, report.SubscriptionReturns.Equal(d("500")))
	assert.True(t, report.SubscriptionBalance.Equal(d("7500")))
	assert.True(t, report.ExpenseTotal.Equal(d("1500")))
	assert.True(t, report.Expenses[ledger.SubtypeMiscExpense].Equal(d("1000")))
	assert.True(t, report.Expenses[ledger.SubtypeRetirementGift].IsZero())
	assert.True(t, report.QuarterlyInterestCharged.Equal(d("3000")))
	assert.True(t, report.NetTotal.Equal(d("23650")))
	assertNetTotalIdentity(t, report)
}

func TestForFiscalYear_StraddlingInstallmentSplitsAcrossYears(t *testing.T) {
	agg := NewAggregator()

	fy2024, err := agg.ForFiscalYear(fixtureInput(), FiscalYear{StartYear: 2024})
	require.NoError(t, err)

	// The second installment pays the last 40000 of principal and 20000 of
	// interest, all attributed to FY 2024.
	assert.True(t, fy2024.PrincipalRecovered.Equal(d("40000")))
	assert.True(t, fy2024.InterestCollected.Equal(d("20000")))
	assert.True(t, fy2024.SubscriptionsCollected.Equal(d("3000")))
	assert.True(t, fy2024.LoansGiven.IsZero())
	assert.True(t, fy2024.LoanBalance.Equal(d("-40000")))
	assert.True(t, fy2024.ExpenseTotal.Equal(d("1000")))
	assert.True(t, fy2024.QuarterlyInterestCharged.Equal(d("3000")))
	assert.True(t, fy2024.NetTotal.Equal(d("19000")))
	assertNetTotalIdentity(t, fy2024)

	fy2023, err := agg.ForFiscalYear(fixtureInput(), FiscalYear{StartYear: 2023})
	require.NoError(t, err)

	assert.True(t, fy2023.PrincipalRecovered.Equal(d("60000")))
	assert.True(t, fy2023.InterestCollected.IsZero())
	assertNetTotalIdentity(t, fy2023)

	// Fiscal years partition history: principal recovered must be additive.
	overall, err := agg.Overall(fixtureInput(), day(2025, time.March, 31))
	require.NoError(t, err)
	assert.True(t, fy2023.PrincipalRecovered.Add(fy2024.PrincipalRecovered).Equal(overall.PrincipalRecovered))
	assert.True(t, fy2023.InterestCollected.Add(fy2024.InterestCollected).Equal(overall.InterestCollected))
}

func TestOverall_DeterministicUnderInputReordering(t *testing.T) {
	agg := NewAggregator()
	cutoff := day(2025, time.January, 1)

	base, err := agg.Overall(fixtureInput(), cutoff)
	require.NoError(t, err)

	reversed := fixtureInput()
	for i, j := 0, len(reversed.Installments)-1; i < j; i, j = i+1, j-1 {
		reversed.Installments[i], reversed.Installments[j] = reversed.Installments[j], reversed.Installments[i]
	}
	for i, j := 0, len(reversed.Entries)-1; i < j; i, j = i+1, j-1 {
		reversed.Entries[i], reversed.Entries[j] = reversed.Entries[j], reversed.Entries[i]
	}

	again, err := agg.Overall(reversed, cutoff)
	require.NoError(t, err)

	assert.Equal(t, base, again)
}

func TestOverall_DeletedEntriesAreInvisible(t *testing.T) {
	agg := NewAggregator()
	in := fixtureInput()
	deletedAt := day(2024, time.August, 1)
	in.Entries[0].DeletedAt = &deletedAt

	report, err := agg.Overall(in, day(2025, time.January, 1))
	require.NoError(t, err)

	assert.True(t, report.ExpenseTotal.Equal(d("500")))
	assertNetTotalIdentity(t, report)
}

func TestOverall_OrphanInstallmentIsDataIntegrityError(t *testing.T) {
	agg := NewAggregator()
	in := fixtureInput()
	in.Installments = append(in.Installments, ledger.Installment{
		ID: 99, LoanID: 42, InstallmentNumber: 1, Amount: d("10"), Date: day(2024, time.January, 1),
	})

	_, err := agg.Overall(in, day(2025, time.January, 1))
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrDataIntegrity)
}

func TestFiscalYearOf(t *testing.T) {
	assert.Equal(t, 2024, FiscalYearOf(day(2024, time.April, 1)).StartYear)
	assert.Equal(t, 2023, FiscalYearOf(day(2024, time.March, 31)).StartYear)
	assert.Equal(t, 2024, FiscalYearOf(day(2025, time.February, 1)).StartYear)
}
