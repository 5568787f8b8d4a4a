package summary

import (
	"fmt"
	"sort"
	"time"

	"welfare-ledger/internal/domain/allocation"
	"welfare-ledger/internal/domain/ledger"
	"welfare-ledger/internal/pkg/apperrors"

	"github.com/shopspring/decimal"
)

// Metric names a summary figure that supports an itemized breakdown.
type Metric string

const (
	MetricSubscriptions   Metric = "subscriptions"
	MetricInterest        Metric = "interest"
	MetricPrincipal       Metric = "principal"
	MetricLateFees        Metric = "lateFees"
	MetricLoansGiven      Metric = "loansGiven"
	MetricExpenses        Metric = "expenses"
	MetricInterestCharged Metric = "interestCharged"
)

func ParseMetric(s string) (Metric, error) {
	switch Metric(s) {
	case MetricSubscriptions, MetricInterest, MetricPrincipal, MetricLateFees,
		MetricLoansGiven, MetricExpenses, MetricInterestCharged:
		return Metric(s), nil
	}
	return "", fmt.Errorf("%w: unknown breakdown metric %q", apperrors.ErrInvalidArgument, s)
}

// PageSize is the fixed breakdown page size.
const PageSize = 10

// Item is one underlying transaction contributing to a summary figure.
type Item struct {
	Date       time.Time       `json:"date"`
	CustomerID int64           `json:"customerId"`
	Reference  string          `json:"reference"`
	Amount     decimal.Decimal `json:"amount"`
}

// NavLink is one element of the first/previous/numbered/ellipsis/next/last
// pagination control.
type NavLink struct {
	Label    string `json:"label"`
	Page     int    `json:"page,omitempty"`
	Active   bool   `json:"active,omitempty"`
	Disabled bool   `json:"disabled,omitempty"`
	Ellipsis bool   `json:"ellipsis,omitempty"`
}

// Page is one page of a metric's breakdown.
type Page struct {
	Metric          Metric          `json:"metric"`
	FiscalYearStart *int            `json:"fiscalYearStart,omitempty"`
	Number          int             `json:"page"`
	Size            int             `json:"pageSize"`
	TotalItems      int             `json:"totalItems"`
	TotalPages      int             `json:"totalPages"`
	MetricTotal     decimal.Decimal `json:"metricTotal"`
	Items           []Item          `json:"items"`
	Nav             []NavLink       `json:"nav"`
}

// Breakdown itemizes the transactions behind one summary metric, paginated.
// Page numbers are 1-based; a page past the end yields an empty item list
// with valid navigation.
func (a *Aggregator) Breakdown(in Input, metric Metric, win window, fyStart *int, pageNumber int) (*Page, error) {
	if pageNumber < 1 {
		return nil, fmt.Errorf("%w: page number must be >= 1, got %d", apperrors.ErrInvalidArgument, pageNumber)
	}

	items, err := a.breakdownItems(in, metric, win)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].Date.Equal(items[j].Date) {
			return items[i].Date.Before(items[j].Date)
		}
		if items[i].CustomerID != items[j].CustomerID {
			return items[i].CustomerID < items[j].CustomerID
		}
		return items[i].Reference < items[j].Reference
	})

	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Amount)
	}

	totalPages := (len(items) + PageSize - 1) / PageSize
	if totalPages == 0 {
		totalPages = 1
	}

	start := (pageNumber - 1) * PageSize
	if start > len(items) {
		start = len(items)
	}
	end := start + PageSize
	if end > len(items) {
		end = len(items)
	}

	return &Page{
		Metric:          metric,
		FiscalYearStart: fyStart,
		Number:          pageNumber,
		Size:            PageSize,
		TotalItems:      len(items),
		TotalPages:      totalPages,
		MetricTotal:     total,
		Items:           items[start:end],
		Nav:             navLinks(pageNumber, totalPages),
	}, nil
}

func (a *Aggregator) breakdownItems(in Input, metric Metric, win window) ([]Item, error) {
	switch metric {
	case MetricSubscriptions:
		return subscriptionItems(in, win, false), nil
	case MetricInterest:
		return allocationItems(in, win, false)
	case MetricPrincipal:
		return allocationItems(in, win, true)
	case MetricLateFees:
		return lateFeeItems(in, win), nil
	case MetricLoansGiven:
		return loanItems(in, win), nil
	case MetricExpenses:
		return entryItems(in, win, expenseSubtypeSet(), "expense"), nil
	case MetricInterestCharged:
		return entryItems(in, win, map[string]struct{}{ledger.SubtypeInterestCharge: {}}, "interest charge"), nil
	}
	return nil, fmt.Errorf("%w: unknown breakdown metric %q", apperrors.ErrInvalidArgument, metric)
}

func subscriptionItems(in Input, win window, lateFeesOnly bool) []Item {
	var items []Item
	for i := range in.Subscriptions {
		sub := &in.Subscriptions[i]
		if !win.contains(sub.Date) {
			continue
		}
		amount := sub.Amount
		if lateFeesOnly {
			amount = sub.LateFeeOrZero()
			if amount.IsZero() {
				continue
			}
		}
		items = append(items, Item{
			Date:       sub.Date,
			CustomerID: sub.CustomerID,
			Reference:  fmt.Sprintf("subscription %d", sub.ID),
			Amount:     amount,
		})
	}
	return items
}

// allocationItems itemizes per-installment waterfall portions: the principal
// share when principal is true, the interest share otherwise. Attribution
// comes from the full payment history, so windowed items always add up to the
// report's two-pass figures.
func allocationItems(in Input, win window, principal bool) ([]Item, error) {
	installmentsByLoan, err := groupInstallments(in)
	if err != nil {
		return nil, err
	}

	var items []Item
	for i := range in.Loans {
		loan := &in.Loans[i]
		portions, err := allocation.Portions(loan, installmentsByLoan[loan.ID])
		if err != nil {
			return nil, err
		}
		for _, p := range portions {
			if !win.contains(p.Date) {
				continue
			}
			amount := p.Interest
			if principal {
				amount = p.Principal
			}
			if amount.IsZero() {
				continue
			}
			items = append(items, Item{
				Date:       p.Date,
				CustomerID: loan.CustomerID,
				Reference:  fmt.Sprintf("loan %d installment %d", p.LoanID, p.InstallmentNumber),
				Amount:     amount,
			})
		}
	}
	return items, nil
}

func lateFeeItems(in Input, win window) []Item {
	items := subscriptionItems(in, win, true)

	loanCustomers := make(map[int64]int64, len(in.Loans))
	for i := range in.Loans {
		loanCustomers[in.Loans[i].ID] = in.Loans[i].CustomerID
	}
	for i := range in.Installments {
		inst := &in.Installments[i]
		if !win.contains(inst.Date) {
			continue
		}
		fee := inst.LateFeeOrZero()
		if fee.IsZero() {
			continue
		}
		items = append(items, Item{
			Date:       inst.Date,
			CustomerID: loanCustomers[inst.LoanID],
			Reference:  fmt.Sprintf("loan %d installment %d late fee", inst.LoanID, inst.InstallmentNumber),
			Amount:     fee,
		})
	}
	return items
}

func loanItems(in Input, win window) []Item {
	var items []Item
	for i := range in.Loans {
		loan := &in.Loans[i]
		if !win.contains(loan.PaymentDate) {
			continue
		}
		items = append(items, Item{
			Date:       loan.PaymentDate,
			CustomerID: loan.CustomerID,
			Reference:  fmt.Sprintf("loan %d", loan.ID),
			Amount:     loan.OriginalAmount,
		})
	}
	return items
}

func entryItems(in Input, win window, subtypes map[string]struct{}, kind string) []Item {
	var items []Item
	for i := range in.Entries {
		entry := &in.Entries[i]
		if entry.Deleted() || !win.contains(entry.Date) {
			continue
		}
		if _, ok := subtypes[entry.Subtype]; !ok {
			continue
		}
		items = append(items, Item{
			Date:       entry.Date,
			CustomerID: entry.CustomerID,
			Reference:  fmt.Sprintf("%s %d: %s", kind, entry.ID, entry.Subtype),
			Amount:     entry.Amount,
		})
	}
	return items
}

func expenseSubtypeSet() map[string]struct{} {
	set := make(map[string]struct{}, len(ExpenseSubtypes))
	for _, s := range ExpenseSubtypes {
		set[s] = struct{}{}
	}
	return set
}

// navLinks builds the first/previous/numbered/ellipsis/next/last control.
// The numbered window shows the first page, the last page and one page either
// side of the current one, with ellipses covering the gaps.
func navLinks(current, totalPages int) []NavLink {
	links := []NavLink{
		{Label: "first", Page: 1, Disabled: current == 1},
		{Label: "prev", Page: max(current-1, 1), Disabled: current == 1},
	}

	lastShown := 0
	for page := 1; page <= totalPages; page++ {
		if page != 1 && page != totalPages && (page < current-1 || page > current+1) {
			continue
		}
		if page > lastShown+1 {
			links = append(links, NavLink{Label: "…", Ellipsis: true})
		}
		links = append(links, NavLink{
			Label:  fmt.Sprintf("%d", page),
			Page:   page,
			Active: page == current,
		})
		lastShown = page
	}

	links = append(links,
		NavLink{Label: "next", Page: min(current+1, totalPages), Disabled: current >= totalPages},
		NavLink{Label: "last", Page: totalPages, Disabled: current >= totalPages},
	)
	return links
}
