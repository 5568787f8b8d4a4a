package summary

import (
	"time"
)

// FiscalYear is the April 1 (StartYear) through March 31 (StartYear+1) window
// used for all period-scoped reporting.
type FiscalYear struct {
	StartYear int
}

func (fy FiscalYear) Start() time.Time {
	return time.Date(fy.StartYear, time.April, 1, 0, 0, 0, 0, time.UTC)
}

func (fy FiscalYear) End() time.Time {
	return time.Date(fy.StartYear+1, time.March, 31, 0, 0, 0, 0, time.UTC)
}

func (fy FiscalYear) Contains(t time.Time) bool {
	return !t.Before(fy.Start()) && !t.After(fy.End())
}

// FiscalYearOf returns the fiscal year containing t.
func FiscalYearOf(t time.Time) FiscalYear {
	if t.Month() >= time.April {
		return FiscalYear{StartYear: t.Year()}
	}
	return FiscalYear{StartYear: t.Year() - 1}
}
