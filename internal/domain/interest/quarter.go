package interest

import (
	"time"
)

// Quarter is one fiscal quarter of the April-to-March fiscal year. Start is
// the idempotency key for interest applications; End is the last day of the
// quarter.
type Quarter struct {
	Start time.Time
	End   time.Time
}

// QuarterContaining returns the fiscal quarter that contains t. Fiscal
// quarters begin on April 1, July 1, October 1 and January 1.
func QuarterContaining(t time.Time) Quarter {
	year, month := t.Year(), t.Month()

	var start time.Time
	switch {
	case month >= time.April && month <= time.June:
		start = time.Date(year, time.April, 1, 0, 0, 0, 0, time.UTC)
	case month >= time.July && month <= time.September:
		start = time.Date(year, time.July, 1, 0, 0, 0, 0, time.UTC)
	case month >= time.October && month <= time.December:
		start = time.Date(year, time.October, 1, 0, 0, 0, 0, time.UTC)
	default:
		start = time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	}

	end := start.AddDate(0, 3, -1)
	return Quarter{Start: start, End: end}
}

// PreviousQuarter returns the most recently completed fiscal quarter before
// t. This is the quarter a scheduled batch run applies interest for.
func PreviousQuarter(t time.Time) Quarter {
	current := QuarterContaining(t)
	return QuarterContaining(current.Start.AddDate(0, 0, -1))
}
