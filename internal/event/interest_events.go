package event

import (
	"time"
)

// InterestAppliedEvent is published after a quarterly interest charge has been
// committed for a customer. Amounts travel as decimal strings.
type InterestAppliedEvent struct {
	CustomerID     int64     `json:"customerId"`
	PeriodStart    string    `json:"periodStart"`
	PeriodEnd      string    `json:"periodEnd"`
	InterestAmount string    `json:"interestAmount"`
	Timestamp      time.Time `json:"timestamp"`
}

// InterestChargeReversedEvent is published after an interest charge ledger
// entry was soft-deleted and the running balance compensated.
type InterestChargeReversedEvent struct {
	CustomerID int64     `json:"customerId"`
	Amount     string    `json:"amount"`
	Timestamp  time.Time `json:"timestamp"`
}
