package dto

import (
	"time"

	"welfare-ledger/internal/batch"
	"welfare-ledger/internal/domain/interest"
	"welfare-ledger/internal/domain/ledger"
)

type ErrorDetail struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type TokenRequest struct {
	Username string `json:"username"`
}

type ApplyInterestResponse struct {
	CustomerID     int64   `json:"customerId"`
	Applied        bool    `json:"applied"`
	Reason         string  `json:"reason,omitempty"`
	InterestAmount *string `json:"interestAmount,omitempty"`
}

func NewApplyInterestResponse(customerID int64, result interest.ApplyResult) ApplyInterestResponse {
	resp := ApplyInterestResponse{
		CustomerID: customerID,
		Applied:    result.Applied,
		Reason:     result.Reason,
	}
	if result.InterestAmount != nil {
		s := result.InterestAmount.StringFixed(2)
		resp.InterestAmount = &s
	}
	return resp
}

type BalanceResponse struct {
	CustomerID           int64   `json:"customerId"`
	TotalInterestCharged string  `json:"totalInterestCharged"`
	LastAppliedQuarter   *string `json:"lastAppliedQuarter,omitempty"`
}

func NewBalanceResponse(balance *interest.Balance) BalanceResponse {
	resp := BalanceResponse{
		CustomerID:           balance.CustomerID,
		TotalInterestCharged: balance.TotalInterestCharged.StringFixed(2),
	}
	if balance.LastAppliedQuarter != nil {
		s := balance.LastAppliedQuarter.Format(time.DateOnly)
		resp.LastAppliedQuarter = &s
	}
	return resp
}

type BatchRunResponse struct {
	RunID                  string `json:"runId"`
	PeriodStart            string `json:"periodStart"`
	PeriodEnd              string `json:"periodEnd"`
	Customers              int    `json:"customers"`
	Applied                int    `json:"applied"`
	SkippedNoSubscriptions int    `json:"skippedNoSubscriptions"`
	SkippedAlreadyApplied  int    `json:"skippedAlreadyApplied"`
	Failed                 int    `json:"failed"`
	DurationMs             int64  `json:"durationMs"`
}

func NewBatchRunResponse(summary batch.RunSummary) BatchRunResponse {
	return BatchRunResponse{
		RunID:                  summary.RunID.String(),
		PeriodStart:            summary.Quarter.Start.Format(time.DateOnly),
		PeriodEnd:              summary.Quarter.End.Format(time.DateOnly),
		Customers:              summary.Customers,
		Applied:                summary.Applied,
		SkippedNoSubscriptions: summary.SkippedNoSubscriptions,
		SkippedAlreadyApplied:  summary.SkippedAlreadyApplied,
		Failed:                 summary.Failed,
		DurationMs:             summary.Duration.Milliseconds(),
	}
}

type DeleteEntryRequest struct {
	DeletedBy string `json:"deletedBy"`
}

type DeletedEntryResponse struct {
	ID        int64      `json:"id"`
	Subtype   string     `json:"subtype"`
	Amount    string     `json:"amount"`
	DeletedAt *time.Time `json:"deletedAt"`
	DeletedBy *string    `json:"deletedBy,omitempty"`
	Reversed  bool       `json:"reversed"`
}

func NewDeletedEntryResponse(entry *ledger.Entry) DeletedEntryResponse {
	return DeletedEntryResponse{
		ID:        entry.ID,
		Subtype:   entry.Subtype,
		Amount:    entry.Amount.StringFixed(2),
		DeletedAt: entry.DeletedAt,
		DeletedBy: entry.DeletedBy,
		Reversed:  entry.Subtype == ledger.SubtypeInterestCharge,
	}
}
