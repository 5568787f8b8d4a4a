package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"welfare-ledger/internal/api/handler/dto"
	"welfare-ledger/internal/batch"
	"welfare-ledger/internal/domain/interest"
	"welfare-ledger/internal/pkg/apperrors"
)

// BatchRunner triggers one quarterly run on demand; the cron schedule uses the
// same job.
type BatchRunner interface {
	Run(ctx context.Context) (batch.RunSummary, error)
}

type InterestHandler struct {
	service interest.Service
	runner  BatchRunner
	logger  *slog.Logger
}

func NewInterestHandler(s interest.Service, runner BatchRunner, l *slog.Logger) *InterestHandler {
	return &InterestHandler{
		service: s,
		runner:  runner,
		logger:  l.With("component", "InterestHandler"),
	}
}

// ApplyForCustomer applies the most recently completed quarter's interest to
// one customer. A quarter that is already charged comes back applied=false
// with a reason, not an error.
func (h *InterestHandler) ApplyForCustomer(w http.ResponseWriter, r *http.Request) {
	customerID, err := getInt64Param(r, "customerID")
	if err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	result, err := h.service.ApplyForCustomer(r.Context(), customerID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewApplyInterestResponse(customerID, result))
}

func (h *InterestHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	customerID, err := getInt64Param(r, "customerID")
	if err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	balance, err := h.service.GetBalance(r.Context(), customerID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewBalanceResponse(balance))
}

// RunBatch kicks off a synchronous batch run over all customers. Partial
// failure still returns the summary so the caller can see what was applied.
func (h *InterestHandler) RunBatch(w http.ResponseWriter, r *http.Request) {
	summary, err := h.runner.Run(r.Context())
	if err != nil && summary.Customers == 0 {
		respondError(w, err)
		return
	}

	status := http.StatusOK
	if summary.Failed > 0 {
		status = http.StatusMultiStatus
	}
	respondJSON(w, status, dto.NewBatchRunResponse(summary))
}
