package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"welfare-ledger/internal/api/handler/dto"
	"welfare-ledger/internal/domain/ledger"
	"welfare-ledger/internal/pkg/apperrors"
)

type LedgerHandler struct {
	service ledger.Service
	logger  *slog.Logger
}

func NewLedgerHandler(s ledger.Service, l *slog.Logger) *LedgerHandler {
	return &LedgerHandler{
		service: s,
		logger:  l.With("component", "LedgerHandler"),
	}
}

// DeleteEntry soft-deletes a ledger entry. Deleting an interest charge also
// reverses the charged amount on the customer's balance; the response flags
// that with reversed=true.
func (h *LedgerHandler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	entryID, err := getInt64Param(r, "entryID")
	if err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	var req dto.DeleteEntryRequest
	if r.Body != nil && r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
			return
		}
	}
	if req.DeletedBy == "" {
		req.DeletedBy = "api"
	}

	entry, err := h.service.SoftDeleteEntry(r.Context(), entryID, req.DeletedBy)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewDeletedEntryResponse(entry))
}
