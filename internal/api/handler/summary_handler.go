package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"welfare-ledger/internal/domain/summary"
	"welfare-ledger/internal/pkg/apperrors"

	"github.com/go-chi/chi/v5"
)

type SummaryHandler struct {
	service summary.Service
	logger  *slog.Logger
}

func NewSummaryHandler(s summary.Service, l *slog.Logger) *SummaryHandler {
	return &SummaryHandler{
		service: s,
		logger:  l.With("component", "SummaryHandler"),
	}
}

// fiscalYearParam reads the optional fy query parameter, the starting calendar
// year of an April-to-March fiscal year. Absent means all-time.
func fiscalYearParam(r *http.Request) (*int, error) {
	fyStr := r.URL.Query().Get("fy")
	if fyStr == "" {
		return nil, nil
	}
	fy, err := strconv.Atoi(fyStr)
	if err != nil {
		return nil, fmt.Errorf("%w: fy must be a year, got %q", apperrors.ErrInvalidArgument, fyStr)
	}
	return &fy, nil
}

// GetSummary serves the all-time report, or one fiscal year's when fy is set.
func (h *SummaryHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	fy, err := fiscalYearParam(r)
	if err != nil {
		respondError(w, err)
		return
	}

	var report *summary.Report
	if fy == nil {
		report, err = h.service.Overall(r.Context())
	} else {
		report, err = h.service.ForFiscalYear(r.Context(), *fy)
	}
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, report)
}

// GetBreakdown itemizes one report metric with fixed-size pagination.
func (h *SummaryHandler) GetBreakdown(w http.ResponseWriter, r *http.Request) {
	metric, err := summary.ParseMetric(chi.URLParam(r, "metric"))
	if err != nil {
		respondError(w, err)
		return
	}

	fy, err := fiscalYearParam(r)
	if err != nil {
		respondError(w, err)
		return
	}

	page := 1
	if pageStr := r.URL.Query().Get("page"); pageStr != "" {
		page, err = strconv.Atoi(pageStr)
		if err != nil {
			respondError(w, fmt.Errorf("%w: page must be a number, got %q", apperrors.ErrInvalidArgument, pageStr))
			return
		}
	}

	breakdown, err := h.service.Breakdown(r.Context(), metric, fy, page)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, breakdown)
}
