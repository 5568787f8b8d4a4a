package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"welfare-ledger/internal/api/handler/dto"
	"welfare-ledger/internal/batch"
	"welfare-ledger/internal/domain/interest"
	"welfare-ledger/internal/pkg/apperrors"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockInterestService struct {
	mock.Mock
}

func (m *MockInterestService) ApplyQuarterlyInterest(ctx context.Context, customerID int64, quarter interest.Quarter) (interest.ApplyResult, error) {
	args := m.Called(ctx, customerID, quarter)
	return args.Get(0).(interest.ApplyResult), args.Error(1)
}

func (m *MockInterestService) ApplyForCustomer(ctx context.Context, customerID int64) (interest.ApplyResult, error) {
	args := m.Called(ctx, customerID)
	return args.Get(0).(interest.ApplyResult), args.Error(1)
}

func (m *MockInterestService) GetBalance(ctx context.Context, customerID int64) (*interest.Balance, error) {
	args := m.Called(ctx, customerID)
	if balance, ok := args.Get(0).(*interest.Balance); ok {
		return balance, args.Error(1)
	}
	return nil, args.Error(1)
}

type MockBatchRunner struct {
	mock.Mock
}

func (m *MockBatchRunner) Run(ctx context.Context) (batch.RunSummary, error) {
	args := m.Called(ctx)
	return args.Get(0).(batch.RunSummary), args.Error(1)
}

func testHandlerLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, &chi.Context{
		URLParams: chi.RouteParams{Keys: []string{key}, Values: []string{value}},
	}))
}

func TestInterestHandlerApplyForCustomer(t *testing.T) {
	t.Run("applies interest and returns the amount", func(t *testing.T) {
		mockService := new(MockInterestService)
		handler := NewInterestHandler(mockService, new(MockBatchRunner), testHandlerLogger())

		amount := decimal.NewFromInt(3000)
		mockService.On("ApplyForCustomer", mock.Anything, int64(7)).
			Return(interest.ApplyResult{Applied: true, InterestAmount: &amount}, nil)

		req := withURLParam(httptest.NewRequest(http.MethodPost, "/interest/customers/7/apply", nil), "customerID", "7")
		rec := httptest.NewRecorder()

		handler.ApplyForCustomer(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp dto.ApplyInterestResponse
		assert.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.True(t, resp.Applied)
		assert.Equal(t, "3000.00", *resp.InterestAmount)
		mockService.AssertExpectations(t)
	})

	t.Run("skipped quarter is still a 200", func(t *testing.T) {
		mockService := new(MockInterestService)
		handler := NewInterestHandler(mockService, new(MockBatchRunner), testHandlerLogger())

		mockService.On("ApplyForCustomer", mock.Anything, int64(7)).
			Return(interest.ApplyResult{Applied: false, Reason: interest.ReasonAlreadyApplied}, nil)

		req := withURLParam(httptest.NewRequest(http.MethodPost, "/interest/customers/7/apply", nil), "customerID", "7")
		rec := httptest.NewRecorder()

		handler.ApplyForCustomer(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp dto.ApplyInterestResponse
		assert.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.False(t, resp.Applied)
		assert.Equal(t, interest.ReasonAlreadyApplied, resp.Reason)
		assert.Nil(t, resp.InterestAmount)
	})

	t.Run("rejects a non-numeric customer id", func(t *testing.T) {
		handler := NewInterestHandler(new(MockInterestService), new(MockBatchRunner), testHandlerLogger())

		req := withURLParam(httptest.NewRequest(http.MethodPost, "/interest/customers/abc/apply", nil), "customerID", "abc")
		rec := httptest.NewRecorder()

		handler.ApplyForCustomer(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("service failure maps to 500", func(t *testing.T) {
		mockService := new(MockInterestService)
		handler := NewInterestHandler(mockService, new(MockBatchRunner), testHandlerLogger())

		mockService.On("ApplyForCustomer", mock.Anything, int64(7)).
			Return(interest.ApplyResult{}, apperrors.ErrInternalServer)

		req := withURLParam(httptest.NewRequest(http.MethodPost, "/interest/customers/7/apply", nil), "customerID", "7")
		rec := httptest.NewRecorder()

		handler.ApplyForCustomer(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestInterestHandlerGetBalance(t *testing.T) {
	mockService := new(MockInterestService)
	handler := NewInterestHandler(mockService, new(MockBatchRunner), testHandlerLogger())

	mockService.On("GetBalance", mock.Anything, int64(7)).
		Return(&interest.Balance{CustomerID: 7, TotalInterestCharged: decimal.NewFromInt(9000)}, nil)

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/interest/customers/7/balance", nil), "customerID", "7")
	rec := httptest.NewRecorder()

	handler.GetBalance(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp dto.BalanceResponse
	assert.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "9000.00", resp.TotalInterestCharged)
	assert.Nil(t, resp.LastAppliedQuarter)
}

func TestInterestHandlerRunBatch(t *testing.T) {
	t.Run("clean run returns 200 with the summary", func(t *testing.T) {
		runner := new(MockBatchRunner)
		handler := NewInterestHandler(new(MockInterestService), runner, testHandlerLogger())

		runner.On("Run", mock.Anything).Return(batch.RunSummary{
			RunID:     uuid.New(),
			Customers: 3,
			Applied:   3,
		}, nil)

		req := httptest.NewRequest(http.MethodPost, "/interest/run", nil)
		rec := httptest.NewRecorder()

		handler.RunBatch(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp dto.BatchRunResponse
		assert.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, 3, resp.Applied)
	})

	t.Run("partial failure returns 207 with counts", func(t *testing.T) {
		runner := new(MockBatchRunner)
		handler := NewInterestHandler(new(MockInterestService), runner, testHandlerLogger())

		runner.On("Run", mock.Anything).Return(batch.RunSummary{
			RunID:     uuid.New(),
			Customers: 3,
			Applied:   2,
			Failed:    1,
		}, errors.New("quarterly interest run completed with 1 failures"))

		req := httptest.NewRequest(http.MethodPost, "/interest/run", nil)
		rec := httptest.NewRecorder()

		handler.RunBatch(rec, req)

		assert.Equal(t, http.StatusMultiStatus, rec.Code)
		var resp dto.BatchRunResponse
		assert.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, 1, resp.Failed)
	})

	t.Run("aborted run returns an error response", func(t *testing.T) {
		runner := new(MockBatchRunner)
		handler := NewInterestHandler(new(MockInterestService), runner, testHandlerLogger())

		runner.On("Run", mock.Anything).Return(batch.RunSummary{}, errors.New("cannot run job"))

		req := httptest.NewRequest(http.MethodPost, "/interest/run", nil)
		rec := httptest.NewRecorder()

		handler.RunBatch(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}
