package apperrors

import (
	"errors"
	"testing"
)

func TestAppErrorError(t *testing.T) {
	tests := []struct {
		name     string
		appError *AppError
		expected string
	}{
		{
			name: "With Code",
			appError: &AppError{
				Code:    "TEST_CODE",
				Message: "This is a test error",
			},
			expected: "[TEST_CODE] This is a test error",
		},
		{
			name: "Without Code",
			appError: &AppError{
				Message: "This is a test error without code",
			},
			expected: "This is a test error without code",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.appError.Error()
			if result != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, result)
			}
		})
	}
}

func TestWrapDatabaseErrorUnwrapsToSentinel(t *testing.T) {
	cause := errors.New("connection refused")
	err := WrapDatabaseError(cause, "failed to load snapshot")

	if !errors.Is(err, ErrDatabase) {
		t.Errorf("expected wrapped error to match ErrDatabase")
	}
	if !errors.Is(err, cause) {
		t.Errorf("expected wrapped error to match the original cause")
	}
}

func TestNewValidationError(t *testing.T) {
	err := NewValidationError("fiscalYear", "must be a four digit year")

	if !errors.Is(err, ErrValidation) {
		t.Errorf("expected validation error to match ErrValidation")
	}

	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected error chain to contain *ValidationError")
	}
	if ve.Field != "fiscalYear" {
		t.Errorf("expected field %q, got %q", "fiscalYear", ve.Field)
	}
}
