package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil error", nil, ""},
		{"standard error message", NewPredictionFailedError("Invalid Data", 400, nil), "Invalid Data"},
		{"wrapped standard error", fmt.Errorf("predict: %w", NewPredictionTimeoutError(stderrors.New("deadline"))), DefaultPredictionMessage},
		{"plain error text", stderrors.New("Service unavailable"), "Service unavailable"},
		{"blank error text", stderrors.New("  "), "fallback"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, UserMessage(tt.err, "fallback"))
		})
	}
}

func TestNewPredictionFailedError_Retryability(t *testing.T) {
	assert.True(t, NewPredictionFailedError("", 0, stderrors.New("dial tcp")).Retryable)
	assert.True(t, NewPredictionFailedError("", 503, nil).Retryable)
	assert.False(t, NewPredictionFailedError("bad input", 422, nil).Retryable)

	err := NewPredictionFailedError("", 500, nil)
	assert.Equal(t, DefaultPredictionMessage, err.Message)
	assert.Equal(t, 500, err.Metadata["statusCode"])
}

func TestConvertToBPMNError(t *testing.T) {
	t.Run("validation failure is not retried and carries field errors", func(t *testing.T) {
		fieldErrors := map[string]string{"area": "Enter a valid area", "state": "State is required"}
		bpmn := ConvertToBPMNError(NewPropertyValidationFailedError(fieldErrors))

		assert.Equal(t, "PROPERTY_VALIDATION_FAILED", bpmn.Code)
		assert.Equal(t, 0, bpmn.Retries)
		assert.False(t, bpmn.Retryable)

		vars := bpmn.ToErrorVariables()
		assert.Equal(t, fieldErrors, vars["validationErrors"])
		assert.Equal(t, "PROPERTY_VALIDATION_FAILED", vars["originalErrorCode"])
		assert.Equal(t, "PROPERTY_VALIDATION_FAILED", vars["errorCode"])
	})

	t.Run("retryable prediction failure", func(t *testing.T) {
		bpmn := ConvertToBPMNError(NewPredictionFailedError("", 502, nil))
		assert.Equal(t, 3, bpmn.Retries)
		assert.True(t, bpmn.Retryable)
	})

	t.Run("non retryable prediction failure", func(t *testing.T) {
		bpmn := ConvertToBPMNError(NewPredictionFailedError("rejected", 400, nil))
		assert.Equal(t, 0, bpmn.Retries)
	})
}

func TestNewPropertyValidationFailedError_Details(t *testing.T) {
	err := NewPropertyValidationFailedError(map[string]string{"year_built": "x", "area": "y"})
	assert.Equal(t, "2 invalid field(s): area, year_built", err.Details)
}

func TestAsStandardError(t *testing.T) {
	_, ok := AsStandardError(stderrors.New("plain"))
	assert.False(t, ok)

	wrapped := fmt.Errorf("outer: %w", NewOptionsUnavailableError(stderrors.New("refused")))
	stdErr, ok := AsStandardError(wrapped)
	require.True(t, ok)
	assert.Equal(t, ErrCodeOptionsUnavailable, stdErr.Code)
	assert.True(t, IsRetryable(wrapped))
}

func TestGetErrorCategory(t *testing.T) {
	assert.Equal(t, "VALIDATION", GetErrorCategory(ErrCodePropertyValidationFailed))
	assert.Equal(t, "PREDICTION_SERVICE", GetErrorCategory(ErrCodePredictionTimeout))
	assert.Equal(t, "PREDICTION_SERVICE", GetErrorCategory(ErrCodeOptionsUnavailable))
	assert.Equal(t, "TRANSPORT", GetErrorCategory(ErrCodeTimeout))
	assert.Equal(t, "AUTH", GetErrorCategory(ErrCodeAuthentication))
	assert.Equal(t, "OTHER", GetErrorCategory(ErrCodeInternal))
}
