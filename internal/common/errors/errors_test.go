package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertToBPMNError(t *testing.T) {
	tests := []struct {
		name      string
		err       *StandardError
		bpmnCode  string
		retryable bool
		retries   int
	}{
		{name: "validation", err: NewValidationError("maxRisk out of range"), bpmnCode: "PAIRING_INPUT_INVALID"},
		{name: "schema", err: NewInvalidJobInputError("cooldownDays: Invalid type"), bpmnCode: "PAIRING_INPUT_INVALID"},
		{name: "processing", err: NewProcessingError("run interrupted", context.Canceled), bpmnCode: "PAIRING_FAILED"},
		{name: "unknown affiliate", err: NewAffiliateNotFoundError("A9"), bpmnCode: "AFFILIATE_NOT_FOUND"},
		{name: "no overlap", err: NewNoCompatibleRangeError("A", "B"), bpmnCode: "NO_COMPATIBLE_RANGE"},
		{
			name:      "load failed",
			err:       NewSnapshotLoadFailedError("transactions", fmt.Errorf("connection reset")),
			bpmnCode:  "SNAPSHOT_UNAVAILABLE",
			retryable: true,
			retries:   3,
		},
		{
			name:      "connection failed",
			err:       NewDatabaseConnectionFailedError(fmt.Errorf("dial tcp: connection refused")),
			bpmnCode:  "SNAPSHOT_UNAVAILABLE",
			retryable: true,
			retries:   3,
		},
		{
			name:      "timeout",
			err:       NewSnapshotTimeoutError("affiliate_ranges"),
			bpmnCode:  "SNAPSHOT_UNAVAILABLE",
			retryable: true,
			retries:   2,
		},
		{
			name:      "unmapped code keeps its own",
			err:       NewExternalServiceError("zeebe", fmt.Errorf("unavailable")),
			bpmnCode:  string(ErrCodeExternalService),
			retryable: true,
			retries:   3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bpmn := ConvertToBPMNError(tt.err)
			assert.Equal(t, tt.bpmnCode, bpmn.Code)
			assert.Equal(t, tt.retryable, bpmn.Retryable)
			assert.Equal(t, tt.retries, bpmn.Retries)
			assert.Equal(t, string(tt.err.Code), bpmn.ErrorVariables["originalErrorCode"])

			vars := bpmn.ToErrorVariables()
			assert.Equal(t, tt.bpmnCode, vars["errorCode"])
			assert.Equal(t, tt.err.Message, vars["errorMessage"])
		})
	}
}

func TestConvertToBPMNError_Metadata(t *testing.T) {
	err := NewNoCompatibleRangeError("A", "B").WithMetadata("effectiveEnd", 800.0)
	bpmn := ConvertToBPMNError(err)
	assert.Equal(t, 800.0, bpmn.ErrorVariables["effectiveEnd"])
	assert.Equal(t, 800.0, bpmn.ToErrorVariables()["effectiveEnd"])
}

func TestProcessingError_Details(t *testing.T) {
	assert.Equal(t, "snapshot empty", NewProcessingError("snapshot empty", nil).Details)
	assert.Equal(t, "run interrupted: context canceled", NewProcessingError("run interrupted", context.Canceled).Details)
}

func TestNormalize(t *testing.T) {
	std := NewValidationError("bad")
	assert.Same(t, std, Normalize(std))
	assert.Same(t, std, Normalize(fmt.Errorf("wrapped: %w", std)))

	plain := Normalize(stderrors.New("boom"))
	assert.Equal(t, ErrCodeInternal, plain.Code)
	assert.Equal(t, "boom", plain.Details)
	assert.False(t, plain.Retryable)
}

func TestCodeHelpers(t *testing.T) {
	wrapped := fmt.Errorf("engine: %w", NewValidationError("x"))
	assert.True(t, IsValidation(wrapped))
	assert.False(t, IsProcessing(wrapped))
	assert.True(t, IsProcessing(NewProcessingError("y", nil)))
	assert.False(t, HasCode(stderrors.New("plain"), ErrCodeValidation))

	std, ok := AsStandardError(wrapped)
	require.True(t, ok)
	assert.Equal(t, ErrCodeValidation, std.Code)
}

func TestGetErrorCategory(t *testing.T) {
	tests := map[ErrorCode]string{
		ErrCodeSnapshotLoadFailed:       "STORAGE",
		ErrCodeSnapshotTimeout:          "STORAGE",
		ErrCodeDatabaseConnectionFailed: "STORAGE",
		ErrCodeAffiliateNotFound:        "PAIRING",
		ErrCodeNoCompatibleRange:        "PAIRING",
		ErrCodeProcessing:               "PROCESSING",
		ErrCodeValidation:               "VALIDATION",
		ErrCodeInvalidJobInput:          "VALIDATION",
		ErrCodeExternalService:          "INFRASTRUCTURE",
		ErrCodeTimeout:                  "INFRASTRUCTURE",
		ErrCodeInternal:                 "OTHER",
	}
	for code, category := range tests {
		assert.Equal(t, category, GetErrorCategory(code), string(code))
	}
}

func TestIsRetryableErrorCode(t *testing.T) {
	assert.True(t, IsRetryableErrorCode(ErrCodeSnapshotLoadFailed))
	assert.True(t, IsRetryableErrorCode(ErrCodeTimeout))
	assert.False(t, IsRetryableErrorCode(ErrCodeValidation))
	assert.False(t, IsRetryableErrorCode(ErrCodeNoCompatibleRange))
}

func TestStandardError_Error(t *testing.T) {
	assert.Equal(t,
		"StandardError[AFFILIATE_NOT_FOUND]: Affiliate has no range assignment: affiliateId: A9",
		NewAffiliateNotFoundError("A9").Error())
	assert.Equal(t,
		"StandardError[PROCESSING_ERROR]: Pairing computation failed",
		(&StandardError{Code: ErrCodeProcessing, Message: "Pairing computation failed"}).Error())
}
