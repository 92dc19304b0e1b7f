// Package errors provides standardized error handling for BPMN workflow integration.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeValidation      ErrorCode = "VALIDATION_ERROR"
	ErrCodeProcessing      ErrorCode = "PROCESSING_ERROR"
	ErrCodeInvalidJobInput ErrorCode = "INVALID_JOB_INPUT"

	ErrCodeAffiliateNotFound ErrorCode = "AFFILIATE_NOT_FOUND"
	ErrCodeNoCompatibleRange ErrorCode = "NO_COMPATIBLE_RANGE"

	ErrCodeSnapshotLoadFailed       ErrorCode = "SNAPSHOT_LOAD_FAILED"
	ErrCodeSnapshotTimeout          ErrorCode = "SNAPSHOT_TIMEOUT"
	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"

	ErrCodeExternalService  ErrorCode = "EXTERNAL_SERVICE_ERROR"
	ErrCodeTimeout          ErrorCode = "TIMEOUT_ERROR"
	ErrCodeResourceNotFound ErrorCode = "RESOURCE_NOT_FOUND"
	ErrCodeInternal         ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// WithMetadata attaches a key/value pair and returns the same error.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = map[string]interface{}{}
	}
	e.Metadata[key] = value
	return e
}

func newError(code ErrorCode, message, details string, retryable bool) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}

	for k, v := range e.ErrorVariables {
		vars[k] = v
	}

	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

// NewValidationError reports malformed or missing input. The run is never attempted.
func NewValidationError(details string) *StandardError {
	return newError(ErrCodeValidation, "Invalid pairing input", details, false)
}

// NewProcessingError reports a run-level failure while computing pairings.
func NewProcessingError(details string, err error) *StandardError {
	if err != nil {
		details = fmt.Sprintf("%s: %v", details, err)
	}
	return newError(ErrCodeProcessing, "Pairing computation failed", details, false)
}

// NewInvalidJobInputError reports job variables that do not satisfy the activity input schema.
func NewInvalidJobInputError(details string) *StandardError {
	return newError(ErrCodeInvalidJobInput, "Job variables failed schema validation", details, false)
}

func NewAffiliateNotFoundError(affiliateID string) *StandardError {
	return newError(ErrCodeAffiliateNotFound, "Affiliate has no range assignment",
		fmt.Sprintf("affiliateId: %s", affiliateID), false)
}

func NewNoCompatibleRangeError(affiliateID1, affiliateID2 string) *StandardError {
	return newError(ErrCodeNoCompatibleRange, "Affiliates share no compatible amount range",
		fmt.Sprintf("affiliates: %s, %s", affiliateID1, affiliateID2), false)
}

// NewSnapshotLoadFailedError creates a retryable storage read error.
func NewSnapshotLoadFailedError(queryType string, err error) *StandardError {
	return newError(ErrCodeSnapshotLoadFailed, "Failed to load pairing snapshot",
		fmt.Sprintf("queryType: %s, error: %s", queryType, err.Error()), true)
}

// NewSnapshotTimeoutError creates a retryable storage timeout error.
func NewSnapshotTimeoutError(queryType string) *StandardError {
	return newError(ErrCodeSnapshotTimeout, "Snapshot query timeout",
		fmt.Sprintf("queryType: %s", queryType), true)
}

// NewDatabaseConnectionFailedError creates a retryable database connection error.
func NewDatabaseConnectionFailedError(err error) *StandardError {
	return newError(ErrCodeDatabaseConnectionFailed, "Database connection error", err.Error(), true)
}

func NewExternalServiceError(service string, err error) *StandardError {
	return newError(ErrCodeExternalService, fmt.Sprintf("External service '%s' error", service), err.Error(), true)
}

func NewTimeoutError(service string, err error) *StandardError {
	return newError(ErrCodeTimeout, fmt.Sprintf("Service '%s' timeout", service), err.Error(), true)
}

func NewResourceNotFoundError(service, details string) *StandardError {
	return newError(ErrCodeResourceNotFound, fmt.Sprintf("Resource not found in %s", service), details, false)
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal error codes to the error codes caught by boundary events.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeValidation:               "PAIRING_INPUT_INVALID",
	ErrCodeInvalidJobInput:          "PAIRING_INPUT_INVALID",
	ErrCodeProcessing:               "PAIRING_FAILED",
	ErrCodeAffiliateNotFound:        "AFFILIATE_NOT_FOUND",
	ErrCodeNoCompatibleRange:        "NO_COMPATIBLE_RANGE",
	ErrCodeSnapshotLoadFailed:       "SNAPSHOT_UNAVAILABLE",
	ErrCodeSnapshotTimeout:          "SNAPSHOT_UNAVAILABLE",
	ErrCodeDatabaseConnectionFailed: "SNAPSHOT_UNAVAILABLE",
}

// GetRetryCount returns the recommended retry count for an error code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeSnapshotLoadFailed,
		ErrCodeDatabaseConnectionFailed,
		ErrCodeExternalService:
		return 3

	case ErrCodeSnapshotTimeout,
		ErrCodeTimeout:
		return 2

	default:
		return 0 // business errors: no retry
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	for k, v := range stdErr.Metadata {
		vars[k] = v
	}

	return &BPMNError{
		Code:           bpmnCode,
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// AsStandardError unwraps err into a StandardError when one is in its chain.
func AsStandardError(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code ErrorCode) bool {
	stdErr, ok := AsStandardError(err)
	return ok && stdErr.Code == code
}

func IsValidation(err error) bool {
	return HasCode(err, ErrCodeValidation)
}

func IsProcessing(err error) bool {
	return HasCode(err, ErrCodeProcessing)
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "SNAPSHOT") || strings.Contains(codeStr, "DATABASE"):
		return "STORAGE"
	case strings.Contains(codeStr, "AFFILIATE") || strings.Contains(codeStr, "RANGE"):
		return "PAIRING"
	case strings.Contains(codeStr, "PROCESSING"):
		return "PROCESSING"
	case strings.Contains(codeStr, "INVALID") || strings.Contains(codeStr, "VALIDATION"):
		return "VALIDATION"
	case strings.Contains(codeStr, "EXTERNAL") || strings.Contains(codeStr, "TIMEOUT"):
		return "INFRASTRUCTURE"
	default:
		return "OTHER"
	}
}
