// Package errors provides standardized error handling for the chat pipeline and its workflow workers.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeValidation           ErrorCode = "VALIDATION_ERROR"
	ErrCodeOrganisationNotFound ErrorCode = "ORGANISATION_NOT_FOUND"
	ErrCodeModelUnavailable     ErrorCode = "MODEL_UNAVAILABLE"
	ErrCodeInvalidAudioFormat   ErrorCode = "INVALID_AUDIO_FORMAT"
	ErrCodeTranscriptionFailed  ErrorCode = "TRANSCRIPTION_FAILED"

	ErrCodeStoreQueryFailed         ErrorCode = "STORE_QUERY_FAILED"
	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeConversationLogFailed    ErrorCode = "CONVERSATION_LOG_FAILED"
	ErrCodeWorkflowEngine           ErrorCode = "WORKFLOW_ENGINE_UNAVAILABLE"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
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

// NewValidationError creates a non-retryable request validation error.
func NewValidationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidation,
		Message:   "Request validation failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotFoundError reports an unknown organisation. The pipeline absorbs it.
func NewNotFoundError(organisationID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeOrganisationNotFound,
		Message:   "Organisation not found",
		Details:   fmt.Sprintf("organisationId: %s", organisationID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewModelUnavailableError is raised at startup when a model artifact cannot be loaded.
func NewModelUnavailableError(artifact string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeModelUnavailable,
		Message:   "Model artifact unavailable",
		Details:   fmt.Sprintf("artifact: %s, error: %v", artifact, err),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewDecodeError reports an unsupported or corrupt audio container.
func NewDecodeError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidAudioFormat,
		Message:   "Audio could not be decoded",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewTranscriptionFailedError wraps a recognizer failure.
func NewTranscriptionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeTranscriptionFailed,
		Message:   "Speech recognition failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewStoreQueryFailedError creates a retryable store error.
func NewStoreQueryFailedError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeStoreQueryFailed,
		Message:   "Content store query failed",
		Details:   fmt.Sprintf("operation: %s, error: %v", operation, err),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewDatabaseConnectionFailedError creates a retryable database connection error.
func NewDatabaseConnectionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseConnectionFailed,
		Message:   "Database connection error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewWorkflowEngineError reports a failed call to the Zeebe gateway.
func NewWorkflowEngineError(operation string, err error, retryable bool) *StandardError {
	return &StandardError{
		Code:      ErrCodeWorkflowEngine,
		Message:   "Workflow engine call failed",
		Details:   fmt.Sprintf("operation: %s, error: %v", operation, err),
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewInternalError wraps anything that does not fit another code.
func NewInternalError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// ==========================
// 4. Error Conversion
// ==========================

// GetRetryCount returns the recommended retry count for a workflow job.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeStoreQueryFailed,
		ErrCodeDatabaseConnectionFailed,
		ErrCodeWorkflowEngine:
		return 3

	case ErrCodeTranscriptionFailed:
		return 1

	default:
		return 0
	}
}

// HTTPStatus maps an error code to the status returned by the HTTP endpoint.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeValidation:
		return http.StatusBadRequest
	case ErrCodeInvalidAudioFormat:
		return http.StatusUnprocessableEntity
	case ErrCodeOrganisationNotFound:
		return http.StatusNotFound
	case ErrCodeModelUnavailable:
		return http.StatusServiceUnavailable
	case ErrCodeStoreQueryFailed, ErrCodeDatabaseConnectionFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      string(stdErr.Code),
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// AsStandard extracts a StandardError from err, or wraps it as INTERNAL_ERROR.
func AsStandard(err error) *StandardError {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	return NewInternalError(err)
}

// HasCode reports whether err carries the given code anywhere in its chain.
func HasCode(err error, code ErrorCode) bool {
	var stdErr *StandardError
	return stderrors.As(err, &stdErr) && stdErr.Code == code
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "VALIDATION") || strings.Contains(codeStr, "INVALID"):
		return "VALIDATION"
	case strings.Contains(codeStr, "MODEL") || strings.Contains(codeStr, "TRANSCRIPTION"):
		return "AI"
	case strings.Contains(codeStr, "STORE") || strings.Contains(codeStr, "DATABASE"):
		return "DATABASE"
	case strings.Contains(codeStr, "NOT_FOUND"):
		return "NOT_FOUND"
	case strings.Contains(codeStr, "CONVERSATION"):
		return "CONVERSATION"
	case strings.Contains(codeStr, "WORKFLOW"):
		return "EXTERNAL_SERVICE"
	default:
		return "OTHER"
	}
}
