package errors

import (
	"fmt"
	"strings"
	"time"
)

// DomainErrorType is the category of a domain rule failure.
type DomainErrorType string

const (
	DomainValidationError     DomainErrorType = "VALIDATION_ERROR"
	DomainBusinessRuleError   DomainErrorType = "BUSINESS_RULE_ERROR"
	DomainNotFoundError       DomainErrorType = "NOT_FOUND"
	DomainConflictError       DomainErrorType = "CONFLICT"
	DomainInfrastructureError DomainErrorType = "INFRASTRUCTURE_ERROR"
	DomainAuthorizationError  DomainErrorType = "AUTHORIZATION_ERROR"
	DomainAuthenticationError DomainErrorType = "AUTHENTICATION_ERROR"
	DomainRateLimitError      DomainErrorType = "RATE_LIMIT_ERROR"
	DomainTimeoutError        DomainErrorType = "TIMEOUT_ERROR"
)

// DomainError carries the code and context of a domain rule violation.
type DomainError struct {
	Type       DomainErrorType        `json:"type"`
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Cause      error                  `json:"-"`
	Retryable  bool                   `json:"retryable"`
	StatusCode int                    `json:"status_code"`
}

// NewDomainError creates a new domain error.
func NewDomainError(errorType DomainErrorType, code string, message string) *DomainError {
	return &DomainError{
		Type:       errorType,
		Code:       code,
		Message:    message,
		Details:    make(map[string]interface{}),
		StatusCode: domainErrorTypeToStatusCode(errorType),
	}
}

func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Type, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Type, e.Code, e.Message)
}

func (e *DomainError) WithCause(cause error) *DomainError {
	e.Cause = cause
	return e
}

func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	e.Details[key] = value
	return e
}

func (e *DomainError) WithRetryable(retryable bool) *DomainError {
	e.Retryable = retryable
	return e
}

// Is matches on type and code so sentinel errors survive wrapping.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Type == t.Type && e.Code == t.Code
}

func (e *DomainError) Unwrap() error {
	return e.Cause
}

func domainErrorTypeToStatusCode(errorType DomainErrorType) int {
	switch errorType {
	case DomainValidationError:
		return 400
	case DomainBusinessRuleError:
		return 422
	case DomainNotFoundError:
		return 404
	case DomainConflictError:
		return 409
	case DomainAuthenticationError:
		return 401
	case DomainAuthorizationError:
		return 403
	case DomainRateLimitError:
		return 429
	case DomainTimeoutError:
		return 504
	default:
		return 500
	}
}

// Sentinel domain errors.
var (
	// Node errors
	ErrNodeNotFound = NewDomainError(
		DomainNotFoundError,
		"NODE_NOT_FOUND",
		"The requested node does not exist",
	)

	ErrNodeTitleRequired = NewDomainError(
		DomainValidationError,
		"NODE_TITLE_REQUIRED",
		"Node title is required",
	)

	ErrNodeTitleTooLong = NewDomainError(
		DomainValidationError,
		"NODE_TITLE_TOO_LONG",
		"Node title exceeds maximum length",
	).WithDetail("max_length", 500)

	ErrInvalidNodeType = NewDomainError(
		DomainValidationError,
		"INVALID_NODE_TYPE",
		"Node type is not one of the supported decision-model types",
	)

	ErrInvalidViewRect = NewDomainError(
		DomainValidationError,
		"INVALID_VIEW_RECT",
		"Node view rectangle has non-finite or negative dimensions",
	)

	ErrInvalidImpact = NewDomainError(
		DomainValidationError,
		"INVALID_KR_IMPACT",
		"Key-result impact has an empty KR id or out-of-range confidence",
	)

	// Graph errors
	ErrGraphNotFound = NewDomainError(
		DomainNotFoundError,
		"GRAPH_NOT_FOUND",
		"The requested graph does not exist",
	)

	ErrGraphNameRequired = NewDomainError(
		DomainValidationError,
		"GRAPH_NAME_REQUIRED",
		"Graph name is required",
	)

	ErrGraphNodeLimit = NewDomainError(
		DomainBusinessRuleError,
		"GRAPH_NODE_LIMIT",
		"Maximum number of nodes in graph exceeded",
	)

	ErrGraphEdgeLimit = NewDomainError(
		DomainBusinessRuleError,
		"GRAPH_EDGE_LIMIT",
		"Maximum number of edges in graph exceeded",
	)

	// Edge errors
	ErrEdgeNotFound = NewDomainError(
		DomainNotFoundError,
		"EDGE_NOT_FOUND",
		"The requested edge does not exist",
	)

	ErrSelfReferentialEdge = NewDomainError(
		DomainBusinessRuleError,
		"SELF_REFERENTIAL_EDGE",
		"Cannot create an edge from a node to itself",
	)

	ErrEdgeEndpointMissing = NewDomainError(
		DomainBusinessRuleError,
		"EDGE_ENDPOINT_MISSING",
		"Edge references a node that is not part of the graph",
	)

	ErrInvalidEdgeKind = NewDomainError(
		DomainValidationError,
		"INVALID_EDGE_KIND",
		"Edge kind is not one of the supported relation kinds",
	)

	ErrEdgeWeightOutOfRange = NewDomainError(
		DomainValidationError,
		"EDGE_WEIGHT_OUT_OF_RANGE",
		"Edge weight must be between 0 and 1",
	)

	// Scenario errors
	ErrScenarioNotFound = NewDomainError(
		DomainNotFoundError,
		"SCENARIO_NOT_FOUND",
		"The requested scenario does not exist",
	)

	ErrScenarioNameRequired = NewDomainError(
		DomainValidationError,
		"SCENARIO_NAME_REQUIRED",
		"Scenario name is required",
	)

	ErrScenarioGraphMismatch = NewDomainError(
		DomainBusinessRuleError,
		"SCENARIO_GRAPH_MISMATCH",
		"Scenarios belong to different graphs and cannot be compared",
	)

	// User errors
	ErrUserNotAuthorized = NewDomainError(
		DomainAuthorizationError,
		"USER_NOT_AUTHORIZED",
		"User is not authorized to perform this action",
	)

	// Transaction errors
	ErrConcurrentModification = NewDomainError(
		DomainConflictError,
		"CONCURRENT_MODIFICATION",
		"The resource was modified by another process",
	).WithRetryable(true)

	ErrTransactionFailed = NewDomainError(
		DomainInfrastructureError,
		"TRANSACTION_FAILED",
		"Database transaction failed",
	).WithRetryable(true)

	ErrEventPublishFailed = NewDomainError(
		DomainInfrastructureError,
		"EVENT_PUBLISH_FAILED",
		"Failed to publish domain event",
	).WithRetryable(true)
)

// ValidationErrors aggregates field-level validation failures.
type ValidationErrors struct {
	Errors []*DomainError `json:"errors"`
}

func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{Errors: make([]*DomainError, 0)}
}

// Add records a failure for a named field.
func (v *ValidationErrors) Add(field string, message string) {
	err := NewDomainError(DomainValidationError, "FIELD_VALIDATION_ERROR", message).
		WithDetail("field", field)
	v.Errors = append(v.Errors, err)
}

func (v *ValidationErrors) AddError(err *DomainError) {
	v.Errors = append(v.Errors, err)
}

func (v *ValidationErrors) HasErrors() bool {
	return len(v.Errors) > 0
}

func (v *ValidationErrors) Error() string {
	if len(v.Errors) == 0 {
		return ""
	}
	messages := make([]string, len(v.Errors))
	for i, err := range v.Errors {
		messages[i] = err.Message
	}
	return fmt.Sprintf("Validation failed: %s", strings.Join(messages, "; "))
}

// ToMap groups messages by field for JSON serialization.
func (v *ValidationErrors) ToMap() map[string][]string {
	result := make(map[string][]string)
	for _, err := range v.Errors {
		field, ok := err.Details["field"].(string)
		if !ok {
			field = "general"
		}
		result[field] = append(result[field], err.Message)
	}
	return result
}

// DomainErrorResponse is the API response shape for domain errors.
type DomainErrorResponse struct {
	Error     bool                   `json:"error"`
	Type      DomainErrorType        `json:"type"`
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	RequestID string                 `json:"request_id,omitempty"`
	Timestamp string                 `json:"timestamp"`
}

// NewDomainErrorResponse creates an error response from a domain error.
func NewDomainErrorResponse(err *DomainError, requestID string) *DomainErrorResponse {
	return &DomainErrorResponse{
		Error:     true,
		Type:      err.Type,
		Code:      err.Code,
		Message:   err.Message,
		Details:   err.Details,
		Retryable: err.Retryable,
		RequestID: requestID,
		Timestamp: fmt.Sprintf("%d", timeNow().Unix()),
	}
}

// Overridable in tests.
var timeNow = func() time.Time {
	return time.Now()
}
