package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Constructors(t *testing.T) {
	tests := []struct {
		name    string
		err     *AppError
		errType ErrorType
		status  int
	}{
		{"validation", NewValidationError("bad input"), ErrorTypeValidation, http.StatusBadRequest},
		{"not found", NewNotFoundError("graph"), ErrorTypeNotFound, http.StatusNotFound},
		{"conflict", NewConflictError("already there"), ErrorTypeConflict, http.StatusConflict},
		{"unauthorized", NewUnauthorizedError(""), ErrorTypeUnauthorized, http.StatusUnauthorized},
		{"forbidden", NewForbiddenError(""), ErrorTypeForbidden, http.StatusForbidden},
		{"internal", NewInternalError("broke"), ErrorTypeInternal, http.StatusInternalServerError},
		{"rate limit", NewRateLimitError(100, "minute"), ErrorTypeRateLimit, http.StatusTooManyRequests},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.errType, tt.err.Type)
			assert.Equal(t, tt.status, tt.err.HTTPStatus)
			assert.True(t, IsType(tt.err, tt.errType))
		})
	}
}

func TestAppError_CauseChain(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewDatabaseError("save", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "caused by")
}

func TestIsAppError_ThroughWrapping(t *testing.T) {
	err := fmt.Errorf("handler: %w", NewConflictError("duplicate node"))

	assert.True(t, IsAppError(err))
	assert.True(t, IsConflict(err))
	assert.False(t, IsNotFound(err))

	extracted := GetAppError(err)
	require.NotNil(t, extracted)
	assert.Equal(t, "duplicate node", extracted.Message)
}

func TestWrap(t *testing.T) {
	assert.NoError(t, Wrap(nil, "ignored"))

	// Wrapping an AppError keeps its type and status.
	wrapped := Wrap(NewNotFoundError("scenario"), "loading baseline")
	assert.True(t, IsNotFound(wrapped))
	assert.Contains(t, wrapped.Error(), "loading baseline")

	// Anything else becomes internal.
	plain := Wrap(errors.New("oops"), "background job")
	assert.True(t, IsInternal(plain))
}

func TestDomainError_SentinelsSurviveWrapping(t *testing.T) {
	err := fmt.Errorf("failed to add node: %w", ErrGraphNodeLimit)

	assert.ErrorIs(t, err, ErrGraphNodeLimit)
	assert.False(t, errors.Is(err, ErrNodeNotFound))
}

func TestDomainError_IsMatchesTypeAndCode(t *testing.T) {
	clone := NewDomainError(DomainNotFoundError, "NODE_NOT_FOUND", "different message text")
	assert.ErrorIs(t, clone, ErrNodeNotFound)

	otherCode := NewDomainError(DomainNotFoundError, "EDGE_NOT_FOUND", "x")
	assert.False(t, errors.Is(otherCode, ErrNodeNotFound))
}

func TestDomainError_StatusCodes(t *testing.T) {
	assert.Equal(t, 400, ErrNodeTitleRequired.StatusCode)
	assert.Equal(t, 404, ErrGraphNotFound.StatusCode)
	assert.Equal(t, 409, ErrConcurrentModification.StatusCode)
	assert.Equal(t, 422, ErrSelfReferentialEdge.StatusCode)
	assert.Equal(t, 403, ErrUserNotAuthorized.StatusCode)
	assert.Equal(t, 500, ErrTransactionFailed.StatusCode)
}

func TestDomainError_Retryable(t *testing.T) {
	assert.True(t, ErrConcurrentModification.Retryable)
	assert.True(t, ErrEventPublishFailed.Retryable)
	assert.False(t, ErrGraphNotFound.Retryable)
}

func TestValidationErrors(t *testing.T) {
	v := NewValidationErrors()
	assert.False(t, v.HasErrors())

	v.Add("name", "name is required")
	v.Add("name", "name is too long")
	v.Add("weight", "weight must be between 0 and 1")

	assert.True(t, v.HasErrors())
	assert.Contains(t, v.Error(), "name is required")

	byField := v.ToMap()
	assert.Len(t, byField["name"], 2)
	assert.Len(t, byField["weight"], 1)
}

func TestValidationErrors_UnnamedFieldGroupsAsGeneral(t *testing.T) {
	v := NewValidationErrors()
	v.AddError(NewDomainError(DomainValidationError, "BAD_SHAPE", "payload is not an object"))

	byField := v.ToMap()
	assert.Len(t, byField["general"], 1)
}
