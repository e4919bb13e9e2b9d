package util

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPermissionDeniedCarriesRoleAndAction(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", NewPermissionDenied("requester", "view_ticket", "not the creator"))

	assert.True(t, IsKind(err, CodePermissionDenied))
	assert.False(t, IsRetryable(err))

	role, ok := DeniedRole(err)
	assert.True(t, ok)
	assert.Equal(t, "requester", role)

	action, ok := DeniedAction(err)
	assert.True(t, ok)
	assert.Equal(t, "view_ticket", action)

	assert.Equal(t, http.StatusForbidden, ToDomainError(err).HTTPStatus)
}

func TestStoreUnavailableIsRetryable(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewStoreUnavailable("ticket store unavailable", cause)

	assert.True(t, IsRetryable(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, http.StatusServiceUnavailable, ToDomainError(err).HTTPStatus)
}

func TestToDomainErrorFallsBackToInternal(t *testing.T) {
	de := ToDomainError(errors.New("boom"))
	assert.Equal(t, CodeInternal, de.Code)
	assert.Equal(t, http.StatusInternalServerError, de.HTTPStatus)
	assert.Nil(t, ToDomainError(nil))

	_, ok := DeniedRole(NewNotFound("ticket", nil))
	assert.False(t, ok)
}
