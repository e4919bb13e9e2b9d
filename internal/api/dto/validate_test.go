package dto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk/internal/domain"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

func TestValidateReportsJSONFieldNames(t *testing.T) {
	err := Validate(CreateTicketRequest{Priority: "Urgent"})
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.CodeValidation))

	details := apperrors.ToDomainError(err).Details
	assert.Contains(t, details, "title")
	assert.Contains(t, details, "priority")
}

func TestValidateStatusWithSpaces(t *testing.T) {
	inProgress := "In Progress"
	assert.NoError(t, Validate(UpdateTicketRequest{Status: &inProgress}))

	bogus := "Escalated"
	assert.Error(t, Validate(UpdateTicketRequest{Status: &bogus}))
	assert.NoError(t, Validate(UpdateTicketRequest{}))
}

func TestCreateTicketPriorityDefault(t *testing.T) {
	assert.Equal(t, domain.TicketPriorityMedium, CreateTicketRequest{}.PriorityOrDefault())
	assert.Equal(t, domain.TicketPriorityCritical, CreateTicketRequest{Priority: "Critical"}.PriorityOrDefault())
}

func TestUpdateUserRequiresActiveFlag(t *testing.T) {
	err := Validate(UpdateUserRequest{Role: "helper"})
	require.Error(t, err)
	assert.Contains(t, apperrors.ToDomainError(err).Details, "active")

	active := false
	assert.NoError(t, Validate(UpdateUserRequest{Role: "helper", Active: &active}))
}
