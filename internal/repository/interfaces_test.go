package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/helpdesk/internal/domain"
)

func strPtr(s string) *string { return &s }

func statusPtr(s domain.TicketStatus) *domain.TicketStatus { return &s }

func TestTicketFilterAndKeepsEqualConditionsOnce(t *testing.T) {
	scope := TicketFilter{AssignedTo: strPtr("h@example.com")}

	combined := scope.And(scope)
	assert.Equal(t, scope, combined)

	withStatus := scope.And(TicketFilter{Status: statusPtr(domain.TicketStatusOpen)})
	assert.Equal(t, "h@example.com", *withStatus.AssignedTo)
	assert.Equal(t, domain.TicketStatusOpen, *withStatus.Status)
	assert.Equal(t, withStatus, withStatus.And(scope))
}

func TestTicketFilterAndConflictMatchesNothing(t *testing.T) {
	a := TicketFilter{CreatedBy: strPtr("a@example.com")}
	b := TicketFilter{CreatedBy: strPtr("b@example.com")}

	combined := a.And(b)
	assert.True(t, combined.MatchNone)

	ticket := &domain.Ticket{CreatedBy: strPtr("a@example.com")}
	assert.True(t, a.Matches(ticket))
	assert.False(t, combined.Matches(ticket))
	assert.True(t, MatchNothing().And(TicketFilter{}).MatchNone)
}

func TestTicketFilterMatches(t *testing.T) {
	ticket := &domain.Ticket{
		Status:     domain.TicketStatusOpen,
		Priority:   domain.TicketPriorityHigh,
		AssignedTo: strPtr("h@example.com"),
	}
	high := domain.TicketPriorityHigh
	low := domain.TicketPriorityLow

	assert.True(t, TicketFilter{}.Matches(ticket))
	assert.True(t, TicketFilter{Priority: &high, AssignedTo: strPtr("h@example.com")}.Matches(ticket))
	assert.False(t, TicketFilter{Priority: &low}.Matches(ticket))
	assert.False(t, TicketFilter{CreatedBy: strPtr("r@example.com")}.Matches(ticket))
}

func TestTicketFilterKeywords(t *testing.T) {
	ticket := &domain.Ticket{Title: "VPN timeout", Description: "Office network"}

	assert.True(t, TicketFilter{Keywords: []string{"vpn"}}.Matches(ticket))
	assert.True(t, TicketFilter{Keywords: []string{"NETWORK"}}.Matches(ticket))
	assert.False(t, TicketFilter{Keywords: []string{"printer"}}.Matches(ticket))
	assert.False(t, TicketFilter{Keywords: []string{"vpn", "printer"}}.Matches(ticket))

	scope := TicketFilter{CreatedBy: strPtr("r@example.com")}
	combined := scope.And(TicketFilter{Keywords: []string{"vpn"}}).And(TicketFilter{Keywords: []string{"vpn", "office"}})
	assert.Equal(t, []string{"vpn", "office"}, combined.Keywords)
	assert.Equal(t, "r@example.com", *combined.CreatedBy)
	assert.Nil(t, scope.And(scope).Keywords)
}
