package permission

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/internal/repository/memory"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

const (
	requester      = "req@example.com"
	otherRequester = "other-req@example.com"
	helper         = "helper@example.com"
	otherHelper    = "other-helper@example.com"
	admin          = "admin@example.com"
	inactiveAdmin  = "retired@example.com"
)

type fixture struct {
	engine  *Engine
	tickets *memory.TicketStore
	owned   int64
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := memory.NewUserDirectory(
		domain.User{Identity: requester, Role: domain.RoleRequester, Active: true},
		domain.User{Identity: otherRequester, Role: domain.RoleRequester, Active: true},
		domain.User{Identity: helper, Role: domain.RoleHelper, Active: true},
		domain.User{Identity: otherHelper, Role: domain.RoleHelper, Active: true},
		domain.User{Identity: admin, Role: domain.RoleAdmin, Active: true},
		domain.User{Identity: inactiveAdmin, Role: domain.RoleAdmin, Active: false},
	)
	store := memory.NewTicketStore()
	createdBy, assignedTo := requester, helper
	ticket := &domain.Ticket{
		Title:      "cannot log in",
		Priority:   domain.TicketPriorityHigh,
		Status:     domain.TicketStatusOpen,
		CreatedBy:  &createdBy,
		AssignedTo: &assignedTo,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	require.NoError(t, store.InsertTicket(context.Background(), ticket))

	engine := NewEngine(EngineDependencies{Directory: dir, TicketStore: store})
	return fixture{engine: engine, tickets: store, owned: ticket.ID}
}

// expected mirrors the published decision table. owns is true when the actor
// created (requester) or is assigned (helper) the ticket.
func expected(role domain.Role, action Action, owns bool) bool {
	switch action {
	case ActionCreateTicket:
		return true
	case ActionViewTicket, ActionAddComment:
		return role == domain.RoleAdmin || owns
	case ActionUpdateTicket, ActionAddInternalComment:
		return role == domain.RoleAdmin || (role == domain.RoleHelper && owns)
	case ActionViewAllTickets, ActionDeleteTicket, ActionAssignTicket, ActionManageUsers:
		return role == domain.RoleAdmin
	case ActionViewInternalComments, ActionViewWorkload, ActionViewAnalytics:
		return role == domain.RoleAdmin || role == domain.RoleHelper
	}
	return false
}

func TestDecideMatchesDecisionTable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	actors := []struct {
		identity string
		role     domain.Role
		owns     bool
	}{
		{requester, domain.RoleRequester, true},
		{otherRequester, domain.RoleRequester, false},
		{helper, domain.RoleHelper, true},
		{otherHelper, domain.RoleHelper, false},
		{admin, domain.RoleAdmin, false},
	}

	for _, actor := range actors {
		for _, action := range Actions {
			t.Run(actor.identity+"/"+action.String(), func(t *testing.T) {
				decision, err := f.engine.Decide(ctx, actor.identity, Request{Action: action, TicketID: f.owned})
				require.NoError(t, err)
				assert.Equal(t, expected(actor.role, action, actor.owns), decision.Allowed)
				assert.Equal(t, string(actor.role), decision.Role)
			})
		}
	}
}

func TestDecideDeniesUnknownAndInactiveActors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, action := range Actions {
		decision, err := f.engine.Decide(ctx, "ghost@example.com", Request{Action: action, TicketID: f.owned})
		require.NoError(t, err)
		assert.False(t, decision.Allowed, action.String())
		assert.Equal(t, roleUnknown, decision.Role)

		decision, err = f.engine.Decide(ctx, inactiveAdmin, Request{Action: action, TicketID: f.owned})
		require.NoError(t, err)
		assert.False(t, decision.Allowed, action.String())
	}
}

func TestDecideDeniesMissingTicketWithoutLeakingExistence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	missing, err := f.engine.Decide(ctx, admin, Request{Action: ActionViewTicket, TicketID: 404})
	require.NoError(t, err)
	assert.False(t, missing.Allowed)

	missing, err = f.engine.Decide(ctx, otherRequester, Request{Action: ActionViewTicket, TicketID: 404})
	require.NoError(t, err)
	notMine, err := f.engine.Decide(ctx, otherRequester, Request{Action: ActionViewTicket, TicketID: f.owned})
	require.NoError(t, err)
	assert.Equal(t, notMine, missing)

	missing, err = f.engine.Decide(ctx, requester, Request{Action: ActionUpdateTicket, TicketID: 404})
	require.NoError(t, err)
	existing, err := f.engine.Decide(ctx, requester, Request{Action: ActionUpdateTicket, TicketID: f.owned})
	require.NoError(t, err)
	assert.Equal(t, existing, missing)
}

func TestAuthorizeReturnsPermissionDenied(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.engine.Authorize(ctx, otherRequester, Request{Action: ActionViewTicket, TicketID: f.owned})
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.CodePermissionDenied))

	role, _ := apperrors.DeniedRole(err)
	action, _ := apperrors.DeniedAction(err)
	assert.Equal(t, "requester", role)
	assert.Equal(t, "view_ticket", action)

	assert.NoError(t, f.engine.Authorize(ctx, requester, Request{Action: ActionViewTicket, TicketID: f.owned}))
}

type failingDirectory struct{}

func (failingDirectory) FindByIdentity(context.Context, string) (*domain.User, error) {
	return nil, errors.New("connection reset")
}

func (failingDirectory) ListActive(context.Context, domain.Role) ([]domain.User, error) {
	return nil, errors.New("connection reset")
}

func TestDecideSurfacesDirectoryFailure(t *testing.T) {
	engine := NewEngine(EngineDependencies{Directory: failingDirectory{}, TicketStore: memory.NewTicketStore()})

	_, err := engine.Decide(context.Background(), admin, Request{Action: ActionViewAllTickets})
	require.Error(t, err)
	assert.True(t, apperrors.IsRetryable(err))

	_, err = engine.ScopeFilter(context.Background(), admin)
	assert.True(t, apperrors.IsKind(err, apperrors.CodeStoreUnavailable))
}

func TestScopeFilter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	adminScope, err := f.engine.ScopeFilter(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, repository.TicketFilter{}, adminScope)

	helperScope, err := f.engine.ScopeFilter(ctx, helper)
	require.NoError(t, err)
	require.NotNil(t, helperScope.AssignedTo)
	assert.Equal(t, helper, *helperScope.AssignedTo)
	assert.Nil(t, helperScope.CreatedBy)

	requesterScope, err := f.engine.ScopeFilter(ctx, requester)
	require.NoError(t, err)
	require.NotNil(t, requesterScope.CreatedBy)
	assert.Equal(t, requester, *requesterScope.CreatedBy)

	for _, identity := range []string{"ghost@example.com", inactiveAdmin} {
		scope, err := f.engine.ScopeFilter(ctx, identity)
		require.NoError(t, err)
		assert.True(t, scope.MatchNone)
	}
}

func TestScopeFilterIsIdempotentAndComposes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, identity := range []string{admin, helper, requester, "ghost@example.com"} {
		first, err := f.engine.ScopeFilter(ctx, identity)
		require.NoError(t, err)
		second, err := f.engine.ScopeFilter(ctx, identity)
		require.NoError(t, err)
		assert.Equal(t, first, second)
		assert.Equal(t, first, first.And(second))
	}

	scope, _ := f.engine.ScopeFilter(ctx, admin)
	status := domain.TicketStatusOpen
	combined := scope.And(repository.TicketFilter{Status: &status})
	assert.Equal(t, repository.TicketFilter{Status: &status}, combined)

	visible, err := f.tickets.FetchAll(ctx, combined)
	require.NoError(t, err)
	assert.Len(t, visible, 1)

	otherScope, _ := f.engine.ScopeFilter(ctx, otherRequester)
	visible, err = f.tickets.FetchAll(ctx, otherScope.And(repository.TicketFilter{Status: &status}))
	require.NoError(t, err)
	assert.Empty(t, visible)
}

func TestActionStringsAreUnique(t *testing.T) {
	seen := map[string]bool{}
	for _, action := range Actions {
		name := action.String()
		assert.NotEqual(t, "unknown_action", name)
		assert.False(t, seen[name], name)
		seen[name] = true
	}
	assert.Equal(t, "unknown_action", Action(0).String())
	assert.False(t, Evaluate(&domain.User{Role: domain.RoleAdmin, Active: true}, Action(99), nil).Allowed)
}
