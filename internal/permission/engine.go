package permission

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

const (
	roleUnknown = "unknown"

	reasonUnresolvedActor    = "unknown or inactive actor"
	reasonTicketInaccessible = "ticket not accessible"
	reasonRoleNotPermitted   = "action not permitted for role"
)

// Request describes what the actor wants to do. TicketID is only read for
// ticket-scoped actions.
type Request struct {
	Action   Action
	TicketID int64
}

// Decision is the outcome of a permission check.
type Decision struct {
	Allowed bool
	Role    string
	Reason  string
}

// Engine answers access-control questions for every role, action and ticket.
type Engine struct {
	directory repository.Directory
	tickets   repository.TicketStore
	logger    *zap.Logger
}

// EngineDependencies bundles collaborators for the engine.
type EngineDependencies struct {
	Directory   repository.Directory
	TicketStore repository.TicketStore
	Logger      *zap.Logger
}

// NewEngine constructs the engine.
func NewEngine(deps EngineDependencies) *Engine {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{directory: deps.Directory, tickets: deps.TicketStore, logger: logger}
}

// Resolve returns the active user behind identity, or nil when the identity is
// unknown or inactive.
func (e *Engine) Resolve(ctx context.Context, identity string) (*domain.User, error) {
	user, err := e.directory.FindByIdentity(ctx, identity)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, apperrors.NewStoreUnavailable("directory unavailable", err)
	}
	if !user.Active {
		return nil, nil
	}
	return user, nil
}

// Decide evaluates req for actor. Lookup failures are returned as errors and
// never reported as a deny.
func (e *Engine) Decide(ctx context.Context, actor string, req Request) (Decision, error) {
	user, err := e.directory.FindByIdentity(ctx, actor)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return Decision{}, apperrors.NewStoreUnavailable("directory unavailable", err)
	}

	var ticket *domain.Ticket
	if user != nil && user.Active && req.Action.TicketScoped() {
		ticket, err = e.tickets.FetchTicket(ctx, req.TicketID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return Decision{}, apperrors.NewStoreUnavailable("ticket store unavailable", err)
		}
	}

	decision := Evaluate(user, req.Action, ticket)
	if !decision.Allowed {
		e.logger.Debug("permission denied",
			zap.String("actor", actor),
			zap.String("role", decision.Role),
			zap.String("action", req.Action.String()),
			zap.Int64("ticket_id", req.TicketID),
			zap.String("reason", decision.Reason))
	}
	return decision, nil
}

// Authorize is Decide folded into an error: nil when allowed, PermissionDenied
// carrying role and action otherwise.
func (e *Engine) Authorize(ctx context.Context, actor string, req Request) error {
	decision, err := e.Decide(ctx, actor, req)
	if err != nil {
		return err
	}
	if !decision.Allowed {
		return apperrors.NewPermissionDenied(decision.Role, req.Action.String(), decision.Reason)
	}
	return nil
}

// ScopeFilter returns the ticket predicate limiting listings to what actor may see.
func (e *Engine) ScopeFilter(ctx context.Context, actor string) (repository.TicketFilter, error) {
	user, err := e.Resolve(ctx, actor)
	if err != nil {
		return repository.MatchNothing(), err
	}
	return scopeFor(user), nil
}

func scopeFor(user *domain.User) repository.TicketFilter {
	if user == nil || !user.Active {
		return repository.MatchNothing()
	}
	identity := user.Identity
	switch user.Role {
	case domain.RoleAdmin:
		return repository.TicketFilter{}
	case domain.RoleHelper:
		return repository.TicketFilter{AssignedTo: &identity}
	case domain.RoleRequester:
		return repository.TicketFilter{CreatedBy: &identity}
	}
	return repository.MatchNothing()
}

// Evaluate is the pure decision table. For ticket-scoped actions a nil ticket
// is denied with the same reason as a ticket the actor does not own, so the
// outcome never reveals whether the ticket exists.
func Evaluate(user *domain.User, action Action, ticket *domain.Ticket) Decision {
	if user == nil {
		return deny(roleUnknown, reasonUnresolvedActor)
	}
	role := string(user.Role)
	if !user.Active {
		return deny(role, reasonUnresolvedActor)
	}

	switch action {
	case ActionCreateTicket:
		return allowIf(user.Role.Valid(), role, reasonRoleNotPermitted)

	case ActionViewTicket, ActionAddComment:
		switch user.Role {
		case domain.RoleAdmin:
			return allowIf(ticket != nil, role, reasonTicketInaccessible)
		case domain.RoleHelper:
			return allowIf(ticket.IsAssignedTo(user.Identity), role, reasonTicketInaccessible)
		case domain.RoleRequester:
			return allowIf(ticket.IsCreatedBy(user.Identity), role, reasonTicketInaccessible)
		}

	case ActionUpdateTicket, ActionAddInternalComment:
		switch user.Role {
		case domain.RoleAdmin:
			return allowIf(ticket != nil, role, reasonTicketInaccessible)
		case domain.RoleHelper:
			return allowIf(ticket.IsAssignedTo(user.Identity), role, reasonTicketInaccessible)
		}

	case ActionViewAllTickets, ActionDeleteTicket, ActionAssignTicket, ActionManageUsers:
		return allowIf(user.Role == domain.RoleAdmin, role, reasonRoleNotPermitted)

	case ActionViewInternalComments, ActionViewWorkload, ActionViewAnalytics:
		return allowIf(user.Role == domain.RoleAdmin || user.Role == domain.RoleHelper, role, reasonRoleNotPermitted)
	}
	return deny(role, reasonRoleNotPermitted)
}

func allow(role string) Decision {
	return Decision{Allowed: true, Role: role}
}

func deny(role, reason string) Decision {
	return Decision{Role: role, Reason: reason}
}

func allowIf(ok bool, role, reason string) Decision {
	if ok {
		return allow(role)
	}
	return deny(role, reason)
}
