package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// ErrNotFound is returned by stores when the requested record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrDuplicate is returned when a record with the same key already exists.
var ErrDuplicate = errors.New("record already exists")

// ErrInvalidReference is returned when a record points at a user or ticket
// that does not exist.
var ErrInvalidReference = errors.New("referenced record does not exist")

// Directory resolves identities to user records.
type Directory interface {
	FindByIdentity(ctx context.Context, identity string) (*domain.User, error)
	ListActive(ctx context.Context, role domain.Role) ([]domain.User, error)
}

// UserRepository is the administrative surface over the directory.
type UserRepository interface {
	Directory
	Create(ctx context.Context, user *domain.User) error
	List(ctx context.Context, role *domain.Role) ([]domain.User, error)
	UpdateAccess(ctx context.Context, identity string, role domain.Role, active bool) error
}

// TicketStore is the durable collection of tickets, comments and history entries.
type TicketStore interface {
	InsertTicket(ctx context.Context, ticket *domain.Ticket) error
	FetchTicket(ctx context.Context, id int64) (*domain.Ticket, error)
	FetchAll(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	ApplyTicketFields(ctx context.Context, id int64, fields TicketFields, now time.Time) error
	AppendHistory(ctx context.Context, entry *domain.TicketHistory) error
	ListHistory(ctx context.Context, ticketID int64) ([]domain.TicketHistory, error)
	DeleteTicketCascade(ctx context.Context, id int64) (bool, error)
	InsertComment(ctx context.Context, comment *domain.Comment) error
	FetchComments(ctx context.Context, ticketID int64, includeInternal bool) ([]domain.Comment, error)
	// WithinTx runs fn against a store whose writes commit together or not at all.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx TicketStore) error) error
}

// TicketFields is the set of mutable ticket columns. Nil fields are left untouched.
type TicketFields struct {
	Status     *domain.TicketStatus
	AssignedTo *string
	ResolvedAt *time.Time
	ClosedAt   *time.Time
}

// Empty reports whether no field is set.
func (f TicketFields) Empty() bool {
	return f.Status == nil && f.AssignedTo == nil && f.ResolvedAt == nil && f.ClosedAt == nil
}

// TicketFilter holds equality predicates combined with AND.
type TicketFilter struct {
	Status     *domain.TicketStatus
	Priority   *domain.TicketPriority
	AssignedTo *string
	CreatedBy  *string
	// Keywords must each appear, case-insensitively, in the title or description.
	Keywords []string
	// MatchNone makes the filter reject every ticket.
	MatchNone bool
}

// MatchNothing returns a filter that matches no ticket.
func MatchNothing() TicketFilter {
	return TicketFilter{MatchNone: true}
}

// And combines two filters. Equal conditions are kept once and conflicting
// conditions collapse to MatchNothing.
func (f TicketFilter) And(other TicketFilter) TicketFilter {
	if f.MatchNone || other.MatchNone {
		return MatchNothing()
	}
	var (
		out      TicketFilter
		conflict bool
	)
	out.Status, conflict = mergeEqual(f.Status, other.Status, conflict)
	out.Priority, conflict = mergeEqual(f.Priority, other.Priority, conflict)
	out.AssignedTo, conflict = mergeEqual(f.AssignedTo, other.AssignedTo, conflict)
	out.CreatedBy, conflict = mergeEqual(f.CreatedBy, other.CreatedBy, conflict)
	out.Keywords = mergeKeywords(f.Keywords, other.Keywords)
	if conflict {
		return MatchNothing()
	}
	return out
}

// Matches evaluates the filter against a ticket in memory.
func (f TicketFilter) Matches(t *domain.Ticket) bool {
	if f.MatchNone || t == nil {
		return false
	}
	if f.Status != nil && t.Status != *f.Status {
		return false
	}
	if f.Priority != nil && t.Priority != *f.Priority {
		return false
	}
	if f.AssignedTo != nil && !t.IsAssignedTo(*f.AssignedTo) {
		return false
	}
	if f.CreatedBy != nil && !t.IsCreatedBy(*f.CreatedBy) {
		return false
	}
	if len(f.Keywords) > 0 {
		title := strings.ToLower(t.Title)
		description := strings.ToLower(t.Description)
		for _, kw := range f.Keywords {
			kw = strings.ToLower(kw)
			if !strings.Contains(title, kw) && !strings.Contains(description, kw) {
				return false
			}
		}
	}
	return true
}

func mergeKeywords(a, b []string) []string {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	out := make([]string, 0, len(a)+len(b))
	seen := make(map[string]struct{}, len(a)+len(b))
	for _, kw := range append(append([]string{}, a...), b...) {
		if _, dup := seen[kw]; dup {
			continue
		}
		seen[kw] = struct{}{}
		out = append(out, kw)
	}
	return out
}

func mergeEqual[T comparable](a, b *T, conflict bool) (*T, bool) {
	switch {
	case a == nil && b == nil:
		return nil, conflict
	case a == nil:
		v := *b
		return &v, conflict
	case b == nil:
		v := *a
		return &v, conflict
	case *a != *b:
		return nil, true
	default:
		v := *a
		return &v, conflict
	}
}
