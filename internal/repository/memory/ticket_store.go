// Package memory provides map-backed implementations of the repository
// contracts. They are used when no Postgres DSN is configured and in tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
)

// TicketStore keeps tickets, comments and history in process memory.
type TicketStore struct {
	// txMu serializes writers so a transaction never loses a concurrent write.
	txMu sync.Mutex
	mu   sync.RWMutex

	tickets       map[int64]domain.Ticket
	comments      []domain.Comment
	history       []domain.TicketHistory
	nextTicketID  int64
	nextCommentID int64
	nextHistoryID int64
}

// NewTicketStore returns an empty store.
func NewTicketStore() *TicketStore {
	return &TicketStore{tickets: make(map[int64]domain.Ticket)}
}

var _ repository.TicketStore = (*TicketStore)(nil)

func (s *TicketStore) InsertTicket(_ context.Context, ticket *domain.Ticket) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextTicketID++
	ticket.ID = s.nextTicketID
	s.tickets[ticket.ID] = cloneTicket(*ticket)
	return nil
}

func (s *TicketStore) FetchTicket(_ context.Context, id int64) (*domain.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ticket, ok := s.tickets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := cloneTicket(ticket)
	return &out, nil
}

func (s *TicketStore) FetchAll(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []domain.Ticket{}
	if filter.MatchNone {
		return result, nil
	}
	for id := int64(1); id <= s.nextTicketID; id++ {
		ticket, ok := s.tickets[id]
		if !ok || !filter.Matches(&ticket) {
			continue
		}
		result = append(result, cloneTicket(ticket))
	}
	return result, nil
}

func (s *TicketStore) ApplyTicketFields(_ context.Context, id int64, fields repository.TicketFields, now time.Time) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()

	ticket, ok := s.tickets[id]
	if !ok {
		return repository.ErrNotFound
	}
	if fields.Status != nil {
		ticket.Status = *fields.Status
	}
	if fields.AssignedTo != nil {
		ticket.AssignedTo = copyString(fields.AssignedTo)
	}
	if fields.ResolvedAt != nil {
		ticket.ResolvedAt = copyTime(fields.ResolvedAt)
	}
	if fields.ClosedAt != nil {
		ticket.ClosedAt = copyTime(fields.ClosedAt)
	}
	ticket.UpdatedAt = now
	s.tickets[id] = ticket
	return nil
}

func (s *TicketStore) AppendHistory(_ context.Context, entry *domain.TicketHistory) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextHistoryID++
	entry.ID = s.nextHistoryID
	stored := *entry
	stored.OldValue = copyString(entry.OldValue)
	s.history = append(s.history, stored)
	return nil
}

func (s *TicketStore) ListHistory(_ context.Context, ticketID int64) ([]domain.TicketHistory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []domain.TicketHistory{}
	for _, entry := range s.history {
		if entry.TicketID == ticketID {
			entry.OldValue = copyString(entry.OldValue)
			result = append(result, entry)
		}
	}
	return result, nil
}

func (s *TicketStore) DeleteTicketCascade(_ context.Context, id int64) (bool, error) {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tickets[id]; !ok {
		return false, nil
	}
	delete(s.tickets, id)

	comments := s.comments[:0]
	for _, c := range s.comments {
		if c.TicketID != id {
			comments = append(comments, c)
		}
	}
	s.comments = comments

	history := s.history[:0]
	for _, h := range s.history {
		if h.TicketID != id {
			history = append(history, h)
		}
	}
	s.history = history
	return true, nil
}

func (s *TicketStore) InsertComment(_ context.Context, comment *domain.Comment) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tickets[comment.TicketID]; !ok {
		return repository.ErrNotFound
	}
	s.nextCommentID++
	comment.ID = s.nextCommentID
	s.comments = append(s.comments, *comment)
	return nil
}

func (s *TicketStore) FetchComments(_ context.Context, ticketID int64, includeInternal bool) ([]domain.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []domain.Comment{}
	for _, c := range s.comments {
		if c.TicketID != ticketID {
			continue
		}
		if c.Internal && !includeInternal {
			continue
		}
		result = append(result, c)
	}
	return result, nil
}

// WithinTx runs fn against a private copy of the store and publishes the copy
// only when fn succeeds.
func (s *TicketStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.TicketStore) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	draft := s.cloneLocked()
	s.mu.RUnlock()

	if err := fn(ctx, draft); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tickets = draft.tickets
	s.comments = draft.comments
	s.history = draft.history
	s.nextTicketID = draft.nextTicketID
	s.nextCommentID = draft.nextCommentID
	s.nextHistoryID = draft.nextHistoryID
	return nil
}

func (s *TicketStore) cloneLocked() *TicketStore {
	draft := &TicketStore{
		tickets:       make(map[int64]domain.Ticket, len(s.tickets)),
		comments:      append([]domain.Comment(nil), s.comments...),
		history:       append([]domain.TicketHistory(nil), s.history...),
		nextTicketID:  s.nextTicketID,
		nextCommentID: s.nextCommentID,
		nextHistoryID: s.nextHistoryID,
	}
	for id, ticket := range s.tickets {
		draft.tickets[id] = ticket
	}
	return draft
}

func cloneTicket(t domain.Ticket) domain.Ticket {
	t.AssignedTo = copyString(t.AssignedTo)
	t.CreatedBy = copyString(t.CreatedBy)
	t.ResolvedAt = copyTime(t.ResolvedAt)
	t.ClosedAt = copyTime(t.ClosedAt)
	return t
}

func copyString(v *string) *string {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}

func copyTime(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}
