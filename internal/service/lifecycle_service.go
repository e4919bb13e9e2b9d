package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

const bodyPreviewLength = 80

// LifecycleService owns ticket creation, status and assignment changes,
// comments and deletion.
type LifecycleService struct {
	tickets    repository.TicketStore
	directory  repository.Directory
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
	lock       *writeLock
}

// LifecycleDependencies bundles collaborators for the lifecycle service.
type LifecycleDependencies struct {
	TicketStore repository.TicketStore
	Directory   repository.Directory
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
	Clock       func() time.Time
	LockTimeout time.Duration
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title       string
	Description string
	Priority    domain.TicketPriority
	CreatedBy   *string
}

// TicketUpdateInput carries the optional fields of an update. Nil means unchanged.
type TicketUpdateInput struct {
	Status     *domain.TicketStatus
	AssignedTo *string
}

// CommentInput describes a new comment.
type CommentInput struct {
	TicketID int64
	Author   string
	Body     string
	Internal bool
}

// NewLifecycleService constructs the service.
func NewLifecycleService(deps LifecycleDependencies) *LifecycleService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) }
	}
	return &LifecycleService{
		tickets:    deps.TicketStore,
		directory:  deps.Directory,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		now:        clock,
		lock:       newWriteLock(deps.LockTimeout),
	}
}

// CreateTicket opens a new ticket and records its creation in history.
func (s *LifecycleService) CreateTicket(ctx context.Context, input TicketCreateInput) (*domain.Ticket, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewValidationError("title is required", map[string]any{"field": "title"})
	}
	if !input.Priority.Valid() {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{
			"field": "priority",
			"value": string(input.Priority),
		})
	}

	var createdBy *string
	if input.CreatedBy != nil {
		identity := domain.NormalizeIdentity(*input.CreatedBy)
		if err := s.requireActiveUser(ctx, identity); err != nil {
			return nil, err
		}
		createdBy = &identity
	}

	now := s.now()
	ticket := &domain.Ticket{
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		Priority:    input.Priority,
		Status:      domain.TicketStatusOpen,
		CreatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := s.mutate(ctx, func(ctx context.Context, tx repository.TicketStore) error {
		if err := tx.InsertTicket(ctx, ticket); err != nil {
			return err
		}
		return tx.AppendHistory(ctx, &domain.TicketHistory{
			TicketID:  ticket.ID,
			Field:     domain.FieldCreated,
			NewValue:  string(domain.TicketStatusOpen),
			ChangedBy: actorOf(createdBy),
			ChangedAt: now,
		})
	})
	if err != nil {
		return nil, storeError(err, 0)
	}

	s.logger.Info("ticket created",
		zap.Int64("ticket_id", ticket.ID),
		zap.String("actor", actorOf(createdBy)),
		zap.String("priority", string(ticket.Priority)))
	s.publish(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    actorOf(createdBy),
		Payload: events.TicketCreatedPayload{
			Title:     ticket.Title,
			Priority:  ticket.Priority,
			CreatedBy: ticket.CreatedBy,
		},
	})
	return ticket, nil
}

// UpdateTicket applies a status and/or assignee change. Each field that
// actually changes gets its own history entry. resolved_at and closed_at are
// stamped the first time the ticket enters Resolved or Closed and are never
// cleared afterwards.
func (s *LifecycleService) UpdateTicket(ctx context.Context, id int64, input TicketUpdateInput, changedBy string) (*domain.Ticket, error) {
	if input.Status != nil && !input.Status.Valid() {
		return nil, apperrors.NewValidationError("unknown status", map[string]any{
			"field": "status",
			"value": string(*input.Status),
		})
	}
	var assignee string
	if input.AssignedTo != nil {
		assignee = domain.NormalizeIdentity(*input.AssignedTo)
		if err := s.requireActiveHelper(ctx, assignee); err != nil {
			return nil, err
		}
	}
	changedBy = domain.NormalizeIdentity(changedBy)

	var (
		updated  *domain.Ticket
		outgoing []events.Event
	)
	err := s.mutate(ctx, func(ctx context.Context, tx repository.TicketStore) error {
		outgoing = outgoing[:0]
		current, err := tx.FetchTicket(ctx, id)
		if err != nil {
			return err
		}

		now := s.now()
		var (
			fields  repository.TicketFields
			entries []domain.TicketHistory
		)

		if input.Status != nil && *input.Status != current.Status {
			status := *input.Status
			old := string(current.Status)
			fields.Status = &status
			entries = append(entries, domain.TicketHistory{
				Field:    domain.FieldStatus,
				OldValue: &old,
				NewValue: string(status),
			})
			outgoing = append(outgoing, events.Event{
				Type: events.EventTicketStatusChanged,
				Payload: events.TicketStatusChangedPayload{
					OldStatus: current.Status,
					NewStatus: status,
				},
			})
		}

		if input.AssignedTo != nil && !current.IsAssignedTo(assignee) {
			fields.AssignedTo = &assignee
			entries = append(entries, domain.TicketHistory{
				Field:    domain.FieldAssignedTo,
				OldValue: current.AssignedTo,
				NewValue: assignee,
			})
			outgoing = append(outgoing, events.Event{
				Type: events.EventTicketAssigned,
				Payload: events.TicketAssignedPayload{
					OldAssignee: current.AssignedTo,
					NewAssignee: assignee,
				},
			})
		}

		// Timestamp stamping is guarded on the stored timestamps, not on
		// whether a status history entry was written above.
		if input.Status != nil {
			if *input.Status == domain.TicketStatusResolved && current.ResolvedAt == nil {
				fields.ResolvedAt = &now
			}
			if *input.Status == domain.TicketStatusClosed && current.ClosedAt == nil {
				fields.ClosedAt = &now
			}
		}

		if !fields.Empty() {
			if err := tx.ApplyTicketFields(ctx, id, fields, now); err != nil {
				return err
			}
		}
		for i := range entries {
			entry := entries[i]
			entry.TicketID = id
			entry.ChangedBy = changedBy
			entry.ChangedAt = now
			if err := tx.AppendHistory(ctx, &entry); err != nil {
				return err
			}
			s.logger.Info("ticket field changed",
				zap.Int64("ticket_id", id),
				zap.String("actor", changedBy),
				zap.String("field", string(entry.Field)),
				zap.String("new_value", entry.NewValue))
		}

		updated, err = tx.FetchTicket(ctx, id)
		return err
	})
	if err != nil {
		return nil, storeError(err, id)
	}

	for _, event := range outgoing {
		event.TicketID = id
		event.Actor = changedBy
		s.publish(ctx, event)
	}
	return updated, nil
}

// DeleteTicket removes a ticket with its comments and history. It reports
// false when the ticket did not exist.
func (s *LifecycleService) DeleteTicket(ctx context.Context, id int64, actor string) (bool, error) {
	var deleted bool
	err := s.mutate(ctx, func(ctx context.Context, tx repository.TicketStore) error {
		var err error
		deleted, err = tx.DeleteTicketCascade(ctx, id)
		return err
	})
	if err != nil {
		return false, storeError(err, id)
	}
	if deleted {
		actor = domain.NormalizeIdentity(actor)
		s.logger.Info("ticket deleted", zap.Int64("ticket_id", id), zap.String("actor", actor))
		s.publish(ctx, events.Event{Type: events.EventTicketDeleted, TicketID: id, Actor: actor})
	}
	return deleted, nil
}

// AddComment appends a comment to an existing ticket.
func (s *LifecycleService) AddComment(ctx context.Context, input CommentInput) (*domain.Comment, error) {
	body := strings.TrimSpace(input.Body)
	if body == "" {
		return nil, apperrors.NewValidationError("comment body is required", map[string]any{"field": "body"})
	}
	author := domain.NormalizeIdentity(input.Author)
	if author == "" {
		return nil, apperrors.NewValidationError("comment author is required", map[string]any{"field": "author"})
	}

	comment := &domain.Comment{
		TicketID:  input.TicketID,
		Author:    author,
		Body:      body,
		Internal:  input.Internal,
		CreatedAt: s.now(),
	}
	err := s.mutate(ctx, func(ctx context.Context, tx repository.TicketStore) error {
		if _, err := tx.FetchTicket(ctx, input.TicketID); err != nil {
			return err
		}
		return tx.InsertComment(ctx, comment)
	})
	if err != nil {
		return nil, storeError(err, input.TicketID)
	}

	s.logger.Debug("comment added",
		zap.Int64("ticket_id", comment.TicketID),
		zap.String("actor", author),
		zap.Bool("internal", comment.Internal))
	s.publish(ctx, events.Event{
		Type:     events.EventTicketCommentAdded,
		TicketID: comment.TicketID,
		Actor:    author,
		Payload: events.TicketCommentAddedPayload{
			CommentID:   comment.ID,
			Author:      author,
			Internal:    comment.Internal,
			BodyPreview: preview(body),
		},
	})
	return comment, nil
}

// GetTicket returns a ticket by id.
func (s *LifecycleService) GetTicket(ctx context.Context, id int64) (*domain.Ticket, error) {
	ticket, err := s.tickets.FetchTicket(ctx, id)
	if err != nil {
		return nil, storeError(err, id)
	}
	return ticket, nil
}

// ListTickets returns tickets matching filter ordered by id.
func (s *LifecycleService) ListTickets(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	tickets, err := s.tickets.FetchAll(ctx, filter)
	if err != nil {
		return nil, storeError(err, 0)
	}
	return tickets, nil
}

// ListComments returns the comments of a ticket, internal ones only on request.
func (s *LifecycleService) ListComments(ctx context.Context, ticketID int64, includeInternal bool) ([]domain.Comment, error) {
	if _, err := s.tickets.FetchTicket(ctx, ticketID); err != nil {
		return nil, storeError(err, ticketID)
	}
	comments, err := s.tickets.FetchComments(ctx, ticketID, includeInternal)
	if err != nil {
		return nil, storeError(err, ticketID)
	}
	return comments, nil
}

// ListHistory returns the audit trail of a ticket in insertion order.
func (s *LifecycleService) ListHistory(ctx context.Context, ticketID int64) ([]domain.TicketHistory, error) {
	if _, err := s.tickets.FetchTicket(ctx, ticketID); err != nil {
		return nil, storeError(err, ticketID)
	}
	history, err := s.tickets.ListHistory(ctx, ticketID)
	if err != nil {
		return nil, storeError(err, ticketID)
	}
	return history, nil
}

// mutate runs fn in one store transaction while holding the write lock.
func (s *LifecycleService) mutate(ctx context.Context, fn func(ctx context.Context, tx repository.TicketStore) error) error {
	release, err := s.lock.acquire(ctx)
	if err != nil {
		s.logger.Warn("write lock not acquired", zap.Error(err))
		return err
	}
	defer release()
	return s.tickets.WithinTx(ctx, fn)
}

func (s *LifecycleService) requireActiveHelper(ctx context.Context, identity string) error {
	details := map[string]any{"field": "assigned_to", "value": identity}
	user, err := s.directory.FindByIdentity(ctx, identity)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NewValidationError("assignee is not a known user", details)
		}
		return apperrors.NewStoreUnavailable("directory unavailable", err)
	}
	if !user.Active || user.Role != domain.RoleHelper {
		return apperrors.NewValidationError("assignee must be an active helper", details)
	}
	return nil
}

func (s *LifecycleService) requireActiveUser(ctx context.Context, identity string) error {
	details := map[string]any{"field": "created_by", "value": identity}
	user, err := s.directory.FindByIdentity(ctx, identity)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NewValidationError("creator is not a known user", details)
		}
		return apperrors.NewStoreUnavailable("directory unavailable", err)
	}
	if !user.Active {
		return apperrors.NewValidationError("creator must be an active user", details)
	}
	return nil
}

func (s *LifecycleService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	event.ID = uuid.NewString()
	event.Timestamp = s.now()
	_ = s.dispatcher.Publish(ctx, event)
}

// storeError maps store failures onto the domain taxonomy. Domain errors pass
// through unchanged.
func storeError(err error, ticketID int64) error {
	var domainErr *apperrors.DomainError
	switch {
	case errors.As(err, &domainErr):
		return domainErr
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
	case errors.Is(err, repository.ErrInvalidReference), errors.Is(err, repository.ErrDuplicate):
		return apperrors.NewValidationError("ticket references an unknown record", map[string]any{"ticket_id": ticketID})
	default:
		return apperrors.NewStoreUnavailable("ticket store unavailable", err)
	}
}

func actorOf(identity *string) string {
	if identity == nil {
		return "anonymous"
	}
	return *identity
}

func preview(body string) string {
	runes := []rune(body)
	if len(runes) <= bodyPreviewLength {
		return body
	}
	return string(runes[:bodyPreviewLength]) + "…"
}
