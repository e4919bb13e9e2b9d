package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/permission"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/internal/service"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// TicketsHandler exposes ticket, comment and history endpoints. Every call is
// checked against the permission engine before touching the lifecycle service.
type TicketsHandler struct {
	engine    *permission.Engine
	lifecycle *service.LifecycleService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(engine *permission.Engine, lifecycle *service.LifecycleService) *TicketsHandler {
	return &TicketsHandler{engine: engine, lifecycle: lifecycle}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	ctx := c.UserContext()
	if err := h.engine.Authorize(ctx, actor, permission.Request{Action: permission.ActionCreateTicket}); err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	createdBy := actor
	if req.CreatedBy != nil && domain.NormalizeIdentity(*req.CreatedBy) != actor {
		user, err := h.engine.Resolve(ctx, actor)
		if err != nil {
			return err
		}
		if user == nil {
			return apperrors.NewPermissionDenied("unknown", permission.ActionCreateTicket.String(), "actor is unknown or inactive")
		}
		if user.Role != domain.RoleAdmin {
			return apperrors.NewPermissionDenied(string(user.Role), permission.ActionCreateTicket.String(), "only administrators may file on behalf of another user")
		}
		createdBy = *req.CreatedBy
	}

	ticket, err := h.lifecycle.CreateTicket(ctx, service.TicketCreateInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.PriorityOrDefault(),
		CreatedBy:   &createdBy,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

const maxSearchLength = 200

// ListTickets GET /tickets. Results are limited to the actor's scope; query
// filters, including the q keyword search, narrow them further.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	ctx := c.UserContext()
	scope, err := h.engine.ScopeFilter(ctx, actor)
	if err != nil {
		return err
	}
	query, err := parseTicketQuery(c)
	if err != nil {
		return err
	}
	tickets, err := h.lifecycle.ListTickets(ctx, scope.And(query))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponses(tickets)})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	_, id, err := h.authorizeTicket(c, permission.ActionViewTicket)
	if err != nil {
		return err
	}
	ticket, err := h.lifecycle.GetTicket(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// UpdateTicket PATCH /tickets/:id. Changing the assignee additionally
// requires assign_ticket.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	actor, id, err := h.authorizeTicket(c, permission.ActionUpdateTicket)
	if err != nil {
		return err
	}
	var req dto.UpdateTicketRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	ctx := c.UserContext()
	if req.AssignedTo != nil {
		if err := h.engine.Authorize(ctx, actor, permission.Request{Action: permission.ActionAssignTicket}); err != nil {
			return err
		}
	}

	input := service.TicketUpdateInput{AssignedTo: req.AssignedTo}
	if req.Status != nil {
		status := domain.TicketStatus(*req.Status)
		input.Status = &status
	}
	ticket, err := h.lifecycle.UpdateTicket(ctx, id, input, actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// DeleteTicket DELETE /tickets/:id.
func (h *TicketsHandler) DeleteTicket(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	id, err := ticketIDParam(c)
	if err != nil {
		return err
	}
	ctx := c.UserContext()
	if err := h.engine.Authorize(ctx, actor, permission.Request{Action: permission.ActionDeleteTicket, TicketID: id}); err != nil {
		return err
	}
	deleted, err := h.lifecycle.DeleteTicket(ctx, id, actor)
	if err != nil {
		return err
	}
	if !deleted {
		return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": id})
	}
	return c.SendStatus(http.StatusNoContent)
}

// AddComment POST /tickets/:id/comments.
func (h *TicketsHandler) AddComment(c *fiber.Ctx) error {
	actor, id, err := h.authorizeTicket(c, permission.ActionAddComment)
	if err != nil {
		return err
	}
	var req dto.CreateCommentRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	ctx := c.UserContext()
	if req.Internal {
		if err := h.engine.Authorize(ctx, actor, permission.Request{Action: permission.ActionAddInternalComment, TicketID: id}); err != nil {
			return err
		}
	}
	comment, err := h.lifecycle.AddComment(ctx, service.CommentInput{
		TicketID: id,
		Author:   actor,
		Body:     req.Body,
		Internal: req.Internal,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewCommentResponse(comment)})
}

// ListComments GET /tickets/:id/comments. Internal comments are included only
// for actors allowed to see them.
func (h *TicketsHandler) ListComments(c *fiber.Ctx) error {
	actor, id, err := h.authorizeTicket(c, permission.ActionViewTicket)
	if err != nil {
		return err
	}
	ctx := c.UserContext()
	internal, err := h.engine.Decide(ctx, actor, permission.Request{Action: permission.ActionViewInternalComments})
	if err != nil {
		return err
	}
	comments, err := h.lifecycle.ListComments(ctx, id, internal.Allowed)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewCommentResponses(comments)})
}

// ListHistory GET /tickets/:id/history.
func (h *TicketsHandler) ListHistory(c *fiber.Ctx) error {
	_, id, err := h.authorizeTicket(c, permission.ActionViewTicket)
	if err != nil {
		return err
	}
	history, err := h.lifecycle.ListHistory(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewHistoryResponses(history)})
}

func (h *TicketsHandler) authorizeTicket(c *fiber.Ctx, action permission.Action) (string, int64, error) {
	actor, err := actorFrom(c)
	if err != nil {
		return "", 0, err
	}
	id, err := ticketIDParam(c)
	if err != nil {
		return "", 0, err
	}
	if err := h.engine.Authorize(c.UserContext(), actor, permission.Request{Action: action, TicketID: id}); err != nil {
		return "", 0, err
	}
	return actor, id, nil
}

func parseTicketQuery(c *fiber.Ctx) (repository.TicketFilter, error) {
	var filter repository.TicketFilter
	if raw := c.Query("status"); raw != "" {
		status := domain.TicketStatus(raw)
		if !status.Valid() {
			return filter, apperrors.NewValidationError("unknown status", map[string]any{"status": raw})
		}
		filter.Status = &status
	}
	if raw := c.Query("priority"); raw != "" {
		priority := domain.TicketPriority(raw)
		if !priority.Valid() {
			return filter, apperrors.NewValidationError("unknown priority", map[string]any{"priority": raw})
		}
		filter.Priority = &priority
	}
	if raw := c.Query("assigned_to"); raw != "" {
		assignee := domain.NormalizeIdentity(raw)
		filter.AssignedTo = &assignee
	}
	if raw := c.Query("created_by"); raw != "" {
		creator := domain.NormalizeIdentity(raw)
		filter.CreatedBy = &creator
	}
	if raw := strings.TrimSpace(c.Query("q")); raw != "" {
		if len(raw) > maxSearchLength {
			return filter, apperrors.NewValidationError("search term too long", map[string]any{"q": maxSearchLength})
		}
		filter.Keywords = []string{raw}
	}
	return filter, nil
}
