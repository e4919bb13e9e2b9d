package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/permission"
	"github.com/spec-kit/helpdesk/internal/service"
)

// WorkloadHandler exposes assignment and workload endpoints. Route guards
// enforce assign_ticket or view_workload before these run.
type WorkloadHandler struct {
	engine   *permission.Engine
	workload *service.WorkloadService
}

// NewWorkloadHandler constructs handler.
func NewWorkloadHandler(engine *permission.Engine, workload *service.WorkloadService) *WorkloadHandler {
	return &WorkloadHandler{engine: engine, workload: workload}
}

// AssignTicket POST /tickets/:id/assign.
func (h *WorkloadHandler) AssignTicket(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	id, err := ticketIDParam(c)
	if err != nil {
		return err
	}
	var req dto.AssignTicketRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	ticket, err := h.workload.AssignTicket(c.UserContext(), id, req.Assignee, actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// AutoAssign POST /tickets/:id/auto-assign. A saturated staff is reported as
// assigned=false, not as an error.
func (h *WorkloadHandler) AutoAssign(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	id, err := ticketIDParam(c)
	if err != nil {
		return err
	}
	helper, assigned, err := h.workload.AutoAssign(c.UserContext(), id, actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.AutoAssignResponse{Assigned: assigned, Helper: helper}})
}

// Balance POST /staff/balance.
func (h *WorkloadHandler) Balance(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	result, err := h.workload.BalanceWorkload(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.BalanceResponse{Reassigned: result.Reassigned, AverageLoad: result.AverageLoad}})
}

// Workload GET /staff/workload. Helpers only see their own row.
func (h *WorkloadHandler) Workload(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	ctx := c.UserContext()
	user, err := h.engine.Resolve(ctx, actor)
	if err != nil {
		return err
	}
	staff, err := h.workload.AvailableStaff(ctx)
	if err != nil {
		return err
	}
	if user == nil || user.Role != domain.RoleAdmin {
		own := staff[:0:0]
		for _, s := range staff {
			if s.Helper == actor {
				own = append(own, s)
			}
		}
		staff = own
	}
	return c.JSON(fiber.Map{"data": dto.NewStaffLoadResponses(staff)})
}
