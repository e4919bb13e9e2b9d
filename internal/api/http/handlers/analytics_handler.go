package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/permission"
	"github.com/spec-kit/helpdesk/internal/service"
)

const defaultTrendDays = 7

// AnalyticsHandler serves ticket statistics within the actor's scope.
type AnalyticsHandler struct {
	engine    *permission.Engine
	analytics *service.AnalyticsService
}

// NewAnalyticsHandler constructs handler.
func NewAnalyticsHandler(engine *permission.Engine, analytics *service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{engine: engine, analytics: analytics}
}

// Stats GET /analytics/stats?days=N.
func (h *AnalyticsHandler) Stats(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	ctx := c.UserContext()
	scope, err := h.engine.ScopeFilter(ctx, actor)
	if err != nil {
		return err
	}
	stats, err := h.analytics.Stats(ctx, scope)
	if err != nil {
		return err
	}
	trend, err := h.analytics.CreationTrend(ctx, scope, parseInt(c.Query("days"), defaultTrendDays))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewStatsResponse(stats, trend)})
}
