package auth

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/permission"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// Authorizer is the permission check the route guards consult.
type Authorizer interface {
	Authorize(ctx context.Context, actor string, req permission.Request) error
}

// RequirePermission guards routes whose action does not depend on a ticket.
// Ticket-scoped actions are checked by the handlers once the id is parsed.
func RequirePermission(authorizer Authorizer, action permission.Action) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, ok := ActorFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if err := authorizer.Authorize(c.UserContext(), actor, permission.Request{Action: action}); err != nil {
			return err
		}
		return c.Next()
	}
}
