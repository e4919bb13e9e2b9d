package handlers

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// UsersHandler manages the user directory. Routes are guarded by manage_users.
type UsersHandler struct {
	users repository.UserRepository
}

// NewUsersHandler constructs handler.
func NewUsersHandler(users repository.UserRepository) *UsersHandler {
	return &UsersHandler{users: users}
}

// List GET /users?role=helper.
func (h *UsersHandler) List(c *fiber.Ctx) error {
	var role *domain.Role
	if raw := c.Query("role"); raw != "" {
		r := domain.Role(raw)
		if !r.Valid() {
			return apperrors.NewValidationError("unknown role", map[string]any{"role": raw})
		}
		role = &r
	}
	users, err := h.users.List(c.UserContext(), role)
	if err != nil {
		return apperrors.NewStoreUnavailable("directory unavailable", err)
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponses(users)})
}

// Create POST /users.
func (h *UsersHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateUserRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	ctx := c.UserContext()
	identity := domain.NormalizeIdentity(req.Identity)
	if _, err := h.users.FindByIdentity(ctx, identity); err == nil {
		return apperrors.NewValidationError("user already exists", map[string]any{"identity": identity})
	} else if !errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewStoreUnavailable("directory unavailable", err)
	}

	user := &domain.User{
		Identity: identity,
		Name:     req.Name,
		Role:     domain.Role(req.Role),
		Active:   true,
	}
	if err := h.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return apperrors.NewValidationError("user already exists", map[string]any{"identity": identity})
		}
		return apperrors.NewStoreUnavailable("directory unavailable", err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewUserResponses([]domain.User{*user})[0]})
}

// Update PATCH /users/:identity changes role and active flag.
func (h *UsersHandler) Update(c *fiber.Ctx) error {
	var req dto.UpdateUserRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	ctx := c.UserContext()
	identity := domain.NormalizeIdentity(c.Params("identity"))
	err := h.users.UpdateAccess(ctx, identity, domain.Role(req.Role), *req.Active)
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound("user", map[string]any{"identity": identity})
	}
	if err != nil {
		return apperrors.NewStoreUnavailable("directory unavailable", err)
	}
	user, err := h.users.FindByIdentity(ctx, identity)
	if err != nil {
		return apperrors.NewStoreUnavailable("directory unavailable", err)
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponses([]domain.User{*user})[0]})
}
