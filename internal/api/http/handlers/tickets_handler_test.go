package handlers

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/permission"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/internal/repository/memory"
	"github.com/spec-kit/helpdesk/internal/service"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// deactivatingDirectory reports the user as active on the first lookup only.
type deactivatingDirectory struct {
	*memory.UserDirectory
	mu    sync.Mutex
	calls int
}

func (d *deactivatingDirectory) FindByIdentity(ctx context.Context, identity string) (*domain.User, error) {
	user, err := d.UserDirectory.FindByIdentity(ctx, identity)
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	if d.calls > 1 {
		user.Active = false
	}
	return user, nil
}

func TestCreateTicketOnBehalfDeniesActorDeactivatedMidRequest(t *testing.T) {
	directory := &deactivatingDirectory{UserDirectory: memory.NewUserDirectory(
		domain.User{Identity: "eve@example.com", Role: domain.RoleAdmin, Active: true},
		domain.User{Identity: "zoe@example.com", Role: domain.RoleRequester, Active: true},
	)}
	store := memory.NewTicketStore()
	engine := permission.NewEngine(permission.EngineDependencies{Directory: directory, TicketStore: store})
	lifecycle := service.NewLifecycleService(service.LifecycleDependencies{TicketStore: store, Directory: directory})
	handler := NewTicketsHandler(engine, lifecycle)
	tokens := auth.NewTokenManager("secret", "", time.Hour)

	var handlerErr error
	app := fiber.New(fiber.Config{ErrorHandler: func(c *fiber.Ctx, err error) error {
		handlerErr = err
		return c.SendStatus(apperrors.ToDomainError(err).HTTPStatus)
	}})
	app.Post("/tickets", auth.NewAuthMiddleware(tokens).Handle, handler.CreateTicket)

	token, _, err := tokens.GenerateToken("eve@example.com")
	require.NoError(t, err)
	req := httptest.NewRequest(fiber.MethodPost, "/tickets", strings.NewReader(`{"title":"x","created_by":"zoe@example.com"}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	assert.True(t, apperrors.IsKind(handlerErr, apperrors.CodePermissionDenied))
	tickets, err := store.FetchAll(context.Background(), repository.TicketFilter{})
	require.NoError(t, err)
	assert.Empty(t, tickets)
}

func TestParseTicketQueryKeyword(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		filter, err := parseTicketQuery(c)
		if err != nil {
			return c.Status(apperrors.ToDomainError(err).HTTPStatus).SendString(err.Error())
		}
		return c.JSON(filter.Keywords)
	})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/?q=%20vpn%20", nil), -1)
	require.NoError(t, err)
	var keywords []string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&keywords))
	assert.Equal(t, []string{"vpn"}, keywords)

	resp, err = app.Test(httptest.NewRequest(fiber.MethodGet, "/?q="+strings.Repeat("a", maxSearchLength+1), nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
