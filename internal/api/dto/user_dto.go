package dto

import (
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// CreateUserRequest payload.
type CreateUserRequest struct {
	Identity string `json:"identity" validate:"required,max=320"`
	Name     string `json:"name" validate:"required,max=200"`
	Role     string `json:"role" validate:"required,oneof=requester helper admin"`
}

// UpdateUserRequest payload.
type UpdateUserRequest struct {
	Role   string `json:"role" validate:"required,oneof=requester helper admin"`
	Active *bool  `json:"active" validate:"required"`
}

// UserResponse represents a directory entry.
type UserResponse struct {
	Identity  string      `json:"identity"`
	Name      string      `json:"name"`
	Role      domain.Role `json:"role"`
	Active    bool        `json:"active"`
	CreatedAt time.Time   `json:"created_at"`
}

// NewUserResponses maps users.
func NewUserResponses(users []domain.User) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, UserResponse{
			Identity:  u.Identity,
			Name:      u.Name,
			Role:      u.Role,
			Active:    u.Active,
			CreatedAt: u.CreatedAt,
		})
	}
	return out
}
