package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
)

// UserDirectory is a map-backed UserRepository.
type UserDirectory struct {
	mu    sync.RWMutex
	users map[string]domain.User
}

// NewUserDirectory seeds the directory with the given users.
func NewUserDirectory(users ...domain.User) *UserDirectory {
	d := &UserDirectory{users: make(map[string]domain.User, len(users))}
	for _, u := range users {
		u.Identity = domain.NormalizeIdentity(u.Identity)
		if u.CreatedAt.IsZero() {
			u.CreatedAt = time.Now()
		}
		d.users[u.Identity] = u
	}
	return d
}

var _ repository.UserRepository = (*UserDirectory)(nil)

func (d *UserDirectory) Create(_ context.Context, user *domain.User) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	user.Identity = domain.NormalizeIdentity(user.Identity)
	if _, exists := d.users[user.Identity]; exists {
		return fmt.Errorf("%w: user %q", repository.ErrDuplicate, user.Identity)
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	d.users[user.Identity] = *user
	return nil
}

func (d *UserDirectory) UpdateAccess(_ context.Context, identity string, role domain.Role, active bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	key := domain.NormalizeIdentity(identity)
	user, ok := d.users[key]
	if !ok {
		return repository.ErrNotFound
	}
	user.Role = role
	user.Active = active
	d.users[key] = user
	return nil
}

func (d *UserDirectory) FindByIdentity(_ context.Context, identity string) (*domain.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	user, ok := d.users[domain.NormalizeIdentity(identity)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &user, nil
}

func (d *UserDirectory) ListActive(_ context.Context, role domain.Role) ([]domain.User, error) {
	return d.list(func(u domain.User) bool { return u.Active && u.Role == role }), nil
}

func (d *UserDirectory) List(_ context.Context, role *domain.Role) ([]domain.User, error) {
	return d.list(func(u domain.User) bool { return role == nil || u.Role == *role }), nil
}

func (d *UserDirectory) list(keep func(domain.User) bool) []domain.User {
	d.mu.RLock()
	defer d.mu.RUnlock()

	result := []domain.User{}
	for _, u := range d.users {
		if keep(u) {
			result = append(result, u)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Identity < result[j].Identity })
	return result
}
