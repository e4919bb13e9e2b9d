package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk/internal/domain"
)

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (identity, name, role, active)
        VALUES ($1, $2, $3, $4)
        RETURNING created_at`

	user.Identity = domain.NormalizeIdentity(user.Identity)
	err := r.pool.QueryRow(ctx, query,
		user.Identity,
		user.Name,
		user.Role,
		user.Active,
	).Scan(&user.CreatedAt)
	return mapPgError(err)
}

func (r *userRepository) UpdateAccess(ctx context.Context, identity string, role domain.Role, active bool) error {
	const query = `UPDATE users SET role=$1, active=$2 WHERE identity=$3`

	cmd, err := r.pool.Exec(ctx, query, role, active, domain.NormalizeIdentity(identity))
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userRepository) FindByIdentity(ctx context.Context, identity string) (*domain.User, error) {
	const query = `
        SELECT identity, name, role, active, created_at
        FROM users WHERE identity=$1`

	var user domain.User
	if err := r.pool.QueryRow(ctx, query, domain.NormalizeIdentity(identity)).Scan(
		&user.Identity,
		&user.Name,
		&user.Role,
		&user.Active,
		&user.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) ListActive(ctx context.Context, role domain.Role) ([]domain.User, error) {
	active := true
	return r.list(ctx, &role, &active)
}

func (r *userRepository) List(ctx context.Context, role *domain.Role) ([]domain.User, error) {
	return r.list(ctx, role, nil)
}

func (r *userRepository) list(ctx context.Context, role *domain.Role, active *bool) ([]domain.User, error) {
	query := `SELECT identity, name, role, active, created_at FROM users WHERE 1=1`
	args := []any{}
	if role != nil {
		args = append(args, *role)
		query += fmt.Sprintf(" AND role=$%d", len(args))
	}
	if active != nil {
		args = append(args, *active)
		query += fmt.Sprintf(" AND active=$%d", len(args))
	}
	query += " ORDER BY identity ASC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.User{}
	for rows.Next() {
		var user domain.User
		if err := rows.Scan(
			&user.Identity,
			&user.Name,
			&user.Role,
			&user.Active,
			&user.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, user)
	}
	return result, rows.Err()
}
