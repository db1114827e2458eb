package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"asset-wallet/internal/infra/pgutils"
	"asset-wallet/internal/repos/users"
)

var _ users.Users = (*usersRepo)(nil)

type usersRepo struct{ db *sql.DB }

func New(db *sql.DB) *usersRepo {
	return &usersRepo{db: db}
}

func (r *usersRepo) Create(ctx context.Context, name, email string) (*users.User, error) {
	var u users.User

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO users (name, email)
		VALUES ($1, $2)
		RETURNING id, name, email, created_at
	`, name, email).Scan(&u.ID, &u.Name, &u.Email, &u.CreatedAt)
	if err != nil {
		if pgutils.IsUniqueViolation(err) {
			return nil, users.ErrEmailTaken
		}

		return nil, fmt.Errorf("insert user: %w", err)
	}

	return &u, nil
}

func (r *usersRepo) GetByID(ctx context.Context, id uint64) (*users.User, error) {
	return r.getOne(ctx, `
		SELECT id, name, email, created_at
		FROM users
		WHERE id = $1
	`, id)
}

func (r *usersRepo) GetByEmail(ctx context.Context, email string) (*users.User, error) {
	return r.getOne(ctx, `
		SELECT id, name, email, created_at
		FROM users
		WHERE email = $1
	`, email)
}

func (r *usersRepo) getOne(ctx context.Context, query string, arg any) (*users.User, error) {
	var u users.User

	err := r.db.QueryRowContext(ctx, query, arg).Scan(&u.ID, &u.Name, &u.Email, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, users.ErrUserNotFound
		}

		return nil, fmt.Errorf("get user: %w", err)
	}

	return &u, nil
}

func (r *usersRepo) List(ctx context.Context) ([]users.User, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, email, created_at
		FROM users
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []users.User

	for rows.Next() {
		var u users.User

		err = rows.Scan(&u.ID, &u.Name, &u.Email, &u.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}

		out = append(out, u)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}

	return out, nil
}

func (r *usersRepo) LockShared(tx *sql.Tx, id uint64) error {
	var found uint64

	err := tx.QueryRow(`
		SELECT id
		FROM users
		WHERE id = $1
		FOR SHARE
	`, id).Scan(&found)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return users.ErrUserNotFound
		}

		return fmt.Errorf("lock user: %w", err)
	}

	return nil
}
