package users

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	usersrepo "asset-wallet/internal/repos/users"
	pgusers "asset-wallet/internal/repos/users/postgres"
)

// Service owns user registration and lookup. The ledger engine only ever
// reads users; all mutation lives here.
type Service struct {
	repo usersrepo.Users
}

func New(db *sql.DB) *Service {
	return &Service{repo: pgusers.New(db)}
}

// Create registers a user. Names are trimmed and emails are normalized to
// lower case before the uniqueness check.
func (s *Service) Create(ctx context.Context, name, email string) (*usersrepo.User, error) {
	name = strings.TrimSpace(name)
	email = NormalizeEmail(email)

	u, err := s.repo.Create(ctx, name, email)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	return u, nil
}

func (s *Service) GetByID(ctx context.Context, id uint64) (*usersrepo.User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	return u, nil
}

func (s *Service) GetByEmail(ctx context.Context, email string) (*usersrepo.User, error) {
	u, err := s.repo.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}

	return u, nil
}

// List returns all users, newest first.
func (s *Service) List(ctx context.Context) ([]usersrepo.User, error) {
	us, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	return us, nil
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
