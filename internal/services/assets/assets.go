package assets

import (
	"context"
	"database/sql"
	"fmt"

	assetsrepo "asset-wallet/internal/repos/assets"
	pgassets "asset-wallet/internal/repos/assets/postgres"
)

// Service owns asset-type management. Only ACTIVE assets accept
// transactions; the ledger engine treats everything else as frozen.
type Service struct {
	repo assetsrepo.Assets
}

func New(db *sql.DB) *Service {
	return &Service{repo: pgassets.New(db)}
}

func (s *Service) Create(ctx context.Context, name, description string, status assetsrepo.Status) (*assetsrepo.Asset, error) {
	a, err := s.repo.Create(ctx, name, description, status)
	if err != nil {
		return nil, fmt.Errorf("create asset: %w", err)
	}

	return a, nil
}

func (s *Service) GetByID(ctx context.Context, id uint64) (*assetsrepo.Asset, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get asset: %w", err)
	}

	return a, nil
}

// ListActive returns the assets open for transactions, id ascending.
func (s *Service) ListActive(ctx context.Context) ([]assetsrepo.Asset, error) {
	as, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}

	return as, nil
}
