package assets

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"asset-wallet/internal/infra/pgutils"
	"asset-wallet/internal/repos/assets"
)

var _ assets.Assets = (*assetsRepo)(nil)

type assetsRepo struct{ db *sql.DB }

func New(db *sql.DB) *assetsRepo {
	return &assetsRepo{db: db}
}

func (r *assetsRepo) Create(ctx context.Context, name, description string, status assets.Status) (*assets.Asset, error) {
	var a assets.Asset

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO assets (name, description, status)
		VALUES ($1, $2, $3)
		RETURNING id, name, description, status, created_at
	`, name, description, status).Scan(&a.ID, &a.Name, &a.Description, &a.Status, &a.CreatedAt)
	if err != nil {
		if pgutils.IsUniqueViolation(err) {
			return nil, assets.ErrAssetNameTaken
		}

		return nil, fmt.Errorf("insert asset: %w", err)
	}

	return &a, nil
}

func (r *assetsRepo) GetByID(ctx context.Context, id uint64) (*assets.Asset, error) {
	var a assets.Asset

	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, COALESCE(description, ''), status, created_at
		FROM assets
		WHERE id = $1
	`, id).Scan(&a.ID, &a.Name, &a.Description, &a.Status, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, assets.ErrAssetNotFound
		}

		return nil, fmt.Errorf("get asset: %w", err)
	}

	return &a, nil
}

func (r *assetsRepo) ListActive(ctx context.Context) ([]assets.Asset, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, COALESCE(description, ''), status, created_at
		FROM assets
		WHERE status = $1
		ORDER BY id ASC
	`, assets.StatusActive)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	defer rows.Close()

	var out []assets.Asset

	for rows.Next() {
		var a assets.Asset

		err = rows.Scan(&a.ID, &a.Name, &a.Description, &a.Status, &a.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan asset: %w", err)
		}

		out = append(out, a)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate assets: %w", err)
	}

	return out, nil
}

func (r *assetsRepo) LockShared(tx *sql.Tx, id uint64) (*assets.Asset, error) {
	var a assets.Asset

	err := tx.QueryRow(`
		SELECT id, name, COALESCE(description, ''), status, created_at
		FROM assets
		WHERE id = $1
		FOR SHARE
	`, id).Scan(&a.ID, &a.Name, &a.Description, &a.Status, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, assets.ErrAssetNotFound
		}

		return nil, fmt.Errorf("lock asset: %w", err)
	}

	return &a, nil
}
