package assets

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

var ErrAssetNotFound = errors.New("asset not found")
var ErrAssetNameTaken = errors.New("asset name already exists")

type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusInactive Status = "INACTIVE"
)

type Asset struct {
	ID          uint64
	Name        string
	Description string
	Status      Status
	CreatedAt   time.Time
}

type Assets interface {
	Create(ctx context.Context, name, description string, status Status) (*Asset, error)
	GetByID(ctx context.Context, id uint64) (*Asset, error)
	ListActive(ctx context.Context) ([]Asset, error)
	// LockShared reads the asset under a FOR SHARE lock so its status
	// cannot flip while a ledger transaction is in flight.
	LockShared(tx *sql.Tx, id uint64) (*Asset, error)
}
