package users

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

var ErrUserNotFound = errors.New("user not found")
var ErrEmailTaken = errors.New("email already registered")

type User struct {
	ID        uint64
	Name      string
	Email     string
	CreatedAt time.Time
}

type Users interface {
	Create(ctx context.Context, name, email string) (*User, error)
	GetByID(ctx context.Context, id uint64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context) ([]User, error)
	// LockShared takes a FOR SHARE lock on the user row for the duration
	// of tx, so the row cannot be deleted under a running ledger transaction.
	LockShared(tx *sql.Tx, id uint64) error
}
