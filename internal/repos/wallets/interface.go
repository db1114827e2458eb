package wallets

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

var ErrWalletNotFound = errors.New("wallet not found")
var ErrSystemWalletNotFound = errors.New("system wallet not found")
var ErrWalletExists = errors.New("wallet already exists")
var ErrInsufficientBalance = errors.New("insufficient balance")

type Wallet struct {
	ID          uint64
	UserID      *uint64
	AssetTypeID uint64
	IsSystem    bool
	Balance     int64
	CreatedAt   time.Time
}

// AssetBalance is one row of a user's balance overview.
type AssetBalance struct {
	AssetType string
	Balance   int64
}

type Wallets interface {
	// LockSystem acquires the per-asset system wallet under FOR UPDATE.
	// The system wallet is provisioned out-of-band; its absence is a
	// configuration defect reported as ErrSystemWalletNotFound.
	LockSystem(tx *sql.Tx, assetTypeID uint64) (*Wallet, error)
	// LockUser acquires the user wallet for (userID, assetTypeID) under
	// FOR UPDATE, returning ErrWalletNotFound when it does not exist yet.
	LockUser(tx *sql.Tx, userID, assetTypeID uint64) (*Wallet, error)
	// CreateUser inserts a zero-balance user wallet. A concurrent creator
	// winning the race surfaces as ErrWalletExists.
	CreateUser(tx *sql.Tx, userID, assetTypeID uint64) error
	// LockBalance re-reads a wallet's balance under FOR UPDATE.
	LockBalance(tx *sql.Tx, walletID uint64) (int64, error)
	Credit(tx *sql.Tx, walletID uint64, amount int64) error
	// Debit subtracts amount only if the balance covers it; a zero-row
	// update reports ErrInsufficientBalance.
	Debit(tx *sql.Tx, walletID uint64, amount int64) error
	// DebitUnchecked subtracts amount without the non-negative guard;
	// only the system wallet side of a credit operation uses it.
	DebitUnchecked(tx *sql.Tx, walletID uint64, amount int64) error
	ListBalances(ctx context.Context, userID uint64) ([]AssetBalance, error)
	// Find resolves a user wallet outside any transaction; assetTypeID nil
	// picks the user's first wallet.
	Find(ctx context.Context, userID uint64, assetTypeID *uint64) (*Wallet, error)
}
