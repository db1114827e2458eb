package wallets

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"asset-wallet/internal/infra/pgutils"
	"asset-wallet/internal/repos/wallets"
)

var _ wallets.Wallets = (*walletsRepo)(nil)

type walletsRepo struct{ db *sql.DB }

func New(db *sql.DB) *walletsRepo {
	return &walletsRepo{db: db}
}

func (r *walletsRepo) LockSystem(tx *sql.Tx, assetTypeID uint64) (*wallets.Wallet, error) {
	w, err := scanWallet(tx.QueryRow(`
		SELECT id, user_id, asset_type_id, is_system, balance, created_at
		FROM wallets
		WHERE asset_type_id = $1
		  AND is_system
		FOR UPDATE
	`, assetTypeID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, wallets.ErrSystemWalletNotFound
		}

		return nil, fmt.Errorf("lock system wallet: %w", err)
	}

	return w, nil
}

func (r *walletsRepo) LockUser(tx *sql.Tx, userID, assetTypeID uint64) (*wallets.Wallet, error) {
	w, err := scanWallet(tx.QueryRow(`
		SELECT id, user_id, asset_type_id, is_system, balance, created_at
		FROM wallets
		WHERE user_id = $1
		  AND asset_type_id = $2
		  AND NOT is_system
		FOR UPDATE
	`, userID, assetTypeID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, wallets.ErrWalletNotFound
		}

		return nil, fmt.Errorf("lock user wallet: %w", err)
	}

	return w, nil
}

func (r *walletsRepo) CreateUser(tx *sql.Tx, userID, assetTypeID uint64) error {
	_, err := tx.Exec(`
		INSERT INTO wallets (user_id, asset_type_id, is_system, balance)
		VALUES ($1, $2, false, 0)
	`, userID, assetTypeID)
	if err != nil {
		if pgutils.IsUniqueViolation(err) {
			return wallets.ErrWalletExists
		}

		return fmt.Errorf("insert user wallet: %w", err)
	}

	return nil
}

func (r *walletsRepo) LockBalance(tx *sql.Tx, walletID uint64) (int64, error) {
	var balance int64

	err := tx.QueryRow(`
		SELECT balance
		FROM wallets
		WHERE id = $1
		FOR UPDATE
	`, walletID).Scan(&balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, wallets.ErrWalletNotFound
		}

		return 0, fmt.Errorf("lock/get balance: %w", err)
	}

	return balance, nil
}

func (r *walletsRepo) Credit(tx *sql.Tx, walletID uint64, amount int64) error {
	_, err := tx.Exec(`
		UPDATE wallets
		SET balance = balance + $2
		WHERE id = $1
	`, walletID, amount)
	if err != nil {
		return fmt.Errorf("credit wallet: %w", err)
	}

	return nil
}

func (r *walletsRepo) Debit(tx *sql.Tx, walletID uint64, amount int64) error {
	res, err := tx.Exec(`
		UPDATE wallets
		SET balance = balance - $2
		WHERE id = $1
		  AND balance >= $2
	`, walletID, amount)
	if err != nil {
		return fmt.Errorf("debit wallet: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}

	if affected == 0 {
		return wallets.ErrInsufficientBalance
	}

	return nil
}

func (r *walletsRepo) DebitUnchecked(tx *sql.Tx, walletID uint64, amount int64) error {
	_, err := tx.Exec(`
		UPDATE wallets
		SET balance = balance - $2
		WHERE id = $1
	`, walletID, amount)
	if err != nil {
		return fmt.Errorf("debit wallet unchecked: %w", err)
	}

	return nil
}

func (r *walletsRepo) ListBalances(ctx context.Context, userID uint64) ([]wallets.AssetBalance, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT a.name, w.balance
		FROM wallets w
		JOIN assets a ON a.id = w.asset_type_id
		WHERE w.user_id = $1
		  AND NOT w.is_system
		ORDER BY w.id ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list balances: %w", err)
	}
	defer rows.Close()

	var out []wallets.AssetBalance

	for rows.Next() {
		var b wallets.AssetBalance

		err = rows.Scan(&b.AssetType, &b.Balance)
		if err != nil {
			return nil, fmt.Errorf("scan balance: %w", err)
		}

		out = append(out, b)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate balances: %w", err)
	}

	return out, nil
}

func (r *walletsRepo) Find(ctx context.Context, userID uint64, assetTypeID *uint64) (*wallets.Wallet, error) {
	query := `
		SELECT id, user_id, asset_type_id, is_system, balance, created_at
		FROM wallets
		WHERE user_id = $1
		  AND NOT is_system
	`
	args := []any{userID}

	if assetTypeID != nil {
		query += ` AND asset_type_id = $2`
		args = append(args, *assetTypeID)
	}

	query += `
		ORDER BY id ASC
		LIMIT 1
	`

	w, err := scanWallet(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, wallets.ErrWalletNotFound
		}

		return nil, fmt.Errorf("find wallet: %w", err)
	}

	return w, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWallet(row rowScanner) (*wallets.Wallet, error) {
	var (
		w      wallets.Wallet
		userID sql.NullInt64
	)

	err := row.Scan(&w.ID, &userID, &w.AssetTypeID, &w.IsSystem, &w.Balance, &w.CreatedAt)
	if err != nil {
		return nil, err
	}

	if userID.Valid {
		uid := uint64(userID.Int64)
		w.UserID = &uid
	}

	return &w, nil
}
