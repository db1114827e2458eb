package pgtestutil

import (
	"database/sql"
	"testing"
)

// Seed helpers for wallet-domain tests. They go through plain SQL on
// purpose so the repos under test are not used to build their own fixtures.

func SeedUser(t *testing.T, db *sql.DB, name, email string) uint64 {
	t.Helper()

	var id uint64

	err := db.QueryRow(`
		INSERT INTO users (name, email) VALUES ($1, $2) RETURNING id
	`, name, email).Scan(&id)
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}

	return id
}

func SeedAsset(t *testing.T, db *sql.DB, name, status string) uint64 {
	t.Helper()

	var id uint64

	err := db.QueryRow(`
		INSERT INTO assets (name, status) VALUES ($1, $2) RETURNING id
	`, name, status).Scan(&id)
	if err != nil {
		t.Fatalf("seed asset: %v", err)
	}

	return id
}

func SeedSystemWallet(t *testing.T, db *sql.DB, assetTypeID uint64) uint64 {
	t.Helper()

	var id uint64

	err := db.QueryRow(`
		INSERT INTO wallets (user_id, asset_type_id, is_system, balance)
		VALUES (NULL, $1, TRUE, 0)
		RETURNING id
	`, assetTypeID).Scan(&id)
	if err != nil {
		t.Fatalf("seed system wallet: %v", err)
	}

	return id
}

func SeedUserWallet(t *testing.T, db *sql.DB, userID, assetTypeID uint64, balance int64) uint64 {
	t.Helper()

	var id uint64

	err := db.QueryRow(`
		INSERT INTO wallets (user_id, asset_type_id, is_system, balance)
		VALUES ($1, $2, FALSE, $3)
		RETURNING id
	`, userID, assetTypeID, balance).Scan(&id)
	if err != nil {
		t.Fatalf("seed user wallet: %v", err)
	}

	return id
}

func WalletBalance(t *testing.T, db *sql.DB, walletID uint64) int64 {
	t.Helper()

	var balance int64

	err := db.QueryRow(`SELECT balance FROM wallets WHERE id = $1`, walletID).Scan(&balance)
	if err != nil {
		t.Fatalf("read wallet balance: %v", err)
	}

	return balance
}

func LedgerEntryCount(t *testing.T, db *sql.DB, walletID uint64) int {
	t.Helper()

	var n int

	err := db.QueryRow(`
		SELECT COUNT(*) FROM ledger_entries WHERE wallet_id = $1
	`, walletID).Scan(&n)
	if err != nil {
		t.Fatalf("count ledger entries: %v", err)
	}

	return n
}
