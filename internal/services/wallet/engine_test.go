package wallet

import (
	"context"
	"database/sql"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"asset-wallet/internal/config"
	"asset-wallet/internal/infra/pgtestutil"
	assetsrepo "asset-wallet/internal/repos/assets"
	usersrepo "asset-wallet/internal/repos/users"
	walletsrepo "asset-wallet/internal/repos/wallets"
)

type engineFixture struct {
	db        *sql.DB
	svc       *Service
	userID    uint64
	assetID   uint64
	sysWallet uint64
}

func newEngineFixture(t *testing.T) engineFixture {
	t.Helper()

	db, cleanup := pgtestutil.NewTestDB(t)
	t.Cleanup(cleanup)

	userID := pgtestutil.SeedUser(t, db, "alice", "alice@example.com")
	assetID := pgtestutil.SeedAsset(t, db, "gold", "ACTIVE")
	sysWallet := pgtestutil.SeedSystemWallet(t, db, assetID)

	return engineFixture{
		db:        db,
		svc:       New(db, config.LedgerConfig{}),
		userID:    userID,
		assetID:   assetID,
		sysWallet: sysWallet,
	}
}

func (f engineFixture) op(kind Kind, amount int64, key string) Operation {
	return Operation{
		Kind:        kind,
		UserID:      f.userID,
		AssetTypeID: f.assetID,
		Amount:      amount,
		RequestKey:  key,
		ReferenceID: "REF_" + key,
	}
}

// userWalletID resolves the lazily created user wallet, failing the test if
// it does not exist.
func (f engineFixture) userWalletID(t *testing.T) uint64 {
	t.Helper()

	var id uint64

	err := f.db.QueryRow(`
		SELECT id FROM wallets
		WHERE user_id = $1 AND asset_type_id = $2 AND NOT is_system
	`, f.userID, f.assetID).Scan(&id)
	require.NoError(t, err, "user wallet should exist")

	return id
}

// requireNoDrift asserts the materialized balance of a wallet equals the
// signed sum of its ledger entries.
func requireNoDrift(t *testing.T, db *sql.DB, walletID uint64) {
	t.Helper()

	var balance, sum int64

	err := db.QueryRow(`SELECT balance FROM wallets WHERE id = $1`, walletID).Scan(&balance)
	require.NoError(t, err)

	err = db.QueryRow(`
		SELECT COALESCE(SUM(CASE type WHEN 'CREDIT' THEN amount ELSE -amount END), 0)
		FROM ledger_entries WHERE wallet_id = $1
	`, walletID).Scan(&sum)
	require.NoError(t, err)

	require.Equal(t, sum, balance, "balance drifted from ledger sum for wallet %d", walletID)
}

func TestExecute_TopUpCreatesWallet(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	ctx := context.Background()

	res, err := f.svc.Execute(ctx, f.op(KindTopUp, 100, "k1"))
	require.NoError(t, err)
	assert.Equal(t, &Result{Status: StatusSuccess, Amount: 100, BalanceAfter: 100}, res)

	userWallet := f.userWalletID(t)
	assert.EqualValues(t, 100, pgtestutil.WalletBalance(t, f.db, userWallet))
	assert.EqualValues(t, -100, pgtestutil.WalletBalance(t, f.db, f.sysWallet))

	// exactly one CREDIT/DEBIT pair sharing one correlation id
	var pairs, uuids int

	err = f.db.QueryRow(`
		SELECT COUNT(*), COUNT(DISTINCT uuid) FROM ledger_entries
	`).Scan(&pairs, &uuids)
	require.NoError(t, err)
	assert.Equal(t, 2, pairs)
	assert.Equal(t, 1, uuids)

	var userType, sysType string

	err = f.db.QueryRow(`SELECT type FROM ledger_entries WHERE wallet_id = $1`, userWallet).Scan(&userType)
	require.NoError(t, err)
	err = f.db.QueryRow(`SELECT type FROM ledger_entries WHERE wallet_id = $1`, f.sysWallet).Scan(&sysType)
	require.NoError(t, err)
	assert.Equal(t, "CREDIT", userType)
	assert.Equal(t, "DEBIT", sysType)

	requireNoDrift(t, f.db, userWallet)
	requireNoDrift(t, f.db, f.sysWallet)
}

func TestExecute_ReplayedKeyIsNoOp(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	ctx := context.Background()

	first, err := f.svc.Execute(ctx, f.op(KindTopUp, 100, "k1"))
	require.NoError(t, err)

	second, err := f.svc.Execute(ctx, f.op(KindTopUp, 100, "k1"))
	require.NoError(t, err)
	assert.Equal(t, first, second)

	userWallet := f.userWalletID(t)
	assert.EqualValues(t, 100, pgtestutil.WalletBalance(t, f.db, userWallet))
	assert.Equal(t, 1, pgtestutil.LedgerEntryCount(t, f.db, userWallet))
	assert.Equal(t, 1, pgtestutil.LedgerEntryCount(t, f.db, f.sysWallet))
}

func TestExecute_ReplayReportsOriginalAmount(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	ctx := context.Background()

	_, err := f.svc.Execute(ctx, f.op(KindTopUp, 100, "k1"))
	require.NoError(t, err)

	// balance moved on since the original commit
	_, err = f.svc.Execute(ctx, f.op(KindTopUp, 50, "k2"))
	require.NoError(t, err)

	res, err := f.svc.Execute(ctx, f.op(KindTopUp, 100, "k1"))
	require.NoError(t, err)
	assert.EqualValues(t, 100, res.Amount)
	assert.EqualValues(t, 150, res.BalanceAfter, "replay reports the current balance")
}

func TestExecute_SpendHappyPath(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	ctx := context.Background()

	_, err := f.svc.Execute(ctx, f.op(KindTopUp, 100, "k1"))
	require.NoError(t, err)

	res, err := f.svc.Execute(ctx, f.op(KindSpend, 60, "k2"))
	require.NoError(t, err)
	assert.Equal(t, &Result{Status: StatusSuccess, Amount: 60, BalanceAfter: 40}, res)

	userWallet := f.userWalletID(t)
	assert.EqualValues(t, 40, pgtestutil.WalletBalance(t, f.db, userWallet))
	assert.EqualValues(t, -40, pgtestutil.WalletBalance(t, f.db, f.sysWallet))

	requireNoDrift(t, f.db, userWallet)
	requireNoDrift(t, f.db, f.sysWallet)
}

func TestExecute_SpendInsufficientBalance(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	ctx := context.Background()

	_, err := f.svc.Execute(ctx, f.op(KindTopUp, 100, "k1"))
	require.NoError(t, err)

	_, err = f.svc.Execute(ctx, f.op(KindSpend, 150, "k2"))
	require.ErrorIs(t, err, walletsrepo.ErrInsufficientBalance)

	// nothing moved
	userWallet := f.userWalletID(t)
	assert.EqualValues(t, 100, pgtestutil.WalletBalance(t, f.db, userWallet))
	assert.EqualValues(t, -100, pgtestutil.WalletBalance(t, f.db, f.sysWallet))
	assert.Equal(t, 1, pgtestutil.LedgerEntryCount(t, f.db, userWallet))
}

func TestExecute_BonusRecordsSourceType(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	ctx := context.Background()

	op := f.op(KindBonus, 25, "k1")
	op.ReferenceID = "REFERRAL_BONUS"

	res, err := f.svc.Execute(ctx, op)
	require.NoError(t, err)
	assert.EqualValues(t, 25, res.BalanceAfter)

	var sourceType, referenceID string

	err = f.db.QueryRow(`
		SELECT source_type, reference_id FROM ledger_entries WHERE wallet_id = $1
	`, f.userWalletID(t)).Scan(&sourceType, &referenceID)
	require.NoError(t, err)
	assert.Equal(t, "BONUS", sourceType)
	assert.Equal(t, "REFERRAL_BONUS", referenceID)
}

func TestExecute_MetadataPersisted(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	ctx := context.Background()

	meta := "welcome bonus"
	op := f.op(KindTopUp, 10, "k1")
	op.Metadata = &meta

	_, err := f.svc.Execute(ctx, op)
	require.NoError(t, err)

	var stored string

	err = f.db.QueryRow(`
		SELECT metadata FROM ledger_entries WHERE wallet_id = $1
	`, f.userWalletID(t)).Scan(&stored)
	require.NoError(t, err)
	assert.Equal(t, meta, stored)
}

func TestExecute_ValidationFailures(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		mutate  func(*Operation)
		wantErr error
	}{
		{"zero_amount", func(op *Operation) { op.Amount = 0 }, ErrInvalidAmount},
		{"negative_amount", func(op *Operation) { op.Amount = -5 }, ErrInvalidAmount},
		{"unknown_kind", func(op *Operation) { op.Kind = "REFUND" }, ErrInvalidKind},
		{"unknown_user", func(op *Operation) { op.UserID = 9999 }, usersrepo.ErrUserNotFound},
		{"unknown_asset", func(op *Operation) { op.AssetTypeID = 9999 }, assetsrepo.ErrAssetNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op := f.op(KindTopUp, 100, "k-"+tt.name)
			tt.mutate(&op)

			_, err := f.svc.Execute(ctx, op)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestExecute_InactiveAssetRejected(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	ctx := context.Background()

	frozenID := pgtestutil.SeedAsset(t, f.db, "frozen", "INACTIVE")
	pgtestutil.SeedSystemWallet(t, f.db, frozenID)

	op := f.op(KindTopUp, 100, "k1")
	op.AssetTypeID = frozenID

	_, err := f.svc.Execute(ctx, op)
	require.ErrorIs(t, err, ErrAssetInactive)

	// rejected before any wallet was created
	var wallets int

	err = f.db.QueryRow(`
		SELECT COUNT(*) FROM wallets WHERE NOT is_system
	`).Scan(&wallets)
	require.NoError(t, err)
	assert.Zero(t, wallets)
}

func TestExecute_MissingSystemWalletIsFatal(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	ctx := context.Background()

	orphanID := pgtestutil.SeedAsset(t, f.db, "orphan", "ACTIVE")

	op := f.op(KindTopUp, 100, "k1")
	op.AssetTypeID = orphanID

	_, err := f.svc.Execute(ctx, op)
	require.ErrorIs(t, err, walletsrepo.ErrSystemWalletNotFound)
}

func TestExecute_ConcurrentDuplicatesCommitOnce(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)

	const workers = 8

	var wg sync.WaitGroup

	results := make([]*Result, workers)
	errs := make([]error, workers)

	for i := range workers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			results[i], errs[i] = f.svc.Execute(context.Background(), f.op(KindTopUp, 100, "same-key"))
		}()
	}

	wg.Wait()

	for i := range workers {
		require.NoError(t, errs[i], "worker %d", i)
		assert.Equal(t, &Result{Status: StatusSuccess, Amount: 100, BalanceAfter: 100}, results[i], "worker %d", i)
	}

	userWallet := f.userWalletID(t)
	assert.EqualValues(t, 100, pgtestutil.WalletBalance(t, f.db, userWallet))
	assert.Equal(t, 1, pgtestutil.LedgerEntryCount(t, f.db, userWallet))
	assert.Equal(t, 1, pgtestutil.LedgerEntryCount(t, f.db, f.sysWallet))

	requireNoDrift(t, f.db, userWallet)
	requireNoDrift(t, f.db, f.sysWallet)
}

func TestExecute_ConcurrentSpendsNeverOverdraw(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)

	_, err := f.svc.Execute(context.Background(), f.op(KindTopUp, 100, "seed"))
	require.NoError(t, err)

	// two 60-unit spends race over a 100-unit balance: exactly one wins
	var wg sync.WaitGroup

	errs := make([]error, 2)

	for i := range 2 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			key := []string{"spend-a", "spend-b"}[i]
			_, errs[i] = f.svc.Execute(context.Background(), f.op(KindSpend, 60, key))
		}()
	}

	wg.Wait()

	succeeded := 0

	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			require.ErrorIs(t, err, walletsrepo.ErrInsufficientBalance)
		}
	}

	require.Equal(t, 1, succeeded)

	userWallet := f.userWalletID(t)
	assert.EqualValues(t, 40, pgtestutil.WalletBalance(t, f.db, userWallet))

	requireNoDrift(t, f.db, userWallet)
	requireNoDrift(t, f.db, f.sysWallet)
}

func TestExecute_MixedWorkloadConservesValue(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	ctx := context.Background()

	ops := []Operation{
		f.op(KindTopUp, 500, "t1"),
		f.op(KindBonus, 50, "b1"),
		f.op(KindSpend, 120, "s1"),
		f.op(KindTopUp, 30, "t2"),
		f.op(KindSpend, 60, "s2"),
	}

	for _, op := range ops {
		_, err := f.svc.Execute(ctx, op)
		require.NoError(t, err)
	}

	userWallet := f.userWalletID(t)
	userBalance := pgtestutil.WalletBalance(t, f.db, userWallet)
	sysBalance := pgtestutil.WalletBalance(t, f.db, f.sysWallet)

	assert.EqualValues(t, 400, userBalance)
	assert.Equal(t, int64(0), userBalance+sysBalance, "user and system deltas must cancel")

	requireNoDrift(t, f.db, userWallet)
	requireNoDrift(t, f.db, f.sysWallet)
}
