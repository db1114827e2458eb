package wallet

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"asset-wallet/internal/infra/pgutils"
	"asset-wallet/internal/repos/assets"
	"asset-wallet/internal/repos/ledger"
	"asset-wallet/internal/repos/wallets"
	"asset-wallet/pkg/retry"
)

// Execute runs one logical ledger operation as a single atomic database
// transaction, retrying transparently on serialization conflicts. Every
// attempt starts from scratch: all locks are released on rollback and
// reacquired, and the idempotency guard makes re-execution of an already
// committed attempt a no-op.
//
// Lock acquisition inside the transaction follows a fixed order: asset,
// user, system wallet, user wallet. Every operation kind takes locks in
// this same sequence; that is the sole deadlock-prevention mechanism.
func (s *Service) Execute(ctx context.Context, op Operation) (*Result, error) {
	switch op.Kind {
	case KindTopUp, KindBonus, KindSpend:
	default:
		return nil, ErrInvalidKind
	}

	if op.Amount <= 0 {
		return nil, ErrInvalidAmount
	}

	// One correlation id per logical operation, shared by both ledger
	// rows and stable across retry attempts.
	correlationID := uuid.New()

	var res *Result

	err := retry.Do(ctx, s.policy, func() error {
		r, err := s.performTransaction(ctx, op, correlationID)
		if err != nil {
			return err
		}

		res = r

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("execute %s: %w", op.Kind, err)
	}

	return res, nil
}

func (s *Service) performTransaction(ctx context.Context, op Operation, correlationID uuid.UUID) (*Result, error) {
	var res *Result

	err := pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		asset, err := s.assets.LockShared(tx, op.AssetTypeID)
		if err != nil {
			return fmt.Errorf("lock asset: %w", err)
		}

		if asset.Status != assets.StatusActive {
			return ErrAssetInactive
		}

		err = s.users.LockShared(tx, op.UserID)
		if err != nil {
			return fmt.Errorf("lock user: %w", err)
		}

		systemWallet, err := s.wallets.LockSystem(tx, op.AssetTypeID)
		if err != nil {
			return fmt.Errorf("lock system wallet: %w", err)
		}

		userWallet, err := s.lockOrCreateUserWallet(tx, op.UserID, op.AssetTypeID)
		if err != nil {
			return fmt.Errorf("lock user wallet: %w", err)
		}

		existing, err := s.ledger.FindByRequestKey(tx, userWallet.ID, op.RequestKey)
		if err != nil {
			return fmt.Errorf("idempotency lookup: %w", err)
		}

		if existing != nil {
			res, err = s.replayResult(tx, userWallet.ID, existing.Amount)
			if err != nil {
				return err
			}

			slog.Warn("duplicate request, returning cached result",
				"request_key", op.RequestKey, "wallet_id", userWallet.ID)

			return nil
		}

		userType := op.Kind.UserEntryType()

		if userType == ledger.TypeDebit && userWallet.Balance < op.Amount {
			return wallets.ErrInsufficientBalance
		}

		userEntry := ledger.Entry{
			WalletID:    userWallet.ID,
			UUID:        correlationID,
			Amount:      op.Amount,
			Type:        userType,
			SourceType:  string(op.Kind),
			ReferenceID: op.ReferenceID,
			RequestKey:  op.RequestKey,
			Metadata:    op.Metadata,
		}

		systemEntry := userEntry
		systemEntry.WalletID = systemWallet.ID
		systemEntry.Type = userType.Complement()

		err = s.ledger.InsertPair(tx, userEntry, systemEntry)
		if err != nil {
			if errors.Is(err, ledger.ErrDuplicateEntry) {
				// A concurrent duplicate won the race between the
				// lookup and the insert; answer it like a cache hit.
				already, ferr := s.ledger.FindByRequestKey(tx, userWallet.ID, op.RequestKey)
				if ferr != nil {
					return fmt.Errorf("re-read after duplicate insert: %w", ferr)
				}

				amount := op.Amount
				if already != nil {
					amount = already.Amount
				}

				res, err = s.replayResult(tx, userWallet.ID, amount)

				return err
			}

			return fmt.Errorf("insert ledger pair: %w", err)
		}

		// User side first, then the complementary system side.
		if userType == ledger.TypeCredit {
			err = s.wallets.Credit(tx, userWallet.ID, op.Amount)
		} else {
			// The conditional update re-checks the balance atomically;
			// zero rows means a lost race and reads as insufficient funds.
			err = s.wallets.Debit(tx, userWallet.ID, op.Amount)
		}
		if err != nil {
			return fmt.Errorf("apply user wallet delta: %w", err)
		}

		if userType == ledger.TypeCredit {
			err = s.wallets.DebitUnchecked(tx, systemWallet.ID, op.Amount)
		} else {
			err = s.wallets.Credit(tx, systemWallet.ID, op.Amount)
		}
		if err != nil {
			return fmt.Errorf("apply system wallet delta: %w", err)
		}

		balance, err := s.wallets.LockBalance(tx, userWallet.ID)
		if err != nil {
			return fmt.Errorf("re-read balance: %w", err)
		}

		res = &Result{Status: StatusSuccess, Amount: op.Amount, BalanceAfter: balance}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return res, nil
}

// lockOrCreateUserWallet returns the user wallet for (userID, assetTypeID)
// under an exclusive lock, creating it with balance 0 on first use. A
// uniqueness race with a concurrent creator falls through to a re-fetch
// under lock instead of failing.
func (s *Service) lockOrCreateUserWallet(tx *sql.Tx, userID, assetTypeID uint64) (*wallets.Wallet, error) {
	w, err := s.wallets.LockUser(tx, userID, assetTypeID)
	if err == nil {
		return w, nil
	}

	if !errors.Is(err, wallets.ErrWalletNotFound) {
		return nil, err
	}

	err = s.wallets.CreateUser(tx, userID, assetTypeID)
	if err != nil && !errors.Is(err, wallets.ErrWalletExists) {
		return nil, err
	}

	return s.wallets.LockUser(tx, userID, assetTypeID)
}

// replayResult builds the response for an already-committed request key:
// the original amount with the wallet's current balance.
func (s *Service) replayResult(tx *sql.Tx, walletID uint64, amount int64) (*Result, error) {
	balance, err := s.wallets.LockBalance(tx, walletID)
	if err != nil {
		return nil, fmt.Errorf("re-read balance: %w", err)
	}

	return &Result{Status: StatusSuccess, Amount: amount, BalanceAfter: balance}, nil
}
