package wallet

import (
	"context"
	"fmt"

	"asset-wallet/internal/repos/ledger"
	"asset-wallet/internal/repos/wallets"
)

const DefaultLedgerLimit = 20

// GetUserBalances returns one row per wallet the user holds, joined to the
// asset name. Balances are point-in-time snapshots; no cross-wallet
// consistency is promised beyond each row's own committed state.
func (s *Service) GetUserBalances(ctx context.Context, userID uint64) ([]wallets.AssetBalance, error) {
	_, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get balances: %w", err)
	}

	balances, err := s.wallets.ListBalances(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get balances: %w", err)
	}

	if len(balances) == 0 {
		return nil, wallets.ErrWalletNotFound
	}

	return balances, nil
}

// GetUserLedger returns the paginated ledger history of the single wallet
// matching (userID, assetTypeID), oldest entries first. With no asset
// filter the user's first wallet is used.
func (s *Service) GetUserLedger(ctx context.Context, userID uint64, assetTypeID *uint64, limit, offset int) (uint64, []ledger.Entry, error) {
	if limit <= 0 {
		limit = DefaultLedgerLimit
	}

	if offset < 0 {
		offset = 0
	}

	w, err := s.wallets.Find(ctx, userID, assetTypeID)
	if err != nil {
		return 0, nil, fmt.Errorf("get ledger: %w", err)
	}

	entries, err := s.ledger.List(ctx, w.ID, limit, offset)
	if err != nil {
		return 0, nil, fmt.Errorf("get ledger: %w", err)
	}

	return w.ID, entries, nil
}
