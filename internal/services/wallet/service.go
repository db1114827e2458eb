package wallet

import (
	"database/sql"
	"log/slog"
	"time"

	"asset-wallet/internal/config"
	"asset-wallet/internal/infra/pgutils"
	"asset-wallet/internal/repos/assets"
	pgassets "asset-wallet/internal/repos/assets/postgres"
	"asset-wallet/internal/repos/ledger"
	pgledger "asset-wallet/internal/repos/ledger/postgres"
	"asset-wallet/internal/repos/users"
	pgusers "asset-wallet/internal/repos/users/postgres"
	"asset-wallet/internal/repos/wallets"
	pgwallets "asset-wallet/internal/repos/wallets/postgres"
	"asset-wallet/pkg/retry"
)

const (
	defaultTxMaxAttempts = 3
	defaultTxBackoffStep = 25 * time.Millisecond
)

// Service runs ledger transactions and serves the balance/ledger read path.
// It holds no cross-call state; all mutual exclusion is delegated to
// database row locks, so any number of instances can share one store.
type Service struct {
	db      *sql.DB
	users   users.Users
	assets  assets.Assets
	wallets wallets.Wallets
	ledger  ledger.Ledger
	policy  retry.Policy
}

func New(db *sql.DB, cfg config.LedgerConfig) *Service {
	maxAttempts := cfg.TxMaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultTxMaxAttempts
	}

	step := cfg.TxBackoffStep
	if step <= 0 {
		step = defaultTxBackoffStep
	}

	return &Service{
		db:      db,
		users:   pgusers.New(db),
		assets:  pgassets.New(db),
		wallets: pgwallets.New(db),
		ledger:  pgledger.New(db),
		policy: retry.Policy{
			MaxAttempts: maxAttempts,
			Backoff:     retry.LinearBackoff(step),
			Retryable: func(err error) bool {
				if !pgutils.IsRetryableTxError(err) {
					return false
				}

				slog.Warn("retrying ledger transaction after transient conflict", "error", err)

				return true
			},
		},
	}
}
