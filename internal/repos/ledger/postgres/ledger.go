package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"asset-wallet/internal/infra/pgutils"
	"asset-wallet/internal/repos/ledger"
)

var _ ledger.Ledger = (*ledgerRepo)(nil)

type ledgerRepo struct{ db *sql.DB }

func New(db *sql.DB) *ledgerRepo {
	return &ledgerRepo{db: db}
}

func (r *ledgerRepo) FindByRequestKey(tx *sql.Tx, walletID uint64, requestKey string) (*ledger.Entry, error) {
	// FOR KEY SHARE keeps the row visible to concurrent readers while
	// serializing against writers racing on the same key. The unique
	// constraint on (wallet_id, request_key) remains the final authority.
	e, err := scanEntry(tx.QueryRow(`
		SELECT id, wallet_id, uuid, amount, type, source_type, reference_id, request_key, metadata, created_at
		FROM ledger_entries
		WHERE wallet_id = $1
		  AND request_key = $2
		FOR KEY SHARE
	`, walletID, requestKey))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("find by request key: %w", err)
	}

	return e, nil
}

func (r *ledgerRepo) InsertPair(tx *sql.Tx, userEntry, systemEntry ledger.Entry) error {
	_, err := tx.Exec(`
		INSERT INTO ledger_entries (wallet_id, uuid, amount, type, source_type, reference_id, request_key, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8),
		       ($9, $10, $11, $12, $13, $14, $15, $16)
	`,
		userEntry.WalletID, userEntry.UUID, userEntry.Amount, userEntry.Type,
		userEntry.SourceType, userEntry.ReferenceID, userEntry.RequestKey, userEntry.Metadata,
		systemEntry.WalletID, systemEntry.UUID, systemEntry.Amount, systemEntry.Type,
		systemEntry.SourceType, systemEntry.ReferenceID, systemEntry.RequestKey, systemEntry.Metadata,
	)
	if err != nil {
		if pgutils.IsUniqueViolation(err) {
			return ledger.ErrDuplicateEntry
		}

		return fmt.Errorf("insert ledger pair: %w", err)
	}

	return nil
}

func (r *ledgerRepo) List(ctx context.Context, walletID uint64, limit, offset int) ([]ledger.Entry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, wallet_id, uuid, amount, type, source_type, reference_id, request_key, metadata, created_at
		FROM ledger_entries
		WHERE wallet_id = $1
		ORDER BY created_at ASC, id ASC
		LIMIT $2 OFFSET $3
	`, walletID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()

	var out []ledger.Entry

	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}

		out = append(out, *e)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate ledger entries: %w", err)
	}

	return out, nil
}

func (r *ledgerRepo) SumSigned(ctx context.Context, walletID uint64) (int64, error) {
	var sum int64

	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(CASE type WHEN 'CREDIT' THEN amount ELSE -amount END), 0)
		FROM ledger_entries
		WHERE wallet_id = $1
	`, walletID).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("sum ledger entries: %w", err)
	}

	return sum, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*ledger.Entry, error) {
	var (
		e        ledger.Entry
		metadata sql.NullString
	)

	err := row.Scan(
		&e.ID, &e.WalletID, &e.UUID, &e.Amount, &e.Type,
		&e.SourceType, &e.ReferenceID, &e.RequestKey, &metadata, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if metadata.Valid {
		e.Metadata = &metadata.String
	}

	return &e, nil
}
