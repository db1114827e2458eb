package ledger

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrDuplicateEntry reports that the (wallet_id, request_key) uniqueness
// guard rejected an insert: the same logical transaction already committed.
var ErrDuplicateEntry = errors.New("duplicate ledger entry")

type EntryType string

const (
	TypeCredit EntryType = "CREDIT"
	TypeDebit  EntryType = "DEBIT"
)

// Complement returns the ledger type of the opposite side of the pair.
func (t EntryType) Complement() EntryType {
	if t == TypeCredit {
		return TypeDebit
	}

	return TypeCredit
}

// Entry is one immutable side of a double-entry movement. Rows are never
// updated or deleted after insert.
type Entry struct {
	ID          uint64
	WalletID    uint64
	UUID        uuid.UUID
	Amount      int64
	Type        EntryType
	SourceType  string
	ReferenceID string
	RequestKey  string
	Metadata    *string
	CreatedAt   time.Time
}

type Ledger interface {
	// FindByRequestKey looks up the user-wallet entry for an idempotency
	// key under FOR KEY SHARE. Absence is the normal path and returns
	// (nil, nil).
	FindByRequestKey(tx *sql.Tx, walletID uint64, requestKey string) (*Entry, error)
	// InsertPair appends both sides of one logical transaction. A
	// uniqueness race on (wallet_id, request_key) surfaces as
	// ErrDuplicateEntry with no rows written.
	InsertPair(tx *sql.Tx, userEntry, systemEntry Entry) error
	// List returns a wallet's entries oldest first.
	List(ctx context.Context, walletID uint64, limit, offset int) ([]Entry, error)
	// SumSigned computes the running signed sum (CREDIT +, DEBIT -) of a
	// wallet's entries, the value the materialized balance must equal.
	SumSigned(ctx context.Context, walletID uint64) (int64, error)
}
