package wallet

import (
	"errors"

	"asset-wallet/internal/repos/ledger"
)

// Kind names one of the three public ledger operations. The kind decides
// which side of the double entry the user wallet takes; everything else in
// the engine is shared.
type Kind string

const (
	KindTopUp Kind = "TOP_UP"
	KindBonus Kind = "BONUS"
	KindSpend Kind = "SPEND"
)

// UserEntryType maps the operation kind to the ledger type written against
// the user wallet. The system wallet always takes the complement.
func (k Kind) UserEntryType() ledger.EntryType {
	if k == KindSpend {
		return ledger.TypeDebit
	}

	return ledger.TypeCredit
}

var (
	ErrInvalidAmount = errors.New("amount must be a positive integer")
	ErrInvalidKind   = errors.New("unknown operation kind")
	ErrAssetInactive = errors.New("asset is not active")
)

// Operation is one logical ledger transaction request.
type Operation struct {
	Kind        Kind
	UserID      uint64
	AssetTypeID uint64
	Amount      int64
	// RequestKey is the caller-supplied idempotency key, scoped per
	// user wallet.
	RequestKey string
	// ReferenceID carries the kind-specific external reference
	// (payment reference, bonus reason or order reference).
	ReferenceID string
	Metadata    *string
}

const StatusSuccess = "SUCCESS"

// Result is the committed outcome of an operation. A replayed request key
// yields the same Result as the original commit.
type Result struct {
	Status       string
	Amount       int64
	BalanceAfter int64
}
