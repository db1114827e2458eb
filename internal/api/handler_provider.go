package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	assetsrepo "asset-wallet/internal/repos/assets"
	ledgerrepo "asset-wallet/internal/repos/ledger"
	usersrepo "asset-wallet/internal/repos/users"
	walletsrepo "asset-wallet/internal/repos/wallets"
	assetsvc "asset-wallet/internal/services/assets"
	usersvc "asset-wallet/internal/services/users"
	walletsvc "asset-wallet/internal/services/wallet"
)

const maxMetadataLen = 500

// HandlerProvider wraps the services and exposes their HTTP handlers.
type HandlerProvider struct {
	wallet *walletsvc.Service
	users  *usersvc.Service
	assets *assetsvc.Service
}

func NewHandler(wallet *walletsvc.Service, users *usersvc.Service, assets *assetsvc.Service) *HandlerProvider {
	return &HandlerProvider{wallet: wallet, users: users, assets: assets}
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB cap
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("empty body")
		}

		return errors.New("invalid JSON")
	}

	return nil
}

func parseUserIDFromPath(r *http.Request) (uint64, error) {
	idStr := chi.URLParam(r, "userId")
	if idStr == "" {
		return 0, errors.New("missing userId")
	}

	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid userId: must be a positive integer")
	}

	return id, nil
}

// writeOperationError maps engine failures to HTTP statuses. The engine
// never reports a duplicate request as an error; by the time we are here a
// replay has already been answered with the original result.
func writeOperationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, walletsvc.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, "amount must be a positive integer")
	case errors.Is(err, walletsvc.ErrAssetInactive):
		writeError(w, http.StatusBadRequest, "asset is not active")
	case errors.Is(err, walletsrepo.ErrInsufficientBalance):
		writeError(w, http.StatusBadRequest, "insufficient balance")
	case errors.Is(err, assetsrepo.ErrAssetNotFound):
		writeError(w, http.StatusNotFound, "asset not found")
	case errors.Is(err, usersrepo.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "user not found")
	case errors.Is(err, walletsrepo.ErrSystemWalletNotFound):
		// missing system wallet is a deployment defect, not a client error
		slog.Error("system wallet missing", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	default:
		slog.Error("ledger operation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// --- Wallet transactions ---

type transactionRequest struct {
	UserID           uint64      `json:"user_id"`
	AssetTypeID      uint64      `json:"asset_type_id"`
	Amount           json.Number `json:"amount"`
	RequestKey       string      `json:"request_key"`
	Metadata         *string     `json:"metadata,omitempty"`
	PaymentReference string      `json:"payment_reference,omitempty"`
	Reason           string      `json:"reason,omitempty"`
	OrderReference   string      `json:"order_reference,omitempty"`
}

type transactionResponse struct {
	Status       string `json:"status"`
	Amount       int64  `json:"amount"`
	BalanceAfter int64  `json:"balance_after"`
}

// validate checks the fields common to all three operation kinds and
// returns the parsed amount. Fractional amounts are rejected outright, not
// truncated.
func (req *transactionRequest) validate() (int64, error) {
	if req.UserID == 0 {
		return 0, errors.New("user_id must be a positive integer")
	}

	if req.AssetTypeID == 0 {
		return 0, errors.New("asset_type_id must be a positive integer")
	}

	amount, err := strconv.ParseInt(req.Amount.String(), 10, 64)
	if err != nil || amount <= 0 {
		return 0, errors.New("amount must be a positive integer")
	}

	if req.RequestKey == "" {
		return 0, errors.New("request_key is required")
	}

	if req.Metadata != nil && len(*req.Metadata) > maxMetadataLen {
		return 0, errors.New("metadata is too long (max 500 characters)")
	}

	return amount, nil
}

// TopUpHandler handles POST /wallets/transactions/topup
func (h *HandlerProvider) TopUpHandler(w http.ResponseWriter, r *http.Request) {
	h.runTransaction(w, r, walletsvc.KindTopUp, func(req *transactionRequest) (string, error) {
		if req.PaymentReference == "" {
			return "", errors.New("payment_reference is required")
		}

		return req.PaymentReference, nil
	})
}

// BonusHandler handles POST /wallets/transactions/bonus
func (h *HandlerProvider) BonusHandler(w http.ResponseWriter, r *http.Request) {
	h.runTransaction(w, r, walletsvc.KindBonus, func(req *transactionRequest) (string, error) {
		if req.Reason == "" {
			return "", errors.New("reason is required")
		}

		return req.Reason, nil
	})
}

// SpendHandler handles POST /wallets/transactions/spend
func (h *HandlerProvider) SpendHandler(w http.ResponseWriter, r *http.Request) {
	h.runTransaction(w, r, walletsvc.KindSpend, func(req *transactionRequest) (string, error) {
		if req.OrderReference == "" {
			return "", errors.New("order_reference is required")
		}

		return req.OrderReference, nil
	})
}

func (h *HandlerProvider) runTransaction(
	w http.ResponseWriter,
	r *http.Request,
	kind walletsvc.Kind,
	reference func(*transactionRequest) (string, error),
) {
	var req transactionRequest

	err := decodeBody(w, r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	amount, err := req.validate()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ref, err := reference(&req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.wallet.Execute(r.Context(), walletsvc.Operation{
		Kind:        kind,
		UserID:      req.UserID,
		AssetTypeID: req.AssetTypeID,
		Amount:      amount,
		RequestKey:  req.RequestKey,
		ReferenceID: ref,
		Metadata:    req.Metadata,
	})
	if err != nil {
		writeOperationError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, transactionResponse{
		Status:       res.Status,
		Amount:       res.Amount,
		BalanceAfter: res.BalanceAfter,
	})
}

// --- Balance / ledger reads ---

type assetBalanceDTO struct {
	AssetType string `json:"asset_type"`
	Balance   int64  `json:"balance"`
}

// GetBalancesHandler handles GET /wallets/{userId}/balance
func (h *HandlerProvider) GetBalancesHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUserIDFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	balances, err := h.wallet.GetUserBalances(r.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, usersrepo.ErrUserNotFound):
			writeError(w, http.StatusNotFound, "user not found")
		case errors.Is(err, walletsrepo.ErrWalletNotFound):
			writeError(w, http.StatusNotFound, "wallet not found")
		default:
			slog.Error("get balances failed", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
		}

		return
	}

	out := make([]assetBalanceDTO, 0, len(balances))
	for _, b := range balances {
		out = append(out, assetBalanceDTO{AssetType: b.AssetType, Balance: b.Balance})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user_id":  userID,
		"balances": out,
	})
}

type ledgerEntryDTO struct {
	ID         string  `json:"id"`
	WalletID   uint64  `json:"wallet_id"`
	Type       string  `json:"type"`
	Amount     int64   `json:"amount"`
	SourceType string  `json:"source_type"`
	Reference  string  `json:"reference_id"`
	Metadata   *string `json:"metadata,omitempty"`
	CreatedAt  string  `json:"created_at"`
}

// GetLedgerHandler handles GET /wallets/{userId}/ledger
func (h *HandlerProvider) GetLedgerHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUserIDFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	q := r.URL.Query()

	var assetTypeID *uint64

	if raw := q.Get("asset_type_id"); raw != "" {
		id, perr := strconv.ParseUint(raw, 10, 64)
		if perr != nil || id == 0 {
			writeError(w, http.StatusBadRequest, "invalid asset_type_id")
			return
		}

		assetTypeID = &id
	}

	limit, err := parseOptionalInt(q.Get("limit"), walletsvc.DefaultLedgerLimit, 1)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid limit")
		return
	}

	offset, err := parseOptionalInt(q.Get("offset"), 0, 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid offset")
		return
	}

	walletID, entries, err := h.wallet.GetUserLedger(r.Context(), userID, assetTypeID, limit, offset)
	if err != nil {
		if errors.Is(err, walletsrepo.ErrWalletNotFound) {
			writeError(w, http.StatusNotFound, "wallet not found")
			return
		}

		slog.Error("get ledger failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")

		return
	}

	out := make([]ledgerEntryDTO, 0, len(entries))
	for _, e := range entries {
		out = append(out, newLedgerEntryDTO(e))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"wallet_id": walletID,
		"entries":   out,
	})
}

func newLedgerEntryDTO(e ledgerrepo.Entry) ledgerEntryDTO {
	return ledgerEntryDTO{
		ID:         strconv.FormatUint(e.ID, 10),
		WalletID:   e.WalletID,
		Type:       string(e.Type),
		Amount:     e.Amount,
		SourceType: e.SourceType,
		Reference:  e.ReferenceID,
		Metadata:   e.Metadata,
		CreatedAt:  e.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func parseOptionalInt(raw string, def, min int) (int, error) {
	if raw == "" {
		return def, nil
	}

	v, err := strconv.Atoi(raw)
	if err != nil || v < min {
		return 0, errors.New("invalid integer")
	}

	return v, nil
}
