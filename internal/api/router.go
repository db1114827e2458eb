package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	assetsvc "asset-wallet/internal/services/assets"
	usersvc "asset-wallet/internal/services/users"
	walletsvc "asset-wallet/internal/services/wallet"
)

// NewRouter constructs the chi router with all API endpoints registered.
func NewRouter(wallet *walletsvc.Service, users *usersvc.Service, assets *assetsvc.Service) http.Handler {
	h := NewHandler(wallet, users, assets)
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/users", func(r chi.Router) {
		r.Post("/", h.CreateUserHandler)
		r.Get("/", h.FindUsersHandler)
	})

	r.Route("/assets", func(r chi.Router) {
		r.Post("/", h.CreateAssetHandler)
		r.Get("/", h.ListAssetsHandler)
		r.Get("/{assetId}", h.GetAssetHandler)
	})

	r.Route("/wallets", func(r chi.Router) {
		r.Post("/transactions/topup", h.TopUpHandler)
		r.Post("/transactions/bonus", h.BonusHandler)
		r.Post("/transactions/spend", h.SpendHandler)
		r.Get("/{userId}/balance", h.GetBalancesHandler)
		r.Get("/{userId}/ledger", h.GetLedgerHandler)
	})

	return r
}
