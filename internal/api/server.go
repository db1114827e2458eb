package api

import (
	"fmt"
	"net/http"
	"time"

	assetsvc "asset-wallet/internal/services/assets"
	usersvc "asset-wallet/internal/services/users"
	walletsvc "asset-wallet/internal/services/wallet"
)

// NewServer creates and returns a configured *http.Server for the wallet API.
func NewServer(port uint16, wallet *walletsvc.Service, users *usersvc.Service, assets *assetsvc.Service) *http.Server {
	mux := NewRouter(wallet, users, assets)

	addr := fmt.Sprintf(":%d", port)

	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
