package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	assetsrepo "asset-wallet/internal/repos/assets"
	usersrepo "asset-wallet/internal/repos/users"
)

// User and asset management endpoints. These are plain CRUD collaborators
// of the ledger engine; the engine itself never mutates either table.

type createUserRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type userDTO struct {
	ID        uint64 `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	CreatedAt string `json:"created_at"`
}

func newUserDTO(u usersrepo.User) userDTO {
	return userDTO{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		CreatedAt: u.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// CreateUserHandler handles POST /users
func (h *HandlerProvider) CreateUserHandler(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest

	err := decodeBody(w, r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	if !isPlausibleEmail(req.Email) {
		writeError(w, http.StatusBadRequest, "invalid email")
		return
	}

	u, err := h.users.Create(r.Context(), req.Name, req.Email)
	if err != nil {
		if errors.Is(err, usersrepo.ErrEmailTaken) {
			writeError(w, http.StatusBadRequest, "user already exists")
			return
		}

		slog.Error("create user failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")

		return
	}

	writeJSON(w, http.StatusCreated, newUserDTO(*u))
}

// FindUsersHandler handles GET /users with optional id or email filters.
func (h *HandlerProvider) FindUsersHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if raw := q.Get("id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || id == 0 {
			writeError(w, http.StatusBadRequest, "invalid id")
			return
		}

		u, err := h.users.GetByID(r.Context(), id)
		if err != nil {
			h.writeUserLookupError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, newUserDTO(*u))

		return
	}

	if email := q.Get("email"); email != "" {
		u, err := h.users.GetByEmail(r.Context(), email)
		if err != nil {
			h.writeUserLookupError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, newUserDTO(*u))

		return
	}

	us, err := h.users.List(r.Context())
	if err != nil {
		slog.Error("list users failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")

		return
	}

	out := make([]userDTO, 0, len(us))
	for _, u := range us {
		out = append(out, newUserDTO(u))
	}

	writeJSON(w, http.StatusOK, out)
}

func (h *HandlerProvider) writeUserLookupError(w http.ResponseWriter, err error) {
	if errors.Is(err, usersrepo.ErrUserNotFound) {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}

	slog.Error("user lookup failed", "error", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

type createAssetRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status"`
}

type assetDTO struct {
	ID          uint64 `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at"`
}

func newAssetDTO(a assetsrepo.Asset) assetDTO {
	return assetDTO{
		ID:          a.ID,
		Name:        a.Name,
		Description: a.Description,
		Status:      string(a.Status),
		CreatedAt:   a.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// CreateAssetHandler handles POST /assets
func (h *HandlerProvider) CreateAssetHandler(w http.ResponseWriter, r *http.Request) {
	var req createAssetRequest

	err := decodeBody(w, r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	name := strings.TrimSpace(req.Name)
	if len(name) < 2 || len(name) > 100 {
		writeError(w, http.StatusBadRequest, "name must be 2-100 characters")
		return
	}

	status := assetsrepo.Status(req.Status)
	if status != assetsrepo.StatusActive && status != assetsrepo.StatusInactive {
		writeError(w, http.StatusBadRequest, "status must be ACTIVE or INACTIVE")
		return
	}

	a, err := h.assets.Create(r.Context(), name, req.Description, status)
	if err != nil {
		if errors.Is(err, assetsrepo.ErrAssetNameTaken) {
			writeError(w, http.StatusConflict, "asset already exists")
			return
		}

		slog.Error("create asset failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")

		return
	}

	writeJSON(w, http.StatusCreated, newAssetDTO(*a))
}

// ListAssetsHandler handles GET /assets
func (h *HandlerProvider) ListAssetsHandler(w http.ResponseWriter, r *http.Request) {
	as, err := h.assets.ListActive(r.Context())
	if err != nil {
		slog.Error("list assets failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")

		return
	}

	out := make([]assetDTO, 0, len(as))
	for _, a := range as {
		out = append(out, newAssetDTO(a))
	}

	writeJSON(w, http.StatusOK, out)
}

// GetAssetHandler handles GET /assets/{assetId}
func (h *HandlerProvider) GetAssetHandler(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "assetId")

	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		writeError(w, http.StatusBadRequest, "invalid assetId")
		return
	}

	a, err := h.assets.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, assetsrepo.ErrAssetNotFound) {
			writeError(w, http.StatusNotFound, "asset not found")
			return
		}

		slog.Error("get asset failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")

		return
	}

	writeJSON(w, http.StatusOK, newAssetDTO(*a))
}

func isPlausibleEmail(s string) bool {
	s = strings.TrimSpace(s)

	at := strings.Index(s, "@")

	return at > 0 && at < len(s)-1 && !strings.ContainsAny(s, " \t")
}
