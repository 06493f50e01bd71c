package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"

	"github.com/example/strcalc/internal/auth"
	"github.com/example/strcalc/internal/cache"
	"github.com/example/strcalc/internal/types"
	"github.com/example/strcalc/pkg/jsonutil"
	"go.uber.org/zap"
)

// AdminStore is what the admin endpoints need from the key store.
type AdminStore interface {
	auth.KeyCreator
	auth.KeyRevoker
}

// AdminHandler provides admin-only endpoints: key issue, key revoke and cache purge.
type AdminHandler struct {
	Store      AdminStore
	Cache      *cache.Cache // optional
	AdminToken string
	Logger     *zap.Logger
}

func NewAdminHandler(store AdminStore, c *cache.Cache, adminToken string, logger *zap.Logger) *AdminHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminHandler{Store: store, Cache: c, AdminToken: adminToken, Logger: logger}
}

// createKeyRequest is the request payload for creating a key.
// If Key is empty, a random 32-byte hex string will be generated.
type createKeyRequest struct {
	Key   string `json:"key"`
	Owner string `json:"owner"`
}

type createKeyResponse struct {
	Key     string `json:"key"`
	Active  bool   `json:"active"`
	Owner   string `json:"owner,omitempty"`
	Created string `json:"created_at"`
}

type revokeKeyRequest struct {
	Key string `json:"key"`
}

// Authorized wraps next with the X-Admin-Token check.
func (h *AdminHandler) Authorized(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			jsonutil.Error(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		if h.AdminToken == "" || r.Header.Get("X-Admin-Token") != h.AdminToken {
			jsonutil.Error(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r)
	}
}

// CreateKey handles POST /admin/create-key.
func (h *AdminHandler) CreateKey(w http.ResponseWriter, r *http.Request) {
	var req createKeyRequest
	if err := jsonutil.Decode(w, r, 4<<10, &req); err != nil {
		jsonutil.Error(w, http.StatusBadRequest, "bad request")
		return
	}
	key := req.Key
	if key == "" {
		key = newKey()
	}
	if err := h.Store.Create(r.Context(), key, true, req.Owner); err != nil {
		h.Logger.Error("create key failed", zap.Error(err))
		jsonutil.Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.Logger.Info("api key created", zap.String("api", auth.HashPrefix(key)), zap.String("owner", req.Owner))
	jsonutil.JSON(w, http.StatusOK, createKeyResponse{
		Key:     key,
		Active:  true,
		Owner:   req.Owner,
		Created: types.NowRFC3339(),
	})
}

// RevokeKey handles POST /admin/revoke-key.
func (h *AdminHandler) RevokeKey(w http.ResponseWriter, r *http.Request) {
	var req revokeKeyRequest
	if err := jsonutil.Decode(w, r, 4<<10, &req); err != nil || req.Key == "" {
		jsonutil.Error(w, http.StatusBadRequest, "bad request")
		return
	}
	found, err := h.Store.Revoke(r.Context(), req.Key)
	if err != nil {
		h.Logger.Error("revoke key failed", zap.Error(err))
		jsonutil.Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !found {
		jsonutil.Error(w, http.StatusNotFound, "unknown key")
		return
	}
	h.Logger.Info("api key revoked", zap.String("api", auth.HashPrefix(req.Key)))
	jsonutil.JSON(w, http.StatusOK, map[string]any{"key": req.Key, "active": false})
}

// PurgeCache handles POST /admin/purge-cache.
func (h *AdminHandler) PurgeCache(w http.ResponseWriter, r *http.Request) {
	n := 0
	if h.Cache != nil {
		n = h.Cache.Purge()
	}
	h.Logger.Info("cache purged", zap.Int("entries", n))
	jsonutil.JSON(w, http.StatusOK, map[string]int{"purged": n})
}

func newKey() string {
	var b [32]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
