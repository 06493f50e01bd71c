package handlers

import (
	"net/http"

	"github.com/example/strcalc/internal/auth"
	"github.com/example/strcalc/internal/types"
	"github.com/example/strcalc/pkg/jsonutil"
	"go.uber.org/zap"
)

// SignupHandler issues an API key without admin auth. For testing only.
type SignupHandler struct {
	Store  auth.KeyCreator
	Logger *zap.Logger
}

func NewSignupHandler(store auth.KeyCreator, logger *zap.Logger) *SignupHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SignupHandler{Store: store, Logger: logger}
}

type signupRequest struct {
	Owner string `json:"owner"`
	Email string `json:"email"`
}

type signupResponse struct {
	Key     string `json:"key"`
	Active  bool   `json:"active"`
	Owner   string `json:"owner,omitempty"`
	Email   string `json:"email,omitempty"`
	Created string `json:"created_at"`
}

func (h *SignupHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonutil.Error(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req signupRequest
	if err := jsonutil.Decode(w, r, 4<<10, &req); err != nil {
		jsonutil.Error(w, http.StatusBadRequest, "bad request")
		return
	}
	key := newKey()
	if err := h.Store.Create(r.Context(), key, true, req.Owner); err != nil {
		h.Logger.Error("signup failed", zap.Error(err))
		jsonutil.Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.Logger.Info("signup", zap.String("api", auth.HashPrefix(key)), zap.String("owner", req.Owner))
	jsonutil.JSON(w, http.StatusOK, signupResponse{
		Key:     key,
		Active:  true,
		Owner:   req.Owner,
		Email:   req.Email,
		Created: types.NowRFC3339(),
	})
}
