package handlers

import (
	"errors"
	"net/http"

	"github.com/example/strcalc/internal/ctxutil"
	"github.com/example/strcalc/internal/types"
	"github.com/example/strcalc/pkg/jsonutil"
	"go.uber.org/zap"
)

// AddHandler serves POST /api/add.
type AddHandler struct{ Deps CalcDeps }

func NewAddHandler(deps CalcDeps) *AddHandler { return &AddHandler{Deps: deps} }

func (h *AddHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req types.AddRequest
	if err := jsonutil.Decode(w, r, h.Deps.bodyLimit(1), &req); err != nil {
		if errors.Is(err, jsonutil.ErrTooLarge) {
			jsonutil.Error(w, http.StatusRequestEntityTooLarge, "input too large")
			return
		}
		jsonutil.Error(w, http.StatusBadRequest, "bad request")
		return
	}
	if h.Deps.inputTooLarge(req.Input) {
		jsonutil.Error(w, http.StatusRequestEntityTooLarge, "input too large")
		return
	}

	v, src, err := h.Deps.evaluate(r.Context(), req.Input)
	if err != nil {
		h.Deps.logger().Warn("evaluate failed", zap.String("req_id", ctxutil.RequestID(r.Context())), zap.Error(err))
		jsonutil.Error(w, http.StatusServiceUnavailable, "calculation timed out")
		return
	}
	if len(v.Negatives) > 0 {
		jsonutil.JSON(w, http.StatusUnprocessableEntity, types.NegativesResponse{
			Error:     negativesError(v.Negatives),
			Negatives: v.Negatives,
		})
		return
	}
	h.Deps.logger().Info("add",
		zap.String("req_id", ctxutil.RequestID(r.Context())),
		zap.String("source", string(src)),
		zap.Int("sum", v.Sum))
	jsonutil.JSON(w, http.StatusOK, types.NewAddResult(req.Input, v, src))
}
