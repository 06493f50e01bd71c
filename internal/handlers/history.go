package handlers

import (
	"net/http"
	"strconv"

	"github.com/example/strcalc/internal/ctxutil"
	"github.com/example/strcalc/internal/history"
	"github.com/example/strcalc/internal/types"
	"github.com/example/strcalc/pkg/jsonutil"
	"go.uber.org/zap"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// HistoryHandler serves GET /api/history for the calling client.
type HistoryHandler struct {
	Recorder history.Recorder
	Logger   *zap.Logger
}

func NewHistoryHandler(rec history.Recorder, logger *zap.Logger) *HistoryHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HistoryHandler{Recorder: rec, Logger: logger}
}

func (h *HistoryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			jsonutil.Error(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxHistoryLimit)
	}
	recs, err := h.Recorder.Recent(r.Context(), ctxutil.Client(r.Context()), limit)
	if err != nil {
		h.Logger.Error("history lookup failed", zap.String("req_id", ctxutil.RequestID(r.Context())), zap.Error(err))
		jsonutil.Error(w, http.StatusInternalServerError, "history unavailable")
		return
	}
	resp := types.HistoryResponse{Entries: make([]types.HistoryEntry, 0, len(recs))}
	for _, rec := range recs {
		resp.Entries = append(resp.Entries, types.HistoryEntry{
			Input:     rec.Input,
			Sum:       rec.Sum,
			Negatives: rec.Negatives,
			Source:    rec.Source,
			CreatedAt: types.RFC3339(rec.CreatedAt),
		})
	}
	jsonutil.JSON(w, http.StatusOK, resp)
}
