package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/example/strcalc/internal/ctxutil"
	"github.com/example/strcalc/internal/types"
	"github.com/example/strcalc/pkg/jsonutil"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// BatchHandler serves POST /api/add-batch.
type BatchHandler struct{ Deps CalcDeps }

func NewBatchHandler(deps CalcDeps) *BatchHandler { return &BatchHandler{Deps: deps} }

type batchOutcome struct {
	result types.AddResult
	failed *types.ErrorEntry
}

func (h *BatchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req types.BatchRequest
	if err := jsonutil.Decode(w, r, h.Deps.bodyLimit(max(h.Deps.MaxBatch, 1)), &req); err != nil {
		if errors.Is(err, jsonutil.ErrTooLarge) {
			jsonutil.Error(w, http.StatusRequestEntityTooLarge, "batch too large")
			return
		}
		jsonutil.Error(w, http.StatusBadRequest, "bad request")
		return
	}
	if len(req.Inputs) == 0 {
		jsonutil.Error(w, http.StatusBadRequest, "inputs required")
		return
	}
	if h.Deps.MaxBatch > 0 && len(req.Inputs) > h.Deps.MaxBatch {
		jsonutil.Error(w, http.StatusBadRequest, "too many inputs")
		return
	}

	outcomes := make([]batchOutcome, len(req.Inputs))
	g, ctx := errgroup.WithContext(r.Context())
	if h.Deps.MaxConcurrency > 0 {
		g.SetLimit(h.Deps.MaxConcurrency)
	}
	for i, input := range req.Inputs {
		g.Go(func() error {
			outcomes[i] = h.evaluateOne(ctx, input)
			return nil
		})
	}
	_ = g.Wait()

	resp := types.BatchResponse{Results: make([]types.AddResult, 0, len(req.Inputs))}
	for _, o := range outcomes {
		if o.failed != nil {
			resp.Errors = append(resp.Errors, *o.failed)
			continue
		}
		resp.Results = append(resp.Results, o.result)
	}
	resp.Total = types.TotalSum(resp.Results)

	h.Deps.logger().Info("add_batch",
		zap.String("req_id", ctxutil.RequestID(r.Context())),
		zap.Int("inputs", len(req.Inputs)),
		zap.Int("errors", len(resp.Errors)))
	jsonutil.JSON(w, http.StatusOK, resp)
}

func (h *BatchHandler) evaluateOne(ctx context.Context, input string) batchOutcome {
	if h.Deps.inputTooLarge(input) {
		return batchOutcome{failed: &types.ErrorEntry{Input: input, Error: "input too large"}}
	}
	v, src, err := h.Deps.evaluate(ctx, input)
	if err != nil {
		return batchOutcome{failed: &types.ErrorEntry{Input: input, Error: err.Error()}}
	}
	if len(v.Negatives) > 0 {
		return batchOutcome{failed: &types.ErrorEntry{
			Input:     input,
			Error:     negativesError(v.Negatives),
			Negatives: v.Negatives,
		}}
	}
	return batchOutcome{result: types.NewAddResult(input, v, src)}
}
