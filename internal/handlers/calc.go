package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/example/strcalc/internal/cache"
	"github.com/example/strcalc/internal/calculator"
	"github.com/example/strcalc/internal/ctxutil"
	"github.com/example/strcalc/internal/history"
	"go.uber.org/zap"
)

// CalcDeps bundles what the calculation handlers need.
type CalcDeps struct {
	Calc           *calculator.Calculator
	Cache          *cache.Cache
	History        history.Recorder // optional
	Logger         *zap.Logger
	Timeout        time.Duration
	MaxConcurrency int
	MaxBatch       int
	MaxInputBytes  int64
}

// bodyLimit caps a request carrying n inputs. MaxInputBytes bounds the
// decoded input, and JSON may spell one input byte as a six-byte \u escape.
func (d *CalcDeps) bodyLimit(n int) int64 {
	if d.MaxInputBytes <= 0 {
		return 0
	}
	return int64(n) * (6*d.MaxInputBytes + 64)
}

func (d *CalcDeps) inputTooLarge(input string) bool {
	return d.MaxInputBytes > 0 && int64(len(input)) > d.MaxInputBytes
}

func (d *CalcDeps) logger() *zap.Logger {
	if d.Logger == nil {
		return zap.NewNop()
	}
	return d.Logger
}

// evaluate returns the memoized outcome for input. A rejected input comes
// back as a Value with Negatives set, not as an error.
func (d *CalcDeps) evaluate(ctx context.Context, input string) (cache.Value, cache.Source, error) {
	if d.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.Timeout)
		defer cancel()
	}
	v, src, err := d.Cache.GetOrCompute(ctx, input, func(ctx context.Context) (cache.Value, error) {
		if err := ctx.Err(); err != nil {
			return cache.Value{}, err
		}
		start := time.Now()
		v := compute(d.Calc, input)
		d.logger().Debug("computed",
			zap.Int("input_len", len(input)),
			zap.Int("sum", v.Sum),
			zap.Int("negatives", len(v.Negatives)),
			zap.Duration("took", time.Since(start)))
		return v, nil
	})
	if err != nil {
		return cache.Value{}, "", err
	}
	d.record(ctx, input, v, src)
	return v, src, nil
}

func compute(c *calculator.Calculator, input string) cache.Value {
	v := cache.Value{ComputedAt: time.Now().UTC()}
	res, err := c.Evaluate(input)
	var negErr *calculator.NegativeNumbersError
	if errors.As(err, &negErr) {
		v.Negatives = negErr.Numbers
		return v
	}
	v.Sum = res.Sum
	v.Ignored = res.Ignored
	v.Delimiters = make([]string, len(res.Delimiters))
	for i, r := range res.Delimiters {
		v.Delimiters[i] = string(r)
	}
	return v
}

func (d *CalcDeps) record(ctx context.Context, input string, v cache.Value, src cache.Source) {
	if d.History == nil {
		return
	}
	rec := history.Record{
		Input:     input,
		Sum:       v.Sum,
		Negatives: v.Negatives,
		Source:    string(src),
		Client:    ctxutil.Client(ctx),
		CreatedAt: time.Now().UTC(),
	}
	if err := d.History.Append(context.WithoutCancel(ctx), rec); err != nil {
		d.logger().Warn("history append failed",
			zap.String("req_id", ctxutil.RequestID(ctx)),
			zap.Error(err))
	}
}

func negativesError(negatives []int) string {
	return (&calculator.NegativeNumbersError{Numbers: negatives}).Error()
}
