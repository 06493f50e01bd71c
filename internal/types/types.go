package types

import (
	"time"

	"github.com/example/strcalc/internal/cache"
)

// AddRequest is the payload for POST /api/add.
type AddRequest struct {
	Input string `json:"input"`
}

// AddResult is a successful evaluation.
type AddResult struct {
	Input      string   `json:"input"`
	Sum        int      `json:"sum"`
	Source     string   `json:"source"` // "cache" or "computed"
	Delimiters []string `json:"delimiters"`
	Ignored    []int    `json:"ignored,omitempty"`
	ComputedAt string   `json:"computed_at"` // RFC3339
}

// ErrorEntry describes an input that could not be summed.
type ErrorEntry struct {
	Input     string `json:"input"`
	Error     string `json:"error"`
	Negatives []int  `json:"negatives,omitempty"`
}

// NegativesResponse is returned with 422 when /api/add sees negative numbers.
type NegativesResponse struct {
	Error     string `json:"error"`
	Negatives []int  `json:"negatives"`
}

// BatchRequest is the payload for POST /api/add-batch.
type BatchRequest struct {
	Inputs []string `json:"inputs"`
}

// BatchResponse keeps results in request order; rejected inputs go to Errors.
type BatchResponse struct {
	Results []AddResult  `json:"results"`
	Errors  []ErrorEntry `json:"errors"`
	Total   int          `json:"total"` // sum over Results
}

// HistoryEntry is one row of GET /api/history.
type HistoryEntry struct {
	Input     string `json:"input"`
	Sum       int    `json:"sum"`
	Negatives []int  `json:"negatives,omitempty"`
	Source    string `json:"source"`
	CreatedAt string `json:"created_at"`
}

// HistoryResponse is the JSON response for the history endpoint.
type HistoryResponse struct {
	Entries []HistoryEntry `json:"entries"`
}

// RFC3339 formats t in UTC, the timestamp form used by every response.
func RFC3339(t time.Time) string { return t.UTC().Format(time.RFC3339) }

func NowRFC3339() string { return RFC3339(time.Now()) }

// NewAddResult builds the response entry for a cached or computed value.
func NewAddResult(input string, v cache.Value, source cache.Source) AddResult {
	delims := v.Delimiters
	if delims == nil {
		delims = []string{}
	}
	return AddResult{
		Input:      input,
		Sum:        v.Sum,
		Source:     string(source),
		Delimiters: delims,
		Ignored:    v.Ignored,
		ComputedAt: RFC3339(v.ComputedAt),
	}
}

// TotalSum sums the results of a batch.
func TotalSum(results []AddResult) int {
	total := 0
	for i := range results {
		total += results[i].Sum
	}
	return total
}
