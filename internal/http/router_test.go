package apihttp_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/example/strcalc/internal/auth"
	"github.com/example/strcalc/internal/cache"
	"github.com/example/strcalc/internal/calculator"
	"github.com/example/strcalc/internal/handlers"
	apihttp "github.com/example/strcalc/internal/http"
	"github.com/example/strcalc/internal/history"
	"github.com/example/strcalc/internal/rate"
	"github.com/example/strcalc/internal/types"
)

type fakeStore struct {
	ok      bool
	pingErr error
}

func (f fakeStore) Validate(_ context.Context, _ string) (bool, error) { return f.ok, nil }
func (f fakeStore) Ping(_ context.Context) error                      { return f.pingErr }

type errString string

func (e errString) Error() string { return string(e) }

type testServer struct {
	*httptest.Server
	cache   *cache.Cache
	history *history.MemoryRecorder
}

func newTestServer(t *testing.T, store auth.KeyStore, rpm int) *testServer {
	t.Helper()
	c := cache.New(10 * time.Second)
	mem := history.NewMemoryRecorder(100)
	deps := handlers.CalcDeps{
		Calc:           calculator.New(),
		Cache:          c,
		History:        mem,
		Timeout:        time.Second,
		MaxConcurrency: 4,
		MaxBatch:       10,
		MaxInputBytes:  1024,
	}
	lm := rate.NewLimiterMap(rpm, rpm, time.Minute)
	t.Cleanup(lm.Stop)
	r := apihttp.NewRouter(apihttp.Deps{
		Add:     handlers.NewAddHandler(deps),
		Batch:   handlers.NewBatchHandler(deps),
		History: handlers.NewHistoryHandler(mem, nil),
		Limiter: lm,
		Store:   store,
	})
	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)
	return &testServer{Server: ts, cache: c, history: mem}
}

func doAdd(t *testing.T, ts *testServer, input, key string) (*http.Response, []byte) {
	t.Helper()
	b, _ := json.Marshal(types.AddRequest{Input: input})
	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/api/add", bytes.NewReader(b))
	if key != "" { req.Header.Set("X-API-Key", key) }
	resp, err := ts.Client().Do(req)
	if err != nil { t.Fatalf("request error: %v", err) }
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	return resp, buf.Bytes()
}

func TestHealthz(t *testing.T) {
	cases := []struct {
		name  string
		store auth.KeyStore
		want  int
	}{
		{"no store", nil, http.StatusOK},
		{"ping ok", fakeStore{ok: true}, http.StatusOK},
		{"ping error", fakeStore{pingErr: errString("down")}, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ts := newTestServer(t, tc.store, 1000)
			resp, err := http.Get(ts.URL + "/healthz")
			if err != nil { t.Fatalf("request error: %v", err) }
			resp.Body.Close()
			if resp.StatusCode != tc.want { t.Fatalf("status=%d", resp.StatusCode) }
			if resp.Header.Get("X-Request-ID") == "" { t.Fatalf("missing request id") }
		})
	}
}

func TestAdd_RequiresAPIKey(t *testing.T) {
	ts := newTestServer(t, fakeStore{ok: true}, 1000)
	resp, _ := doAdd(t, ts, "1,2", "")
	if resp.StatusCode != http.StatusUnauthorized { t.Fatalf("status=%d", resp.StatusCode) }

	ts = newTestServer(t, fakeStore{ok: false}, 1000)
	resp, _ = doAdd(t, ts, "1,2", "revoked")
	if resp.StatusCode != http.StatusForbidden { t.Fatalf("status=%d", resp.StatusCode) }
}

func TestAdd_EndToEnd(t *testing.T) {
	ts := newTestServer(t, fakeStore{ok: true}, 1000)
	cases := map[string]int{
		"":                      0,
		"1,2,5":                 8,
		"1\n,2,3":               6,
		"1,\n2,4":               7,
		"//$\n1$2$3":            6,
		"//@\n2@3@8":            13,
		"2,1001":                2,
		"//***\n1***2***3":      6,
		"//$,@\n1$2@3":          6,
		"//$$$$,@@\n1$$$$4@@3":  8,
	}
	for in, want := range cases {
		resp, body := doAdd(t, ts, in, "dev-123")
		if resp.StatusCode != http.StatusOK { t.Fatalf("%q: status=%d body=%s", in, resp.StatusCode, body) }
		var out types.AddResult
		if err := json.Unmarshal(body, &out); err != nil { t.Fatalf("decode: %v", err) }
		if out.Sum != want { t.Fatalf("%q: sum=%d want %d", in, out.Sum, want) }
	}
}

func TestAdd_NegativesEndToEnd(t *testing.T) {
	ts := newTestServer(t, fakeStore{ok: true}, 1000)
	resp, body := doAdd(t, ts, "1,2,3,-5,-7", "dev-123")
	if resp.StatusCode != http.StatusUnprocessableEntity { t.Fatalf("status=%d", resp.StatusCode) }
	var out types.NegativesResponse
	if err := json.Unmarshal(body, &out); err != nil { t.Fatalf("decode: %v", err) }
	if len(out.Negatives) != 2 || out.Negatives[0] != -5 || out.Negatives[1] != -7 { t.Fatalf("negatives=%v", out.Negatives) }
}

func TestAdd_HistoryIsPerClient(t *testing.T) {
	ts := newTestServer(t, fakeStore{ok: true}, 1000)
	doAdd(t, ts, "1,2", "key-a")
	doAdd(t, ts, "3,4", "key-b")

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/history", nil)
	req.Header.Set("X-API-Key", "key-a")
	resp, err := ts.Client().Do(req)
	if err != nil { t.Fatalf("request error: %v", err) }
	defer resp.Body.Close()
	var out types.HistoryResponse
	_ = json.NewDecoder(resp.Body).Decode(&out)
	if len(out.Entries) != 1 || out.Entries[0].Input != "1,2" { t.Fatalf("entries=%+v", out.Entries) }
}

func TestAdd_CoalescesConcurrentRequests(t *testing.T) {
	ts := newTestServer(t, fakeStore{ok: true}, 1000)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, _ := doAdd(t, ts, "//;\n1;2;3", "dev-123")
			if resp.StatusCode != http.StatusOK { t.Errorf("status=%d", resp.StatusCode) }
		}()
	}
	wg.Wait()
	if ts.cache.Len() != 1 { t.Fatalf("cache len=%d", ts.cache.Len()) }
}

func TestBatch_EndToEnd(t *testing.T) {
	ts := newTestServer(t, fakeStore{ok: true}, 1000)
	b, _ := json.Marshal(types.BatchRequest{Inputs: []string{"1,2", "-1,-2", "5"}})
	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/api/add-batch", bytes.NewReader(b))
	req.Header.Set("X-API-Key", "dev-123")
	resp, err := ts.Client().Do(req)
	if err != nil { t.Fatalf("request error: %v", err) }
	defer resp.Body.Close()
	var out types.BatchResponse
	_ = json.NewDecoder(resp.Body).Decode(&out)
	if resp.StatusCode != http.StatusOK || len(out.Results) != 2 || len(out.Errors) != 1 || out.Total != 8 {
		t.Fatalf("status=%d out=%+v", resp.StatusCode, out)
	}
}

func TestRateLimit_PerAPIKey(t *testing.T) {
	ts := newTestServer(t, fakeStore{ok: true}, 1) // 1 rpm, burst 1
	if resp, _ := doAdd(t, ts, "1", "key-a"); resp.StatusCode != http.StatusOK { t.Fatalf("first status=%d", resp.StatusCode) }
	if resp, _ := doAdd(t, ts, "1", "key-a"); resp.StatusCode != http.StatusTooManyRequests { t.Fatalf("second status=%d", resp.StatusCode) }
	if resp, _ := doAdd(t, ts, "1", "key-b"); resp.StatusCode != http.StatusOK { t.Fatalf("other key status=%d", resp.StatusCode) }
}

func TestNoStoreServesAnonymously(t *testing.T) {
	ts := newTestServer(t, nil, 1000)
	resp, _ := doAdd(t, ts, "1,2", "")
	if resp.StatusCode != http.StatusOK { t.Fatalf("status=%d", resp.StatusCode) }
}

func TestHistory_AnonymousCallersAreSeparated(t *testing.T) {
	ts := newTestServer(t, nil, 1000)
	send := func(method, path, ip string, body []byte) *http.Response {
		req, _ := http.NewRequest(method, ts.URL+path, bytes.NewReader(body))
		req.Header.Set("X-Forwarded-For", ip)
		resp, err := ts.Client().Do(req)
		if err != nil { t.Fatalf("request error: %v", err) }
		return resp
	}
	for _, ip := range []string{"10.0.0.1", "10.0.0.2"} {
		b, _ := json.Marshal(types.AddRequest{Input: "from-" + ip + ",1"})
		resp := send(http.MethodPost, "/api/add", ip, b)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK { t.Fatalf("status=%d", resp.StatusCode) }
	}

	history := func(ip string) types.HistoryResponse {
		resp := send(http.MethodGet, "/api/history", ip, nil)
		defer resp.Body.Close()
		var out types.HistoryResponse
		_ = json.NewDecoder(resp.Body).Decode(&out)
		return out
	}
	if out := history("10.0.0.3"); len(out.Entries) != 0 { t.Fatalf("stranger saw entries: %+v", out.Entries) }
	out := history("10.0.0.1")
	if len(out.Entries) != 1 || out.Entries[0].Input != "from-10.0.0.1,1" { t.Fatalf("entries=%+v", out.Entries) }
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t, fakeStore{ok: true}, 1000)
	req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/api/add", nil)
	resp, err := ts.Client().Do(req)
	if err != nil { t.Fatalf("request error: %v", err) }
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK { t.Fatalf("status=%d", resp.StatusCode) }
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" { t.Fatalf("missing CORS header") }
}
