package server

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/example/strcalc/internal/config"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestSanitizePort(t *testing.T) {
	if SanitizePort("") != "8080" { t.Fatalf("sanitize") }
	if SanitizePort("9090") != "9090" { t.Fatalf("sanitize pass") }
}

func TestNew_InMemoryWithoutMongo(t *testing.T) {
	cfg := config.Defaults()
	app, err := New(context.Background(), cfg, zap.NewNop())
	if err != nil { t.Fatalf("new: %v", err) }
	defer app.Close()

	ts := httptest.NewServer(app.Handler)
	defer ts.Close()
	resp, err := http.Post(ts.URL+"/api/add", "application/json", bytes.NewReader([]byte(`{"input":"//$\n1$2$3"}`)))
	if err != nil { t.Fatalf("post: %v", err) }
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK { t.Fatalf("status=%d", resp.StatusCode) }
}

func TestNew_DevKeysRequireAuth(t *testing.T) {
	cfg := config.Defaults()
	app, err := New(context.Background(), cfg, zap.NewNop(), "dev-123")
	if err != nil { t.Fatalf("new: %v", err) }
	defer app.Close()

	ts := httptest.NewServer(app.Handler)
	defer ts.Close()
	resp, err := http.Post(ts.URL+"/api/add", "application/json", bytes.NewReader([]byte(`{"input":"1"}`)))
	if err != nil { t.Fatalf("post: %v", err) }
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized { t.Fatalf("status=%d", resp.StatusCode) }

	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/api/add", bytes.NewReader([]byte(`{"input":"1"}`)))
	req.Header.Set("X-API-Key", "dev-123")
	resp, err = ts.Client().Do(req)
	if err != nil { t.Fatalf("post: %v", err) }
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK { t.Fatalf("status=%d", resp.StatusCode) }
}

func TestNew_CloseStopsBackgroundWork(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	app, err := New(context.Background(), config.Defaults(), zap.NewNop())
	if err != nil { t.Fatalf("new: %v", err) }
	app.Close()
}

func TestRun_StopsOnCancel(t *testing.T) {
	cfg := config.Defaults()
	cfg.Port = "0"
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Run(ctx, cfg, zap.NewNop()); err != nil { t.Fatalf("run: %v", err) }
}
