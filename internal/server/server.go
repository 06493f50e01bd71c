package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/example/strcalc/internal/auth"
	"github.com/example/strcalc/internal/cache"
	"github.com/example/strcalc/internal/calculator"
	"github.com/example/strcalc/internal/config"
	"github.com/example/strcalc/internal/handlers"
	apihttp "github.com/example/strcalc/internal/http"
	"github.com/example/strcalc/internal/history"
	"github.com/example/strcalc/internal/rate"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// App is a fully wired HTTP handler plus the resources it owns.
type App struct {
	Handler http.Handler
	closers []func()
}

// Close releases the limiter reaper and the mongo connection.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// New wires the service from cfg. Without MONGO_URI, API keys are not
// required (unless DevKeys are given) and history is kept in memory.
func New(ctx context.Context, cfg config.Config, log *zap.Logger, devKeys ...string) (*App, error) {
	app := &App{}

	var (
		keyStore auth.KeyStore
		admin    handlers.AdminStore
		creator  auth.KeyCreator
		recorder history.Recorder = history.NewMemoryRecorder(cfg.HistorySize)
	)
	if cfg.MongoURI != "" {
		cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		client, err := mongo.Connect(cctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			return nil, fmt.Errorf("mongo connect: %w", err)
		}
		app.closers = append(app.closers, func() { _ = client.Disconnect(context.Background()) })

		store, err := auth.NewMongoKeyStore(cctx, client, cfg.MongoDB, cfg.KeyCacheTTL)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("api key store init: %w", err)
		}
		rec, err := history.NewMongoRecorder(cctx, client, cfg.MongoDB)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("history init: %w", err)
		}
		keyStore, admin, creator, recorder = store, store, store, rec
	} else if len(devKeys) > 0 {
		static := auth.StaticKeyStore{}
		for _, k := range devKeys {
			static[k] = true
		}
		keyStore = static
	}
	if cfg.DisableAuth {
		keyStore = nil
	}

	c := cache.NewBounded(cfg.CacheTTL, cfg.CacheMaxItems)
	app.closers = append(app.closers, c.StartSweeper(cfg.CacheTTL))
	deps := handlers.CalcDeps{
		Calc:           calculator.New(),
		Cache:          c,
		History:        recorder,
		Logger:         log,
		Timeout:        cfg.ComputeTimeout,
		MaxConcurrency: cfg.MaxConcurrency,
		MaxBatch:       cfg.MaxBatch,
		MaxInputBytes:  cfg.MaxInputBytes,
	}
	lm := rate.NewLimiterMap(cfg.RateLimitRPM, cfg.RateLimitBurst, 5*time.Minute)
	app.closers = append(app.closers, lm.Stop)

	rd := apihttp.Deps{
		Add:     handlers.NewAddHandler(deps),
		Batch:   handlers.NewBatchHandler(deps),
		History: handlers.NewHistoryHandler(recorder, log),
		Limiter: lm,
		Store:   keyStore,
		Logger:  log,
	}
	if admin != nil && cfg.AdminToken != "" {
		rd.Admin = handlers.NewAdminHandler(admin, c, cfg.AdminToken, log)
	}
	if creator != nil {
		rd.Signup = handlers.NewSignupHandler(creator, log)
	}
	if keyStore == nil {
		log.Warn("api key auth disabled; /api is open")
	}
	app.Handler = apihttp.NewRouter(rd)
	return app, nil
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func Run(ctx context.Context, cfg config.Config, log *zap.Logger, devKeys ...string) error {
	app, err := New(ctx, cfg, log, devKeys...)
	if err != nil {
		return err
	}
	defer app.Close()

	srv := &http.Server{
		Addr:         ":" + SanitizePort(cfg.Port),
		Handler:      app.Handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	log.Info("shutting down")
	shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shCtx)
}

// SanitizePort returns a sensible default when empty.
func SanitizePort(p string) string {
	if p == "" {
		return "8080"
	}
	return p
}
