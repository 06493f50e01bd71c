package apihttp

import (
	"net/http"

	"github.com/example/strcalc/internal/auth"
	"github.com/example/strcalc/internal/handlers"
	"github.com/example/strcalc/internal/rate"
	"github.com/example/strcalc/pkg/jsonutil"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Deps are the handlers and shared services the router wires together.
// Store may be nil, in which case /api is served without authentication.
// Admin and Signup are optional.
type Deps struct {
	Add     *handlers.AddHandler
	Batch   *handlers.BatchHandler
	History *handlers.HistoryHandler
	Admin   *handlers.AdminHandler
	Signup  *handlers.SignupHandler
	Limiter *rate.LimiterMap
	Store   auth.KeyStore
	Logger  *zap.Logger
}

// NewRouter wires routes and middlewares.
func NewRouter(d Deps) http.Handler {
	log := d.Logger
	if log == nil {
		log = zap.NewNop()
	}
	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(Logger(log))
	r.Use(CORS)

	r.Group(func(pub chi.Router) {
		pub.Use(RateLimit(d.Limiter))
		pub.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
			if d.Store != nil {
				if err := d.Store.Ping(r.Context()); err != nil {
					log.Warn("health check failed", zap.Error(err))
					jsonutil.JSON(w, http.StatusInternalServerError, map[string]string{"status": "unhealthy"})
					return
				}
			}
			jsonutil.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})
		if d.Signup != nil {
			pub.Post("/public/signup", d.Signup.ServeHTTP)
		}
		if d.Admin != nil {
			pub.Route("/admin", func(adm chi.Router) {
				adm.Post("/create-key", d.Admin.Authorized(d.Admin.CreateKey))
				adm.Post("/revoke-key", d.Admin.Authorized(d.Admin.RevokeKey))
				adm.Post("/purge-cache", d.Admin.Authorized(d.Admin.PurgeCache))
			})
		}
	})

	r.Route("/api", func(api chi.Router) {
		if d.Store != nil {
			api.Use(Auth(d.Store))
		}
		api.Use(RateLimit(d.Limiter))
		api.Post("/add", d.Add.ServeHTTP)
		api.Post("/add-batch", d.Batch.ServeHTTP)
		if d.History != nil {
			api.Get("/history", d.History.ServeHTTP)
		}
	})

	return r
}
