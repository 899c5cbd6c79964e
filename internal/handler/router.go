package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/tweetdigest/internal/middleware"
)

// RouterDeps はルーター構築に必要な依存の集合。
type RouterDeps struct {
	AuthHandler   *AuthHandler
	UserHandler   *UserHandler
	DigestHandler *DigestHandler

	SessionFinder  middleware.SessionFinder
	RateLimiter    *middleware.RateLimiter
	MetricsHandler http.Handler
	Logger         *slog.Logger

	CORSAllowedOrigin string
}

// NewRouter はアプリケーションのHTTPルーターを構築する。
func NewRouter(deps RouterDeps) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// 認証フロー（セッション不要）
	r.Route("/auth", func(r chi.Router) {
		r.Get("/twitter/login", deps.AuthHandler.Login)
		r.Get("/twitter/callback", deps.AuthHandler.Callback)
		r.Post("/logout", deps.AuthHandler.Logout)
		r.Get("/me", deps.AuthHandler.Me)
	})

	// 認証必須API
	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Route("/users/me", func(r chi.Router) {
			r.Get("/", deps.UserHandler.GetProfile)
			r.Put("/email", deps.UserHandler.UpdateEmail)
			r.Put("/preferences", deps.UserHandler.UpdatePreferences)
			r.Delete("/", deps.UserHandler.Withdraw)
		})

		r.Post("/twitter/disconnect", deps.AuthHandler.DisconnectTwitter)

		r.Route("/digests", func(r chi.Router) {
			r.Get("/", deps.DigestHandler.History)
			// 手動実行は外部APIを直接叩くため、より厳しいレート制限を適用する
			r.With(deps.RateLimiter.DigestTriggerMiddleware()).Post("/test", deps.DigestHandler.RunTest)
			r.With(deps.RateLimiter.DigestTriggerMiddleware()).Post("/run", deps.DigestHandler.RunBatch)
		})
	})

	return r
}
