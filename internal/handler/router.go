package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/victor/storefront/internal/metrics"
	"github.com/victor/storefront/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	Logger            *slog.Logger
	CORSAllowedOrigin string

	Applications *CollectionHandler
	Blogs        *CollectionHandler
	Comments     *CommentHandler
	Auth         *AuthHandler

	Gatherer prometheus.Gatherer
}

// NewRouter は全ルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → CORS → SecurityHeaders
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSecurityHeadersMiddleware())

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))

	// 認証
	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/login", deps.Auth.Login)
		r.Post("/logout", deps.Auth.Logout)
		r.Get("/me", deps.Auth.Me)
	})

	// アプリケーション（管理画面: 一覧・作成・更新・削除・ページネーション）
	r.Route("/api/applications", func(r chi.Router) {
		r.Get("/", deps.Applications.GetSnapshot)
		r.Post("/", deps.Applications.Create)
		r.Post("/refresh", deps.Applications.Refresh)
		r.Post("/search", deps.Applications.Search)
		r.Post("/page", deps.Applications.SetPage)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", deps.Applications.GetItem)
			r.Put("/", deps.Applications.Update)
			r.Delete("/", deps.Applications.Delete)
		})
	})

	// ブログ（公開ギャラリー: 一覧・コメントスレッド・自動送り）
	r.Route("/api/blogs", func(r chi.Router) {
		r.Get("/", deps.Blogs.GetSnapshot)
		r.Post("/refresh", deps.Blogs.Refresh)
		r.Post("/search", deps.Blogs.Search)
		r.Post("/page", deps.Blogs.SetPage)
		r.Post("/interact", deps.Blogs.Interact)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", deps.Blogs.GetItem)
			r.Delete("/", deps.Blogs.Delete)
			r.Put("/", deps.Blogs.Update)

			r.Get("/thread", deps.Comments.GetThread)
			r.Post("/comments", deps.Comments.Submit)
			r.Post("/comments/expand", deps.Comments.Expand)
			r.Post("/comments/collapse", deps.Comments.Collapse)
		})
	})

	return r
}
