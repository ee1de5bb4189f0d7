package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/jukeq/internal/middleware"
)

// SetupAuthRoutes は認証関連のルーティングを設定したchi.Routerを返す。
func SetupAuthRoutes(service AuthServiceInterface, config AuthHandlerConfig) http.Handler {
	r := chi.NewRouter()
	h := NewAuthHandler(service, config)

	r.Route("/auth", func(r chi.Router) {
		// OAuthフロー
		r.Get("/google/login", h.Login)
		r.Get("/google/callback", h.Callback)

		// セッション管理
		r.Post("/logout", h.Logout)
		r.Get("/me", h.Me)
	})

	return r
}

// HealthChecker はヘルスチェック時の依存先疎通確認インターフェース。
// *sql.DB がそのまま満たす。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter

	// 任意の依存。nilの場合は対応するルート・ミドルウェアを組み込まない。
	Logger         *slog.Logger
	HTTPMetrics    middleware.HTTPMetricsRecorder
	MetricsHandler http.Handler
	HealthChecker  HealthChecker
	CSRFConfig     *middleware.CSRFConfig

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// ストリーム
	StreamService StreamServiceInterface

	// 投票
	VoteService VoteServiceInterface

	// キュー
	QueueService QueueServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → (Logging) → (Metrics)
//	→ SessionMiddleware → (CSRF) → RateLimitMiddleware(GeneralMiddleware)
//
// 認証ルート（/auth/*）、/health、/metrics はセッション必須のチェーンの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	// 全ルートに効くミドルウェア
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	if deps.Logger != nil {
		r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	}
	if deps.HTTPMetrics != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.HTTPMetrics))
	}

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	streamHandler := NewStreamHandler(deps.StreamService)
	voteHandler := NewVoteHandler(deps.VoteService)
	queueHandler := NewQueueHandler(deps.QueueService)

	// --- 認証不要のルート ---

	r.Get("/health", newHealthHandler(deps.HealthChecker))

	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	if deps.CSRFConfig != nil {
		r.Method(http.MethodGet, "/api/csrf-token", middleware.NewCSRFTokenHandler(*deps.CSRFConfig))
	}

	// 認証ルート（OAuthフロー）
	r.Route("/auth", func(r chi.Router) {
		r.Get("/google/login", authHandler.Login)
		r.Get("/google/callback", authHandler.Callback)
		r.Post("/logout", authHandler.Logout)
		r.Get("/me", authHandler.Me)
	})

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → (CSRF) → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
		if deps.CSRFConfig != nil {
			r.Use(middleware.NewCSRFMiddleware(*deps.CSRFConfig))
		}
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// ストリーム管理
		r.Route("/api/streams", func(r chi.Router) {
			// POST /api/streams - ストリーム登録（投稿専用レート制限を追加）
			r.With(deps.RateLimiter.SubmissionMiddleware()).Post("/", streamHandler.Submit)

			// GET /api/streams?ownerId=xxx - 所有者のストリーム一覧
			r.Get("/", streamHandler.List)
		})

		// 投票
		r.Route("/api/votes", func(r chi.Router) {
			r.Post("/up", voteHandler.Up)
			r.Post("/down", voteHandler.Down)
			r.Delete("/", voteHandler.Retract)
		})

		// 再生キュー
		r.Get("/api/queue", queueHandler.Queue)
	})

	return r
}

// newHealthHandler はヘルスチェックエンドポイントのハンドラーを返す。
// checkerが指定されている場合はDB疎通も確認し、失敗時は503を返す。
func newHealthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if checker != nil {
			if err := checker.PingContext(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				json.NewEncoder(w).Encode(map[string]string{
					"status": "unavailable",
				})
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{
			"status": "ok",
		})
	}
}
