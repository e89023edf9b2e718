package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/hitoshi/scaffcalc/internal/metrics"
	"github.com/hitoshi/scaffcalc/internal/middleware"
	"github.com/hitoshi/scaffcalc/internal/response"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Authorizer        middleware.Authorizer
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger
	Metrics           metrics.MetricsCollector

	// 支払い
	PaymentService PaymentServiceInterface
	PaymentConfig  PaymentHandlerConfig

	// 計算
	Calculator CalculatorInterface

	// MetricsHandler がnilでなければ/metricsに公開する
	MetricsHandler http.Handler

	// Now はトークン残り時間の計算に使う時計。nilならtime.Now
	Now func() time.Time
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → RealIP → Logging → SecurityHeaders → CORS → (Access → RateLimit)
//
// /healthと/metricsはアクセス制御の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(chimw.RealIP)
	r.Use(middleware.NewLoggingMiddleware(logger, deps.Metrics))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	paymentHandler := NewPaymentHandler(deps.PaymentService, deps.PaymentConfig)
	calculateHandler := NewCalculateHandler(deps.Calculator, deps.Metrics)
	tokenHandler := NewTokenHandler(deps.Now)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.WriteJSON(w, http.StatusNotFound, response.FailureBody{Message: "Not found"})
	})

	// --- 認証不要のルート ---

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// 支払いルート（IP単位のレート制限）
	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.PaymentMiddleware())

		r.Post("/api/payments", paymentHandler.Register)
		r.Get("/api/payment-success", paymentHandler.Success)
	})

	// --- トークンが必要なルート ---
	// ミドルウェアスタック: Access → RateLimit(Calculate)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAccessMiddleware(deps.Authorizer))
		r.Use(deps.RateLimiter.CalculateMiddleware())

		r.Get("/api/token", tokenHandler.Status)
		r.Post("/api/calculate", calculateHandler.Calculate)
		r.Post("/api/calculate/scaffolding", calculateHandler.Calculate)
	})

	return r
}
