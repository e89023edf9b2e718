package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/scaffcalc/internal/auth"
	"github.com/hitoshi/scaffcalc/internal/bot"
	"github.com/hitoshi/scaffcalc/internal/calculator"
	"github.com/hitoshi/scaffcalc/internal/config"
	"github.com/hitoshi/scaffcalc/internal/handler"
	"github.com/hitoshi/scaffcalc/internal/logger"
	"github.com/hitoshi/scaffcalc/internal/metrics"
	"github.com/hitoshi/scaffcalc/internal/middleware"
	"github.com/hitoshi/scaffcalc/internal/repository"
	"github.com/hitoshi/scaffcalc/internal/worker/cleanup"
)

const shutdownTimeout = 30 * time.Second

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、LOG_LEVELに従ったJSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, *slog.Logger, error) {
	// 設定読み込み前にログを使えるようにする
	log := logger.SetupDefault(w, slog.LevelInfo)

	cfg, err := config.Load()
	if err != nil {
		return nil, log, fmt.Errorf("failed to load config: %w", err)
	}

	log = logger.SetupDefault(w, logger.ParseLevel(cfg.LogLevel))
	return cfg, log, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "3001"
		}
		return runHealthcheck(port)
	}

	cfg, log, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	log.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
		slog.String("payment_mode", cfg.PaymentMode),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := Build(cfg, log, nil)
	defer a.Close()

	if cfg.TelegramBotToken != "" {
		api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
		if err != nil {
			return fmt.Errorf("failed to connect telegram bot: %w", err)
		}
		log.Info("telegram bot authorized", slog.String("username", api.Self.UserName))
		a.Bot = bot.New(api, a.Service, log)
	}

	return a.Serve(ctx)
}

// App はワイヤリング済みの全コンポーネントを保持する。
type App struct {
	Config      *config.Config
	Logger      *slog.Logger
	Tokens      *repository.MemoryTokenRepo
	Payments    *repository.MemoryPaymentRepo
	Service     *auth.Service
	RateLimiter *middleware.RateLimiter
	Registry    *prometheus.Registry
	Handler     http.Handler

	// Sweeper はTOKEN_SWEEP_SCHEDULEが空ならnil
	Sweeper *cleanup.SweepJob
	// Bot はTelegramトークンが設定されている場合のみ設定される
	Bot *bot.Bot
}

// Build は設定から全依存関係を組み立てる。nowがnilの場合はtime.Nowを使う。
// ネットワーク接続は行わない。
func Build(cfg *config.Config, log *slog.Logger, now auth.Clock) *App {
	if log == nil {
		log = slog.Default()
	}
	if now == nil {
		now = time.Now
	}

	// 1. リポジトリの初期化
	tokenRepo := repository.NewMemoryTokenRepo()
	paymentRepo := repository.NewMemoryPaymentRepo()

	// 2. メトリクス
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(registry)

	// 3. ドメインサービスの初期化
	tokens := auth.NewTokenStore(tokenRepo, now)
	payments := auth.NewPaymentRegistry(paymentRepo, now)
	service := auth.NewService(tokens, payments, collector, auth.ServiceConfig{
		FrontendURL: cfg.FrontendURL,
		PaymentMode: auth.PaymentMode(cfg.PaymentMode),
		DirectTTL:   cfg.DirectTokenTTL,
		RedeemedTTL: cfg.RedeemedTokenTTL,
	})
	guard := auth.NewGuard(tokens, collector)
	engine := calculator.NewEngine(cfg.StrictBranches)

	// 4. ルーターの構築（設定値はreq/min）
	limiter := middleware.NewRateLimiter(
		middleware.DefaultRateLimiterConfig(cfg.RateLimitCalculate, cfg.RateLimitPayment),
	)

	deps := &handler.RouterDeps{
		Authorizer:        guard,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       limiter,
		Logger:            log,
		Metrics:           collector,

		PaymentService: service,
		PaymentConfig: handler.PaymentHandlerConfig{
			Mode:               handler.ConfirmationMode(cfg.ConfirmationMode),
			DefaultRedirectURL: cfg.DefaultRedirectURL,
		},

		Calculator: engine,
		Now:        now,
	}
	if cfg.MetricsEnabled {
		deps.MetricsHandler = metrics.Handler(registry)
	}

	a := &App{
		Config:      cfg,
		Logger:      log,
		Tokens:      tokenRepo,
		Payments:    paymentRepo,
		Service:     service,
		RateLimiter: limiter,
		Registry:    registry,
		Handler:     handler.NewRouter(deps),
	}

	// 5. 一括削除ジョブ
	if cfg.TokenSweepSchedule != "" {
		a.Sweeper = cleanup.NewSweepJob(tokenRepo, collector, log, now)
	}

	return a
}

// Serve はHTTPサーバーと、設定されていればボットと掃除ジョブを起動する。
// ctxがキャンセルされるとグレースフルシャットダウンを行う。
func (a *App) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", ":"+a.Config.ServerPort)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	return a.serveListener(ctx, ln)
}

func (a *App) serveListener(ctx context.Context, ln net.Listener) error {
	server := &http.Server{
		Handler:      a.Handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan struct{})
	background := 0

	if a.Sweeper != nil {
		background++
		go func() {
			defer func() { done <- struct{}{} }()
			if err := a.Sweeper.Start(ctx, a.Config.TokenSweepSchedule); err != nil {
				a.Logger.Error("token sweep job failed", slog.String("error", err.Error()))
			}
		}()
	}

	if a.Bot != nil {
		background++
		go func() {
			defer func() { done <- struct{}{} }()
			if err := a.Bot.Run(ctx, a.Config.TelegramPollTimeout); err != nil {
				a.Logger.Error("telegram bot failed", slog.String("error", err.Error()))
			}
		}()
	}

	serveErr := make(chan error, 1)
	go func() {
		a.Logger.Info("API server starting", slog.String("addr", ln.Addr().String()))
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var result error
	select {
	case <-ctx.Done():
	case err, ok := <-serveErr:
		if ok {
			result = fmt.Errorf("server listen error: %w", err)
		}
	}

	a.Logger.Info("shutting down API server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil && result == nil {
		result = fmt.Errorf("server shutdown failed: %w", err)
	}

	for i := 0; i < background; i++ {
		<-done
	}

	if result == nil {
		a.Logger.Info("API server stopped gracefully")
	}
	return result
}

// Close はバックグラウンドのリソースを解放する。
func (a *App) Close() {
	a.RateLimiter.Stop()
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}
