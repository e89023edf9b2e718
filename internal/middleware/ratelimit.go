package middleware

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/hitoshi/scaffcalc/internal/model"
)

// RateLimiterConfig はレート制限の設定を保持する。
type RateLimiterConfig struct {
	CalculateRate   rate.Limit    // 計算APIのレート（req/sec）。トークン単位
	CalculateBurst  int           // 計算APIのバーストサイズ
	PaymentRate     rate.Limit    // 支払い登録・確認のレート（req/sec）。IP単位
	PaymentBurst    int           // 支払い登録・確認のバーストサイズ
	CleanupInterval time.Duration // 期限切れエントリのクリーンアップ間隔
}

// DefaultRateLimiterConfig は1分あたりの許容回数からレート制限設定を返す。
func DefaultRateLimiterConfig(calculatePerMinute, paymentPerMinute int) RateLimiterConfig {
	return RateLimiterConfig{
		CalculateRate:   rate.Limit(float64(calculatePerMinute) / 60.0),
		CalculateBurst:  calculatePerMinute,
		PaymentRate:     rate.Limit(float64(paymentPerMinute) / 60.0),
		PaymentBurst:    paymentPerMinute,
		CleanupInterval: 5 * time.Minute,
	}
}

// keyedLimiter はキーごとのレートリミッターとアクセス時刻を保持する。
type keyedLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// limiterSet はキーごとのリミッターの集合。
type limiterSet struct {
	rate  rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[string]*keyedLimiter
}

func newLimiterSet(r rate.Limit, burst int) *limiterSet {
	return &limiterSet{
		rate:     r,
		burst:    burst,
		limiters: make(map[string]*keyedLimiter),
	}
}

// allow はキーのリミッターを取得または作成し、1リクエスト分を消費する。
func (s *limiterSet) allow(key string) bool {
	s.mu.Lock()
	kl, exists := s.limiters[key]
	if !exists {
		kl = &keyedLimiter{limiter: rate.NewLimiter(s.rate, s.burst)}
		s.limiters[key] = kl
	}
	kl.lastAccess = time.Now()
	s.mu.Unlock()

	return kl.limiter.Allow()
}

func (s *limiterSet) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.limiters)
}

// evictIdle は最終アクセスからttl以上経過したエントリを削除する。
func (s *limiterSet) evictIdle(now time.Time, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, kl := range s.limiters {
		if now.Sub(kl.lastAccess) > ttl {
			delete(s.limiters, key)
		}
	}
}

// RateLimiter は計算APIと支払いAPIのレート制限を管理する。
type RateLimiter struct {
	config RateLimiterConfig

	calculate *limiterSet
	payment   *limiterSet

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewRateLimiter は新しいRateLimiterを生成する。
// バックグラウンドで期限切れエントリのクリーンアップを開始する。
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	rl := &RateLimiter{
		config:    config,
		calculate: newLimiterSet(config.CalculateRate, config.CalculateBurst),
		payment:   newLimiterSet(config.PaymentRate, config.PaymentBurst),
		stopCh:    make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

// Stop はクリーンアップのバックグラウンドゴルーチンを停止する。
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

// CalculateMiddleware は計算APIのトークン単位のレート制限ミドルウェアを返す。
// アクセスミドルウェアの後に配置する。
func (rl *RateLimiter) CalculateMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := TokenFromContext(r.Context())
			if !ok {
				WriteAPIError(w, model.NewMissingTokenError())
				return
			}

			if !rl.calculate.allow(token.ID) {
				writeRateLimitResponse(w, rl.config.CalculateRate)
				slog.Warn("rate limit exceeded",
					slog.String("token", model.ShortID(token.ID)),
					slog.String("limit_type", "calculate"),
				)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// PaymentMiddleware は支払いAPIのIP単位のレート制限ミドルウェアを返す。
func (rl *RateLimiter) PaymentMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)

			if !rl.payment.allow(ip) {
				writeRateLimitResponse(w, rl.config.PaymentRate)
				slog.Warn("rate limit exceeded",
					slog.String("ip", ip),
					slog.String("limit_type", "payment"),
				)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// CalculateLimiterCount は現在管理されている計算APIリミッターのエントリ数を返す。
// テストおよびメトリクス用。
func (rl *RateLimiter) CalculateLimiterCount() int {
	return rl.calculate.count()
}

// PaymentLimiterCount は現在管理されている支払いAPIリミッターのエントリ数を返す。
func (rl *RateLimiter) PaymentLimiterCount() int {
	return rl.payment.count()
}

// cleanupLoop はバックグラウンドで期限切れエントリを定期的にクリーンアップする。
func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopCh:
			return
		}
	}
}

// cleanup は最終アクセス時刻がCleanupIntervalの2倍を超えたエントリを削除する。
func (rl *RateLimiter) cleanup() {
	ttl := rl.config.CleanupInterval * 2
	now := time.Now()

	rl.calculate.evictIdle(now, ttl)
	rl.payment.evictIdle(now, ttl)
}

// clientIP はRemoteAddrからホスト部を取り出す。
// プロキシ配下ではchiのRealIPミドルウェアで事前に書き換える。
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// writeRateLimitResponse は429 Too Many Requestsレスポンスを書き込む。
// Retry-Afterヘッダーにはトークンが補充されるまでの推定秒数を設定する。
func writeRateLimitResponse(w http.ResponseWriter, r rate.Limit) {
	retryAfterSec := 1
	if r > 0 {
		retryAfterSec = int(math.Ceil(1.0 / float64(r)))
	}
	if retryAfterSec < 1 {
		retryAfterSec = 1
	}

	w.Header().Set("Retry-After", strconv.Itoa(retryAfterSec))
	WriteErrorResponse(w, http.StatusTooManyRequests, model.NewRateLimitedError())
}
