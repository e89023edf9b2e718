package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/hitoshi/scaffcalc/internal/metrics"
	"github.com/hitoshi/scaffcalc/internal/model"
)

// PaymentMode は支払い確認時に事前登録を要求するかどうかを表す。
type PaymentMode string

const (
	// PaymentModeRegistered は事前に登録された支払い待ちの引き換えを要求する。
	PaymentModeRegistered PaymentMode = "registered"
	// PaymentModeDirect はユーザーIDと支払いIDの組を初見で受け入れ、直接トークンを発行する。
	PaymentModeDirect PaymentMode = "direct"
)

// ServiceConfig はアクセスサービスの設定。
type ServiceConfig struct {
	FrontendURL string        // 確認リンクのベースURL
	PaymentMode PaymentMode   // 支払い確認モード
	DirectTTL   time.Duration // 直接発行経路のトークン有効期間
	RedeemedTTL time.Duration // 引き換え経路のトークン有効期間
}

// Registration は支払い待ち登録の結果。
type Registration struct {
	PaymentID       string
	UserID          string
	ConfirmationURL string
}

// Service は支払い登録からトークン発行までのビジネスロジックを提供する。
type Service struct {
	tokens   *TokenStore
	payments *PaymentRegistry
	metrics  metrics.MetricsCollector
	config   ServiceConfig
}

// NewService はServiceを生成する。collectorがnilの場合は記録しない。
func NewService(
	tokens *TokenStore,
	payments *PaymentRegistry,
	collector metrics.MetricsCollector,
	config ServiceConfig,
) *Service {
	if collector == nil {
		collector = metrics.Nop{}
	}
	if config.PaymentMode == "" {
		config.PaymentMode = PaymentModeRegistered
	}
	return &Service{
		tokens:   tokens,
		payments: payments,
		metrics:  collector,
		config:   config,
	}
}

// RegisterPayment は支払い待ちを登録し、外部の確認リンクに含めるURLを返す。
func (s *Service) RegisterPayment(ctx context.Context, userID string) (*Registration, error) {
	payment, err := s.payments.Register(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordPaymentRegistered()

	slog.Info("payment registered",
		slog.String("user_id", userID),
		slog.String("payment_id", payment.ID),
	)

	return &Registration{
		PaymentID:       payment.ID,
		UserID:          userID,
		ConfirmationURL: s.confirmationURL(userID, payment.ID),
	}, nil
}

// ConfirmPayment は支払い確認を処理し、アクセストークンを発行する。
// registeredモードでは支払い待ちを引き換えてRedeemedTTLのトークンを、
// directモードでは登録を確認せずDirectTTLのトークンを発行する。
func (s *Service) ConfirmPayment(ctx context.Context, userID, paymentID string) (*model.AccessToken, error) {
	if userID == "" || paymentID == "" {
		s.metrics.RecordPaymentRedeemed(false)
		return nil, model.NewInvalidPaymentError()
	}

	if s.config.PaymentMode == PaymentModeDirect {
		return s.issue(ctx, userID, s.config.DirectTTL, metrics.PathDirect)
	}

	if _, err := s.payments.Redeem(ctx, paymentID, userID); err != nil {
		s.metrics.RecordPaymentRedeemed(false)
		slog.Warn("payment redemption rejected",
			slog.String("user_id", userID),
			slog.String("payment_id", paymentID),
		)
		return nil, err
	}
	s.metrics.RecordPaymentRedeemed(true)

	return s.issue(ctx, userID, s.config.RedeemedTTL, metrics.PathRedeemed)
}

func (s *Service) issue(ctx context.Context, userID string, ttl time.Duration, path string) (*model.AccessToken, error) {
	token, err := s.tokens.Issue(ctx, userID, ttl)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}
	s.metrics.RecordTokenIssued(path)

	slog.Info("access token issued",
		slog.String("user_id", userID),
		slog.String("token", model.ShortID(token.ID)),
		slog.String("path", path),
		slog.Time("expires_at", token.ExpiresAt),
	)

	return token, nil
}

// confirmationURL は<FrontendURL>/payment-success?userId=..&paymentId=..を組み立てる。
func (s *Service) confirmationURL(userID, paymentID string) string {
	q := url.Values{}
	q.Set("userId", userID)
	q.Set("paymentId", paymentID)
	return strings.TrimRight(s.config.FrontendURL, "/") + "/payment-success?" + q.Encode()
}
