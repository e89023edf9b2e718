package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/hitoshi/scaffcalc/internal/metrics"
	"github.com/hitoshi/scaffcalc/internal/model"
)

// Guard は提示されたトークンをTokenStoreで検証する。
// 計算入力の解析より前に実行しなければならない。
type Guard struct {
	tokens  *TokenStore
	metrics metrics.MetricsCollector
}

// NewGuard はGuardを生成する。collectorがnilの場合は記録しない。
func NewGuard(tokens *TokenStore, collector metrics.MetricsCollector) *Guard {
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &Guard{tokens: tokens, metrics: collector}
}

// Authorize はトークンを検証する。
// 拒否時はMissing/Unknown/ExpiredのいずれかのAPIErrorを返す。
// 期限切れトークンはTokenStoreが削除するため、繰り返し提示されても保持量は増えない。
func (g *Guard) Authorize(ctx context.Context, presented string) (*model.AccessToken, error) {
	if presented == "" {
		g.metrics.RecordAccessRejected(metrics.ReasonMissing)
		return nil, model.NewMissingTokenError()
	}

	token, _, err := g.tokens.Validate(ctx, presented)
	switch {
	case err == nil:
		return token, nil
	case errors.Is(err, model.ErrNotFound):
		g.metrics.RecordAccessRejected(metrics.ReasonUnknown)
		return nil, model.NewUnknownTokenError()
	case errors.Is(err, model.ErrExpired):
		g.metrics.RecordAccessRejected(metrics.ReasonExpired)
		if errors.Is(err, ErrTokenEvicted) {
			g.metrics.RecordTokensEvicted(1)
		}
		return nil, model.NewExpiredTokenError()
	default:
		return nil, fmt.Errorf("failed to authorize token: %w", err)
	}
}
