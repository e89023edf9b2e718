// Package auth はアクセストークンのライフサイクル（支払い確認に紐づく発行、検証、期限切れ）を提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/scaffcalc/internal/model"
	"github.com/hitoshi/scaffcalc/internal/repository"
)

// ErrTokenEvicted は期限切れのトークンをこの呼び出しで削除したことを表す。
// errors.Is(err, model.ErrExpired)も成り立つ。
var ErrTokenEvicted = fmt.Errorf("token evicted: %w", model.ErrExpired)

// Clock は現在時刻を返す関数。テストで差し替える。
type Clock func() time.Time

// TokenStore はアクセストークンの発行と検証を行う。
// 期限切れは読み取り時に遅延評価し、検出したエントリはその場で削除する。
type TokenStore struct {
	repo repository.TokenRepository
	now  Clock
}

// NewTokenStore はTokenStoreを生成する。nowがnilの場合はtime.Nowを使う。
func NewTokenStore(repo repository.TokenRepository, now Clock) *TokenStore {
	if now == nil {
		now = time.Now
	}
	return &TokenStore{repo: repo, now: now}
}

// Issue は一意なIDを持つトークンを生成し、now+ttlを有効期限として保存する。
func (s *TokenStore) Issue(ctx context.Context, userID string, ttl time.Duration) (*model.AccessToken, error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("token ttl must be positive, got %s", ttl)
	}

	now := s.now()
	token := &model.AccessToken{
		ID:        uuid.New().String(),
		UserID:    userID,
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
	}

	if err := s.repo.Save(ctx, token); err != nil {
		return nil, fmt.Errorf("failed to save token: %w", err)
	}

	return token, nil
}

// Validate はトークンを検証し、有効であれば残り有効期間を返す。
// 未発行・削除済みの場合はmodel.ErrNotFound、期限切れの場合はmodel.ErrExpiredを返す。
// 期限切れを検出した場合はエントリを削除し、この呼び出しで削除できたときはErrTokenEvictedを返す。
// 他の経路が先に削除していた場合はmodel.ErrExpiredを返す。
func (s *TokenStore) Validate(ctx context.Context, id string) (*model.AccessToken, time.Duration, error) {
	token, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, model.ErrNotFound) {
		return nil, 0, model.ErrNotFound
	}
	if err != nil {
		return nil, 0, fmt.Errorf("failed to find token: %w", err)
	}

	now := s.now()
	if token.Expired(now) {
		deleted, err := s.repo.DeleteIfExpired(ctx, id, now)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to evict expired token: %w", err)
		}
		if !deleted {
			return nil, 0, model.ErrExpired
		}
		slog.Info("expired token evicted",
			slog.String("token", model.ShortID(id)),
			slog.Time("expired_at", token.ExpiresAt),
		)
		return nil, 0, ErrTokenEvicted
	}

	return token, token.Remaining(now), nil
}
