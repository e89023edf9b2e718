package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/scaffcalc/internal/model"
	"github.com/hitoshi/scaffcalc/internal/repository"
)

// PaymentRegistry は支払い待ちIDとユーザーの対応を管理する。
type PaymentRegistry struct {
	repo repository.PendingPaymentRepository
	now  Clock
}

// NewPaymentRegistry はPaymentRegistryを生成する。nowがnilの場合はtime.Nowを使う。
func NewPaymentRegistry(repo repository.PendingPaymentRepository, now Clock) *PaymentRegistry {
	if now == nil {
		now = time.Now
	}
	return &PaymentRegistry{repo: repo, now: now}
}

// Register はユーザーに紐づく一意な支払いIDを作成して保存する。
func (r *PaymentRegistry) Register(ctx context.Context, userID string) (*model.PendingPayment, error) {
	if userID == "" {
		return nil, fmt.Errorf("user ID is required")
	}

	payment := &model.PendingPayment{
		ID:        uuid.New().String(),
		UserID:    userID,
		CreatedAt: r.now(),
	}

	if err := r.repo.Save(ctx, payment); err != nil {
		return nil, fmt.Errorf("failed to save pending payment: %w", err)
	}

	return payment, nil
}

// Redeem はエントリが存在し、保存されたユーザーIDがclaimedUserIDと一致する場合に限り
// エントリを削除して成功する。それ以外はInvalidPaymentエラーを返し、状態は変更しない。
// 同一IDの2回目以降の引き換えは常に失敗する。
func (r *PaymentRegistry) Redeem(ctx context.Context, paymentID, claimedUserID string) (*model.PendingPayment, error) {
	if paymentID == "" || claimedUserID == "" {
		return nil, model.NewInvalidPaymentError()
	}

	payment, err := r.repo.Take(ctx, paymentID, claimedUserID)
	if errors.Is(err, model.ErrNotFound) {
		return nil, model.NewInvalidPaymentError()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to redeem payment: %w", err)
	}

	return payment, nil
}
