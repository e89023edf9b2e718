package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/hitoshi/scaffcalc/internal/model"
)

// MemoryPaymentRepo はmapを使用した支払い待ちリポジトリ。
type MemoryPaymentRepo struct {
	mu       sync.Mutex
	payments map[string]model.PendingPayment
}

// NewMemoryPaymentRepo は初期化済みのMemoryPaymentRepoを生成する。
func NewMemoryPaymentRepo() *MemoryPaymentRepo {
	r := &MemoryPaymentRepo{}
	r.Init()
	return r
}

// Init は内部のmapを作り直す。
func (r *MemoryPaymentRepo) Init() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payments = make(map[string]model.PendingPayment)
}

// Clear は全データを削除する。
func (r *MemoryPaymentRepo) Clear() {
	r.Init()
}

// Save は支払い待ちデータを保存する。
func (r *MemoryPaymentRepo) Save(_ context.Context, payment *model.PendingPayment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.payments[payment.ID]; exists {
		return fmt.Errorf("payment already exists: %s", payment.ID)
	}
	r.payments[payment.ID] = *payment
	return nil
}

// Take は一致する支払い待ちデータを取り出して削除する。
func (r *MemoryPaymentRepo) Take(_ context.Context, id, userID string) (*model.PendingPayment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.payments[id]
	if !ok || p.UserID != userID {
		return nil, model.ErrNotFound
	}
	delete(r.payments, id)
	return &p, nil
}

// Count は保持している支払い待ちデータ数を返す。
func (r *MemoryPaymentRepo) Count(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.payments), nil
}

// compile-time interface check
var _ PendingPaymentRepository = (*MemoryPaymentRepo)(nil)
