package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hitoshi/scaffcalc/internal/model"
)

// MemoryTokenRepo はmapを使用したトークンリポジトリ。
type MemoryTokenRepo struct {
	mu     sync.Mutex
	tokens map[string]model.AccessToken
}

// NewMemoryTokenRepo は初期化済みのMemoryTokenRepoを生成する。
func NewMemoryTokenRepo() *MemoryTokenRepo {
	r := &MemoryTokenRepo{}
	r.Init()
	return r
}

// Init は内部のmapを作り直す。
func (r *MemoryTokenRepo) Init() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens = make(map[string]model.AccessToken)
}

// Clear は全トークンを削除する。
func (r *MemoryTokenRepo) Clear() {
	r.Init()
}

// Save はトークンを保存する。
func (r *MemoryTokenRepo) Save(_ context.Context, token *model.AccessToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tokens[token.ID]; exists {
		return fmt.Errorf("token already exists: %s", model.ShortID(token.ID))
	}
	r.tokens[token.ID] = *token
	return nil
}

// FindByID は指定IDのトークンのコピーを返す。
func (r *MemoryTokenRepo) FindByID(_ context.Context, id string) (*model.AccessToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tokens[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return &t, nil
}

// DeleteIfExpired は期限切れの場合のみ削除する。
func (r *MemoryTokenRepo) DeleteIfExpired(_ context.Context, id string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tokens[id]
	if !ok || !t.Expired(now) {
		return false, nil
	}
	delete(r.tokens, id)
	return true, nil
}

// DeleteExpired は期限切れトークンを一括削除する。
func (r *MemoryTokenRepo) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	deleted := 0
	for id, t := range r.tokens {
		if t.Expired(now) {
			delete(r.tokens, id)
			deleted++
		}
	}
	return deleted, nil
}

// Count は保持しているトークン数を返す。
func (r *MemoryTokenRepo) Count(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tokens), nil
}

// compile-time interface check
var _ TokenRepository = (*MemoryTokenRepo)(nil)
