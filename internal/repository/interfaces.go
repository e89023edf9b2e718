// Package repository はアクセストークンと支払い待ちデータの保持インターフェースと
// そのインメモリ実装を提供する。
// 保持期間はプロセスの生存期間に限られる。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/scaffcalc/internal/model"
)

// Lifecycle はテストでの差し替えを可能にするための明示的なライフサイクル。
type Lifecycle interface {
	// Init は内部状態を初期化する。既存のデータは破棄される。
	Init()
	// Clear は全データを削除する。
	Clear()
}

// TokenRepository はアクセストークンの保持インターフェース。
type TokenRepository interface {
	Lifecycle

	// Save はトークンを保存する。同一IDが既に存在する場合はエラーを返す。
	Save(ctx context.Context, token *model.AccessToken) error

	// FindByID は指定IDのトークンを返す。存在しない場合はmodel.ErrNotFoundを返す。
	// 期限の判定は行わない。
	FindByID(ctx context.Context, id string) (*model.AccessToken, error)

	// DeleteIfExpired は指定IDのトークンがnow時点で期限切れの場合のみ削除する。
	// 参照と削除は1つのクリティカルセクションで行われる。削除した場合はtrueを返す。
	DeleteIfExpired(ctx context.Context, id string, now time.Time) (bool, error)

	// DeleteExpired はnow時点で期限切れのトークンを一括削除し、削除件数を返す。
	DeleteExpired(ctx context.Context, now time.Time) (int, error)

	// Count は保持しているトークン数を返す。
	Count(ctx context.Context) (int, error)
}

// PendingPaymentRepository は支払い待ちデータの保持インターフェース。
type PendingPaymentRepository interface {
	Lifecycle

	// Save は支払い待ちデータを保存する。同一IDが既に存在する場合はエラーを返す。
	Save(ctx context.Context, payment *model.PendingPayment) error

	// Take はIDとユーザーIDが一致する支払い待ちデータを取り出して削除する。
	// 一致しない場合はmodel.ErrNotFoundを返し、状態は変更しない。
	// 同一IDに対して成功するのは最大1回。
	Take(ctx context.Context, id, userID string) (*model.PendingPayment, error)

	// Count は保持している支払い待ちデータ数を返す。
	Count(ctx context.Context) (int, error)
}
