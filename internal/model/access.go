// Package model はドメインモデルを定義する。
package model

import "time"

// AccessToken は計算機への期間限定アクセスを証明する不透明なトークンを表す。
// 期限切れのトークンは次回読み取り時に存在しないものとして扱い、削除する。
type AccessToken struct {
	ID        string
	UserID    string // 直接発行の場合は空のことがある
	ExpiresAt time.Time
	IssuedAt  time.Time
}

// Expired は指定時刻においてトークンが期限切れかどうかを返す。
// ExpiresAtちょうどの時刻は期限切れとして扱う。
func (t *AccessToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// Remaining は指定時刻からの残り有効期間を返す。期限切れの場合は0。
func (t *AccessToken) Remaining(now time.Time) time.Duration {
	if t.Expired(now) {
		return 0
	}
	return t.ExpiresAt.Sub(now)
}

// shortIDLen はログやエラーメッセージに残すIDの先頭文字数。
const shortIDLen = 8

// ShortID はログ出力用にIDの先頭8文字だけを返す。
func ShortID(id string) string {
	if len(id) <= shortIDLen {
		return id
	}
	return id[:shortIDLen]
}

// PendingPayment は支払い確認待ちの（シミュレーションされた）決済を表す。
// 1つのIDは最大1回だけ引き換え可能。
type PendingPayment struct {
	ID        string
	UserID    string
	CreatedAt time.Time
}
