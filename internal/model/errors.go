package model

import (
	"errors"
	"fmt"
)

// リポジトリ層が返すセンチネルエラー。
var (
	// ErrNotFound は対象が存在しない（未発行・削除済み・引き換え済み）ことを表す。
	ErrNotFound = errors.New("not found")
	// ErrExpired は対象が存在するが有効期限を過ぎていることを表す。
	ErrExpired = errors.New("expired")
)

// APIError は統一エラーフォーマットを表す。
// HTTPステータスへの変換はハンドラー層がCodeをもとに行う。
type APIError struct {
	Code    string // エラーコード
	Message string // ユーザー向けメッセージ
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeMissingToken   = "MISSING_TOKEN"
	ErrCodeUnknownToken   = "UNKNOWN_TOKEN"
	ErrCodeExpiredToken   = "EXPIRED_TOKEN"
	ErrCodeInvalidPayment = "INVALID_PAYMENT"
	ErrCodeInvalidInput   = "INVALID_INPUT"
	ErrCodeRateLimited    = "RATE_LIMITED"
	ErrCodeInternal       = "INTERNAL_ERROR"
)

// NewMissingTokenError はトークン未指定エラーを生成する。
func NewMissingTokenError() *APIError {
	return &APIError{
		Code:    ErrCodeMissingToken,
		Message: "Ошибка: Токен доступа отсутствует или недействителен.",
	}
}

// NewUnknownTokenError は未知のトークンエラーを生成する。
func NewUnknownTokenError() *APIError {
	return &APIError{
		Code:    ErrCodeUnknownToken,
		Message: "Ошибка: Токен доступа отсутствует или недействителен.",
	}
}

// NewExpiredTokenError は期限切れトークンエラーを生成する。
func NewExpiredTokenError() *APIError {
	return &APIError{
		Code:    ErrCodeExpiredToken,
		Message: "Ошибка: Срок действия вашего токена истек.",
	}
}

// NewInvalidPaymentError は支払い確認パラメータが不正な場合のエラーを生成する。
func NewInvalidPaymentError() *APIError {
	return &APIError{
		Code:    ErrCodeInvalidPayment,
		Message: "Ошибка: неверные параметры подтверждения.",
	}
}

// NewInvalidInputError は入力値エラーを生成する。
// messageには違反した制約（対象フィールドの組）を含める。
func NewInvalidInputError(message string) *APIError {
	return &APIError{
		Code:    ErrCodeInvalidInput,
		Message: message,
	}
}

// NewRateLimitedError はレート制限超過エラーを生成する。
func NewRateLimitedError() *APIError {
	return &APIError{
		Code:    ErrCodeRateLimited,
		Message: "Слишком много запросов. Попробуйте позже.",
	}
}

// NewInternalError は内部エラーを生成する。詳細はログのみに記録する。
func NewInternalError() *APIError {
	return &APIError{
		Code:    ErrCodeInternal,
		Message: "Внутренняя ошибка сервера. Попробуйте позже.",
	}
}
