package handler

import (
	"math"
	"net/http"
	"time"

	"github.com/hitoshi/scaffcalc/internal/middleware"
	"github.com/hitoshi/scaffcalc/internal/model"
	"github.com/hitoshi/scaffcalc/internal/response"
)

// TokenHandler はトークンの残り有効期間を返すハンドラー。
type TokenHandler struct {
	now func() time.Time
}

// NewTokenHandler はTokenHandlerを生成する。nowがnilの場合はtime.Nowを使う。
func NewTokenHandler(now func() time.Time) *TokenHandler {
	if now == nil {
		now = time.Now
	}
	return &TokenHandler{now: now}
}

type tokenStatusResponse struct {
	Success          bool      `json:"success"`
	ExpiresAt        time.Time `json:"expiresAt"`
	RemainingSeconds int64     `json:"remainingSeconds"`
}

// Status はアクセスミドルウェアで検証済みのトークンの有効期限を返す。
// GET /api/token
func (h *TokenHandler) Status(w http.ResponseWriter, r *http.Request) {
	token, ok := middleware.TokenFromContext(r.Context())
	if !ok {
		middleware.WriteAPIError(w, model.NewMissingTokenError())
		return
	}

	remaining := token.Remaining(h.now())
	response.WriteJSON(w, http.StatusOK, tokenStatusResponse{
		Success:          true,
		ExpiresAt:        token.ExpiresAt.UTC(),
		RemainingSeconds: int64(math.Floor(remaining.Seconds())),
	})
}
