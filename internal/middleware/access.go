// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/hitoshi/scaffcalc/internal/model"
)

// maxBodyBytes はトークン抽出のために読み込むボディの上限。
const maxBodyBytes = 1 << 20

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// accessTokenContextKey はリクエストコンテキストに検証済みトークンを格納するためのキー。
var accessTokenContextKey = contextKey("access_token")

// Authorizer はトークンの検証に必要なインターフェース。
// auth.Guardが実装する。
type Authorizer interface {
	Authorize(ctx context.Context, presented string) (*model.AccessToken, error)
}

// NewAccessMiddleware は提示されたアクセストークンを検証するミドルウェアを返す。
// トークンはAuthorizationヘッダー（Bearer接頭辞は省略可）またはJSONボディのtokenから取得し、
// 両方ある場合はヘッダーを優先する。
// 検証はボディの計算入力を解析する前に行い、拒否時は403を返す。
func NewAccessMiddleware(authorizer Authorizer) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			presented, err := presentedToken(r)
			if err != nil {
				slog.Warn("failed to read request body",
					slog.String("error", err.Error()),
				)
				WriteErrorResponse(w, http.StatusBadRequest,
					model.NewInvalidInputError("Некорректное тело запроса."))
				return
			}

			token, err := authorizer.Authorize(r.Context(), presented)
			if err != nil {
				var apiErr *model.APIError
				if errors.As(err, &apiErr) {
					WriteAPIError(w, apiErr)
					return
				}
				slog.Error("failed to authorize token",
					slog.String("error", err.Error()),
				)
				WriteInternalServerError(w)
				return
			}

			annotateToken(r.Context(), token.ID)
			next.ServeHTTP(w, r.WithContext(ContextWithToken(r.Context(), token)))
		})
	}
}

// presentedToken はリクエストからトークン文字列を取り出す。
// ボディを読んだ場合は後続のハンドラーのために元に戻す。
func presentedToken(r *http.Request) (string, error) {
	if token := bearerToken(r.Header.Get("Authorization")); token != "" {
		return token, nil
	}

	if r.Body == nil || r.Body == http.NoBody {
		return "", nil
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return "", err
	}
	r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))

	if !gjson.ValidBytes(body) {
		return "", nil
	}
	return strings.TrimSpace(gjson.GetBytes(body, "token").String()), nil
}

// bearerToken はAuthorizationヘッダーの値からトークンを取り出す。
func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if strings.EqualFold(header, "bearer") {
		return ""
	}
	if len(header) >= 7 && strings.EqualFold(header[:7], "bearer ") {
		header = header[7:]
	}
	return strings.TrimSpace(header)
}

// TokenFromContext はリクエストコンテキストから検証済みトークンを取得する。
// アクセスミドルウェアを通過したリクエストでのみ有効。
func TokenFromContext(ctx context.Context) (*model.AccessToken, bool) {
	token, ok := ctx.Value(accessTokenContextKey).(*model.AccessToken)
	if !ok || token == nil {
		return nil, false
	}
	return token, true
}

// ContextWithToken はコンテキストに検証済みトークンを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithToken(ctx context.Context, token *model.AccessToken) context.Context {
	return context.WithValue(ctx, accessTokenContextKey, token)
}
