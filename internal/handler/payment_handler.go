package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/hitoshi/scaffcalc/internal/auth"
	"github.com/hitoshi/scaffcalc/internal/middleware"
	"github.com/hitoshi/scaffcalc/internal/model"
	"github.com/hitoshi/scaffcalc/internal/response"
)

// ConfirmationMode は支払い確認の応答形式。
type ConfirmationMode string

const (
	// ConfirmationModeJSON はトークンをJSONで返す。
	ConfirmationModeJSON ConfirmationMode = "json"
	// ConfirmationModeRedirect はトークンをクエリパラメータに付けてリダイレクトする。
	ConfirmationModeRedirect ConfirmationMode = "redirect"
)

var errInvalidRedirect = errors.New("redirect url must be an absolute http(s) url")

// PaymentServiceInterface は支払いハンドラーが必要とするサービスインターフェース。
type PaymentServiceInterface interface {
	// RegisterPayment は支払い待ちを登録する。
	RegisterPayment(ctx context.Context, userID string) (*auth.Registration, error)
	// ConfirmPayment は支払い確認を処理し、アクセストークンを発行する。
	ConfirmPayment(ctx context.Context, userID, paymentID string) (*model.AccessToken, error)
}

// PaymentHandlerConfig は支払いハンドラーの設定。
type PaymentHandlerConfig struct {
	Mode               ConfirmationMode
	DefaultRedirectURL string // redirectUrlが省略された場合の遷移先
}

// PaymentHandler は支払い登録と確認のHTTPハンドラー。
type PaymentHandler struct {
	service PaymentServiceInterface
	config  PaymentHandlerConfig
}

// NewPaymentHandler はPaymentHandlerを生成する。
func NewPaymentHandler(service PaymentServiceInterface, config PaymentHandlerConfig) *PaymentHandler {
	if config.Mode == "" {
		config.Mode = ConfirmationModeJSON
	}
	return &PaymentHandler{service: service, config: config}
}

type registerPaymentResponse struct {
	Success         bool   `json:"success"`
	PaymentID       string `json:"paymentId"`
	ConfirmationURL string `json:"confirmationUrl"`
}

type confirmPaymentResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token"`
}

// Register は支払い待ちを登録する。userIdは数値でも文字列でもよい。
// POST /api/payments
func (h *PaymentHandler) Register(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodyBytes))
	if err != nil || !gjson.ValidBytes(body) {
		middleware.WriteAPIError(w, model.NewInvalidPaymentError())
		return
	}

	userID := strings.TrimSpace(gjson.GetBytes(body, "userId").String())
	if userID == "" {
		middleware.WriteAPIError(w, model.NewInvalidPaymentError())
		return
	}

	reg, err := h.service.RegisterPayment(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusCreated, registerPaymentResponse{
		Success:         true,
		PaymentID:       reg.PaymentID,
		ConfirmationURL: reg.ConfirmationURL,
	})
}

// Success は外部決済からの戻りを処理し、トークンを発行する。
// JSONモードでは{success, token}を返し、リダイレクトモードではtokenを付けて302で遷移させる。
// GET /api/payment-success?userId=..&paymentId=..[&redirectUrl=..]
func (h *PaymentHandler) Success(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	userID := strings.TrimSpace(q.Get("userId"))
	paymentID := strings.TrimSpace(q.Get("paymentId"))

	if userID == "" || paymentID == "" {
		middleware.WriteAPIError(w, model.NewInvalidPaymentError())
		return
	}

	// リダイレクト先は発行前に検証する
	var target *url.URL
	if h.config.Mode == ConfirmationModeRedirect {
		var err error
		target, err = h.redirectTarget(q.Get("redirectUrl"))
		if err != nil {
			slog.Warn("invalid redirect url",
				slog.String("redirect_url", q.Get("redirectUrl")),
				slog.String("error", err.Error()),
			)
			middleware.WriteAPIError(w, model.NewInvalidPaymentError())
			return
		}
	}

	token, err := h.service.ConfirmPayment(r.Context(), userID, paymentID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if target == nil {
		response.WriteJSON(w, http.StatusOK, confirmPaymentResponse{Success: true, Token: token.ID})
		return
	}

	values := target.Query()
	values.Set("token", token.ID)
	target.RawQuery = values.Encode()
	http.Redirect(w, r, target.String(), http.StatusFound)
}

// redirectTarget はリダイレクト先を決める。指定がなければ既定のURLを使う。
// 指定する場合はhttpまたはhttpsの絶対URLでなければならない。
func (h *PaymentHandler) redirectTarget(raw string) (*url.URL, error) {
	if strings.TrimSpace(raw) == "" {
		raw = h.config.DefaultRedirectURL
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, errInvalidRedirect
	}
	return u, nil
}
