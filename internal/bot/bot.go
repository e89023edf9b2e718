// Package bot はTelegramボット経由の購入フローを提供する。
// ボットは支払い待ちの登録と確認リンクの送信だけを行い、トークンは発行しない。
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/hitoshi/scaffcalc/internal/auth"
)

// API はボットが使うTelegram APIの部分集合。*tgbotapi.BotAPIが実装する。
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// PaymentRegistrar は支払い待ちの登録に必要なインターフェース。
type PaymentRegistrar interface {
	RegisterPayment(ctx context.Context, userID string) (*auth.Registration, error)
}

// Bot はTelegramの更新を受け取り、購入フローを処理する。
type Bot struct {
	api      API
	payments PaymentRegistrar
	log      *slog.Logger
}

// New はBotを生成する。
func New(api API, payments PaymentRegistrar, log *slog.Logger) *Bot {
	if log == nil {
		log = slog.Default()
	}
	return &Bot{api: api, payments: payments, log: log}
}

// Run はロングポーリングで更新を受け取り、ctxがキャンセルされるまで処理を続ける。
func (b *Bot) Run(ctx context.Context, timeoutSec int) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = timeoutSec
	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	b.log.Info("telegram bot started", slog.Int("poll_timeout_sec", timeoutSec))

	for {
		select {
		case <-ctx.Done():
			b.log.Info("telegram bot stopped")
			return nil
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			b.HandleUpdate(ctx, upd)
		}
	}
}

// HandleUpdate は1件の更新を処理する。
func (b *Bot) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	switch {
	case upd.Message != nil:
		b.onMessage(upd.Message)
	case upd.CallbackQuery != nil:
		b.onCallback(ctx, upd.CallbackQuery)
	}
}

func (b *Bot) onMessage(msg *tgbotapi.Message) {
	if !msg.IsCommand() || msg.Command() != "start" {
		return
	}

	reply := tgbotapi.NewMessage(msg.Chat.ID, welcomeText)
	reply.ReplyMarkup = buyAccessKeyboard()
	b.send(reply)
}

// onCallback はボタン押下を処理する。未知のcallbackは応答だけして無視する。
func (b *Bot) onCallback(ctx context.Context, q *tgbotapi.CallbackQuery) {
	defer b.ack(q.ID)

	if q.Data != callbackBuyAccess || q.Message == nil || q.From == nil {
		return
	}

	chatID := q.Message.Chat.ID
	userID := strconv.FormatInt(q.From.ID, 10)

	reg, err := b.payments.RegisterPayment(ctx, userID)
	if err != nil {
		b.log.Error("failed to register payment",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		b.send(tgbotapi.NewMessage(chatID, failureText))
		return
	}

	b.send(tgbotapi.NewMessage(chatID, fmt.Sprintf(paymentLinkFmt, reg.ConfirmationURL)))
}

func (b *Bot) ack(callbackID string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(callbackID, "")); err != nil {
		b.log.Warn("callback ack failed", slog.String("error", err.Error()))
	}
}

func (b *Bot) send(msg tgbotapi.Chattable) {
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send failed", slog.String("error", err.Error()))
	}
}
