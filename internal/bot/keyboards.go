package bot

import tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

const (
	// callbackBuyAccess は購入ボタンのcallback_data。
	callbackBuyAccess = "buy_access"

	buyAccessLabel = "Купить доступ на 24 часа (100 руб)"
	welcomeText    = "Добро пожаловать в сервис сметных калькуляторов! Здесь вы можете приобрести временный доступ к нашим инструментам."
	paymentLinkFmt = "Для оплаты перейдите по ссылке: %s"
	failureText    = "Не удалось создать платёж. Попробуйте позже."
)

func buyAccessKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(buyAccessLabel, callbackBuyAccess),
		),
	)
}
