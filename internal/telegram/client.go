// Package telegram delivers alerts to a Telegram chat through the Bot API.
package telegram

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	appconfig "signalflow/config"
	"signalflow/logger"
	"signalflow/models"
)

type Client struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	log    *logger.Log
}

// NewClient authenticates against the Bot API. An error here means the token
// is bad or Telegram is unreachable, both fatal at startup.
func NewClient(cfg appconfig.TelegramConfig) (*Client, error) {
	chatID, err := strconv.ParseInt(cfg.ChatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid telegram chat id %q: %w", cfg.ChatID, err)
	}

	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to telegram: %w", err)
	}

	log := logger.GetLogger()
	log.WithComponent("telegram").WithFields(logger.Fields{
		"bot": bot.Self.UserName,
	}).Info("telegram bot authenticated")

	return &Client{
		bot:    bot,
		chatID: chatID,
		log:    log,
	}, nil
}

// Send formats and delivers one alert.
func (c *Client) Send(alert models.Alert) error {
	msg := tgbotapi.NewMessage(c.chatID, FormatAlert(alert))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true

	if _, err := c.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send failed: %w", err)
	}
	return nil
}

// SendText delivers a plain status message, used for the startup notice.
func (c *Client) SendText(text string) error {
	msg := tgbotapi.NewMessage(c.chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML

	if _, err := c.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send failed: %w", err)
	}
	return nil
}

func alertHeadline(t models.AlertType) (emoji, title string) {
	switch t {
	case models.AlertPumpDetected:
		return "🚀", "PUMP DETECTED"
	case models.AlertDumpDetected:
		return "📉", "DUMP DETECTED"
	case models.AlertAccumulationDetected:
		return "📊", "ACCUMULATION"
	case models.AlertDistributionDetected:
		return "⚠️", "DISTRIBUTION"
	case models.AlertLongSetupConfirmed:
		return "✅", "LONG SETUP CONFIRMED"
	case models.AlertShortSetupConfirmed:
		return "✅", "SHORT SETUP CONFIRMED"
	default:
		return "🔔", "SIGNAL"
	}
}

// FormatAlert renders an alert as Telegram HTML. Optional detail fields are
// omitted when absent.
func FormatAlert(alert models.Alert) string {
	emoji, title := alertHeadline(alert.Type)

	var b strings.Builder
	fmt.Fprintf(&b, "%s <b>%s</b>\n\n", emoji, title)
	fmt.Fprintf(&b, "<b>%s</b> on %s\n", alert.Symbol, alert.Exchange)
	fmt.Fprintf(&b, "<a href=\"https://www.coinglass.com/tv/%s_%s\">Chart</a>\n\n",
		alert.Exchange, alert.Symbol)

	b.WriteString("<pre>")
	fmt.Fprintf(&b, "Price: $%.8f", alert.Price)
	if alert.Details.PriceChangePct != nil {
		fmt.Fprintf(&b, " (%+.2f%%)", *alert.Details.PriceChangePct)
	}
	b.WriteString("\n")
	if alert.Details.VolumeRatio != nil {
		fmt.Fprintf(&b, "Volume: %.1fx average\n", *alert.Details.VolumeRatio)
	}
	if alert.Details.CVDChange != nil {
		fmt.Fprintf(&b, "CVD Change: %.2f\n", *alert.Details.CVDChange)
	}
	if alert.Details.Timeframe != "" {
		fmt.Fprintf(&b, "Timeframe: %s\n", alert.Details.Timeframe)
	}
	fmt.Fprintf(&b, "Time: %s UTC", time.Unix(alert.Timestamp, 0).UTC().Format("15:04:05"))
	b.WriteString("</pre>")

	return b.String()
}
