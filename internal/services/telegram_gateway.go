package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// InlineButton is one callback button under a message.
type InlineButton struct {
	Text string
	Data string
}

// OutgoingMessage is a chat message handed to the Bot API.
type OutgoingMessage struct {
	ChatID   int64
	Text     string
	HTML     bool
	Keyboard [][]InlineButton
}

// Gateway is the subset of the Bot API the storefront calls.
type Gateway interface {
	SendMessage(ctx context.Context, msg OutgoingMessage) error
	AnswerCallback(ctx context.Context, callbackID, text string) error
}

// BotGateway talks to the Bot API through tgbotapi.
type BotGateway struct {
	bot *tgbotapi.BotAPI
}

var _ Gateway = (*BotGateway)(nil)

// NewBotGateway builds a gateway without calling getMe, so startup does not depend on the Bot API.
// apiURL is either a tgbotapi endpoint format ("https://host/bot%s/%s") or a base ending in "bot".
func NewBotGateway(token, apiURL string, timeout time.Duration) *BotGateway {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	bot := &tgbotapi.BotAPI{
		Token:  token,
		Client: &http.Client{Timeout: timeout},
		Buffer: 100,
	}
	bot.SetAPIEndpoint(apiEndpoint(apiURL))

	return &BotGateway{bot: bot}
}

func apiEndpoint(apiURL string) string {
	apiURL = strings.TrimSpace(apiURL)
	switch {
	case apiURL == "":
		return tgbotapi.APIEndpoint
	case strings.Contains(apiURL, "%s"):
		return apiURL
	default:
		return apiURL + "%s/%s"
	}
}

func (g *BotGateway) SendMessage(ctx context.Context, msg OutgoingMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	cfg := tgbotapi.NewMessage(msg.ChatID, msg.Text)
	if msg.HTML {
		cfg.ParseMode = tgbotapi.ModeHTML
	}
	if len(msg.Keyboard) > 0 {
		cfg.ReplyMarkup = inlineKeyboard(msg.Keyboard)
	}

	if _, err := g.bot.Send(cfg); err != nil {
		return fmt.Errorf("sendMessage to %d: %w", msg.ChatID, err)
	}
	return nil
}

func (g *BotGateway) AnswerCallback(ctx context.Context, callbackID, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := g.bot.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		return fmt.Errorf("answerCallbackQuery %s: %w", callbackID, err)
	}
	return nil
}

// RegisterWebhook points the bot at url. A non-empty secret is echoed back by Telegram in
// the X-Telegram-Bot-Api-Secret-Token header of every update.
func (g *BotGateway) RegisterWebhook(ctx context.Context, url, secret string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	params := tgbotapi.Params{"url": url}
	params.AddNonEmpty("secret_token", secret)
	params["allowed_updates"] = `["message","callback_query"]`

	if _, err := g.bot.MakeRequest("setWebhook", params); err != nil {
		return fmt.Errorf("setWebhook: %w", err)
	}
	return nil
}

func inlineKeyboard(rows [][]InlineButton) tgbotapi.InlineKeyboardMarkup {
	markup := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
		}
		markup = append(markup, tgbotapi.NewInlineKeyboardRow(buttons...))
	}
	return tgbotapi.NewInlineKeyboardMarkup(markup...)
}
