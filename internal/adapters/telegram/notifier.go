package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/selivandex/news-pulse/internal/adapters/config"
	"github.com/selivandex/news-pulse/pkg/logger"
	"github.com/selivandex/news-pulse/pkg/models"
	"github.com/selivandex/news-pulse/pkg/templates"
)

// Sender is the part of tgbotapi.BotAPI the notifier needs
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Notifier posts ingestion run reports to a Telegram chat
type Notifier struct {
	api      Sender
	renderer templates.Renderer
	chatID   int64
}

// NewNotifier creates new Telegram notifier
func NewNotifier(cfg *config.TelegramConfig, renderer templates.Renderer) (*Notifier, error) {
	if cfg.BotToken == "" {
		return nil, fmt.Errorf("telegram bot token is required")
	}

	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %w", err)
	}

	bot.Debug = false

	logger.Info("telegram notifier initialized",
		zap.String("bot_username", bot.Self.UserName),
		zap.Int64("chat_id", cfg.ChatID),
	)

	return NewNotifierWithSender(bot, renderer, cfg.ChatID), nil
}

// NewNotifierWithSender creates notifier on top of an existing sender
func NewNotifierWithSender(api Sender, renderer templates.Renderer, chatID int64) *Notifier {
	return &Notifier{api: api, renderer: renderer, chatID: chatID}
}

// OnRunCommitted implements workers.RunObserver
func (n *Notifier) OnRunCommitted(ctx context.Context, report *models.RunReport) error {
	text, err := n.renderer.ExecuteTemplate(templates.RunReport, report)
	if err != nil {
		return fmt.Errorf("failed to render run report: %w", err)
	}

	return n.send(text)
}

func (n *Notifier) send(text string) error {
	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true

	if _, err := n.api.Send(msg); err != nil {
		logger.Error("failed to send telegram message",
			zap.Int64("chat_id", n.chatID),
			zap.Error(err),
		)
		return fmt.Errorf("failed to send message: %w", err)
	}

	return nil
}
