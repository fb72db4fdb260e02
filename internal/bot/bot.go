// Package bot implements the Telegram surface: command handling and
// notification delivery.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"reddit_bot/internal/config"
	"reddit_bot/internal/reddit"
	"reddit_bot/internal/storage"
)

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetChat(config tgbotapi.ChatInfoConfig) (tgbotapi.Chat, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// CycleRunner triggers one poll cycle on demand.
type CycleRunner interface {
	RunNow(ctx context.Context) error
}

// Bot is the Telegram bot that handles commands and sends notifications.
type Bot struct {
	api       telegramAPI
	store     storage.SeenStore
	cfg       *config.Config
	log       *slog.Logger
	runner    CycleRunner
	startedAt time.Time
}

// New creates a Bot with the given Telegram token, seen store, and config.
func New(token string, store storage.SeenStore, cfg *config.Config, log *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	return &Bot{
		api:       api,
		store:     store,
		cfg:       cfg,
		log:       log,
		startedAt: time.Now(),
	}, nil
}

// SetCycleRunner wires the scheduler so /check can trigger a cycle.
// Must be called before Run.
func (b *Bot) SetCycleRunner(r CycleRunner) {
	b.runner = r
}

// Run starts the bot's long-polling loop, blocking until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update := <-updates:
			if update.Message == nil || update.Message.From == nil || !update.Message.IsCommand() {
				continue
			}
			b.handleCommand(ctx, update.Message)
		}
	}
}

// VerifyChannel checks that a chat id resolves to a live destination.
func (b *Bot) VerifyChannel(chatID int64) error {
	_, err := b.api.GetChat(tgbotapi.ChatInfoConfig{
		ChatConfig: tgbotapi.ChatConfig{ChatID: chatID},
	})
	if err != nil {
		return fmt.Errorf("get chat %d: %w", chatID, err)
	}
	return nil
}

// SendPost delivers a post notification to a chat and returns the sent
// message id. A post with a resolved preview image is sent as a photo
// with a caption, everything else as a plain message.
func (b *Bot) SendPost(chatID int64, post *reddit.Post, imageURL string) (int, error) {
	n := BuildNotification(post, imageURL)

	var sent tgbotapi.Message
	var err error
	if n.ImageURL != "" {
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(n.ImageURL))
		photo.Caption = RenderText(n)
		sent, err = b.api.Send(photo)
	} else {
		msg := tgbotapi.NewMessage(chatID, RenderText(n))
		msg.DisableWebPagePreview = false
		sent, err = b.api.Send(msg)
	}
	if err != nil {
		return 0, fmt.Errorf("send post %s to chat %d: %w", post.ID, chatID, err)
	}
	return sent.MessageID, nil
}

func (b *Bot) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send message", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	cmd := msg.Command()
	args := strings.TrimSpace(msg.CommandArguments())
	chatID := msg.Chat.ID

	b.log.Debug("command", "cmd", cmd, "args", args, "chat_id", chatID)

	switch cmd {
	case "start":
		b.handleStart(chatID)
	case "help":
		b.handleHelp(chatID)
	case "status":
		b.handleStatus(ctx, chatID)
	case "check":
		b.handleCheck(ctx, chatID, msg.From.ID)
	default:
		b.reply(chatID, "Unknown command. Use /help for a list of commands.")
	}
}
