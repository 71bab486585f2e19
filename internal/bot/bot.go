package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"dailybrief/internal/domain"
	"dailybrief/internal/ratelimiter"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const updateProcessingTimeout = 2 * time.Minute

type DigestSource interface {
	Latest(ctx context.Context, account string) (*domain.Digest, error)
	Build(ctx context.Context, account string, city string) (*domain.Digest, error)
}

type Options struct {
	Token          string
	AllowedChatIDs []int64
	Account        string
	City           string

	// ServerURL overrides the Telegram Bot API address.
	ServerURL string
}

type Bot struct {
	api     *tgbot.Bot
	limiter *ratelimiter.Limiter
	digests DigestSource
	allowed []int64
	account string
	city    string
	log     *slog.Logger
}

func New(opts Options, digests DigestSource, log *slog.Logger) (*Bot, error) {
	b := &Bot{
		limiter: ratelimiter.New(log),
		digests: digests,
		allowed: opts.AllowedChatIDs,
		account: opts.Account,
		city:    opts.City,
		log:     log,
	}

	botOpts := []tgbot.Option{
		tgbot.WithSkipGetMe(),
		tgbot.WithMiddlewares(b.allowedChatsOnly, b.withTimeout),
		tgbot.WithDefaultHandler(b.handleUnknown),
	}
	if opts.ServerURL != "" {
		botOpts = append(botOpts, tgbot.WithServerURL(opts.ServerURL))
	}

	api, err := tgbot.New(strings.TrimSpace(opts.Token), botOpts...)
	if err != nil {
		return nil, fmt.Errorf("create bot API: %w", err)
	}

	api.RegisterHandler(tgbot.HandlerTypeMessageText, "/start", tgbot.MatchTypePrefix, b.handleStartCommand)
	api.RegisterHandler(tgbot.HandlerTypeMessageText, "/brief", tgbot.MatchTypePrefix, b.handleBriefCommand)

	b.api = api

	return b, nil
}

// Start polls for updates until ctx is done.
func (b *Bot) Start(ctx context.Context) {
	b.log.InfoContext(ctx, "Bot is started",
		"allowedChats", len(b.allowed))

	b.api.Start(ctx)

	b.log.InfoContext(ctx, "Bot context is done",
		"error", ctx.Err())
}

// SendDigest delivers d to one chat, split into as many messages as needed.
func (b *Bot) SendDigest(ctx context.Context, chatID int64, d *domain.Digest) error {
	var errs []error

	for _, message := range FormatDigest(d) {
		if err := b.sendMessage(ctx, chatID, message); err != nil {
			errs = append(errs, err)

			if ctx.Err() != nil {
				break
			}
		}
	}

	return errors.Join(errs...)
}

// Broadcast delivers d to every allowed chat.
func (b *Bot) Broadcast(ctx context.Context, d *domain.Digest) error {
	var errs []error

	for _, chatID := range b.allowed {
		if err := b.SendDigest(ctx, chatID, d); err != nil {
			errs = append(errs, fmt.Errorf("send digest to chat %d: %w", chatID, err))
		}
	}

	return errors.Join(errs...)
}

func (b *Bot) sendMessage(ctx context.Context, chatID int64, text string) error {
	if err := b.limiter.Wait(ctx, chatID); err != nil {
		return fmt.Errorf("wait rate limiter: %w", err)
	}

	_, err := b.api.SendMessage(ctx, &tgbot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: models.ParseModeMarkdown,
	})
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}

	return nil
}

func (b *Bot) chatAllowed(chatID int64) bool {
	return slices.Contains(b.allowed, chatID)
}

func (b *Bot) allowedChatsOnly(next tgbot.HandlerFunc) tgbot.HandlerFunc {
	return func(ctx context.Context, api *tgbot.Bot, update *models.Update) {
		if update.Message == nil {
			return
		}

		if !b.chatAllowed(update.Message.Chat.ID) {
			b.log.DebugContext(ctx, "Chat is not allowed",
				"chatID", update.Message.Chat.ID,
				"chatType", update.Message.Chat.Type)

			return
		}

		next(ctx, api, update)
	}
}

func (b *Bot) withTimeout(next tgbot.HandlerFunc) tgbot.HandlerFunc {
	return func(ctx context.Context, api *tgbot.Bot, update *models.Update) {
		ctx, cancel := context.WithTimeout(ctx, updateProcessingTimeout)
		defer cancel()

		next(ctx, api, update)
	}
}
