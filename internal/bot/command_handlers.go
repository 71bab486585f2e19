package bot

import (
	"context"
	"errors"
	"fmt"

	"dailybrief/internal/database"
	"dailybrief/internal/domain"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const welcomeText = `☀️ *Welcome to Daily Brief\!*

Every morning I send you a short brief:

– Your upcoming calendar events
– Today's top news
– The weather in your city

Send /brief to get the latest one right now\.`

const failedText = "❌ Failed to prepare the brief\\."

func (b *Bot) handleStartCommand(ctx context.Context, _ *tgbot.Bot, update *models.Update) {
	chatID := update.Message.Chat.ID

	if err := b.sendMessage(ctx, chatID, welcomeText); err != nil {
		b.log.ErrorContext(ctx, "Failed to handle start command",
			"error", err,
			"chatID", chatID)
	}
}

func (b *Bot) handleBriefCommand(ctx context.Context, _ *tgbot.Bot, update *models.Update) {
	chatID := update.Message.Chat.ID

	err := b.withSpinner(ctx, chatID, func() error {
		d, err := b.latestOrBuild(ctx)
		if err != nil {
			if sendErr := b.sendMessage(ctx, chatID, failedText); sendErr != nil {
				return errors.Join(err, sendErr)
			}

			return err
		}

		return b.SendDigest(ctx, chatID, d)
	})
	if err != nil {
		b.log.ErrorContext(ctx, "Failed to handle brief command",
			"error", err,
			"chatID", chatID,
			"messageID", update.Message.ID)
	}
}

func (b *Bot) handleUnknown(ctx context.Context, _ *tgbot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	b.log.DebugContext(ctx, "Ignoring message",
		"chatID", update.Message.Chat.ID,
		"textLen", len(update.Message.Text))
}

func (b *Bot) latestOrBuild(ctx context.Context) (*domain.Digest, error) {
	d, err := b.digests.Latest(ctx, b.account)
	if err == nil {
		return d, nil
	}
	if !errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("get latest digest: %w", err)
	}

	d, err = b.digests.Build(ctx, b.account, b.city)
	if err != nil {
		return nil, fmt.Errorf("build digest: %w", err)
	}

	return d, nil
}
