package ratelimiter

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const (
	privateChatRate = time.Second
	groupChatRate   = 3 * time.Second
)

// Limiter spaces outgoing messages per chat. Group chats have negative IDs
// and get a slower rate.
type Limiter struct {
	mu       sync.Mutex
	lastSent map[int64]time.Time
	log      *slog.Logger
}

func New(log *slog.Logger) *Limiter {
	return &Limiter{
		lastSent: make(map[int64]time.Time),
		log:      log,
	}
}

// Wait blocks until a message may be sent to chatID and reserves that slot.
func (l *Limiter) Wait(ctx context.Context, chatID int64) error {
	l.mu.Lock()
	var delay time.Duration
	if lastSent, exists := l.lastSent[chatID]; exists {
		delay = getDelay(chatID, lastSent)
	}
	l.lastSent[chatID] = time.Now().Add(delay)
	l.mu.Unlock()

	if delay == 0 {
		return ctx.Err()
	}

	l.log.DebugContext(ctx, "Rate limiting message",
		"chatID", chatID,
		"delay", delay)

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func getDelay(
	chatID int64,
	lastSent time.Time,
) time.Duration {
	elapsed := time.Since(lastSent)
	rate := getRate(chatID)

	return max(rate-elapsed, 0)
}

func getRate(chatID int64) time.Duration {
	if chatID < 0 {
		return groupChatRate
	}
	return privateChatRate
}
