package notify

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// maxSendAttempts bounds the adapter's own delivery retries. Rate-limit
// waits come from Telegram's retry_after hint, other failures give up after
// the attempts run out.
const maxSendAttempts = 5

// severityIcon maps a notification severity to the color tag rendered in
// front of the title.
var severityIcon = map[Severity]string{
	SeverityPlaying:    "🟢",
	SeverityOnline:     "🔵",
	SeverityOffline:    "🔴",
	SeveritySameServer: "🟣",
	SeverityRateLimit:  "🟠",
}

// messageSender is the slice of the Telegram bot API the adapter needs.
// *tgbot.Bot satisfies it.
type messageSender interface {
	SendMessage(ctx context.Context, params *tgbot.SendMessageParams) (*models.Message, error)
}

// Telegram delivers notifications as Telegram messages. Regular
// notifications go to chatID, operational alerts to alertChatID. Broadcast
// notifications mention the admin user so they trigger a push.
type Telegram struct {
	api         messageSender
	chatID      int64
	alertChatID int64
	adminID     int64
	logger      *slog.Logger

	sleep func(ctx context.Context, d time.Duration) error
}

// NewTelegram creates the Telegram sink adapter.
func NewTelegram(api messageSender, chatID, alertChatID, adminID int64, logger *slog.Logger) *Telegram {
	if logger == nil {
		logger = slog.Default()
	}
	if alertChatID == 0 {
		alertChatID = chatID
	}
	return &Telegram{
		api:         api,
		chatID:      chatID,
		alertChatID: alertChatID,
		adminID:     adminID,
		logger:      logger.With("component", "telegram_notifier"),
		sleep:       sleepContext,
	}
}

// Send renders and delivers one notification, retrying on Telegram rate
// limits with the hint Telegram provides.
func (t *Telegram) Send(ctx context.Context, n Notification) error {
	chatID := t.chatID
	if _, ok := n.(OperationalAlert); ok {
		chatID = t.alertChatID
	}

	params := &tgbot.SendMessageParams{
		ChatID:    chatID,
		Text:      t.render(n),
		ParseMode: models.ParseModeHTML,
	}

	var lastErr error
	for attempt := 1; attempt <= maxSendAttempts; attempt++ {
		_, err := t.api.SendMessage(ctx, params)
		if err == nil {
			t.logger.DebugContext(ctx, "Notification delivered",
				"title", n.Title(), "severity", n.Severity(), "attempt", attempt)
			return nil
		}
		lastErr = err

		var tooMany *tgbot.TooManyRequestsError
		if errors.As(err, &tooMany) {
			wait := time.Duration(tooMany.RetryAfter) * time.Second
			if wait <= 0 {
				wait = time.Second
			}
			t.logger.WarnContext(ctx, "Telegram rate limited, waiting before retry",
				"retry_after", wait, "attempt", attempt)
			if sleepErr := t.sleep(ctx, wait); sleepErr != nil {
				return sleepErr
			}
			continue
		}

		t.logger.ErrorContext(ctx, "Failed to deliver notification",
			"title", n.Title(), "attempt", attempt, "error", err)
		break
	}

	return fmt.Errorf("failed to send notification %q: %w", n.Title(), lastErr)
}

// render builds the HTML message body. Notification text is escaped;
// titles are trusted (they come from the closed variant set).
func (t *Telegram) render(n Notification) string {
	icon := severityIcon[n.Severity()]

	text := fmt.Sprintf("%s <b>%s</b>\n%s", icon, n.Title(), html.EscapeString(n.Body()))
	if n.Broadcast() && t.adminID != 0 {
		text += fmt.Sprintf("\n\n<a href=\"tg://user?id=%d\">&#8203;</a>", t.adminID)
	}
	return text
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
