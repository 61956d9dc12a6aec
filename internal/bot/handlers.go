package bot

import (
	"context"
	"log/slog"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// checker is the manual-trigger surface of the watcher.
type checker interface {
	TryCheck(ctx context.Context) (bool, error)
}

// HandlerDeps provides dependencies for Telegram command handlers.
type HandlerDeps struct {
	Logger  *slog.Logger
	Watcher checker
	AdminID int64
}

// AdminOnly creates a middleware that checks if the message sender is the
// configured admin user. Anyone else gets a refusal and processing stops.
func AdminOnly(deps HandlerDeps) tgbot.Middleware {
	return func(next tgbot.HandlerFunc) tgbot.HandlerFunc {
		return func(ctx context.Context, b *tgbot.Bot, update *models.Update) {
			if update.Message == nil || update.Message.From == nil {
				next(ctx, b, update)
				return
			}

			userID := update.Message.From.ID
			if userID != deps.AdminID {
				chatID := update.Message.Chat.ID
				log := deps.Logger.With("middleware", "AdminOnly")
				log.WarnContext(ctx, "Unauthorized access attempt", "user_id", userID, "chat_id", chatID)

				_, err := b.SendMessage(ctx, &tgbot.SendMessageParams{
					ChatID: chatID,
					Text:   "You are not authorized to use this command.",
				})
				if err != nil {
					log.ErrorContext(ctx, "Failed to send unauthorized message", "error", err, "chat_id", chatID)
				}
				return
			}

			next(ctx, b, update)
		}
	}
}

// NewCheckNowHandler returns the handler for the /checknow command. It runs
// an immediate poll cycle unless a scheduled cycle is already in flight, in
// which case the request coalesces into a no-op.
func NewCheckNowHandler(deps HandlerDeps) tgbot.HandlerFunc {
	return func(ctx context.Context, b *tgbot.Bot, update *models.Update) {
		log := deps.Logger.With("handler", "checknow")

		if update.Message == nil {
			return
		}
		chatID := update.Message.Chat.ID

		log.InfoContext(ctx, "Handling /checknow command", "chat_id", chatID)

		ran, err := deps.Watcher.TryCheck(ctx)

		var reply string
		switch {
		case !ran:
			reply = "A check is already running, skipping."
		case err != nil:
			log.ErrorContext(ctx, "Manual check failed", "error", err)
			reply = "Check failed, see logs."
		default:
			reply = "Check complete."
		}

		if _, sendErr := b.SendMessage(ctx, &tgbot.SendMessageParams{ChatID: chatID, Text: reply}); sendErr != nil {
			log.ErrorContext(ctx, "Failed to send checknow reply", "error", sendErr, "chat_id", chatID)
		}
	}
}
