package handler

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/nomadlaws/legalbot/internal/adapter/telegram"
	"github.com/nomadlaws/legalbot/internal/domain"
	"github.com/nomadlaws/legalbot/internal/middleware"
)

// greeting is sent in reply to /start.
const greeting = "🇬🇪 Привет! Я помогу вам разобраться с налоговым законодательством Грузии. Задавайте ваши вопросы!"

// AnswerService produces a user-facing answer for a legal question.
// Implementations never return an error: failures become fixed
// user-facing strings.
type AnswerService interface {
	Answer(ctx context.Context, userID, question string, tags domain.TagFilter) string
}

// MessageSender sends a text reply to a Telegram chat.
type MessageSender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// TelegramHandler receives webhook updates and replies with generated
// answers.
type TelegramHandler struct {
	answerer    AnswerService
	bot         MessageSender
	defaultTags domain.TagFilter
}

// NewTelegramHandler creates the webhook handler. All questions are
// answered against the configured default corpus slice.
func NewTelegramHandler(answerer AnswerService, bot MessageSender, defaultTags domain.TagFilter) *TelegramHandler {
	return &TelegramHandler{answerer: answerer, bot: bot, defaultTags: defaultTags}
}

// Register sets up the webhook route.
func (h *TelegramHandler) Register(app *fiber.App) {
	app.Post("/telegram/webhook", h.Webhook)
}

// Webhook handles one Telegram update. It always acknowledges with 200
// so Telegram does not redeliver; processing errors are logged.
func (h *TelegramHandler) Webhook(c fiber.Ctx) error {
	var update telegram.Update
	if err := c.Bind().JSON(&update); err != nil {
		slog.Error("malformed telegram update", "error", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"status": "error", "message": "invalid update"})
	}

	if update.Message == nil || update.Message.Text == "" {
		return c.JSON(fiber.Map{"status": "ok"})
	}

	chatID := update.Message.Chat.ID
	userID := strconv.FormatInt(update.Message.From.ID, 10)
	middleware.SetUserID(c, userID)

	text := strings.TrimSpace(update.Message.Text)

	var reply string
	if strings.HasPrefix(text, "/start") {
		reply = greeting
	} else {
		reply = h.answerer.Answer(c.Context(), userID, text, h.defaultTags)
	}

	if err := h.bot.SendMessage(c.Context(), chatID, reply); err != nil {
		slog.Error("sending telegram reply failed", "chat_id", chatID, "error", err)
	}

	return c.JSON(fiber.Map{"status": "ok"})
}
