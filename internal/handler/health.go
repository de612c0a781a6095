package handler

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v3"

	"github.com/nomadlaws/legalbot/internal/adapter/telegram"
	"github.com/nomadlaws/legalbot/internal/domain"
)

// StatusProber reports operability of the retrieval pipeline.
type StatusProber interface {
	Status(ctx context.Context) domain.PipelineStatus
}

// WebhookInspector reports the registered Telegram webhook state.
type WebhookInspector interface {
	GetWebhookInfo(ctx context.Context) (*telegram.WebhookInfo, error)
}

// HealthHandler reports service and dependency health for monitoring.
type HealthHandler struct {
	appName string
	prober  StatusProber
	bot     WebhookInspector // nil when the bot is not configured
}

// NewHealthHandler creates the health endpoint handler.
func NewHealthHandler(appName string, prober StatusProber, bot WebhookInspector) *HealthHandler {
	return &HealthHandler{appName: appName, prober: prober, bot: bot}
}

// Register sets up the health route.
func (h *HealthHandler) Register(app *fiber.App) {
	app.Get("/health", h.Health)
}

// Health reports pipeline and webhook status. A down dependency is
// reported in the payload; the endpoint itself always answers.
func (h *HealthHandler) Health(c fiber.Ctx) error {
	status := h.prober.Status(c.Context())

	payload := fiber.Map{
		"status":        "healthy",
		"app":           h.appName,
		"vector_search": status,
	}

	if h.bot != nil {
		if info, err := h.bot.GetWebhookInfo(c.Context()); err != nil {
			slog.Error("webhook info failed", "error", err)
			payload["telegram_webhook"] = fiber.Map{"error": "unavailable"}
		} else {
			payload["telegram_webhook"] = info
		}
	}

	return c.JSON(payload)
}
