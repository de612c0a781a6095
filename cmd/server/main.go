package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/gofiber/fiber/v3"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/joho/godotenv"

	"github.com/nomadlaws/legalbot/internal/adapter/ai"
	"github.com/nomadlaws/legalbot/internal/adapter/index/pgvector"
	"github.com/nomadlaws/legalbot/internal/adapter/index/qdrant"
	"github.com/nomadlaws/legalbot/internal/adapter/store"
	"github.com/nomadlaws/legalbot/internal/adapter/telegram"
	"github.com/nomadlaws/legalbot/internal/chunker"
	"github.com/nomadlaws/legalbot/internal/domain"
	"github.com/nomadlaws/legalbot/internal/handler"
	"github.com/nomadlaws/legalbot/internal/middleware"
	"github.com/nomadlaws/legalbot/internal/port"
	"github.com/nomadlaws/legalbot/internal/service"
	"github.com/nomadlaws/legalbot/pkg/config"

	_ "github.com/lib/pq"
)

const telegramAPIBaseURL = "https://api.telegram.org"

func main() {
	// ── Load .env file ───────────────────────────────────────────────────
	_ = godotenv.Load() // silently ignore if .env doesn't exist

	// ── Configuration ────────────────────────────────────────────────────
	cfg := config.Load()

	slog.Info("🚀 Starting Nomad Laws",
		"port", cfg.Port,
		"vector_backend", cfg.VectorBackend,
		"embed_model", cfg.GeminiEmbedModel,
		"chat_model", cfg.GeminiChatModel,
	)

	// ── Chunker (invalid parameters are fatal at startup) ───────────────
	textChunker, err := chunker.New(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		slog.Error("invalid chunking configuration", "error", err)
		os.Exit(1)
	}

	// ── Adapters ─────────────────────────────────────────────────────────
	gemini := ai.NewGeminiProvider(ai.GeminiEndpointConfig{
		BaseURL:    cfg.GeminiBaseURL,
		EmbedModel: cfg.GeminiEmbedModel,
		ChatModel:  cfg.GeminiChatModel,
		APIKey:     cfg.GeminiAPIKey,
	})

	var index port.VectorIndex
	switch cfg.VectorBackend {
	case "pgvector":
		index = pgvector.New(cfg.DatabaseURL, cfg.EmbeddingDimension)
	case "qdrant":
		index = qdrant.New(qdrant.Config{
			URL:        cfg.QdrantURL,
			APIKey:     cfg.QdrantAPIKey,
			Collection: cfg.QdrantCollection,
			Dimension:  cfg.EmbeddingDimension,
		})
	default:
		slog.Error("unknown vector backend", "backend", cfg.VectorBackend)
		os.Exit(1)
	}
	if !index.Ready() {
		slog.Warn("vector index unavailable, running degraded", "backend", cfg.VectorBackend)
	}

	// Conversation log is best-effort; nil disables it.
	logStore := store.Open(cfg.DatabaseURL)
	if logStore != nil {
		defer logStore.Close()
	}

	var bot *telegram.Bot
	if cfg.TelegramToken != "" {
		bot = telegram.NewBot(telegramAPIBaseURL, cfg.TelegramToken)
	} else {
		slog.Warn("TELEGRAM_TOKEN not set, telegram front-end disabled")
	}

	// ── Services ─────────────────────────────────────────────────────────
	retriever := service.NewRetriever(textChunker, gemini, index, cfg.EmbeddingDimension)
	answerer := service.NewAnswerer(retriever, gemini, logStore, cfg.TopK)

	defaultTags := domain.TagFilter{
		Country:  cfg.DefaultCountry,
		LawType:  cfg.DefaultLawType,
		Language: cfg.DefaultLanguage,
	}

	// ── Fiber App ────────────────────────────────────────────────────────
	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute, // generation calls can be slow
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())

	var auditWriter middleware.AuditWriter
	if logStore != nil {
		auditWriter = logStore
	}
	app.Use(middleware.AuditMiddleware(auditWriter))

	// ── Routes ───────────────────────────────────────────────────────────
	var inspector handler.WebhookInspector
	if bot != nil {
		inspector = bot
	}
	handler.NewHealthHandler(cfg.AppName, retriever, inspector).Register(app)

	if bot != nil {
		handler.NewTelegramHandler(answerer, bot, defaultTags).Register(app)
	}

	api := app.Group("/api/v1")
	handler.NewAskHandler(answerer, retriever, defaultTags).Register(api)

	// ── Startup ingestion + webhook registration ────────────────────────
	go bootstrap(cfg, retriever, bot, defaultTags)

	// ── Start ────────────────────────────────────────────────────────────
	slog.Info("🌐 Fiber listening", "port", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

// bootstrap loads the configured document into the vector index and
// registers the Telegram webhook. Failures are logged; the service still
// serves whatever is already indexed.
func bootstrap(cfg *config.Config, retriever *service.Retriever, bot *telegram.Bot, tags domain.TagFilter) {
	if cfg.DocumentPath != "" {
		content, err := os.ReadFile(cfg.DocumentPath)
		if err != nil {
			slog.Error("reading startup document failed", "path", cfg.DocumentPath, "error", err)
		} else {
			slog.Info("loaded startup document", "path", cfg.DocumentPath, "bytes", len(content))
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
			retriever.LoadDocument(ctx, string(content), tags)
			cancel()
		}
	}

	if bot != nil && cfg.PublicURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		webhookURL := cfg.PublicURL + "/telegram/webhook"
		if err := bot.SetWebhook(ctx, webhookURL); err != nil {
			slog.Error("webhook registration failed", "url", webhookURL, "error", err)
		} else {
			slog.Info("webhook registered", "url", webhookURL)
		}
	}
}
