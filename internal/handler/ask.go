package handler

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v3"

	"github.com/nomadlaws/legalbot/internal/domain"
)

// DocumentLoader ingests a tagged document into the vector index.
type DocumentLoader interface {
	LoadDocument(ctx context.Context, content string, tags domain.TagFilter) bool
}

// AskHandler exposes the question-answering pipeline over REST, next to
// the Telegram front-end.
type AskHandler struct {
	answerer    AnswerService
	loader      DocumentLoader
	defaultTags domain.TagFilter
}

// NewAskHandler creates the REST ask/ingest handler.
func NewAskHandler(answerer AnswerService, loader DocumentLoader, defaultTags domain.TagFilter) *AskHandler {
	return &AskHandler{answerer: answerer, loader: loader, defaultTags: defaultTags}
}

// Register sets up the ask and ingest routes.
func (h *AskHandler) Register(router fiber.Router) {
	router.Post("/ask", h.Ask)
	router.Post("/ingest", h.Ingest)
}

// tagsOrDefault fills missing tag fields from the configured defaults.
func (h *AskHandler) tagsOrDefault(country, lawType, language string) domain.TagFilter {
	tags := h.defaultTags
	if country != "" {
		tags.Country = country
	}
	if lawType != "" {
		tags.LawType = lawType
	}
	if language != "" {
		tags.Language = language
	}
	return tags
}

// Ask answers a legal question for the requested corpus slice.
func (h *AskHandler) Ask(c fiber.Ctx) error {
	var body struct {
		Question string `json:"question"`
		Country  string `json:"country"`
		LawType  string `json:"law_type"`
		Language string `json:"language"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if body.Question == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "question is required"})
	}

	tags := h.tagsOrDefault(body.Country, body.LawType, body.Language)
	answer := h.answerer.Answer(c.Context(), "api", body.Question, tags)

	return c.JSON(fiber.Map{
		"answer":   answer,
		"country":  tags.Country,
		"law_type": tags.LawType,
		"language": tags.Language,
	})
}

// Ingest loads a document into the index in the background. Ingestion is
// not designed for concurrent runs over the same tag set; this is an
// operator endpoint, not a user-facing one.
func (h *AskHandler) Ingest(c fiber.Ctx) error {
	var body struct {
		Content  string `json:"content"`
		Country  string `json:"country"`
		LawType  string `json:"law_type"`
		Language string `json:"language"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if body.Content == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "content is required"})
	}

	tags := h.tagsOrDefault(body.Country, body.LawType, body.Language)

	go func() {
		if ok := h.loader.LoadDocument(context.Background(), body.Content, tags); !ok {
			slog.Error("background ingestion failed", "tags", tags.Title())
		}
	}()

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"started": true,
		"tags":    tags.Title(),
	})
}
