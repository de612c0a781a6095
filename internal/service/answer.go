package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nomadlaws/legalbot/internal/adapter/store"
	"github.com/nomadlaws/legalbot/internal/domain"
	"github.com/nomadlaws/legalbot/internal/port"
)

// Fixed user-facing strings per answer language. Internal errors are
// logged and never shown to the end user.
var (
	noContextMessages = map[string]string{
		"ru": "К сожалению, я не нашёл подходящей информации в законодательстве по вашему вопросу.",
		"en": "Unfortunately, I could not find relevant information in the law for your question.",
		"ka": "სამწუხაროდ, თქვენს კითხვაზე შესაბამისი ინფორმაცია კანონმდებლობაში ვერ მოიძებნა.",
	}
	apologyMessages = map[string]string{
		"ru": "Произошла ошибка при обработке вашего вопроса. Пожалуйста, попробуйте ещё раз позже.",
		"en": "Something went wrong while processing your question. Please try again later.",
		"ka": "თქვენი კითხვის დამუშავებისას მოხდა შეცდომა. გთხოვთ, სცადოთ მოგვიანებით.",
	}
	fallbackLanguage = "en"
)

// Answerer turns a legal question into an answer grounded in retrieved
// law chunks.
type Answerer struct {
	retriever *Retriever
	generator port.Generator
	log       *store.PostgresStore // nil disables the conversation log
	topK      int
}

// NewAnswerer wires the answer service. log may be nil.
func NewAnswerer(retriever *Retriever, generator port.Generator, log *store.PostgresStore, topK int) *Answerer {
	return &Answerer{
		retriever: retriever,
		generator: generator,
		log:       log,
		topK:      topK,
	}
}

// Answer retrieves context for the question and generates a grounded
// answer. With no retrievable context it returns a fixed no-information
// message without calling the generation model. Generation failures
// surface as a fixed apology, never as raw error text.
func (a *Answerer) Answer(ctx context.Context, userID, question string, tags domain.TagFilter) string {
	chunks := a.retriever.RelevantContext(ctx, question, tags, a.topK)
	if len(chunks) == 0 {
		slog.Info("no relevant context found", "tags", tags.Title())
		return localized(noContextMessages, tags.Language)
	}

	prompt := buildPrompt(question, tags, chunks)

	answer, err := a.generator.Generate(ctx, prompt)
	if err != nil {
		slog.Error("answer generation failed", "error", err)
		return localized(apologyMessages, tags.Language)
	}

	a.record(ctx, userID, question, answer, tags)
	return answer
}

func buildPrompt(question string, tags domain.TagFilter, chunks []string) string {
	contextBlock := strings.Join(chunks, "\n\n")
	return fmt.Sprintf(`You are a Legal Assistant specializing in %s %s law.
Answer the following question in %s.
Base your answer only on these relevant sections of law:

%s

Question: %s`,
		titleCase(tags.Country), tags.LawType, tags.Language, contextBlock, question)
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func (a *Answerer) record(ctx context.Context, userID, question, answer string, tags domain.TagFilter) {
	if a.log == nil {
		return
	}
	err := a.log.InsertExchange(ctx, &domain.ChatExchange{
		UserID:   userID,
		Question: question,
		Answer:   answer,
		Country:  tags.Country,
		LawType:  tags.LawType,
		Language: tags.Language,
	})
	if err != nil {
		slog.Error("recording exchange failed", "error", err)
	}
}

func localized(messages map[string]string, language string) string {
	if msg, ok := messages[language]; ok {
		return msg
	}
	return messages[fallbackLanguage]
}
