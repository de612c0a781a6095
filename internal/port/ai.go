package port

import "context"

// EmbedIntent distinguishes document ingestion from query embedding.
// Some embedding models condition on it (and on a document title).
type EmbedIntent string

const (
	IntentDocument EmbedIntent = "RETRIEVAL_DOCUMENT"
	IntentQuery    EmbedIntent = "RETRIEVAL_QUERY"
)

// Embedder abstracts the embedding API backend.
type Embedder interface {
	// ModelName returns the identifier of the embedding model in use.
	ModelName() string

	// Embed generates a fixed-dimension vector for the given text.
	// title is attached only for IntentDocument and ignored otherwise.
	Embed(ctx context.Context, text string, intent EmbedIntent, title string) ([]float32, error)
}

// Generator abstracts the text-generation API backend.
type Generator interface {
	// Generate sends a complete prompt and returns the generated text.
	Generate(ctx context.Context, prompt string) (string, error)
}
