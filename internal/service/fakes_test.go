package service

import (
	"context"
	"errors"
	"strings"

	"github.com/nomadlaws/legalbot/internal/domain"
	"github.com/nomadlaws/legalbot/internal/port"
)

// fakeEmbedder returns deterministic vectors and can be told to fail for
// specific inputs.
type fakeEmbedder struct {
	dimension int
	vectors   map[string][]float32 // optional fixed vectors per text
	failFor   map[string]bool      // texts whose embedding fails
	failAll   bool

	calls []embedCall
}

type embedCall struct {
	text   string
	intent port.EmbedIntent
	title  string
}

func newFakeEmbedder(dimension int) *fakeEmbedder {
	return &fakeEmbedder{
		dimension: dimension,
		vectors:   map[string][]float32{},
		failFor:   map[string]bool{},
	}
}

func (f *fakeEmbedder) ModelName() string { return "fake-embedding-001" }

func (f *fakeEmbedder) Embed(_ context.Context, text string, intent port.EmbedIntent, title string) ([]float32, error) {
	f.calls = append(f.calls, embedCall{text: text, intent: intent, title: title})
	if f.failAll || f.failFor[text] {
		return nil, errors.New("upstream embedding error")
	}
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	// Derived vector: length of the text in the first component.
	v := make([]float32, f.dimension)
	v[0] = float32(len(strings.Fields(text)))
	return v, nil
}

// fakeIndex is an in-memory vector index with exact tag filtering and
// dot-product similarity.
type fakeIndex struct {
	unavailable bool
	upsertErr   error
	records     map[string]domain.EmbeddingRecord
	upsertCalls int
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{records: map[string]domain.EmbeddingRecord{}}
}

func (f *fakeIndex) Ready() bool { return !f.unavailable }

func (f *fakeIndex) Upsert(_ context.Context, records []domain.EmbeddingRecord) error {
	if f.unavailable {
		return port.ErrIndexUnavailable
	}
	f.upsertCalls++
	if f.upsertErr != nil {
		return f.upsertErr
	}
	for _, r := range records {
		f.records[r.ID] = r
	}
	return nil
}

func (f *fakeIndex) Query(_ context.Context, vector []float32, k int, filter domain.TagFilter) ([]domain.ScoredChunk, error) {
	if f.unavailable {
		return nil, port.ErrIndexUnavailable
	}
	var out []domain.ScoredChunk
	for _, r := range f.records {
		if r.Tags != filter {
			continue
		}
		out = append(out, domain.ScoredChunk{Text: r.Text, Score: dot(vector, r.Vector)})
	}
	// Insertion sort by decreasing score; result sets are tiny.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Score > out[j-1].Score; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}

func (f *fakeIndex) HasData(_ context.Context) (bool, error) {
	if f.unavailable {
		return false, port.ErrIndexUnavailable
	}
	return len(f.records) > 0, nil
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		if i < len(b) {
			sum += float64(a[i]) * float64(b[i])
		}
	}
	return sum
}

// fakeGenerator records the prompt and returns a canned answer.
type fakeGenerator struct {
	answer  string
	err     error
	prompts []string
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}
