package compare

import (
	"context"
	"strings"
)

// MockComparer is a deterministic offline scorer: the Jaccard overlap of
// lowercased word sets. Good enough for wiring tests and local development;
// replace with the HTTP provider for semantic quality.
type MockComparer struct{}

func NewMockComparer() *MockComparer {
	return &MockComparer{}
}

func (m *MockComparer) Compare(ctx context.Context, req Request) ([]float64, ProviderInfo, error) {
	_ = ctx
	info := ProviderInfo{Name: "mock", Model: "token-overlap-v1"}
	query := tokenSet(req.Query)
	scores := make([]float64, len(req.Candidates))
	for i, text := range req.Candidates {
		scores[i] = jaccard(query, tokenSet(text))
	}
	return scores, info, nil
}

func tokenSet(text string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, ".,;:!?()[]\"'")
		if w != "" {
			out[w] = struct{}{}
		}
	}
	return out
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for w := range a {
		if _, ok := b[w]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}
