package compare

import "context"

// ProviderInfo identifies which comparison backend produced a score batch.
type ProviderInfo struct {
	Name  string `json:"name"`
	Model string `json:"model"`
}

// Request carries one query text against a batch of candidate texts. Scores
// come back in candidate order, one per candidate, each in [0, 1].
type Request struct {
	Query      string   `json:"query"`
	Candidates []string `json:"candidates"`
}

type Comparer interface {
	Compare(ctx context.Context, req Request) ([]float64, ProviderInfo, error)
}
