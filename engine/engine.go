// Package engine defines the shared domain types and external-collaborator
// contracts of the ShopSense decision engine. The engine is a library-level
// component: it owns no wire format or CLI surface and is invoked in-process
// by whatever API layer embeds it.
package engine

import "context"

// SearchRequest describes one call to the external similarity-search service.
// Embedding and Text are independent query signals; either may be empty.
// An empty Market means "search all markets".
type SearchRequest struct {
	Embedding []float32
	Text      string
	Market    string
	Limit     int
}

// SearchService is the narrow contract with the external vector store.
// Implementations return raw candidates scored by embedding similarity.
// The engine treats failures and timeouts as zero results and never retries
// internally; retry policy belongs to the transport layer.
type SearchService interface {
	Search(ctx context.Context, req *SearchRequest) ([]Candidate, error)
}

// PhraseService turns structured decision facts into a human-readable
// recommendation sentence. It is strictly best-effort: any error is swallowed
// by the caller and replaced with a deterministic template.
type PhraseService interface {
	Phrase(ctx context.Context, facts map[string]any) (string, error)
}
