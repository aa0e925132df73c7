// Package search adapts the product store to the engine's similarity-search
// interface.
package search

import (
	"context"

	"github.com/pkg/errors"

	"github.com/hrygo/shopsense/engine"
	"github.com/hrygo/shopsense/store"
)

// StoreService runs similarity searches against the product store.
type StoreService struct {
	store *store.Store
	model string
}

// NewStoreService creates a search service over the store. model names the
// embedding model whose vectors the catalog was indexed with.
func NewStoreService(s *store.Store, model string) *StoreService {
	return &StoreService{store: s, model: model}
}

// Search implements engine.SearchService.
func (s *StoreService) Search(ctx context.Context, req *engine.SearchRequest) ([]engine.Candidate, error) {
	hits, err := s.store.SearchProducts(ctx, &store.SearchProductsOptions{
		Vector: req.Embedding,
		Text:   req.Text,
		Market: req.Market,
		Model:  s.model,
		Limit:  req.Limit,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to search products")
	}

	candidates := make([]engine.Candidate, 0, len(hits))
	for _, hit := range hits {
		candidates = append(candidates, engine.Candidate{
			ID:             hit.UID,
			Name:           hit.Name,
			NormalizedName: hit.NormalizedName,
			Description:    hit.Description,
			Brand:          hit.Brand,
			Category:       hit.Category,
			Market:         hit.Market,
			Price:          hit.Price,
			Score:          hit.Score,
		})
	}
	return candidates, nil
}
