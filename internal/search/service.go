package search

import (
	"context"

	"github.com/rs/zerolog"
)

// Service is the facade that tries Meilisearch first and falls back to
// PG FTS. meili may be nil when Meilisearch is not configured.
type Service struct {
	meili  *Meili
	pgfts  *PgFTS
	logger zerolog.Logger
}

func NewService(meili *Meili, pgfts *PgFTS, logger zerolog.Logger) *Service {
	return &Service{meili: meili, pgfts: pgfts, logger: logger}
}

// Search answers a quick search, preferring Meilisearch while healthy.
func (s *Service) Search(ctx context.Context, orgID, query string, limit int) ([]Hit, error) {
	if s.meili != nil && s.meili.Healthy() {
		hits, err := s.meili.Search(orgID, query, limit)
		if err == nil {
			return hits, nil
		}
		s.logger.Warn().Err(err).Msg("meilisearch error, falling back to pgfts")
	}
	return s.pgfts.Search(ctx, orgID, query, limit)
}

// IndexRecipe pushes one recipe into Meilisearch, fire and forget.
func (s *Service) IndexRecipe(ctx context.Context, doc Document) error {
	if s.meili == nil || !s.meili.Healthy() {
		return nil
	}
	go func() {
		if err := s.meili.Index(doc); err != nil {
			s.logger.Warn().Err(err).Str("recipe_id", doc.ID).Msg("index recipe failed")
		}
	}()
	return nil
}

// DeleteRecipe removes a recipe from Meilisearch, fire and forget.
func (s *Service) DeleteRecipe(ctx context.Context, recipeID string) error {
	if s.meili == nil || !s.meili.Healthy() {
		return nil
	}
	go func() {
		if err := s.meili.Delete(recipeID); err != nil {
			s.logger.Warn().Err(err).Str("recipe_id", recipeID).Msg("delete recipe from index failed")
		}
	}()
	return nil
}

// Reindex bulk-loads all recipes into Meilisearch.
func (s *Service) Reindex(ctx context.Context, docs []Document) error {
	if s.meili == nil || !s.meili.Healthy() {
		return nil
	}
	return s.meili.IndexAll(docs)
}
