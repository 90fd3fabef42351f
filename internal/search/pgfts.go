package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PgFTS implements quick search over Postgres full text search. It is
// the fallback when Meilisearch is missing or down.
type PgFTS struct {
	db *sql.DB
}

// NewPgFTS creates a PostgreSQL FTS searcher.
func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

// Search matches the query against recipe titles and ingredients,
// scoped to one organization and ranked on the title match.
func (p *PgFTS) Search(ctx context.Context, orgID, query string, limit int) ([]Hit, error) {
	if strings.TrimSpace(query) == "" {
		return []Hit{}, nil
	}
	if limit <= 0 {
		limit = 10
	}

	rows, err := p.db.QueryContext(ctx, `
		SELECT r.id, r.title,
			ts_headline('simple', r.ingredients, plainto_tsquery('simple', $2), 'MaxFragments=1,MaxWords=20') AS snippet,
			mt.name, c.name
		FROM recipes r
		JOIN meal_types mt ON mt.id = r.meal_type_id
		JOIN cuisines c ON c.id = r.cuisine_id
		WHERE r.organization_id=$1
		  AND (r.title_fts @@ plainto_tsquery('simple', $2)
		       OR to_tsvector('simple', r.ingredients) @@ plainto_tsquery('simple', $2))
		ORDER BY ts_rank(r.title_fts, plainto_tsquery('simple', $2)) DESC, r.updated_at DESC
		LIMIT $3
	`, orgID, query, limit)
	if err != nil {
		return nil, fmt.Errorf("pgfts search: %w", err)
	}
	defer rows.Close()

	hits := make([]Hit, 0)
	for rows.Next() {
		var hit Hit
		if err := rows.Scan(&hit.ID, &hit.Title, &hit.Snippet, &hit.MealType, &hit.Cuisine); err != nil {
			return nil, fmt.Errorf("scan search hit: %w", err)
		}
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate search hits: %w", err)
	}
	return hits, nil
}
