package search

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	meili "github.com/meilisearch/meilisearch-go"
	"github.com/rs/zerolog"
)

const idxRecipes = "cookbase_recipes"

// Meili is the Meilisearch backend.
type Meili struct {
	client  meili.ServiceManager
	logger  zerolog.Logger
	healthy atomic.Bool
	done    chan struct{}
}

// NewMeili creates a Meilisearch client and configures the recipe
// index. An unreachable server is tolerated; the health loop keeps
// probing and reconfigures once it comes back.
func NewMeili(url, apiKey string, logger zerolog.Logger) *Meili {
	client := meili.New(url, meili.WithAPIKey(apiKey))

	m := &Meili{
		client: client,
		logger: logger,
		done:   make(chan struct{}),
	}

	if _, err := client.Health(); err != nil {
		logger.Warn().Err(err).Str("url", url).Msg("meilisearch unavailable")
		m.healthy.Store(false)
	} else {
		m.healthy.Store(true)
		m.configureIndex()
	}

	go m.healthLoop()
	return m
}

func (m *Meili) configureIndex() {
	if _, err := m.client.CreateIndex(&meili.IndexConfig{
		Uid:        idxRecipes,
		PrimaryKey: "id",
	}); err != nil {
		m.logger.Debug().Err(err).Msg("create recipe index (may already exist)")
	}

	index := m.client.Index(idxRecipes)
	filterable := []interface{}{"organizationId"}
	if _, err := index.UpdateFilterableAttributes(&filterable); err != nil {
		m.logger.Warn().Err(err).Msg("update filterable attributes")
	}
	searchable := []string{"title", "ingredients"}
	if _, err := index.UpdateSearchableAttributes(&searchable); err != nil {
		m.logger.Warn().Err(err).Msg("update searchable attributes")
	}
}

func (m *Meili) healthLoop() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			_, err := m.client.Health()
			wasHealthy := m.healthy.Load()
			m.healthy.Store(err == nil)
			if err == nil && !wasHealthy {
				m.logger.Info().Msg("meilisearch recovered, reconfiguring index")
				m.configureIndex()
			}
		}
	}
}

// Close stops the background health monitor.
func (m *Meili) Close() {
	close(m.done)
}

// Healthy reports whether Meilisearch is reachable.
func (m *Meili) Healthy() bool {
	return m.healthy.Load()
}

// Search queries the recipe index, scoped to one organization.
func (m *Meili) Search(orgID, query string, limit int) ([]Hit, error) {
	if !m.healthy.Load() {
		return nil, fmt.Errorf("meilisearch unhealthy")
	}

	resp, err := m.client.Index(idxRecipes).Search(query, &meili.SearchRequest{
		Limit:                 int64(limit),
		Filter:                fmt.Sprintf("organizationId = %q", orgID),
		AttributesToHighlight: []string{"ingredients"},
		HighlightPreTag:       "<mark>",
		HighlightPostTag:      "</mark>",
	})
	if err != nil {
		m.healthy.Store(false)
		return nil, fmt.Errorf("meilisearch search: %w", err)
	}

	hits := make([]Hit, 0, len(resp.Hits))
	for _, hit := range resp.Hits {
		hits = append(hits, Hit{
			ID:       decodeString(hit, "id"),
			Title:    decodeString(hit, "title"),
			Snippet:  decodeFormattedString(hit, "ingredients"),
			MealType: decodeString(hit, "mealType"),
			Cuisine:  decodeString(hit, "cuisine"),
		})
	}
	return hits, nil
}

func decodeString(hit meili.Hit, key string) string {
	raw, ok := hit[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return ""
}

func decodeFormattedString(hit meili.Hit, key string) string {
	raw, ok := hit["_formatted"]
	if !ok {
		return ""
	}
	var formatted map[string]string
	if err := json.Unmarshal(raw, &formatted); err != nil {
		return ""
	}
	return strings.TrimSpace(formatted[key])
}

// Index adds or updates one recipe in the search index.
func (m *Meili) Index(doc Document) error {
	_, err := m.client.Index(idxRecipes).AddDocuments([]Document{doc}, nil)
	return err
}

// Delete removes a recipe from the search index.
func (m *Meili) Delete(id string) error {
	_, err := m.client.Index(idxRecipes).DeleteDocument(id, nil)
	return err
}

// IndexAll bulk-indexes recipes.
func (m *Meili) IndexAll(docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	_, err := m.client.Index(idxRecipes).AddDocuments(docs, nil)
	return err
}
