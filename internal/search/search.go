// Package search provides the quick search box backend: Meilisearch
// when available, Postgres full text search otherwise.
package search

// Document is the data we index for a recipe.
type Document struct {
	ID             string `json:"id"`
	OrganizationID string `json:"organizationId"`
	Title          string `json:"title"`
	Ingredients    string `json:"ingredients"`
	MealType       string `json:"mealType"`
	Cuisine        string `json:"cuisine"`
}

// Hit is a single search result returned to the caller.
type Hit struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Snippet  string `json:"snippet,omitempty"`
	MealType string `json:"mealType"`
	Cuisine  string `json:"cuisine"`
}
