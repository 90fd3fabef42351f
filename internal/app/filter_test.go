package app

import (
	"net/url"
	"testing"

	"cookbase/internal/store"
)

func TestNormalizeFilters(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantFilter store.RecipeFilter
		wantPage   int
	}{
		{
			name:       "empty query",
			query:      "",
			wantFilter: store.RecipeFilter{},
			wantPage:   1,
		},
		{
			name:       "all sentinel means no constraint",
			query:      "mealType=all&cuisine=all&member=all",
			wantFilter: store.RecipeFilter{},
			wantPage:   1,
		},
		{
			name:       "sentinel match is exact",
			query:      "mealType=All",
			wantFilter: store.RecipeFilter{MealType: "All"},
			wantPage:   1,
		},
		{
			name:       "selected values pass through",
			query:      "mealType=Breakfast&cuisine=Italian&member=Nina",
			wantFilter: store.RecipeFilter{MealType: "Breakfast", Cuisine: "Italian", Member: "Nina"},
			wantPage:   1,
		},
		{
			name:       "single search term",
			query:      "search=pancakes",
			wantFilter: store.RecipeFilter{SearchQuery: "pancakes"},
			wantPage:   1,
		},
		{
			name:       "multi word search becomes adjacency query",
			query:      "search=blueberry+oat+pancakes",
			wantFilter: store.RecipeFilter{SearchQuery: "blueberry <-> oat <-> pancakes"},
			wantPage:   1,
		},
		{
			name:       "search strips tsquery operators",
			query:      "search=beef%21+%26+broccoli",
			wantFilter: store.RecipeFilter{SearchQuery: "beef <-> broccoli"},
			wantPage:   1,
		},
		{
			name:       "whitespace only search means no constraint",
			query:      "search=+++",
			wantFilter: store.RecipeFilter{},
			wantPage:   1,
		},
		{
			name:       "explicit page",
			query:      "page=3",
			wantFilter: store.RecipeFilter{},
			wantPage:   3,
		},
		{
			name:       "unparseable page defaults to one",
			query:      "page=banana",
			wantFilter: store.RecipeFilter{},
			wantPage:   1,
		},
		{
			name:       "zero and negative pages default to one",
			query:      "page=-2",
			wantFilter: store.RecipeFilter{},
			wantPage:   1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, err := url.ParseQuery(tt.query)
			if err != nil {
				t.Fatalf("parse query: %v", err)
			}
			filter, page := NormalizeFilters(values)
			if filter != tt.wantFilter {
				t.Errorf("filter = %+v, want %+v", filter, tt.wantFilter)
			}
			if page != tt.wantPage {
				t.Errorf("page = %d, want %d", page, tt.wantPage)
			}
		})
	}
}
