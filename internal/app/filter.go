package app

import (
	"net/url"
	"strconv"
	"strings"
	"unicode"

	"cookbase/internal/store"
)

// filterAll is the sentinel the recipe list UI sends for "no filter".
const filterAll = "all"

// NormalizeFilters maps raw query parameters onto a recipe filter and a
// page number. "all", empty, and absent values all mean no constraint.
// The search text is rewritten as an adjacency tsquery so that multi
// word queries match titles containing the words in order.
func NormalizeFilters(values url.Values) (store.RecipeFilter, int) {
	filter := store.RecipeFilter{
		MealType:    normalizeChoice(values.Get("mealType")),
		Cuisine:     normalizeChoice(values.Get("cuisine")),
		Member:      normalizeChoice(values.Get("member")),
		SearchQuery: searchQuery(values.Get("search")),
	}
	return filter, normalizePage(values.Get("page"))
}

// normalizeChoice drops the "all" sentinel. The match is exact so a
// choice literally named "All" still filters.
func normalizeChoice(raw string) string {
	value := strings.TrimSpace(raw)
	if value == "" || value == filterAll {
		return ""
	}
	return value
}

func normalizePage(raw string) int {
	page, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

// searchQuery turns free text into a tsquery of adjacent lexemes.
// Terms are stripped to letters and digits so user input cannot carry
// tsquery operators.
func searchQuery(raw string) string {
	terms := make([]string, 0)
	for _, field := range strings.Fields(raw) {
		term := strings.Map(func(r rune) rune {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				return r
			}
			return -1
		}, field)
		if term != "" {
			terms = append(terms, term)
		}
	}
	return strings.Join(terms, " <-> ")
}
