package export

import (
	"strings"
	"testing"
	"time"

	"cookbase/internal/store"
)

func TestRenderRecipeHTML(t *testing.T) {
	recipe := store.Recipe{
		Title:           "Blueberry Pancakes",
		MealTypeName:    "Breakfast",
		CuisineName:     "American",
		AuthorFirstName: "Nina",
		Servings:        4,
		Ingredients:     "2 cups flour\n1 cup blueberries\n\n2 eggs",
		Instructions:    "Mix the batter\nFold in blueberries\nCook on a hot griddle",
		UpdatedAt:       time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
	}
	notes := []store.Note{
		{AuthorFirstName: "Theo", Message: "Try less sugar next time", CreatedAt: time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC)},
	}

	html, err := renderRecipeHTML(recipe, notes)
	if err != nil {
		t.Fatalf("renderRecipeHTML() error = %v", err)
	}

	for _, want := range []string{
		"Blueberry Pancakes",
		"Breakfast",
		"serves 4",
		"<li>1 cup blueberries</li>",
		"<li>Fold in blueberries</li>",
		"Try less sugar next time",
		"March 14, 2026",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("rendered html missing %q", want)
		}
	}
}

func TestRenderRecipeHTMLEscapesMarkup(t *testing.T) {
	recipe := store.Recipe{
		Title:        "<script>alert(1)</script>",
		Ingredients:  "flour",
		Instructions: "bake",
	}
	html, err := renderRecipeHTML(recipe, nil)
	if err != nil {
		t.Fatalf("renderRecipeHTML() error = %v", err)
	}
	if strings.Contains(html, "<script>alert(1)</script>") {
		t.Error("expected title markup to be escaped")
	}
}

func TestSplitLines(t *testing.T) {
	got := splitLines("  one \n\n two\nthree\n")
	want := []string{"one", "two", "three"}
	if len(got) != len(want) {
		t.Fatalf("splitLines() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("splitLines()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestPercentEncodeForDataURL(t *testing.T) {
	got := percentEncodeForDataURL("a b+c")
	if got != "a%20b%2Bc" {
		t.Errorf("percentEncodeForDataURL() = %q", got)
	}
}
