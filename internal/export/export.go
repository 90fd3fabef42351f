// Package export renders recipes to PDF via headless Chrome.
package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"strings"
	"time"

	"cookbase/internal/store"
)

// ErrPDFDependencyMissing indicates the Chrome runtime is unavailable.
var ErrPDFDependencyMissing = errors.New("export pdf dependency missing")

// Service provides recipe export functionality
type Service struct{}

func NewService() *Service {
	return &Service{}
}

// RecipePDF renders the recipe and its open notes to a printable PDF.
func (s *Service) RecipePDF(ctx context.Context, recipe store.Recipe, notes []store.Note) ([]byte, error) {
	html, err := renderRecipeHTML(recipe, notes)
	if err != nil {
		return nil, fmt.Errorf("render recipe html: %w", err)
	}
	return exportPDF(ctx, html)
}

type templateNote struct {
	Author    string
	Message   string
	CreatedAt time.Time
}

type templateData struct {
	Title       string
	MealType    string
	Cuisine     string
	Author      string
	Servings    int
	Ingredients []string
	Steps       []string
	Notes       []templateNote
	UpdatedAt   time.Time
}

var recipeTemplate = template.Must(template.New("recipe").Funcs(template.FuncMap{
	"formatDate": func(t time.Time, layout string) string {
		return t.Format(layout)
	},
}).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>
  body { font-family: Georgia, serif; color: #222; margin: 0; }
  h1 { font-size: 28px; margin-bottom: 4px; }
  .meta { color: #666; font-size: 13px; margin-bottom: 24px; }
  h2 { font-size: 18px; border-bottom: 1px solid #ddd; padding-bottom: 4px; }
  ul, ol { line-height: 1.6; }
  .note { background: #f7f5ef; border-left: 3px solid #c9b26a; padding: 8px 12px; margin: 8px 0; }
  .note .author { font-weight: bold; font-size: 12px; }
</style>
</head>
<body>
  <h1>{{.Title}}</h1>
  <div class="meta">
    {{.MealType}} &middot; {{.Cuisine}} &middot; serves {{.Servings}} &middot;
    added by {{.Author}} &middot; updated {{formatDate .UpdatedAt "January 2, 2006"}}
  </div>
  <h2>Ingredients</h2>
  <ul>
    {{range .Ingredients}}<li>{{.}}</li>{{end}}
  </ul>
  <h2>Instructions</h2>
  <ol>
    {{range .Steps}}<li>{{.}}</li>{{end}}
  </ol>
  {{if .Notes}}
  <h2>Notes</h2>
  {{range .Notes}}
  <div class="note">
    <div class="author">{{.Author}} &mdash; {{formatDate .CreatedAt "January 2, 2006"}}</div>
    <div>{{.Message}}</div>
  </div>
  {{end}}
  {{end}}
</body>
</html>`))

func renderRecipeHTML(recipe store.Recipe, notes []store.Note) (string, error) {
	data := templateData{
		Title:       recipe.Title,
		MealType:    recipe.MealTypeName,
		Cuisine:     recipe.CuisineName,
		Author:      recipe.AuthorFirstName,
		Servings:    recipe.Servings,
		Ingredients: splitLines(recipe.Ingredients),
		Steps:       splitLines(recipe.Instructions),
		UpdatedAt:   recipe.UpdatedAt,
	}
	for _, n := range notes {
		data.Notes = append(data.Notes, templateNote{
			Author:    n.AuthorFirstName,
			Message:   n.Message,
			CreatedAt: n.CreatedAt,
		})
	}

	var buf bytes.Buffer
	if err := recipeTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// splitLines breaks the free-text ingredient and instruction fields
// into display items, one per non-empty line.
func splitLines(text string) []string {
	lines := make([]string, 0)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
