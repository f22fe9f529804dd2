// Package website holds the embedded documentation content and its
// rendering helpers, served by cmd/docsite.
package website

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"sort"
	"strings"
)

//go:embed pages/*.html templates/*.html
var content embed.FS

// Page is one documentation page.
type Page struct {
	Slug  string
	Title string
	Order int
}

// ordering and titles for the navigation sidebar.
var pages = []Page{
	{Slug: "index", Title: "Overview", Order: 0},
	{Slug: "getting-started", Title: "Getting Started", Order: 1},
	{Slug: "store", Title: "Store & Reducers", Order: 2},
	{Slug: "selectors", Title: "Memoized Selectors", Order: 3},
	{Slug: "entities", Title: "Entity Adapter", Order: 4},
	{Slug: "thunks", Title: "Async Thunks", Order: 5},
	{Slug: "listeners", Title: "Listener Middleware", Order: 6},
}

// Pages returns every documentation page in navigation order.
func Pages() []Page {
	out := make([]Page, len(pages))
	copy(out, pages)
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// Lookup finds a page by slug.
func Lookup(slug string) (Page, bool) {
	for _, p := range pages {
		if p.Slug == slug {
			return p, true
		}
	}
	return Page{}, false
}

type renderData struct {
	Title   string
	Active  string
	Nav     []Page
	Content template.HTML
}

// Render writes the full HTML document for the page with the given slug.
func Render(w io.Writer, slug string) error {
	page, ok := Lookup(slug)
	if !ok {
		return fmt.Errorf("unknown page: %s", slug)
	}

	body, err := content.ReadFile("pages/" + page.Slug + ".html")
	if err != nil {
		return fmt.Errorf("failed to read page body: %w", err)
	}

	layout, err := template.ParseFS(content, "templates/layout.html")
	if err != nil {
		return fmt.Errorf("failed to parse layout: %w", err)
	}

	// Page bodies are trusted embedded content written alongside this
	// package, not user input.
	return layout.Execute(w, renderData{
		Title:   page.Title,
		Active:  page.Slug,
		Nav:     Pages(),
		Content: template.HTML(body),
	})
}

// SlugFromPath maps a request path to a page slug, "" when unknown.
func SlugFromPath(path string) string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return "index"
	}
	trimmed = strings.TrimSuffix(trimmed, ".html")
	if _, ok := Lookup(trimmed); ok {
		return trimmed
	}
	return ""
}
