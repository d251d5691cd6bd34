package web

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Page templates. Each is parsed together with the layout.
const (
	tmplCollection = "collection.html"
	tmplBuy        = "buy.html"
	tmplOwner      = "owner.html"
	tmplNotFound   = "notfound.html"
)

func parseTemplates() (map[string]*template.Template, error) {
	pages := []string{tmplCollection, tmplBuy, tmplOwner, tmplNotFound}
	out := make(map[string]*template.Template, len(pages))
	for _, page := range pages {
		t, err := template.New(page).ParseFS(templateFS, "templates/layout.html", "templates/"+page)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", page, err)
		}
		out[page] = t
	}
	return out, nil
}

func staticFiles() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return sub
}
