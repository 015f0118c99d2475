package web

import (
	"embed"
	"html/template"
	"io/fs"
)

//go:embed templates static
var ContentFS embed.FS

func GetHTMLTemplate(name string) (*template.Template, error) {
	templateFS, _ := fs.Sub(ContentFS, "templates")
	return template.New(name).ParseFS(templateFS, "common/*.tmpl.*", name+".tmpl.html")
}
