// Package web holds the console's embedded view templates.
package web

import (
	"embed"
	"net/http"

	"github.com/gofiber/template/django/v3"
)

//go:embed views
var Views embed.FS

// NewEngine returns a django engine reading the embedded views.
// Templates are addressed without the .html extension, e.g. "coupons/list".
func NewEngine() *django.Engine {
	return django.NewPathForwardingFileSystem(http.FS(Views), "/views", ".html")
}
