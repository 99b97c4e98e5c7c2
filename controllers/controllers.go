package controllers

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"time"

	"github.com/blogem/oauth-login/authenticator"
	"github.com/blogem/oauth-login/logging"
	"github.com/blogem/oauth-login/models"
	"github.com/blogem/oauth-login/services"
)

//go:embed templates/*.html
var templateFiles embed.FS

var templateFuncs = template.FuncMap{
	"formatTime": func(t time.Time) string { return t.Local().Format("2006-01-02 15:04:05") },
}

// renderTemplate creates a template set and renders it with the provided data
func renderTemplate(w http.ResponseWriter, r *http.Request, pageTemplate string, data interface{}) {
	renderTemplateWithStatus(w, r, http.StatusOK, pageTemplate, data)
}

// renderTemplateWithStatus renders layout.html plus the page template. The
// page is rendered into a buffer first so a template error can still
// produce a clean 500.
func renderTemplateWithStatus(w http.ResponseWriter, r *http.Request, statusCode int, pageTemplate string, data interface{}) {
	tmpl, err := template.New("layout.html").Funcs(templateFuncs).
		ParseFS(templateFiles, "templates/layout.html", "templates/"+pageTemplate)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to parse template", "template", pageTemplate, "error", err)
		http.Error(w, "Failed to parse template", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout.html", data); err != nil {
		logging.FromContext(r.Context()).Error("failed to render template", "template", pageTemplate, "error", err)
		http.Error(w, "Failed to render template", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(statusCode)
	_, _ = buf.WriteTo(w)
}

// renderError shows the error page. debug is only displayed when enabled.
func (c *Controllers) renderError(w http.ResponseWriter, r *http.Request, statusCode int, message, debug string) {
	data := models.PageData{Title: "Error", Error: message}
	if c.debug {
		data.Debug = debug
	}
	renderTemplateWithStatus(w, r, statusCode, "error.html", data)
}

// Controllers holds all controller instances
type Controllers struct {
	Auth  *AuthController
	Pages *PageController

	debug bool
}

// Options wires the login flow into the controllers
type Options struct {
	Flow        LoginFlow
	Verifier    authenticator.IdentityVerifier
	StateCookie *StateCookie

	// Debug shows provider error details on error pages
	Debug bool
}

// NewControllers creates and initializes all controller instances
func NewControllers(services *services.Services, opts Options) *Controllers {
	c := &Controllers{debug: opts.Debug}
	c.Auth = NewAuthController(c, services.Audit, opts.Flow, opts.Verifier, opts.StateCookie)
	c.Pages = NewPageController(c, services.Audit)
	return c
}
