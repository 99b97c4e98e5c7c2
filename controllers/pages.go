package controllers

import (
	"net/http"

	"gitea.com/go-chi/session"

	"github.com/blogem/oauth-login/logging"
	"github.com/blogem/oauth-login/models"
	"github.com/blogem/oauth-login/services"
	"github.com/blogem/oauth-login/userctx"
)

const recentActivityLimit = 10

// PageController renders the landing, welcome and dashboard pages
type PageController struct {
	parent *Controllers
	audit  services.AuditService
}

// NewPageController creates a new page controller
func NewPageController(parent *Controllers, audit services.AuditService) *PageController {
	return &PageController{
		parent: parent,
		audit:  audit,
	}
}

// Home handles GET /
func (c *PageController) Home(w http.ResponseWriter, r *http.Request) {
	if userctx.FromSession(session.GetSession(r)) != nil {
		http.Redirect(w, r, "/welcome", http.StatusFound)
		return
	}

	renderTemplate(w, r, "home.html", models.PageData{Title: "Sign in"})
}

// Welcome handles GET /welcome
func (c *PageController) Welcome(w http.ResponseWriter, r *http.Request) {
	renderTemplate(w, r, "welcome.html", models.PageData{
		Title: "Welcome",
		User:  userctx.GetUser(r.Context()),
	})
}

// Dashboard handles GET /dashboard
func (c *PageController) Dashboard(w http.ResponseWriter, r *http.Request) {
	user := userctx.GetUser(r.Context())

	activity, err := c.audit.RecentActivity(r.Context(), user.Email, recentActivityLimit)
	if err != nil {
		// The profile is still worth showing
		logging.FromContext(r.Context()).Error("failed to load recent activity", "error", err)
	}

	renderTemplate(w, r, "dashboard.html", models.PageData{
		Title:    "Dashboard",
		User:     user,
		Activity: activity,
	})
}

// NotFound renders the 404 page
func (c *PageController) NotFound(w http.ResponseWriter, r *http.Request) {
	c.parent.renderError(w, r, http.StatusNotFound, "Page not found", "")
}
