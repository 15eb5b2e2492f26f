// internal/app/features/errors/render.go
package errors

import (
	"net/http"
	"strings"

	"github.com/dalemusser/copilotbilling/internal/app/system/auth"
	"github.com/dalemusser/copilotbilling/internal/app/system/respond"
	"github.com/dalemusser/copilotbilling/internal/app/system/viewdata"
	"github.com/dalemusser/waffle/pantry/templates"
)

// RenderUnauthorized shows a friendly "sign in required" page.
// If backURL is empty, it will default to /login.
func RenderUnauthorized(w http.ResponseWriter, r *http.Request, backURL string) {
	if backURL == "" {
		backURL = "/login"
	}
	render(w, r, nil, http.StatusUnauthorized, "error_unauthorized", "Sign in required",
		"Please sign in to continue.", backURL)
}

// RenderForbidden shows a friendly access error page with a message.
// If backURL is empty, it resolves a safe back URL with a default fallback.
func RenderForbidden(w http.ResponseWriter, r *http.Request, msg, backURL string) {
	if msg == "" {
		msg = "You don't have permission to view this page."
	}
	render(w, r, nil, http.StatusForbidden, "error_forbidden", "Access denied", msg, backURL)
}

// RenderNotFound shows the "page not found" page. API clients get the JSON
// envelope instead.
func RenderNotFound(w http.ResponseWriter, r *http.Request, backURL string) {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		respond.NotFound(w, "Resource not found")
		return
	}
	render(w, r, nil, http.StatusNotFound, "error_not_found", "Page not found",
		"The page you requested does not exist.", backURL)
}

func render(w http.ResponseWriter, r *http.Request, sm *auth.SessionManager, status int, name, title, msg, backURL string) {
	back := backURL
	if back == "" {
		back = "/dashboard"
	}
	data := pageData{
		BaseVM:  viewdata.NewBaseVM(w, r, sm, title, back),
		Message: msg,
	}
	if backURL != "" {
		data.BackURL = backURL
	}
	w.WriteHeader(status)
	templates.Render(w, r, name, data)
}
