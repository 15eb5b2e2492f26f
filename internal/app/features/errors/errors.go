// internal/app/features/errors/errors.go
package errors

import (
	"net/http"

	"github.com/dalemusser/copilotbilling/internal/app/system/auth"
	"github.com/dalemusser/copilotbilling/internal/app/system/viewdata"
)

// pageData is the basic view model for error pages.
type pageData struct {
	viewdata.BaseVM
	Message string
}

// Handler is the errors feature handler.
// No DB needed; it just renders templates.
type Handler struct {
	SessionMgr *auth.SessionManager
}

// NewHandler constructs an errors Handler. sm may be nil.
func NewHandler(sm *auth.SessionManager) *Handler {
	return &Handler{SessionMgr: sm}
}

// Forbidden renders a friendly "access denied" page.
// GET /forbidden
func (h *Handler) Forbidden(w http.ResponseWriter, r *http.Request) {
	render(w, r, h.SessionMgr, http.StatusForbidden, "error_forbidden", "Access denied",
		"You don't have permission to view this page.", "/dashboard")
}

// Unauthorized renders a friendly "sign in required" page.
// GET /unauthorized
func (h *Handler) Unauthorized(w http.ResponseWriter, r *http.Request) {
	render(w, r, h.SessionMgr, http.StatusUnauthorized, "error_unauthorized", "Sign in required",
		"Please sign in to continue.", "/login")
}

// NotFound renders the page shown for unknown routes.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	RenderNotFound(w, r, "")
}
