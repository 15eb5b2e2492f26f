// internal/app/system/viewdata/viewdata.go
package viewdata

import (
	"net/http"

	"github.com/dalemusser/copilotbilling/internal/app/system/auth"
	"github.com/dalemusser/waffle/pantry/httpnav"
)

// SiteName is shown in the page header and title.
const SiteName = "Copilot Billing"

// BaseVM contains common fields for all view models.
// Embed this struct in your feature-specific view models.
//
// Usage:
//
//	type myPageData struct {
//	    viewdata.BaseVM
//	    // page-specific fields...
//	}
//
//	data := myPageData{
//	    BaseVM: viewdata.NewBaseVM(w, r, sm, "Page Title", "/default-back"),
//	}
type BaseVM struct {
	SiteName string

	// User context (from auth middleware)
	IsLoggedIn bool
	IsAdmin    bool
	Role       string
	UserName   string
	AvatarURL  string

	// Organization picked with /auth/select-organization (hex id or "")
	SelectedOrganization string

	// Page context
	Title       string
	BackURL     string
	CurrentPath string

	// One-shot messages queued by a previous redirect
	Flashes []string
}

// NewBaseVM creates a fully populated BaseVM for a page. Queued flash
// messages are consumed when sm is non-nil.
func NewBaseVM(w http.ResponseWriter, r *http.Request, sm *auth.SessionManager, title, backDefault string) BaseVM {
	vm := BaseVM{
		SiteName:             SiteName,
		Title:                title,
		BackURL:              httpnav.ResolveBackURL(r, backDefault),
		CurrentPath:          httpnav.CurrentPath(r),
		SelectedOrganization: auth.SelectedOrganization(r.Context()),
	}

	if u, ok := auth.CurrentUser(r); ok && u != nil {
		vm.IsLoggedIn = true
		vm.IsAdmin = u.IsAdmin()
		vm.Role = u.Role
		vm.UserName = u.Name
		vm.AvatarURL = u.AvatarURL
	}

	if sm != nil {
		vm.Flashes = sm.Flashes(w, r)
	}
	return vm
}
