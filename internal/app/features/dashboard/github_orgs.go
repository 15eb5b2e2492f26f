// internal/app/features/dashboard/github_orgs.go
package dashboard

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/dalemusser/copilotbilling/internal/app/system/auth"
	"github.com/dalemusser/copilotbilling/internal/app/system/githubapi"
	"github.com/dalemusser/copilotbilling/internal/app/system/timeouts"
	"github.com/dalemusser/copilotbilling/internal/app/system/viewdata"
	"github.com/dalemusser/copilotbilling/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// githubOrg is one organization the signed-in user belongs to on GitHub.
// Registered is nil when nobody has added it to the dashboard yet.
type githubOrg struct {
	githubapi.Organization
	Registered *models.Organization
}

type selectOrganizationData struct {
	viewdata.BaseVM
	GitHubOrgs []githubOrg
	// LinkedToGitHub is false for password accounts, which have no token.
	LinkedToGitHub       bool
	SelectedOrganization string
	Error                string
}

// errNoGitHubToken means the user never signed in with GitHub.
var errNoGitHubToken = errors.New("user has no GitHub token")

// loadGitHubOrgs lists the user's GitHub organizations with the stored
// token and pairs each with its registered organization, if any.
func (h *Handler) loadGitHubOrgs(ctx context.Context, userID string) ([]githubOrg, error) {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, errNoGitHubToken
	}
	u, err := h.Users.GetByID(ctx, oid)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errNoGitHubToken
	}
	if err != nil {
		return nil, err
	}
	if u.AccessToken == "" {
		return nil, errNoGitHubToken
	}

	remote, err := h.GitHub.ForToken(u.AccessToken).ListUserOrganizations(ctx)
	if err != nil {
		return nil, err
	}
	if len(remote) == 0 {
		return []githubOrg{}, nil
	}

	ids := make([]string, len(remote))
	for i, o := range remote {
		ids[i] = strconv.FormatInt(o.ID, 10)
	}
	registered, err := h.Orgs.Find(ctx, bson.M{"github_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	byGitHubID := make(map[string]*models.Organization, len(registered))
	for i := range registered {
		byGitHubID[registered[i].GitHubID] = &registered[i]
	}

	out := make([]githubOrg, len(remote))
	for i, o := range remote {
		out[i] = githubOrg{Organization: o, Registered: byGitHubID[ids[i]]}
	}
	return out, nil
}

// ServeSelectOrganization lists the GitHub organizations of the signed-in
// user. Registered ones can be selected as the working organization.
//
// Route: GET /dashboard/select-organization
func (h *Handler) ServeSelectOrganization(w http.ResponseWriter, r *http.Request) {
	var userID string
	if u, ok := auth.CurrentUser(r); ok {
		userID = u.ID
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	data := selectOrganizationData{
		BaseVM:               h.base(w, r, "Select organization", "/dashboard"),
		LinkedToGitHub:       true,
		SelectedOrganization: auth.SelectedOrganization(r.Context()),
	}
	orgs, err := h.loadGitHubOrgs(ctx, userID)
	switch {
	case errors.Is(err, errNoGitHubToken):
		data.LinkedToGitHub = false
	case err != nil:
		h.Log.Warn("list GitHub organizations failed", zap.Error(err), zap.String("user_id", userID))
		data.Error = "Could not load your GitHub organizations"
	default:
		data.GitHubOrgs = orgs
	}

	templates.Render(w, r, "dashboard_select_organization", data)
}
