// internal/app/features/organizations/create.go
package organizations

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	organizationstore "github.com/dalemusser/copilotbilling/internal/app/store/organizations"
	"github.com/dalemusser/copilotbilling/internal/app/system/htmlsanitize"
	"github.com/dalemusser/copilotbilling/internal/app/system/inputval"
	"github.com/dalemusser/copilotbilling/internal/app/system/normalize"
	"github.com/dalemusser/copilotbilling/internal/app/system/respond"
	"github.com/dalemusser/copilotbilling/internal/app/system/timeouts"
	"github.com/dalemusser/copilotbilling/internal/domain/models"
	"go.uber.org/zap"
)

type createInput struct {
	Login          string     `json:"login" validate:"required,max=100" label:"Organization login"`
	AccessToken    string     `json:"accessToken" validate:"required" label:"Access token"`
	GitHubID       string     `json:"githubId" validate:"required,max=50" label:"GitHub organization id"`
	RefreshToken   string     `json:"refreshToken"`
	TokenExpiresAt *time.Time `json:"tokenExpiresAt"`
	BusinessUnit   string     `json:"businessUnit" validate:"max=100" label:"Business unit"`
}

type createdOrg struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Login        string `json:"login"`
	BusinessUnit string `json:"businessUnit"`
}

// Create registers an organization. Name, GitHub id and avatar come from
// GitHub using the supplied token.
//
// Route: POST /api/organizations
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in createInput
	if err := respond.Decode(r, &in); err != nil {
		respond.BadRequest(w, "Invalid request body")
		return
	}
	in.Login = strings.TrimSpace(in.Login)
	in.GitHubID = strings.TrimSpace(in.GitHubID)
	if res := inputval.Validate(in); res.HasErrors() {
		respond.Invalid(w, res)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	exists, err := h.Orgs.ExistsByGitHubID(ctx, in.GitHubID)
	cancel()
	if err != nil {
		respond.ServerError(w, h.Log, "Error adding organization", err, zap.String("github_id", in.GitHubID))
		return
	}
	if exists {
		respond.BadRequest(w, "Organization already registered")
		return
	}

	remote, err := h.GitHub.ForToken(in.AccessToken).GetOrganization(r.Context(), in.Login)
	if err != nil {
		respond.ServerError(w, h.Log, "Error adding organization", err, zap.String("login", in.Login))
		return
	}

	name := remote.Name
	if name == "" {
		name = remote.Login
	}
	org := models.Organization{
		GitHubID:       strconv.FormatInt(remote.ID, 10),
		Login:          remote.Login,
		Name:           name,
		AvatarURL:      remote.AvatarURL,
		AccessToken:    in.AccessToken,
		RefreshToken:   in.RefreshToken,
		TokenExpiresAt: in.TokenExpiresAt,
		BusinessUnit:   normalize.BusinessUnit(htmlsanitize.Plain(in.BusinessUnit)),
	}

	ctx, cancel = context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()
	org, err = h.Orgs.Create(ctx, org)
	if errors.Is(err, organizationstore.ErrDuplicateOrganization) {
		respond.BadRequest(w, "Organization already registered")
		return
	}
	if err != nil {
		respond.ServerError(w, h.Log, "Error adding organization", err, zap.String("login", in.Login))
		return
	}

	h.Audit.OrgCreated(ctx, r, actorID(r), org.ID, org.Login)
	respond.Done(w, http.StatusCreated, "Organization added", createdOrg{
		ID:           org.ID.Hex(),
		Name:         org.Name,
		Login:        org.Login,
		BusinessUnit: org.BusinessUnit,
	})
}
