// internal/app/features/organizations/helpers.go
package organizations

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/copilotbilling/internal/app/system/auth"
	"github.com/dalemusser/copilotbilling/internal/app/system/respond"
	"github.com/dalemusser/copilotbilling/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const msgNotFound = "Organization not found"

// orgID parses the {id} URL parameter, writing 400 on failure.
func orgID(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		respond.BadRequest(w, "Invalid organization id")
		return primitive.NilObjectID, false
	}
	return id, true
}

// loadOrg loads the organization with its credentials, writing 404 or 500
// on failure.
func (h *Handler) loadOrg(ctx context.Context, w http.ResponseWriter, id primitive.ObjectID) (models.Organization, bool) {
	org, err := h.Orgs.GetByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		respond.NotFound(w, msgNotFound)
		return models.Organization{}, false
	}
	if err != nil {
		respond.ServerError(w, h.Log, "Error loading organization", err, zap.String("org_id", id.Hex()))
		return models.Organization{}, false
	}
	return org, true
}

func actorID(r *http.Request) string {
	if u, ok := auth.CurrentUser(r); ok {
		return u.ID
	}
	return ""
}
