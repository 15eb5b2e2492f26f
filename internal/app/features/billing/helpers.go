// internal/app/features/billing/helpers.go
package billing

import (
	"net/http"

	"github.com/dalemusser/copilotbilling/internal/app/system/auth"
	"github.com/dalemusser/copilotbilling/internal/app/system/respond"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	msgBillingNotFound = "Billing record not found"
	msgOrgNotFound     = "Organization not found"
)

// objectIDParam parses the named URL parameter, writing 400 on failure.
func objectIDParam(w http.ResponseWriter, r *http.Request, name, label string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, name))
	if err != nil {
		respond.BadRequest(w, "Invalid "+label+" id")
		return primitive.NilObjectID, false
	}
	return id, true
}

func actorID(r *http.Request) string {
	if u, ok := auth.CurrentUser(r); ok {
		return u.ID
	}
	return ""
}
