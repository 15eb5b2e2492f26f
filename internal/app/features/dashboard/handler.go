// internal/app/features/dashboard/handler.go
package dashboard

import (
	"net/http"

	billingstore "github.com/dalemusser/copilotbilling/internal/app/store/billings"
	organizationstore "github.com/dalemusser/copilotbilling/internal/app/store/organizations"
	userstore "github.com/dalemusser/copilotbilling/internal/app/store/users"
	"github.com/dalemusser/copilotbilling/internal/app/system/auth"
	"github.com/dalemusser/copilotbilling/internal/app/system/githubapi"
	"github.com/dalemusser/copilotbilling/internal/app/system/viewdata"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const (
	pendingPreview  = 5
	recentPerUnit   = 5
	unitPeriods     = 12
	billsPerOrgCard = 6
)

type Handler struct {
	DB         *mongo.Database
	Orgs       *organizationstore.Store
	Billings   *billingstore.Store
	Users      *userstore.Store
	GitHub     githubapi.Factory
	SessionMgr *auth.SessionManager
	Log        *zap.Logger
}

func NewHandler(db *mongo.Database, sessionMgr *auth.SessionManager, gh githubapi.Factory, logger *zap.Logger) *Handler {
	return &Handler{
		DB:         db,
		Orgs:       organizationstore.New(db),
		Billings:   billingstore.New(db),
		Users:      userstore.New(db),
		GitHub:     gh,
		SessionMgr: sessionMgr,
		Log:        logger,
	}
}

func (h *Handler) base(w http.ResponseWriter, r *http.Request, title, back string) viewdata.BaseVM {
	return viewdata.NewBaseVM(w, r, h.SessionMgr, title, back)
}

// redirectWithFlash queues msg and sends the browser to dest.
func (h *Handler) redirectWithFlash(w http.ResponseWriter, r *http.Request, dest, msg string) {
	if h.SessionMgr != nil {
		h.SessionMgr.AddFlash(w, r, msg)
	}
	http.Redirect(w, r, dest, http.StatusSeeOther)
}
