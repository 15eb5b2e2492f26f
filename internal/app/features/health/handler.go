package health

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/dalemusser/copilotbilling/internal/app/system/secrets"
	"github.com/dalemusser/copilotbilling/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// Pinger is satisfied by *mongo.Client.
type Pinger interface {
	Ping(ctx context.Context, rp *readpref.ReadPref) error
}

// Handler holds dependencies needed for health checks.
type Handler struct {
	Client  Pinger
	Secrets secrets.Status
	Log     *zap.Logger
}

// NewHandler constructs a health Handler with the Mongo client, the outcome
// of the startup secret overlay and the logger.
func NewHandler(client Pinger, st secrets.Status, logger *zap.Logger) *Handler {
	return &Handler{
		Client:  client,
		Secrets: st,
		Log:     logger,
	}
}

// healthResponse is the JSON structure for the health check response.
type healthResponse struct {
	Status   string          `json:"status"`
	Database string          `json:"database"`
	Secrets  *secrets.Status `json:"secrets,omitempty"`
	Message  string          `json:"message,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// Serve handles GET /health.
//
// On success: 200 and
//
//	{ "status":"ok", "database":"connected", "secrets":{"source":"key-vault","loaded":[...]} }
//
// On DB failure: 503 and
//
//	{ "status":"error", "message":"Database unavailable", "error":"…"}
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Ping())
	defer cancel()

	w.Header().Set("Content-Type", "application/json")

	resp := healthResponse{
		Status:   "ok",
		Database: "connected",
	}
	if h.Secrets.Source != "" {
		st := h.Secrets
		resp.Secrets = &st
	}

	if err := h.Client.Ping(ctx, readpref.Primary()); err != nil {
		h.Log.Error("health-check: mongo ping failed", zap.Error(err))
		w.WriteHeader(http.StatusServiceUnavailable)
		resp.Status = "error"
		resp.Database = "disconnected"
		resp.Message = "Database unavailable"
		resp.Error = err.Error()
		_ = json.NewEncoder(w).Encode(resp)
		return
	}

	_ = json.NewEncoder(w).Encode(resp)
}
