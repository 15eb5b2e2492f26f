package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/copilotbilling/internal/app/system/githubapi"
)

// FakeGitHub is an httptest server standing in for the GitHub REST API.
// Unregistered routes answer 404.
type FakeGitHub struct {
	*httptest.Server
	mux *http.ServeMux
}

// NewFakeGitHub starts a fake GitHub API that is closed when the test ends.
func NewFakeGitHub(t *testing.T) *FakeGitHub {
	t.Helper()
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return &FakeGitHub{Server: srv, mux: mux}
}

// Handle registers h for a method-qualified pattern such as
// "GET /orgs/acme/copilot/billing".
func (f *FakeGitHub) Handle(pattern string, h http.HandlerFunc) {
	f.mux.HandleFunc(pattern, h)
}

// JSON registers a route that always answers status with body encoded as JSON.
func (f *FakeGitHub) JSON(pattern string, status int, body any) {
	f.Handle(pattern, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	})
}

// Factory returns a client factory pointed at the fake server.
func (f *FakeGitHub) Factory() githubapi.Factory {
	return githubapi.Factory{BaseURL: f.URL}
}
