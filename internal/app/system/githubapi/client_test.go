package githubapi_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/copilotbilling/internal/app/system/githubapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *githubapi.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return githubapi.Factory{BaseURL: srv.URL}.ForToken("tok-123")
}

func TestGetCopilotBilling_SendsTokenAndDecodes(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/orgs/acme/copilot/billing", r.URL.Path)
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		assert.Equal(t, "application/vnd.github+json", r.Header.Get("Accept"))
		_, _ = io.WriteString(w, `{"seat_breakdown":{"total":3},"estimated_total_amount":57,"currency":"EUR"}`)
	})

	got, err := c.GetCopilotBilling(context.Background(), "acme")
	require.NoError(t, err)
	assert.Equal(t, 3, got.SeatBreakdown.Total)
	assert.Equal(t, 57.0, got.Amount())
	assert.Equal(t, "EUR", got.Currency)
}

func TestCopilotBillingAmountFallbacks(t *testing.T) {
	f := func(v float64) *float64 { return &v }

	assert.Equal(t, 0.0, githubapi.CopilotBilling{}.Amount())
	assert.Equal(t, 12.0, githubapi.CopilotBilling{TotalAmount: f(12)}.Amount())
	assert.Equal(t, 12.0, githubapi.CopilotBilling{EstimatedTotalAmount: f(0), TotalAmount: f(12)}.Amount())
	assert.Equal(t, 9.5, githubapi.CopilotBilling{EstimatedTotalAmount: f(9.5), TotalAmount: f(12)}.Amount())
}

func TestGetCopilotSeats(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/orgs/acme/copilot/billing/seats", r.URL.Path)
		_, _ = io.WriteString(w, `{"total_seats":2,"seats":[{"assignee":{"login":"ana","id":11}},{"assignee":{"login":"bo","id":12}}]}`)
	})

	got, err := c.GetCopilotSeats(context.Background(), "acme")
	require.NoError(t, err)
	require.Len(t, got.Seats, 2)
	assert.Equal(t, "ana", got.Seats[0].Assignee.Login)
	assert.Equal(t, int64(12), got.Seats[1].Assignee.ID)
}

func TestGetUserCopilotUsage_AbsentFieldsAreNil(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/orgs/acme/members/ana/copilot/usage", r.URL.Path)
		_, _ = io.WriteString(w, `{"total_minutes":42}`)
	})

	got, err := c.GetUserCopilotUsage(context.Background(), "acme", "ana")
	require.NoError(t, err)
	require.NotNil(t, got.TotalMinutes)
	assert.Equal(t, 42.0, *got.TotalMinutes)
	assert.Nil(t, got.EstimatedCost)
}

func TestNon2xxBecomesError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"message":"Not Found"}`)
	})

	_, err := c.GetOrganization(context.Background(), "missing")
	require.Error(t, err)

	var apiErr *githubapi.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "Not Found", apiErr.Message)
	assert.Equal(t, http.StatusNotFound, githubapi.StatusCode(err))
}

func TestNoRetryOnFailure(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.GetCopilotSeats(context.Background(), "acme")
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, http.StatusBadGateway, githubapi.StatusCode(err))
}

func TestTransportErrorHasNoStatus(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c := githubapi.Factory{BaseURL: base}.ForToken("tok")
	_, err := c.ListOrganizationMembers(context.Background(), "acme")
	require.Error(t, err)
	assert.Equal(t, 0, githubapi.StatusCode(err))
}

func TestAssignCopilotSeat_SendsUsernames(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/orgs/acme/copilot/billing/selected_users", r.URL.Path)
		var body map[string][]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []string{"ana"}, body["selected_usernames"])
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"seats_created":1}`)
	})

	got, err := c.AssignCopilotSeat(context.Background(), "acme", "ana")
	require.NoError(t, err)
	assert.Equal(t, 1, got.SeatsCreated)
}

func TestListUserOrganizations(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/user/orgs", r.URL.Path)
		_, _ = io.WriteString(w, `[{"id":1,"login":"acme"},{"id":2,"login":"globex"}]`)
	})

	got, err := c.ListUserOrganizations(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "globex", got[1].Login)
}
