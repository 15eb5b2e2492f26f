// Package githubapi is a thin client for the GitHub organization, member
// and Copilot billing endpoints.
//
// Each method performs exactly one outbound request and either decodes the
// payload or returns the failure unchanged. There is no retry, no backoff,
// no rate-limit handling and no timeout beyond the caller's context and the
// underlying http.Client.
package githubapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dalemusser/copilotbilling/internal/app/system/metrics"
	"golang.org/x/oauth2"
)

// DefaultBaseURL is the public GitHub REST endpoint.
const DefaultBaseURL = "https://api.github.com"

const (
	acceptHeader = "application/vnd.github+json"
	apiVersion   = "2022-11-28"
	maxErrorBody = 4 << 10
)

// Factory builds per-token clients that share a base URL, transport and
// metrics. The zero value talks to api.github.com with http.DefaultTransport.
type Factory struct {
	BaseURL   string
	Transport http.RoundTripper
	Metrics   *metrics.Metrics
}

// ForToken returns a client authenticated with the given access token.
func (f Factory) ForToken(token string) *Client {
	base := f.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	baseURL := strings.TrimRight(f.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		http: &http.Client{
			Transport: &oauth2.Transport{
				Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}),
				Base:   base,
			},
		},
		metrics: f.Metrics,
	}
}

// Client calls GitHub on behalf of one access token.
type Client struct {
	baseURL string
	http    *http.Client
	metrics *metrics.Metrics
}

// ListUserOrganizations returns the organizations of the authenticated user.
func (c *Client) ListUserOrganizations(ctx context.Context) ([]Organization, error) {
	var out []Organization
	err := c.do(ctx, "list_user_orgs", http.MethodGet, "/user/orgs", nil, &out)
	return out, err
}

// GetAuthenticatedUser returns the account that owns the token.
func (c *Client) GetAuthenticatedUser(ctx context.Context) (Account, error) {
	var out Account
	err := c.do(ctx, "get_user", http.MethodGet, "/user", nil, &out)
	return out, err
}

// GetOrganization returns details for an organization login.
func (c *Client) GetOrganization(ctx context.Context, org string) (Organization, error) {
	var out Organization
	err := c.do(ctx, "get_org", http.MethodGet, "/orgs/"+url.PathEscape(org), nil, &out)
	return out, err
}

// ListOrganizationMembers returns the members of an organization.
func (c *Client) ListOrganizationMembers(ctx context.Context, org string) ([]Account, error) {
	var out []Account
	err := c.do(ctx, "list_org_members", http.MethodGet, "/orgs/"+url.PathEscape(org)+"/members", nil, &out)
	return out, err
}

// GetCopilotBilling returns the organization's Copilot billing summary.
func (c *Client) GetCopilotBilling(ctx context.Context, org string) (CopilotBilling, error) {
	var out CopilotBilling
	err := c.do(ctx, "get_copilot_billing", http.MethodGet, "/orgs/"+url.PathEscape(org)+"/copilot/billing", nil, &out)
	return out, err
}

// GetCopilotSeats returns the organization's Copilot seat assignments.
func (c *Client) GetCopilotSeats(ctx context.Context, org string) (SeatList, error) {
	var out SeatList
	err := c.do(ctx, "get_copilot_seats", http.MethodGet, "/orgs/"+url.PathEscape(org)+"/copilot/billing/seats", nil, &out)
	return out, err
}

// GetUserCopilotUsage returns one member's Copilot usage.
func (c *Client) GetUserCopilotUsage(ctx context.Context, org, username string) (UserUsage, error) {
	var out UserUsage
	path := "/orgs/" + url.PathEscape(org) + "/members/" + url.PathEscape(username) + "/copilot/usage"
	err := c.do(ctx, "get_user_copilot_usage", http.MethodGet, path, nil, &out)
	return out, err
}

// AssignCopilotSeat grants a Copilot seat to a member.
func (c *Client) AssignCopilotSeat(ctx context.Context, org, username string) (SeatChange, error) {
	var out SeatChange
	body := map[string][]string{"selected_usernames": {username}}
	err := c.do(ctx, "assign_copilot_seat", http.MethodPost, "/orgs/"+url.PathEscape(org)+"/copilot/billing/selected_users", body, &out)
	return out, err
}

// RemoveCopilotSeat schedules a member's Copilot seat for cancellation.
func (c *Client) RemoveCopilotSeat(ctx context.Context, org, username string) (SeatChange, error) {
	var out SeatChange
	body := map[string][]string{"selected_usernames": {username}}
	err := c.do(ctx, "remove_copilot_seat", http.MethodDelete, "/orgs/"+url.PathEscape(org)+"/copilot/billing/selected_users", body, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, op, method, path string, in, out any) (err error) {
	start := time.Now()
	defer func() { c.metrics.ObserveRemoteCall(op, start, err) }()

	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", op, err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build %s request: %w", op, err)
	}
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("github %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newError(method, path, resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if err == io.EOF {
			return nil
		}
		return fmt.Errorf("decode %s response: %w", op, err)
	}
	return nil
}

func newError(method, path string, resp *http.Response) *Error {
	e := &Error{Method: method, Path: path, StatusCode: resp.StatusCode}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var payload struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &payload) == nil && payload.Message != "" {
		e.Message = payload.Message
	}
	return e
}
