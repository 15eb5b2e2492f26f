package billing_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/copilotbilling/internal/app/features/billing"
	billingstore "github.com/dalemusser/copilotbilling/internal/app/store/billings"
	organizationstore "github.com/dalemusser/copilotbilling/internal/app/store/organizations"
	"github.com/dalemusser/copilotbilling/internal/app/system/billingsync"
	"github.com/dalemusser/copilotbilling/internal/domain/models"
	"github.com/dalemusser/copilotbilling/internal/domain/reporting"
	"github.com/dalemusser/copilotbilling/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func decode(t *testing.T, rec *testutil.ResponseRecorder, data any) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode response: %v (body: %s)", err, rec.Body.String())
	}
	if data != nil {
		if err := json.Unmarshal(env.Data, data); err != nil {
			t.Fatalf("decode data: %v (data: %s)", err, env.Data)
		}
	}
	return env
}

type fakeSyncer struct {
	res    billingsync.Result
	err    error
	called primitive.ObjectID
}

func (f *fakeSyncer) Sync(_ context.Context, orgID primitive.ObjectID) (billingsync.Result, error) {
	f.called = orgID
	return f.res, f.err
}

func newTestHandler(t *testing.T, syncer billing.Syncer) (*billing.Handler, *testutil.Fixtures) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	return billing.NewHandler(db, syncer, nil, nil, zap.NewNop()), testutil.NewFixtures(t, db)
}

func withParam(req *http.Request, key, value string) *http.Request {
	return testutil.WithChiURLParam(req, key, value)
}

func TestSync_Success(t *testing.T) {
	orgID := primitive.NewObjectID()
	fs := &fakeSyncer{res: billingsync.Result{
		Billing: models.Billing{ID: primitive.NewObjectID(), OrganizationID: orgID, Month: "March", Year: 2025, TotalAmount: 30, Status: models.BillingPending},
		Created: true,
		Seats:   3,
	}}
	handler, _ := newTestHandler(t, fs)

	req := withParam(testutil.NewJSONRequest(http.MethodPost, "/", "", testutil.ManagerUser()), "organizationId", orgID.Hex())
	rec := testutil.NewRecorder()
	handler.Sync(rec, req)

	rec.AssertStatus(t, http.StatusOK)
	var got models.Billing
	env := decode(t, rec, &got)
	if !env.Success || got.TotalAmount != 30 || got.Month != "March" {
		t.Errorf("response = %+v / %+v", env, got)
	}
	if fs.called != orgID {
		t.Errorf("synced %s, want %s", fs.called.Hex(), orgID.Hex())
	}
}

func TestSync_OrganizationNotFound(t *testing.T) {
	handler, _ := newTestHandler(t, &fakeSyncer{err: billingsync.ErrOrganizationNotFound})

	req := withParam(testutil.NewJSONRequest(http.MethodPost, "/", "", testutil.AdminUser()), "organizationId", primitive.NewObjectID().Hex())
	rec := testutil.NewRecorder()
	handler.Sync(rec, req)
	rec.AssertStatus(t, http.StatusNotFound)
}

func TestSync_RemoteFailureIs500(t *testing.T) {
	handler, _ := newTestHandler(t, &fakeSyncer{err: errors.New("fetch copilot billing for acme: 403")})

	req := withParam(testutil.NewJSONRequest(http.MethodPost, "/", "", testutil.AdminUser()), "organizationId", primitive.NewObjectID().Hex())
	rec := testutil.NewRecorder()
	handler.Sync(rec, req)

	rec.AssertStatus(t, http.StatusInternalServerError)
	rec.AssertContains(t, "Error synchronizing billing data")
	rec.AssertContains(t, "403")
}

func TestSync_EndToEndIsIdempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	org := fixtures.CreateOrganization(ctx, "Acme", "Engineering")
	gh := testutil.NewFakeGitHub(t)
	gh.JSON("GET /orgs/acme/copilot/billing", http.StatusOK, map[string]any{"total_amount": 20.0, "currency": "EUR"})
	gh.JSON("GET /orgs/acme/copilot/billing/seats", http.StatusOK, map[string]any{
		"total_seats": 2,
		"seats": []map[string]any{
			{"assignee": map[string]any{"id": 1, "login": "alice"}},
			{"assignee": map[string]any{"id": 2, "login": "bob"}},
		},
	})
	gh.JSON("GET /orgs/acme/members/alice/copilot/usage", http.StatusOK, map[string]any{"total_minutes": 90.0, "estimated_cost": 12.5})
	gh.JSON("GET /orgs/acme/members/bob/copilot/usage", http.StatusInternalServerError, map[string]string{"message": "boom"})

	syncer := &billingsync.Syncer{
		Orgs:     organizationstore.New(db),
		Billings: billingstore.New(db),
		Remote:   billingsync.GitHub(gh.Factory()),
		Log:      zap.NewNop(),
	}
	handler := billing.NewHandler(db, syncer, nil, nil, zap.NewNop())

	for i := 0; i < 2; i++ {
		req := withParam(testutil.NewJSONRequest(http.MethodPost, "/", "", testutil.AdminUser()), "organizationId", org.ID.Hex())
		rec := testutil.NewRecorder()
		handler.Sync(rec, req)
		rec.AssertStatus(t, http.StatusOK)
	}

	n, err := db.Collection("billings").CountDocuments(ctx, bson.M{"organization_id": org.ID})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("billing records = %d, want 1", n)
	}

	var b models.Billing
	if err := db.Collection("billings").FindOne(ctx, bson.M{"organization_id": org.ID}).Decode(&b); err != nil {
		t.Fatalf("load billing: %v", err)
	}
	if b.TotalAmount != 20 || b.Currency != "EUR" || b.Status != models.BillingPending {
		t.Errorf("billing = %+v", b)
	}
	if len(b.UsageBreakdown) != 2 {
		t.Fatalf("usage entries = %d, want 2", len(b.UsageBreakdown))
	}
	if b.UsageBreakdown[0].UsageMinutes != 90 || b.UsageBreakdown[0].Cost != 12.5 {
		t.Errorf("alice = %+v", b.UsageBreakdown[0])
	}
	if b.UsageBreakdown[1].UsageMinutes != 0 || b.UsageBreakdown[1].Cost != billingsync.DefaultSeatCost {
		t.Errorf("bob fallback = %+v", b.UsageBreakdown[1])
	}
}

func TestHistory_NewestFirstByCalendar(t *testing.T) {
	handler, fixtures := newTestHandler(t, nil)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	org := fixtures.CreateOrganization(ctx, "Acme", "Default")
	fixtures.CreateBilling(ctx, org, time.April, 2024, 10, models.BillingPaid)
	fixtures.CreateBilling(ctx, org, time.February, 2025, 20, models.BillingPending)
	fixtures.CreateBilling(ctx, org, time.December, 2024, 30, models.BillingPaid)
	fixtures.CreateBilling(ctx, org, time.August, 2024, 40, models.BillingOverdue)

	req := withParam(testutil.NewJSONRequest(http.MethodGet, "/", "", testutil.ViewerUser()), "organizationId", org.ID.Hex())
	rec := testutil.NewRecorder()
	handler.History(rec, req)
	rec.AssertStatus(t, http.StatusOK)

	var got []models.Billing
	decode(t, rec, &got)
	want := []string{"February 2025", "December 2024", "August 2024", "April 2024"}
	if len(got) != len(want) {
		t.Fatalf("history = %d records, want %d", len(got), len(want))
	}
	for i, b := range got {
		if b.PeriodKey() != want[i] {
			t.Errorf("history[%d] = %s, want %s", i, b.PeriodKey(), want[i])
		}
	}
}

func TestGet_IncludesOrganization(t *testing.T) {
	handler, fixtures := newTestHandler(t, nil)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	org := fixtures.CreateOrganization(ctx, "Acme", "Default")
	b := fixtures.CreateBilling(ctx, org, time.January, 2025, 100, models.BillingPending)

	req := withParam(testutil.NewJSONRequest(http.MethodGet, "/", "", testutil.ViewerUser()), "billingId", b.ID.Hex())
	rec := testutil.NewRecorder()
	handler.Get(rec, req)
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"login":"acme"`)
	if strings.Contains(rec.Body.String(), org.AccessToken) {
		t.Error("response leaked the organization token")
	}

	req = withParam(testutil.NewJSONRequest(http.MethodGet, "/", "", testutil.ViewerUser()), "billingId", primitive.NewObjectID().Hex())
	rec = testutil.NewRecorder()
	handler.Get(rec, req)
	rec.AssertStatus(t, http.StatusNotFound)
}

func TestUpdateStatus_PaidThenPending(t *testing.T) {
	handler, fixtures := newTestHandler(t, nil)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	org := fixtures.CreateOrganization(ctx, "Acme", "Default")
	b := fixtures.CreateBilling(ctx, org, time.January, 2025, 100, models.BillingPending)

	type result struct {
		ID     string     `json:"id"`
		Status string     `json:"status"`
		PaidAt *time.Time `json:"paidAt"`
	}

	req := withParam(testutil.NewJSONRequest(http.MethodPatch, "/", `{"status":"paid"}`, testutil.ManagerUser()), "billingId", b.ID.Hex())
	rec := testutil.NewRecorder()
	handler.UpdateStatus(rec, req)
	rec.AssertStatus(t, http.StatusOK)

	var paid result
	decode(t, rec, &paid)
	if paid.ID != b.ID.Hex() || paid.Status != models.BillingPaid || paid.PaidAt == nil {
		t.Errorf("paid result = %+v", paid)
	}

	for _, status := range []string{models.BillingPending, models.BillingOverdue} {
		req = withParam(testutil.NewJSONRequest(http.MethodPatch, "/", `{"status":"`+status+`"}`, testutil.ManagerUser()), "billingId", b.ID.Hex())
		rec = testutil.NewRecorder()
		handler.UpdateStatus(rec, req)
		rec.AssertStatus(t, http.StatusOK)

		var got result
		decode(t, rec, &got)
		if got.Status != status || got.PaidAt != nil {
			t.Errorf("%s result = %+v, want paidAt null", status, got)
		}
	}

	var stored models.Billing
	if err := fixtures.DB().Collection("billings").FindOne(ctx, bson.M{"_id": b.ID}).Decode(&stored); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if stored.PaidAt != nil {
		t.Errorf("stored paid_at = %v, want nil", stored.PaidAt)
	}
}

func TestUpdateStatus_SanitizesNotes(t *testing.T) {
	handler, fixtures := newTestHandler(t, nil)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	org := fixtures.CreateOrganization(ctx, "Acme", "Default")
	b := fixtures.CreateBilling(ctx, org, time.January, 2025, 100, models.BillingPending)

	body := `{"status":"paid","paymentReference":"<b>INV-7</b>","notes":"<p>Paid by <strong>wire</strong></p><script>alert(1)</script>"}`
	req := withParam(testutil.NewJSONRequest(http.MethodPatch, "/", body, testutil.ManagerUser()), "billingId", b.ID.Hex())
	rec := testutil.NewRecorder()
	handler.UpdateStatus(rec, req)
	rec.AssertStatus(t, http.StatusOK)

	var stored models.Billing
	if err := fixtures.DB().Collection("billings").FindOne(ctx, bson.M{"_id": b.ID}).Decode(&stored); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if stored.PaymentReference != "INV-7" {
		t.Errorf("payment reference = %q, want markup stripped", stored.PaymentReference)
	}
	if strings.Contains(stored.Notes, "<script") || !strings.Contains(stored.Notes, "<strong>wire</strong>") {
		t.Errorf("notes = %q, want script dropped and formatting kept", stored.Notes)
	}

	req = withParam(testutil.NewJSONRequest(http.MethodPatch, "/", `{"status":"paid","notes":" 5 < 10 "}`, testutil.ManagerUser()), "billingId", b.ID.Hex())
	rec = testutil.NewRecorder()
	handler.UpdateStatus(rec, req)
	rec.AssertStatus(t, http.StatusOK)
	if err := fixtures.DB().Collection("billings").FindOne(ctx, bson.M{"_id": b.ID}).Decode(&stored); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if stored.Notes != "5 < 10" || stored.PaymentReference != "INV-7" {
		t.Errorf("plain notes = %q reference = %q, want stored as typed and reference kept", stored.Notes, stored.PaymentReference)
	}

	long := `{"status":"paid","notes":"` + strings.Repeat("x", 4001) + `"}`
	req = withParam(testutil.NewJSONRequest(http.MethodPatch, "/", long, testutil.ManagerUser()), "billingId", b.ID.Hex())
	rec = testutil.NewRecorder()
	handler.UpdateStatus(rec, req)
	rec.AssertStatus(t, http.StatusBadRequest)
}

func TestUpdateStatus_Invalid(t *testing.T) {
	handler, fixtures := newTestHandler(t, nil)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	org := fixtures.CreateOrganization(ctx, "Acme", "Default")
	b := fixtures.CreateBilling(ctx, org, time.January, 2025, 100, models.BillingPending)

	for _, body := range []string{`{"status":"cancelled"}`, `{}`} {
		req := withParam(testutil.NewJSONRequest(http.MethodPatch, "/", body, testutil.AdminUser()), "billingId", b.ID.Hex())
		rec := testutil.NewRecorder()
		handler.UpdateStatus(rec, req)
		rec.AssertStatus(t, http.StatusBadRequest)
	}

	req := withParam(testutil.NewJSONRequest(http.MethodPatch, "/", `{"status":"paid"}`, testutil.AdminUser()), "billingId", primitive.NewObjectID().Hex())
	rec := testutil.NewRecorder()
	handler.UpdateStatus(rec, req)
	rec.AssertStatus(t, http.StatusNotFound)
}

func TestReport_JanFebScenario(t *testing.T) {
	handler, fixtures := newTestHandler(t, nil)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	org := fixtures.CreateOrganization(ctx, "Acme", "Default")
	fixtures.CreateBilling(ctx, org, time.January, 2025, 100, models.BillingPaid)
	fixtures.CreateBilling(ctx, org, time.February, 2025, 150, models.BillingPending)

	req := testutil.NewJSONRequest(http.MethodGet, "/api/billing/reports/generate", "", testutil.ViewerUser())
	rec := testutil.NewRecorder()
	handler.Report(rec, req)
	rec.AssertStatus(t, http.StatusOK)

	var report reporting.Report
	decode(t, rec, &report)
	if report.TotalBilled != 250 || report.TotalPaid != 100 || report.TotalPending != 150 || report.TotalOverdue != 0 {
		t.Errorf("totals = %+v", report)
	}
	if s := report.OrganizationSummary["Acme"]; s == nil || s.TotalAmount != 250 || len(s.Periods) != 2 {
		t.Errorf("organization summary = %+v", report.OrganizationSummary)
	}
	if p := report.BillingPeriods["January 2025"]; p == nil || p.TotalAmount != 100 {
		t.Errorf("January period = %+v", p)
	}
}

func TestReport_DateRange(t *testing.T) {
	handler, fixtures := newTestHandler(t, nil)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	org := fixtures.CreateOrganization(ctx, "Acme", "Default")
	b := fixtures.CreateBilling(ctx, org, time.January, 2025, 100, models.BillingPaid)
	_, err := fixtures.DB().Collection("billings").UpdateOne(ctx, bson.M{"_id": b.ID},
		bson.M{"$set": bson.M{"created_at": time.Date(2020, time.June, 15, 12, 0, 0, 0, time.UTC)}})
	if err != nil {
		t.Fatalf("backdate: %v", err)
	}
	fixtures.CreateBilling(ctx, org, time.February, 2025, 150, models.BillingPending)

	req := testutil.NewJSONRequest(http.MethodGet, "/api/billing/reports/generate?startDate=2020-06-01&endDate=2020-06-15", "", testutil.ViewerUser())
	rec := testutil.NewRecorder()
	handler.Report(rec, req)
	rec.AssertStatus(t, http.StatusOK)

	var report reporting.Report
	decode(t, rec, &report)
	if report.TotalBilled != 100 {
		t.Errorf("total billed = %v, want 100 (end date is inclusive)", report.TotalBilled)
	}

	req = testutil.NewJSONRequest(http.MethodGet, "/api/billing/reports/generate?startDate=yesterday&endDate=2020-06-15", "", testutil.ViewerUser())
	rec = testutil.NewRecorder()
	handler.Report(rec, req)
	rec.AssertStatus(t, http.StatusBadRequest)
}

func TestPending_OldestFirstWithOrganization(t *testing.T) {
	handler, fixtures := newTestHandler(t, nil)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	acme := fixtures.CreateOrganization(ctx, "Acme", "Default")
	beta := fixtures.CreateOrganization(ctx, "Beta", "Default")
	fixtures.CreateBilling(ctx, acme, time.March, 2025, 30, models.BillingPending)
	fixtures.CreateBilling(ctx, beta, time.January, 2025, 10, models.BillingPending)
	fixtures.CreateBilling(ctx, acme, time.February, 2025, 20, models.BillingPaid)

	rec := testutil.NewRecorder()
	handler.Pending(rec, testutil.NewJSONRequest(http.MethodGet, "/", "", testutil.ViewerUser()))
	rec.AssertStatus(t, http.StatusOK)

	var rows []struct {
		Month        string `json:"month"`
		Organization *struct {
			Name string `json:"name"`
		} `json:"organization"`
	}
	decode(t, rec, &rows)
	if len(rows) != 2 {
		t.Fatalf("pending = %d, want 2", len(rows))
	}
	if rows[0].Month != "January" || rows[0].Organization == nil || rows[0].Organization.Name != "Beta" {
		t.Errorf("first pending = %+v", rows[0])
	}
}

func TestDeleteOrganization_KeepsBillsVisible(t *testing.T) {
	handler, fixtures := newTestHandler(t, nil)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	org := fixtures.CreateOrganization(ctx, "Acme", "Default")
	b := fixtures.CreateBilling(ctx, org, time.January, 2025, 100, models.BillingPending)
	if _, err := organizationstore.New(fixtures.DB()).Delete(ctx, org.ID); err != nil {
		t.Fatalf("delete org: %v", err)
	}

	req := withParam(testutil.NewJSONRequest(http.MethodGet, "/", "", testutil.ViewerUser()), "billingId", b.ID.Hex())
	rec := testutil.NewRecorder()
	handler.Get(rec, req)
	rec.AssertStatus(t, http.StatusOK)

	var row struct {
		ID           string `json:"id"`
		Organization any    `json:"organization"`
	}
	decode(t, rec, &row)
	if row.ID != b.ID.Hex() || row.Organization != nil {
		t.Errorf("row = %+v, want bill without organization", row)
	}

	if _, err := billingstore.New(fixtures.DB()).GetByID(ctx, b.ID); errors.Is(err, mongo.ErrNoDocuments) {
		t.Error("bill removed with its organization")
	}
}
