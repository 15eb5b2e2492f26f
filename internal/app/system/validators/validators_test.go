package validators_test

import (
	"testing"
	"time"

	"github.com/dalemusser/copilotbilling/internal/app/system/validators"
	"github.com/dalemusser/copilotbilling/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestEnsureAll_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("first EnsureAll failed: %v", err)
	}
	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("second EnsureAll failed: %v", err)
	}
}

func TestEnsureAll_CreatesCollections(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	names, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		t.Fatalf("ListCollectionNames failed: %v", err)
	}
	have := make(map[string]bool)
	for _, n := range names {
		have[n] = true
	}
	for _, want := range []string{"organizations", "billings", "users", "audit_events"} {
		if !have[want] {
			t.Errorf("expected collection %q to exist", want)
		}
	}
}

func validBilling() bson.M {
	now := time.Now().UTC()
	return bson.M{
		"organization_id": primitive.NewObjectID(),
		"business_unit":   "Default",
		"month":           "March",
		"year":            2025,
		"total_amount":    120.5,
		"currency":        "USD",
		"status":          "pending",
		"paid_at":         nil,
		"created_at":      now,
		"updated_at":      now,
	}
}

func TestBillingsValidator(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
	coll := db.Collection("billings")

	if _, err := coll.InsertOne(ctx, validBilling()); err != nil {
		t.Fatalf("valid billing rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(bson.M)
	}{
		{"unknown status", func(d bson.M) { d["status"] = "refunded" }},
		{"unknown month", func(d bson.M) { d["month"] = "Smarch" }},
		{"negative amount", func(d bson.M) { d["total_amount"] = -1.0 }},
		{"missing organization", func(d bson.M) { delete(d, "organization_id") }},
		{"blank business unit", func(d bson.M) { d["business_unit"] = "  " }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			doc := validBilling()
			tc.mutate(doc)
			if _, err := coll.InsertOne(ctx, doc); err == nil {
				t.Errorf("expected validator to reject document")
			}
		})
	}
}

func TestOrganizationsValidator(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
	coll := db.Collection("organizations")

	ok := bson.M{
		"github_id":     "9919",
		"login":         "acme",
		"name":          "Acme",
		"business_unit": "Default",
		"access_token":  "gho_x",
	}
	if _, err := coll.InsertOne(ctx, ok); err != nil {
		t.Fatalf("valid organization rejected: %v", err)
	}

	missingToken := bson.M{
		"github_id":     "9920",
		"login":         "acme2",
		"name":          "Acme 2",
		"business_unit": "Default",
	}
	if _, err := coll.InsertOne(ctx, missingToken); err == nil {
		t.Error("expected organization without access_token to be rejected")
	}
}

func TestUsersValidator_Role(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
	coll := db.Collection("users")

	if _, err := coll.InsertOne(ctx, bson.M{"name": "V", "role": "viewer"}); err != nil {
		t.Fatalf("viewer rejected: %v", err)
	}
	if _, err := coll.InsertOne(ctx, bson.M{"name": "S", "role": "superadmin"}); err == nil {
		t.Error("expected unknown role to be rejected")
	}
}
