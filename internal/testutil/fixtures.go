package testutil

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/copilotbilling/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
)

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateOrganization inserts an organization in the given business unit.
// The login is derived from the name.
func (f *Fixtures) CreateOrganization(ctx context.Context, name, businessUnit string) models.Organization {
	f.t.Helper()

	now := time.Now().UTC()
	id := primitive.NewObjectID()
	org := models.Organization{
		ID:           id,
		GitHubID:     id.Hex(),
		Login:        strings.ToLower(strings.ReplaceAll(name, " ", "-")),
		Name:         name,
		NameCI:       text.Fold(name),
		BusinessUnit: businessUnit,
		AccessToken:  "gho_test_" + id.Hex(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if _, err := f.db.Collection("organizations").InsertOne(ctx, org); err != nil {
		f.t.Fatalf("failed to create test organization: %v", err)
	}
	return org
}

// CreateBilling inserts a billing record for org covering month/year.
func (f *Fixtures) CreateBilling(ctx context.Context, org models.Organization, month time.Month, year int, amount float64, status string) models.Billing {
	f.t.Helper()

	start, end := models.MonthBounds(time.Date(year, month, 1, 0, 0, 0, 0, time.UTC))
	now := time.Now().UTC()
	b := models.Billing{
		ID:                 primitive.NewObjectID(),
		OrganizationID:     org.ID,
		BusinessUnit:       org.BusinessUnit,
		Month:              month.String(),
		Year:               year,
		TotalAmount:        amount,
		Currency:           models.DefaultCurrency,
		UsageBreakdown:     []models.UsageEntry{},
		BillingPeriodStart: start,
		BillingPeriodEnd:   end,
		BillingDate:        &end,
		Status:             status,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if status == models.BillingPaid {
		b.PaidAt = &now
	}

	if _, err := f.db.Collection("billings").InsertOne(ctx, b); err != nil {
		f.t.Fatalf("failed to create test billing: %v", err)
	}
	return b
}

// CreateUser inserts a local user with a bcrypt password hash.
func (f *Fixtures) CreateUser(ctx context.Context, name, email, password, role string) models.User {
	f.t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		f.t.Fatalf("failed to hash password: %v", err)
	}

	now := time.Now().UTC()
	u := models.User{
		ID:           primitive.NewObjectID(),
		Name:         name,
		Email:        strings.ToLower(email),
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := f.db.Collection("users").InsertOne(ctx, u); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return u
}
