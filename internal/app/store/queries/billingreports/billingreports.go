// Package billingreports provides read-only queries that join billing
// records with their organizations and feed the reporting package.
package billingreports

import (
	"context"
	"time"

	billingstore "github.com/dalemusser/copilotbilling/internal/app/store/billings"
	organizationstore "github.com/dalemusser/copilotbilling/internal/app/store/organizations"
	"github.com/dalemusser/copilotbilling/internal/domain/models"
	"github.com/dalemusser/copilotbilling/internal/domain/reporting"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// OrgBrief is the organization part of a joined billing row.
type OrgBrief struct {
	ID           primitive.ObjectID `bson:"_id" json:"id"`
	Name         string             `bson:"name" json:"name"`
	Login        string             `bson:"login" json:"login"`
	AvatarURL    string             `bson:"avatar_url" json:"avatarUrl,omitempty"`
	BusinessUnit string             `bson:"business_unit" json:"businessUnit"`
}

// BillingRow is a billing record with its organization. Organization is
// nil when the organization has been deleted.
type BillingRow struct {
	models.Billing `bson:",inline"`
	Organization   *OrgBrief `bson:"organization,omitempty" json:"organization"`
}

func lookupOrganization() []bson.M {
	return []bson.M{
		{"$lookup": bson.M{
			"from":         "organizations",
			"localField":   "organization_id",
			"foreignField": "_id",
			"as":           "organization",
		}},
		{"$unwind": bson.M{"path": "$organization", "preserveNullAndEmptyArrays": true}},
		{"$project": bson.M{"organization.access_token": 0, "organization.refresh_token": 0}},
	}
}

func aggregate(ctx context.Context, db *mongo.Database, pipeline []bson.M) ([]BillingRow, error) {
	cur, err := db.Collection("billings").Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []BillingRow{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// PendingWithOrganization returns pending records with their organization,
// oldest billing date first. limit <= 0 means no limit.
func PendingWithOrganization(ctx context.Context, db *mongo.Database, limit int64) ([]BillingRow, error) {
	pipeline := []bson.M{
		{"$match": bson.M{"status": models.BillingPending}},
		{"$sort": bson.D{{Key: "billing_date", Value: 1}, {Key: "_id", Value: 1}}},
	}
	if limit > 0 {
		pipeline = append(pipeline, bson.M{"$limit": limit})
	}
	pipeline = append(pipeline, lookupOrganization()...)
	return aggregate(ctx, db, pipeline)
}

// BillingWithOrganization returns one record with its organization, or
// mongo.ErrNoDocuments.
func BillingWithOrganization(ctx context.Context, db *mongo.Database, id primitive.ObjectID) (BillingRow, error) {
	pipeline := append([]bson.M{{"$match": bson.M{"_id": id}}}, lookupOrganization()...)
	rows, err := aggregate(ctx, db, pipeline)
	if err != nil {
		return BillingRow{}, err
	}
	if len(rows) == 0 {
		return BillingRow{}, mongo.ErrNoDocuments
	}
	return rows[0], nil
}

// OrganizationNames maps organization ids to display names. Unknown ids
// are absent from the result.
func OrganizationNames(ctx context.Context, db *mongo.Database, ids []primitive.ObjectID) (map[primitive.ObjectID]string, error) {
	names := make(map[primitive.ObjectID]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}
	orgs, err := organizationstore.New(db).Find(ctx,
		bson.M{"_id": bson.M{"$in": ids}},
		options.Find().SetProjection(bson.M{"name": 1}),
	)
	if err != nil {
		return nil, err
	}
	for _, o := range orgs {
		names[o.ID] = o.Name
	}
	return names, nil
}

// GenerateReport loads the records created within [start, end] (all
// records unless both are set) and builds the consolidated report.
func GenerateReport(ctx context.Context, db *mongo.Database, start, end time.Time) (reporting.Report, error) {
	records, err := billingstore.New(db).CreatedBetween(ctx, start, end)
	if err != nil {
		return reporting.Report{}, err
	}
	names, err := OrganizationNames(ctx, db, distinctOrgIDs(records))
	if err != nil {
		return reporting.Report{}, err
	}
	return reporting.GenerateReport(records, names), nil
}

// UnitData is everything known about one business unit.
type UnitData struct {
	Organizations []models.Organization
	Billings      []models.Billing
}

// LoadUnit returns the unit's organizations (tokens excluded) and all of
// their billing records. Organizations is empty when the unit is unknown.
func LoadUnit(ctx context.Context, db *mongo.Database, unit string) (UnitData, error) {
	orgs, err := organizationstore.New(db).List(ctx, unit)
	if err != nil {
		return UnitData{}, err
	}
	if len(orgs) == 0 {
		return UnitData{Organizations: orgs, Billings: []models.Billing{}}, nil
	}
	ids := make([]primitive.ObjectID, len(orgs))
	for i, o := range orgs {
		ids[i] = o.ID
	}
	bills, err := billingstore.New(db).ForOrganizations(ctx, ids)
	if err != nil {
		return UnitData{}, err
	}
	return UnitData{Organizations: orgs, Billings: bills}, nil
}

// UnitsStats totals every organization's records per business unit.
func UnitsStats(ctx context.Context, db *mongo.Database) ([]reporting.UnitStats, error) {
	orgs, err := organizationstore.New(db).List(ctx, "")
	if err != nil {
		return nil, err
	}
	bills, err := billingstore.New(db).All(ctx)
	if err != nil {
		return nil, err
	}
	return reporting.BusinessUnitStats(orgs, bills), nil
}

func distinctOrgIDs(records []models.Billing) []primitive.ObjectID {
	seen := map[primitive.ObjectID]struct{}{}
	var ids []primitive.ObjectID
	for _, b := range records {
		if _, ok := seen[b.OrganizationID]; ok {
			continue
		}
		seen[b.OrganizationID] = struct{}{}
		ids = append(ids, b.OrganizationID)
	}
	return ids
}
