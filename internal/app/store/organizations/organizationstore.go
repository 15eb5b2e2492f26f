// internal/app/store/organizations/organizationstore.go
package organizationstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/copilotbilling/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

var ErrDuplicateOrganization = errors.New("organization already registered")

// tokenless hides credentials from list/detail reads.
var tokenless = bson.M{"access_token": 0, "refresh_token": 0}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("organizations")}
}

// Create inserts a new organization. GitHubID must be unique.
func (s *Store) Create(ctx context.Context, org models.Organization) (models.Organization, error) {
	now := time.Now().UTC()
	org.ID = primitive.NewObjectID()
	org.NameCI = text.Fold(org.Name)
	if org.BusinessUnit == "" {
		org.BusinessUnit = models.DefaultBusinessUnit
	}
	org.CreatedAt = now
	org.UpdatedAt = now
	_, err := s.c.InsertOne(ctx, org)
	if err != nil {
		if wafflemongo.IsDup(err) {
			return models.Organization{}, ErrDuplicateOrganization
		}
		return models.Organization{}, err
	}
	return org, nil
}

// GetByID loads an organization including its credentials.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Organization, error) {
	var org models.Organization
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&org)
	if err != nil {
		return models.Organization{}, err
	}
	return org, nil
}

// GetByIDs loads multiple organizations by their ObjectIDs, without credentials.
func (s *Store) GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Organization, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return s.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
}

// ExistsByGitHubID reports whether an organization with the given GitHub id is registered.
func (s *Store) ExistsByGitHubID(ctx context.Context, githubID string) (bool, error) {
	err := s.c.FindOne(ctx, bson.M{"github_id": githubID}).Err()
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Update is the partial field merge used by the edit endpoint. Empty Name
// and BusinessUnit are ignored; CostCenter and Description are written
// whenever their pointer is non-nil so they can be cleared.
type Update struct {
	Name         string
	BusinessUnit string
	CostCenter   *string
	Description  *string
}

// Update merges the provided fields and refreshes UpdatedAt. Returns
// mongo.ErrNoDocuments when the organization does not exist.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, upd Update) (models.Organization, error) {
	set := bson.M{
		"updated_at": time.Now().UTC(),
	}
	if upd.Name != "" {
		set["name"] = upd.Name
		set["name_ci"] = text.Fold(upd.Name)
	}
	if upd.BusinessUnit != "" {
		set["business_unit"] = upd.BusinessUnit
	}
	if upd.CostCenter != nil {
		set["cost_center"] = *upd.CostCenter
	}
	if upd.Description != nil {
		set["description"] = *upd.Description
	}

	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(tokenless)
	var org models.Organization
	if err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&org); err != nil {
		return models.Organization{}, err
	}
	return org, nil
}

// UpdateToken replaces the access token and, when provided, the refresh
// token and expiry. Returns mongo.ErrNoDocuments when absent.
func (s *Store) UpdateToken(ctx context.Context, id primitive.ObjectID, accessToken, refreshToken string, expiresAt *time.Time) error {
	set := bson.M{
		"access_token": accessToken,
		"updated_at":   time.Now().UTC(),
	}
	if refreshToken != "" {
		set["refresh_token"] = refreshToken
	}
	if expiresAt != nil {
		set["token_expires_at"] = expiresAt.UTC()
	}
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// SetBusinessUnit reassigns many organizations at once. It is a single
// UpdateMany, not a transaction; the modified count is returned.
func (s *Store) SetBusinessUnit(ctx context.Context, ids []primitive.ObjectID, unit string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := s.c.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": ids}},
		bson.M{"$set": bson.M{"business_unit": unit, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// Delete removes an organization by ID. Billing records that reference it
// are left in place. Returns the number of documents deleted (0 or 1).
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// Find returns organizations matching the given filter, without credentials,
// sorted by name unless opts override it.
func (s *Store) Find(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]models.Organization, error) {
	base := options.Find().SetProjection(tokenless).SetSort(bson.D{{Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.c.Find(ctx, filter, append([]*options.FindOptions{base}, opts...)...)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	orgs := []models.Organization{}
	if err := cur.All(ctx, &orgs); err != nil {
		return nil, err
	}
	return orgs, nil
}

// List returns all organizations, optionally restricted to one business unit.
func (s *Store) List(ctx context.Context, businessUnit string) ([]models.Organization, error) {
	filter := bson.M{}
	if businessUnit != "" {
		filter["business_unit"] = businessUnit
	}
	return s.Find(ctx, filter)
}

// ListWithCredentials returns every organization including tokens. Used by
// the scheduled synchronization only.
func (s *Store) ListWithCredentials(ctx context.Context) ([]models.Organization, error) {
	cur, err := s.c.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var orgs []models.Organization
	if err := cur.All(ctx, &orgs); err != nil {
		return nil, err
	}
	return orgs, nil
}

// BusinessUnits returns the distinct business units in use.
func (s *Store) BusinessUnits(ctx context.Context) ([]string, error) {
	vals, err := s.c.Distinct(ctx, "business_unit", bson.M{})
	if err != nil {
		return nil, err
	}
	units := make([]string, 0, len(vals))
	for _, v := range vals {
		if u, ok := v.(string); ok {
			units = append(units, u)
		}
	}
	return units, nil
}

// Count returns the number of organizations matching the given filter.
func (s *Store) Count(ctx context.Context, filter bson.M) (int64, error) {
	return s.c.CountDocuments(ctx, filter)
}
