// internal/app/store/billings/billingstore.go
package billingstore

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/dalemusser/copilotbilling/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

// ErrDuplicateBilling is returned when a record for the same organization,
// month and year already exists.
var ErrDuplicateBilling = errors.New("billing record already exists for this period")

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("billings")}
}

// FindByPeriod returns the record for one organization and calendar month.
// Returns mongo.ErrNoDocuments when none exists.
func (s *Store) FindByPeriod(ctx context.Context, orgID primitive.ObjectID, month string, year int) (models.Billing, error) {
	var b models.Billing
	err := s.c.FindOne(ctx, bson.M{
		"organization_id": orgID,
		"month":           month,
		"year":            year,
	}).Decode(&b)
	if err != nil {
		return models.Billing{}, err
	}
	return b, nil
}

// Insert stores a new record. ID and timestamps are assigned when unset.
func (s *Store) Insert(ctx context.Context, b models.Billing) (models.Billing, error) {
	now := time.Now().UTC()
	if b.ID.IsZero() {
		b.ID = primitive.NewObjectID()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	if b.UpdatedAt.IsZero() {
		b.UpdatedAt = now
	}
	if _, err := s.c.InsertOne(ctx, b); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Billing{}, ErrDuplicateBilling
		}
		return models.Billing{}, err
	}
	return b, nil
}

// Replace overwrites an existing record by ID. Returns mongo.ErrNoDocuments
// when the record was removed in the meantime.
func (s *Store) Replace(ctx context.Context, b models.Billing) error {
	res, err := s.c.ReplaceOne(ctx, bson.M{"_id": b.ID}, b)
	if err != nil {
		if wafflemongo.IsDup(err) {
			return ErrDuplicateBilling
		}
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// GetByID loads one record.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Billing, error) {
	var b models.Billing
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&b); err != nil {
		return models.Billing{}, err
	}
	return b, nil
}

// StatusChange is one payment status update. A nil PaymentReference or
// Notes leaves the stored value alone; an empty string clears it.
type StatusChange struct {
	Status           string
	PaymentReference *string
	Notes            *string
}

// UpdateStatus sets the payment status. Moving to paid stamps paid_at with
// now; any other status clears it. Returns the updated record, or
// mongo.ErrNoDocuments when absent.
func (s *Store) UpdateStatus(ctx context.Context, id primitive.ObjectID, ch StatusChange, now time.Time) (models.Billing, error) {
	set := bson.M{
		"status":     ch.Status,
		"updated_at": now.UTC(),
	}
	if ch.PaymentReference != nil {
		set["payment_reference"] = *ch.PaymentReference
	}
	if ch.Notes != nil {
		set["notes"] = *ch.Notes
	}
	if ch.Status == models.BillingPaid {
		set["paid_at"] = now.UTC()
	} else {
		set["paid_at"] = nil
	}

	var b models.Billing
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&b)
	if err != nil {
		return models.Billing{}, err
	}
	return b, nil
}

// History returns every record of one organization, newest period first
// (year descending, then calendar month descending).
func (s *Store) History(ctx context.Context, orgID primitive.ObjectID) ([]models.Billing, error) {
	out, err := s.find(ctx, bson.M{"organization_id": orgID}, options.Find())
	if err != nil {
		return nil, err
	}
	SortNewestFirst(out)
	return out, nil
}

// Pending returns records with status pending ordered by billing date
// ascending (oldest due first). limit <= 0 returns all.
func (s *Store) Pending(ctx context.Context, limit int64) ([]models.Billing, error) {
	opts := options.Find().SetSort(bson.D{{Key: "billing_date", Value: 1}, {Key: "_id", Value: 1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	return s.find(ctx, bson.M{"status": models.BillingPending}, opts)
}

// CreatedBetween returns records created in [start, end]. When either bound
// is zero the whole collection is returned.
func (s *Store) CreatedBetween(ctx context.Context, start, end time.Time) ([]models.Billing, error) {
	filter := bson.M{}
	if !start.IsZero() && !end.IsZero() {
		filter["created_at"] = bson.M{"$gte": start.UTC(), "$lte": end.UTC()}
	}
	return s.find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
}

// ForOrganizations returns every record of the given organizations.
func (s *Store) ForOrganizations(ctx context.Context, orgIDs []primitive.ObjectID) ([]models.Billing, error) {
	if len(orgIDs) == 0 {
		return []models.Billing{}, nil
	}
	return s.find(ctx, bson.M{"organization_id": bson.M{"$in": orgIDs}}, options.Find())
}

// All returns every record. Used by the global dashboard figures.
func (s *Store) All(ctx context.Context) ([]models.Billing, error) {
	return s.find(ctx, bson.M{}, options.Find())
}

// Count returns the number of records matching filter.
func (s *Store) Count(ctx context.Context, filter bson.M) (int64, error) {
	return s.c.CountDocuments(ctx, filter)
}

func (s *Store) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Billing, error) {
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Billing{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SortNewestFirst orders records by year descending, then calendar month
// descending. Month names are compared by calendar position, not spelling.
func SortNewestFirst(bs []models.Billing) {
	sort.SliceStable(bs, func(i, j int) bool {
		if bs[i].Year != bs[j].Year {
			return bs[i].Year > bs[j].Year
		}
		return models.MonthNumber(bs[i].Month) > models.MonthNumber(bs[j].Month)
	})
}
