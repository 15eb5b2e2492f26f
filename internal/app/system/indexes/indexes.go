// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

/*
EnsureAll is called at startup. Each ensure* function is idempotent.
Errors are aggregated so every problem is visible and startup can fail fast.
*/
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	if err := ensureOrganizations(ctx, db); err != nil {
		problems = append(problems, "organizations: "+err.Error())
	}
	if err := ensureBillings(ctx, db); err != nil {
		problems = append(problems, "billings: "+err.Error())
	}
	if err := ensureUsers(ctx, db); err != nil {
		problems = append(problems, "users: "+err.Error())
	}
	if err := ensureAuditEvents(ctx, db); err != nil {
		problems = append(problems, "audit_events: "+err.Error())
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Reconciler                                                                  */
/* -------------------------------------------------------------------------- */

type existingIndex struct {
	Name   string `bson:"name"`
	Key    bson.D `bson:"key"`
	Unique *bool  `bson:"unique,omitempty"`
	Sparse *bool  `bson:"sparse,omitempty"`
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

func boolVal(p *bool) bool {
	return p != nil && *p
}

// isDuplicateKeyErr detects E11000 across server vendors.
func isDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 {
				return true
			}
		}
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 11000 {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "E11000") || strings.Contains(strings.ToLower(s), "duplicate key")
}

// desired captures the parts of an IndexModel the reconciler compares.
type desired struct {
	name   string
	sig    string
	unique bool
	sparse bool
}

func describe(m mongo.IndexModel) desired {
	d := desired{sig: keySig(m.Keys.(bson.D))}
	if m.Options != nil {
		if m.Options.Name != nil {
			d.name = *m.Options.Name
		}
		d.unique = boolVal(m.Options.Unique)
		d.sparse = boolVal(m.Options.Sparse)
	}
	return d
}

func listExisting(ctx context.Context, coll *mongo.Collection) map[string]existingIndex {
	existing := map[string]existingIndex{}
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		return existing
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var idx existingIndex
		if err := cur.Decode(&idx); err != nil {
			zap.L().Warn("failed to decode existing index",
				zap.String("collection", coll.Name()),
				zap.Error(err))
			continue
		}
		existing[keySig(idx.Key)] = idx
	}
	return existing
}

// createIndex wraps CreateOne and turns a duplicate-key failure on a unique
// index into a readable message naming the collection and keys.
func createIndex(ctx context.Context, coll *mongo.Collection, m mongo.IndexModel, d desired) error {
	if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
		if d.unique && isDuplicateKeyErr(err) {
			return fmt.Errorf("%s(%s): cannot create unique index on {%s} (duplicates present)", coll.Name(), d.name, d.sig)
		}
		return fmt.Errorf("%s(%s): %w", coll.Name(), d.name, err)
	}
	return nil
}

// reconcile brings a single index in line with its desired definition:
// reuse when identical, drop and recreate when the name or options differ,
// create when missing.
func reconcile(ctx context.Context, coll *mongo.Collection, existing map[string]existingIndex, m mongo.IndexModel) error {
	d := describe(m)
	start := time.Now()
	log := zap.L().With(
		zap.String("collection", coll.Name()),
		zap.String("name", d.name),
		zap.String("keys", d.sig),
		zap.Bool("unique", d.unique))

	ex, ok := existing[d.sig]
	if !ok {
		if err := createIndex(ctx, coll, m, d); err != nil {
			log.Warn("index ensure failed", zap.Error(err))
			return err
		}
		log.Info("index created", zap.Duration("took", time.Since(start)))
		return nil
	}

	sameOpts := d.unique == boolVal(ex.Unique) && d.sparse == boolVal(ex.Sparse)
	if sameOpts && (d.name == "" || d.name == ex.Name) {
		log.Debug("reusing existing index", zap.String("existing_name", ex.Name))
		return nil
	}

	if _, err := coll.Indexes().DropOne(ctx, ex.Name); err != nil {
		log.Warn("drop existing index failed", zap.String("existing_name", ex.Name), zap.Error(err))
		return fmt.Errorf("%s(%s): drop failed: %w", coll.Name(), d.name, err)
	}
	if err := createIndex(ctx, coll, m, d); err != nil {
		log.Warn("index recreate failed", zap.Error(err))
		return err
	}
	log.Info("index dropped and recreated",
		zap.String("previous_name", ex.Name),
		zap.Duration("took", time.Since(start)))
	return nil
}

func ensureIndexSet(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel) error {
	existing := listExisting(ctx, coll)
	var errs []string
	for _, m := range models {
		if err := reconcile(ctx, coll, existing, m); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Collection-specific index sets                                              */
/* -------------------------------------------------------------------------- */

func ensureOrganizations(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("organizations")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// One registration per GitHub organization.
		{
			Keys:    bson.D{{Key: "github_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_orgs_githubid"),
		},
		// List sort
		{
			Keys:    bson.D{{Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName("idx_orgs_nameci__id"),
		},
		// Business-unit grouping and filtering
		{
			Keys:    bson.D{{Key: "business_unit", Value: 1}, {Key: "name_ci", Value: 1}},
			Options: options.Index().SetName("idx_orgs_bu_nameci"),
		},
	})
}

func ensureBillings(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("billings")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// At most one record per organization per calendar month.
		{
			Keys: bson.D{
				{Key: "organization_id", Value: 1},
				{Key: "month", Value: 1},
				{Key: "year", Value: 1},
			},
			Options: options.Index().SetUnique(true).SetName("uniq_billings_org_month_year"),
		},
		{
			Keys:    bson.D{{Key: "business_unit", Value: 1}},
			Options: options.Index().SetName("idx_billings_bu"),
		},
		{
			Keys: bson.D{
				{Key: "billing_period_start", Value: 1},
				{Key: "billing_period_end", Value: 1},
			},
			Options: options.Index().SetName("idx_billings_period"),
		},
		// Pending list sorted by due date
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "billing_date", Value: 1}},
			Options: options.Index().SetName("idx_billings_status_billingdate"),
		},
		// Report date-range filter
		{
			Keys:    bson.D{{Key: "created_at", Value: 1}},
			Options: options.Index().SetName("idx_billings_createdat"),
		},
	})
}

func ensureUsers(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("users")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// GitHub accounts may not expose an email, so both identities are sparse.
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true).SetName("uniq_users_email"),
		},
		{
			Keys:    bson.D{{Key: "github_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true).SetName("uniq_users_githubid"),
		},
		{
			Keys:    bson.D{{Key: "role", Value: 1}},
			Options: options.Index().SetName("idx_users_role"),
		},
	})
}

func ensureAuditEvents(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("audit_events")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_timestamp"),
		},
		{
			Keys:    bson.D{{Key: "organization_id", Value: 1}, {Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_org_timestamp"),
		},
		{
			Keys:    bson.D{{Key: "category", Value: 1}, {Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_category_timestamp"),
		},
	})
}
