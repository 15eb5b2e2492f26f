// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/copilotbilling/internal/domain/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// EnsureAll creates collections (if missing) and tries to attach JSON-Schema
// validators. On servers that don't support collMod/validators (e.g. some
// DocumentDB versions), we log and skip gracefully.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	// helper: ensure collection exists (with truthful logging) and then validator (if provided)
	ensure := func(coll string, schema bson.M) {
		if _, err := ensureCollection(ctx, db, coll); err != nil {
			problems = append(problems, coll+": "+err.Error())
			return
		}
		if schema == nil {
			return
		}
		if err := setValidator(ctx, db, coll, schema); err != nil {
			// DocumentDB or other deployments may not support collMod/validators.
			if isNoSuchCommand(err) || isNotImplemented(err) {
				zap.L().Info("validator skipped (unsupported)", zap.String("collection", coll))
				return
			}
			problems = append(problems, coll+": "+err.Error())
		}
	}

	ensure("organizations", orgsSchema())
	ensure("billings", billingsSchema())
	ensure("users", usersSchema())

	// Append-only; no validator.
	ensure("audit_events", nil)

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* ---------------------- collection helpers & logging ---------------------- */

func collectionExists(ctx context.Context, db *mongo.Database, name string) (bool, error) {
	names, err := db.ListCollectionNames(ctx, bson.M{"name": name})
	if err != nil {
		return false, err
	}
	return len(names) > 0, nil
}

// ensureCollection idempotently makes sure <name> exists.
// Returns created==true only if we actually created it.
func ensureCollection(ctx context.Context, db *mongo.Database, name string) (created bool, err error) {
	exists, listErr := collectionExists(ctx, db, name)
	if listErr == nil && exists {
		zap.L().Debug("collection exists", zap.String("collection", name))
		return false, nil
	}
	if err := db.CreateCollection(ctx, name); err != nil {
		if isNamespaceExistsErr(err) {
			zap.L().Info("collection exists", zap.String("collection", name))
			return false, nil
		}
		zap.L().Warn("createCollection failed", zap.String("collection", name), zap.Error(err))
		return false, err
	}
	zap.L().Info("created collection", zap.String("collection", name))
	return true, nil
}

/* ------------------------------ validators ------------------------------- */

func setValidator(ctx context.Context, db *mongo.Database, name string, validator bson.M) error {
	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	var out bson.M
	if err := db.RunCommand(ctx, cmd).Decode(&out); err != nil {
		return err
	}
	zap.L().Info("validator ensured", zap.String("collection", name))
	return nil
}

/* ------------------------- error helpers ------------------------- */

func isNamespaceExistsErr(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 48 || strings.Contains(strings.ToLower(ce.Message), "already exists")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "already exists") || strings.Contains(s, "namespace exists")
}

func isNoSuchCommand(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 59 || strings.Contains(strings.ToLower(ce.Message), "no such command")) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "no such command")
}

func isNotImplemented(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 115 ||
		strings.Contains(strings.ToLower(ce.Message), "not implemented") ||
		strings.Contains(strings.ToLower(ce.Message), "not supported")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "not implemented") || strings.Contains(s, "not supported")
}

/* ------------------------- JSON-Schema docs ---------------------- */

var nonBlank = bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"}

func orgsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"github_id", "login", "name", "business_unit", "access_token"},
			"properties": bson.M{
				"github_id":        nonBlank,
				"login":            nonBlank,
				"name":             nonBlank,
				"name_ci":          bson.M{"bsonType": "string"},
				"business_unit":    nonBlank,
				"cost_center":      bson.M{"bsonType": "string"},
				"description":      bson.M{"bsonType": "string"},
				"access_token":     nonBlank,
				"refresh_token":    bson.M{"bsonType": "string"},
				"token_expires_at": bson.M{"bsonType": bson.A{"date", "null"}},
			},
		},
	}
}

func billingsSchema() bson.M {
	months := bson.A{}
	for m := time.January; m <= time.December; m++ {
		months = append(months, m.String())
	}
	statuses := bson.A{}
	for _, s := range models.BillingStatuses {
		statuses = append(statuses, s)
	}

	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"organization_id", "business_unit", "month", "year", "total_amount", "status"},
			"properties": bson.M{
				"organization_id": bson.M{"bsonType": "objectId"},
				"business_unit":   nonBlank,
				"month":           bson.M{"enum": months},
				"year":            bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 1970},
				"total_amount":    bson.M{"bsonType": "number", "minimum": 0},
				"currency":        bson.M{"bsonType": "string"},
				"status":          bson.M{"enum": statuses},
				"paid_at":         bson.M{"bsonType": bson.A{"date", "null"}},
				"usage_breakdown": bson.M{
					"bsonType": bson.A{"array", "null"},
					"items": bson.M{
						"bsonType": "object",
						"properties": bson.M{
							"username":      bson.M{"bsonType": "string"},
							"usage_minutes": bson.M{"bsonType": "number", "minimum": 0},
							"cost":          bson.M{"bsonType": "number", "minimum": 0},
						},
					},
				},
			},
		},
	}
}

func usersSchema() bson.M {
	roles := bson.A{}
	for _, r := range models.Roles {
		roles = append(roles, r)
	}
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"role"},
			"properties": bson.M{
				"name":          bson.M{"bsonType": "string"},
				"email":         bson.M{"bsonType": "string"},
				"github_id":     bson.M{"bsonType": "string"},
				"password_hash": bson.M{"bsonType": "string"},
				"role":          bson.M{"enum": roles},
				"organizations": bson.M{"bsonType": bson.A{"array", "null"}, "items": bson.M{"bsonType": "objectId"}},
			},
		},
	}
}
