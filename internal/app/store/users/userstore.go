package userstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/copilotbilling/internal/app/system/normalize"
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

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

var (
	// ErrDuplicateEmail is returned when attempting to create a user with an email that already exists.
	ErrDuplicateEmail = errors.New("a user with this email already exists")
	errBadRole        = errors.New(`role must be "admin"|"manager"|"viewer"`)
)

// GetByID loads a user by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByIDs loads the users with the given ids. Missing ids are skipped.
func (s *Store) GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, options.Find().SetProjection(bson.M{"password_hash": 0, "access_token": 0}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.User
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetByEmail looks up a user by case-insensitive email. Returns mongo.ErrNoDocuments if not found.
func (s *Store) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"email": normalize.Email(email)}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts a local (password) user. Role defaults to viewer.
func (s *Store) Create(ctx context.Context, u models.User) (models.User, error) {
	u.ID = primitive.NewObjectID()
	u.Name = normalize.Name(u.Name)
	u.Email = normalize.Email(u.Email)
	if u.Role == "" {
		u.Role = models.RoleViewer
	}
	if !models.IsValidRole(u.Role) {
		return models.User{}, errBadRole
	}

	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			return models.User{}, ErrDuplicateEmail
		}
		return models.User{}, err
	}
	return u, nil
}

// GitHubProfile is the identity returned by a completed GitHub sign-in.
type GitHubProfile struct {
	GitHubID    string
	Username    string
	Name        string
	Email       string
	AvatarURL   string
	AccessToken string
	// Role, when non-empty, is applied on every sign-in. Otherwise new
	// accounts start as viewers and existing roles are kept.
	Role string
}

// UpsertGitHub creates or refreshes the user linked to a GitHub identity and
// records the login time. The access token is replaced on every sign-in.
func (s *Store) UpsertGitHub(ctx context.Context, p GitHubProfile) (models.User, error) {
	now := time.Now().UTC()
	name := normalize.Name(p.Name)
	if name == "" {
		name = p.Username
	}

	set := bson.M{
		"name":         name,
		"username":     p.Username,
		"avatar":       p.AvatarURL,
		"access_token": p.AccessToken,
		"last_login":   now,
		"updated_at":   now,
	}
	onInsert := bson.M{
		"organizations": bson.A{},
		"created_at":    now,
	}
	if p.Role != "" {
		set["role"] = p.Role
	} else {
		onInsert["role"] = models.RoleViewer
	}
	if email := normalize.Email(p.Email); email != "" {
		onInsert["email"] = email
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)
	var u models.User
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"github_id": p.GitHubID},
		bson.M{"$set": set, "$setOnInsert": onInsert},
		opts,
	).Decode(&u)
	if err != nil {
		if wafflemongo.IsDup(err) {
			return models.User{}, ErrDuplicateEmail
		}
		return models.User{}, err
	}
	return u, nil
}

// TouchLogin records a successful sign-in.
func (s *Store) TouchLogin(ctx context.Context, id primitive.ObjectID) error {
	now := time.Now().UTC()
	_, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{"last_login": now, "updated_at": now}})
	return err
}

// AddOrganization links an organization to the user's list, once.
func (s *Store) AddOrganization(ctx context.Context, id, orgID primitive.ObjectID) error {
	res, err := s.c.UpdateByID(ctx, id, bson.M{
		"$addToSet": bson.M{"organizations": orgID},
		"$set":      bson.M{"updated_at": time.Now().UTC()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}
