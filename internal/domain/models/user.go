// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User roles.
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleViewer  = "viewer"
)

// Roles lists every user role.
var Roles = []string{RoleAdmin, RoleManager, RoleViewer}

// User is a dashboard account, optionally linked to a GitHub identity.
//
// NOTE:
//   - Organizations is a reference list; organizations do not point back.
//   - PasswordHash is empty for GitHub-only accounts.
type User struct {
	ID            primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Name          string               `bson:"name" json:"name"`
	Email         string               `bson:"email,omitempty" json:"email"` // lowercase
	PasswordHash  string               `bson:"password_hash,omitempty" json:"-"`
	GitHubID      string               `bson:"github_id,omitempty" json:"githubId,omitempty"`
	Username      string               `bson:"username,omitempty" json:"username,omitempty"`
	Avatar        string               `bson:"avatar,omitempty" json:"avatar,omitempty"`
	AccessToken   string               `bson:"access_token,omitempty" json:"-"`
	Role          string               `bson:"role" json:"role"` // admin | manager | viewer
	Organizations []primitive.ObjectID `bson:"organizations" json:"organizations"`
	LastLogin     *time.Time           `bson:"last_login,omitempty" json:"lastLogin,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// IsValidRole reports whether role is a known user role.
func IsValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleManager, RoleViewer:
		return true
	}
	return false
}
