// internal/domain/models/organization.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DefaultBusinessUnit is assigned to organizations registered without one.
const DefaultBusinessUnit = "Default"

// Organization is a GitHub organization whose Copilot billing is tracked.
// AccessToken and RefreshToken are never serialized to JSON.
type Organization struct {
	ID             primitive.ObjectID `bson:"_id" json:"id"`
	GitHubID       string             `bson:"github_id" json:"githubId"`
	Login          string             `bson:"login" json:"login"`
	Name           string             `bson:"name" json:"name"`
	NameCI         string             `bson:"name_ci" json:"-"` // folded, for sort
	BusinessUnit   string             `bson:"business_unit" json:"businessUnit"`
	CostCenter     string             `bson:"cost_center,omitempty" json:"costCenter,omitempty"`
	Description    string             `bson:"description,omitempty" json:"description,omitempty"`
	AvatarURL      string             `bson:"avatar_url,omitempty" json:"avatarUrl,omitempty"`
	AccessToken    string             `bson:"access_token" json:"-"`
	RefreshToken   string             `bson:"refresh_token,omitempty" json:"-"`
	TokenExpiresAt *time.Time         `bson:"token_expires_at,omitempty" json:"tokenExpiresAt,omitempty"`
	CreatedAt      time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt      time.Time          `bson:"updated_at" json:"updatedAt"`
}
