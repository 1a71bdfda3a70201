package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Session is one signed-in browser session.
// Collection: sessions
type Session struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SessionID string             `bson:"session_id" json:"session_id"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
	ExpiresAt time.Time          `bson:"expires_at" json:"expires_at"`
	Pending   bool               `bson:"pending" json:"pending"`

	UserEmail string `bson:"user_email" json:"user_email"`
	UserName  string `bson:"user_name" json:"user_name"`
	UserGroup string `bson:"user_group" json:"user_group"`

	AccessToken    string    `bson:"access_token" json:"-"`
	TokenType      string    `bson:"token_type" json:"token_type"`
	TokenExpiresAt time.Time `bson:"token_expires_at,omitempty" json:"token_expires_at"`
}
