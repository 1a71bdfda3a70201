package repositories

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"sw360-console/db"
	"sw360-console/models"
	"sw360-console/session"
)

// SessionRepository stores console sessions in Mongo. It satisfies session.Store.
type SessionRepository struct {
	col *mongo.Collection
	now func() time.Time
}

func NewSessionRepository(d *mongo.Database) *SessionRepository {
	return &SessionRepository{col: d.Collection(db.SessionsCollection), now: time.Now}
}

// Save upserts the entry identified by its session id.
func (r *SessionRepository) Save(ctx context.Context, entry session.Entry) error {
	doc := toDocument(entry)
	doc.UpdatedAt = r.now()

	filter := bson.M{"session_id": doc.SessionID}
	update := bson.M{
		"$setOnInsert": bson.M{
			"created_at": doc.CreatedAt,
		},
		"$set": bson.M{
			"updated_at":       doc.UpdatedAt,
			"expires_at":       doc.ExpiresAt,
			"pending":          doc.Pending,
			"user_email":       doc.UserEmail,
			"user_name":        doc.UserName,
			"user_group":       doc.UserGroup,
			"access_token":     doc.AccessToken,
			"token_type":       doc.TokenType,
			"token_expires_at": doc.TokenExpiresAt,
		},
	}
	_, err := r.col.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

// Get finds a session by id. Expired documents the TTL monitor has not
// removed yet are reported as missing.
func (r *SessionRepository) Get(ctx context.Context, id session.ID) (session.Entry, error) {
	var doc models.Session
	err := r.col.FindOne(ctx, bson.M{"session_id": string(id)}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return session.Entry{}, session.ErrNotFound
	}
	if err != nil {
		return session.Entry{}, err
	}
	if !doc.ExpiresAt.IsZero() && !r.now().Before(doc.ExpiresAt) {
		return session.Entry{}, session.ErrNotFound
	}
	return fromDocument(doc), nil
}

func (r *SessionRepository) Delete(ctx context.Context, id session.ID) error {
	_, err := r.col.DeleteOne(ctx, bson.M{"session_id": string(id)})
	return err
}

func toDocument(e session.Entry) models.Session {
	return models.Session{
		SessionID:      string(e.ID),
		CreatedAt:      e.CreatedAt,
		ExpiresAt:      e.ExpiresAt,
		Pending:        e.Pending,
		UserEmail:      e.User.Email,
		UserName:       e.User.Name,
		UserGroup:      e.User.Group,
		AccessToken:    e.Credential.AccessToken,
		TokenType:      e.Credential.TokenType,
		TokenExpiresAt: e.Credential.ExpiresAt,
	}
}

func fromDocument(doc models.Session) session.Entry {
	return session.Entry{
		ID:        session.ID(doc.SessionID),
		CreatedAt: doc.CreatedAt,
		ExpiresAt: doc.ExpiresAt,
		Pending:   doc.Pending,
		User: session.User{
			Email: doc.UserEmail,
			Name:  doc.UserName,
			Group: doc.UserGroup,
		},
		Credential: session.Credential{
			AccessToken: doc.AccessToken,
			TokenType:   doc.TokenType,
			ExpiresAt:   doc.TokenExpiresAt,
		},
	}
}
