package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/IvanChernomyrdin/gophassist/internal/server/models"
	serr "github.com/IvanChernomyrdin/gophassist/internal/shared/errors"
)

const sessionsCollection = "sessions"

// sessionDoc — представление сессии в mongo, uuid хранятся строками.
type sessionDoc struct {
	ID          string     `bson:"_id"`
	UserID      int64      `bson:"user_id"`
	RefreshHash []byte     `bson:"refresh_hash"`
	ExpiresAt   time.Time  `bson:"expires_at"`
	RevokedAt   *time.Time `bson:"revoked_at,omitempty"`
	ReplacedBy  string     `bson:"replaced_by,omitempty"`
}

// MongoSessionsRepository — refresh-сессии при db.driver=mongo.
type MongoSessionsRepository struct {
	sessions *mongo.Collection
	now      func() time.Time
}

func NewMongoSessionsRepository(db *mongo.Database) *MongoSessionsRepository {
	return &MongoSessionsRepository{sessions: db.Collection(sessionsCollection), now: time.Now}
}

// EnsureIndexes: уникальный хэш refresh и индекс по user_id.
func (r *MongoSessionsRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.sessions.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "refresh_hash", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "user_id", Value: 1}}},
	})
	if err != nil {
		return storageErr(err)
	}
	return nil
}

func (r *MongoSessionsRepository) Create(ctx context.Context, s models.Session) (uuid.UUID, error) {
	id := uuid.New()
	_, err := r.sessions.InsertOne(ctx, sessionDoc{
		ID:          id.String(),
		UserID:      s.UserID,
		RefreshHash: s.RefreshHash,
		ExpiresAt:   s.ExpiresAt.UTC(),
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return uuid.Nil, serr.ErrConflict
		}
		return uuid.Nil, storageErr(err)
	}
	return id, nil
}

func (r *MongoSessionsRepository) GetByRefreshHash(ctx context.Context, refreshHash []byte) (models.Session, error) {
	var doc sessionDoc
	err := r.sessions.FindOne(ctx, bson.M{"refresh_hash": refreshHash}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Session{}, serr.ErrUnauthorized
		}
		return models.Session{}, storageErr(err)
	}

	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return models.Session{}, storageErr(err)
	}
	s := models.Session{
		ID:          id,
		UserID:      doc.UserID,
		RefreshHash: doc.RefreshHash,
		ExpiresAt:   doc.ExpiresAt,
		RevokedAt:   doc.RevokedAt,
	}
	if doc.ReplacedBy != "" {
		if rid, e := uuid.Parse(doc.ReplacedBy); e == nil {
			s.ReplacedBy = &rid
		}
	}
	return s, nil
}

func (r *MongoSessionsRepository) RevokeAndReplace(ctx context.Context, oldID, newID uuid.UUID) error {
	_, err := r.sessions.UpdateOne(ctx,
		bson.M{"_id": oldID.String(), "revoked_at": bson.M{"$exists": false}},
		bson.M{"$set": bson.M{"revoked_at": r.now().UTC(), "replaced_by": newID.String()}},
	)
	if err != nil {
		return storageErr(err)
	}
	return nil
}

func (r *MongoSessionsRepository) RevokeAllForUser(ctx context.Context, userID int64) error {
	_, err := r.sessions.UpdateMany(ctx,
		bson.M{"user_id": userID, "revoked_at": bson.M{"$exists": false}},
		bson.M{"$set": bson.M{"revoked_at": r.now().UTC()}},
	)
	if err != nil {
		return storageErr(err)
	}
	return nil
}
