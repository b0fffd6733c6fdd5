package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/IvanChernomyrdin/gophassist/internal/server/models"
	serr "github.com/IvanChernomyrdin/gophassist/internal/shared/errors"
)

const (
	usersCollection    = "users"
	countersCollection = "counters"
	usersCounterID     = "users"
)

// MongoUsersRepository — альтернативное хранилище пользователей (db.driver=mongo).
//
// Уникальность username обеспечивает уникальный индекс, id выдаётся
// счётчиком в коллекции counters ($inc), поэтому он монотонный, как BIGSERIAL.
type MongoUsersRepository struct {
	users    *mongo.Collection
	counters *mongo.Collection
	now      func() time.Time
}

func NewMongoUsersRepository(db *mongo.Database) *MongoUsersRepository {
	return &MongoUsersRepository{
		users:    db.Collection(usersCollection),
		counters: db.Collection(countersCollection),
		now:      time.Now,
	}
}

// EnsureIndexes создаёт уникальный индекс по username. Вызывается при старте сервера.
func (r *MongoUsersRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("users_username_key"),
	})
	if err != nil {
		return storageErr(err)
	}
	return nil
}

func (r *MongoUsersRepository) Exists(ctx context.Context, username string) (bool, error) {
	n, err := r.users.CountDocuments(ctx, bson.M{"username": username}, options.Count().SetLimit(1))
	if err != nil {
		return false, storageErr(err)
	}
	return n > 0, nil
}

func (r *MongoUsersRepository) Create(ctx context.Context, username, passwordHash string) (models.User, error) {
	id, err := r.nextID(ctx)
	if err != nil {
		return models.User{}, err
	}

	u := models.User{
		ID:           id,
		Username:     username,
		PasswordHash: passwordHash,
		// mongo хранит миллисекунды
		CreatedAt: r.now().UTC().Truncate(time.Millisecond),
	}

	if _, err := r.users.InsertOne(ctx, u); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.User{}, serr.ErrAlreadyExists
		}
		return models.User{}, storageErr(err)
	}
	return u, nil
}

func (r *MongoUsersRepository) GetByUsername(ctx context.Context, username string) (models.User, error) {
	return r.findOne(ctx, bson.M{"username": username})
}

func (r *MongoUsersRepository) GetByID(ctx context.Context, id int64) (models.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *MongoUsersRepository) findOne(ctx context.Context, filter bson.M) (models.User, error) {
	var u models.User
	err := r.users.FindOne(ctx, filter).Decode(&u)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.User{}, serr.ErrNotFound
		}
		return models.User{}, storageErr(err)
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return u, nil
}

// nextID атомарно увеличивает счётчик users и возвращает новое значение.
func (r *MongoUsersRepository) nextID(ctx context.Context) (int64, error) {
	var doc struct {
		Seq int64 `bson:"seq"`
	}
	err := r.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": usersCounterID},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return 0, storageErr(err)
	}
	return doc.Seq, nil
}
