package stores

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	sk "github.com/Gaurangi-25/Secrets-Keeper"
)

// MongoUserStore persists User documents in a mongo collection
type MongoUserStore struct {
	users *mongo.Collection
}

func NewMongoUserStore(users *mongo.Collection) *MongoUserStore {
	return &MongoUserStore{users: users}
}

// EnsureIndexes creates the unique email index. Call once at startup.
func (s *MongoUserStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (s *MongoUserStore) CreateUser(ctx context.Context, user *sk.User) error {
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	if _, err := s.users.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("email already registered: %w", err)
		}
		return err
	}
	return nil
}

func (s *MongoUserStore) GetUserById(ctx context.Context, id string) (*sk.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, sk.ErrUserNotFound
	}
	return s.findOne(ctx, bson.M{"_id": oid})
}

func (s *MongoUserStore) GetUserByEmail(ctx context.Context, email string) (*sk.User, error) {
	return s.findOne(ctx, bson.M{"email": email})
}

func (s *MongoUserStore) GetUserByGoogleId(ctx context.Context, googleId string) (*sk.User, error) {
	return s.findOne(ctx, bson.M{"googleId": googleId})
}

func (s *MongoUserStore) findOne(ctx context.Context, filter bson.M) (*sk.User, error) {
	var user sk.User
	if err := s.users.FindOne(ctx, filter).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, sk.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *MongoUserStore) AppendSecret(ctx context.Context, id string, secret string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return sk.ErrUserNotFound
	}
	res, err := s.users.UpdateByID(ctx, oid, bson.M{
		"$push": bson.M{"secret": secret},
		"$set":  bson.M{"updated_at": time.Now()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return sk.ErrUserNotFound
	}
	return nil
}

func (s *MongoUserStore) UsersWithSecrets(ctx context.Context) ([]*sk.User, error) {
	// a secret array that exists and is non-empty
	cursor, err := s.users.Find(ctx, bson.M{
		"secret": bson.M{"$exists": true, "$ne": bson.A{}},
	})
	if err != nil {
		return nil, err
	}

	var users []*sk.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}
