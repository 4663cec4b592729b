package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/jaekwang-park/todo-notes/internal/model"
)

type mongoUser struct {
	ID         string    `bson:"_id"`
	CognitoSub string    `bson:"cognito_sub"`
	Email      string    `bson:"email"`
	Name       string    `bson:"name"`
	CreatedAt  time.Time `bson:"created_at"`
	UpdatedAt  time.Time `bson:"updated_at"`
}

func (u mongoUser) model() model.User {
	return model.User{
		ID:         u.ID,
		CognitoSub: u.CognitoSub,
		Email:      u.Email,
		Name:       u.Name,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
}

type MongoUserRepository struct {
	coll *mongo.Collection
}

func NewMongoUser(db *mongo.Database) *MongoUserRepository {
	return &MongoUserRepository{coll: db.Collection("users")}
}

func (r *MongoUserRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "cognito_sub", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create users indexes: %w", err)
	}
	return nil
}

// GetOrCreate upserts by Cognito subject. An empty name keeps the stored one.
func (r *MongoUserRepository) GetOrCreate(ctx context.Context, cognitoSub, email, name string) (model.User, error) {
	now := time.Now().UTC()
	set := bson.M{"email": email, "updated_at": now}
	setOnInsert := bson.M{"_id": uuid.NewString(), "created_at": now}
	if name != "" {
		set["name"] = name
	} else {
		setOnInsert["name"] = ""
	}

	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var u mongoUser
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"cognito_sub": cognitoSub},
		bson.M{"$set": set, "$setOnInsert": setOnInsert},
		opts,
	).Decode(&u)
	if err != nil {
		return model.User{}, fmt.Errorf("upsert user: %w", err)
	}
	return u.model(), nil
}

func (r *MongoUserRepository) GetByCognitoSub(ctx context.Context, cognitoSub string) (model.User, error) {
	var u mongoUser
	err := r.coll.FindOne(ctx, bson.M{"cognito_sub": cognitoSub}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.User{}, ErrUserNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("find user %s: %w", cognitoSub, err)
	}
	return u.model(), nil
}

var _ UserRepository = (*MongoUserRepository)(nil)
