package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/abdusco/snip/internal"
	"github.com/abdusco/snip/internal/db"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type userDoc struct {
	ID           string    `bson:"_id"`
	Name         string    `bson:"name"`
	Email        string    `bson:"email"`
	PasswordHash string    `bson:"password"`
	Avatar       string    `bson:"avatar"`
	CreatedAt    time.Time `bson:"createdAt"`
	UpdatedAt    time.Time `bson:"updatedAt"`
}

// MongoUsersRepo is the UserStore for MongoDB.
type MongoUsersRepo struct {
	coll *mongo.Collection
}

func NewMongoUsersRepo(database *mongo.Database) *MongoUsersRepo {
	return &MongoUsersRepo{coll: database.Collection(db.UsersCollection)}
}

func (r *MongoUsersRepo) Create(ctx context.Context, user *internal.User) error {
	_, err := r.coll.InsertOne(ctx, userDoc{
		ID:           user.ID,
		Name:         user.Name,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		Avatar:       user.Avatar,
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return internal.ErrEmailExists
		}
		log.Error().Err(err).Str("email", user.Email).Msg("failed to create user")
		return fmt.Errorf("failed to insert user: %w", err)
	}

	log.Info().Str("id", user.ID).Msg("user created")
	return nil
}

func (r *MongoUsersRepo) GetByID(ctx context.Context, id string) (*internal.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *MongoUsersRepo) GetByEmail(ctx context.Context, email string) (*internal.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *MongoUsersRepo) findOne(ctx context.Context, filter bson.M) (*internal.User, error) {
	var doc userDoc
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, internal.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}

	return &internal.User{
		ID:           doc.ID,
		Name:         doc.Name,
		Email:        doc.Email,
		PasswordHash: doc.PasswordHash,
		Avatar:       doc.Avatar,
		CreatedAt:    doc.CreatedAt.UTC(),
		UpdatedAt:    doc.UpdatedAt.UTC(),
	}, nil
}
