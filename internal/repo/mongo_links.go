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
	"go.mongodb.org/mongo-driver/mongo/options"
)

type linkDoc struct {
	ID        string    `bson:"_id"`
	Code      string    `bson:"short_url"`
	URL       string    `bson:"full_url"`
	OwnerID   string    `bson:"user,omitempty"`
	Clicks    int64     `bson:"clicks"`
	CreatedAt time.Time `bson:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

// MongoLinksRepo is the LinkStore for MongoDB.
type MongoLinksRepo struct {
	coll *mongo.Collection
}

func NewMongoLinksRepo(database *mongo.Database) *MongoLinksRepo {
	return &MongoLinksRepo{coll: database.Collection(db.LinksCollection)}
}

func (r *MongoLinksRepo) Create(ctx context.Context, link *internal.ShortLink) error {
	log.Debug().Str("code", link.Code).Str("url", link.URL).Msg("creating link")

	_, err := r.coll.InsertOne(ctx, linkDoc{
		ID:        link.ID,
		Code:      link.Code,
		URL:       link.URL,
		OwnerID:   link.OwnerID,
		Clicks:    link.Clicks,
		CreatedAt: link.CreatedAt,
		UpdatedAt: link.UpdatedAt,
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return internal.ErrSlugExists
		}
		log.Error().Err(err).Str("code", link.Code).Msg("failed to create link")
		return fmt.Errorf("failed to insert link: %w", err)
	}

	log.Info().Str("id", link.ID).Str("code", link.Code).Msg("link created successfully")
	return nil
}

func (r *MongoLinksRepo) GetByCode(ctx context.Context, code string) (*internal.ShortLink, error) {
	var doc linkDoc
	err := r.coll.FindOne(ctx, bson.M{"short_url": code}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, internal.ErrLinkNotFound
		}
		return nil, fmt.Errorf("failed to fetch link: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *MongoLinksRepo) Increment(ctx context.Context, code string) (*internal.ShortLink, error) {
	update := bson.M{
		"$inc": bson.M{"clicks": 1},
		"$set": bson.M{"updatedAt": time.Now().UTC()},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc linkDoc
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"short_url": code}, update, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, internal.ErrLinkNotFound
		}
		return nil, fmt.Errorf("failed to increment clicks: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *MongoLinksRepo) ListByOwner(ctx context.Context, ownerID string) ([]*internal.ShortLink, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})

	cursor, err := r.coll.Find(ctx, bson.M{"user": ownerID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []linkDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode links: %w", err)
	}

	links := make([]*internal.ShortLink, len(docs))
	for i := range docs {
		links[i] = docs[i].toDomain()
	}
	return links, nil
}

func (d *linkDoc) toDomain() *internal.ShortLink {
	return &internal.ShortLink{
		ID:        d.ID,
		Code:      d.Code,
		URL:       d.URL,
		OwnerID:   d.OwnerID,
		Clicks:    d.Clicks,
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
	}
}
