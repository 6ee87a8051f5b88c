package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sakif/alumni-network/internal/apperror"
	"github.com/sakif/alumni-network/internal/model"
	"github.com/sakif/alumni-network/internal/repository"
	"github.com/sakif/alumni-network/internal/validation"
)

var _ repository.NewsRepository = (*NewsRepo)(nil)

type NewsRepo struct {
	coll     *mongo.Collection
	validate *validation.Validator
	now      func() time.Time
}

func (r *NewsRepo) Create(ctx context.Context, news *model.News) error {
	news.Normalize()
	if err := r.validate.Struct(news); err != nil {
		return err
	}

	news.ID = newID()
	news.CreatedAt = r.now()

	if _, err := r.coll.InsertOne(ctx, news); err != nil {
		news.ID = ""
		return fmt.Errorf("mongodb: inserting news: %w", err)
	}
	return nil
}

func (r *NewsRepo) GetByID(ctx context.Context, id string) (*model.News, error) {
	if !validID(id) {
		return nil, apperror.NotFound("news", id)
	}
	var n model.News
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&n); err != nil {
		return nil, notFoundOr(err, "news", id, "finding")
	}
	return &n, nil
}

// List returns the newest items first.
func (r *NewsRepo) List(ctx context.Context, f repository.NewsFilter) ([]model.News, error) {
	filter := bson.M{}
	if f.Category != "" {
		filter["category"] = f.Category
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("mongodb: listing news: %w", err)
	}
	items := []model.News{}
	if err := cur.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("mongodb: decoding news: %w", err)
	}
	return items, nil
}

func (r *NewsRepo) UpdateByID(ctx context.Context, id string, patch model.NewsPatch) (*model.News, error) {
	current, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updated := *current
	patch.Apply(&updated)
	if err := r.validate.Struct(&updated); err != nil {
		return nil, err
	}

	set := bson.M{
		"title":    updated.Title,
		"content":  updated.Content,
		"category": updated.Category,
	}
	update := bson.M{"$set": set}
	if updated.Image == "" {
		update["$unset"] = bson.M{"image": ""}
	} else {
		set["image"] = updated.Image
	}

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return nil, fmt.Errorf("mongodb: updating news %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return nil, apperror.NotFound("news", id)
	}
	return &updated, nil
}

func (r *NewsRepo) DeleteByID(ctx context.Context, id string) error {
	if !validID(id) {
		return apperror.NotFound("news", id)
	}
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("mongodb: deleting news %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return apperror.NotFound("news", id)
	}
	return nil
}

func (r *NewsRepo) Count(ctx context.Context) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("mongodb: counting news: %w", err)
	}
	return n, nil
}
