package mongodb

import (
	"context"
	"errors"
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

var _ repository.EventRepository = (*EventRepo)(nil)

type EventRepo struct {
	coll     *mongo.Collection
	validate *validation.Validator
	now      func() time.Time
}

func (r *EventRepo) Create(ctx context.Context, event *model.Event) error {
	event.Normalize()
	if err := r.validate.Struct(event); err != nil {
		return err
	}

	event.ID = newID()
	event.CreatedAt = r.now()
	event.Date = event.Date.UTC().Truncate(time.Millisecond)

	if _, err := r.coll.InsertOne(ctx, event); err != nil {
		event.ID = ""
		return fmt.Errorf("mongodb: inserting event: %w", err)
	}
	return nil
}

func (r *EventRepo) GetByID(ctx context.Context, id string) (*model.Event, error) {
	if !validID(id) {
		return nil, apperror.NotFound("event", id)
	}
	var e model.Event
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&e); err != nil {
		return nil, notFoundOr(err, "event", id, "finding")
	}
	e.Normalize()
	return &e, nil
}

// List returns events by date, soonest first.
func (r *EventRepo) List(ctx context.Context, f repository.EventFilter) ([]model.Event, error) {
	filter := bson.M{}
	if f.UpcomingOnly {
		filter["date"] = bson.M{"$gte": f.Reference()}
	}

	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("mongodb: listing events: %w", err)
	}
	events := []model.Event{}
	if err := cur.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("mongodb: decoding events: %w", err)
	}
	for i := range events {
		events[i].Normalize()
	}
	return events, nil
}

// UpdateByID never touches registeredUsers, so a registration racing with
// an edit is not lost.
func (r *EventRepo) UpdateByID(ctx context.Context, id string, patch model.EventPatch) (*model.Event, error) {
	current, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updated := *current
	patch.Apply(&updated)
	updated.Date = updated.Date.UTC().Truncate(time.Millisecond)
	if err := r.validate.Struct(&updated); err != nil {
		return nil, err
	}

	set := bson.M{
		"title":       updated.Title,
		"description": updated.Description,
		"date":        updated.Date,
		"location":    updated.Location,
	}
	update := bson.M{"$set": set}
	if updated.Image == "" {
		update["$unset"] = bson.M{"image": ""}
	} else {
		set["image"] = updated.Image
	}

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return nil, fmt.Errorf("mongodb: updating event %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return nil, apperror.NotFound("event", id)
	}
	return &updated, nil
}

func (r *EventRepo) DeleteByID(ctx context.Context, id string) error {
	if !validID(id) {
		return apperror.NotFound("event", id)
	}
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("mongodb: deleting event %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return apperror.NotFound("event", id)
	}
	return nil
}

// Register pushes userID in a single FindOneAndUpdate whose filter only
// matches while the user is absent. When nothing matches, a plain read
// tells a missing event apart from a repeat registration.
func (r *EventRepo) Register(ctx context.Context, eventID, userID string) (*model.Event, error) {
	if !validID(eventID) {
		return nil, apperror.NotFound("event", eventID)
	}

	filter := bson.M{"_id": eventID, "registeredUsers": bson.M{"$ne": userID}}
	update := bson.M{"$push": bson.M{"registeredUsers": userID}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var e model.Event
	err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&e)
	if err == nil {
		e.Normalize()
		return &e, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("mongodb: registering for event %s: %w", eventID, err)
	}

	if _, err := r.GetByID(ctx, eventID); err != nil {
		return nil, err
	}
	return nil, apperror.AlreadyRegistered()
}

func (r *EventRepo) Count(ctx context.Context) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("mongodb: counting events: %w", err)
	}
	return n, nil
}
