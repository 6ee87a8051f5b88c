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

var _ repository.UserRepository = (*UserRepo)(nil)

type UserRepo struct {
	coll     *mongo.Collection
	validate *validation.Validator
	now      func() time.Time
}

// Create normalises and validates user, then inserts it. On success
// user.ID and user.CreatedAt are set.
func (r *UserRepo) Create(ctx context.Context, user *model.User) error {
	user.Normalize()
	if err := r.validate.Struct(user); err != nil {
		return err
	}

	user.ID = newID()
	user.CreatedAt = r.now()

	if _, err := r.coll.InsertOne(ctx, user); err != nil {
		user.ID = ""
		if mongo.IsDuplicateKeyError(err) {
			return apperror.Duplicate("email")
		}
		return fmt.Errorf("mongodb: inserting user: %w", err)
	}
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	if !validID(id) {
		return nil, apperror.NotFound("user", id)
	}
	var u model.User
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return nil, notFoundOr(err, "user", id, "finding")
	}
	return &u, nil
}

// GetByEmail looks the address up in its normalised form.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	email = model.NormalizeEmail(email)
	var u model.User
	if err := r.coll.FindOne(ctx, bson.M{"email": email}).Decode(&u); err != nil {
		return nil, notFoundOr(err, "user", email, "finding")
	}
	return &u, nil
}

// List returns the matching users ordered by name.
func (r *UserRepo) List(ctx context.Context, f repository.UserFilter) ([]model.User, error) {
	filter := bson.M{}
	if f.Role != "" {
		filter["role"] = f.Role
	}
	if f.BatchYear != 0 {
		filter["batchYear"] = f.BatchYear
	}
	if f.House != "" {
		filter["house"] = f.House
	}

	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("mongodb: listing users: %w", err)
	}
	users := []model.User{}
	if err := cur.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("mongodb: decoding users: %w", err)
	}
	return users, nil
}

// UpdateByID applies patch to the stored user, validates the result and
// writes the whole document back with $set. Cleared optional fields are
// $unset so they don't linger as empty values.
func (r *UserRepo) UpdateByID(ctx context.Context, id string, patch model.UserPatch) (*model.User, error) {
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
		"name":            updated.Name,
		"email":           updated.Email,
		"gender":          updated.Gender,
		"batchYear":       updated.BatchYear,
		"showPhoneNumber": updated.ShowPhoneNumber,
	}
	unset := bson.M{}
	optional := func(key string, value any, empty bool) {
		if empty {
			unset[key] = ""
		} else {
			set[key] = value
		}
	}
	optional("phoneNumber", updated.PhoneNumber, updated.PhoneNumber == "")
	optional("house", updated.House, updated.House == "")
	optional("address", updated.Address, updated.Address == "")
	optional("profilePicture", updated.ProfilePicture, updated.ProfilePicture == "")
	optional("occupation", updated.Occupation, updated.Occupation == nil)
	optional("participation", updated.Participation, updated.Participation == nil)

	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, apperror.Duplicate("email")
		}
		return nil, fmt.Errorf("mongodb: updating user %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return nil, apperror.NotFound("user", id)
	}
	return &updated, nil
}

func (r *UserRepo) CountByRole(ctx context.Context, role model.Role) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"role": role})
	if err != nil {
		return 0, fmt.Errorf("mongodb: counting %s users: %w", role, err)
	}
	return n, nil
}
