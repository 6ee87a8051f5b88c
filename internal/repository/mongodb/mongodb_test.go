package mongodb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/sakif/alumni-network/internal/apperror"
	"github.com/sakif/alumni-network/internal/model"
	"github.com/sakif/alumni-network/internal/repository"
	"github.com/sakif/alumni-network/internal/validation"
)

// These tests run against the driver's mock deployment: every server round
// trip consumes the next queued response, so each case lists exactly the
// replies the code under test should ask for.

var ctx = context.Background()

func newMockT(t *testing.T) *mtest.T {
	return mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
}

func newTestStore(mt *mtest.T) *Store {
	return NewStore(mt.DB, validation.New())
}

func ns(mt *mtest.T, coll string) string {
	return mt.DB.Name() + "." + coll
}

// cursor queues a single-batch find reply.
func cursor(mt *mtest.T, coll string, docs ...bson.D) bson.D {
	return mtest.CreateCursorResponse(0, ns(mt, coll), mtest.FirstBatch, docs...)
}

func validUser() *model.User {
	return &model.User{
		Name:         "  Asha Rao ",
		Email:        "Asha@Example.com",
		PasswordHash: "$2a$12$hash",
		Gender:       model.GenderFemale,
		BatchYear:    2005,
	}
}

func userDoc(id, name, email string) bson.D {
	return bson.D{
		{Key: "_id", Value: id},
		{Key: "name", Value: name},
		{Key: "email", Value: email},
		{Key: "password", Value: "$2a$12$hash"},
		{Key: "gender", Value: "male"},
		{Key: "batchYear", Value: 2001},
		{Key: "showPhoneNumber", Value: false},
		{Key: "role", Value: "alumni"},
		{Key: "createdAt", Value: primitive.NewDateTimeFromTime(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))},
	}
}

func eventDoc(id string, registered ...string) bson.D {
	if registered == nil {
		registered = []string{}
	}
	return bson.D{
		{Key: "_id", Value: id},
		{Key: "title", Value: "Annual Alumni Meet"},
		{Key: "description", Value: "Reunion"},
		{Key: "date", Value: primitive.NewDateTimeFromTime(time.Date(2024, 12, 15, 0, 0, 0, 0, time.UTC))},
		{Key: "location", Value: "JNV Campus"},
		{Key: "registeredUsers", Value: registered},
		{Key: "createdBy", Value: "admin-id"},
	}
}

func newsDoc(id, title string) bson.D {
	return bson.D{
		{Key: "_id", Value: id},
		{Key: "title", Value: title},
		{Key: "content", Value: "Body"},
		{Key: "category", Value: "general"},
		{Key: "author", Value: "admin-id"},
	}
}

// =========================================================================
// Users
// =========================================================================

func TestUserRepo_Create(t *testing.T) {
	mt := newMockT(t)

	mt.Run("assigns id and normalises", func(mt *mtest.T) {
		repo := newTestStore(mt).Users()
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		u := validUser()
		require.NoError(mt, repo.Create(ctx, u))

		assert.True(mt, primitive.IsValidObjectID(u.ID))
		assert.Equal(mt, "Asha Rao", u.Name)
		assert.Equal(mt, "asha@example.com", u.Email)
		assert.Equal(mt, model.RoleAlumni, u.Role)
		assert.Equal(mt, u.CreatedAt, u.CreatedAt.Truncate(time.Millisecond))
	})

	mt.Run("duplicate email", func(mt *mtest.T) {
		repo := newTestStore(mt).Users()
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index: 0, Code: 11000, Message: "E11000 duplicate key error collection: users index: email_unique",
		}))

		u := validUser()
		err := repo.Create(ctx, u)

		assert.ErrorIs(mt, err, apperror.ErrDuplicate)
		assert.Empty(mt, u.ID)
	})

	mt.Run("invalid document never reaches the server", func(mt *mtest.T) {
		repo := newTestStore(mt).Users()
		u := validUser()
		u.Email = "not-an-email"
		u.BatchYear = 1970

		err := repo.Create(ctx, u)

		require.ErrorIs(mt, err, apperror.ErrValidation)
		var appErr *apperror.AppError
		require.ErrorAs(mt, err, &appErr)
		assert.Len(mt, appErr.Details, 2)
	})
}

func TestUserRepo_GetByID(t *testing.T) {
	mt := newMockT(t)
	id := primitive.NewObjectID().Hex()

	mt.Run("found", func(mt *mtest.T) {
		repo := newTestStore(mt).Users()
		mt.AddMockResponses(cursor(mt, usersCollection, userDoc(id, "Ravi", "ravi@example.com")))

		u, err := repo.GetByID(ctx, id)
		require.NoError(mt, err)
		assert.Equal(mt, id, u.ID)
		assert.Equal(mt, "ravi@example.com", u.Email)
		assert.Equal(mt, "$2a$12$hash", u.PasswordHash)
	})

	mt.Run("missing", func(mt *mtest.T) {
		repo := newTestStore(mt).Users()
		mt.AddMockResponses(cursor(mt, usersCollection))

		_, err := repo.GetByID(ctx, id)
		assert.ErrorIs(mt, err, apperror.ErrNotFound)
	})

	mt.Run("malformed id", func(mt *mtest.T) {
		repo := newTestStore(mt).Users()

		_, err := repo.GetByID(ctx, "not-an-object-id")
		assert.ErrorIs(mt, err, apperror.ErrNotFound)
	})
}

func TestUserRepo_GetByEmail(t *testing.T) {
	mt := newMockT(t)

	mt.Run("found", func(mt *mtest.T) {
		repo := newTestStore(mt).Users()
		id := primitive.NewObjectID().Hex()
		mt.AddMockResponses(cursor(mt, usersCollection, userDoc(id, "Ravi", "ravi@example.com")))

		u, err := repo.GetByEmail(ctx, " RAVI@example.com")
		require.NoError(mt, err)
		assert.Equal(mt, id, u.ID)
	})

	mt.Run("missing", func(mt *mtest.T) {
		repo := newTestStore(mt).Users()
		mt.AddMockResponses(cursor(mt, usersCollection))

		_, err := repo.GetByEmail(ctx, "nobody@example.com")
		assert.ErrorIs(mt, err, apperror.ErrNotFound)
	})
}

func TestUserRepo_List(t *testing.T) {
	mt := newMockT(t)

	mt.Run("decodes in server order", func(mt *mtest.T) {
		repo := newTestStore(mt).Users()
		a, b := primitive.NewObjectID().Hex(), primitive.NewObjectID().Hex()
		mt.AddMockResponses(cursor(mt, usersCollection,
			userDoc(a, "Anita", "anita@example.com"),
			userDoc(b, "Bala", "bala@example.com"),
		))

		users, err := repo.List(ctx, repository.UserFilter{Role: model.RoleAlumni, BatchYear: 2001})
		require.NoError(mt, err)
		require.Len(mt, users, 2)
		assert.Equal(mt, "Anita", users[0].Name)
		assert.Equal(mt, "Bala", users[1].Name)
	})

	mt.Run("empty is not nil", func(mt *mtest.T) {
		repo := newTestStore(mt).Users()
		mt.AddMockResponses(cursor(mt, usersCollection))

		users, err := repo.List(ctx, repository.UserFilter{})
		require.NoError(mt, err)
		assert.NotNil(mt, users)
		assert.Empty(mt, users)
	})
}

func TestUserRepo_UpdateByID(t *testing.T) {
	mt := newMockT(t)
	id := primitive.NewObjectID().Hex()

	mt.Run("applies patch", func(mt *mtest.T) {
		repo := newTestStore(mt).Users()
		mt.AddMockResponses(
			cursor(mt, usersCollection, userDoc(id, "Ravi", "ravi@example.com")),
			bson.D{{Key: "ok", Value: 1}, {Key: "n", Value: 1}, {Key: "nModified", Value: 1}},
		)

		name := "  Ravi Kumar "
		house := model.HouseNilgiri
		u, err := repo.UpdateByID(ctx, id, model.UserPatch{
			Name:       &name,
			House:      &house,
			Occupation: &model.Occupation{Field: "Engineering", SubField: "Civil Engineering"},
		})
		require.NoError(mt, err)
		assert.Equal(mt, "Ravi Kumar", u.Name)
		assert.Equal(mt, model.HouseNilgiri, u.House)
		assert.Equal(mt, "Civil Engineering", u.Occupation.SubField)
		assert.Equal(mt, "$2a$12$hash", u.PasswordHash)
	})

	mt.Run("invalid result is rejected", func(mt *mtest.T) {
		repo := newTestStore(mt).Users()
		mt.AddMockResponses(cursor(mt, usersCollection, userDoc(id, "Ravi", "ravi@example.com")))

		phone := "12345"
		_, err := repo.UpdateByID(ctx, id, model.UserPatch{PhoneNumber: &phone})
		assert.ErrorIs(mt, err, apperror.ErrValidation)
	})

	mt.Run("missing user", func(mt *mtest.T) {
		repo := newTestStore(mt).Users()
		mt.AddMockResponses(cursor(mt, usersCollection))

		name := "Ghost"
		_, err := repo.UpdateByID(ctx, id, model.UserPatch{Name: &name})
		assert.ErrorIs(mt, err, apperror.ErrNotFound)
	})

	mt.Run("deleted between read and write", func(mt *mtest.T) {
		repo := newTestStore(mt).Users()
		mt.AddMockResponses(
			cursor(mt, usersCollection, userDoc(id, "Ravi", "ravi@example.com")),
			bson.D{{Key: "ok", Value: 1}, {Key: "n", Value: 0}, {Key: "nModified", Value: 0}},
		)

		name := "Ravi"
		_, err := repo.UpdateByID(ctx, id, model.UserPatch{Name: &name})
		assert.ErrorIs(mt, err, apperror.ErrNotFound)
	})

	mt.Run("email taken", func(mt *mtest.T) {
		repo := newTestStore(mt).Users()
		mt.AddMockResponses(
			cursor(mt, usersCollection, userDoc(id, "Ravi", "ravi@example.com")),
			mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 0, Code: 11000, Message: "duplicate key"}),
		)

		email := "taken@example.com"
		_, err := repo.UpdateByID(ctx, id, model.UserPatch{Email: &email})
		assert.ErrorIs(mt, err, apperror.ErrDuplicate)
	})
}

func TestUserRepo_CountByRole(t *testing.T) {
	mt := newMockT(t)

	mt.Run("count", func(mt *mtest.T) {
		repo := newTestStore(mt).Users()
		mt.AddMockResponses(cursor(mt, usersCollection, bson.D{{Key: "n", Value: int32(3)}}))

		n, err := repo.CountByRole(ctx, model.RoleAdmin)
		require.NoError(mt, err)
		assert.Equal(mt, int64(3), n)
	})
}

// =========================================================================
// Events
// =========================================================================

func TestEventRepo_Create(t *testing.T) {
	mt := newMockT(t)

	mt.Run("starts with no registrations", func(mt *mtest.T) {
		repo := newTestStore(mt).Events()
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		e := &model.Event{
			Title:       "Meet",
			Description: "Reunion",
			Date:        time.Date(2030, 5, 1, 10, 0, 0, 123456789, time.UTC),
			Location:    "Campus",
			CreatedBy:   primitive.NewObjectID().Hex(),
		}
		require.NoError(mt, repo.Create(ctx, e))

		assert.NotEmpty(mt, e.ID)
		assert.NotNil(mt, e.RegisteredUsers)
		assert.Empty(mt, e.RegisteredUsers)
		assert.Equal(mt, 123000000, e.Date.Nanosecond())
	})

	mt.Run("missing fields", func(mt *mtest.T) {
		repo := newTestStore(mt).Events()

		err := repo.Create(ctx, &model.Event{Title: "Meet"})
		assert.ErrorIs(mt, err, apperror.ErrValidation)
	})
}

func TestEventRepo_List(t *testing.T) {
	mt := newMockT(t)

	mt.Run("nil registrations decode as empty", func(mt *mtest.T) {
		repo := newTestStore(mt).Events()
		doc := eventDoc(primitive.NewObjectID().Hex())
		doc = append(doc[:5], doc[6:]...) // drop registeredUsers
		mt.AddMockResponses(cursor(mt, eventsCollection, doc))

		events, err := repo.List(ctx, repository.EventFilter{UpcomingOnly: true})
		require.NoError(mt, err)
		require.Len(mt, events, 1)
		assert.NotNil(mt, events[0].RegisteredUsers)
	})
}

func TestEventRepo_Register(t *testing.T) {
	mt := newMockT(t)
	eventID := primitive.NewObjectID().Hex()
	userID := primitive.NewObjectID().Hex()

	mt.Run("appends user", func(mt *mtest.T) {
		repo := newTestStore(mt).Events()
		mt.AddMockResponses(bson.D{
			{Key: "ok", Value: 1},
			{Key: "value", Value: eventDoc(eventID, "earlier-user", userID)},
		})

		e, err := repo.Register(ctx, eventID, userID)
		require.NoError(mt, err)
		assert.Equal(mt, []string{"earlier-user", userID}, e.RegisteredUsers)
	})

	mt.Run("already registered", func(mt *mtest.T) {
		repo := newTestStore(mt).Events()
		mt.AddMockResponses(
			bson.D{{Key: "ok", Value: 1}, {Key: "value", Value: nil}},
			cursor(mt, eventsCollection, eventDoc(eventID, userID)),
		)

		_, err := repo.Register(ctx, eventID, userID)
		assert.ErrorIs(mt, err, apperror.ErrAlreadyRegistered)
	})

	mt.Run("event gone", func(mt *mtest.T) {
		repo := newTestStore(mt).Events()
		mt.AddMockResponses(
			bson.D{{Key: "ok", Value: 1}, {Key: "value", Value: nil}},
			cursor(mt, eventsCollection),
		)

		_, err := repo.Register(ctx, eventID, userID)
		assert.ErrorIs(mt, err, apperror.ErrNotFound)
	})

	mt.Run("malformed event id", func(mt *mtest.T) {
		repo := newTestStore(mt).Events()

		_, err := repo.Register(ctx, "xyz", userID)
		assert.ErrorIs(mt, err, apperror.ErrNotFound)
	})
}

func TestEventRepo_UpdateByID_KeepsRegistrations(t *testing.T) {
	mt := newMockT(t)
	id := primitive.NewObjectID().Hex()

	mt.Run("update", func(mt *mtest.T) {
		repo := newTestStore(mt).Events()
		mt.AddMockResponses(
			cursor(mt, eventsCollection, eventDoc(id, "u1", "u2")),
			bson.D{{Key: "ok", Value: 1}, {Key: "n", Value: 1}, {Key: "nModified", Value: 1}},
		)

		loc := "Virtual Event"
		e, err := repo.UpdateByID(ctx, id, model.EventPatch{Location: &loc})
		require.NoError(mt, err)
		assert.Equal(mt, "Virtual Event", e.Location)
		assert.Equal(mt, []string{"u1", "u2"}, e.RegisteredUsers)
	})
}

func TestEventRepo_DeleteByID(t *testing.T) {
	mt := newMockT(t)
	id := primitive.NewObjectID().Hex()

	mt.Run("deleted", func(mt *mtest.T) {
		repo := newTestStore(mt).Events()
		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "n", Value: 1}})
		assert.NoError(mt, repo.DeleteByID(ctx, id))
	})

	mt.Run("missing", func(mt *mtest.T) {
		repo := newTestStore(mt).Events()
		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "n", Value: 0}})
		assert.ErrorIs(mt, repo.DeleteByID(ctx, id), apperror.ErrNotFound)
	})
}

// =========================================================================
// News
// =========================================================================

func TestNewsRepo_Create_DefaultsCategory(t *testing.T) {
	mt := newMockT(t)

	mt.Run("create", func(mt *mtest.T) {
		repo := newTestStore(mt).News()
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		n := &model.News{Title: "Hello", Content: "World", Author: primitive.NewObjectID().Hex()}
		require.NoError(mt, repo.Create(ctx, n))
		assert.Equal(mt, model.CategoryGeneral, n.Category)
		assert.NotEmpty(mt, n.ID)
	})

	mt.Run("unknown category", func(mt *mtest.T) {
		repo := newTestStore(mt).News()

		n := &model.News{Title: "Hello", Content: "World", Author: "a", Category: "gossip"}
		assert.ErrorIs(mt, repo.Create(ctx, n), apperror.ErrValidation)
	})
}

func TestNewsRepo_ListAndUpdate(t *testing.T) {
	mt := newMockT(t)
	id := primitive.NewObjectID().Hex()

	mt.Run("list", func(mt *mtest.T) {
		repo := newTestStore(mt).News()
		mt.AddMockResponses(cursor(mt, newsCollection, newsDoc(id, "Second"), newsDoc(primitive.NewObjectID().Hex(), "First")))

		items, err := repo.List(ctx, repository.NewsFilter{Category: model.CategoryGeneral})
		require.NoError(mt, err)
		require.Len(mt, items, 2)
		assert.Equal(mt, "Second", items[0].Title)
	})

	mt.Run("update", func(mt *mtest.T) {
		repo := newTestStore(mt).News()
		mt.AddMockResponses(
			cursor(mt, newsCollection, newsDoc(id, "Old")),
			bson.D{{Key: "ok", Value: 1}, {Key: "n", Value: 1}, {Key: "nModified", Value: 1}},
		)

		cat := model.CategoryAchievement
		n, err := repo.UpdateByID(ctx, id, model.NewsPatch{Category: &cat})
		require.NoError(mt, err)
		assert.Equal(mt, model.CategoryAchievement, n.Category)
		assert.Equal(mt, "Old", n.Title)
	})

	mt.Run("delete missing", func(mt *mtest.T) {
		repo := newTestStore(mt).News()
		assert.ErrorIs(mt, repo.DeleteByID(ctx, "bad"), apperror.ErrNotFound)
	})
}

func TestStore_EnsureIndexes(t *testing.T) {
	mt := newMockT(t)

	mt.Run("ok", func(mt *mtest.T) {
		s := newTestStore(mt)
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		assert.NoError(mt, s.EnsureIndexes(ctx))
	})

	mt.Run("close without owned client is a no-op", func(mt *mtest.T) {
		assert.NoError(mt, newTestStore(mt).Close(ctx))
	})
}
