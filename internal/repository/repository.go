// Package repository declares the storage contracts for users, events and
// news. Services depend on these interfaces only; the concrete stores live
// in repository/mongodb and repository/sqlite and are chosen at startup.
//
// SHARED CONTRACT (every implementation must honour it):
//   - Create and UpdateByID validate the full document with
//     internal/validation before writing. A failure returns an
//     apperror.Validation carrying every violated rule.
//   - A duplicate user email returns apperror.Duplicate("email").
//   - UpdateByID / DeleteByID / GetByID on an unknown or malformed id
//     return apperror.NotFound. Updates never upsert.
//   - List results are sorted: users by name, events by date ascending,
//     news newest first. Ties are broken by id so order is stable.
package repository

import (
	"context"
	"time"

	"github.com/sakif/alumni-network/internal/model"
)

// UserFilter narrows a user listing. Zero values mean "any".
type UserFilter struct {
	Role      model.Role
	BatchYear int
	House     model.House
}

// EventFilter narrows an event listing.
type EventFilter struct {
	// UpcomingOnly keeps events dated at or after Now.
	UpcomingOnly bool
	// Now is the reference time for UpcomingOnly; zero means time.Now().
	Now time.Time
}

// Reference returns Now, or the current time when Now is zero.
func (f EventFilter) Reference() time.Time {
	if f.Now.IsZero() {
		return time.Now()
	}
	return f.Now
}

// NewsFilter narrows a news listing.
type NewsFilter struct {
	Category model.Category
}

// UserRepository stores alumni and admins. Users are never deleted.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	List(ctx context.Context, filter UserFilter) ([]model.User, error)
	UpdateByID(ctx context.Context, id string, patch model.UserPatch) (*model.User, error)
	CountByRole(ctx context.Context, role model.Role) (int64, error)
}

// EventRepository stores events and their registrations.
type EventRepository interface {
	Create(ctx context.Context, event *model.Event) error
	GetByID(ctx context.Context, id string) (*model.Event, error)
	List(ctx context.Context, filter EventFilter) ([]model.Event, error)
	UpdateByID(ctx context.Context, id string, patch model.EventPatch) (*model.Event, error)
	DeleteByID(ctx context.Context, id string) error
	// Register appends userID to the event's registrations as one atomic
	// add-if-absent. It returns apperror.AlreadyRegistered when the user
	// is already on the list and apperror.NotFound when the event is gone.
	Register(ctx context.Context, eventID, userID string) (*model.Event, error)
	Count(ctx context.Context) (int64, error)
}

// NewsRepository stores news items.
type NewsRepository interface {
	Create(ctx context.Context, news *model.News) error
	GetByID(ctx context.Context, id string) (*model.News, error)
	List(ctx context.Context, filter NewsFilter) ([]model.News, error)
	UpdateByID(ctx context.Context, id string, patch model.NewsPatch) (*model.News, error)
	DeleteByID(ctx context.Context, id string) error
	Count(ctx context.Context) (int64, error)
}

// Store bundles the three repositories of one backend plus its lifecycle.
type Store interface {
	Users() UserRepository
	Events() EventRepository
	News() NewsRepository
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
