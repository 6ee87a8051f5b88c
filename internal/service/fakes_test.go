package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sort"
	"sync"

	"github.com/sakif/alumni-network/internal/apperror"
	"github.com/sakif/alumni-network/internal/model"
	"github.com/sakif/alumni-network/internal/repository"
)

// =========================================================================
// FAKES
// =========================================================================
//
// Hand-written in-memory repositories. They honour the parts of the
// repository contract the services rely on (NotFound, Duplicate,
// AlreadyRegistered, sort order) and nothing more; field validation is
// covered by the repository tests.

var errStoreDown = errors.New("store unavailable")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeUserRepo struct {
	mu     sync.Mutex
	users  map[string]*model.User
	nextID int
	err    error // returned by every method when set
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*model.User)}
}

func (f *fakeUserRepo) Create(_ context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	u.Normalize()
	for _, existing := range f.users {
		if existing.Email == u.Email {
			return apperror.Duplicate("email")
		}
	}
	f.nextID++
	u.ID = fmt.Sprintf("user-%d", f.nextID)
	stored := *u
	f.users[u.ID] = &stored
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	email = model.NormalizeEmail(email)
	for _, u := range f.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("user", email)
}

func (f *fakeUserRepo) List(_ context.Context, filter repository.UserFilter) ([]model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := []model.User{}
	for _, u := range f.users {
		if filter.Role != "" && u.Role != filter.Role {
			continue
		}
		if filter.BatchYear != 0 && u.BatchYear != filter.BatchYear {
			continue
		}
		if filter.House != "" && u.House != filter.House {
			continue
		}
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeUserRepo) UpdateByID(_ context.Context, id string, patch model.UserPatch) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	patch.Apply(u)
	copied := *u
	return &copied, nil
}

func (f *fakeUserRepo) CountByRole(_ context.Context, role model.Role) (int64, error) {
	users, err := f.List(context.Background(), repository.UserFilter{Role: role})
	return int64(len(users)), err
}

type fakeEventRepo struct {
	mu     sync.Mutex
	events map[string]*model.Event
	nextID int
	err    error
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{events: make(map[string]*model.Event)}
}

func (f *fakeEventRepo) Create(_ context.Context, e *model.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	e.Normalize()
	f.nextID++
	e.ID = fmt.Sprintf("event-%d", f.nextID)
	stored := *e
	f.events[e.ID] = &stored
	return nil
}

func (f *fakeEventRepo) GetByID(_ context.Context, id string) (*model.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.events[id]
	if !ok {
		return nil, apperror.NotFound("event", id)
	}
	copied := *e
	copied.RegisteredUsers = slices.Clone(e.RegisteredUsers)
	return &copied, nil
}

func (f *fakeEventRepo) List(_ context.Context, filter repository.EventFilter) ([]model.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := []model.Event{}
	for _, e := range f.events {
		if filter.UpcomingOnly && e.Date.Before(filter.Reference()) {
			continue
		}
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (f *fakeEventRepo) UpdateByID(_ context.Context, id string, patch model.EventPatch) (*model.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.events[id]
	if !ok {
		return nil, apperror.NotFound("event", id)
	}
	patch.Apply(e)
	copied := *e
	return &copied, nil
}

func (f *fakeEventRepo) DeleteByID(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.events[id]; !ok {
		return apperror.NotFound("event", id)
	}
	delete(f.events, id)
	return nil
}

func (f *fakeEventRepo) Register(_ context.Context, eventID, userID string) (*model.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.events[eventID]
	if !ok {
		return nil, apperror.NotFound("event", eventID)
	}
	if e.IsRegistered(userID) {
		return nil, apperror.AlreadyRegistered()
	}
	e.RegisteredUsers = append(e.RegisteredUsers, userID)
	copied := *e
	copied.RegisteredUsers = slices.Clone(e.RegisteredUsers)
	return &copied, nil
}

func (f *fakeEventRepo) Count(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.events)), nil
}

type fakeNewsRepo struct {
	mu     sync.Mutex
	items  map[string]*model.News
	nextID int
}

func newFakeNewsRepo() *fakeNewsRepo {
	return &fakeNewsRepo{items: make(map[string]*model.News)}
}

func (f *fakeNewsRepo) Create(_ context.Context, n *model.News) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	n.Normalize()
	f.nextID++
	n.ID = fmt.Sprintf("news-%03d", f.nextID)
	stored := *n
	f.items[n.ID] = &stored
	return nil
}

func (f *fakeNewsRepo) GetByID(_ context.Context, id string) (*model.News, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.items[id]
	if !ok {
		return nil, apperror.NotFound("news", id)
	}
	copied := *n
	return &copied, nil
}

func (f *fakeNewsRepo) List(_ context.Context, filter repository.NewsFilter) ([]model.News, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.News{}
	for _, n := range f.items {
		if filter.Category != "" && n.Category != filter.Category {
			continue
		}
		out = append(out, *n)
	}
	// ids are assigned in creation order
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f *fakeNewsRepo) UpdateByID(_ context.Context, id string, patch model.NewsPatch) (*model.News, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.items[id]
	if !ok {
		return nil, apperror.NotFound("news", id)
	}
	patch.Apply(n)
	copied := *n
	return &copied, nil
}

func (f *fakeNewsRepo) DeleteByID(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[id]; !ok {
		return apperror.NotFound("news", id)
	}
	delete(f.items, id)
	return nil
}

func (f *fakeNewsRepo) Count(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.items)), nil
}

// fakeStore bundles the three fakes as a repository.Store.
type fakeStore struct {
	users  *fakeUserRepo
	events *fakeEventRepo
	news   *fakeNewsRepo
}

var _ repository.Store = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{users: newFakeUserRepo(), events: newFakeEventRepo(), news: newFakeNewsRepo()}
}

func (s *fakeStore) Users() repository.UserRepository   { return s.users }
func (s *fakeStore) Events() repository.EventRepository { return s.events }
func (s *fakeStore) News() repository.NewsRepository    { return s.news }
func (s *fakeStore) Ping(context.Context) error         { return nil }
func (s *fakeStore) Close(context.Context) error        { return nil }
