package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/alumni-network/internal/apperror"
	"github.com/sakif/alumni-network/internal/model"
	"github.com/sakif/alumni-network/internal/repository"
)

// =========================================================================
// AlumniService
// =========================================================================

func seedAlumni(t *testing.T, repo *fakeUserRepo) (alumni, admin *model.User) {
	t.Helper()
	alumni = &model.User{Name: "Rohan", Email: "rohan@example.com", PasswordHash: "hash", BatchYear: 2008, Role: model.RoleAlumni}
	admin = &model.User{Name: "Admin", Email: "admin@example.com", PasswordHash: "hash", BatchYear: 2000, Role: model.RoleAdmin}
	require.NoError(t, repo.Create(context.Background(), alumni))
	require.NoError(t, repo.Create(context.Background(), admin))
	return alumni, admin
}

func TestAlumniList_ExcludesAdmins(t *testing.T) {
	repo := newFakeUserRepo()
	seedAlumni(t, repo)
	svc := NewAlumniService(repo, discardLogger())

	users, err := svc.List(context.Background(), repository.UserFilter{Role: model.RoleAdmin})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "Rohan", users[0].Name)
}

func TestAlumniUpdateProfile(t *testing.T) {
	repo := newFakeUserRepo()
	alumni, _ := seedAlumni(t, repo)
	svc := NewAlumniService(repo, discardLogger())

	address := "Pune"
	upload := &Upload{ContentType: "image/png", Data: []byte{0x89, 'P', 'N', 'G'}}
	u, err := svc.UpdateProfile(context.Background(), alumni.ID, model.UserPatch{Address: &address}, upload)
	require.NoError(t, err)

	assert.Equal(t, "Pune", u.Address)
	assert.Equal(t, "data:image/png;base64,iVBORw==", u.ProfilePicture)
	assert.Equal(t, "hash", repo.users[alumni.ID].PasswordHash)
	assert.Equal(t, model.RoleAlumni, repo.users[alumni.ID].Role)
}

func TestAlumniUpdateProfile_RejectsUploads(t *testing.T) {
	repo := newFakeUserRepo()
	alumni, _ := seedAlumni(t, repo)
	svc := NewAlumniService(repo, discardLogger())

	tests := []struct {
		name    string
		upload  *Upload
		wantMsg string
	}{
		{"not an image", &Upload{ContentType: "application/pdf", Data: []byte("%PDF")}, "Only images are allowed"},
		{"too large", &Upload{ContentType: "image/jpeg", Data: make([]byte, MaxPictureBytes+1)}, "File too large"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.UpdateProfile(context.Background(), alumni.ID, model.UserPatch{}, tt.upload)
			require.ErrorIs(t, err, apperror.ErrValidation)
			assert.Equal(t, tt.wantMsg, err.Error())
			assert.Empty(t, repo.users[alumni.ID].ProfilePicture)
		})
	}
}

func TestAlumniUpdateProfile_UnknownUser(t *testing.T) {
	svc := NewAlumniService(newFakeUserRepo(), discardLogger())

	_, err := svc.UpdateProfile(context.Background(), "ghost", model.UserPatch{}, nil)

	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestUploadDataURL(t *testing.T) {
	u := Upload{ContentType: "image/gif", Data: []byte("GIF89a")}
	assert.True(t, strings.HasPrefix(u.DataURL(), "data:image/gif;base64,"))
	assert.Equal(t, "data:image/gif;base64,R0lGODlh", u.DataURL())
}

// =========================================================================
// EventService
// =========================================================================

func TestEventService_CreateAndRegister(t *testing.T) {
	repo := newFakeEventRepo()
	svc := NewEventService(repo, discardLogger())
	ctx := context.Background()

	e, err := svc.Create(ctx, "admin-1", EventInput{
		Title:       "Meet",
		Description: "Reunion",
		Date:        time.Now().Add(24 * time.Hour),
		Location:    "Campus",
	})
	require.NoError(t, err)
	assert.Equal(t, "admin-1", e.CreatedBy)
	assert.Empty(t, e.RegisteredUsers)

	got, err := svc.Register(ctx, e.ID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"user-1"}, got.RegisteredUsers)

	_, err = svc.Register(ctx, e.ID, "user-1")
	require.ErrorIs(t, err, apperror.ErrAlreadyRegistered)
	assert.Equal(t, "Already registered for this event", err.Error())

	stored, _ := repo.GetByID(ctx, e.ID)
	assert.Len(t, stored.RegisteredUsers, 1)

	_, err = svc.Register(ctx, "missing", "user-1")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestEventService_UpdateDelete(t *testing.T) {
	repo := newFakeEventRepo()
	svc := NewEventService(repo, discardLogger())
	ctx := context.Background()
	e, err := svc.Create(ctx, "admin-1", EventInput{Title: "Old", Description: "d", Date: time.Now(), Location: "l"})
	require.NoError(t, err)

	title := "New"
	updated, err := svc.Update(ctx, e.ID, model.EventPatch{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "New", updated.Title)

	require.NoError(t, svc.Delete(ctx, e.ID))
	assert.ErrorIs(t, svc.Delete(ctx, e.ID), apperror.ErrNotFound)
	_, err = svc.Update(ctx, e.ID, model.EventPatch{Title: &title})
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestEventService_ListError(t *testing.T) {
	repo := newFakeEventRepo()
	repo.err = errStoreDown
	svc := NewEventService(repo, discardLogger())

	_, err := svc.List(context.Background(), repository.EventFilter{})

	assert.ErrorIs(t, err, errStoreDown)
}

// =========================================================================
// NewsService
// =========================================================================

func TestNewsService(t *testing.T) {
	repo := newFakeNewsRepo()
	svc := NewNewsService(repo, discardLogger())
	ctx := context.Background()

	first, err := svc.Create(ctx, "admin-1", NewsInput{Title: "First", Content: "c"})
	require.NoError(t, err)
	assert.Equal(t, model.CategoryGeneral, first.Category)
	assert.Equal(t, "admin-1", first.Author)

	_, err = svc.Create(ctx, "admin-1", NewsInput{Title: "Second", Content: "c", Category: model.CategoryAchievement})
	require.NoError(t, err)

	items, err := svc.List(ctx, repository.NewsFilter{})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Second", items[0].Title)

	content := "edited"
	edited, err := svc.Update(ctx, first.ID, model.NewsPatch{Content: &content})
	require.NoError(t, err)
	assert.Equal(t, "edited", edited.Content)

	require.NoError(t, svc.Delete(ctx, first.ID))
	assert.ErrorIs(t, svc.Delete(ctx, first.ID), apperror.ErrNotFound)
}
