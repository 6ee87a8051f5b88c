package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/alumni-network/internal/apperror"
	"github.com/sakif/alumni-network/internal/model"
	"github.com/sakif/alumni-network/internal/repository"
)

// MaxPictureBytes caps an uploaded profile picture.
const MaxPictureBytes = 5 << 20

// Upload is a profile picture received with a profile update.
type Upload struct {
	ContentType string
	Data        []byte
}

// DataURL encodes the upload inline. Pictures are stored on the user
// document itself rather than in separate file storage.
func (u Upload) DataURL() string {
	return "data:" + u.ContentType + ";base64," + base64.StdEncoding.EncodeToString(u.Data)
}

// AlumniService serves the directory and self-service profile edits.
type AlumniService struct {
	users  repository.UserRepository
	logger *slog.Logger
}

func NewAlumniService(users repository.UserRepository, logger *slog.Logger) *AlumniService {
	return &AlumniService{users: users, logger: logger}
}

// List returns alumni only, whatever role the filter asks for. Admins are
// not part of the public directory.
func (s *AlumniService) List(ctx context.Context, filter repository.UserFilter) ([]model.User, error) {
	filter.Role = model.RoleAlumni
	users, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("service/alumni: listing: %w", err)
	}
	return users, nil
}

// UpdateProfile applies patch, and upload when present, to the caller's own
// profile. UserPatch has no password or role field, so neither can change
// here.
func (s *AlumniService) UpdateProfile(ctx context.Context, userID string, patch model.UserPatch, upload *Upload) (*model.User, error) {
	if upload != nil {
		if !strings.HasPrefix(upload.ContentType, "image/") {
			return nil, apperror.ValidationFailed("profilePicture", "Only images are allowed")
		}
		if len(upload.Data) > MaxPictureBytes {
			return nil, apperror.ValidationFailed("profilePicture", "File too large")
		}
		picture := upload.DataURL()
		patch.ProfilePicture = &picture
	}

	user, err := s.users.UpdateByID(ctx, userID, patch)
	if err != nil {
		return nil, err
	}

	s.logger.Info("profile updated",
		slog.String("userID", userID),
		slog.Bool("picture", upload != nil),
	)
	return user, nil
}
