// Package service contains the business rules of the alumni network.
//
// THE THREE LAYERS:
//
//	Handler (HTTP)      → decodes requests, writes responses
//	Service (rules)     → checks permissions and inputs, orchestrates
//	Repository (data)   → reads and writes one backend
//
// Services take repository interfaces, never a concrete store, so the same
// code runs on MongoDB, on SQLite and against the in-memory fakes in the
// tests. They return *apperror.AppError for anything the client caused and
// wrapped errors for everything else; the handler layer turns both into
// HTTP responses.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sakif/alumni-network/internal/apperror"
	"github.com/sakif/alumni-network/internal/auth"
	"github.com/sakif/alumni-network/internal/model"
	"github.com/sakif/alumni-network/internal/repository"
	"github.com/sakif/alumni-network/internal/validation"
)

// Messages the API has always used for these cases. Login failures share
// one message so a caller can't probe which emails are registered.
const (
	msgInvalidCredentials = "Invalid credentials"
	msgEmailRegistered    = "Email already registered"
)

// AuthService handles sign-up, sign-in and the current-user lookup.
//
// DEPENDENCIES (injected via NewAuthService):
//   - users      repository.UserRepository  → read/write user records
//   - tokens     *auth.TokenService         → issue JWTs
//   - passwords  *auth.PasswordService      → bcrypt hashing
//   - validate   *validation.Validator      → raw password rules
//   - logger     *slog.Logger               → structured logging
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	validate  *validation.Validator
	logger    *slog.Logger
}

func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	validate *validation.Validator,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		validate:  validate,
		logger:    logger,
	}
}

// AuthResult bundles the user and a freshly issued token. It serialises as
// the {token, user} body the login and register endpoints return.
type AuthResult struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

// RegisterInput is the self-registration form. Role is not part of it:
// every self-registered account is an alumnus.
type RegisterInput struct {
	Name      string       `json:"name"`
	Email     string       `json:"email"`
	Password  string       `json:"password" validate:"required,min=6,max=72"`
	BatchYear int          `json:"batchYear"`
	Gender    model.Gender `json:"gender"`
}

// Register creates an alumni account and signs it in.
//
// ORDER OF CHECKS:
//  1. An email that is already taken is rejected first, with the message
//     "Email already registered".
//  2. The raw password and the user fields are validated together so the
//     client sees every problem at once.
//  3. The password is hashed and the user stored. A concurrent sign-up
//     with the same email still loses at the unique index.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	email := model.NormalizeEmail(in.Email)

	_, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, emailTaken()
	case !errors.Is(err, apperror.ErrNotFound):
		return nil, fmt.Errorf("service/auth: checking email: %w", err)
	}

	user := &model.User{
		Name:      in.Name,
		Email:     email,
		Gender:    in.Gender,
		BatchYear: in.BatchYear,
		Role:      model.RoleAlumni,
	}
	user.Normalize()

	// PasswordHash is filled after hashing; a placeholder keeps its
	// required rule from reporting a missing password twice.
	candidate := *user
	candidate.PasswordHash = "pending"
	if err := mergeValidation(s.validate.Struct(in), s.validate.Struct(&candidate)); err != nil {
		return nil, err
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return nil, apperror.ValidationFailed("password", "Password must be 72 bytes or fewer")
		}
		return nil, fmt.Errorf("service/auth: hashing password: %w", err)
	}
	user.PasswordHash = hash

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrDuplicate) {
			return nil, emailTaken()
		}
		return nil, err
	}

	s.logger.Info("alumni registered",
		slog.String("userID", user.ID),
		slog.Int("batchYear", user.BatchYear),
	)
	return s.issue(user)
}

// Login checks email and password. Unknown email and wrong password give
// the same Unauthorized error.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthorized(msgInvalidCredentials)
		}
		return nil, fmt.Errorf("service/auth: looking up user: %w", err)
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.Debug("login rejected", slog.String("userID", user.ID))
			return nil, apperror.Unauthorized(msgInvalidCredentials)
		}
		return nil, fmt.Errorf("service/auth: verifying password: %w", err)
	}

	return s.issue(user)
}

// LoginWithGoogle signs in the alumnus whose email Google vouched for.
// It never creates accounts.
func (s *AuthService) LoginWithGoogle(ctx context.Context, gu *auth.GoogleUser) (*AuthResult, error) {
	if gu == nil {
		return nil, fmt.Errorf("service/auth: Google user must not be nil")
	}

	user, err := s.users.GetByEmail(ctx, gu.Email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			s.logger.Info("Google sign-in for unknown email rejected")
			return nil, apperror.Unauthorized(msgInvalidCredentials)
		}
		return nil, fmt.Errorf("service/auth: looking up Google user: %w", err)
	}

	s.logger.Info("user authenticated via Google", slog.String("userID", user.ID))
	return s.issue(user)
}

// Me returns the user behind an already-authenticated request.
func (s *AuthService) Me(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, fmt.Errorf("service/auth: user ID must not be empty")
	}
	return s.users.GetByID(ctx, id)
}

func (s *AuthService) issue(user *model.User) (*AuthResult, error) {
	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}
	return &AuthResult{Token: token, User: user}, nil
}

func emailTaken() *apperror.AppError {
	return &apperror.AppError{Err: apperror.ErrDuplicate, Message: msgEmailRegistered, Field: "email"}
}

// mergeValidation folds several validation results into one error listing
// every message. A non-validation error is returned as is.
func mergeValidation(errs ...error) error {
	var msgs []string
	for _, err := range errs {
		if err == nil {
			continue
		}
		var appErr *apperror.AppError
		if !errors.As(err, &appErr) || !errors.Is(err, apperror.ErrValidation) {
			return err
		}
		msgs = append(msgs, appErr.Details...)
	}
	if len(msgs) == 0 {
		return nil
	}
	return apperror.Validation(msgs)
}
