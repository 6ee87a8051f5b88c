package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sakif/alumni-network/internal/apperror"
	"github.com/sakif/alumni-network/internal/model"
)

// contextKey is unexported so no other package can read or overwrite the
// values this package stores in a request context.
type contextKey string

const userKey contextKey = "user"

const bearerPrefix = "Bearer "

// Messages returned by the gate. They are deliberately generic: a client
// can't tell a forged token from an expired one.
const (
	msgAuthRequired  = "Authentication required"
	msgInvalidToken  = "Invalid token"
	msgUserNotFound  = "User not found"
	msgAdminRequired = "Admin access required"
)

// UserLookup is the slice of the user repository the gate needs.
type UserLookup interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
}

// Gate builds the authenticated and admin middlewares.
//
// Every request re-validates the token and reloads the user; nothing is
// cached, so a deleted user or a demoted admin loses access immediately.
type Gate struct {
	tokens *TokenService
	users  UserLookup
	logger *slog.Logger
}

func NewGate(tokens *TokenService, users UserLookup, logger *slog.Logger) *Gate {
	return &Gate{tokens: tokens, users: users, logger: logger}
}

// RequireAuth rejects the request with 401 unless it carries
// "Authorization: Bearer <valid token>" for a user that still exists. On
// success the *model.User is available through UserFromContext.
func (g *Gate) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := g.authenticate(w, r)
		if !ok {
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

// RequireAdmin runs the RequireAuth checks and then answers 403 unless
// the user's role is admin.
func (g *Gate) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := g.authenticate(w, r)
		if !ok {
			return
		}
		if !user.IsAdmin() {
			g.logger.Warn("admin route refused",
				slog.String("userID", user.ID),
				slog.String("path", r.URL.Path),
			)
			writeGateError(w, http.StatusForbidden, msgAdminRequired)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

// authenticate writes the 401 response itself and reports ok=false when
// the request must stop.
func (g *Gate) authenticate(w http.ResponseWriter, r *http.Request) (*model.User, bool) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, bearerPrefix) {
		writeGateError(w, http.StatusUnauthorized, msgAuthRequired)
		return nil, false
	}
	raw := strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
	if raw == "" {
		writeGateError(w, http.StatusUnauthorized, msgAuthRequired)
		return nil, false
	}

	userID, err := g.tokens.Validate(raw)
	if err != nil {
		g.logger.Debug("token rejected", slog.String("error", err.Error()))
		writeGateError(w, http.StatusUnauthorized, msgInvalidToken)
		return nil, false
	}

	user, err := g.users.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			writeGateError(w, http.StatusUnauthorized, msgUserNotFound)
			return nil, false
		}
		g.logger.Error("loading user for token",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
		writeGateError(w, http.StatusInternalServerError, "Internal server error")
		return nil, false
	}
	return user, true
}

// WithUser returns a copy of ctx carrying user.
func WithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFromContext returns the user stored by RequireAuth/RequireAdmin.
func UserFromContext(ctx context.Context) (*model.User, bool) {
	u, ok := ctx.Value(userKey).(*model.User)
	return u, ok && u != nil
}

// writeGateError sends the {"message": ...} body every API error uses.
// It lives here rather than in the handler package so the gate has no
// dependency on it.
func writeGateError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": message})
}
