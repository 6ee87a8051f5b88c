package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/sakif/alumni-network/internal/auth"
	"github.com/sakif/alumni-network/internal/handler"
	"github.com/sakif/alumni-network/internal/model"
	"github.com/sakif/alumni-network/internal/repository/sqlite"
	"github.com/sakif/alumni-network/internal/service"
	"github.com/sakif/alumni-network/internal/validation"
)

// testEnv is the full handler stack on an in-memory SQLite store. Only the
// router assembly is repeated here; every handler, service and repository
// is the production one.
type testEnv struct {
	router    http.Handler
	db        *sqlite.DB
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	users     int
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	// Only log errors during tests to keep output clean
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	v := validation.New()
	db, err := sqlite.New(":memory:", v)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close(context.Background()) })

	tokens, err := auth.NewTokenService("handler-test-secret-0123456789")
	require.NoError(t, err)
	passwords := auth.NewPasswordServiceForTest(4)

	gate := auth.NewGate(tokens, db.Users(), logger)
	authH := handler.NewAuthHandler(service.NewAuthService(db.Users(), tokens, passwords, v, logger), nil, logger)
	alumniH := handler.NewAlumniHandler(service.NewAlumniService(db.Users(), logger), logger)
	eventH := handler.NewEventHandler(service.NewEventService(db.Events(), logger), logger)
	newsH := handler.NewNewsHandler(service.NewNewsService(db.News(), logger), logger)
	healthH := handler.NewHealthHandler(db, logger)

	r := chi.NewRouter()
	r.Get("/health", healthH.HandleHealth)
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", authH.HandleRegister)
		r.Post("/login", authH.HandleLogin)
		r.With(gate.RequireAuth).Get("/me", authH.HandleMe)
	})
	r.Route("/alumni", func(r chi.Router) {
		r.Get("/", alumniH.HandleList)
		r.With(gate.RequireAuth).Put("/profile", alumniH.HandleUpdateProfile)
	})
	r.Route("/events", func(r chi.Router) {
		r.Get("/", eventH.HandleList)
		r.With(gate.RequireAdmin).Post("/", eventH.HandleCreate)
		r.With(gate.RequireAdmin).Put("/{id}", eventH.HandleUpdate)
		r.With(gate.RequireAdmin).Delete("/{id}", eventH.HandleDelete)
		r.With(gate.RequireAuth).Post("/{id}/register", eventH.HandleRegister)
	})
	r.Route("/news", func(r chi.Router) {
		r.Get("/", newsH.HandleList)
		r.With(gate.RequireAdmin).Post("/", newsH.HandleCreate)
		r.With(gate.RequireAdmin).Put("/{id}", newsH.HandleUpdate)
		r.With(gate.RequireAdmin).Delete("/{id}", newsH.HandleDelete)
	})

	return &testEnv{router: r, db: db, tokens: tokens, passwords: passwords}
}

// do sends a request through the router. body is JSON-encoded unless it is
// already an io.Reader.
func (e *testEnv) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case io.Reader:
		reader = b
	default:
		buf, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(buf)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

// createUser stores a user with the given role directly in the database
// and returns it with a valid token.
func (e *testEnv) createUser(t *testing.T, role model.Role) (*model.User, string) {
	t.Helper()
	e.users++

	hash, err := e.passwords.Hash("secret123")
	require.NoError(t, err)
	u := &model.User{
		Name:         fmt.Sprintf("User %d", e.users),
		Email:        fmt.Sprintf("user%d@example.com", e.users),
		PasswordHash: hash,
		Gender:       model.GenderFemale,
		BatchYear:    2010,
		Role:         role,
	}
	require.NoError(t, e.db.Users().Create(context.Background(), u))

	token, err := e.tokens.Generate(u.ID)
	require.NoError(t, err)
	return u, token
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), "body: %s", rec.Body.String())
	return v
}

// errorBody mirrors handler.ErrorResponse for decoding.
type errorBody struct {
	Message string   `json:"message"`
	Errors  []string `json:"errors"`
	Field   string   `json:"field"`
}
