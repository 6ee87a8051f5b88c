package handler

import (
	"log/slog"
	"net/http"

	"github.com/rs/xid"

	"github.com/sakif/alumni-network/internal/apperror"
	"github.com/sakif/alumni-network/internal/auth"
	"github.com/sakif/alumni-network/internal/model"
	"github.com/sakif/alumni-network/internal/service"
)

const stateCookie = "oauth_state"

// AuthHandler serves sign-up, sign-in and the optional Google flow.
//
// HANDLER RESPONSIBILITIES:
//   - HandleRegister       → create an alumni account, return {token, user}
//   - HandleLogin          → check credentials, return {token, user}
//   - HandleMe             → return the caller's own profile
//   - HandleGoogleLogin    → redirect the browser to Google
//   - HandleGoogleCallback → verify state, exchange the code, return {token, user}
//
// google is nil when Google sign-in is not configured; the server then
// never registers the two Google routes.
type AuthHandler struct {
	service *service.AuthService
	google  *auth.GoogleProvider
	logger  *slog.Logger
}

func NewAuthHandler(svc *service.AuthService, google *auth.GoogleProvider, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{service: svc, google: google, logger: logger}
}

// HandleRegister creates an alumni account.
//
// HTTP: POST /auth/register
// Body: {"name", "email", "password", "batchYear", "gender"}
// 201 {token, user} | 400 validation or duplicate email
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	res, err := h.service.Register(r.Context(), req.input())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, res)
}

// registerRequest accepts batchYear as a number or a numeric string.
type registerRequest struct {
	Name      string       `json:"name"`
	Email     string       `json:"email"`
	Password  string       `json:"password"`
	BatchYear flexInt      `json:"batchYear"`
	Gender    model.Gender `json:"gender"`
}

func (req registerRequest) input() service.RegisterInput {
	return service.RegisterInput{
		Name:      req.Name,
		Email:     req.Email,
		Password:  req.Password,
		BatchYear: int(req.BatchYear),
		Gender:    req.Gender,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleLogin signs a user in.
//
// HTTP: POST /auth/login
// 200 {token, user} | 401 {"message": "Invalid credentials"}
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	res, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// HandleMe returns the authenticated user. The gate has already loaded the
// user, so this is a context read.
//
// HTTP: GET /auth/me (RequireAuth)
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("Authentication required"))
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleGoogleLogin redirects the browser to Google's consent page.
//
// HTTP: GET /auth/google/login
//
// CSRF PROTECTION VIA STATE:
// A random state value goes into a short-lived HttpOnly cookie and into
// the authorization URL. The callback only proceeds when both match.
func (h *AuthHandler) HandleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.google.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGoogleCallback completes the Google flow for an existing account.
//
// HTTP: GET /auth/google/callback?code=xxx&state=yyy
//
// FLOW:
//  1. Validate the state parameter against the cookie
//  2. Exchange the code for the Google profile
//  3. Look the email up; unknown emails get 401 Invalid credentials
//  4. Return {token, user} exactly like a password login
func (h *AuthHandler) HandleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" || r.URL.Query().Get("state") != cookie.Value {
		h.logger.Warn("google callback: state mismatch")
		writeError(w, apperror.ValidationFailed("state", "Invalid OAuth state"))
		return
	}

	// single use
	http.SetCookie(w, &http.Cookie{
		Name:   stateCookie,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("google callback: authorization denied", slog.String("error", errParam))
		writeError(w, apperror.Unauthorized("Authorization denied"))
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, apperror.ValidationFailed("code", "Missing OAuth code"))
		return
	}

	profile, err := h.google.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("google callback: exchange failed", slog.String("error", err.Error()))
		writeError(w, apperror.Unauthorized("Authentication failed"))
		return
	}

	res, err := h.service.LoginWithGoogle(r.Context(), profile)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}
