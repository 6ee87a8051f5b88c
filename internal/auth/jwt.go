// Package auth issues and checks the credentials that protect the API.
//
// AUTHENTICATION FLOW OVERVIEW:
//  1. POST /auth/register or /auth/login succeeds
//  2. The server signs a JWT whose subject is the user's id and returns it
//     in the JSON body as {"token": "...", "user": {...}}
//  3. The client sends it back on every protected call:
//     Authorization: Bearer <token>
//  4. RequireAuth validates the token, loads the user and puts the user in
//     the request context; RequireAdmin additionally checks the role
//
// Tokens are stateless. There is no server-side session table and no
// revocation list; a token stays valid until it expires.
//
// JWT STRUCTURE (three base64url parts separated by dots):
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Header:    {"alg":"HS256","typ":"JWT"}
//	- Payload:   {"sub":"<userID>","iss":"alumni-network","iat":..,"exp":..,"jti":"<uuid>"}
//	- Signature: HMAC-SHA256(header+"."+payload, secret)
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenTTL is how long an issued token stays valid.
const TokenTTL = 7 * 24 * time.Hour

const issuer = "alumni-network"

// Sentinel errors returned by Validate. Callers should treat both the same
// way (401 with a generic message); they are distinct only for logging.
var (
	ErrInvalidToken = errors.New("auth: invalid token")
	ErrExpiredToken = errors.New("auth: token expired")
)

// TokenService signs and verifies session tokens with one HMAC secret.
type TokenService struct {
	secret []byte
	now    func() time.Time
}

// NewTokenService creates a TokenService with the given secret.
// Secrets shorter than 16 characters are rejected.
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	return &TokenService{secret: []byte(secret), now: time.Now}, nil
}

// claims is the JWT payload. Everything we need fits in the registered
// claims: Subject carries the user id and ID carries a random jti so two
// tokens issued in the same second still differ.
type claims struct {
	jwt.RegisteredClaims
}

// Generate signs a new token for userID that expires after TokenTTL.
func (s *TokenService) Generate(userID string) (string, error) {
	return s.GenerateWithDuration(userID, TokenTTL)
}

// GenerateWithDuration signs a token with a custom lifetime. A negative
// duration yields an already-expired token, which tests rely on.
func (s *TokenService) GenerateWithDuration(userID string, d time.Duration) (string, error) {
	if userID == "" {
		return "", errors.New("auth: cannot issue a token without a user id")
	}
	now := s.now()

	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

// Validate parses tokenStr and returns the user id in its subject.
//
// VALIDATION CHECKS:
//   - the algorithm is HS256 (rejects "none" and RS/HS confusion)
//   - the signature matches our secret
//   - the issuer is ours
//   - exp is present and in the future
//   - sub is not empty
//
// Any failure returns ErrExpiredToken or ErrInvalidToken (wrapped with the
// library's reason, which is safe to log but not to send to clients).
func (s *TokenService) Validate(tokenStr string) (string, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredToken
		}
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid || c.Subject == "" {
		return "", ErrInvalidToken
	}
	return c.Subject, nil
}
