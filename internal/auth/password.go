package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Password length limits. bcrypt only looks at the first 72 bytes, so
// longer inputs are rejected instead of silently truncated.
const (
	MinPasswordLength = 6
	MaxPasswordBytes  = 72
)

// defaultCost is the bcrypt work factor used in production (2^12 rounds).
const defaultCost = 12

var (
	// ErrPasswordMismatch means the hash is well-formed but the password
	// does not match it.
	ErrPasswordMismatch = errors.New("auth: invalid password")
	ErrPasswordTooLong  = fmt.Errorf("auth: password must be %d bytes or fewer", MaxPasswordBytes)
)

// PasswordService hashes and verifies passwords with bcrypt.
//
// The hash bcrypt produces is self-describing:
//
//	$2a$12$<22-char salt><31-char hash>
//
// so only that one string is stored; the salt and cost travel inside it.
// Raw passwords are never stored and never logged.
type PasswordService struct {
	cost int
}

// NewPasswordService returns a PasswordService with cost 12.
func NewPasswordService() *PasswordService {
	return &PasswordService{cost: defaultCost}
}

// NewPasswordServiceForTest returns a PasswordService with the given cost.
// Tests in other packages pass bcrypt.MinCost (4) to keep hashing fast.
// Never use it in production.
func NewPasswordServiceForTest(cost int) *PasswordService {
	return &PasswordService{cost: cost}
}

// Hash returns the bcrypt hash of raw.
func (p *PasswordService) Hash(raw string) (string, error) {
	if len(raw) > MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(raw), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}
	return string(hashed), nil
}

// Verify returns nil when raw matches hash. The comparison inside bcrypt
// is constant-time.
func (p *PasswordService) Verify(hash, raw string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(raw))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrPasswordMismatch
		}
		return fmt.Errorf("auth: comparing password hash: %w", err)
	}
	return nil
}
