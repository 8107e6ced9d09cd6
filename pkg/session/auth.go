package session

import (
	"crypto/subtle"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost is the cost used by HashPassword.
const DefaultBcryptCost = 10

const (
	MinPasswordLength = 8
	// MaxPasswordLength is bcrypt's input limit; longer input would be
	// silently truncated.
	MaxPasswordLength = 72
)

var (
	ErrPasswordTooShort = errors.New("password must be at least 8 characters")
	ErrPasswordTooLong  = errors.New("password must be at most 72 characters")
	ErrNoCredential     = errors.New("no credential configured")
	ErrInvalidHash      = errors.New("password hash is not a bcrypt hash")
)

// Authenticator checks a username and password against the single
// configured credential. It is safe for concurrent use.
type Authenticator struct {
	username string
	password string
	hash     []byte
}

// NewAuthenticator builds an Authenticator. When passwordHash is set it is
// used and password is ignored.
func NewAuthenticator(username, password, passwordHash string) (*Authenticator, error) {
	if username == "" {
		return nil, ErrNoCredential
	}
	a := &Authenticator{username: username}

	passwordHash = strings.TrimSpace(passwordHash)
	if passwordHash != "" {
		if _, err := bcrypt.Cost([]byte(passwordHash)); err != nil {
			return nil, ErrInvalidHash
		}
		a.hash = []byte(passwordHash)
		return a, nil
	}
	if password == "" {
		return nil, ErrNoCredential
	}
	a.password = password
	return a, nil
}

// Username returns the configured user name.
func (a *Authenticator) Username() string { return a.username }

// UsesHash reports whether a bcrypt hash backs the credential.
func (a *Authenticator) UsesHash() bool { return a.hash != nil }

// Authenticate reports whether username and password match.
func (a *Authenticator) Authenticate(username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.username)) == 1

	var passOK bool
	if a.hash != nil {
		passOK = bcrypt.CompareHashAndPassword(a.hash, []byte(password)) == nil
	} else {
		passOK = subtle.ConstantTimeCompare([]byte(password), []byte(a.password)) == 1
	}
	return userOK && passOK
}

// ValidatePassword enforces the length bounds of HashPassword.
func ValidatePassword(password string) error {
	switch {
	case len(password) < MinPasswordLength:
		return ErrPasswordTooShort
	case len(password) > MaxPasswordLength:
		return ErrPasswordTooLong
	}
	return nil
}

// HashPassword returns a bcrypt hash suitable for auth.password_hash.
func HashPassword(password string) (string, error) {
	if err := ValidatePassword(password); err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), DefaultBcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
