package identity

import (
	"errors"
	"time"
)

var (
	// ErrUnauthenticated indicates the supplied credentials are invalid.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrDuplicateEmail indicates the email is already registered.
	ErrDuplicateEmail = errors.New("email already registered")

	// ErrNotFound indicates the user does not exist.
	ErrNotFound = errors.New("user not found")
)

// User is a registered wallet owner. AccountID links to the stored-value
// account opened at registration.
type User struct {
	ID           string
	Email        string
	AccountID    string
	PasswordHash []byte
	CreatedAt    time.Time
}

// Credentials is the register/login request.
type Credentials struct {
	Email    string
	Password string
}
