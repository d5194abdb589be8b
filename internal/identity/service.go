package identity

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/vaultpay/vaultpay/internal/account"
)

// Service manages identity lifecycle. Registration opens the user's
// stored-value account with zero balance.
type Service struct {
	repo     Repository
	accounts *account.Service
}

// NewService creates a new identity service.
func NewService(repo Repository, accounts *account.Service) *Service {
	return &Service{repo: repo, accounts: accounts}
}

// Register creates a user with a hashed password and a fresh account.
func (s *Service) Register(ctx context.Context, creds Credentials, dailyLimit int64) (User, error) {
	email := strings.ToLower(strings.TrimSpace(creds.Email))
	if email == "" || !strings.Contains(email, "@") {
		return User{}, errors.New("valid email is required")
	}
	if len(creds.Password) < 8 {
		return User{}, errors.New("password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(creds.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}

	acct, err := s.accounts.Create(ctx, account.CreateInput{DailyLimit: dailyLimit, MFAEnabled: true})
	if err != nil {
		return User{}, err
	}

	user := User{
		ID:           uuid.New().String(),
		Email:        email,
		AccountID:    acct.ID,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return User{}, err
	}
	return user, nil
}

// Authenticate verifies credentials. Failures collapse to
// ErrUnauthenticated so callers cannot probe which emails exist.
func (s *Service) Authenticate(ctx context.Context, creds Credentials) (User, error) {
	user, err := s.repo.FindByEmail(ctx, creds.Email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, ErrUnauthenticated
		}
		return User{}, err
	}
	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(creds.Password)); err != nil {
		return User{}, ErrUnauthenticated
	}
	return user, nil
}
