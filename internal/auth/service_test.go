package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vaultpay/vaultpay/internal/auth"
	"github.com/vaultpay/vaultpay/internal/config"
	"github.com/vaultpay/vaultpay/internal/identity"
)

func TestIssueAndVerify(t *testing.T) {
	svc := auth.NewService(config.Config{JWTSecret: "test-secret", AccessTokenTTL: time.Hour})
	user := identity.User{ID: "user-1", AccountID: "acct-1"}

	token, err := svc.Issue(user)
	require.NoError(t, err)
	require.NotEmpty(t, token.AccessToken)
	require.EqualValues(t, 3600, token.ExpiresIn)

	claims, err := svc.Verify(token.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.Subject)
	require.Equal(t, "acct-1", claims.AccountID)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	issuer := auth.NewService(config.Config{JWTSecret: "secret-a", AccessTokenTTL: time.Hour})
	verifier := auth.NewService(config.Config{JWTSecret: "secret-b", AccessTokenTTL: time.Hour})

	token, err := issuer.Issue(identity.User{ID: "user-1", AccountID: "acct-1"})
	require.NoError(t, err)

	_, err = verifier.Verify(token.AccessToken)
	require.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestVerifyRejectsExpired(t *testing.T) {
	svc := auth.NewService(config.Config{JWTSecret: "test-secret", AccessTokenTTL: -time.Minute})

	token, err := svc.Issue(identity.User{ID: "user-1", AccountID: "acct-1"})
	require.NoError(t, err)

	_, err = svc.Verify(token.AccessToken)
	require.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	svc := auth.NewService(config.Config{JWTSecret: "test-secret", AccessTokenTTL: time.Hour})
	_, err := svc.Verify("not.a.token")
	require.ErrorIs(t, err, auth.ErrInvalidToken)
}
