package auth

import (
	"testing"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/stretchr/testify/require"
)

var testAccount = &models.Account{
	ID:    "7b4f2a9e-0000-4000-8000-000000000001",
	Email: "a@b.com",
	Roles: []string{models.RoleUser, models.RoleAdmin},
}

func TestGenerateAndParse_RoundTrip(t *testing.T) {
	secret := []byte("k")

	tokenString, err := GenerateToken(testAccount, secret, time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken(tokenString, secret)
	require.NoError(t, err)
	require.Equal(t, testAccount.ID, claims.UserID)
	require.Equal(t, testAccount.Email, claims.Email)
	require.Equal(t, testAccount.Roles, claims.Roles)
	require.True(t, claims.HasRole(models.RoleAdmin))
	require.False(t, claims.HasRole("auditor"))
}

func TestParseToken_Expired(t *testing.T) {
	secret := []byte("k")

	tokenString, err := GenerateToken(testAccount, secret, -time.Minute)
	require.NoError(t, err)

	_, err = ParseToken(tokenString, secret)
	require.ErrorIs(t, err, common.ErrTokenExpired)
}

func TestParseToken_WrongKey(t *testing.T) {
	tokenString, err := GenerateToken(testAccount, []byte("k1"), time.Hour)
	require.NoError(t, err)

	_, err = ParseToken(tokenString, []byte("k2"))
	require.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestParseToken_Garbage(t *testing.T) {
	_, err := ParseToken("not.a.jwt", []byte("k"))
	require.ErrorIs(t, err, common.ErrInvalidToken)
}
