package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIssuer(t *testing.T) *Issuer {
	t.Helper()
	issuer, err := NewIssuer("test-secret", "HS256", 30*time.Minute, 7*24*time.Hour)
	require.NoError(t, err)
	return issuer
}

func TestNewIssuer(t *testing.T) {
	_, err := NewIssuer("", "HS256", time.Minute, time.Hour)
	assert.Error(t, err, "empty secret should be rejected")

	_, err = NewIssuer("secret", "RS256", time.Minute, time.Hour)
	assert.Error(t, err, "asymmetric algorithms are not supported")

	for _, alg := range []string{"HS256", "HS384", "HS512"} {
		_, err := NewIssuer("secret", alg, time.Minute, time.Hour)
		assert.NoError(t, err)
	}
}

func TestIssueAndVerifyAccess(t *testing.T) {
	issuer := newTestIssuer(t)

	tokenStr, err := issuer.IssueAccess(42, "house@hospital.test")
	require.NoError(t, err)

	claims, err := issuer.Verify(tokenStr, TypeAccess)
	require.NoError(t, err)

	userID, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, uint(42), userID)
	assert.Equal(t, "house@hospital.test", claims.Email)
	assert.Equal(t, TypeAccess, claims.TokenType)
}

func TestVerifyRejectsWrongType(t *testing.T) {
	issuer := newTestIssuer(t)

	refresh, err := issuer.IssueRefresh(1, "a@b.test")
	require.NoError(t, err)

	_, err = issuer.Verify(refresh, TypeAccess)
	assert.ErrorIs(t, err, ErrWrongTokenType)

	access, err := issuer.IssueAccess(1, "a@b.test")
	require.NoError(t, err)

	_, err = issuer.Verify(access, TypeRefresh)
	assert.ErrorIs(t, err, ErrWrongTokenType)
}

func TestVerifyRejectsForeignSignature(t *testing.T) {
	issuer := newTestIssuer(t)

	other, err := NewIssuer("another-secret", "HS256", time.Minute, time.Hour)
	require.NoError(t, err)

	tokenStr, err := other.IssueAccess(1, "a@b.test")
	require.NoError(t, err)

	_, err = issuer.Verify(tokenStr, TypeAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = issuer.Verify("not-a-token", TypeAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsExpired(t *testing.T) {
	issuer, err := NewIssuer("test-secret", "HS256", -time.Minute, -time.Minute)
	require.NoError(t, err)

	tokenStr, err := issuer.IssueAccess(1, "a@b.test")
	require.NoError(t, err)

	_, err = issuer.Verify(tokenStr, TypeAccess)
	assert.ErrorIs(t, err, ErrExpiredToken)
}
