package auth

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, secret, sub string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub": sub,
		"exp": time.Now().Add(time.Hour).Unix(),
		"iat": time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestVerifyValidToken(t *testing.T) {
	v := NewVerifier("test-secret")

	sub, err := v.Verify(signedToken(t, "test-secret", "client-42"))
	require.NoError(t, err)
	assert.Equal(t, "client-42", sub)
}

func TestVerifyWrongSecret(t *testing.T) {
	v := NewVerifier("test-secret")

	_, err := v.Verify(signedToken(t, "other-secret", "client-42"))
	assert.Error(t, err)
}

func TestVerifyExpiredToken(t *testing.T) {
	claims := jwt.MapClaims{
		"sub": "client-42",
		"exp": time.Now().Add(-time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	v := NewVerifier("test-secret")
	_, err = v.Verify(signed)
	assert.Error(t, err)
}

func TestVerifyMissingSubject(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	v := NewVerifier("test-secret")
	_, err = v.Verify(signed)
	assert.Error(t, err)
}

func TestVerifyRequest(t *testing.T) {
	v := NewVerifier("test-secret")

	r := httptest.NewRequest("GET", "/ws/robot?token="+signedToken(t, "test-secret", "u1"), nil)
	sub, err := v.VerifyRequest(r)
	require.NoError(t, err)
	assert.Equal(t, "u1", sub)

	r = httptest.NewRequest("GET", "/ws/robot", nil)
	_, err = v.VerifyRequest(r)
	assert.Error(t, err)
}
