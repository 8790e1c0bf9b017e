package jwt_test

import (
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nimbusvault/gateway/pkg/infra/jwt"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims gojwt.MapClaims) string {
	t.Helper()
	token := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestVerifier_ValidToken(t *testing.T) {
	verifier := jwt.NewVerifier(testSecret)
	expiry := time.Now().Add(time.Hour)
	token := signToken(t, testSecret, gojwt.MapClaims{
		"sub": "user-42",
		"exp": expiry.Unix(),
	})

	principal, err := verifier.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-42", principal.Subject)
	assert.WithinDuration(t, expiry, principal.ExpiresAt, time.Second)
}

func TestVerifier_MissingToken(t *testing.T) {
	verifier := jwt.NewVerifier(testSecret)

	_, err := verifier.Verify("")
	assert.ErrorIs(t, err, jwt.ErrMissingToken)
}

func TestVerifier_ExpiredToken(t *testing.T) {
	verifier := jwt.NewVerifier(testSecret)
	token := signToken(t, testSecret, gojwt.MapClaims{
		"sub": "user-42",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})

	_, err := verifier.Verify(token)
	assert.ErrorIs(t, err, jwt.ErrExpiredToken)
}

func TestVerifier_WrongSecret(t *testing.T) {
	verifier := jwt.NewVerifier(testSecret)
	token := signToken(t, "other-secret", gojwt.MapClaims{"sub": "user-42"})

	_, err := verifier.Verify(token)
	assert.ErrorIs(t, err, jwt.ErrInvalidToken)
}

func TestVerifier_MalformedToken(t *testing.T) {
	verifier := jwt.NewVerifier(testSecret)

	_, err := verifier.Verify("not-a-jwt")
	assert.ErrorIs(t, err, jwt.ErrInvalidToken)
}

func TestVerifier_RejectsNonHMAC(t *testing.T) {
	verifier := jwt.NewVerifier(testSecret)

	// alg=none style token: header/payload with empty signature.
	token := gojwt.NewWithClaims(gojwt.SigningMethodNone, gojwt.MapClaims{"sub": "user-42"})
	signed, err := token.SignedString(gojwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = verifier.Verify(signed)
	assert.ErrorIs(t, err, jwt.ErrInvalidToken)
}
