package jwtutil

import (
	"testing"
	"time"
	"validation-service/pkg/config"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.JWTConfig {
	return &config.JWTConfig{SigningKey: "test-secret", ExpirationMinutes: 30}
}

func TestGenerateAndValidateToken(t *testing.T) {
	util := NewJWTUtil(testConfig())

	token, err := util.GenerateToken("founder@example.com")
	require.NoError(t, err)

	claims, err := util.ValidateToken(token)
	require.NoError(t, err)
	require.Equal(t, "founder@example.com", claims.Email)

	// Expiry should land 30 minutes out, give or take scheduling slack
	remaining := time.Until(claims.ExpiresAt.Time)
	require.Greater(t, remaining, 29*time.Minute)
	require.LessOrEqual(t, remaining, 30*time.Minute)
}

func TestValidateToken_Expired(t *testing.T) {
	util := NewJWTUtil(testConfig())

	// Sign a token that expired a minute ago with the same key
	claims := FounderClaims{
		Email: "founder@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-1 * time.Minute)),
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-31 * time.Minute)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = util.ValidateToken(token)
	require.Error(t, err)
}

func TestValidateToken_WrongKey(t *testing.T) {
	issuer := NewJWTUtil(&config.JWTConfig{SigningKey: "other-secret", ExpirationMinutes: 30})
	verifier := NewJWTUtil(testConfig())

	token, err := issuer.GenerateToken("founder@example.com")
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	require.Error(t, err)
}

func TestValidateToken_MissingSubject(t *testing.T) {
	util := NewJWTUtil(testConfig())

	claims := FounderClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(30 * time.Minute)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = util.ValidateToken(token)
	require.Error(t, err)
}

func TestValidateToken_RejectsNonHMAC(t *testing.T) {
	util := NewJWTUtil(testConfig())

	// alg=none style tokens must never validate
	token := jwt.NewWithClaims(jwt.SigningMethodNone, FounderClaims{Email: "founder@example.com"})
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = util.ValidateToken(signed)
	require.Error(t, err)
}
