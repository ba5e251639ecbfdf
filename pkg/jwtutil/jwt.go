package jwtutil

import (
	"errors"
	"fmt"
	"time"
	"validation-service/pkg/config"

	"github.com/golang-jwt/jwt/v4"
)

// FounderClaims represents the JWT claims for founder authentication
type FounderClaims struct {
	Email string `json:"sub"`
	jwt.RegisteredClaims
}

// JWTUtil issues and verifies session tokens with an injected configuration
type JWTUtil struct {
	config *config.JWTConfig
}

// NewJWTUtil creates a new JWT utility with the given configuration
func NewJWTUtil(cfg *config.JWTConfig) *JWTUtil {
	return &JWTUtil{config: cfg}
}

// GenerateToken creates a signed token carrying the founder's email
func (j *JWTUtil) GenerateToken(email string) (string, error) {
	if j.config == nil {
		return "", errors.New("JWT configuration not provided")
	}

	claims := FounderClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Duration(j.config.ExpirationMinutes) * time.Minute)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(j.config.SigningKey))
}

// ValidateToken validates and parses the token, returning the founder claims
func (j *JWTUtil) ValidateToken(tokenString string) (*FounderClaims, error) {
	if j.config == nil {
		return nil, errors.New("JWT configuration not provided")
	}

	token, err := jwt.ParseWithClaims(
		tokenString,
		&FounderClaims{},
		func(token *jwt.Token) (interface{}, error) {
			// Validate the signing method
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(j.config.SigningKey), nil
		},
	)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*FounderClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}

	if claims.Email == "" {
		return nil, errors.New("token missing subject email")
	}

	return claims, nil
}

var defaultUtil *JWTUtil

// Initialize installs the package-level JWT utility used by the middleware
func Initialize(cfg *config.JWTConfig) {
	defaultUtil = NewJWTUtil(cfg)
}

// GenerateToken creates a token using the package-level utility
func GenerateToken(email string) (string, error) {
	if defaultUtil == nil {
		return "", errors.New("jwtutil not initialized")
	}
	return defaultUtil.GenerateToken(email)
}

// ValidateToken validates a token using the package-level utility
func ValidateToken(tokenString string) (*FounderClaims, error) {
	if defaultUtil == nil {
		return nil, errors.New("jwtutil not initialized")
	}
	return defaultUtil.ValidateToken(tokenString)
}
