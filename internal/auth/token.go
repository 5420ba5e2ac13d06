package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid access token")
	ErrWrongType    = errors.New("token is not an access token")
)

// Claims identifies the authenticated principal behind a connection.
type Claims struct {
	UserID   string
	TenantID string
}

// Verifier checks an access token and yields the principal it carries.
type Verifier interface {
	Verify(token string) (Claims, error)
}

type accessClaims struct {
	UserID    string `json:"userId"`
	TenantID  string `json:"tenantId"`
	TokenType string `json:"type"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies HS256 access tokens.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService creates a token service with the given signing secret and
// access-token lifetime.
func NewTokenService(secret string, ttl time.Duration) *TokenService {
	return &TokenService{secret: []byte(secret), ttl: ttl}
}

// Issue signs a new access token for the principal.
func (s *TokenService) Issue(userID, tenantID string) (string, error) {
	now := time.Now()
	claims := accessClaims{
		UserID:    userID,
		TenantID:  tenantID,
		TokenType: "access",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates an access token.
func (s *TokenService) Verify(token string) (Claims, error) {
	var claims accessClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return Claims{}, ErrInvalidToken
	}
	if claims.TokenType != "access" {
		return Claims{}, ErrWrongType
	}
	if claims.UserID == "" {
		return Claims{}, ErrInvalidToken
	}
	return Claims{UserID: claims.UserID, TenantID: claims.TenantID}, nil
}
