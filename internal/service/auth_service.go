package service

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/sma-presensi-api/internal/models"
	"github.com/noah-isme/sma-presensi-api/pkg/config"
	appErrors "github.com/noah-isme/sma-presensi-api/pkg/errors"
)

// AuthService validates access tokens issued by the identity service.
// Login and account management live outside this API.
type AuthService struct {
	secret     []byte
	expiration time.Duration
}

// NewAuthService constructs AuthService.
func NewAuthService(cfg config.JWTConfig) *AuthService {
	return &AuthService{secret: []byte(cfg.Secret), expiration: cfg.Expiration}
}

// ValidateToken parses and verifies an HS256 access token.
func (s *AuthService) ValidateToken(raw string) (*models.JWTClaims, error) {
	claims := &models.JWTClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired token")
	}
	return claims, nil
}

// IssueToken signs a token for tests and local tooling.
func (s *AuthService) IssueToken(userID, name string, role models.UserRole) (string, error) {
	now := time.Now().UTC()
	claims := models.JWTClaims{
		UserID: userID,
		Name:   name,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiration)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}
