package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-presensi-api/internal/models"
	"github.com/noah-isme/sma-presensi-api/pkg/config"
)

func TestAuthServiceRoundTrip(t *testing.T) {
	svc := NewAuthService(config.JWTConfig{Secret: "test_secret", Expiration: time.Hour})

	token, err := svc.IssueToken("user-1", "Guru Satu", models.RoleTeacher)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, models.RoleTeacher, claims.Role)
}

func TestAuthServiceRejectsGarbage(t *testing.T) {
	svc := NewAuthService(config.JWTConfig{Secret: "test_secret", Expiration: time.Hour})

	_, err := svc.ValidateToken("not-a-token")
	require.Error(t, err)
}

func TestAuthServiceRejectsWrongSecret(t *testing.T) {
	issuer := NewAuthService(config.JWTConfig{Secret: "secret_a", Expiration: time.Hour})
	verifier := NewAuthService(config.JWTConfig{Secret: "secret_b", Expiration: time.Hour})

	token, err := issuer.IssueToken("user-1", "Guru Satu", models.RoleAdmin)
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	require.Error(t, err)
}
