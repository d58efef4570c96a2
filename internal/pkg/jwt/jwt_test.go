package jwt

import (
	"context"
	"testing"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/auth"
)

func TestGenerateAccessToken(t *testing.T) {
	svc := NewJWTService("test-secret", time.Hour)

	token, expiresAt, err := svc.GenerateAccessToken("emp-1", auth.RoleManager)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.InDelta(t, time.Now().Add(time.Hour).Unix(), expiresAt, 5)

	parsed, err := jwtauth.VerifyToken(svc.JWTAuth(), token)
	require.NoError(t, err)
	claims, err := parsed.AsMap(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "emp-1", claims["employee_id"])
	assert.Equal(t, "manager", claims["role"])
	assert.Equal(t, TokenTypeAccess, claims["type"])
}

func TestStreamToken(t *testing.T) {
	svc := NewJWTService("test-secret", time.Hour)

	token, expiresIn, err := svc.GenerateStreamToken("emp-1")
	require.NoError(t, err)
	assert.Equal(t, 300, expiresIn)

	employeeID, err := svc.ValidateStreamToken(token)
	require.NoError(t, err)
	assert.Equal(t, "emp-1", employeeID)
}

func TestValidateStreamToken_RejectsOtherTokens(t *testing.T) {
	svc := NewJWTService("test-secret", time.Hour)

	access, _, err := svc.GenerateAccessToken("emp-1", auth.RoleEmployee)
	require.NoError(t, err)
	_, err = svc.ValidateStreamToken(access)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	other := NewJWTService("another-secret", time.Hour)
	foreign, _, err := other.GenerateStreamToken("emp-1")
	require.NoError(t, err)
	_, err = svc.ValidateStreamToken(foreign)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	_, err = svc.ValidateStreamToken("not-a-token")
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestValidateStreamToken_Expired(t *testing.T) {
	svc := NewJWTService("test-secret", time.Hour).(*JWTService)
	svc.now = func() time.Time { return time.Now().Add(-time.Hour) }

	token, _, err := svc.GenerateStreamToken("emp-1")
	require.NoError(t, err)

	_, err = svc.ValidateStreamToken(token)
	assert.ErrorIs(t, err, auth.ErrTokenExpired)
}

func TestVerificationError(t *testing.T) {
	assert.ErrorIs(t, VerificationError(jwtauth.ErrExpired), auth.ErrTokenExpired)
	assert.ErrorIs(t, VerificationError(jwtauth.ErrNoTokenFound), auth.ErrInvalidToken)
	assert.ErrorIs(t, VerificationError(jwtauth.ErrUnauthorized), auth.ErrInvalidToken)
}
