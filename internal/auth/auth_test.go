package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/fleet-tracking/internal/models"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	hash, err := HashSecret("s3cret-value")
	require.NoError(t, err)

	service, err := NewService(Config{
		JWTSecret:        "test-secret",
		ClientID:         "dashboard",
		ClientSecretHash: hash,
		ClientRole:       models.RoleAdmin,
	})
	require.NoError(t, err)
	return service
}

func TestNewService(t *testing.T) {
	service, err := NewService(Config{JWTSecret: "x"})
	assert.NoError(t, err)
	assert.NotNil(t, service)
	assert.Equal(t, 24*time.Hour, service.tokenExp)
	assert.Equal(t, models.RoleViewer, service.ClientRole())

	_, err = NewService(Config{})
	assert.ErrorIs(t, err, ErrMissingSecret)
}

func TestHashSecret(t *testing.T) {
	hash, err := HashSecret("s3cret-value")
	assert.NoError(t, err)
	assert.NotEmpty(t, hash)
	assert.NotEqual(t, "s3cret-value", hash)

	assert.True(t, CheckSecret("s3cret-value", hash))
	assert.False(t, CheckSecret("wrong", hash))
}

func TestService_VerifyClient(t *testing.T) {
	service := newTestService(t)

	assert.NoError(t, service.VerifyClient("dashboard", "s3cret-value"))
	assert.ErrorIs(t, service.VerifyClient("dashboard", "nope"), ErrInvalidCredentials)
	assert.ErrorIs(t, service.VerifyClient("other", "s3cret-value"), ErrInvalidCredentials)

	unconfigured, _ := NewService(Config{JWTSecret: "x"})
	assert.ErrorIs(t, unconfigured.VerifyClient("", ""), ErrInvalidCredentials)
}

func TestService_ValidateToken(t *testing.T) {
	service := newTestService(t)

	token, exp, err := service.GenerateToken("dashboard", models.RoleAdmin)
	require.NoError(t, err)

	// Test valid token
	claims, err := service.ValidateToken(token)
	assert.NoError(t, err)
	require.NotNil(t, claims)
	assert.Equal(t, "dashboard", claims.ClientID)
	assert.Equal(t, models.RoleAdmin, claims.Role)
	assert.Equal(t, exp, claims.Exp)

	// Test invalid token
	_, err = service.ValidateToken("invalid-token")
	assert.Equal(t, ErrInvalidToken, err)

	// Test token with Bearer prefix
	_, err = service.ValidateToken("Bearer " + token)
	assert.NoError(t, err)

	// Test token signed with another secret
	other, _ := NewService(Config{JWTSecret: "another-secret"})
	_, err = other.ValidateToken(token)
	assert.Equal(t, ErrInvalidToken, err)
}

func TestService_TokenExpiration(t *testing.T) {
	service := newTestService(t)
	issued := time.Now()
	service.now = func() time.Time { return issued }

	token, exp, err := service.GenerateToken("dashboard", models.RoleViewer)
	require.NoError(t, err)
	assert.Equal(t, issued.Add(24*time.Hour).Unix(), exp)

	service.now = func() time.Time { return issued.Add(25 * time.Hour) }
	_, err = service.ValidateToken(token)
	assert.Equal(t, ErrExpiredToken, err)
}

func TestExtractTokenFromHeader(t *testing.T) {
	// Test valid header
	extracted, err := ExtractTokenFromHeader("Bearer valid-token")
	assert.NoError(t, err)
	assert.Equal(t, "valid-token", extracted)

	// Test empty header
	_, err = ExtractTokenFromHeader("")
	assert.Equal(t, ErrInvalidToken, err)

	// Test invalid format
	_, err = ExtractTokenFromHeader("InvalidFormat")
	assert.Equal(t, ErrInvalidToken, err)

	// Test missing token
	_, err = ExtractTokenFromHeader("Bearer ")
	assert.Equal(t, ErrInvalidToken, err)
}
