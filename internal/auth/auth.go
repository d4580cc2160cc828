package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/ukydev/fleet-tracking/internal/models"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidToken       = errors.New("invalid token")
	ErrExpiredToken       = errors.New("token expired")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrMissingSecret      = errors.New("jwt secret is required")
)

const defaultTokenExpiry = 24 * time.Hour

// Config configures the API client authentication.
type Config struct {
	JWTSecret        string
	TokenExpiry      time.Duration
	ClientID         string
	ClientSecretHash string
	ClientRole       models.Role
}

// Service issues and validates bearer tokens for API clients
type Service struct {
	jwtSecret        []byte
	tokenExp         time.Duration
	clientID         string
	clientSecretHash string
	clientRole       models.Role
	now              func() time.Time
}

// NewService creates a new authentication service
func NewService(cfg Config) (*Service, error) {
	if cfg.JWTSecret == "" {
		return nil, ErrMissingSecret
	}
	exp := cfg.TokenExpiry
	if exp <= 0 {
		exp = defaultTokenExpiry
	}
	role := cfg.ClientRole
	if !models.IsValidRole(role) {
		role = models.RoleViewer
	}

	return &Service{
		jwtSecret:        []byte(cfg.JWTSecret),
		tokenExp:         exp,
		clientID:         cfg.ClientID,
		clientSecretHash: cfg.ClientSecretHash,
		clientRole:       role,
		now:              time.Now,
	}, nil
}

// HashSecret hashes a client secret using bcrypt
func HashSecret(secret string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash secret: %w", err)
	}
	return string(bytes), nil
}

// CheckSecret checks if a secret matches a hash
func CheckSecret(secret, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret))
	return err == nil
}

// VerifyClient checks API client credentials against the configured client.
func (s *Service) VerifyClient(clientID, secret string) error {
	if s.clientID == "" || s.clientSecretHash == "" {
		return ErrInvalidCredentials
	}
	if subtle.ConstantTimeCompare([]byte(clientID), []byte(s.clientID)) != 1 {
		return ErrInvalidCredentials
	}
	if !CheckSecret(secret, s.clientSecretHash) {
		return ErrInvalidCredentials
	}
	return nil
}

// ClientRole is the role granted to the configured client.
func (s *Service) ClientRole() models.Role {
	return s.clientRole
}

// GenerateToken generates a JWT token for an API client
func (s *Service) GenerateToken(clientID string, role models.Role) (string, int64, error) {
	now := s.now()
	exp := now.Add(s.tokenExp).Unix()
	claims := jwt.MapClaims{
		"client_id": clientID,
		"role":      string(role),
		"exp":       exp,
		"iat":       now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", 0, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, exp, nil
}

// ValidateToken validates a JWT token and returns the claims
func (s *Service) ValidateToken(tokenString string) (*models.Claims, error) {
	tokenString = strings.TrimPrefix(tokenString, "Bearer ")

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithTimeFunc(s.now))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	if !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	clientID, ok := claims["client_id"].(string)
	if !ok || clientID == "" {
		return nil, ErrInvalidToken
	}

	roleStr, ok := claims["role"].(string)
	if !ok || !models.IsValidRole(models.Role(roleStr)) {
		return nil, ErrInvalidToken
	}

	exp, ok := claims["exp"].(float64)
	if !ok {
		return nil, ErrInvalidToken
	}

	return &models.Claims{
		ClientID: clientID,
		Role:     models.Role(roleStr),
		Exp:      int64(exp),
	}, nil
}

// ExtractTokenFromHeader extracts token from Authorization header
func ExtractTokenFromHeader(authHeader string) (string, error) {
	if authHeader == "" {
		return "", ErrInvalidToken
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", ErrInvalidToken
	}

	return parts[1], nil
}
