package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-tracking/internal/auth"
	"github.com/ukydev/fleet-tracking/internal/models"
)

// AuthHandler exchanges API client credentials for bearer tokens
type AuthHandler struct {
	authService *auth.Service
	logger      log.FieldLogger
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(authService *auth.Service, logger log.FieldLogger) *AuthHandler {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &AuthHandler{authService: authService, logger: logger}
}

// Token handles POST /api/auth/token
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	var req models.TokenRequest
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	// Validate input
	if req.ClientID == "" || req.ClientSecret == "" {
		http.Error(w, "client_id and client_secret are required", http.StatusBadRequest)
		return
	}

	if err := h.authService.VerifyClient(req.ClientID, req.ClientSecret); err != nil {
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			h.logger.WithError(err).Error("Client verification failed")
		}
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	token, expiresAt, err := h.authService.GenerateToken(req.ClientID, h.authService.ClientRole())
	if err != nil {
		h.logger.WithError(err).Error("Failed to generate token")
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	h.logger.WithField("client_id", req.ClientID).Info("Issued API token")
	writeJSON(w, http.StatusOK, models.TokenResponse{Token: token, ExpiresAt: expiresAt})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
