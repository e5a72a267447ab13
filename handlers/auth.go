package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"callsync/auth"
	"callsync/config"
	"callsync/models"
)

// AuthHandler authenticates the config-defined admin user for the admin API.
type AuthHandler struct {
	admin        config.AdminConfig
	passwordHash string
	jwtManager   *auth.JWTManager
}

// NewAuthHandler hashes the configured admin password once at startup.
func NewAuthHandler(admin config.AdminConfig, jwtManager *auth.JWTManager) (*AuthHandler, error) {
	hash, err := auth.HashPassword(admin.Password)
	if err != nil {
		return nil, err
	}
	return &AuthHandler{
		admin:        admin,
		passwordHash: hash,
		jwtManager:   jwtManager,
	}, nil
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token        string           `json:"token"`
	RefreshToken string           `json:"refresh_token"`
	Username     string           `json:"username"`
	Role         models.AdminRole `json:"role"`
}

// Login handles admin authentication
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	// Validate input
	if req.Username == "" || req.Password == "" {
		writeError(w, "Username and password are required", http.StatusBadRequest)
		return
	}

	if req.Username != h.admin.Username {
		log.Printf("Login failed for user %s: unknown user", req.Username)
		writeError(w, "Invalid username or password", http.StatusUnauthorized)
		return
	}

	// Verify password
	if err := auth.CheckPassword(req.Password, h.passwordHash); err != nil {
		log.Printf("Login failed for user %s: invalid password", req.Username)
		writeError(w, "Invalid username or password", http.StatusUnauthorized)
		return
	}

	// Generate tokens
	token, err := h.jwtManager.GenerateToken(h.admin.Username, h.admin.Username, models.RoleAdmin)
	if err != nil {
		log.Printf("Failed to generate token for user %s: %v", req.Username, err)
		writeError(w, "Failed to generate authentication token", http.StatusInternalServerError)
		return
	}

	refreshToken, err := h.jwtManager.GenerateRefreshToken(h.admin.Username, h.admin.Username, models.RoleAdmin)
	if err != nil {
		log.Printf("Failed to generate refresh token for user %s: %v", req.Username, err)
		writeError(w, "Failed to generate refresh token", http.StatusInternalServerError)
		return
	}

	log.Printf("✅ Admin logged in: %s", h.admin.Username)

	writeJSON(w, http.StatusOK, LoginResponse{
		Token:        token,
		RefreshToken: refreshToken,
		Username:     h.admin.Username,
		Role:         models.RoleAdmin,
	})
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type RefreshTokenResponse struct {
	Token string `json:"token"`
}

// RefreshToken handles token refresh
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req RefreshTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	// Validate refresh token
	claims, err := h.jwtManager.ValidateToken(req.RefreshToken)
	if err != nil {
		writeError(w, "Invalid or expired refresh token", http.StatusUnauthorized)
		return
	}

	if claims.Username != h.admin.Username {
		writeError(w, "Unknown user", http.StatusUnauthorized)
		return
	}

	// Generate new access token
	token, err := h.jwtManager.GenerateToken(claims.UserID, claims.Username, claims.Role)
	if err != nil {
		log.Printf("Failed to generate token for user %s: %v", claims.Username, err)
		writeError(w, "Failed to generate authentication token", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, RefreshTokenResponse{
		Token: token,
	})
}

func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}
