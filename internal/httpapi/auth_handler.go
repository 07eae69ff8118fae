package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"relcalc/internal/auth"
	"relcalc/internal/middleware"
	"relcalc/internal/models"
	"relcalc/internal/storage"
	"relcalc/internal/utils"
)

// AuthHandler serves account registration, login, and tier management.
type AuthHandler struct {
	users  auth.UserStore
	secret []byte
	logger *utils.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(users auth.UserStore, secret []byte) *AuthHandler {
	return &AuthHandler{
		users:  users,
		secret: secret,
		logger: utils.NewLogger("auth"),
	}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token string `json:"token"`
	Exp   int64  `json:"exp"`
}

// Register creates a new free-tier account and returns a token.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := utils.DecodeJSONBody(w, r, &req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		utils.RespondWithError(w, http.StatusBadRequest, "a valid email is required")
		return
	}
	if len(req.Password) < 8 {
		utils.RespondWithError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	hash, err := utils.HashPasswordArgon2(req.Password)
	if err != nil {
		h.logger.Error("Failed to hash password", "error", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "failed to create account")
		return
	}

	user := &models.User{
		Email:        req.Email,
		PasswordHash: hash,
		Enabled:      true,
	}
	if err := h.users.Create(r.Context(), user); err != nil {
		if errors.Is(err, storage.ErrEmailTaken) {
			utils.RespondWithError(w, http.StatusConflict, "email already registered")
			return
		}
		h.logger.Error("Failed to create user", "error", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "failed to create account")
		return
	}

	token, exp, err := auth.GenerateUserJWT(user.ID, user.Email, user.IsPremium, h.secret)
	if err != nil {
		h.logger.Error("Failed to generate token", "error", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "failed to create account")
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, tokenResponse{Token: token, Exp: exp})
}

// Login verifies credentials and returns a token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := utils.DecodeJSONBody(w, r, &req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.users.GetByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			utils.RespondWithError(w, http.StatusUnauthorized, "invalid email or password")
			return
		}
		h.logger.Error("Failed to look up user", "error", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "login failed")
		return
	}

	ok, err := utils.VerifyPasswordArgon2(req.Password, user.PasswordHash)
	if err != nil || !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	if !user.IsValid() {
		utils.RespondWithError(w, http.StatusUnauthorized, "account is disabled")
		return
	}

	if err := h.users.RecordLogin(r.Context(), user.ID); err != nil {
		// Login still succeeds; the timestamp is informational.
		h.logger.Warn("Failed to record login", "user_id", user.ID, "error", err)
	}

	token, exp, err := auth.GenerateUserJWT(user.ID, user.Email, user.IsPremium, h.secret)
	if err != nil {
		h.logger.Error("Failed to generate token", "error", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "login failed")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, tokenResponse{Token: token, Exp: exp})
}

// Me returns the authenticated user's account.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserClaims(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	user, err := h.users.GetByID(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			utils.RespondWithError(w, http.StatusUnauthorized, "account no longer exists")
			return
		}
		h.logger.Error("Failed to look up user", "error", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "failed to load account")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]any{
		"id":         user.ID,
		"email":      user.Email,
		"is_premium": user.IsPremium,
		"created_at": user.CreatedAt.Format(time.RFC3339),
	})
}

// Upgrade moves the authenticated user to the premium tier and returns a
// fresh token carrying the new tier.
func (h *AuthHandler) Upgrade(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserClaims(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	if err := h.users.SetPremium(r.Context(), claims.UserID, true); err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			utils.RespondWithError(w, http.StatusUnauthorized, "account no longer exists")
			return
		}
		h.logger.Error("Failed to upgrade user", "user_id", claims.UserID, "error", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "upgrade failed")
		return
	}

	// The tier is embedded in the token, so issue a new one.
	token, exp, err := auth.GenerateUserJWT(claims.UserID, claims.Email, true, h.secret)
	if err != nil {
		h.logger.Error("Failed to generate token", "error", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "upgrade failed")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, tokenResponse{Token: token, Exp: exp})
}
