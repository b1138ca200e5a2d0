package handlers

import (
	"errors"
	"net/http"
	"strings"

	"eventpass/internal/services"
	"eventpass/internal/services/notify/expo"
	"eventpass/internal/status"
	"eventpass/internal/store"
	"eventpass/models"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"golang.org/x/crypto/bcrypt"
)

type AuthHandler struct {
	store       *store.Store
	credentials *services.CredentialService
	expo        *expo.Client

	// adminUsername bootstraps the single admin account: a
	// registration with this name gets the admin role. Every later
	// privilege check reads the role field, never the name.
	adminUsername string
}

func NewAuthHandler(store *store.Store, credentials *services.CredentialService, expoClient *expo.Client, adminUsername string) *AuthHandler {
	return &AuthHandler{
		store:         store,
		credentials:   credentials,
		expo:          expoClient,
		adminUsername: adminUsername,
	}
}

func (h *AuthHandler) Register(e *core.RequestEvent) error {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		return apis.NewBadRequestError("All fields are required", nil)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return apis.NewInternalServerError("internal error", err)
	}

	role := models.RoleUser
	if req.Username == h.adminUsername {
		role = models.RoleAdmin
	}

	if _, err := h.store.CreateUser(e.Request.Context(), req.Username, string(hash), role); err != nil {
		if errors.Is(err, status.ErrUsernameTaken) {
			return apis.NewBadRequestError("Username already taken", err)
		}
		return apis.NewBadRequestError("Registration failed", err)
	}

	return e.JSON(http.StatusCreated, map[string]string{"message": "User created"})
}

func (h *AuthHandler) Login(e *core.RequestEvent) error {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	user, err := h.store.FindUserByUsername(e.Request.Context(), req.Username)
	if err != nil {
		return apis.NewBadRequestError("User not found", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return apis.NewBadRequestError("Incorrect password", err)
	}

	token, err := h.credentials.Issue(user)
	if err != nil {
		return apis.NewInternalServerError("internal error", err)
	}

	return e.JSON(http.StatusOK, map[string]string{"token": token})
}

func (h *AuthHandler) RegisterPushToken(e *core.RequestEvent, user *models.User) error {
	var req struct {
		PushToken string `json:"pushToken"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	if req.PushToken == "" {
		return apis.NewBadRequestError("pushToken is required", nil)
	}
	if !expo.IsPushToken(req.PushToken) {
		return apis.NewBadRequestError("Invalid Expo push token", nil)
	}

	if err := h.store.SetUserPushToken(e.Request.Context(), user.ID, req.PushToken); err != nil {
		return apis.NewInternalServerError("internal error", err)
	}

	return e.JSON(http.StatusOK, map[string]string{"message": "Push token registered"})
}

func (h *AuthHandler) ChangePassword(e *core.RequestEvent, user *models.User) error {
	var req struct {
		OldPassword string `json:"oldPassword"`
		NewPassword string `json:"newPassword"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	if req.OldPassword == "" || req.NewPassword == "" {
		return apis.NewBadRequestError("All fields are required", nil)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.OldPassword)); err != nil {
		return apis.NewBadRequestError("Incorrect old password", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return apis.NewInternalServerError("internal error", err)
	}

	if err := h.store.SetUserPassword(e.Request.Context(), user.ID, string(hash)); err != nil {
		return apis.NewInternalServerError("internal error", err)
	}

	return e.JSON(http.StatusOK, map[string]string{"message": "Password changed"})
}

// TestNotification sends a push to the caller's own device so users
// can verify their registration end to end.
func (h *AuthHandler) TestNotification(e *core.RequestEvent, user *models.User) error {
	if user.PushToken == "" {
		return apis.NewBadRequestError("No push token registered for this user", nil)
	}

	var req struct {
		Title string         `json:"title"`
		Body  string         `json:"body"`
		Data  map[string]any `json:"data"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if req.Title == "" {
		req.Title = "Test"
	}
	if req.Body == "" {
		req.Body = "This is a test notification"
	}

	if err := h.expo.Send(e.Request.Context(), user.PushToken, req.Title, req.Body, req.Data); err != nil {
		return apis.NewInternalServerError("Failed to send the notification", err)
	}

	return e.JSON(http.StatusOK, map[string]string{"message": "Notification sent"})
}
