package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/openbmc-go/pldmd/internal/controlapi/auth"
	"github.com/openbmc-go/pldmd/internal/controlapi/middleware"
	"github.com/openbmc-go/pldmd/internal/logger"
	"github.com/openbmc-go/pldmd/internal/store/models"
)

// UserStore is the slice of internal/store.Store that auth handlers need.
type UserStore interface {
	GetUser(ctx context.Context, username string) (*models.User, error)
	ValidateCredentials(ctx context.Context, username, password string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, username string, when time.Time) error
}

// AuthHandler serves the login/session endpoints of the control surface
// (spec §6.7).
type AuthHandler struct {
	store UserStore
	jwt   *auth.Service
}

func NewAuthHandler(store UserStore, jwt *auth.Service) *AuthHandler {
	return &AuthHandler{store: store, jwt: jwt}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresAt   time.Time    `json:"expires_at"`
	User        userResponse `json:"user"`
}

type userResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	Enabled  bool   `json:"enabled"`
}

func userToResponse(u *models.User) userResponse {
	return userResponse{ID: u.ID, Username: u.Username, Role: u.Role, Enabled: u.Enabled}
}

// Login handles POST /api/v1/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if req.Username == "" || req.Password == "" {
		BadRequest(w, "username and password are required")
		return
	}

	user, err := h.store.ValidateCredentials(r.Context(), req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrInvalidCredentials), errors.Is(err, models.ErrUserNotFound):
			Unauthorized(w, "invalid username or password")
		case errors.Is(err, models.ErrUserDisabled):
			Forbidden(w, "user account is disabled")
		default:
			InternalServerError(w, "authentication failed")
		}
		return
	}

	token, expiresAt, err := h.jwt.IssueToken(user)
	if err != nil {
		InternalServerError(w, "failed to issue token")
		return
	}

	if err := h.store.UpdateLastLogin(r.Context(), user.Username, time.Now()); err != nil {
		logger.WarnCtx(r.Context(), "controlapi: update last login failed", "username", user.Username, logger.Err(err))
	}

	WriteJSONOK(w, loginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt,
		User:        userToResponse(user),
	})
}

// Me handles GET /api/v1/auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		Unauthorized(w, "authentication required")
		return
	}
	user, err := h.store.GetUser(r.Context(), claims.Username)
	if err != nil {
		handleStoreError(w, err)
		return
	}
	WriteJSONOK(w, userToResponse(user))
}
