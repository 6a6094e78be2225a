package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"chatserver/service/auth"
	midsec "chatserver/middleware/security"
	"chatserver/tools/errs"
)

// AuthHandlers exposes the Auth Service (C4) operations that need a
// transport before a socket exists: signup, login, logout, refresh,
// session_check, lookup_user, request_reset, confirm_reset.
type AuthHandlers struct {
	auth *auth.Service
}

func NewAuthHandlers(a *auth.Service) *AuthHandlers {
	return &AuthHandlers{auth: a}
}

type signupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandlers) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, errs.New(errs.ValidationError, "invalid request body"))
		return
	}
	u, pair, err := h.auth.Signup(c.Request.Context(), auth.SignupInput{
		Username: req.Username, Email: req.Email, Password: req.Password,
	})
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, gin.H{
		"user_id": u.ID, "username": u.Username,
		"access_token": pair.AccessToken, "refresh_token": pair.RefreshToken,
		"access_expires_at": pair.AccessExpiresAt, "refresh_expires_at": pair.RefreshExpiresAt,
	})
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

func (h *AuthHandlers) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, errs.New(errs.ValidationError, "invalid request body"))
		return
	}
	u, pair, err := h.auth.Login(c.Request.Context(), req.Identifier, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{
		"user_id": u.ID, "username": u.Username, "role": u.Role,
		"access_token": pair.AccessToken, "refresh_token": pair.RefreshToken,
		"access_expires_at": pair.AccessExpiresAt, "refresh_expires_at": pair.RefreshExpiresAt,
	})
}

type refreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (h *AuthHandlers) Logout(c *gin.Context) {
	var req refreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, errs.New(errs.ValidationError, "invalid request body"))
		return
	}
	if err := h.auth.Logout(c.Request.Context(), req.RefreshToken); err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{})
}

func (h *AuthHandlers) Refresh(c *gin.Context) {
	var req refreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, errs.New(errs.ValidationError, "invalid request body"))
		return
	}
	pair, err := h.auth.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{
		"access_token": pair.AccessToken, "refresh_token": pair.RefreshToken,
		"access_expires_at": pair.AccessExpiresAt, "refresh_expires_at": pair.RefreshExpiresAt,
	})
}

func (h *AuthHandlers) SessionCheck(c *gin.Context) {
	authz := c.GetHeader("Authorization")
	token := ""
	if len(authz) > len("Bearer ") {
		token = authz[len("Bearer "):]
	}
	info, err := h.auth.SessionCheck(token)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{
		"user_id": info.UserID, "username": info.Username,
		"role": info.Role, "expires_at": info.ExpiresAt,
	})
}

func (h *AuthHandlers) LookupUser(c *gin.Context) {
	username := c.Query("username")
	ref, err := h.auth.LookupUser(c.Request.Context(), username)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"user_id": ref.UserID, "display_name": ref.DisplayName})
}

type requestResetRequest struct {
	Email string `json:"email"`
}

func (h *AuthHandlers) RequestReset(c *gin.Context) {
	var req requestResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, errs.New(errs.ValidationError, "invalid request body"))
		return
	}
	_ = h.auth.RequestReset(c.Request.Context(), req.Email)
	ok(c, http.StatusOK, gin.H{})
}

type confirmResetRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

func (h *AuthHandlers) ConfirmReset(c *gin.Context) {
	var req confirmResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, errs.New(errs.ValidationError, "invalid request body"))
		return
	}
	if err := h.auth.ConfirmReset(c.Request.Context(), req.Token, req.NewPassword); err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{})
}

// CurrentUserID reads the caller's id set by the auth middleware, for
// handlers registered with RouteOpt{IsAuth: true}.
func CurrentUserID(c *gin.Context) string {
	return midsec.UserID(c)
}
