package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/NordCoder/Ratewatch/internal/domain/user"
	"github.com/NordCoder/Ratewatch/internal/services/api-gateway/auth"
	"github.com/gin-gonic/gin"
)

type UserReader interface {
	GetByID(ctx context.Context, id int64) (*user.User, error)
}

type CookieOpts struct {
	Name   string
	Domain string
	Path   string
	Secure bool
}

type authHandler struct {
	uc     *auth.Usecase
	users  UserReader
	cookie CookieOpts
}

type credentialsRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type authResponse struct {
	AccessToken string     `json:"access_token"`
	User        *user.User `json:"user,omitempty"`
}

func (h *authHandler) signUp(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	u, tokens, err := h.uc.SignUp(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	h.setRefreshCookie(c, tokens.Refresh, h.uc.RefreshTTL())
	c.JSON(http.StatusCreated, authResponse{AccessToken: tokens.Access, User: u})
}

func (h *authHandler) signIn(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	u, tokens, err := h.uc.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	h.setRefreshCookie(c, tokens.Refresh, h.uc.RefreshTTL())
	c.JSON(http.StatusOK, authResponse{AccessToken: tokens.Access, User: u})
}

func (h *authHandler) refresh(c *gin.Context) {
	tokens, _, err := h.uc.Refresh(c.Request.Context(), h.refreshToken(c))
	if err != nil {
		h.setRefreshCookie(c, "", -1)
		writeError(c, err)
		return
	}
	h.setRefreshCookie(c, tokens.Refresh, h.uc.RefreshTTL())
	c.JSON(http.StatusOK, authResponse{AccessToken: tokens.Access})
}

func (h *authHandler) logout(c *gin.Context) {
	if err := h.uc.Logout(c.Request.Context(), h.refreshToken(c)); err != nil {
		writeError(c, err)
		return
	}
	h.setRefreshCookie(c, "", -1)
	c.Status(http.StatusNoContent)
}

func (h *authHandler) me(c *gin.Context) {
	u, err := h.users.GetByID(c.Request.Context(), userID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

// refreshToken reads the cookie first and falls back to X-Refresh-Token for non-browser clients.
func (h *authHandler) refreshToken(c *gin.Context) string {
	if v, err := c.Cookie(h.cookie.Name); err == nil && v != "" {
		return v
	}
	return c.GetHeader("X-Refresh-Token")
}

// setRefreshCookie writes the refresh cookie; a negative ttl clears it.
func (h *authHandler) setRefreshCookie(c *gin.Context, raw string, ttl time.Duration) {
	maxAge := int(ttl.Seconds())
	if ttl < 0 {
		maxAge = -1
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    raw,
		Path:     h.cookie.Path,
		Domain:   h.cookie.Domain,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	})
}
