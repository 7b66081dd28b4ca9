package httpapi

import (
	"errors"
	"net/http"

	"github.com/NordCoder/Ratewatch/internal/obs"
	pg "github.com/NordCoder/Ratewatch/internal/repository/postgres"
	"github.com/NordCoder/Ratewatch/internal/services/api-gateway/alerts"
	"github.com/NordCoder/Ratewatch/internal/services/api-gateway/auth"
	"github.com/NordCoder/Ratewatch/internal/services/api-gateway/webhooks"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type errorBody struct {
	Error string `json:"error"`
}

// statusFor maps usecase and storage sentinels onto HTTP.
// Foreign resources answer 404 so ids of other owners are not confirmed.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, auth.ErrEmailExists):
		return http.StatusConflict, err.Error()
	case errors.Is(err, auth.ErrWeakPassword),
		errors.Is(err, alerts.ErrInvalid),
		errors.Is(err, webhooks.ErrInvalid):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, alerts.ErrForbidden),
		errors.Is(err, webhooks.ErrForbidden),
		errors.Is(err, pg.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, pg.ErrConflict):
		return http.StatusConflict, "conflict"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func writeError(c *gin.Context, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		obs.WithTrace(c.Request.Context(), loggerFrom(c)).Error("request failed", zap.Error(err))
	}
	c.AbortWithStatusJSON(status, errorBody{Error: msg})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorBody{Error: msg})
}
