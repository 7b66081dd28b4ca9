package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/NordCoder/Ratewatch/internal/services/api-gateway/alerts"
	"github.com/NordCoder/Ratewatch/internal/services/api-gateway/auth"
	"github.com/NordCoder/Ratewatch/internal/services/api-gateway/webhooks"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Deps struct {
	Log      *zap.Logger
	Auth     *auth.Usecase
	Users    UserReader
	Alerts   *alerts.Usecase
	Webhooks *webhooks.Usecase

	Notifications NotificationReader

	Cookie        CookieOpts
	CORSOrigins   []string
	AuthRateLimit string
}

// NewRouter builds the owner-facing /v1 API.
func NewRouter(d Deps) (*gin.Engine, error) {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(d.Log.With(zap.String("component", "api.http"))))
	if len(d.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     d.CORSOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowHeaders:     []string{"Authorization", "Content-Type", "X-Refresh-Token", HeaderRequestID},
			ExposeHeaders:    []string{HeaderRequestID},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, errorBody{Error: "not found"})
	})

	v1 := r.Group("/v1")

	ah := &authHandler{uc: d.Auth, users: d.Users, cookie: d.Cookie}
	authGroup := v1.Group("/auth")
	if d.AuthRateLimit != "" {
		limit, err := rateLimit(d.AuthRateLimit)
		if err != nil {
			return nil, fmt.Errorf("auth rate limit %q: %w", d.AuthRateLimit, err)
		}
		authGroup.Use(limit)
	}
	authGroup.POST("/signup", ah.signUp)
	authGroup.POST("/signin", ah.signIn)
	authGroup.POST("/refresh", ah.refresh)
	authGroup.POST("/logout", ah.logout)

	private := v1.Group("", requireAuth(d.Auth.ParseAccess))
	private.GET("/me", ah.me)

	alh := &alertHandler{uc: d.Alerts}
	private.POST("/alerts", alh.create)
	private.GET("/alerts", alh.list)
	private.GET("/alerts/:id", alh.get)
	private.PUT("/alerts/:id", alh.update)
	private.DELETE("/alerts/:id", alh.delete)
	private.GET("/alerts/:id/deliveries", alh.deliveries)

	wh := &webhookHandler{uc: d.Webhooks}
	private.POST("/webhooks", wh.create)
	private.GET("/webhooks", wh.list)
	private.PUT("/webhooks/:id", wh.update)
	private.DELETE("/webhooks/:id", wh.delete)

	if d.Notifications != nil {
		nh := &notificationHandler{repo: d.Notifications}
		private.GET("/notifications", nh.list)
	}

	return r, nil
}
