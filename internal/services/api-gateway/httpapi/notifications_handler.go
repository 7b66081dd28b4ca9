package httpapi

import (
	"context"
	"net/http"
	"strconv"

	"github.com/NordCoder/Ratewatch/internal/domain/notification"
	"github.com/gin-gonic/gin"
)

const maxNotifications = 200

type NotificationReader interface {
	ListByUser(ctx context.Context, userID int64, limit int) ([]*notification.Notification, error)
}

type notificationHandler struct {
	repo NotificationReader
}

// list returns the caller's most recent notifications, newest first.
func (h *notificationHandler) list(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	if limit > maxNotifications {
		limit = maxNotifications
	}
	items, err := h.repo.ListByUser(c.Request.Context(), userID(c), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	if items == nil {
		items = []*notification.Notification{}
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}
