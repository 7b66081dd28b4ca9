package httpapi

import (
	"net/http"

	"github.com/NordCoder/Ratewatch/internal/domain/subscription"
	"github.com/NordCoder/Ratewatch/internal/services/api-gateway/webhooks"
	"github.com/gin-gonic/gin"
)

type webhookHandler struct {
	uc *webhooks.Usecase
}

type createWebhookRequest struct {
	URL    string   `json:"url" binding:"required,url"`
	Events []string `json:"events" binding:"required,min=1"`
	Secret string   `json:"secret"`
}

type updateWebhookRequest struct {
	URL    *string  `json:"url" binding:"omitempty,url"`
	Events []string `json:"events" binding:"omitempty,min=1"`
	Secret *string  `json:"secret"`
}

func (h *webhookHandler) create(c *gin.Context) {
	var req createWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	s, err := h.uc.Create(c.Request.Context(), userID(c), req.URL, req.Events, req.Secret)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, s)
}

func (h *webhookHandler) list(c *gin.Context) {
	items, err := h.uc.ListByUser(c.Request.Context(), userID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	if items == nil {
		items = []*subscription.Subscription{}
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *webhookHandler) update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req updateWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	s, err := h.uc.Update(c.Request.Context(), userID(c), id, webhooks.Patch{
		URL:    req.URL,
		Events: req.Events,
		Secret: req.Secret,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

func (h *webhookHandler) delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.uc.Delete(c.Request.Context(), userID(c), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
