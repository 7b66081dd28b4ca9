package httpapi

import (
	"net/http"
	"strconv"

	"github.com/NordCoder/Ratewatch/internal/domain/alert"
	"github.com/NordCoder/Ratewatch/internal/services/api-gateway/alerts"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type alertHandler struct {
	uc *alerts.Usecase
}

type createAlertRequest struct {
	CurrencyCode string           `json:"currency_code" binding:"required"`
	TargetRate   *decimal.Decimal `json:"target_rate" binding:"required"`
	Product      string           `json:"product"`
}

type updateAlertRequest struct {
	TargetRate *decimal.Decimal `json:"target_rate"`
	Product    *string          `json:"product"`
	Active     *bool            `json:"active"`
}

type alertList struct {
	Items []*alert.Alert `json:"items"`
}

func (h *alertHandler) create(c *gin.Context) {
	var req createAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	a, err := h.uc.Create(c.Request.Context(), userID(c), req.CurrencyCode, *req.TargetRate, req.Product)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

func (h *alertHandler) list(c *gin.Context) {
	items, err := h.uc.ListByUser(c.Request.Context(), userID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	if items == nil {
		items = []*alert.Alert{}
	}
	c.JSON(http.StatusOK, alertList{Items: items})
}

func (h *alertHandler) get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	a, err := h.uc.Get(c.Request.Context(), userID(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (h *alertHandler) update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req updateAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	a, err := h.uc.Update(c.Request.Context(), userID(c), id, alerts.Patch{
		TargetRate: req.TargetRate,
		Product:    req.Product,
		Active:     req.Active,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (h *alertHandler) delete(c *gin.Context) {
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

func (h *alertHandler) deliveries(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	items, err := h.uc.Deliveries(c.Request.Context(), userID(c), id, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid id")
		return 0, false
	}
	return id, true
}
