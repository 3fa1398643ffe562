package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/recruitlink/internal/services"
)

type NotificationHandler struct {
	svc services.NotificationService
}

func NewNotificationHandler(svc services.NotificationService) *NotificationHandler {
	return &NotificationHandler{svc: svc}
}

func (h *NotificationHandler) List(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	items, err := h.svc.List(c.Request.Context(), userID, c.Query("unread") == "true", int64(queryLimit(c, 50, 200)))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": items})
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	if err := h.svc.MarkRead(c.Request.Context(), userID, c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
