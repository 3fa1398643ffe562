package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/recruitlink/internal/models"
	"github.com/yoockh/recruitlink/internal/services"
	"github.com/yoockh/recruitlink/internal/utils"
)

type AccessHandler struct {
	svc services.AccessService
}

func NewAccessHandler(svc services.AccessService) *AccessHandler {
	return &AccessHandler{svc: svc}
}

func (h *AccessHandler) Request(c *gin.Context) {
	viewer, ok := requireViewer(c)
	if !ok {
		return
	}

	if err := h.svc.RequestFullAccess(c.Request.Context(), viewer, c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": "access request sent"})
}

type SetAccessLevelRequest struct {
	AccessLevel models.AccessLevel `json:"access_level" binding:"required"`
}

func (h *AccessHandler) SetLevel(c *gin.Context) {
	viewer, ok := requireViewer(c)
	if !ok {
		return
	}

	var req SetAccessLevelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "AccessHandler.SetLevel", "invalid request body", err))
		return
	}

	p, err := h.svc.GrantAccess(c.Request.Context(), viewer, c.Param("id"), req.AccessLevel)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"proposal_id":  p.ID,
		"access_level": p.AccessLevel,
		"is_protected": p.IsProtected,
	})
}
