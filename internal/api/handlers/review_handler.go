package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/recruitlink/internal/services"
	"github.com/yoockh/recruitlink/internal/utils"
)

type ReviewHandler struct {
	svc services.ReviewService
}

func NewReviewHandler(svc services.ReviewService) *ReviewHandler {
	return &ReviewHandler{svc: svc}
}

type LeaveReviewRequest struct {
	Rating  int    `json:"rating" binding:"required"`
	Comment string `json:"comment"`
}

func (h *ReviewHandler) Leave(c *gin.Context) {
	viewer, ok := requireViewer(c)
	if !ok {
		return
	}

	var req LeaveReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "ReviewHandler.Leave", "invalid request body", err))
		return
	}

	rv, err := h.svc.Leave(c.Request.Context(), viewer, c.Param("id"), req.Rating, req.Comment)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rv)
}

func (h *ReviewHandler) Rating(c *gin.Context) {
	sum, err := h.svc.Rating(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	reviews, err := h.svc.List(c.Request.Context(), c.Param("id"), queryLimit(c, 10, 50))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": sum, "reviews": reviews})
}
