package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/recruitlink/internal/services"
	"github.com/yoockh/recruitlink/internal/utils"
)

type ProposalHandler struct {
	svc services.ProposalService
}

func NewProposalHandler(svc services.ProposalService) *ProposalHandler {
	return &ProposalHandler{svc: svc}
}

type CreateProposalRequest struct {
	CompanyID       string          `json:"company_id" binding:"required"`
	JobTitle        string          `json:"job_title"`
	CandidateName   string          `json:"candidate_name" binding:"required"`
	CandidateSkills []string        `json:"candidate_skills"`
	Details         json.RawMessage `json:"details,omitempty"`

	CandidateEmail    string `json:"candidate_email"`
	CandidatePhone    string `json:"candidate_phone"`
	CandidateLinkedIn string `json:"candidate_linkedin"`
	IsProtected       *bool  `json:"is_protected,omitempty"`
}

func (h *ProposalHandler) Create(c *gin.Context) {
	viewer, ok := requireViewer(c)
	if !ok {
		return
	}

	var req CreateProposalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "ProposalHandler.Create", "invalid request body", err))
		return
	}

	p, err := h.svc.Create(c.Request.Context(), viewer, services.CreateProposalInput{
		CompanyID:       req.CompanyID,
		JobTitle:        req.JobTitle,
		CandidateName:   req.CandidateName,
		CandidateSkills: req.CandidateSkills,
		Details:         req.Details,
		Email:           req.CandidateEmail,
		Phone:           req.CandidatePhone,
		LinkedIn:        req.CandidateLinkedIn,
		IsProtected:     req.IsProtected,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	view, err := h.svc.Get(c.Request.Context(), viewer, p.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

func (h *ProposalHandler) Get(c *gin.Context) {
	viewer, ok := requireViewer(c)
	if !ok {
		return
	}

	view, err := h.svc.Get(c.Request.Context(), viewer, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *ProposalHandler) Contact(c *gin.Context) {
	viewer, ok := requireViewer(c)
	if !ok {
		return
	}

	contact, err := h.svc.Contact(c.Request.Context(), viewer, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, contact)
}

func (h *ProposalHandler) CVStatus(c *gin.Context) {
	viewer, ok := requireViewer(c)
	if !ok {
		return
	}

	cv, err := h.svc.CVStatus(c.Request.Context(), viewer, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cv)
}
