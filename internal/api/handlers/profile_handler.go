package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/recruitlink/internal/models"
	"github.com/yoockh/recruitlink/internal/services"
	"github.com/yoockh/recruitlink/internal/utils"
)

type ProfileHandler struct {
	svc services.ProfileService
}

func NewProfileHandler(svc services.ProfileService) *ProfileHandler {
	return &ProfileHandler{svc: svc}
}

func (h *ProfileHandler) Me(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	p, err := h.svc.GetMe(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, p)
}

type UpdateProfileRequest struct {
	Email       *string `json:"email,omitempty"`
	FullName    *string `json:"full_name,omitempty"`
	CompanyName *string `json:"company_name,omitempty"`
	PhoneNumber *string `json:"phone_number,omitempty"`
}

func (h *ProfileHandler) Update(c *gin.Context) {
	viewer, ok := requireViewer(c)
	if !ok {
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "ProfileHandler.Update", "invalid request body", err))
		return
	}

	// Load existing (if not found => create new)
	existing, err := h.svc.GetMe(c.Request.Context(), viewer.UserID)
	if err != nil {
		if !utils.IsCode(err, utils.CodeNotFound) {
			writeError(c, err)
			return
		}
		existing = &models.Profile{UserID: viewer.UserID}
	}

	// the role always comes from the token
	existing.Role = viewer.Role
	if req.Email != nil {
		existing.Email = *req.Email
	}
	if req.FullName != nil {
		existing.FullName = *req.FullName
	}
	if req.CompanyName != nil {
		existing.CompanyName = *req.CompanyName
	}
	if req.PhoneNumber != nil {
		existing.PhoneNumber = *req.PhoneNumber
	}
	existing.UpdatedAt = time.Now().UTC()

	if err := h.svc.Upsert(c.Request.Context(), existing); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, existing)
}

func (h *ProfileHandler) UploadAvatar(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	fh, ok := formFile(c, "ProfileHandler.UploadAvatar", services.MaxAvatarBytes+1<<20, "file too large (max 5MB)")
	if !ok {
		return
	}
	file, err := fh.Open()
	if err != nil {
		writeError(c, utils.E(utils.CodeInternal, "ProfileHandler.UploadAvatar", "failed to open upload", err))
		return
	}
	defer file.Close()

	p, err := h.svc.UploadAvatar(c.Request.Context(), userID, file)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *ProfileHandler) Lookup(c *gin.Context) {
	if _, ok := requireUserID(c); !ok {
		return
	}

	p, err := h.svc.LookupByEmail(c.Request.Context(), c.Query("email"))
	if err != nil {
		writeError(c, err)
		return
	}
	// contact numbers stay private to the owner
	out := *p
	out.PhoneNumber = ""
	c.JSON(http.StatusOK, out)
}
