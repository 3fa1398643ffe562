package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/recruitlink/internal/services"
	"github.com/yoockh/recruitlink/internal/utils"
)

type CVHandler struct {
	svc services.CVPipelineService
}

func NewCVHandler(svc services.CVPipelineService) *CVHandler {
	return &CVHandler{svc: svc}
}

// UploadForProposal stores the CV of a proposal and starts its anonymization.
func (h *CVHandler) UploadForProposal(c *gin.Context) {
	h.upload(c, func() string { return c.Param("id") })
}

// Upload stores a CV; the optional correlation_id form field links it to a proposal.
func (h *CVHandler) Upload(c *gin.Context) {
	h.upload(c, func() string { return c.PostForm("correlation_id") })
}

// upload reads correlationID only after the body limit is in place; the form
// field lives in the multipart body.
func (h *CVHandler) upload(c *gin.Context, correlationID func() string) {
	const op = "CVHandler.Upload"

	viewer, ok := requireViewer(c)
	if !ok {
		return
	}

	fh, ok := formFile(c, op, services.MaxCVBytes+1<<20, "file too large (max 10MB)")
	if !ok {
		return
	}
	cid := correlationID()

	file, err := fh.Open()
	if err != nil {
		writeError(c, utils.E(utils.CodeInternal, op, "failed to open upload", err))
		return
	}
	defer file.Close()

	res, err := h.svc.Upload(c.Request.Context(), services.UploadInput{
		Viewer:        viewer,
		CorrelationID: cid,
		FileName:      fh.Filename,
		Size:          fh.Size,
		ContentType:   fh.Header.Get("Content-Type"),
		Body:          file,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	status := http.StatusAccepted
	if res.AttemptID == "" {
		status = http.StatusCreated
	}
	c.JSON(status, res)
}
