package handlers

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/recruitlink/internal/api/middleware"
	"github.com/yoockh/recruitlink/internal/models"
	"github.com/yoockh/recruitlink/internal/utils"
)

type APIError struct {
	Code    utils.Code `json:"code"`
	Message string     `json:"message"`
}

func writeError(c *gin.Context, err error) {
	status := utils.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(status, APIError{
		Code:    utils.CodeOf(err),
		Message: utils.UserMessage(err),
	})
}

func requireUserID(c *gin.Context) (string, bool) {
	if v, ok := c.Get(middleware.CtxUserID); ok {
		if s, ok := v.(string); ok && s != "" {
			return s, true
		}
	}

	writeError(c, utils.E(utils.CodeUnauthorized, "Auth", "unauthorized", nil))
	return "", false
}

// requireViewer returns the caller with the role set by the auth middleware.
func requireViewer(c *gin.Context) (models.Viewer, bool) {
	userID, ok := requireUserID(c)
	if !ok {
		return models.Viewer{}, false
	}
	v, _ := c.Get(middleware.CtxRole)
	role, _ := v.(string)
	return models.Viewer{UserID: userID, Role: models.UserRole(role)}, true
}

func queryLimit(c *gin.Context, def, max int) int {
	n, err := strconv.Atoi(c.Query("limit"))
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}

// formFile reads the "file" part with the request body capped at limit.
func formFile(c *gin.Context, op string, limit int64, tooLarge string) (*multipart.FileHeader, bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
	fh, err := c.FormFile("file")
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeError(c, utils.E(utils.CodeInvalidArgument, op, tooLarge, err))
			return nil, false
		}
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "missing multipart field 'file'", err))
		return nil, false
	}
	return fh, true
}
