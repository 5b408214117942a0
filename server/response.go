package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/kbukum/codecompass/errors"
	"github.com/kbukum/codecompass/logger"
)

// DataResponse is the success envelope.
type DataResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Data      any    `json:"data,omitempty"`
	Timestamp string `json:"timestamp"`
}

func envelope(message string, data any) DataResponse {
	return DataResponse{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// RespondWithError renders err with the status of its AppError kind.
// Unclassified errors become a 500 and are logged with their cause; the
// cause never reaches the client.
func RespondWithError(c *gin.Context, err error) {
	appErr := apperrors.From(err)
	if appErr.HTTPStatus >= http.StatusInternalServerError {
		fields := logger.Fields("code", appErr.Code, "path", c.Request.URL.Path)
		if appErr.Cause != nil {
			fields[logger.FieldError] = appErr.Cause.Error()
		}
		logger.GetGlobalLogger().WithContext(c.Request.Context()).Error("Request failed", fields)
	}
	c.AbortWithStatusJSON(appErr.HTTPStatus, appErr.ToResponse())
}

// RespondOK sends a 200 success envelope.
func RespondOK(c *gin.Context, message string, data any) {
	c.JSON(http.StatusOK, envelope(message, data))
}

// RespondCreated sends a 201 success envelope.
func RespondCreated(c *gin.Context, message string, data any) {
	c.JSON(http.StatusCreated, envelope(message, data))
}
