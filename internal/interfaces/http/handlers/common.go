package handlers

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/TreatyBoard/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/TreatyBoard/internal/interfaces/http/middleware"
	"github.com/turtacn/TreatyBoard/pkg/errors"
)

// ErrorResponse is the standard error response body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeError renders err as {code, message}.  Coded errors keep their
// message; anything else is masked as an internal error.
func writeError(c *gin.Context, logger logging.Logger, err error) {
	_ = c.Error(err)

	var app *errors.AppError
	if !stderrors.As(err, &app) || app.Code == errors.CodeUnknown {
		logger.Error("unhandled error",
			logging.String("path", c.Request.URL.Path),
			logging.String("request_id", middleware.GetRequestID(c)),
			logging.Err(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
			Code:    string(errors.ErrCodeInternal),
			Message: "internal server error",
		})
		return
	}

	status := errors.HTTPStatusForCode(app.Code)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			logging.String("path", c.Request.URL.Path),
			logging.String("request_id", middleware.GetRequestID(c)),
			logging.Err(err))
	}
	msg := app.Message
	if app.Detail != "" {
		msg += ": " + app.Detail
	}
	c.AbortWithStatusJSON(status, ErrorResponse{Code: string(app.Code), Message: msg})
}
