package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pankaj-raikar/taskhive/pkg/apperr"
)

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

// ErrorHandlingMiddleware turns the last gin error into the JSON error
// envelope. Rate-limited responses carry a Retry-After header.
func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}
		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)

		var appErr *apperr.Error
		if errors.As(lastErr.Err, &appErr) && appErr.Code == apperr.CodeRateLimited && appErr.RetryAfter > 0 {
			seconds := int(appErr.RetryAfter.Seconds())
			if seconds < 1 {
				seconds = 1
			}
			c.Header("Retry-After", strconv.Itoa(seconds))
		}

		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return apperr.BadRequest("invalid request")
}

func mapError(err error) (int, errorPayload) {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		return http.StatusInternalServerError, errorPayload{
			Code:    apperr.CodeInternal,
			Message: "internal server error",
		}
	}

	status := http.StatusInternalServerError
	switch appErr.Code {
	case apperr.CodeUnauthenticated:
		status = http.StatusUnauthorized
	case apperr.CodeForbidden:
		status = http.StatusForbidden
	case apperr.CodeNotFound:
		status = http.StatusNotFound
	case apperr.CodeBadRequest, apperr.CodeLimitExceeded:
		status = http.StatusBadRequest
	case apperr.CodeConflict:
		status = http.StatusConflict
	case apperr.CodeRateLimited:
		status = http.StatusTooManyRequests
	}

	return status, errorPayload{Code: appErr.Code, Message: appErr.Message}
}

// classifyErrorForLog labels request-log entries for the logging
// middleware.
func classifyErrorForLog(err error) (string, string) {
	code := apperr.CodeOf(err)
	if code == "" {
		return "internal", "unclassified error"
	}
	return code, err.Error()
}
