package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	apperrors "github.com/anonymousgrouphp-collab/skillbun/internal/common/errors"
	"github.com/anonymousgrouphp-collab/skillbun/internal/common/logger"
)

// AbortWithError maps err to the gateway's fixed status table and writes the
// client-safe message. Full detail (code, reason tag, cause) goes to the
// server log only; response bodies never carry stack traces, upstream
// payloads, or internal identifiers.
func AbortWithError(c *gin.Context, err error) {
	appErr, ok := apperrors.AsAppError(err)
	if !ok {
		appErr = apperrors.Wrap(err, apperrors.CodeInternal, "Internal server error.")
	}

	event := logger.Warn()
	switch appErr.Code {
	case apperrors.CodeConfig, apperrors.CodeInternal:
		event = logger.Error()
	case apperrors.CodeValidation, apperrors.CodeTooManyRequests:
		event = logger.Info()
	}
	event.
		Str("request_id", getRequestID(c)).
		Str("method", c.Request.Method).
		Str("path", c.Request.URL.Path).
		Str("error_code", string(appErr.Code)).
		Str("reason", appErr.Reason).
		Err(appErr.Cause).
		Msg(appErr.Message)

	c.AbortWithStatusJSON(apperrors.HTTPStatus(appErr.Code), gin.H{"error": appErr.Message})
}

// Recovery converts panics into a generic 500 without leaking the panic value.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.Error().
			Str("request_id", getRequestID(c)).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Interface("panic", recovered).
			Str("stack", string(debug.Stack())).
			Msg("Panic recovered")

		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error."})
	})
}
