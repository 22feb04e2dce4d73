package apperrors

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rizom-ai/brains-sub000/internal/logger"
)

// ErrorHandler is gin middleware that converts the last error on the
// context into the standard JSON envelope.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last()
		log := logger.GetLogger()

		if appErr, ok := err.Err.(*AppError); ok {
			if appErr.StatusCode >= 500 {
				log.Error().Str("code", appErr.Code).Str("details", appErr.Details).Msg(appErr.Message)
			} else {
				log.Warn().Str("code", appErr.Code).Msg(appErr.Message)
			}
			c.JSON(appErr.StatusCode, appErr.ToResponse())
			return
		}

		log.Error().Err(err.Err).Msg("unhandled error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   ErrCodeInternal,
			Message: "an unexpected error occurred",
			Code:    ErrCodeInternal,
		})
	}
}

// Recovery is gin middleware that recovers panics from route handlers.
// Capability, job, and bus handlers are recovered independently at their
// own call sites (spec.md §7) — this only guards the HTTP frontend.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.GetLogger().Error().Interface("panic", r).Msg("recovered from panic in HTTP handler")
				c.JSON(http.StatusInternalServerError, ErrorResponse{
					Error:   ErrCodeInternal,
					Message: "an unexpected error occurred",
					Code:    ErrCodeInternal,
				})
				c.Abort()
			}
		}()
		c.Next()
	}
}

// HandleError records err on the context and writes its response.
func HandleError(c *gin.Context, err error) {
	if appErr, ok := err.(*AppError); ok {
		c.Error(appErr)
		c.JSON(appErr.StatusCode, appErr.ToResponse())
		return
	}
	internalErr := Internal(err.Error())
	c.Error(internalErr)
	c.JSON(internalErr.StatusCode, internalErr.ToResponse())
}

// AbortWithError aborts the request immediately with the given error.
func AbortWithError(c *gin.Context, err *AppError) {
	c.Error(err)
	c.AbortWithStatusJSON(err.StatusCode, err.ToResponse())
}
