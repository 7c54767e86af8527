package utils

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// RespondError writes err as a JSON error body and aborts the chain.
// Errors that are not an AppError are treated as internal and their text is
// never shown to the client.
func RespondError(c *gin.Context, err error) {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		appErr = WrapInternal(err, "Internal server error")
	}

	status := appErr.StatusCode()
	if status >= http.StatusInternalServerError {
		log.Error().
			Err(errors.Unwrap(appErr)).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Msg(appErr.Message)
	}

	body := gin.H{"error": appErr.Message}
	if len(appErr.Fields) > 0 {
		body["errors"] = appErr.Fields
	}
	c.AbortWithStatusJSON(status, body)
}
