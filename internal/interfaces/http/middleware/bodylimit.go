package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fleetrent/backend/internal/interfaces/http/dto"
)

// BodyLimit rejects requests whose body exceeds maxBytes. Declared lengths
// are rejected up front; chunked bodies are capped with a MaxBytesReader so
// oversized streams fail at read time.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge,
				dto.NewErrorResponse("REQUEST_TOO_LARGE", "Request body exceeds maximum allowed size"))
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
