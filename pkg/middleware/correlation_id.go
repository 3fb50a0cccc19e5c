package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/richxcame/carwash-pricing/pkg/logger"
)

// CorrelationIDHeader carries the request id in both directions
const CorrelationIDHeader = "X-Request-ID"

const maxCorrelationIDLength = 128

// CorrelationID adopts the caller's X-Request-ID when it is usable and mints
// a UUID otherwise. The id is echoed on the response and attached to the
// request context, where logger.WithContext picks it up.
func CorrelationID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(CorrelationIDHeader)
		if !usableCorrelationID(id) {
			id = uuid.NewString()
		}

		c.Request = c.Request.WithContext(logger.ContextWithCorrelationID(c.Request.Context(), id))
		c.Header(CorrelationIDHeader, id)
		c.Next()
	}
}

// GetCorrelationID returns the id CorrelationID attached, or ""
func GetCorrelationID(c *gin.Context) string {
	return logger.CorrelationIDFromContext(c.Request.Context())
}

// usableCorrelationID rejects empty, oversized and non-printable ids so a
// caller cannot inject log lines through the header.
func usableCorrelationID(id string) bool {
	if id == "" || len(id) > maxCorrelationIDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < 0x21 || id[i] > 0x7e {
			return false
		}
	}
	return true
}
