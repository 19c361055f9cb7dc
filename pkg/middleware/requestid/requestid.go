// Package requestid tags every request with a correlation ID so log
// lines from one request can be stitched together across services.
package requestid

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// Header carries the request ID on both requests and responses.
	Header = "X-Request-ID"

	contextKey = "request_id"

	// Inbound IDs longer than this are treated as garbage and replaced.
	maxInboundLength = 128
)

// Middleware reuses a caller-supplied X-Request-ID when it is sane,
// otherwise mints a fresh UUID, and echoes the ID on the response.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(Header)
		if id == "" || len(id) > maxInboundLength {
			id = uuid.NewString()
		}

		c.Set(contextKey, id)
		c.Writer.Header().Set(Header, id)
		c.Next()
	}
}

// Value returns the request ID for the current request, or "" when the
// middleware did not run.
func Value(c *gin.Context) string {
	if v, ok := c.Get(contextKey); ok {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}
