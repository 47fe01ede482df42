package requestid

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Header is the request/response header carrying the request ID.
const Header = "X-Request-ID"

const contextKey = "request_id"

// Middleware tags every request with an ID. A caller-supplied X-Request-ID
// is kept so IDs stay stable across proxies; otherwise a fresh UUID is
// generated. The ID is echoed on the response and stored in the gin context
// for the access logger.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(Header)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(contextKey, id)
		c.Writer.Header().Set(Header, id)
		c.Next()
	}
}

// Value reads the request ID back out of the gin context. Empty when the
// middleware is not installed.
func Value(c *gin.Context) string {
	id, _ := c.Value(contextKey).(string)
	return id
}
