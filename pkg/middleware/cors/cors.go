package cors

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	allowMethods  = "GET, POST, PUT, DELETE, OPTIONS"
	allowHeaders  = "Authorization, Content-Type, X-Request-ID"
	exposeHeaders = "Content-Disposition, X-Request-ID"
)

// New returns a CORS middleware. An empty allow list admits every origin but
// then never sends credentials; a listed origin is echoed back with credentials.
func New(allowedOrigins []string) gin.HandlerFunc {
	originSet := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		originSet[strings.TrimRight(origin, "/")] = struct{}{}
	}
	allowAll := len(originSet) == 0

	return func(c *gin.Context) {
		headers := c.Writer.Header()
		headers.Add("Vary", "Origin")

		origin := strings.TrimRight(c.GetHeader("Origin"), "/")
		switch {
		case origin == "":
		case allowAll:
			headers.Set("Access-Control-Allow-Origin", "*")
		default:
			if _, ok := originSet[origin]; ok {
				headers.Set("Access-Control-Allow-Origin", origin)
				headers.Set("Access-Control-Allow-Credentials", "true")
			}
		}
		headers.Set("Access-Control-Expose-Headers", exposeHeaders)

		if c.Request.Method == http.MethodOptions && c.GetHeader("Access-Control-Request-Method") != "" {
			headers.Set("Access-Control-Allow-Methods", allowMethods)
			headers.Set("Access-Control-Allow-Headers", allowHeaders)
			headers.Set("Access-Control-Max-Age", "600")
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
