package middleware

import (
	"log"
	"time"

	"github.com/eaglebank/accounts/shared/utils"
	"github.com/gin-gonic/gin"
)

const RequestIDHeader = "X-Request-ID"

// LoggingMiddleware tags each request with an id and logs one line once the
// response has been written.
func LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = utils.GenerateID("req")
		}
		c.Set("requestId", requestID)
		c.Header(RequestIDHeader, requestID)

		c.Next()

		log.Printf("[%s] %s %s -> %d (%s) client=%s",
			requestID,
			c.Request.Method,
			c.Request.URL.Path,
			c.Writer.Status(),
			time.Since(start),
			c.ClientIP(),
		)
	}
}

// GetRequestID returns the id assigned by LoggingMiddleware.
func GetRequestID(c *gin.Context) string {
	return c.GetString("requestId")
}
