package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	frameOptions          = "SAMEORIGIN"
	contentTypeOptions    = "nosniff"
	contentSecurityPolicy = "default-src 'self'; object-src 'none'"
	referrerPolicy        = "strict-origin-when-cross-origin"

	// DefaultHSTSMaxAge is one year in seconds.
	DefaultHSTSMaxAge = 31536000

	corsAllowMethods = "GET, POST, PUT, DELETE, OPTIONS"
	corsAllowHeaders = "Content-Type, Authorization"
	corsMaxAge       = "600"
)

type SecurityConfig struct {
	// HSTSMaxAge in seconds; zero means DefaultHSTSMaxAge.
	HSTSMaxAge int
	// HSTSAlways sends Strict-Transport-Security on plain HTTP requests too.
	HSTSAlways bool
}

// SecurityHeaders sets the fixed security headers before the handler runs,
// so they are present on every response including errors, 404 and 405.
func SecurityHeaders(cfg SecurityConfig) gin.HandlerFunc {
	maxAge := cfg.HSTSMaxAge
	if maxAge <= 0 {
		maxAge = DefaultHSTSMaxAge
	}
	hsts := fmt.Sprintf("max-age=%d; includeSubDomains", maxAge)

	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Frame-Options", frameOptions)
		h.Set("X-Content-Type-Options", contentTypeOptions)
		h.Set("Content-Security-Policy", contentSecurityPolicy)
		h.Set("Referrer-Policy", referrerPolicy)
		if cfg.HSTSAlways || IsHTTPS(c.Request) {
			h.Set("Strict-Transport-Security", hsts)
		}
		c.Next()
	}
}

// IsHTTPS reports whether the request arrived over TLS, directly or through a
// proxy that set X-Forwarded-Proto.
func IsHTTPS(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	proto := r.Header.Get("X-Forwarded-Proto")
	if i := strings.IndexByte(proto, ','); i >= 0 {
		proto = proto[:i]
	}
	return strings.EqualFold(strings.TrimSpace(proto), "https")
}

type CORSConfig struct {
	// AllowedOrigins lists exact origins; empty or containing "*" allows any.
	AllowedOrigins []string
}

func (cfg CORSConfig) allowAll() bool {
	if len(cfg.AllowedOrigins) == 0 {
		return true
	}
	for _, o := range cfg.AllowedOrigins {
		if o == "*" {
			return true
		}
	}
	return false
}

// CORS attaches Access-Control-Allow-Origin to every response and answers
// OPTIONS preflights with 204 before routing reaches a handler.
func CORS(cfg CORSConfig) gin.HandlerFunc {
	allowAll := cfg.allowAll()
	allowed := make(map[string]struct{}, len(cfg.AllowedOrigins))
	for _, o := range cfg.AllowedOrigins {
		allowed[o] = struct{}{}
	}

	return func(c *gin.Context) {
		h := c.Writer.Header()
		if allowAll {
			h.Set("Access-Control-Allow-Origin", "*")
		} else {
			h.Add("Vary", "Origin")
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h.Set("Access-Control-Allow-Origin", origin)
				}
			}
		}

		if c.Request.Method == http.MethodOptions {
			h.Set("Access-Control-Allow-Methods", corsAllowMethods)
			h.Set("Access-Control-Allow-Headers", corsAllowHeaders)
			h.Set("Access-Control-Max-Age", corsMaxAge)
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
