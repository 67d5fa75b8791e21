package http

import (
	"crypto/subtle"
	"encoding/base64"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	requestIDHeader = "X-Request-ID"
	basicPrefix     = "Basic "
	authRealm       = `Basic realm="catalog"`
)

func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(requestIDHeader, requestID)
		c.Set(requestIDHeader, requestID)
		c.Next()
	}
}

func AccessLogMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		requestID, _ := c.Get(requestIDHeader)
		logger.Info("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"request_id", requestID,
			"client_ip", c.ClientIP(),
		)
	}
}

// BasicAuthMiddleware authorizes requests against a static credential map.
// A missing, malformed, or non-Basic header is an authentication failure
// (401); a well-formed pair naming an unknown user or carrying the wrong
// secret is an explicit deny (403).
func BasicAuthMiddleware(users map[string]string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, basicPrefix) {
			unauthenticated(c)
			return
		}

		decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(header, basicPrefix))
		if err != nil {
			unauthenticated(c)
			return
		}

		username, secret, ok := strings.Cut(string(decoded), ":")
		if !ok {
			unauthenticated(c)
			return
		}

		expected, known := users[username]
		if !known || subtle.ConstantTimeCompare([]byte(secret), []byte(expected)) != 1 {
			c.AbortWithStatusJSON(http.StatusForbidden, errorResponse{Error: "access denied"})
			return
		}

		c.Next()
	}
}

func unauthenticated(c *gin.Context) {
	c.Header("WWW-Authenticate", authRealm)
	c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Error: "missing or malformed credentials"})
}
