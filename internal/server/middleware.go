// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/pdiddy/menu-engine/pkg/types"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"

	// statusClientClosed is reported when the caller went away mid-request.
	statusClientClosed = 499
)

// requestID tags each request with the caller's X-Request-ID or a new UUID.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"request_id", c.GetString(requestIDKey))
	}
}

// errorResponder turns the last error attached by a handler into a JSON
// response.
func errorResponder(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err
		status := statusFor(err)
		body := gin.H{"error": err.Error(), "requestId": c.GetString(requestIDKey)}

		var se *types.StageError
		if errors.As(err, &se) {
			body["stage"] = se.Stage
			if len(se.Reasons) > 0 {
				body["reasons"] = se.Reasons
			}
		}
		if status >= http.StatusInternalServerError {
			logger.Error("request failed", "error", err, "request_id", c.GetString(requestIDKey))
		}
		c.JSON(status, body)
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, types.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, types.ErrNotFound), errors.Is(err, types.ErrNoMenuPhotos):
		return http.StatusNotFound
	case errors.Is(err, types.ErrNoTextRecognized), errors.Is(err, types.ErrNoStructureExtracted):
		return http.StatusUnprocessableEntity
	case errors.Is(err, types.ErrRateLimited):
		return http.StatusServiceUnavailable
	case errors.Is(err, types.ErrUpstreamUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return statusClientClosed
	default:
		return http.StatusInternalServerError
	}
}

// requireAdmin accepts only bearer tokens signed with secret (HS256) that
// carry role "admin".
func requireAdmin(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format, use 'Bearer <token>'"})
			return
		}

		claims := jwt.MapClaims{}
		token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
			return secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		if role, _ := claims["role"].(string); role != "admin" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin role required"})
			return
		}
		sub, _ := claims.GetSubject()
		c.Set("subject", sub)
		c.Next()
	}
}
