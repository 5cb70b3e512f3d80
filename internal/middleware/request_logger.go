// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package middleware contains the gin middleware of the HTTP API.
package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/logging"
)

// RequestLogger logs HTTP requests and responses. Health check endpoints
// (/livez and /readyz) are excluded to reduce noise.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now().UTC()

		isHealthCheck := c.Request.URL.Path == "/livez" || c.Request.URL.Path == "/readyz"

		// Add request attributes to the context so they appear in all
		// request handler logs.
		ctx := c.Request.Context()
		ctx = logging.AppendCtx(ctx, slog.String("method", c.Request.Method))
		ctx = logging.AppendCtx(ctx, slog.String("path", c.Request.URL.Path))
		ctx = logging.AppendCtx(ctx, slog.String("query", c.Request.URL.RawQuery))
		ctx = logging.AppendCtx(ctx, slog.String("host", c.Request.Host))
		ctx = logging.AppendCtx(ctx, slog.String("user_agent", c.Request.UserAgent()))
		ctx = logging.AppendCtx(ctx, slog.String("remote_addr", c.Request.RemoteAddr))
		c.Request = c.Request.WithContext(ctx)

		if !isHealthCheck {
			slog.InfoContext(ctx, "HTTP request")
		}

		c.Next()

		if !isHealthCheck {
			slog.InfoContext(ctx, "HTTP response",
				"status", c.Writer.Status(),
				"duration", time.Since(start).String(),
			)
		}
	}
}
