// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package middleware

import (
	"context"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-attendance-service/pkg/constants"
)

// RequestID propagates the caller's request ID, generating one when absent,
// and stores it on the request context for log correlation.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(constants.RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ctx := context.WithValue(c.Request.Context(), constants.RequestIDContextID, requestID)
		ctx = logging.AppendCtx(ctx, slog.String("request_id", requestID))
		c.Request = c.Request.WithContext(ctx)

		c.Writer.Header().Set(constants.RequestIDHeader, requestID)
		c.Next()
	}
}
