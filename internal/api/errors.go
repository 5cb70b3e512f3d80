// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package api contains the gin HTTP handlers of the attendance service.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/domain"
)

// statusForErrorType maps the domain error taxonomy to HTTP status codes.
func statusForErrorType(errorType domain.ErrorType) int {
	switch errorType {
	case domain.ErrorTypeValidation:
		return http.StatusBadRequest
	case domain.ErrorTypeNotFound:
		return http.StatusNotFound
	case domain.ErrorTypeConflict:
		return http.StatusConflict
	case domain.ErrorTypeStorage:
		return http.StatusServiceUnavailable
	case domain.ErrorTypeCollaborator:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders a domain error as a JSON error response.
func writeError(c *gin.Context, err error) {
	errorType := domain.GetErrorType(err)
	c.JSON(statusForErrorType(errorType), gin.H{
		"error": err.Error(),
		"type":  errorType.String(),
	})
}
