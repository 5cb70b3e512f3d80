// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthHandler serves the liveness and readiness probes.
type HealthHandler struct {
	// ready reports whether all backing dependencies are usable.
	ready func() bool
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(ready func() bool) *HealthHandler {
	return &HealthHandler{
		ready: ready,
	}
}

// Livez responds to GET /livez.
func (h *HealthHandler) Livez(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

// Readyz responds to GET /readyz.
func (h *HealthHandler) Readyz(c *gin.Context) {
	if h.ready == nil || !h.ready() {
		c.String(http.StatusServiceUnavailable, "service not ready")
		return
	}
	c.String(http.StatusOK, "OK")
}
