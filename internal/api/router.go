// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/middleware"
)

// NewRouter builds the HTTP router.
func NewRouter(attendanceAPI *AttendanceAPI, health *HealthHandler) http.Handler {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger())

	r.GET("/livez", health.Livez)
	r.GET("/readyz", health.Readyz)

	attendance := r.Group("/attendance")
	{
		attendance.POST("/join", attendanceAPI.Join)
		attendance.POST("/leave", attendanceAPI.Leave)
		attendance.GET("/meetings/:meeting_uid/users/:user_uid/sessions", attendanceAPI.SessionHistory)
	}

	return r
}
