// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/service"
)

// AttendanceAPI exposes join, leave, and session history over HTTP.
type AttendanceAPI struct {
	attendanceService *service.AttendanceService
}

// NewAttendanceAPI creates a new AttendanceAPI.
func NewAttendanceAPI(attendanceService *service.AttendanceService) *AttendanceAPI {
	return &AttendanceAPI{
		attendanceService: attendanceService,
	}
}

// Join handles POST /attendance/join.
func (a *AttendanceAPI) Join(c *gin.Context) {
	var req models.JoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, domain.NewValidationError("malformed join request", err))
		return
	}

	ctx := logging.AppendCtx(c.Request.Context(), slog.String("meeting_uid", req.MeetingUID))
	ctx = logging.AppendCtx(ctx, slog.String("user_uid", req.UserUID))

	result, err := a.attendanceService.HandleJoin(ctx, req)
	if err != nil {
		writeError(c, err)
		return
	}

	status := http.StatusOK
	if result.Action == models.JoinActionNewOccurrence {
		status = http.StatusCreated
	}
	c.JSON(status, result)
}

// Leave handles POST /attendance/leave.
func (a *AttendanceAPI) Leave(c *gin.Context) {
	var req models.LeaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, domain.NewValidationError("malformed leave request", err))
		return
	}

	ctx := logging.AppendCtx(c.Request.Context(), slog.String("meeting_uid", req.MeetingUID))
	ctx = logging.AppendCtx(ctx, slog.String("user_uid", req.UserUID))

	result, err := a.attendanceService.HandleLeave(ctx, req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// SessionHistory handles GET /attendance/meetings/:meeting_uid/users/:user_uid/sessions.
func (a *AttendanceAPI) SessionHistory(c *gin.Context) {
	req := models.SessionHistoryRequest{
		MeetingUID: c.Param("meeting_uid"),
		UserUID:    c.Param("user_uid"),
	}

	ctx := logging.AppendCtx(c.Request.Context(), slog.String("meeting_uid", req.MeetingUID))
	ctx = logging.AppendCtx(ctx, slog.String("user_uid", req.UserUID))

	sessions, err := a.attendanceService.SessionHistory(ctx, req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, sessions)
}
