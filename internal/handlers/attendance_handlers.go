// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package handlers contains the NATS message handlers of the attendance
// service.
package handlers

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/service"
)

// AttendanceHandler handles attendance-related messages and events.
type AttendanceHandler struct {
	attendanceService *service.AttendanceService
	directoryService  *service.MeetingDirectoryService
}

func NewAttendanceHandler(
	attendanceService *service.AttendanceService,
	directoryService *service.MeetingDirectoryService,
) *AttendanceHandler {
	return &AttendanceHandler{
		attendanceService: attendanceService,
		directoryService:  directoryService,
	}
}

func (h *AttendanceHandler) HandlerReady() bool {
	return h.attendanceService.ServiceReady() &&
		h.directoryService.ServiceReady()
}

// HandleMessage implements domain.MessageHandler interface
func (h *AttendanceHandler) HandleMessage(ctx context.Context, msg domain.Message) {
	subject := msg.Subject()
	ctx = logging.AppendCtx(ctx, slog.String("subject", subject))
	slog.DebugContext(ctx, "handling NATS message")

	handlers := map[string]func(ctx context.Context, msg domain.Message) ([]byte, error){
		models.AttendanceJoinSubject:           h.HandleJoin,
		models.AttendanceLeaveSubject:          h.HandleLeave,
		models.AttendanceSessionHistorySubject: h.HandleSessionHistory,
		models.MeetingDirectoryUpdatedSubject:  h.HandleMeetingDirectoryUpdated,
	}

	handler, ok := handlers[subject]
	if !ok {
		slog.WarnContext(ctx, "unknown subject")
		h.respond(ctx, msg, nil)
		return
	}

	response, err := handler(ctx, msg)
	if err != nil {
		slog.ErrorContext(ctx, "error handling message", logging.ErrKey, err)
		h.respondError(ctx, msg, err)
		return
	}

	h.respond(ctx, msg, response)
}

func (h *AttendanceHandler) respond(ctx context.Context, msg domain.Message, response []byte) {
	if !msg.HasReply() {
		slog.DebugContext(ctx, "handled NATS message (no reply expected)")
		return
	}
	if err := msg.Respond(response); err != nil {
		slog.ErrorContext(ctx, "error responding to NATS message", logging.ErrKey, err)
	}
}

// errorResponse is the reply envelope for failed request/reply operations.
type errorResponse struct {
	Error string `json:"error"`
	Type  string `json:"type"`
}

func (h *AttendanceHandler) respondError(ctx context.Context, msg domain.Message, handlerErr error) {
	if !msg.HasReply() {
		return
	}

	payload, err := json.Marshal(errorResponse{
		Error: handlerErr.Error(),
		Type:  domain.GetErrorType(handlerErr).String(),
	})
	if err != nil {
		payload = nil
	}
	if err := msg.Respond(payload); err != nil {
		slog.ErrorContext(ctx, "error responding to NATS message", logging.ErrKey, err)
	}
}

// HandleJoin processes a participant join request.
func (h *AttendanceHandler) HandleJoin(ctx context.Context, msg domain.Message) ([]byte, error) {
	var req models.JoinRequest
	if err := json.Unmarshal(msg.Data(), &req); err != nil {
		return nil, domain.NewValidationError("malformed join request", err)
	}

	ctx = logging.AppendCtx(ctx, slog.String("meeting_uid", req.MeetingUID))
	ctx = logging.AppendCtx(ctx, slog.String("user_uid", req.UserUID))

	result, err := h.attendanceService.HandleJoin(ctx, req)
	if err != nil {
		return nil, err
	}

	return json.Marshal(result)
}

// HandleLeave processes a participant leave request.
func (h *AttendanceHandler) HandleLeave(ctx context.Context, msg domain.Message) ([]byte, error) {
	var req models.LeaveRequest
	if err := json.Unmarshal(msg.Data(), &req); err != nil {
		return nil, domain.NewValidationError("malformed leave request", err)
	}

	ctx = logging.AppendCtx(ctx, slog.String("meeting_uid", req.MeetingUID))
	ctx = logging.AppendCtx(ctx, slog.String("user_uid", req.UserUID))

	result, err := h.attendanceService.HandleLeave(ctx, req)
	if err != nil {
		return nil, err
	}

	return json.Marshal(result)
}

// HandleSessionHistory returns a participant's session intervals.
func (h *AttendanceHandler) HandleSessionHistory(ctx context.Context, msg domain.Message) ([]byte, error) {
	var req models.SessionHistoryRequest
	if err := json.Unmarshal(msg.Data(), &req); err != nil {
		return nil, domain.NewValidationError("malformed session history request", err)
	}

	ctx = logging.AppendCtx(ctx, slog.String("meeting_uid", req.MeetingUID))
	ctx = logging.AppendCtx(ctx, slog.String("user_uid", req.UserUID))

	sessions, err := h.attendanceService.SessionHistory(ctx, req)
	if err != nil {
		return nil, err
	}

	return json.Marshal(sessions)
}

// HandleMeetingDirectoryUpdated applies a meeting directory event to the
// local read-model. These events carry no reply subject.
func (h *AttendanceHandler) HandleMeetingDirectoryUpdated(ctx context.Context, msg domain.Message) ([]byte, error) {
	var event models.MeetingDirectoryMessage
	if err := json.Unmarshal(msg.Data(), &event); err != nil {
		return nil, domain.NewValidationError("malformed meeting directory event", err)
	}

	if event.Meeting != nil {
		ctx = logging.AppendCtx(ctx, slog.String("meeting_uid", event.Meeting.UID))
	}

	if err := h.directoryService.UpsertMeeting(ctx, event); err != nil {
		return nil, err
	}

	return nil, nil
}
