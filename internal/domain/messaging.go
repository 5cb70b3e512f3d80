// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package domain

import (
	"context"

	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/domain/models"
)

// Message represents a domain message interface
type Message interface {
	Subject() string
	Data() []byte
	Respond(data []byte) error
	HasReply() bool
}

// MessageHandler defines how the service handles incoming messages
type MessageHandler interface {
	HandleMessage(ctx context.Context, msg Message)
	HandlerReady() bool
}

// AttendanceRecordIndexSender handles indexing operations for attendance records.
type AttendanceRecordIndexSender interface {
	SendIndexAttendanceRecord(ctx context.Context, action models.MessageAction, data models.AttendanceRecord) error
}

// AttendanceEventSender handles attendance lifecycle events.
type AttendanceEventSender interface {
	SendAttendanceRecordUpdated(ctx context.Context, data models.AttendanceRecordUpdatedMessage) error
	SendRecordingAutoStopped(ctx context.Context, data models.RecordingAutoStoppedMessage) error
}

// MessageBuilder composes all messaging capabilities of the service.
type MessageBuilder interface {
	AttendanceRecordIndexSender
	AttendanceEventSender
}
