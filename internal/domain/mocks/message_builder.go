// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/domain/models"
)

// MockMessageBuilder implements MessageBuilder for testing
type MockMessageBuilder struct {
	mock.Mock
}

func (m *MockMessageBuilder) SendIndexAttendanceRecord(ctx context.Context, action models.MessageAction, data models.AttendanceRecord) error {
	args := m.Called(ctx, action, data)
	return args.Error(0)
}

func (m *MockMessageBuilder) SendAttendanceRecordUpdated(ctx context.Context, data models.AttendanceRecordUpdatedMessage) error {
	args := m.Called(ctx, data)
	return args.Error(0)
}

func (m *MockMessageBuilder) SendRecordingAutoStopped(ctx context.Context, data models.RecordingAutoStoppedMessage) error {
	args := m.Called(ctx, data)
	return args.Error(0)
}
