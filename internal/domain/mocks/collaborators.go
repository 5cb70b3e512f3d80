// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/domain/models"
)

// MockPresenceSource implements PresenceSource for testing
type MockPresenceSource struct {
	mock.Mock
}

func (m *MockPresenceSource) ListOccupants(ctx context.Context, roomUID string) ([]string, error) {
	args := m.Called(ctx, roomUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// MockRecordingControl implements RecordingControl for testing
type MockRecordingControl struct {
	mock.Mock
}

func (m *MockRecordingControl) StopRecording(ctx context.Context, meetingUID string) (*models.StopRecordingResult, error) {
	args := m.Called(ctx, meetingUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.StopRecordingResult), args.Error(1)
}

// MockAttendanceScorer implements AttendanceScorer for testing
type MockAttendanceScorer struct {
	mock.Mock
}

func (m *MockAttendanceScorer) ScoreFor(ctx context.Context, meetingUID, userUID string) (float64, error) {
	args := m.Called(ctx, meetingUID, userUID)
	return args.Get(0).(float64), args.Error(1)
}
