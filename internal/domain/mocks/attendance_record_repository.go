// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/domain/models"
)

// MockAttendanceRecordRepository implements AttendanceRecordRepository for testing
type MockAttendanceRecordRepository struct {
	mock.Mock
}

func (m *MockAttendanceRecordRepository) Create(ctx context.Context, record *models.AttendanceRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockAttendanceRecordRepository) Get(ctx context.Context, meetingUID, userUID string, occurrence int) (*models.AttendanceRecord, error) {
	args := m.Called(ctx, meetingUID, userUID, occurrence)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AttendanceRecord), args.Error(1)
}

func (m *MockAttendanceRecordRepository) GetWithRevision(ctx context.Context, meetingUID, userUID string, occurrence int) (*models.AttendanceRecord, uint64, error) {
	args := m.Called(ctx, meetingUID, userUID, occurrence)
	if args.Get(0) == nil {
		return nil, args.Get(1).(uint64), args.Error(2)
	}
	return args.Get(0).(*models.AttendanceRecord), args.Get(1).(uint64), args.Error(2)
}

func (m *MockAttendanceRecordRepository) Update(ctx context.Context, record *models.AttendanceRecord, revision uint64) error {
	args := m.Called(ctx, record, revision)
	return args.Error(0)
}

func (m *MockAttendanceRecordRepository) GetLatest(ctx context.Context, meetingUID, userUID string) (*models.AttendanceRecord, uint64, error) {
	args := m.Called(ctx, meetingUID, userUID)
	if args.Get(0) == nil {
		return nil, args.Get(1).(uint64), args.Error(2)
	}
	return args.Get(0).(*models.AttendanceRecord), args.Get(1).(uint64), args.Error(2)
}

func (m *MockAttendanceRecordRepository) GetHostRecord(ctx context.Context, meetingUID string, occurrence int) (*models.AttendanceRecord, error) {
	args := m.Called(ctx, meetingUID, occurrence)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AttendanceRecord), args.Error(1)
}

func (m *MockAttendanceRecordRepository) ListByMeeting(ctx context.Context, meetingUID string) ([]*models.AttendanceRecord, error) {
	args := m.Called(ctx, meetingUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.AttendanceRecord), args.Error(1)
}

func (m *MockAttendanceRecordRepository) ListByOccurrence(ctx context.Context, meetingUID string, occurrence int) ([]*models.AttendanceRecord, error) {
	args := m.Called(ctx, meetingUID, occurrence)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.AttendanceRecord), args.Error(1)
}

func (m *MockAttendanceRecordRepository) ListByMeetingUser(ctx context.Context, meetingUID, userUID string) ([]*models.AttendanceRecord, error) {
	args := m.Called(ctx, meetingUID, userUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.AttendanceRecord), args.Error(1)
}

func (m *MockAttendanceRecordRepository) ListActiveByMeeting(ctx context.Context, meetingUID string) ([]*models.AttendanceRecord, error) {
	args := m.Called(ctx, meetingUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.AttendanceRecord), args.Error(1)
}
