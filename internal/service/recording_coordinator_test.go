// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/domain/mocks"
	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-attendance-service/pkg/constants"
)

func setupCoordinatorForTesting(now time.Time) (*RecordingCoordinator, *mocks.MockMeetingRepository, *mocks.MockAttendanceRecordRepository, *mocks.MockRecordingControl, *mocks.MockMessageBuilder) {
	mockMeetingRepo := &mocks.MockMeetingRepository{}
	mockRecordRepo := &mocks.MockAttendanceRecordRepository{}
	mockControl := &mocks.MockRecordingControl{}
	mockBuilder := &mocks.MockMessageBuilder{}
	coordinator := NewRecordingCoordinator(mockMeetingRepo, mockRecordRepo, mockControl, mockBuilder)
	coordinator.nowFunc = func() time.Time { return now }
	return coordinator, mockMeetingRepo, mockRecordRepo, mockControl, mockBuilder
}

func TestRecordingCoordinator_MaybeStop_NoHostLikeRemains(t *testing.T) {
	now := time.Date(2025, 6, 1, 11, 0, 0, 0, time.UTC)
	coordinator, mockMeetingRepo, mockRecordRepo, mockControl, mockBuilder := setupCoordinatorForTesting(now)

	meeting := &models.Meeting{
		UID:              "meeting-1",
		RecordingEnabled: true,
	}
	// Only a plain participant is still active.
	mockMeetingRepo.On("GetWithRevision", mock.Anything, "meeting-1").Return(meeting, uint64(4), nil)
	mockRecordRepo.On("ListActiveByMeeting", mock.Anything, "meeting-1").Return(
		[]*models.AttendanceRecord{
			{UID: "rec-1", Role: models.RoleParticipant, IsActive: true},
		}, nil)
	mockControl.On("StopRecording", mock.Anything, "meeting-1").Return(
		&models.StopRecordingResult{Status: models.StopRecordingSuccess}, nil)
	mockMeetingRepo.On("Update", mock.Anything, mock.MatchedBy(func(mtg *models.Meeting) bool {
		return !mtg.RecordingEnabled
	}), uint64(4)).Return(nil)
	mockBuilder.On("SendRecordingAutoStopped", mock.Anything, mock.MatchedBy(func(msg models.RecordingAutoStoppedMessage) bool {
		return msg.MeetingUID == "meeting-1" && msg.Status == "success" && msg.StoppedAt.Equal(now)
	})).Return(nil)

	stopped, err := coordinator.MaybeStop(context.Background(), "meeting-1")

	require.NoError(t, err)
	assert.True(t, stopped)
	mockMeetingRepo.AssertExpectations(t)
	mockControl.AssertExpectations(t)
	mockBuilder.AssertExpectations(t)
}

func TestRecordingCoordinator_MaybeStop_BoundsStopCallDeadline(t *testing.T) {
	now := time.Date(2025, 6, 1, 11, 0, 0, 0, time.UTC)
	coordinator, mockMeetingRepo, mockRecordRepo, mockControl, mockBuilder := setupCoordinatorForTesting(now)

	meeting := &models.Meeting{UID: "meeting-1", RecordingEnabled: true}
	mockMeetingRepo.On("GetWithRevision", mock.Anything, "meeting-1").Return(meeting, uint64(4), nil)
	mockRecordRepo.On("ListActiveByMeeting", mock.Anything, "meeting-1").Return(
		[]*models.AttendanceRecord{}, nil)
	// A slow recording pipeline must not block the leave reply: the stop
	// call carries the collaborator deadline even when the caller's context
	// has none.
	mockControl.On("StopRecording", mock.MatchedBy(func(ctx context.Context) bool {
		deadline, ok := ctx.Deadline()
		return ok && time.Until(deadline) <= constants.CollaboratorCallTimeout
	}), "meeting-1").Return(
		&models.StopRecordingResult{Status: models.StopRecordingSuccess}, nil)
	mockMeetingRepo.On("Update", mock.Anything, mock.Anything, uint64(4)).Return(nil)
	mockBuilder.On("SendRecordingAutoStopped", mock.Anything, mock.Anything).Return(nil)

	stopped, err := coordinator.MaybeStop(context.Background(), "meeting-1")

	require.NoError(t, err)
	assert.True(t, stopped)
	mockControl.AssertExpectations(t)
}

func TestRecordingCoordinator_MaybeStop_CoHostStillActive(t *testing.T) {
	now := time.Date(2025, 6, 1, 11, 0, 0, 0, time.UTC)
	coordinator, mockMeetingRepo, mockRecordRepo, mockControl, _ := setupCoordinatorForTesting(now)

	meeting := &models.Meeting{UID: "meeting-1", RecordingEnabled: true}
	mockMeetingRepo.On("GetWithRevision", mock.Anything, "meeting-1").Return(meeting, uint64(4), nil)
	mockRecordRepo.On("ListActiveByMeeting", mock.Anything, "meeting-1").Return(
		[]*models.AttendanceRecord{
			{UID: "rec-1", Role: models.RoleCoHost, IsActive: true},
		}, nil)

	stopped, err := coordinator.MaybeStop(context.Background(), "meeting-1")

	require.NoError(t, err)
	assert.False(t, stopped)
	assert.True(t, meeting.RecordingEnabled)
	mockControl.AssertExpectations(t)
}

func TestRecordingCoordinator_MaybeStop_RecordingNotEnabled(t *testing.T) {
	now := time.Date(2025, 6, 1, 11, 0, 0, 0, time.UTC)
	coordinator, mockMeetingRepo, mockRecordRepo, mockControl, _ := setupCoordinatorForTesting(now)

	meeting := &models.Meeting{UID: "meeting-1"}
	mockMeetingRepo.On("GetWithRevision", mock.Anything, "meeting-1").Return(meeting, uint64(4), nil)

	stopped, err := coordinator.MaybeStop(context.Background(), "meeting-1")

	require.NoError(t, err)
	assert.False(t, stopped)
	mockRecordRepo.AssertExpectations(t)
	mockControl.AssertExpectations(t)
}

func TestRecordingCoordinator_MaybeStop_StopFailureKeepsFlag(t *testing.T) {
	now := time.Date(2025, 6, 1, 11, 0, 0, 0, time.UTC)
	coordinator, mockMeetingRepo, mockRecordRepo, mockControl, mockBuilder := setupCoordinatorForTesting(now)

	meeting := &models.Meeting{UID: "meeting-1", RecordingEnabled: true}
	mockMeetingRepo.On("GetWithRevision", mock.Anything, "meeting-1").Return(meeting, uint64(4), nil)
	mockRecordRepo.On("ListActiveByMeeting", mock.Anything, "meeting-1").Return(
		[]*models.AttendanceRecord{}, nil)
	mockControl.On("StopRecording", mock.Anything, "meeting-1").Return(
		nil, domain.NewCollaboratorError("recording pipeline unreachable"))

	stopped, err := coordinator.MaybeStop(context.Background(), "meeting-1")

	// Degraded, not fatal. The flag stays set so the next host-like
	// leave retries.
	require.NoError(t, err)
	assert.False(t, stopped)
	assert.True(t, meeting.RecordingEnabled)
	mockBuilder.AssertExpectations(t)
	mockMeetingRepo.AssertExpectations(t)
}

func TestRecordingCoordinator_MaybeStop_PipelineReportsFailure(t *testing.T) {
	now := time.Date(2025, 6, 1, 11, 0, 0, 0, time.UTC)
	coordinator, mockMeetingRepo, mockRecordRepo, mockControl, mockBuilder := setupCoordinatorForTesting(now)

	meeting := &models.Meeting{UID: "meeting-1", RecordingEnabled: true}
	mockMeetingRepo.On("GetWithRevision", mock.Anything, "meeting-1").Return(meeting, uint64(4), nil)
	mockRecordRepo.On("ListActiveByMeeting", mock.Anything, "meeting-1").Return(
		[]*models.AttendanceRecord{}, nil)
	mockControl.On("StopRecording", mock.Anything, "meeting-1").Return(
		&models.StopRecordingResult{Status: models.StopRecordingFailure, Message: "stream stuck"}, nil)

	stopped, err := coordinator.MaybeStop(context.Background(), "meeting-1")

	require.NoError(t, err)
	assert.False(t, stopped)
	assert.True(t, meeting.RecordingEnabled)
	mockBuilder.AssertExpectations(t)
}

func TestRecordingCoordinator_MaybeStop_NoActiveRecordingClearsFlag(t *testing.T) {
	now := time.Date(2025, 6, 1, 11, 0, 0, 0, time.UTC)
	coordinator, mockMeetingRepo, mockRecordRepo, mockControl, mockBuilder := setupCoordinatorForTesting(now)

	meeting := &models.Meeting{UID: "meeting-1", RecordingEnabled: true}
	mockMeetingRepo.On("GetWithRevision", mock.Anything, "meeting-1").Return(meeting, uint64(4), nil)
	mockRecordRepo.On("ListActiveByMeeting", mock.Anything, "meeting-1").Return(
		[]*models.AttendanceRecord{}, nil)
	mockControl.On("StopRecording", mock.Anything, "meeting-1").Return(
		&models.StopRecordingResult{Status: models.StopRecordingNoActiveRecording}, nil)
	mockMeetingRepo.On("Update", mock.Anything, mock.MatchedBy(func(mtg *models.Meeting) bool {
		return !mtg.RecordingEnabled
	}), uint64(4)).Return(nil)
	mockBuilder.On("SendRecordingAutoStopped", mock.Anything, mock.Anything).Return(nil)

	stopped, err := coordinator.MaybeStop(context.Background(), "meeting-1")

	// The flag is reconciled but nothing was actually stopped.
	require.NoError(t, err)
	assert.False(t, stopped)
	mockMeetingRepo.AssertExpectations(t)
}

func TestRecordingCoordinator_MaybeStop_ConflictOnFlagClearRetries(t *testing.T) {
	now := time.Date(2025, 6, 1, 11, 0, 0, 0, time.UTC)
	coordinator, mockMeetingRepo, mockRecordRepo, mockControl, mockBuilder := setupCoordinatorForTesting(now)

	meeting := &models.Meeting{UID: "meeting-1", RecordingEnabled: true}
	current := &models.Meeting{UID: "meeting-1", RecordingEnabled: true}
	mockMeetingRepo.On("GetWithRevision", mock.Anything, "meeting-1").Return(meeting, uint64(4), nil).Once()
	mockRecordRepo.On("ListActiveByMeeting", mock.Anything, "meeting-1").Return(
		[]*models.AttendanceRecord{}, nil)
	mockControl.On("StopRecording", mock.Anything, "meeting-1").Return(
		&models.StopRecordingResult{Status: models.StopRecordingSuccess}, nil)
	mockMeetingRepo.On("Update", mock.Anything, mock.Anything, uint64(4)).Return(
		domain.NewConflictError("revision mismatch")).Once()
	mockMeetingRepo.On("GetWithRevision", mock.Anything, "meeting-1").Return(current, uint64(5), nil).Once()
	mockMeetingRepo.On("Update", mock.Anything, mock.MatchedBy(func(mtg *models.Meeting) bool {
		return !mtg.RecordingEnabled
	}), uint64(5)).Return(nil).Once()
	mockBuilder.On("SendRecordingAutoStopped", mock.Anything, mock.Anything).Return(nil)

	stopped, err := coordinator.MaybeStop(context.Background(), "meeting-1")

	require.NoError(t, err)
	assert.True(t, stopped)
	mockMeetingRepo.AssertExpectations(t)
}

func TestRecordingCoordinator_MaybeStop_MeetingNotFound(t *testing.T) {
	now := time.Date(2025, 6, 1, 11, 0, 0, 0, time.UTC)
	coordinator, mockMeetingRepo, _, _, _ := setupCoordinatorForTesting(now)

	mockMeetingRepo.On("GetWithRevision", mock.Anything, "meeting-1").Return(
		nil, uint64(0), domain.NewNotFoundError("meeting not found"))

	stopped, err := coordinator.MaybeStop(context.Background(), "meeting-1")

	assert.Error(t, err)
	assert.False(t, stopped)
}
