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
)

func setupResolverForTesting(now time.Time) (*OccurrenceResolver, *mocks.MockAttendanceRecordRepository) {
	mockRepo := &mocks.MockAttendanceRecordRepository{}
	resolver := NewOccurrenceResolver(mockRepo)
	resolver.nowFunc = func() time.Time { return now }
	return resolver, mockRepo
}

func TestOccurrenceResolver_Resolve_FirstJoin(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	resolver, mockRepo := setupResolverForTesting(now)

	mockRepo.On("GetLatest", mock.Anything, "meeting-1", "user-1").Return(
		nil, uint64(0), domain.NewNotFoundError("record not found"))

	resolution, err := resolver.Resolve(context.Background(), "meeting-1", "user-1")

	require.NoError(t, err)
	assert.Equal(t, 1, resolution.Occurrence)
	assert.True(t, resolution.IsNewOccurrence)
	assert.Nil(t, resolution.PriorRecord)
	mockRepo.AssertExpectations(t)
}

func TestOccurrenceResolver_Resolve_ClosedOccurrence(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	resolver, mockRepo := setupResolverForTesting(now)

	endTime := now.Add(-time.Hour)
	latest := &models.AttendanceRecord{
		UID:               "rec-1",
		MeetingUID:        "meeting-1",
		UserUID:           "user-1",
		Occurrence:        2,
		OccurrenceEndTime: &endTime,
	}
	mockRepo.On("GetLatest", mock.Anything, "meeting-1", "user-1").Return(latest, uint64(3), nil)

	resolution, err := resolver.Resolve(context.Background(), "meeting-1", "user-1")

	require.NoError(t, err)
	assert.Equal(t, 3, resolution.Occurrence)
	assert.True(t, resolution.IsNewOccurrence)
	assert.Equal(t, latest, resolution.PriorRecord)
	mockRepo.AssertExpectations(t)
}

func TestOccurrenceResolver_Resolve_HostStillActive(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	resolver, mockRepo := setupResolverForTesting(now)

	latest := &models.AttendanceRecord{
		UID:        "rec-1",
		MeetingUID: "meeting-1",
		UserUID:    "user-1",
		Occurrence: 1,
	}
	host := &models.AttendanceRecord{
		UID:        "rec-host",
		MeetingUID: "meeting-1",
		UserUID:    "host-1",
		Occurrence: 1,
		Role:       models.RoleHost,
		JoinTimes:  []time.Time{now.Add(-time.Hour)},
		IsActive:   true,
	}
	mockRepo.On("GetLatest", mock.Anything, "meeting-1", "user-1").Return(latest, uint64(2), nil)
	mockRepo.On("GetHostRecord", mock.Anything, "meeting-1", 1).Return(host, nil)

	resolution, err := resolver.Resolve(context.Background(), "meeting-1", "user-1")

	require.NoError(t, err)
	assert.Equal(t, 1, resolution.Occurrence)
	assert.False(t, resolution.IsNewOccurrence)
	assert.Empty(t, resolution.Anomaly)
	mockRepo.AssertExpectations(t)
}

func TestOccurrenceResolver_Resolve_HostLeftWithinGrace(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	resolver, mockRepo := setupResolverForTesting(now)

	// Host left 10 minutes ago, inside the 15-minute window.
	hostLeave := now.Add(-10 * time.Minute)
	latest := &models.AttendanceRecord{
		UID:        "rec-1",
		MeetingUID: "meeting-1",
		UserUID:    "user-1",
		Occurrence: 1,
	}
	host := &models.AttendanceRecord{
		UID:        "rec-host",
		MeetingUID: "meeting-1",
		UserUID:    "host-1",
		Occurrence: 1,
		Role:       models.RoleHost,
		JoinTimes:  []time.Time{now.Add(-time.Hour)},
		LeaveTimes: []time.Time{hostLeave},
	}
	mockRepo.On("GetLatest", mock.Anything, "meeting-1", "user-1").Return(latest, uint64(2), nil)
	mockRepo.On("GetHostRecord", mock.Anything, "meeting-1", 1).Return(host, nil)

	resolution, err := resolver.Resolve(context.Background(), "meeting-1", "user-1")

	require.NoError(t, err)
	assert.Equal(t, 1, resolution.Occurrence)
	assert.False(t, resolution.IsNewOccurrence)
	assert.Empty(t, resolution.Anomaly)
	mockRepo.AssertExpectations(t)
}

func TestOccurrenceResolver_Resolve_GraceExpiredClosesOccurrence(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	resolver, mockRepo := setupResolverForTesting(now)

	// Host left 16 minutes ago, past the 15-minute window.
	hostLeave := now.Add(-16 * time.Minute)
	latest := &models.AttendanceRecord{
		UID:        "rec-1",
		MeetingUID: "meeting-1",
		UserUID:    "user-1",
		Occurrence: 1,
		JoinTimes:  []time.Time{now.Add(-time.Hour)},
		LeaveTimes: []time.Time{now.Add(-20 * time.Minute)},
	}
	host := &models.AttendanceRecord{
		UID:        "rec-host",
		MeetingUID: "meeting-1",
		UserUID:    "host-1",
		Occurrence: 1,
		Role:       models.RoleHost,
		JoinTimes:  []time.Time{now.Add(-time.Hour)},
		LeaveTimes: []time.Time{hostLeave},
	}
	mockRepo.On("GetLatest", mock.Anything, "meeting-1", "user-1").Return(latest, uint64(2), nil)
	mockRepo.On("GetHostRecord", mock.Anything, "meeting-1", 1).Return(host, nil)
	mockRepo.On("ListByOccurrence", mock.Anything, "meeting-1", 1).Return(
		[]*models.AttendanceRecord{latest, host}, nil)
	mockRepo.On("GetWithRevision", mock.Anything, "meeting-1", "user-1", 1).Return(latest, uint64(2), nil)
	mockRepo.On("GetWithRevision", mock.Anything, "meeting-1", "host-1", 1).Return(host, uint64(4), nil)
	mockRepo.On("Update", mock.Anything, mock.MatchedBy(func(r *models.AttendanceRecord) bool {
		// Every record of the closed occurrence is stamped at the
		// host's last leave time.
		return r.OccurrenceEndTime != nil && r.OccurrenceEndTime.Equal(hostLeave)
	}), mock.AnythingOfType("uint64")).Return(nil).Times(2)

	resolution, err := resolver.Resolve(context.Background(), "meeting-1", "user-1")

	require.NoError(t, err)
	assert.Equal(t, 2, resolution.Occurrence)
	assert.True(t, resolution.IsNewOccurrence)
	mockRepo.AssertExpectations(t)
}

func TestOccurrenceResolver_Resolve_CloseStampsHostRecordLast(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	resolver, mockRepo := setupResolverForTesting(now)

	hostLeave := now.Add(-30 * time.Minute)
	latest := &models.AttendanceRecord{
		UID:        "rec-1",
		MeetingUID: "meeting-1",
		UserUID:    "user-1",
		Occurrence: 1,
		JoinTimes:  []time.Time{now.Add(-time.Hour)},
		LeaveTimes: []time.Time{now.Add(-40 * time.Minute)},
	}
	other := &models.AttendanceRecord{
		UID:        "rec-2",
		MeetingUID: "meeting-1",
		UserUID:    "user-2",
		Occurrence: 1,
		JoinTimes:  []time.Time{now.Add(-time.Hour)},
		LeaveTimes: []time.Time{now.Add(-35 * time.Minute)},
	}
	host := &models.AttendanceRecord{
		UID:        "rec-host",
		MeetingUID: "meeting-1",
		UserUID:    "host-1",
		Occurrence: 1,
		Role:       models.RoleHost,
		JoinTimes:  []time.Time{now.Add(-time.Hour)},
		LeaveTimes: []time.Time{hostLeave},
	}
	mockRepo.On("GetLatest", mock.Anything, "meeting-1", "user-1").Return(latest, uint64(2), nil)
	mockRepo.On("GetHostRecord", mock.Anything, "meeting-1", 1).Return(host, nil)
	// The listing leads with the host record; the close must still stamp
	// it after the participants, so a partial failure leaves the
	// occurrence resolvable for a retry.
	mockRepo.On("ListByOccurrence", mock.Anything, "meeting-1", 1).Return(
		[]*models.AttendanceRecord{host, latest, other}, nil)
	mockRepo.On("GetWithRevision", mock.Anything, "meeting-1", "user-1", 1).Return(latest, uint64(2), nil)
	mockRepo.On("GetWithRevision", mock.Anything, "meeting-1", "user-2", 1).Return(other, uint64(3), nil)
	mockRepo.On("GetWithRevision", mock.Anything, "meeting-1", "host-1", 1).Return(host, uint64(4), nil)

	var stamped []string
	mockRepo.On("Update", mock.Anything, mock.Anything, mock.AnythingOfType("uint64")).Run(func(args mock.Arguments) {
		stamped = append(stamped, args.Get(1).(*models.AttendanceRecord).UserUID)
	}).Return(nil).Times(3)

	resolution, err := resolver.Resolve(context.Background(), "meeting-1", "user-1")

	require.NoError(t, err)
	assert.Equal(t, 2, resolution.Occurrence)
	require.Len(t, stamped, 3)
	assert.Equal(t, "host-1", stamped[2])
	mockRepo.AssertExpectations(t)
}

func TestOccurrenceResolver_Resolve_NoHostRecordFailsOpen(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	resolver, mockRepo := setupResolverForTesting(now)

	latest := &models.AttendanceRecord{
		UID:        "rec-1",
		MeetingUID: "meeting-1",
		UserUID:    "user-1",
		Occurrence: 1,
	}
	mockRepo.On("GetLatest", mock.Anything, "meeting-1", "user-1").Return(latest, uint64(2), nil)
	mockRepo.On("GetHostRecord", mock.Anything, "meeting-1", 1).Return(
		nil, domain.NewNotFoundError("host record not found"))

	resolution, err := resolver.Resolve(context.Background(), "meeting-1", "user-1")

	require.NoError(t, err)
	assert.Equal(t, 1, resolution.Occurrence)
	assert.False(t, resolution.IsNewOccurrence)
	assert.NotEmpty(t, resolution.Anomaly)
	mockRepo.AssertExpectations(t)
}

func TestOccurrenceResolver_Resolve_InactiveHostWithoutLeaveFailsOpen(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	resolver, mockRepo := setupResolverForTesting(now)

	latest := &models.AttendanceRecord{
		UID:        "rec-1",
		MeetingUID: "meeting-1",
		UserUID:    "user-1",
		Occurrence: 1,
	}
	host := &models.AttendanceRecord{
		UID:        "rec-host",
		MeetingUID: "meeting-1",
		UserUID:    "host-1",
		Occurrence: 1,
		Role:       models.RoleHost,
	}
	mockRepo.On("GetLatest", mock.Anything, "meeting-1", "user-1").Return(latest, uint64(2), nil)
	mockRepo.On("GetHostRecord", mock.Anything, "meeting-1", 1).Return(host, nil)

	resolution, err := resolver.Resolve(context.Background(), "meeting-1", "user-1")

	require.NoError(t, err)
	assert.Equal(t, 1, resolution.Occurrence)
	assert.False(t, resolution.IsNewOccurrence)
	assert.NotEmpty(t, resolution.Anomaly)
	mockRepo.AssertExpectations(t)
}

func TestOccurrenceResolver_Resolve_CloseFailureFailsOpen(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	resolver, mockRepo := setupResolverForTesting(now)

	hostLeave := now.Add(-30 * time.Minute)
	latest := &models.AttendanceRecord{
		UID:        "rec-1",
		MeetingUID: "meeting-1",
		UserUID:    "user-1",
		Occurrence: 1,
	}
	host := &models.AttendanceRecord{
		UID:        "rec-host",
		MeetingUID: "meeting-1",
		UserUID:    "host-1",
		Occurrence: 1,
		Role:       models.RoleHost,
		JoinTimes:  []time.Time{now.Add(-time.Hour)},
		LeaveTimes: []time.Time{hostLeave},
	}
	mockRepo.On("GetLatest", mock.Anything, "meeting-1", "user-1").Return(latest, uint64(2), nil)
	mockRepo.On("GetHostRecord", mock.Anything, "meeting-1", 1).Return(host, nil)
	mockRepo.On("ListByOccurrence", mock.Anything, "meeting-1", 1).Return(
		nil, domain.NewStorageError("kv unavailable"))

	resolution, err := resolver.Resolve(context.Background(), "meeting-1", "user-1")

	// The close failed, so the join proceeds on the open occurrence.
	require.NoError(t, err)
	assert.Equal(t, 1, resolution.Occurrence)
	assert.False(t, resolution.IsNewOccurrence)
	assert.NotEmpty(t, resolution.Anomaly)
	mockRepo.AssertExpectations(t)
}

func TestOccurrenceResolver_Resolve_StorageErrorPropagates(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	resolver, mockRepo := setupResolverForTesting(now)

	mockRepo.On("GetLatest", mock.Anything, "meeting-1", "user-1").Return(
		nil, uint64(0), domain.NewStorageError("kv unavailable"))

	resolution, err := resolver.Resolve(context.Background(), "meeting-1", "user-1")

	assert.Error(t, err)
	assert.Equal(t, domain.ErrorTypeStorage, domain.GetErrorType(err))
	assert.Nil(t, resolution)
	mockRepo.AssertExpectations(t)
}
