// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-attendance-service/pkg/constants"
)

// RecordingCoordinator stops an active recording once no host or co-host
// remains in the meeting. The meeting itself stays active so a host can
// rejoin; recording is not automatically resumed when they do.
type RecordingCoordinator struct {
	MeetingRepository domain.MeetingRepository
	RecordRepository  domain.AttendanceRecordRepository
	RecordingControl  domain.RecordingControl
	MessageBuilder    domain.MessageBuilder

	nowFunc func() time.Time
}

// NewRecordingCoordinator creates a new RecordingCoordinator.
func NewRecordingCoordinator(
	meetingRepository domain.MeetingRepository,
	recordRepository domain.AttendanceRecordRepository,
	recordingControl domain.RecordingControl,
	messageBuilder domain.MessageBuilder,
) *RecordingCoordinator {
	return &RecordingCoordinator{
		MeetingRepository: meetingRepository,
		RecordRepository:  recordRepository,
		RecordingControl:  recordingControl,
		MessageBuilder:    messageBuilder,
		nowFunc:           func() time.Time { return time.Now().UTC() },
	}
}

// ServiceReady checks if the coordinator is ready for use.
func (rc *RecordingCoordinator) ServiceReady() bool {
	return rc.MeetingRepository != nil &&
		rc.RecordRepository != nil &&
		rc.RecordingControl != nil &&
		rc.MessageBuilder != nil
}

// MaybeStop stops the meeting's recording when recording is enabled and no
// host-like participant is still active. It returns true only when a
// recording was actually stopped. A failed stop keeps the recording flag set
// so the next host-like leave retries the stop.
func (rc *RecordingCoordinator) MaybeStop(ctx context.Context, meetingUID string) (bool, error) {
	meeting, revision, err := rc.MeetingRepository.GetWithRevision(ctx, meetingUID)
	if err != nil {
		return false, err
	}
	if !meeting.RecordingEnabled {
		return false, nil
	}

	active, err := rc.RecordRepository.ListActiveByMeeting(ctx, meetingUID)
	if err != nil {
		return false, err
	}
	for _, record := range active {
		if record.Role.IsHostLike() {
			// A host or co-host is still present.
			return false, nil
		}
	}

	// The stop call runs inside the leave reply path, so it gets the same
	// short deadline as the other collaborators. The client's internal
	// retries stop once the deadline expires.
	stopCtx, cancel := context.WithTimeout(ctx, constants.CollaboratorCallTimeout)
	defer cancel()

	result, err := rc.RecordingControl.StopRecording(stopCtx, meetingUID)
	if err != nil {
		// Degraded, not fatal: the flag stays set and the next
		// host-like leave will retry.
		slog.ErrorContext(ctx, "failed to stop recording",
			logging.ErrKey, err, "meeting_uid", meetingUID,
			logging.PriorityCritical())
		return false, nil
	}
	if result.Status == models.StopRecordingFailure {
		slog.ErrorContext(ctx, "recording pipeline reported stop failure",
			"meeting_uid", meetingUID, "message", result.Message,
			logging.PriorityCritical())
		return false, nil
	}

	rc.clearRecordingFlag(ctx, meeting, revision)

	stoppedAt := rc.nowFunc()
	if err := rc.MessageBuilder.SendRecordingAutoStopped(ctx, models.RecordingAutoStoppedMessage{
		MeetingUID: meetingUID,
		Status:     string(result.Status),
		StoppedAt:  stoppedAt,
	}); err != nil {
		slog.ErrorContext(ctx, "failed to publish recording auto-stop event",
			logging.ErrKey, err, "meeting_uid", meetingUID)
	}

	slog.InfoContext(ctx, "recording auto-stop completed",
		"meeting_uid", meetingUID, "status", result.Status)

	return result.Stopped(), nil
}

// clearRecordingFlag marks the meeting as no longer recording. A revision
// conflict means the read-model changed underneath; one re-read retry covers
// the common case.
func (rc *RecordingCoordinator) clearRecordingFlag(ctx context.Context, meeting *models.Meeting, revision uint64) {
	now := rc.nowFunc()
	meeting.RecordingEnabled = false
	meeting.UpdatedAt = &now

	err := rc.MeetingRepository.Update(ctx, meeting, revision)
	if err != nil && domain.GetErrorType(err) == domain.ErrorTypeConflict {
		current, currentRevision, getErr := rc.MeetingRepository.GetWithRevision(ctx, meeting.UID)
		if getErr != nil {
			err = getErr
		} else if !current.RecordingEnabled {
			return
		} else {
			current.RecordingEnabled = false
			current.UpdatedAt = &now
			err = rc.MeetingRepository.Update(ctx, current, currentRevision)
		}
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to clear recording flag",
			logging.ErrKey, err, "meeting_uid", meeting.UID)
	}
}
