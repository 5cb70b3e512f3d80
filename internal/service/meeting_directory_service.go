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
)

// MeetingDirectoryService maintains the local meeting read-model from
// directory service events. The directory is authoritative for meeting
// fields; the attendance engine only owns StartedAt and RecordingEnabled
// transitions, which an upsert must not clobber.
type MeetingDirectoryService struct {
	MeetingRepository domain.MeetingRepository

	nowFunc func() time.Time
}

// NewMeetingDirectoryService creates a new MeetingDirectoryService.
func NewMeetingDirectoryService(meetingRepository domain.MeetingRepository) *MeetingDirectoryService {
	return &MeetingDirectoryService{
		MeetingRepository: meetingRepository,
		nowFunc:           func() time.Time { return time.Now().UTC() },
	}
}

// ServiceReady checks if the service is ready for use.
func (s *MeetingDirectoryService) ServiceReady() bool {
	return s.MeetingRepository != nil
}

// UpsertMeeting applies a directory event to the read-model.
func (s *MeetingDirectoryService) UpsertMeeting(ctx context.Context, msg models.MeetingDirectoryMessage) error {
	if !s.ServiceReady() {
		slog.ErrorContext(ctx, "service not initialized", logging.PriorityCritical())
		return domain.NewInternalError("service not initialized")
	}
	if msg.Meeting == nil || msg.Meeting.UID == "" {
		return domain.NewValidationError("meeting with a UID is required")
	}

	incoming := *msg.Meeting
	now := s.nowFunc()
	incoming.UpdatedAt = &now

	existing, revision, err := s.MeetingRepository.GetWithRevision(ctx, incoming.UID)
	if err != nil {
		if domain.GetErrorType(err) != domain.ErrorTypeNotFound {
			return err
		}
		if incoming.CreatedAt == nil {
			incoming.CreatedAt = &now
		}
		if err := s.MeetingRepository.Put(ctx, &incoming); err != nil {
			return err
		}
		slog.InfoContext(ctx, "meeting added to read-model",
			"meeting_uid", incoming.UID, "status", incoming.Status)
		return nil
	}

	// Preserve locally owned state the directory knows nothing about.
	incoming.CreatedAt = existing.CreatedAt
	if incoming.StartedAt == nil {
		incoming.StartedAt = existing.StartedAt
	}

	if err := s.MeetingRepository.Update(ctx, &incoming, revision); err != nil {
		if domain.GetErrorType(err) == domain.ErrorTypeConflict {
			slog.WarnContext(ctx, "concurrent read-model write, directory event dropped",
				"meeting_uid", incoming.UID)
			return nil
		}
		return err
	}

	slog.InfoContext(ctx, "meeting read-model updated",
		"meeting_uid", incoming.UID, "status", incoming.Status)
	return nil
}
