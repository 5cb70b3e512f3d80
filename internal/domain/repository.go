// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package domain

import (
	"context"

	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/domain/models"
)

// AttendanceRecordRepository is the durable ledger of participant session
// records. Records are keyed by (meeting, user, occurrence); updates carry a
// revision for optimistic concurrency.
type AttendanceRecordRepository interface {
	Create(ctx context.Context, record *models.AttendanceRecord) error
	Get(ctx context.Context, meetingUID, userUID string, occurrence int) (*models.AttendanceRecord, error)
	GetWithRevision(ctx context.Context, meetingUID, userUID string, occurrence int) (*models.AttendanceRecord, uint64, error)
	Update(ctx context.Context, record *models.AttendanceRecord, revision uint64) error

	// GetLatest returns the record with the highest occurrence number for
	// the participant, with its revision.
	GetLatest(ctx context.Context, meetingUID, userUID string) (*models.AttendanceRecord, uint64, error)

	// GetHostRecord returns the host-role record of an occurrence, the
	// occurrence's temporal anchor.
	GetHostRecord(ctx context.Context, meetingUID string, occurrence int) (*models.AttendanceRecord, error)

	ListByMeeting(ctx context.Context, meetingUID string) ([]*models.AttendanceRecord, error)
	ListByOccurrence(ctx context.Context, meetingUID string, occurrence int) ([]*models.AttendanceRecord, error)
	ListByMeetingUser(ctx context.Context, meetingUID, userUID string) ([]*models.AttendanceRecord, error)
	ListActiveByMeeting(ctx context.Context, meetingUID string) ([]*models.AttendanceRecord, error)
}

// MeetingRepository is the local meeting read-model maintained from directory
// service events.
type MeetingRepository interface {
	Get(ctx context.Context, meetingUID string) (*models.Meeting, error)
	GetWithRevision(ctx context.Context, meetingUID string) (*models.Meeting, uint64, error)
	Put(ctx context.Context, meeting *models.Meeting) error
	Update(ctx context.Context, meeting *models.Meeting, revision uint64) error
	ListByStatuses(ctx context.Context, statuses ...models.MeetingStatus) ([]*models.Meeting, error)
}
