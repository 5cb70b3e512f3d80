// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/domain/models"
)

// NatsAttendanceRecordRepository is the NATS KV store implementation of the
// attendance ledger. Keys are record/<meetingUID>/<userUID>/<occurrence>,
// base64-encoded per segment.
type NatsAttendanceRecordRepository struct {
	*NatsBaseRepository[models.AttendanceRecord]
	keyBuilder *KeyBuilder
}

// NewNatsAttendanceRecordRepository creates a new NATS KV attendance record repository
func NewNatsAttendanceRecordRepository(kvStore INatsKeyValue) *NatsAttendanceRecordRepository {
	return &NatsAttendanceRecordRepository{
		NatsBaseRepository: NewNatsBaseRepository[models.AttendanceRecord](kvStore, "attendance record"),
		keyBuilder:         NewKeyBuilder(),
	}
}

// Create stores a new attendance record in the ledger
func (r *NatsAttendanceRecordRepository) Create(ctx context.Context, record *models.AttendanceRecord) error {
	if record == nil {
		return domain.NewValidationError("attendance record is required")
	}
	if err := record.Validate(); err != nil {
		return err
	}

	key, err := r.keyBuilder.RecordKey(record.MeetingUID, record.UserUID, record.Occurrence)
	if err != nil {
		return domain.NewInternalError("failed to build attendance record key", err)
	}

	return r.Put(ctx, key, record)
}

// Get retrieves an attendance record by its composite key
func (r *NatsAttendanceRecordRepository) Get(ctx context.Context, meetingUID, userUID string, occurrence int) (*models.AttendanceRecord, error) {
	record, _, err := r.GetWithRevision(ctx, meetingUID, userUID, occurrence)
	return record, err
}

// GetWithRevision retrieves an attendance record along with its KV revision
func (r *NatsAttendanceRecordRepository) GetWithRevision(ctx context.Context, meetingUID, userUID string, occurrence int) (*models.AttendanceRecord, uint64, error) {
	key, err := r.keyBuilder.RecordKey(meetingUID, userUID, occurrence)
	if err != nil {
		return nil, 0, domain.NewInternalError("failed to build attendance record key", err)
	}

	return r.NatsBaseRepository.GetWithRevision(ctx, key)
}

// Update updates an attendance record with optimistic concurrency control
func (r *NatsAttendanceRecordRepository) Update(ctx context.Context, record *models.AttendanceRecord, revision uint64) error {
	if record == nil {
		return domain.NewValidationError("attendance record is required")
	}
	if err := record.Validate(); err != nil {
		return err
	}

	key, err := r.keyBuilder.RecordKey(record.MeetingUID, record.UserUID, record.Occurrence)
	if err != nil {
		return domain.NewInternalError("failed to build attendance record key", err)
	}

	return r.NatsBaseRepository.Update(ctx, key, record, revision)
}

// GetLatest returns the participant's record with the highest occurrence
// number, with its revision.
func (r *NatsAttendanceRecordRepository) GetLatest(ctx context.Context, meetingUID, userUID string) (*models.AttendanceRecord, uint64, error) {
	records, err := r.ListByMeetingUser(ctx, meetingUID, userUID)
	if err != nil {
		return nil, 0, err
	}
	if len(records) == 0 {
		return nil, 0, domain.NewNotFoundError(
			fmt.Sprintf("no attendance records for user '%s' in meeting '%s'", userUID, meetingUID))
	}

	latest := records[0]
	for _, record := range records[1:] {
		if record.Occurrence > latest.Occurrence {
			latest = record
		}
	}

	// Re-read the winner to pair the record with a current revision.
	return r.GetWithRevision(ctx, meetingUID, userUID, latest.Occurrence)
}

// GetHostRecord returns the host-role record of the given occurrence.
func (r *NatsAttendanceRecordRepository) GetHostRecord(ctx context.Context, meetingUID string, occurrence int) (*models.AttendanceRecord, error) {
	records, err := r.ListByOccurrence(ctx, meetingUID, occurrence)
	if err != nil {
		return nil, err
	}

	for _, record := range records {
		if record.Role == models.RoleHost {
			return record, nil
		}
	}

	return nil, domain.NewNotFoundError(
		fmt.Sprintf("no host record for occurrence %d of meeting '%s'", occurrence, meetingUID))
}

// ListByMeeting lists all attendance records of a meeting across occurrences
func (r *NatsAttendanceRecordRepository) ListByMeeting(ctx context.Context, meetingUID string) ([]*models.AttendanceRecord, error) {
	return r.ListEntitiesEncoded(ctx, r.keyBuilder.RecordPrefixMeeting(meetingUID), r.keyBuilder)
}

// ListByOccurrence lists all attendance records of a single meeting occurrence
func (r *NatsAttendanceRecordRepository) ListByOccurrence(ctx context.Context, meetingUID string, occurrence int) ([]*models.AttendanceRecord, error) {
	records, err := r.ListByMeeting(ctx, meetingUID)
	if err != nil {
		return nil, err
	}

	var matched []*models.AttendanceRecord
	for _, record := range records {
		if record.Occurrence == occurrence {
			matched = append(matched, record)
		}
	}

	return matched, nil
}

// ListByMeetingUser lists a participant's records across occurrences, ordered
// by occurrence number.
func (r *NatsAttendanceRecordRepository) ListByMeetingUser(ctx context.Context, meetingUID, userUID string) ([]*models.AttendanceRecord, error) {
	records, err := r.ListEntitiesEncoded(ctx, r.keyBuilder.RecordPrefixMeetingUser(meetingUID, userUID), r.keyBuilder)
	if err != nil {
		return nil, err
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].Occurrence < records[j].Occurrence
	})

	return records, nil
}

// ListActiveByMeeting lists the records of participants currently marked
// active in a meeting.
func (r *NatsAttendanceRecordRepository) ListActiveByMeeting(ctx context.Context, meetingUID string) ([]*models.AttendanceRecord, error) {
	records, err := r.ListByMeeting(ctx, meetingUID)
	if err != nil {
		return nil, err
	}

	var active []*models.AttendanceRecord
	for _, record := range records {
		if record.IsActive {
			active = append(active, record)
		}
	}

	slog.DebugContext(ctx, "listed active attendance records",
		"meeting_uid", meetingUID, "count", len(active))

	return active, nil
}
