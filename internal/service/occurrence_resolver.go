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

// OccurrenceResolution is the outcome of resolving which occurrence a join
// belongs to. Anomaly is set when a fail-open branch was taken; it is logged
// for offline audit but never fails the join.
type OccurrenceResolution struct {
	Occurrence      int
	IsNewOccurrence bool

	// PriorRecord is the participant's latest record, nil on first join.
	PriorRecord *models.AttendanceRecord

	Anomaly string
}

// OccurrenceResolver decides which occurrence a participant join belongs to,
// applying the host-rejoin grace period. Resolution favors presence
// continuity: every ambiguous branch reuses the open occurrence rather than
// risking a premature close.
type OccurrenceResolver struct {
	RecordRepository domain.AttendanceRecordRepository

	// nowFunc is swappable for tests.
	nowFunc func() time.Time
}

// NewOccurrenceResolver creates a new OccurrenceResolver.
func NewOccurrenceResolver(recordRepository domain.AttendanceRecordRepository) *OccurrenceResolver {
	return &OccurrenceResolver{
		RecordRepository: recordRepository,
		nowFunc:          func() time.Time { return time.Now().UTC() },
	}
}

// ServiceReady checks if the resolver is ready for use.
func (r *OccurrenceResolver) ServiceReady() bool {
	return r.RecordRepository != nil
}

// Resolve determines the occurrence number for a join of the given
// participant.
func (r *OccurrenceResolver) Resolve(ctx context.Context, meetingUID, userUID string) (*OccurrenceResolution, error) {
	latest, _, err := r.RecordRepository.GetLatest(ctx, meetingUID, userUID)
	if err != nil {
		if domain.GetErrorType(err) == domain.ErrorTypeNotFound {
			// First join of this participant for this meeting.
			return &OccurrenceResolution{Occurrence: 1, IsNewOccurrence: true}, nil
		}
		return nil, err
	}

	if latest.OccurrenceEndTime != nil {
		// The prior occurrence is formally closed.
		return &OccurrenceResolution{
			Occurrence:      latest.Occurrence + 1,
			IsNewOccurrence: true,
			PriorRecord:     latest,
		}, nil
	}

	resolution := r.resolveOpenOccurrence(ctx, meetingUID, latest)
	if resolution.Anomaly != "" {
		slog.WarnContext(ctx, "occurrence resolution anomaly, failing open",
			"meeting_uid", meetingUID,
			"user_uid", userUID,
			"occurrence", latest.Occurrence,
			"anomaly", resolution.Anomaly,
		)
	}
	return resolution, nil
}

// resolveOpenOccurrence applies the grace-period policy to a still-open
// occurrence.
func (r *OccurrenceResolver) resolveOpenOccurrence(ctx context.Context, meetingUID string, latest *models.AttendanceRecord) *OccurrenceResolution {
	reuse := &OccurrenceResolution{
		Occurrence:  latest.Occurrence,
		PriorRecord: latest,
	}

	host, err := r.RecordRepository.GetHostRecord(ctx, meetingUID, latest.Occurrence)
	if err != nil {
		if domain.GetErrorType(err) == domain.ErrorTypeNotFound {
			reuse.Anomaly = "open occurrence has no host record"
		} else {
			reuse.Anomaly = "host record lookup failed: " + err.Error()
		}
		return reuse
	}

	if host.IsActive {
		// Host is present; plain rejoin.
		return reuse
	}

	hostLeave := host.LastLeaveTime()
	if hostLeave == nil {
		reuse.Anomaly = "inactive host record has no leave timestamp"
		return reuse
	}

	if r.nowFunc().Sub(*hostLeave) <= constants.HostRejoinGracePeriod {
		// Still inside the window where the host may come back.
		return reuse
	}

	// The occurrence is abandoned. Close every record of it at the host's
	// last leave time, then hand out the next occurrence number.
	if err := r.closeOccurrence(ctx, meetingUID, latest.Occurrence, *hostLeave); err != nil {
		slog.ErrorContext(ctx, "failed to close abandoned occurrence",
			logging.ErrKey, err,
			"meeting_uid", meetingUID,
			"occurrence", latest.Occurrence,
		)
		reuse.Anomaly = "occurrence close failed: " + err.Error()
		return reuse
	}

	return &OccurrenceResolution{
		Occurrence:      latest.Occurrence + 1,
		IsNewOccurrence: true,
		PriorRecord:     latest,
	}
}

// closeOccurrence stamps OccurrenceEndTime on every record of the occurrence.
// Already-closed records are left untouched, so a retried close is a no-op.
// The host's record is stamped last: if the pass fails partway, the
// still-open host record keeps the occurrence resolvable and the next join
// retries the close from where it stopped.
func (r *OccurrenceResolver) closeOccurrence(ctx context.Context, meetingUID string, occurrence int, endTime time.Time) error {
	records, err := r.RecordRepository.ListByOccurrence(ctx, meetingUID, occurrence)
	if err != nil {
		return err
	}

	ordered := make([]*models.AttendanceRecord, 0, len(records))
	hosts := make([]*models.AttendanceRecord, 0, 1)
	for _, record := range records {
		if record.Role == models.RoleHost {
			hosts = append(hosts, record)
			continue
		}
		ordered = append(ordered, record)
	}
	ordered = append(ordered, hosts...)

	now := r.nowFunc()
	for _, record := range ordered {
		if record.OccurrenceEndTime != nil {
			continue
		}

		current, revision, err := r.RecordRepository.GetWithRevision(ctx, record.MeetingUID, record.UserUID, record.Occurrence)
		if err != nil {
			return err
		}
		if current.OccurrenceEndTime != nil {
			continue
		}

		current.OccurrenceEndTime = &endTime
		current.UpdatedAt = &now
		if err := r.RecordRepository.Update(ctx, current, revision); err != nil {
			return err
		}
	}

	slog.InfoContext(ctx, "closed abandoned occurrence",
		"meeting_uid", meetingUID,
		"occurrence", occurrence,
		"end_time", endTime,
	)
	return nil
}
