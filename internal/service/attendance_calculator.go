// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/logging"
)

// round2 rounds to two decimal places, the precision of all stored scores.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// AttendanceCalculator recomputes derived attendance scores for every
// participant record of a meeting. It runs synchronously inside a host or
// co-host leave, one pass at a time per meeting.
type AttendanceCalculator struct {
	RecordRepository domain.AttendanceRecordRepository
	AttendanceScorer domain.AttendanceScorer
	MessageBuilder   domain.MessageBuilder
}

// NewAttendanceCalculator creates a new AttendanceCalculator.
func NewAttendanceCalculator(
	recordRepository domain.AttendanceRecordRepository,
	attendanceScorer domain.AttendanceScorer,
	messageBuilder domain.MessageBuilder,
) *AttendanceCalculator {
	return &AttendanceCalculator{
		RecordRepository: recordRepository,
		AttendanceScorer: attendanceScorer,
		MessageBuilder:   messageBuilder,
	}
}

// ServiceReady checks if the calculator is ready for use.
func (c *AttendanceCalculator) ServiceReady() bool {
	return c.RecordRepository != nil &&
		c.AttendanceScorer != nil &&
		c.MessageBuilder != nil
}

// Recalculate recomputes attendance scores for all records of the meeting.
// departedLeave is the just-departed host/co-host's effective leave time; it
// serves as a provisional, non-persisted leave for still-active participants
// so they can be scored without contaminating their stored sequences.
// It returns true when at least one record was updated.
func (c *AttendanceCalculator) Recalculate(ctx context.Context, meeting *models.Meeting, departedLeave time.Time) (bool, error) {
	if meeting == nil {
		return false, domain.NewValidationError("meeting is required")
	}

	records, err := c.RecordRepository.ListByMeeting(ctx, meeting.UID)
	if err != nil {
		return false, err
	}
	if len(records) == 0 {
		return false, nil
	}

	byOccurrence := make(map[int][]*models.AttendanceRecord)
	for _, record := range records {
		byOccurrence[record.Occurrence] = append(byOccurrence[record.Occurrence], record)
	}

	occurrences := make([]int, 0, len(byOccurrence))
	for occurrence := range byOccurrence {
		occurrences = append(occurrences, occurrence)
	}
	sort.Ints(occurrences)

	updated := false
	for _, occurrence := range occurrences {
		if c.recalculateOccurrence(ctx, meeting, occurrence, byOccurrence[occurrence], departedLeave) {
			updated = true
		}
	}

	// Series-wide averages depend on the per-occurrence scores written
	// above, so they run as a second pass.
	if c.applyOverallAttendance(ctx, meeting, records) {
		updated = true
	}

	return updated, nil
}

// recalculateOccurrence scores one occurrence against its host's duration.
// Returns true when any record was written.
func (c *AttendanceCalculator) recalculateOccurrence(ctx context.Context, meeting *models.Meeting, occurrence int, records []*models.AttendanceRecord, departedLeave time.Time) bool {
	var host *models.AttendanceRecord
	for _, record := range records {
		if record.Role == models.RoleHost {
			host = record
			break
		}
	}
	if host == nil {
		slog.WarnContext(ctx, "occurrence has no host record, skipping attendance pass",
			"meeting_uid", meeting.UID, "occurrence", occurrence)
		return false
	}

	hostDuration := c.effectiveDuration(host, departedLeave)
	if hostDuration == 0 {
		// No meaningful denominator; logged, not retried.
		slog.WarnContext(ctx, "host duration is zero, skipping attendance pass",
			"meeting_uid", meeting.UID, "occurrence", occurrence)
		return false
	}

	updated := false
	for _, record := range records {
		duration := c.effectiveDuration(record, departedLeave)

		var hostBasedPct float64
		if record.Role == models.RoleHost {
			// The host anchors the occurrence.
			hostBasedPct = 100
		} else {
			hostBasedPct = math.Min(100, round2(duration/hostDuration*100))
		}

		aiBasedPct := c.aiScore(ctx, meeting.UID, record.UserUID)
		participantPct := math.Min(100, round2((hostBasedPct+aiBasedPct)/2))

		if c.writeScores(ctx, record, hostBasedPct, participantPct) {
			updated = true
		}
	}

	return updated
}

// effectiveDuration computes a record's duration, substituting the departed
// host's leave time for records whose trailing session is still open.
func (c *AttendanceCalculator) effectiveDuration(record *models.AttendanceRecord, departedLeave time.Time) float64 {
	if record.IsActive {
		return record.DurationMinutesWithFallback(departedLeave)
	}
	return record.DurationMinutes()
}

// aiScore looks up the vision-derived score, degrading to zero when the
// scorer has nothing or is unreachable.
func (c *AttendanceCalculator) aiScore(ctx context.Context, meetingUID, userUID string) float64 {
	score, err := c.AttendanceScorer.ScoreFor(ctx, meetingUID, userUID)
	if err != nil {
		if domain.GetErrorType(err) != domain.ErrorTypeNotFound {
			slog.WarnContext(ctx, "attendance scorer unavailable, defaulting to zero",
				logging.ErrKey, err, "meeting_uid", meetingUID, "user_uid", userUID)
		}
		return 0
	}
	return math.Min(100, math.Max(0, score))
}

// writeScores persists the derived scores on a record. Scores are written
// regardless of the record's activity state so participants who left earlier
// in the occurrence still receive final figures.
func (c *AttendanceCalculator) writeScores(ctx context.Context, record *models.AttendanceRecord, hostBasedPct, participantPct float64) bool {
	current, revision, err := c.RecordRepository.GetWithRevision(ctx, record.MeetingUID, record.UserUID, record.Occurrence)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load record for score write",
			logging.ErrKey, err, "meeting_uid", record.MeetingUID,
			"user_uid", record.UserUID, "occurrence", record.Occurrence)
		return false
	}

	now := time.Now().UTC()
	current.HostAttendancePct = &hostBasedPct
	current.ParticipantAttendancePct = &participantPct
	current.UpdatedAt = &now

	if err := c.RecordRepository.Update(ctx, current, revision); err != nil {
		slog.ErrorContext(ctx, "failed to write attendance scores",
			logging.ErrKey, err, "meeting_uid", record.MeetingUID,
			"user_uid", record.UserUID, "occurrence", record.Occurrence)
		return false
	}

	// Keep the in-memory view coherent for the overall-attendance pass.
	record.HostAttendancePct = &hostBasedPct
	record.ParticipantAttendancePct = &participantPct

	if err := c.MessageBuilder.SendIndexAttendanceRecord(ctx, models.ActionUpdated, *current); err != nil {
		slog.ErrorContext(ctx, "failed to index attendance record", logging.ErrKey, err,
			"meeting_uid", record.MeetingUID, "user_uid", record.UserUID)
	}

	return true
}

// applyOverallAttendance maintains the series-wide average for recurring
// meetings. Host rows are excluded from the average; for non-recurring
// meetings the field is explicitly cleared.
func (c *AttendanceCalculator) applyOverallAttendance(ctx context.Context, meeting *models.Meeting, records []*models.AttendanceRecord) bool {
	updated := false

	if !meeting.IsRecurring() {
		for _, record := range records {
			if record.OverallAttendancePct == nil {
				continue
			}
			if c.writeOverall(ctx, record, nil) {
				updated = true
			}
		}
		return updated
	}

	type userAverage struct {
		sum   float64
		count int
	}
	averages := make(map[string]*userAverage)
	for _, record := range records {
		if record.Role == models.RoleHost || record.ParticipantAttendancePct == nil {
			continue
		}
		avg, ok := averages[record.UserUID]
		if !ok {
			avg = &userAverage{}
			averages[record.UserUID] = avg
		}
		avg.sum += *record.ParticipantAttendancePct
		avg.count++
	}

	for _, record := range records {
		if record.Role == models.RoleHost {
			continue
		}
		avg, ok := averages[record.UserUID]
		if !ok || avg.count == 0 {
			continue
		}
		overall := round2(avg.sum / float64(avg.count))
		if record.OverallAttendancePct != nil && *record.OverallAttendancePct == overall {
			continue
		}
		if c.writeOverall(ctx, record, &overall) {
			updated = true
		}
	}

	return updated
}

func (c *AttendanceCalculator) writeOverall(ctx context.Context, record *models.AttendanceRecord, overall *float64) bool {
	current, revision, err := c.RecordRepository.GetWithRevision(ctx, record.MeetingUID, record.UserUID, record.Occurrence)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load record for overall attendance write",
			logging.ErrKey, err, "meeting_uid", record.MeetingUID,
			"user_uid", record.UserUID, "occurrence", record.Occurrence)
		return false
	}

	now := time.Now().UTC()
	current.OverallAttendancePct = overall
	current.UpdatedAt = &now

	if err := c.RecordRepository.Update(ctx, current, revision); err != nil {
		slog.ErrorContext(ctx, "failed to write overall attendance",
			logging.ErrKey, err, "meeting_uid", record.MeetingUID,
			"user_uid", record.UserUID, "occurrence", record.Occurrence)
		return false
	}

	record.OverallAttendancePct = overall
	return true
}
