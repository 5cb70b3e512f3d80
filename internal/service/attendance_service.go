// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-attendance-service/pkg/concurrent"
)

// AttendanceService processes join and leave signals against the attendance
// ledger. Explicit client calls and reconciler-synthesized leaves go through
// the same leave path, so both observe identical invariants.
type AttendanceService struct {
	MeetingRepository    domain.MeetingRepository
	RecordRepository     domain.AttendanceRecordRepository
	MessageBuilder       domain.MessageBuilder
	OccurrenceResolver   *OccurrenceResolver
	Calculator           *AttendanceCalculator
	RecordingCoordinator *RecordingCoordinator
	Config               ServiceConfig

	// recordLocks serializes writers of the same participant's record so a
	// client leave racing a reconciler-detected disconnect cannot lose
	// updates. meetingLocks serializes attendance recompute passes so two
	// host-like leaves never score against inconsistent host durations.
	recordLocks  *concurrent.KeyedMutex
	meetingLocks *concurrent.KeyedMutex

	nowFunc func() time.Time
}

// NewAttendanceService creates a new AttendanceService.
func NewAttendanceService(
	meetingRepository domain.MeetingRepository,
	recordRepository domain.AttendanceRecordRepository,
	messageBuilder domain.MessageBuilder,
	occurrenceResolver *OccurrenceResolver,
	calculator *AttendanceCalculator,
	recordingCoordinator *RecordingCoordinator,
	config ServiceConfig,
) *AttendanceService {
	return &AttendanceService{
		MeetingRepository:    meetingRepository,
		RecordRepository:     recordRepository,
		MessageBuilder:       messageBuilder,
		OccurrenceResolver:   occurrenceResolver,
		Calculator:           calculator,
		RecordingCoordinator: recordingCoordinator,
		Config:               config,
		recordLocks:          concurrent.NewKeyedMutex(),
		meetingLocks:         concurrent.NewKeyedMutex(),
		nowFunc:              func() time.Time { return time.Now().UTC() },
	}
}

// ServiceReady checks if the service is ready for use.
func (s *AttendanceService) ServiceReady() bool {
	return s.MeetingRepository != nil &&
		s.RecordRepository != nil &&
		s.MessageBuilder != nil &&
		s.OccurrenceResolver != nil &&
		s.Calculator != nil &&
		s.RecordingCoordinator != nil
}

func recordLockKey(meetingUID, userUID string) string {
	return meetingUID + "|" + userUID
}

// HandleJoin processes a participant join signal.
func (s *AttendanceService) HandleJoin(ctx context.Context, req models.JoinRequest) (*models.JoinResult, error) {
	if !s.ServiceReady() {
		slog.ErrorContext(ctx, "service not initialized", logging.PriorityCritical())
		return nil, domain.NewInternalError("service not initialized")
	}
	if req.MeetingUID == "" || req.UserUID == "" {
		return nil, domain.NewValidationError("meeting UID and user UID are required")
	}

	meeting, err := s.MeetingRepository.Get(ctx, req.MeetingUID)
	if err != nil {
		return nil, err
	}
	if meeting.Status == models.MeetingStatusEnded {
		return nil, domain.NewConflictError(
			fmt.Sprintf("meeting '%s' has already ended", req.MeetingUID))
	}

	role := models.RoleParticipant
	if req.IsHost || req.UserUID == meeting.HostUID {
		role = models.RoleHost
	}

	unlock := s.recordLocks.Lock(recordLockKey(req.MeetingUID, req.UserUID))
	defer unlock()

	resolution, err := s.OccurrenceResolver.Resolve(ctx, req.MeetingUID, req.UserUID)
	if err != nil {
		return nil, err
	}

	if resolution.IsNewOccurrence {
		return s.joinNewOccurrence(ctx, meeting, req.UserUID, role, resolution.Occurrence)
	}
	return s.rejoinOccurrence(ctx, req.MeetingUID, req.UserUID, resolution.Occurrence)
}

// joinNewOccurrence creates a fresh record for the first join of an occurrence.
func (s *AttendanceService) joinNewOccurrence(ctx context.Context, meeting *models.Meeting, userUID string, role models.ParticipantRole, occurrence int) (*models.JoinResult, error) {
	now := s.nowFunc()
	record := &models.AttendanceRecord{
		UID:        uuid.NewString(),
		MeetingUID: meeting.UID,
		UserUID:    userUID,
		Occurrence: occurrence,
		Role:       role,
		JoinTimes:  []time.Time{now},
		LeaveTimes: []time.Time{},
		IsActive:   true,
		CreatedAt:  &now,
		UpdatedAt:  &now,
	}

	if err := s.RecordRepository.Create(ctx, record); err != nil {
		return nil, err
	}

	if role == models.RoleHost && meeting.StartedAt == nil {
		s.stampMeetingStarted(ctx, meeting.UID, now)
	}

	s.publishRecordEvents(ctx, models.ActionCreated, record)

	slog.InfoContext(ctx, "participant joined new occurrence",
		"meeting_uid", meeting.UID, "user_uid", userUID,
		"occurrence", occurrence, "role", role)

	return &models.JoinResult{
		RecordUID:  record.UID,
		Role:       role,
		Occurrence: occurrence,
		Action:     models.JoinActionNewOccurrence,
	}, nil
}

// rejoinOccurrence appends a join to an existing open-occurrence record. The
// stored role stays authoritative on rejoin. A join signal for an
// already-active participant is a duplicate and succeeds without mutating
// anything.
func (s *AttendanceService) rejoinOccurrence(ctx context.Context, meetingUID, userUID string, occurrence int) (*models.JoinResult, error) {
	record, revision, err := s.RecordRepository.GetWithRevision(ctx, meetingUID, userUID, occurrence)
	if err != nil {
		return nil, err
	}

	if record.IsActive {
		slog.DebugContext(ctx, "duplicate join signal absorbed",
			"meeting_uid", meetingUID, "user_uid", userUID, "occurrence", occurrence)
		return &models.JoinResult{
			RecordUID:  record.UID,
			Role:       record.Role,
			Occurrence: occurrence,
			Action:     models.JoinActionAlreadyActive,
		}, nil
	}

	now := s.nowFunc()
	record.JoinTimes = append(record.JoinTimes, now)
	record.IsActive = true
	record.UpdatedAt = &now

	if err := s.RecordRepository.Update(ctx, record, revision); err != nil {
		if domain.GetErrorType(err) != domain.ErrorTypeConflict {
			return nil, err
		}
		// Raced another writer; re-read and retry once.
		record, revision, err = s.RecordRepository.GetWithRevision(ctx, meetingUID, userUID, occurrence)
		if err != nil {
			return nil, err
		}
		if record.IsActive {
			return &models.JoinResult{
				RecordUID:  record.UID,
				Role:       record.Role,
				Occurrence: occurrence,
				Action:     models.JoinActionAlreadyActive,
			}, nil
		}
		record.JoinTimes = append(record.JoinTimes, now)
		record.IsActive = true
		record.UpdatedAt = &now
		if err := s.RecordRepository.Update(ctx, record, revision); err != nil {
			return nil, err
		}
	}

	s.publishRecordEvents(ctx, models.ActionUpdated, record)

	slog.InfoContext(ctx, "participant rejoined occurrence",
		"meeting_uid", meetingUID, "user_uid", userUID,
		"occurrence", occurrence, "role", record.Role)

	return &models.JoinResult{
		RecordUID:  record.UID,
		Role:       record.Role,
		Occurrence: occurrence,
		Action:     models.JoinActionRejoin,
	}, nil
}

// HandleLeave processes an explicit participant leave signal. A leave for a
// participant who is not active is a client error.
func (s *AttendanceService) HandleLeave(ctx context.Context, req models.LeaveRequest) (*models.LeaveResult, error) {
	if !s.ServiceReady() {
		slog.ErrorContext(ctx, "service not initialized", logging.PriorityCritical())
		return nil, domain.NewInternalError("service not initialized")
	}
	if req.MeetingUID == "" || req.UserUID == "" {
		return nil, domain.NewValidationError("meeting UID and user UID are required")
	}

	meeting, err := s.MeetingRepository.Get(ctx, req.MeetingUID)
	if err != nil {
		return nil, err
	}

	unlock := s.recordLocks.Lock(recordLockKey(req.MeetingUID, req.UserUID))
	defer unlock()

	record, revision, err := s.RecordRepository.GetLatest(ctx, req.MeetingUID, req.UserUID)
	if err != nil {
		return nil, err
	}
	if !record.IsActive {
		return nil, domain.NewConflictError(
			fmt.Sprintf("participant '%s' is not active in meeting '%s'", req.UserUID, req.MeetingUID))
	}

	outcome, err := s.leaveCore(ctx, record, revision)
	if err != nil {
		return nil, err
	}

	result := &models.LeaveResult{
		RecordUID:            outcome.record.UID,
		TotalDurationMinutes: outcome.record.TotalDurationMinutes,
		TotalSessions:        outcome.record.TotalSessions,
	}
	if !outcome.absorbed && outcome.record.Role.IsHostLike() {
		result.AttendanceCalculated, result.RecordingAutoStopped = s.hostLeaveFanOut(ctx, meeting, outcome.effectiveLeave)
	}

	return result, nil
}

// SynthesizeLeave is the reconciler's entry into the leave path. A record
// that turned inactive since the reconciler observed it is absorbed as a
// no-op success.
func (s *AttendanceService) SynthesizeLeave(ctx context.Context, meetingUID, userUID string, occurrence int) error {
	meeting, err := s.MeetingRepository.Get(ctx, meetingUID)
	if err != nil {
		return err
	}

	unlock := s.recordLocks.Lock(recordLockKey(meetingUID, userUID))
	defer unlock()

	record, revision, err := s.RecordRepository.GetWithRevision(ctx, meetingUID, userUID, occurrence)
	if err != nil {
		return err
	}
	if !record.IsActive {
		// First writer already won.
		return nil
	}

	outcome, err := s.leaveCore(ctx, record, revision)
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "synthesized leave for silent disconnect",
		"meeting_uid", meetingUID, "user_uid", userUID, "occurrence", occurrence)

	if !outcome.absorbed && outcome.record.Role.IsHostLike() {
		s.hostLeaveFanOut(ctx, meeting, outcome.effectiveLeave)
	}
	return nil
}

type leaveOutcome struct {
	record         *models.AttendanceRecord
	effectiveLeave time.Time

	// absorbed means a concurrent writer completed the leave first; this
	// call contributed nothing and must not fan out.
	absorbed bool
}

// leaveCore appends the effective leave timestamp and recomputes the derived
// counters from the full sequences. It is the single leave implementation
// shared by explicit calls and the reconciler.
func (s *AttendanceService) leaveCore(ctx context.Context, record *models.AttendanceRecord, revision uint64) (*leaveOutcome, error) {
	now := s.nowFunc()
	effective := s.effectiveLeaveTime(ctx, record, now)

	apply := func(r *models.AttendanceRecord) {
		r.LeaveTimes = append(r.LeaveTimes, effective)
		r.TotalDurationMinutes = round2(r.DurationMinutes())
		r.TotalSessions = r.CompletedSessions()
		r.IsActive = false
		r.UpdatedAt = &now
	}

	apply(record)
	err := s.RecordRepository.Update(ctx, record, revision)
	if err != nil && domain.GetErrorType(err) == domain.ErrorTypeConflict {
		current, currentRevision, getErr := s.RecordRepository.GetWithRevision(ctx, record.MeetingUID, record.UserUID, record.Occurrence)
		if getErr != nil {
			return nil, getErr
		}
		if !current.IsActive {
			// The racing writer completed the leave; absorb.
			return &leaveOutcome{record: current, effectiveLeave: effective, absorbed: true}, nil
		}
		apply(current)
		record = current
		err = s.RecordRepository.Update(ctx, record, currentRevision)
	}
	if err != nil {
		return nil, err
	}

	s.publishRecordEvents(ctx, models.ActionUpdated, record)

	slog.InfoContext(ctx, "participant left",
		"meeting_uid", record.MeetingUID, "user_uid", record.UserUID,
		"occurrence", record.Occurrence,
		"duration_minutes", record.TotalDurationMinutes,
		"sessions", record.TotalSessions)

	return &leaveOutcome{record: record, effectiveLeave: effective}, nil
}

// effectiveLeaveTime caps a non-host participant's leave at the host's last
// leave when the occurrence is still open and the host has already gone, so
// a forgotten connection cannot accrue duration past the session's real end.
func (s *AttendanceService) effectiveLeaveTime(ctx context.Context, record *models.AttendanceRecord, now time.Time) time.Time {
	if record.OccurrenceEndTime != nil || record.Role == models.RoleHost {
		return now
	}

	host, err := s.RecordRepository.GetHostRecord(ctx, record.MeetingUID, record.Occurrence)
	if err != nil {
		if domain.GetErrorType(err) != domain.ErrorTypeNotFound {
			slog.WarnContext(ctx, "host record lookup failed, using actual leave time",
				logging.ErrKey, err, "meeting_uid", record.MeetingUID,
				"occurrence", record.Occurrence)
		}
		return now
	}
	if host.IsActive {
		return now
	}

	hostLeave := host.LastLeaveTime()
	if hostLeave == nil || !now.After(*hostLeave) {
		return now
	}
	return *hostLeave
}

// hostLeaveFanOut runs the attendance recompute and the recording-stop check
// after a host-like leave. Passes for the same meeting are serialized.
// Failures degrade to ledger-only effects rather than failing the leave.
func (s *AttendanceService) hostLeaveFanOut(ctx context.Context, meeting *models.Meeting, effectiveLeave time.Time) (attendanceCalculated, recordingStopped bool) {
	unlock := s.meetingLocks.Lock(meeting.UID)
	defer unlock()

	attendanceCalculated, err := s.Calculator.Recalculate(ctx, meeting, effectiveLeave)
	if err != nil {
		slog.ErrorContext(ctx, "attendance recompute failed",
			logging.ErrKey, err, "meeting_uid", meeting.UID)
	}

	recordingStopped, err = s.RecordingCoordinator.MaybeStop(ctx, meeting.UID)
	if err != nil {
		slog.ErrorContext(ctx, "recording auto-stop check failed",
			logging.ErrKey, err, "meeting_uid", meeting.UID)
	}

	return attendanceCalculated, recordingStopped
}

// SessionHistory returns the participant's join/leave intervals across all
// occurrences of the meeting, in occurrence order.
func (s *AttendanceService) SessionHistory(ctx context.Context, req models.SessionHistoryRequest) ([]models.SessionInterval, error) {
	if !s.ServiceReady() {
		slog.ErrorContext(ctx, "service not initialized", logging.PriorityCritical())
		return nil, domain.NewInternalError("service not initialized")
	}
	if req.MeetingUID == "" || req.UserUID == "" {
		return nil, domain.NewValidationError("meeting UID and user UID are required")
	}

	if _, err := s.MeetingRepository.Get(ctx, req.MeetingUID); err != nil {
		return nil, err
	}

	records, err := s.RecordRepository.ListByMeetingUser(ctx, req.MeetingUID, req.UserUID)
	if err != nil {
		return nil, err
	}

	sessions := []models.SessionInterval{}
	for _, record := range records {
		sessions = append(sessions, record.Sessions()...)
	}
	return sessions, nil
}

// stampMeetingStarted sets the meeting's start time once. Losing the race to
// another host join is fine; first writer wins.
func (s *AttendanceService) stampMeetingStarted(ctx context.Context, meetingUID string, startedAt time.Time) {
	meeting, revision, err := s.MeetingRepository.GetWithRevision(ctx, meetingUID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load meeting for start stamp",
			logging.ErrKey, err, "meeting_uid", meetingUID)
		return
	}
	if meeting.StartedAt != nil {
		return
	}

	meeting.StartedAt = &startedAt
	meeting.UpdatedAt = &startedAt
	if err := s.MeetingRepository.Update(ctx, meeting, revision); err != nil {
		if domain.GetErrorType(err) == domain.ErrorTypeConflict {
			slog.DebugContext(ctx, "meeting start already stamped", "meeting_uid", meetingUID)
			return
		}
		slog.ErrorContext(ctx, "failed to stamp meeting start",
			logging.ErrKey, err, "meeting_uid", meetingUID)
	}
}

// publishRecordEvents sends the indexer message and the lifecycle event for
// a record mutation. Messaging failures never fail the mutation.
func (s *AttendanceService) publishRecordEvents(ctx context.Context, action models.MessageAction, record *models.AttendanceRecord) {
	if err := s.MessageBuilder.SendIndexAttendanceRecord(ctx, action, *record); err != nil {
		slog.ErrorContext(ctx, "failed to index attendance record",
			logging.ErrKey, err, "record_uid", record.UID)
	}

	updatedAt := s.nowFunc()
	if record.UpdatedAt != nil {
		updatedAt = *record.UpdatedAt
	}
	if err := s.MessageBuilder.SendAttendanceRecordUpdated(ctx, models.AttendanceRecordUpdatedMessage{
		RecordUID:  record.UID,
		MeetingUID: record.MeetingUID,
		UserUID:    record.UserUID,
		Occurrence: record.Occurrence,
		IsActive:   record.IsActive,
		UpdatedAt:  updatedAt,
	}); err != nil {
		slog.ErrorContext(ctx, "failed to publish record lifecycle event",
			logging.ErrKey, err, "record_uid", record.UID)
	}
}
