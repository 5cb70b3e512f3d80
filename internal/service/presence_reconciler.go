// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-attendance-service/pkg/concurrent"
	"github.com/linuxfoundation/lfx-v2-attendance-service/pkg/constants"
)

// reconcileWorkers bounds how many meetings a pass processes concurrently.
const reconcileWorkers = 5

// PresenceReconciler periodically diffs the authoritative room occupancy
// against the ledger's active records and synthesizes leaves for silent
// disconnects, using the same leave path as explicit client calls.
type PresenceReconciler struct {
	MeetingRepository domain.MeetingRepository
	RecordRepository  domain.AttendanceRecordRepository
	PresenceSource    domain.PresenceSource
	Attendance        *AttendanceService

	interval time.Duration
	pool     *concurrent.WorkerPool

	// running guards against overlapping passes when one pass outlasts
	// the tick interval.
	running atomic.Bool
}

// NewPresenceReconciler creates a new PresenceReconciler.
func NewPresenceReconciler(
	meetingRepository domain.MeetingRepository,
	recordRepository domain.AttendanceRecordRepository,
	presenceSource domain.PresenceSource,
	attendance *AttendanceService,
	interval time.Duration,
) *PresenceReconciler {
	if interval <= 0 {
		interval = constants.DefaultReconcileInterval
	}
	return &PresenceReconciler{
		MeetingRepository: meetingRepository,
		RecordRepository:  recordRepository,
		PresenceSource:    presenceSource,
		Attendance:        attendance,
		interval:          interval,
		pool:              concurrent.NewWorkerPool(reconcileWorkers),
	}
}

// ServiceReady checks if the reconciler is ready for use.
func (r *PresenceReconciler) ServiceReady() bool {
	return r.MeetingRepository != nil &&
		r.RecordRepository != nil &&
		r.PresenceSource != nil &&
		r.Attendance != nil
}

// Start runs the reconciliation loop until the context is cancelled.
func (r *PresenceReconciler) Start(ctx context.Context) {
	slog.InfoContext(ctx, "presence reconciler started", "interval", r.interval.String())

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "presence reconciler stopped")
			return
		case <-ticker.C:
			r.ReconcileOnce(ctx)
		}
	}
}

// ReconcileOnce runs a single reconciliation pass. Overlapping passes are
// skipped rather than queued. Failures for one meeting are isolated; the
// pass continues with the rest.
func (r *PresenceReconciler) ReconcileOnce(ctx context.Context) {
	if !r.running.CompareAndSwap(false, true) {
		slog.DebugContext(ctx, "previous reconciliation pass still running, skipping")
		return
	}
	defer r.running.Store(false)

	meetings, err := r.MeetingRepository.ListByStatuses(ctx, models.MeetingStatusActive, models.MeetingStatusScheduled)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list meetings for reconciliation", logging.ErrKey, err)
		return
	}

	functions := make([]func() error, 0, len(meetings))
	for _, meeting := range meetings {
		if meeting.RoomUID == "" {
			continue
		}
		functions = append(functions, func() error {
			r.reconcileMeeting(ctx, meeting)
			return nil
		})
	}
	if len(functions) == 0 {
		return
	}

	r.pool.RunAll(ctx, functions...)
}

// reconcileMeeting synthesizes leaves for every ledger-active participant of
// the meeting who is absent from the room's authoritative occupant set.
func (r *PresenceReconciler) reconcileMeeting(ctx context.Context, meeting *models.Meeting) {
	occupants, err := r.PresenceSource.ListOccupants(ctx, meeting.RoomUID)
	if err != nil {
		slog.WarnContext(ctx, "presence source unreachable, skipping meeting",
			logging.ErrKey, err, "meeting_uid", meeting.UID, "room_uid", meeting.RoomUID)
		return
	}

	present := make(map[string]struct{}, len(occupants))
	for _, identity := range occupants {
		if userUID, ok := models.ParseOccupantUserUID(identity); ok {
			present[userUID] = struct{}{}
		}
	}

	active, err := r.RecordRepository.ListActiveByMeeting(ctx, meeting.UID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list active records, skipping meeting",
			logging.ErrKey, err, "meeting_uid", meeting.UID)
		return
	}

	for _, record := range active {
		if _, ok := present[record.UserUID]; ok {
			continue
		}

		if err := r.Attendance.SynthesizeLeave(ctx, record.MeetingUID, record.UserUID, record.Occurrence); err != nil {
			slog.ErrorContext(ctx, "failed to synthesize leave",
				logging.ErrKey, err, "meeting_uid", record.MeetingUID,
				"user_uid", record.UserUID, "occurrence", record.Occurrence)
		}
	}
}
