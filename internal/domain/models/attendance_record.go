// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

import (
	"fmt"
	"strings"
	"time"
)

// ParticipantRole is the closed set of roles a participant can hold in a meeting.
// Role strings coming in over the wire are normalized once at the boundary with
// ParseParticipantRole; everything past that point works with the enum.
type ParticipantRole string

const (
	RoleHost        ParticipantRole = "host"
	RoleCoHost      ParticipantRole = "co-host"
	RoleParticipant ParticipantRole = "participant"
)

// ParseParticipantRole normalizes a raw role string into a ParticipantRole.
// Legacy producers emit several spellings of the co-host role.
func ParseParticipantRole(raw string) (ParticipantRole, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "host":
		return RoleHost, nil
	case "co-host", "cohost", "co_host":
		return RoleCoHost, nil
	case "participant", "":
		return RoleParticipant, nil
	default:
		return "", fmt.Errorf("unknown participant role %q", raw)
	}
}

// IsHostLike reports whether the role carries host privileges for attendance
// and recording decisions.
func (r ParticipantRole) IsHostLike() bool {
	return r == RoleHost || r == RoleCoHost
}

// AttendanceRecord is one participant's ledger row for one occurrence of a
// meeting. The join/leave sequences are append-only; every derived field
// (duration, session count, scores) is recomputed from the full sequences so
// that recomputation is idempotent.
type AttendanceRecord struct {
	UID        string          `json:"uid"`
	MeetingUID string          `json:"meeting_uid"`
	UserUID    string          `json:"user_uid"`
	Occurrence int             `json:"occurrence"`
	Role       ParticipantRole `json:"role"`

	JoinTimes  []time.Time `json:"join_times"`
	LeaveTimes []time.Time `json:"leave_times"`
	IsActive   bool        `json:"is_active"`

	TotalDurationMinutes float64 `json:"total_duration_minutes"`
	TotalSessions        int     `json:"total_sessions"`

	// OccurrenceEndTime is set when the occurrence is formally closed.
	// Closing is a one-way transition.
	OccurrenceEndTime *time.Time `json:"occurrence_end_time,omitempty"`

	// Derived attendance scores. Nil means not yet computed (or, for
	// OverallAttendancePct, the meeting is not part of a recurring series).
	HostAttendancePct        *float64 `json:"host_attendance_pct,omitempty"`
	ParticipantAttendancePct *float64 `json:"participant_attendance_pct,omitempty"`
	OverallAttendancePct     *float64 `json:"overall_attendance_pct,omitempty"`

	CreatedAt *time.Time `json:"created_at,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// SessionInterval is one join-to-leave interval of a record, for history
// listings. End is nil while the session is still open.
type SessionInterval struct {
	Start           time.Time  `json:"start"`
	End             *time.Time `json:"end,omitempty"`
	DurationSeconds float64    `json:"duration_seconds"`
	IsActive        bool       `json:"is_active"`
}

// Validate checks the structural invariant of the join/leave sequences:
// the leave sequence is either the same length as the join sequence
// (inactive) or exactly one shorter (active). Anything else is a
// corruption signal.
func (r *AttendanceRecord) Validate() error {
	joins, leaves := len(r.JoinTimes), len(r.LeaveTimes)
	switch joins - leaves {
	case 0:
		if r.IsActive {
			return fmt.Errorf("record %s marked active with balanced join/leave sequences (%d joins)", r.UID, joins)
		}
	case 1:
		if !r.IsActive {
			return fmt.Errorf("record %s marked inactive with an open session (%d joins, %d leaves)", r.UID, joins, leaves)
		}
	default:
		return fmt.Errorf("record %s has corrupted session sequences (%d joins, %d leaves)", r.UID, joins, leaves)
	}
	return nil
}

// DurationMinutes recomputes the total duration from the full join/leave
// sequences. Only completed sessions count; an open trailing session
// contributes nothing. The result is a pure function of the sequences.
func (r *AttendanceRecord) DurationMinutes() float64 {
	var total time.Duration
	for i, leave := range r.LeaveTimes {
		if i >= len(r.JoinTimes) {
			break
		}
		if d := leave.Sub(r.JoinTimes[i]); d > 0 {
			total += d
		}
	}
	return total.Minutes()
}

// DurationMinutesWithFallback recomputes duration treating fallbackLeave as a
// provisional, non-persisted leave time for an open trailing session. Used by
// the attendance calculator to score still-active participants against the
// departing host without contaminating their stored sequences.
func (r *AttendanceRecord) DurationMinutesWithFallback(fallbackLeave time.Time) float64 {
	total := r.DurationMinutes()
	if len(r.JoinTimes) == len(r.LeaveTimes)+1 {
		lastJoin := r.JoinTimes[len(r.JoinTimes)-1]
		if d := fallbackLeave.Sub(lastJoin); d > 0 {
			total += d.Minutes()
		}
	}
	return total
}

// CompletedSessions counts the joined-and-left sessions in the sequences.
func (r *AttendanceRecord) CompletedSessions() int {
	if len(r.LeaveTimes) < len(r.JoinTimes) {
		return len(r.LeaveTimes)
	}
	return len(r.JoinTimes)
}

// Sessions expands the join/leave sequences into ordered intervals.
func (r *AttendanceRecord) Sessions() []SessionInterval {
	sessions := make([]SessionInterval, 0, len(r.JoinTimes))
	for i, join := range r.JoinTimes {
		interval := SessionInterval{Start: join}
		if i < len(r.LeaveTimes) {
			leave := r.LeaveTimes[i]
			interval.End = &leave
			if d := leave.Sub(join); d > 0 {
				interval.DurationSeconds = d.Seconds()
			}
		} else {
			interval.IsActive = true
		}
		sessions = append(sessions, interval)
	}
	return sessions
}

// LastLeaveTime returns the most recent leave timestamp, or nil if the
// participant has never left.
func (r *AttendanceRecord) LastLeaveTime() *time.Time {
	if len(r.LeaveTimes) == 0 {
		return nil
	}
	t := r.LeaveTimes[len(r.LeaveTimes)-1]
	return &t
}

// Tags generates a consistent set of tags for the attendance record, used by
// consumers of record-updated events for searching.
func (r *AttendanceRecord) Tags() []string {
	if r == nil {
		return nil
	}

	tags := []string{}
	if r.UID != "" {
		tags = append(tags, r.UID, fmt.Sprintf("attendance_record_uid:%s", r.UID))
	}
	if r.MeetingUID != "" {
		tags = append(tags, fmt.Sprintf("meeting_uid:%s", r.MeetingUID))
	}
	if r.UserUID != "" {
		tags = append(tags, fmt.Sprintf("user_uid:%s", r.UserUID))
	}
	tags = append(tags, fmt.Sprintf("occurrence:%d", r.Occurrence))

	return tags
}
