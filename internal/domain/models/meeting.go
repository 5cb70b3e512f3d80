// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

import (
	"fmt"
	"strings"
	"time"
)

// MeetingStatus is the lifecycle status of a meeting as reported by the
// meeting directory.
type MeetingStatus string

const (
	MeetingStatusScheduled MeetingStatus = "scheduled"
	MeetingStatusActive    MeetingStatus = "active"
	MeetingStatusEnded     MeetingStatus = "ended"
)

// ParseMeetingStatus normalizes a raw status string into a MeetingStatus.
func ParseMeetingStatus(raw string) (MeetingStatus, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "scheduled":
		return MeetingStatusScheduled, nil
	case "active", "started":
		return MeetingStatusActive, nil
	case "ended", "finished":
		return MeetingStatusEnded, nil
	default:
		return "", fmt.Errorf("unknown meeting status %q", raw)
	}
}

// Recurrence describes the recurrence pattern of a meeting. The attendance
// engine only needs its presence as a gate for series-wide scores, but the
// full pattern is kept so the read-model mirrors the directory service.
type Recurrence struct {
	Type           int        `json:"type"` // 1=daily, 2=weekly, 3=monthly
	RepeatInterval int        `json:"repeat_interval"`
	WeeklyDays     string     `json:"weekly_days,omitempty"`
	MonthlyDay     int        `json:"monthly_day,omitempty"`
	EndTimes       int        `json:"end_times,omitempty"`
	EndDateTime    *time.Time `json:"end_date_time,omitempty"`
}

// Meeting is the local read-model of a meeting, maintained from directory
// service events. The attendance engine reads it; only StartedAt and
// RecordingEnabled are ever written back.
type Meeting struct {
	UID              string        `json:"uid"`
	HostUID          string        `json:"host_uid"`
	MeetingType      string        `json:"meeting_type,omitempty"`
	Status           MeetingStatus `json:"status"`
	RecordingEnabled bool          `json:"recording_enabled"`
	StartedAt        *time.Time    `json:"started_at,omitempty"`

	// RoomUID is the external real-time room identifier used for presence
	// reconciliation. Empty when the meeting has no live room.
	RoomUID string `json:"room_uid,omitempty"`

	Recurrence *Recurrence `json:"recurrence,omitempty"`

	CreatedAt *time.Time `json:"created_at,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// IsRecurring reports whether the meeting belongs to a recurring series.
// Series membership gates the overall attendance score.
func (m *Meeting) IsRecurring() bool {
	return m != nil && m.Recurrence != nil
}

// Tags generates a consistent set of tags for the meeting read-model.
func (m *Meeting) Tags() []string {
	if m == nil {
		return nil
	}

	tags := []string{}
	if m.UID != "" {
		tags = append(tags, m.UID, fmt.Sprintf("meeting_uid:%s", m.UID))
	}
	if m.HostUID != "" {
		tags = append(tags, fmt.Sprintf("host_uid:%s", m.HostUID))
	}
	if m.Status != "" {
		tags = append(tags, fmt.Sprintf("status:%s", m.Status))
	}

	return tags
}
