// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

import "time"

// NATS subjects that the attendance service sends messages about.
const (
	// IndexAttendanceRecordSubject is the subject for attendance record indexing.
	// The subject is of the form: lfx.index.attendance_record
	IndexAttendanceRecordSubject = "lfx.index.attendance_record"

	// AttendanceRecordUpdatedSubject is the subject for attendance record
	// lifecycle events consumed by downstream auditors.
	// The subject is of the form: lfx.attendance-api.record_updated
	AttendanceRecordUpdatedSubject = "lfx.attendance-api.record_updated"

	// RecordingAutoStoppedSubject is the subject for recording auto-stop events.
	// The subject is of the form: lfx.attendance-api.recording_auto_stopped
	RecordingAutoStoppedSubject = "lfx.attendance-api.recording_auto_stopped"
)

// NATS subjects that the attendance service handles messages about.
const (
	// AttendanceAPIQueue is the queue group name for the attendance API.
	AttendanceAPIQueue = "lfx.attendance-api.queue"

	// AttendanceJoinSubject is the subject for participant join requests.
	// The subject is of the form: lfx.attendance-api.join
	AttendanceJoinSubject = "lfx.attendance-api.join"

	// AttendanceLeaveSubject is the subject for participant leave requests.
	// The subject is of the form: lfx.attendance-api.leave
	AttendanceLeaveSubject = "lfx.attendance-api.leave"

	// AttendanceSessionHistorySubject is the subject for session history queries.
	// The subject is of the form: lfx.attendance-api.session_history
	AttendanceSessionHistorySubject = "lfx.attendance-api.session_history"

	// MeetingDirectoryUpdatedSubject is the subject for meeting directory
	// events used to maintain the local meeting read-model.
	// The subject is of the form: lfx.attendance-api.meeting_updated
	MeetingDirectoryUpdatedSubject = "lfx.attendance-api.meeting_updated"
)

// NATS subjects of external collaborators the attendance service queries.
const (
	// RoomListOccupantsSubject is the request/reply subject of the room
	// service that returns the current occupants of a room.
	RoomListOccupantsSubject = "lfx.rooms.list_occupants"

	// VisionAttendanceScoreSubject is the request/reply subject of the
	// vision scorer that returns an AI-based attendance percentage.
	VisionAttendanceScoreSubject = "lfx.vision.attendance_score"
)

// MessageAction is the type of action of a message.
type MessageAction string

const (
	// ActionCreated is the action of a message that indicates a resource was created.
	ActionCreated MessageAction = "created"
	// ActionUpdated is the action of a message that indicates a resource was updated.
	ActionUpdated MessageAction = "updated"
	// ActionDeleted is the action of a message that indicates a resource was deleted.
	ActionDeleted MessageAction = "deleted"
)

// AttendanceIndexerMessage is the schema of messages sent to the indexer.
type AttendanceIndexerMessage struct {
	Action  MessageAction     `json:"action"`
	Headers map[string]string `json:"headers"`
	Data    any               `json:"data"`
	Tags    []string          `json:"tags"`
}

// JoinAction describes how a join request was resolved.
type JoinAction string

const (
	JoinActionNewOccurrence JoinAction = "new_occurrence"
	JoinActionRejoin        JoinAction = "rejoin"
	JoinActionAlreadyActive JoinAction = "already_active"
)

// JoinRequest is the payload of a participant join request.
type JoinRequest struct {
	MeetingUID string `json:"meeting_uid"`
	UserUID    string `json:"user_uid"`
	IsHost     bool   `json:"is_host,omitempty"`
}

// JoinResult is the response payload of a participant join request.
type JoinResult struct {
	RecordUID  string          `json:"record_uid"`
	Role       ParticipantRole `json:"role"`
	Occurrence int             `json:"occurrence"`
	Action     JoinAction      `json:"action"`
}

// LeaveRequest is the payload of a participant leave request.
type LeaveRequest struct {
	MeetingUID string `json:"meeting_uid"`
	UserUID    string `json:"user_uid"`
}

// LeaveResult is the response payload of a participant leave request.
type LeaveResult struct {
	RecordUID            string  `json:"record_uid"`
	TotalDurationMinutes float64 `json:"total_duration_minutes"`
	TotalSessions        int     `json:"total_sessions"`
	AttendanceCalculated bool    `json:"attendance_calculated"`
	RecordingAutoStopped bool    `json:"recording_auto_stopped"`
}

// SessionHistoryRequest is the payload of a session history query.
type SessionHistoryRequest struct {
	MeetingUID string `json:"meeting_uid"`
	UserUID    string `json:"user_uid"`
}

// AttendanceRecordUpdatedMessage is the schema of record lifecycle events.
type AttendanceRecordUpdatedMessage struct {
	RecordUID  string    `json:"record_uid"`
	MeetingUID string    `json:"meeting_uid"`
	UserUID    string    `json:"user_uid"`
	Occurrence int       `json:"occurrence"`
	IsActive   bool      `json:"is_active"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// RecordingAutoStoppedMessage is the schema of recording auto-stop events.
type RecordingAutoStoppedMessage struct {
	MeetingUID string    `json:"meeting_uid"`
	Status     string    `json:"status"`
	StoppedAt  time.Time `json:"stopped_at"`
}

// MeetingDirectoryMessage is the schema of meeting directory events used to
// maintain the local meeting read-model.
type MeetingDirectoryMessage struct {
	Meeting *Meeting `json:"meeting"`
}
