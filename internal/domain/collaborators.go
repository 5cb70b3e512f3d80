// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package domain

import (
	"context"

	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/domain/models"
)

// PresenceSource is the authoritative real-time view of who is connected to a
// room right now. Identities follow the occupant identity convention parsed
// by models.ParseOccupantUserUID.
type PresenceSource interface {
	ListOccupants(ctx context.Context, roomUID string) ([]string, error)
}

// RecordingControl commands the recording pipeline of a meeting.
type RecordingControl interface {
	StopRecording(ctx context.Context, meetingUID string) (*models.StopRecordingResult, error)
}

// AttendanceScorer looks up the externally computed, vision-derived
// attendance percentage for a participant. A missing score is reported as a
// NotFound error; callers default it to zero.
type AttendanceScorer interface {
	ScoreFor(ctx context.Context, meetingUID, userUID string) (float64, error)
}
