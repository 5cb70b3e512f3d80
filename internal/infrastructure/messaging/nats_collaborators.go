// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-attendance-service/pkg/constants"
)

// NatsPresenceSource queries the room service for live occupancy over NATS
// request/reply.
type NatsPresenceSource struct {
	NatsConn INatsConn
}

// NewNatsPresenceSource creates a new NATS-backed presence source.
func NewNatsPresenceSource(natsConn INatsConn) *NatsPresenceSource {
	return &NatsPresenceSource{
		NatsConn: natsConn,
	}
}

type listOccupantsRequest struct {
	RoomUID string `json:"room_uid"`
}

type listOccupantsResponse struct {
	Occupants []string `json:"occupants"`
}

// ListOccupants returns the identities currently connected to a room.
func (p *NatsPresenceSource) ListOccupants(ctx context.Context, roomUID string) ([]string, error) {
	if !p.NatsConn.IsConnected() {
		return nil, domain.NewCollaboratorError("NATS connection is not available")
	}

	payload, err := json.Marshal(listOccupantsRequest{RoomUID: roomUID})
	if err != nil {
		return nil, domain.NewInternalError("failed to marshal occupancy request", err)
	}

	msg, err := p.NatsConn.Request(models.RoomListOccupantsSubject, payload, constants.CollaboratorCallTimeout)
	if err != nil {
		slog.ErrorContext(ctx, "room occupancy request failed",
			logging.ErrKey, err, "room_uid", roomUID)
		return nil, domain.NewCollaboratorError(
			fmt.Sprintf("occupancy lookup for room '%s' failed", roomUID), err)
	}

	var response listOccupantsResponse
	if err := json.Unmarshal(msg.Data, &response); err != nil {
		return nil, domain.NewCollaboratorError("malformed occupancy response", err)
	}

	return response.Occupants, nil
}

// NatsAttendanceScorer queries the vision service for attendance scores over
// NATS request/reply.
type NatsAttendanceScorer struct {
	NatsConn INatsConn
}

// NewNatsAttendanceScorer creates a new NATS-backed attendance scorer.
func NewNatsAttendanceScorer(natsConn INatsConn) *NatsAttendanceScorer {
	return &NatsAttendanceScorer{
		NatsConn: natsConn,
	}
}

type attendanceScoreRequest struct {
	MeetingUID string `json:"meeting_uid"`
	UserUID    string `json:"user_uid"`
}

type attendanceScoreResponse struct {
	Score float64 `json:"score"`
	Found bool    `json:"found"`
}

// ScoreFor returns the vision-derived attendance percentage for a participant.
// A participant the vision service has no score for yields a NotFound error.
func (s *NatsAttendanceScorer) ScoreFor(ctx context.Context, meetingUID, userUID string) (float64, error) {
	if !s.NatsConn.IsConnected() {
		return 0, domain.NewCollaboratorError("NATS connection is not available")
	}

	payload, err := json.Marshal(attendanceScoreRequest{MeetingUID: meetingUID, UserUID: userUID})
	if err != nil {
		return 0, domain.NewInternalError("failed to marshal score request", err)
	}

	msg, err := s.NatsConn.Request(models.VisionAttendanceScoreSubject, payload, constants.CollaboratorCallTimeout)
	if err != nil {
		slog.ErrorContext(ctx, "attendance score request failed",
			logging.ErrKey, err, "meeting_uid", meetingUID, "user_uid", userUID)
		return 0, domain.NewCollaboratorError(
			fmt.Sprintf("attendance score lookup for user '%s' failed", userUID), err)
	}

	var response attendanceScoreResponse
	if err := json.Unmarshal(msg.Data, &response); err != nil {
		return 0, domain.NewCollaboratorError("malformed attendance score response", err)
	}
	if !response.Found {
		return 0, domain.NewNotFoundError(
			fmt.Sprintf("no attendance score for user '%s' in meeting '%s'", userUID, meetingUID))
	}

	return response.Score, nil
}
