// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"slices"

	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/domain/models"
)

// NatsMeetingRepository is the NATS KV store implementation of the meeting
// read-model. Meetings are keyed by their UID.
type NatsMeetingRepository struct {
	*NatsBaseRepository[models.Meeting]
	keyBuilder *KeyBuilder
}

// NewNatsMeetingRepository creates a new NATS KV meeting repository
func NewNatsMeetingRepository(kvStore INatsKeyValue) *NatsMeetingRepository {
	return &NatsMeetingRepository{
		NatsBaseRepository: NewNatsBaseRepository[models.Meeting](kvStore, "meeting"),
		keyBuilder:         NewKeyBuilder(),
	}
}

func (r *NatsMeetingRepository) meetingKey(meetingUID string) (string, error) {
	return r.keyBuilder.EncodeKey(KeyPrefixMeeting + "/" + meetingUID)
}

// Get retrieves a meeting by UID
func (r *NatsMeetingRepository) Get(ctx context.Context, meetingUID string) (*models.Meeting, error) {
	meeting, _, err := r.GetWithRevision(ctx, meetingUID)
	return meeting, err
}

// GetWithRevision retrieves a meeting along with its KV revision
func (r *NatsMeetingRepository) GetWithRevision(ctx context.Context, meetingUID string) (*models.Meeting, uint64, error) {
	key, err := r.meetingKey(meetingUID)
	if err != nil {
		return nil, 0, domain.NewInternalError("failed to build meeting key", err)
	}

	return r.NatsBaseRepository.GetWithRevision(ctx, key)
}

// Put creates or replaces a meeting in the read-model
func (r *NatsMeetingRepository) Put(ctx context.Context, meeting *models.Meeting) error {
	if meeting == nil {
		return domain.NewValidationError("meeting is required")
	}
	if meeting.UID == "" {
		return domain.NewValidationError("meeting UID is required")
	}

	key, err := r.meetingKey(meeting.UID)
	if err != nil {
		return domain.NewInternalError("failed to build meeting key", err)
	}

	return r.NatsBaseRepository.Put(ctx, key, meeting)
}

// Update updates a meeting with optimistic concurrency control
func (r *NatsMeetingRepository) Update(ctx context.Context, meeting *models.Meeting, revision uint64) error {
	if meeting == nil {
		return domain.NewValidationError("meeting is required")
	}
	if meeting.UID == "" {
		return domain.NewValidationError("meeting UID is required")
	}

	key, err := r.meetingKey(meeting.UID)
	if err != nil {
		return domain.NewInternalError("failed to build meeting key", err)
	}

	return r.NatsBaseRepository.Update(ctx, key, meeting, revision)
}

// ListByStatuses lists meetings whose status matches any of the given
// statuses. With no statuses it lists every meeting.
func (r *NatsMeetingRepository) ListByStatuses(ctx context.Context, statuses ...models.MeetingStatus) ([]*models.Meeting, error) {
	meetings, err := r.ListEntitiesEncoded(ctx, KeyPrefixMeeting+"/", r.keyBuilder)
	if err != nil {
		return nil, err
	}
	if len(statuses) == 0 {
		return meetings, nil
	}

	var matched []*models.Meeting
	for _, meeting := range meetings {
		if slices.Contains(statuses, meeting.Status) {
			matched = append(matched, meeting)
		}
	}

	return matched, nil
}
