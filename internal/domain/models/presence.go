// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

import (
	"fmt"
	"strings"
)

// Room occupant identities follow a fixed convention: "user_<uid>_<connID>".
// The connection suffix distinguishes simultaneous connections of the same
// user and is ignored here.
const occupantIdentityPrefix = "user"

// ParseOccupantUserUID extracts the user UID from a room occupant identity.
// It returns false for identities that do not follow the convention (service
// bots, recorders), which the reconciler skips.
func ParseOccupantUserUID(identity string) (string, bool) {
	parts := strings.SplitN(identity, "_", 3)
	if len(parts) < 2 || parts[0] != occupantIdentityPrefix || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// StopRecordingStatus is the closed set of outcomes of a stop-recording call.
type StopRecordingStatus string

const (
	StopRecordingSuccess           StopRecordingStatus = "success"
	StopRecordingPartialSuccess    StopRecordingStatus = "partial_success"
	StopRecordingNoActiveRecording StopRecordingStatus = "no_active_recording"
	StopRecordingFailure           StopRecordingStatus = "failure"
)

// ParseStopRecordingStatus validates a raw status string from the recording
// pipeline.
func ParseStopRecordingStatus(raw string) (StopRecordingStatus, error) {
	switch status := StopRecordingStatus(raw); status {
	case StopRecordingSuccess, StopRecordingPartialSuccess, StopRecordingNoActiveRecording, StopRecordingFailure:
		return status, nil
	default:
		return "", fmt.Errorf("unknown stop recording status %q", raw)
	}
}

// StopRecordingResult is the outcome of a recording-stop request.
type StopRecordingResult struct {
	Status  StopRecordingStatus `json:"status"`
	Message string              `json:"message,omitempty"`
}

// Stopped reports whether the call actually terminated a recording.
func (r *StopRecordingResult) Stopped() bool {
	return r != nil && (r.Status == StopRecordingSuccess || r.Status == StopRecordingPartialSuccess)
}
