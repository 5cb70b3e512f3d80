// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

import "testing"

func TestParseOccupantUserUID(t *testing.T) {
	tests := []struct {
		name     string
		identity string
		expected string
		ok       bool
	}{
		{name: "standard identity", identity: "user_abc123_conn1", expected: "abc123", ok: true},
		{name: "no connection suffix", identity: "user_abc123", expected: "abc123", ok: true},
		{name: "uid containing underscores keeps first segment", identity: "user_abc_def_ghi", expected: "abc", ok: true},
		{name: "recorder bot", identity: "recorder_abc123", ok: false},
		{name: "service bot", identity: "svc-transcriber", ok: false},
		{name: "empty uid segment", identity: "user__conn1", ok: false},
		{name: "empty identity", identity: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			userUID, ok := ParseOccupantUserUID(tt.identity)
			if ok != tt.ok {
				t.Fatalf("expected ok=%v for %q, got %v", tt.ok, tt.identity, ok)
			}
			if ok && userUID != tt.expected {
				t.Errorf("expected user UID %q, got %q", tt.expected, userUID)
			}
		})
	}
}

func TestParseStopRecordingStatus(t *testing.T) {
	for _, raw := range []string{"success", "partial_success", "no_active_recording", "failure"} {
		status, err := ParseStopRecordingStatus(raw)
		if err != nil {
			t.Errorf("unexpected error for %q: %v", raw, err)
		}
		if string(status) != raw {
			t.Errorf("expected status %q, got %q", raw, status)
		}
	}

	if _, err := ParseStopRecordingStatus("stopped"); err == nil {
		t.Error("expected error for unknown status")
	}
}

func TestStopRecordingResult_Stopped(t *testing.T) {
	tests := []struct {
		status  StopRecordingStatus
		stopped bool
	}{
		{StopRecordingSuccess, true},
		{StopRecordingPartialSuccess, true},
		{StopRecordingNoActiveRecording, false},
		{StopRecordingFailure, false},
	}

	for _, tt := range tests {
		result := &StopRecordingResult{Status: tt.status}
		if result.Stopped() != tt.stopped {
			t.Errorf("expected Stopped()=%v for %q", tt.stopped, tt.status)
		}
	}

	var nilResult *StopRecordingResult
	if nilResult.Stopped() {
		t.Error("expected nil result to not be stopped")
	}
}
