// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package constants contains shared constants for the attendance service.
package constants

import "time"

// Attendance engine policy constants.
const (
	// HostRejoinGracePeriod is how long an occurrence stays open after the
	// host's departure, waiting for a possible host rejoin. Past this
	// window a new join closes the occurrence and opens the next one.
	HostRejoinGracePeriod = 15 * time.Minute

	// DefaultReconcileInterval is how often the presence reconciler diffs
	// room occupancy against the ledger.
	DefaultReconcileInterval = 10 * time.Second

	// CollaboratorCallTimeout bounds calls to external collaborators
	// (presence source, recording control, vision scorer) so a slow
	// collaborator degrades a request instead of hanging it.
	CollaboratorCallTimeout = 5 * time.Second
)
