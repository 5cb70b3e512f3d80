// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package service contains the attendance engine: occurrence resolution,
// join/leave processing, attendance scoring, recording coordination, and
// presence reconciliation.
package service

import "time"

type Service interface {
	ServiceReady() bool
}

// ServiceConfig is the configuration for the Services.
type ServiceConfig struct {
	// ReconcileInterval is how often the presence reconciler runs.
	// Zero means the default interval.
	ReconcileInterval time.Duration
}
