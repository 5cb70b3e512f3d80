// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package utils provides utility functions for the attendance service.
package utils

import "time"

// TimePtr converts a time.Time to a pointer to a time.Time.
func TimePtr(t time.Time) *time.Time {
	return &t
}

// TimeValue safely dereferences a time pointer, returning zero time if nil.
func TimeValue(t *time.Time) time.Time {
	if t != nil {
		return *t
	}
	return time.Time{}
}

// Float64Ptr converts a float64 to a pointer to a float64.
func Float64Ptr(f float64) *float64 {
	return &f
}

// Float64Value safely dereferences a float64 pointer, returning 0 if nil.
func Float64Value(f *float64) float64 {
	if f != nil {
		return *f
	}
	return 0
}
