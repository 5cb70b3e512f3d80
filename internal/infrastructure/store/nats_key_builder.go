// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package store

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"github.com/nats-io/nats.go"
)

// Common key prefixes
const (
	KeyPrefixRecord  = "record"
	KeyPrefixMeeting = "meeting"
)

// KeyBuilder provides utilities for building consistent NATS KV keys
type KeyBuilder struct{}

// NewKeyBuilder creates a new key builder
func NewKeyBuilder() *KeyBuilder {
	return &KeyBuilder{}
}

// RecordKey builds the ledger key for an attendance record:
// record/<meetingUID>/<userUID>/<occurrence>, KV-encoded.
func (kb *KeyBuilder) RecordKey(meetingUID, userUID string, occurrence int) (string, error) {
	return kb.EncodeKey(fmt.Sprintf("%s/%s/%s/%d", KeyPrefixRecord, meetingUID, userUID, occurrence))
}

// RecordPrefixMeeting builds the decoded key prefix matching every record of
// a meeting.
func (kb *KeyBuilder) RecordPrefixMeeting(meetingUID string) string {
	return fmt.Sprintf("%s/%s/", KeyPrefixRecord, meetingUID)
}

// RecordPrefixMeetingUser builds the decoded key prefix matching every record
// of a participant within a meeting.
func (kb *KeyBuilder) RecordPrefixMeetingUser(meetingUID, userUID string) string {
	return fmt.Sprintf("%s/%s/%s/", KeyPrefixRecord, meetingUID, userUID)
}

// ParseRecordKey splits a decoded record key back into its parts.
func (kb *KeyBuilder) ParseRecordKey(decodedKey string) (meetingUID, userUID string, occurrence int, err error) {
	parts := strings.Split(strings.TrimPrefix(decodedKey, "/"), "/")
	if len(parts) != 4 || parts[0] != KeyPrefixRecord {
		return "", "", 0, fmt.Errorf("malformed record key %q", decodedKey)
	}
	occurrence, err = strconv.Atoi(parts[3])
	if err != nil {
		return "", "", 0, fmt.Errorf("malformed occurrence in record key %q: %w", decodedKey, err)
	}
	return parts[1], parts[2], occurrence, nil
}

// EncodeKey encodes a key for NATS KV store.
// From https://github.com/ripienaar/encodedkv
//
// NATS limitations: https://docs.nats.io/nats-concepts/jetstream/key-value-store#notes
func (kb *KeyBuilder) EncodeKey(key string) (string, error) {
	res := []string{}
	for _, part := range strings.Split(strings.TrimPrefix(key, "/"), "/") {
		if part == ">" || part == "*" {
			res = append(res, part)
			continue
		}

		dst := make([]byte, base64.StdEncoding.EncodedLen(len(part)))
		base64.StdEncoding.Encode(dst, []byte(part))
		res = append(res, string(dst))
	}

	if len(res) == 0 {
		return "", nats.ErrInvalidKey
	}

	return strings.Join(res, "."), nil
}

// DecodeKey decodes a key for NATS KV store.
// From https://github.com/ripienaar/encodedkv
//
// NATS limitations: https://docs.nats.io/nats-concepts/jetstream/key-value-store#notes
func (kb *KeyBuilder) DecodeKey(key string) (string, error) {
	res := []string{}
	for _, part := range strings.Split(key, ".") {
		k, err := base64.StdEncoding.DecodeString(part)
		if err != nil {
			return "", err
		}

		res = append(res, string(k))
	}

	if len(res) == 0 {
		return "", nats.ErrInvalidKey
	}

	return strings.Join(res, "/"), nil
}
