// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidAdminKey = errors.New("invalid admin key")
	ErrMissingIdentity = errors.New("missing identity")
)

// GenerateID creates a random hex ID of the specified byte length
func GenerateID(byteLen int) (string, error) {
	b := make([]byte, byteLen)
	_, err := rand.Read(b)
	if err != nil {
		return "", fmt.Errorf("failed to generate random ID: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// GenerateAdminKey creates an HMAC-based key for an administrator identity.
// This is deterministic and verifiable
func GenerateAdminKey(adminID, salt string) string {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(adminID))
	sum := h.Sum(nil)
	// Use URL-safe base64 and trim padding for cleaner keys
	return strings.TrimRight(base64.URLEncoding.EncodeToString(sum), "=")
}

// ValidateAdminKey checks if the provided key belongs to the admin ID
func ValidateAdminKey(adminID, adminKey, salt string) error {
	if adminID == "" {
		return ErrMissingIdentity
	}
	expected := GenerateAdminKey(adminID, salt)
	if !hmac.Equal([]byte(adminKey), []byte(expected)) {
		return ErrInvalidAdminKey
	}
	return nil
}

// VoterCommitment binds a voter ID to a value that can be published without
// revealing the ID. Only holders of the salt can recompute it.
func VoterCommitment(voterID, salt string) []byte {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte("voter-commitment:"))
	h.Write([]byte(voterID))
	return h.Sum(nil)
}

// AddressSeed derives the 32-byte seed for a voter's ledger key.
// Domain-separated from VoterCommitment so the two never collide.
func AddressSeed(voterID, salt string) []byte {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte("ledger-address:"))
	h.Write([]byte(voterID))
	return h.Sum(nil)
}
