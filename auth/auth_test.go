// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"bytes"
	"strings"
	"testing"
)

func TestGenerateID(t *testing.T) {
	tests := []struct {
		name    string
		byteLen int
		wantLen int // hex encoded length = byteLen * 2
	}{
		{"8 bytes", 8, 16},
		{"16 bytes", 16, 32},
		{"24 bytes", 24, 48},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := GenerateID(tt.byteLen)
			if err != nil {
				t.Fatalf("GenerateID() error = %v", err)
			}
			if len(id) != tt.wantLen {
				t.Errorf("GenerateID() length = %d, want %d", len(id), tt.wantLen)
			}
			// Verify it's valid hex
			for _, c := range id {
				if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
					t.Errorf("GenerateID() contains invalid hex char: %c", c)
				}
			}
		})
	}

	// Test randomness - two IDs should be different
	id1, _ := GenerateID(16)
	id2, _ := GenerateID(16)
	if id1 == id2 {
		t.Error("GenerateID() produced duplicate IDs (extremely unlikely)")
	}
}

func TestGenerateAdminKey(t *testing.T) {
	tests := []struct {
		name    string
		adminID string
		salt    string
	}{
		{"standard", "admin-1", "secret-salt"},
		{"empty admin id", "", "salt"},
		{"empty salt", "admin-2", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := GenerateAdminKey(tt.adminID, tt.salt)

			if key == "" {
				t.Error("GenerateAdminKey() returned empty string")
			}

			// Should be deterministic
			if key != GenerateAdminKey(tt.adminID, tt.salt) {
				t.Error("GenerateAdminKey() is not deterministic")
			}

			if tt.adminID != "" && tt.salt != "" {
				if key == GenerateAdminKey(tt.adminID+"x", tt.salt) {
					t.Error("GenerateAdminKey() produced same key for different admin IDs")
				}
			}

			// Should be URL-safe (no padding)
			if strings.Contains(key, "=") {
				t.Error("GenerateAdminKey() contains padding characters")
			}
		})
	}
}

func TestValidateAdminKey(t *testing.T) {
	adminID := "admin-123"
	salt := "test-salt"
	validKey := GenerateAdminKey(adminID, salt)

	tests := []struct {
		name    string
		adminID string
		key     string
		salt    string
		wantErr error
	}{
		{"valid key", adminID, validKey, salt, nil},
		{"wrong key", adminID, "invalid-key", salt, ErrInvalidAdminKey},
		{"wrong salt", adminID, validKey, "other-salt", ErrInvalidAdminKey},
		{"other admin", "admin-456", validKey, salt, ErrInvalidAdminKey},
		{"empty key", adminID, "", salt, ErrInvalidAdminKey},
		{"missing admin id", "", validKey, salt, ErrMissingIdentity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAdminKey(tt.adminID, tt.key, tt.salt)
			if err != tt.wantErr {
				t.Errorf("ValidateAdminKey() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestVoterCommitment(t *testing.T) {
	c1 := VoterCommitment("voter-1", "salt")
	if len(c1) != 32 {
		t.Fatalf("VoterCommitment() length = %d, want 32", len(c1))
	}
	if !bytes.Equal(c1, VoterCommitment("voter-1", "salt")) {
		t.Error("VoterCommitment() is not deterministic")
	}
	if bytes.Equal(c1, VoterCommitment("voter-2", "salt")) {
		t.Error("VoterCommitment() collides across voters")
	}
	if bytes.Equal(c1, VoterCommitment("voter-1", "other")) {
		t.Error("VoterCommitment() ignores the salt")
	}
	if bytes.Equal(c1, AddressSeed("voter-1", "salt")) {
		t.Error("AddressSeed() and VoterCommitment() must be domain separated")
	}
}

func BenchmarkGenerateID(b *testing.B) {
	for i := 0; i < b.N; i++ {
		GenerateID(16)
	}
}

func BenchmarkGenerateAdminKey(b *testing.B) {
	for i := 0; i < b.N; i++ {
		GenerateAdminKey("admin-123", "benchmark-salt")
	}
}
