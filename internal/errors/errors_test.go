package errors

import (
	"fmt"
	"testing"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"signature mismatch", ErrSignatureMismatch, ExitVerifyFailed},
		{"short stream", fmt.Errorf("reading chunk: %w", ErrSignatureNotPresent), ExitVerifyFailed},
		{"invalid link", ErrInvalidLink, ExitDecryptFailed},
		{"decrypt", fmt.Errorf("layer 2: %w", ErrDecryptFailed), ExitDecryptFailed},
		{"storage init", ErrStorageInit, ExitStorage},
		{"cleanup failed", ErrCleanupFailed, ExitCleanupFailed},
		{"unknown plugin", ErrUnknownPlugin, ExitUsage},
		{"no signing key", ErrNoSigningKey, ExitUsage},
		{"other", fmt.Errorf("boom"), ExitGenericError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("Expected exit code %d, got %d", tt.want, got)
			}
		})
	}
}

func TestClassesAreDisjoint(t *testing.T) {
	security := []error{ErrSignatureMismatch, ErrDecryptFailed}
	for _, err := range security {
		if IsUsage(err) || IsConfiguration(err) {
			t.Errorf("Expected %v to be only a security error", err)
		}
		if !IsSecurity(err) {
			t.Errorf("Expected %v to be a security error", err)
		}
	}

	if IsSecurity(ErrNoSigningKey) {
		t.Error("Expected ErrNoSigningKey not to be a security error")
	}
	if !IsUsage(ErrNoSigningKey) {
		t.Error("Expected ErrNoSigningKey to be a usage error")
	}
}

func TestClass(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{fmt.Errorf("chunk 3: %w", ErrDecryptFailed), "integrity check failed"},
		{ErrSignatureNotPresent, "integrity check failed"},
		{ErrInvalidLink, "invalid link"},
		{ErrNotFound, "storage error"},
		{ErrUnknownPlugin, "configuration error"},
		{ErrConflictingInput, "usage error"},
		{ErrNotInitialized, "local state error"},
		{fmt.Errorf("boom"), ""},
	}

	for _, tt := range tests {
		if got := Class(tt.err); got != tt.want {
			t.Errorf("Expected class %q for %v, got %q", tt.want, tt.err, got)
		}
	}
}
