package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestStorageError(t *testing.T) {
	baseErr := errors.New("database is locked")

	t.Run("retriable error", func(t *testing.T) {
		err := NewStorageError("save_state", baseErr)

		if !err.IsRetriable() {
			t.Error("Expected error to be retriable")
		}

		if err.Error() != "save_state: database is locked" {
			t.Errorf("Error message = %q, want %q", err.Error(), "save_state: database is locked")
		}

		if !errors.Is(err, baseErr) {
			t.Error("Expected error to wrap baseErr")
		}
	})

	t.Run("fatal error", func(t *testing.T) {
		err := NewFatalStorageError("append_events", baseErr)

		if err.IsRetriable() {
			t.Error("Expected error to not be retriable")
		}
	})

	t.Run("IsRetriable helper", func(t *testing.T) {
		retriable := NewStorageError("load_state", baseErr)
		fatal := NewFatalStorageError("recent_events", baseErr)
		plain := errors.New("plain error")

		if !IsRetriable(retriable) {
			t.Error("IsRetriable should return true for retriable error")
		}

		if IsRetriable(fatal) {
			t.Error("IsRetriable should return false for fatal error")
		}

		if IsRetriable(plain) {
			t.Error("IsRetriable should return false for plain error")
		}

		if !IsRetriable(fmt.Errorf("save portfolio: %w", retriable)) {
			t.Error("IsRetriable should see through wrapping")
		}

		if !IsRetriable(errors.Join(nil, retriable)) {
			t.Error("IsRetriable should see through joined errors")
		}
	})
}

func TestConfigError(t *testing.T) {
	baseErr := errors.New("must be positive")
	err := &ConfigError{Field: "simulation.tick_interval_ms", Err: baseErr}

	if err.IsRetriable() {
		t.Error("ConfigError should never be retriable")
	}

	expected := "config error [simulation.tick_interval_ms]: must be positive"
	if err.Error() != expected {
		t.Errorf("Error message = %q, want %q", err.Error(), expected)
	}

	if !errors.Is(err, baseErr) {
		t.Error("Expected ConfigError to unwrap")
	}
}
