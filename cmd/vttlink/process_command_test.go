package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"vttlink/internal/runner"
)

func TestProcessRejectsInvalidThresholds(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	input := filepath.Join(t.TempDir(), "talk.vtt")
	if err := os.WriteFile(input, []byte("WEBVTT\n"), 0o644); err != nil {
		t.Fatalf("write transcript: %v", err)
	}

	_, err := runCLI(t, []string{"process",
		"--accept-threshold", "0.9",
		"--review-threshold", "0.5",
		input,
	})
	if err == nil {
		t.Fatal("process should reject a review threshold below the accept threshold")
	}
	if !errors.Is(err, runner.ErrConfiguration) {
		t.Errorf("invalid thresholds should classify as a configuration error: %v", err)
	}
}
