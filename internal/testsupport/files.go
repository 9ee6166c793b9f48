package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteTranscript writes a WebVTT file with the given body; callers pass
// paths under t.TempDir().
func WriteTranscript(t testing.TB, path, body string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("create transcript directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write transcript: %v", err)
	}
}
