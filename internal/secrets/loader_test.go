package secrets

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFromFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "key")
	if err := os.WriteFile(path, []byte("  file-secret \n"), 0o600); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	got, err := Load(Source{Name: "api key", File: path, Value: "inline-ignored"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "file-secret" {
		t.Fatalf("expected trimmed file secret, got %q", got)
	}
}

func TestLoadEmptyFileFails(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "key")
	if err := os.WriteFile(path, []byte("   \n"), 0o600); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	if _, err := Load(Source{Name: "api key", File: path}); err == nil {
		t.Fatal("expected an error for an empty secret file")
	}
}

func TestLoadFromValue(t *testing.T) {
	t.Parallel()

	got, err := Load(Source{Name: "api key", Value: " inline "})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "inline" {
		t.Fatalf("expected trimmed inline secret, got %q", got)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("FEEDBACK_ENGINE_TEST_KEY", " env-secret ")

	got, err := Load(Source{Name: "api key", Env: "FEEDBACK_ENGINE_TEST_KEY"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "env-secret" {
		t.Fatalf("expected trimmed env secret, got %q", got)
	}
}

func TestLoadUnconfigured(t *testing.T) {
	t.Setenv("FEEDBACK_ENGINE_MISSING_KEY", "")

	if _, err := Load(Source{Name: "api key", Env: "FEEDBACK_ENGINE_MISSING_KEY"}); err == nil {
		t.Fatal("expected an error when every source is empty")
	}
	if _, err := Load(Source{Name: "api key"}); err == nil {
		t.Fatal("expected an error for a fully empty source")
	}
}
