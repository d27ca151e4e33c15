package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func captureStdout(t *testing.T, fn func() error) (string, error) {
	t.Helper()

	original := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	os.Stdout = w

	runErr := fn()
	_ = w.Close()
	os.Stdout = original

	out, readErr := io.ReadAll(r)
	_ = r.Close()
	if readErr != nil {
		t.Fatalf("read stdout: %v", readErr)
	}
	return string(out), runErr
}

// setCLIHome isolates the test from the caller's config directory and
// environment, and runs it from an empty working directory.
func setCLIHome(t *testing.T) {
	t.Helper()

	homeDir := t.TempDir()
	t.Setenv("HOME", homeDir)
	t.Setenv("XDG_CONFIG_HOME", homeDir)
	for _, key := range []string{
		"S3AID_BACKEND", "S3AID_LOCAL_ROOT", "S3_BUCKET", "S3_PREFIX",
		"S3_ENDPOINT", "AWS_REGION", "AWS_ACCESS_KEY_ID", "AWS_SECRET_ACCESS_KEY",
	} {
		t.Setenv(key, "")
	}
	t.Chdir(t.TempDir())
}

// writeLocalConfig writes a config selecting the local backend rooted at
// root and returns its path.
func writeLocalConfig(t *testing.T, root string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.toml")
	content := fmt.Sprintf("backend = \"local\"\n\n[s3]\nbucket = \"bucket\"\nprefix = \"b-wing/\"\n\n[local]\nroot = %q\n", root)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func seedObjects(t *testing.T, root string, keys ...string) {
	t.Helper()

	for _, key := range keys {
		path := filepath.Join(root, "bucket", filepath.FromSlash(key))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir for %s: %v", key, err)
		}
		if err := os.WriteFile(path, []byte(key), 0o600); err != nil {
			t.Fatalf("seed %s: %v", key, err)
		}
	}
}

func objectExists(t *testing.T, root, key string) bool {
	t.Helper()

	_, err := os.Stat(filepath.Join(root, "bucket", filepath.FromSlash(key)))
	if err != nil && !os.IsNotExist(err) {
		t.Fatalf("stat %s: %v", key, err)
	}
	return err == nil
}
