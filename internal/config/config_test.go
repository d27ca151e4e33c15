package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var envKeys = []string{
	"S3AID_BACKEND",
	"S3AID_LOCAL_ROOT",
	"S3_BUCKET",
	"S3_PREFIX",
	"S3_ENDPOINT",
	"AWS_REGION",
	"AWS_ACCESS_KEY_ID",
	"AWS_SECRET_ACCESS_KEY",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
	}
	t.Chdir(t.TempDir())
}

func TestLoadMissingFileRequiresBucket(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err == nil || !strings.Contains(err.Error(), "s3 bucket is required") {
		t.Fatalf("expected missing bucket error, got: %v", err)
	}
}

func TestLoadMissingFileUsesEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("S3_BUCKET", "env-bucket")
	t.Setenv("AWS_ACCESS_KEY_ID", "AKIDEXAMPLE")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "secret")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Backend != BackendS3 {
		t.Fatalf("unexpected default backend: got %q want %q", cfg.Backend, BackendS3)
	}
	if cfg.S3.Bucket != "env-bucket" {
		t.Fatalf("unexpected bucket: got %q", cfg.S3.Bucket)
	}
	if cfg.S3.Prefix != DefaultPrefix {
		t.Fatalf("unexpected default prefix: got %q want %q", cfg.S3.Prefix, DefaultPrefix)
	}
	if cfg.S3.Region != DefaultRegion {
		t.Fatalf("unexpected default region: got %q want %q", cfg.S3.Region, DefaultRegion)
	}
	if cfg.S3.MaxKeys != DefaultMaxKeys {
		t.Fatalf("unexpected default max_keys: got %d", cfg.S3.MaxKeys)
	}
	if cfg.S3.PutTimeout.Duration != 2*time.Minute {
		t.Fatalf("unexpected default put_timeout: got %s", cfg.S3.PutTimeout.Duration)
	}
	if cfg.Credentials.AccessKeyID != "AKIDEXAMPLE" || cfg.Credentials.SecretAccessKey != "secret" {
		t.Fatalf("unexpected credentials: %+v", cfg.Credentials)
	}
}

func TestLoadAppliesDefaultsAndNormalizes(t *testing.T) {
	clearEnv(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := strings.Join([]string{
		"backend = \" LOCAL \"",
		"",
		"[s3]",
		"bucket = \" example-bucket \"",
		"prefix = \"custom\\\\nested//\"",
		"region = \"\"",
		"list_timeout = \"5s\"",
		"",
		"[local]",
		"root = \" /tmp/s3aid \"",
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.Backend != BackendLocal {
		t.Fatalf("expected normalized backend: got %q", cfg.Backend)
	}
	if cfg.S3.Bucket != "example-bucket" {
		t.Fatalf("expected trimmed bucket: got %q", cfg.S3.Bucket)
	}
	if cfg.S3.Prefix != "custom/nested/" {
		t.Fatalf("expected normalized prefix: got %q want %q", cfg.S3.Prefix, "custom/nested/")
	}
	if cfg.S3.Region != DefaultRegion {
		t.Fatalf("expected default region: got %q", cfg.S3.Region)
	}
	if cfg.S3.ListTimeout.Duration != 5*time.Second {
		t.Fatalf("expected list_timeout=5s, got %s", cfg.S3.ListTimeout.Duration)
	}
	if cfg.S3.DeleteTimeout.Duration != 30*time.Second {
		t.Fatalf("expected default delete_timeout, got %s", cfg.S3.DeleteTimeout.Duration)
	}
	if cfg.Local.Root != "/tmp/s3aid" {
		t.Fatalf("expected trimmed local root: got %q", cfg.Local.Root)
	}
}

func TestLoadEnvironmentOverridesFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.toml")
	content := "backend = \"local\"\n[s3]\nbucket = \"file-bucket\"\nprefix = \"file/\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("S3_BUCKET", "env-bucket")
	t.Setenv("S3_PREFIX", "env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.S3.Bucket != "env-bucket" || cfg.S3.Prefix != "env/" {
		t.Fatalf("expected environment overrides, got bucket=%q prefix=%q", cfg.S3.Bucket, cfg.S3.Prefix)
	}
}

func TestLoadReadsDotEnvFile(t *testing.T) {
	clearEnv(t)
	for _, key := range []string{"S3_BUCKET", "S3AID_BACKEND"} {
		if err := os.Unsetenv(key); err != nil {
			t.Fatalf("unset %s: %v", key, err)
		}
	}

	content := "S3_BUCKET=dotenv-bucket\nS3AID_BACKEND=local\n"
	if err := os.WriteFile(EnvFile, []byte(content), 0o600); err != nil {
		t.Fatalf("write dotenv: %v", err)
	}

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.S3.Bucket != "dotenv-bucket" {
		t.Fatalf("expected bucket from dotenv, got %q", cfg.S3.Bucket)
	}
	if cfg.Backend != BackendLocal {
		t.Fatalf("expected backend from dotenv, got %q", cfg.Backend)
	}
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[s3\nbucket = "), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "decode") {
		t.Fatalf("expected decode error, got: %v", err)
	}
}

func TestNormalizePrefix(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "empty", input: "", want: ""},
		{name: "adds trailing slash", input: "b-wing", want: "b-wing/"},
		{name: "keeps trailing slash", input: "b-wing/", want: "b-wing/"},
		{name: "normalizes slashes", input: "b-wing\\nested", want: "b-wing/nested/"},
		{name: "collapses duplicate separators", input: "b-wing//nested///", want: "b-wing/nested/"},
		{name: "keeps leading slash for validation", input: "/b-wing", want: "/b-wing/"},
		{name: "only separators", input: "///", want: "/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizePrefix(tt.input); got != tt.want {
				t.Fatalf("prefix mismatch: got %q want %q", got, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	validS3 := func() Config {
		cfg := *DefaultConfig()
		cfg.S3.Bucket = "bucket"
		cfg.Credentials = CredentialsConfig{AccessKeyID: "id", SecretAccessKey: "secret"}
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid s3", mutate: func(*Config) {}},
		{name: "valid local without credentials", mutate: func(c *Config) {
			c.Backend = BackendLocal
			c.Credentials = CredentialsConfig{}
			c.S3.Region = ""
		}},
		{name: "valid custom endpoint", mutate: func(c *Config) { c.S3.Endpoint = "http://localhost:9000" }},
		{name: "reject unknown backend", mutate: func(c *Config) { c.Backend = "gcs" }, wantErr: "backend must be s3 or local"},
		{name: "reject missing bucket", mutate: func(c *Config) { c.S3.Bucket = "" }, wantErr: "s3 bucket is required"},
		{name: "reject missing prefix", mutate: func(c *Config) { c.S3.Prefix = "" }, wantErr: "s3 prefix is required"},
		{name: "reject absolute prefix", mutate: func(c *Config) { c.S3.Prefix = "/b-wing/" }, wantErr: "must be relative"},
		{name: "reject traversal prefix", mutate: func(c *Config) { c.S3.Prefix = "safe/../b-wing/" }, wantErr: "must not contain"},
		{name: "reject max_keys above page size", mutate: func(c *Config) { c.S3.MaxKeys = 5000 }, wantErr: "max_keys must be between"},
		{name: "reject negative timeout", mutate: func(c *Config) { c.S3.PutTimeout = Duration{-time.Second} }, wantErr: "timeouts must be positive"},
		{name: "reject missing region", mutate: func(c *Config) { c.S3.Region = "" }, wantErr: "s3 region is required"},
		{name: "reject malformed endpoint", mutate: func(c *Config) { c.S3.Endpoint = "://bad" }, wantErr: "valid http(s) URL"},
		{name: "reject endpoint scheme", mutate: func(c *Config) { c.S3.Endpoint = "ftp://example.com" }, wantErr: "must use http or https"},
		{name: "reject missing secret", mutate: func(c *Config) { c.Credentials.SecretAccessKey = "" }, wantErr: "missing credentials"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validS3()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected validation error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got: %v", tt.wantErr, err)
			}
		})
	}
}
