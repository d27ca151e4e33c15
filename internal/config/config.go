package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const (
	BackendS3    = "s3"
	BackendLocal = "local"

	DefaultPrefix  = "b-wing/"
	DefaultRegion  = "us-east-1"
	DefaultMaxKeys = 1000
)

// EnvFile is the dotenv file read from the working directory by Load.
var EnvFile = ".env"

type Config struct {
	Backend     string            `toml:"backend"`
	S3          S3Config          `toml:"s3"`
	Credentials CredentialsConfig `toml:"credentials"`
	Local       LocalConfig       `toml:"local"`
}

type S3Config struct {
	Endpoint      string   `toml:"endpoint"`
	Region        string   `toml:"region"`
	Bucket        string   `toml:"bucket"`
	Prefix        string   `toml:"prefix"`
	MaxKeys       int32    `toml:"max_keys"`
	ListTimeout   Duration `toml:"list_timeout"`
	PutTimeout    Duration `toml:"put_timeout"`
	DeleteTimeout Duration `toml:"delete_timeout"`
}

type CredentialsConfig struct {
	AccessKeyID     string `toml:"access_key_id"`
	SecretAccessKey string `toml:"secret_access_key"`
}

type LocalConfig struct {
	Root string `toml:"root"`
}

// Duration decodes TOML strings such as "30s" or "2m".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

func DefaultConfig() *Config {
	return &Config{
		Backend: BackendS3,
		S3: S3Config{
			Region:        DefaultRegion,
			Prefix:        DefaultPrefix,
			MaxKeys:       DefaultMaxKeys,
			ListTimeout:   Duration{30 * time.Second},
			PutTimeout:    Duration{2 * time.Minute},
			DeleteTimeout: Duration{30 * time.Second},
		},
	}
}

// Load reads the TOML file at path (a missing file yields defaults), then
// the dotenv file, then environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, cfg); err != nil {
				return nil, fmt.Errorf("decode %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, err
		}
	}

	if err := godotenv.Load(EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", EnvFile, err)
	}

	cfg.ApplyEnv(os.LookupEnv)
	cfg.ApplyDefaults()
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ApplyEnv overrides fields from the process environment. Empty values are
// treated as unset.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	get := func(key string) (string, bool) {
		value, ok := lookup(key)
		if !ok || strings.TrimSpace(value) == "" {
			return "", false
		}
		return value, true
	}

	if v, ok := get("S3AID_BACKEND"); ok {
		c.Backend = v
	}
	if v, ok := get("S3AID_LOCAL_ROOT"); ok {
		c.Local.Root = v
	}
	if v, ok := get("S3_BUCKET"); ok {
		c.S3.Bucket = v
	}
	if v, ok := get("S3_PREFIX"); ok {
		c.S3.Prefix = v
	}
	if v, ok := get("S3_ENDPOINT"); ok {
		c.S3.Endpoint = v
	}
	if v, ok := get("AWS_REGION"); ok {
		c.S3.Region = v
	}
	if v, ok := get("AWS_ACCESS_KEY_ID"); ok {
		c.Credentials.AccessKeyID = v
	}
	if v, ok := get("AWS_SECRET_ACCESS_KEY"); ok {
		c.Credentials.SecretAccessKey = v
	}
}

func (c *Config) ApplyDefaults() {
	if strings.TrimSpace(c.Backend) == "" {
		c.Backend = BackendS3
	}
	if strings.TrimSpace(c.S3.Prefix) == "" {
		c.S3.Prefix = DefaultPrefix
	}
	if strings.TrimSpace(c.S3.Region) == "" {
		c.S3.Region = DefaultRegion
	}
	if c.S3.MaxKeys == 0 {
		c.S3.MaxKeys = DefaultMaxKeys
	}
	defaults := DefaultConfig()
	if c.S3.ListTimeout.Duration == 0 {
		c.S3.ListTimeout = defaults.S3.ListTimeout
	}
	if c.S3.PutTimeout.Duration == 0 {
		c.S3.PutTimeout = defaults.S3.PutTimeout
	}
	if c.S3.DeleteTimeout.Duration == 0 {
		c.S3.DeleteTimeout = defaults.S3.DeleteTimeout
	}
}

func (c *Config) Normalize() {
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	c.S3.Endpoint = strings.TrimSpace(c.S3.Endpoint)
	c.S3.Region = strings.TrimSpace(c.S3.Region)
	c.S3.Bucket = strings.TrimSpace(c.S3.Bucket)
	c.S3.Prefix = NormalizePrefix(c.S3.Prefix)
	c.Credentials.AccessKeyID = strings.TrimSpace(c.Credentials.AccessKeyID)
	c.Credentials.SecretAccessKey = strings.TrimSpace(c.Credentials.SecretAccessKey)
	c.Local.Root = strings.TrimSpace(c.Local.Root)
}

// NormalizePrefix converts separators to slashes, collapses repeated
// separators and guarantees a single trailing slash.
func NormalizePrefix(prefix string) string {
	p := strings.ReplaceAll(strings.TrimSpace(prefix), "\\", "/")
	if p == "" {
		return ""
	}
	leading := strings.HasPrefix(p, "/")
	parts := strings.Split(p, "/")
	kept := make([]string, 0, len(parts))
	for _, part := range parts {
		if part != "" {
			kept = append(kept, part)
		}
	}
	if len(kept) == 0 {
		return "/"
	}
	out := strings.Join(kept, "/") + "/"
	if leading {
		out = "/" + out
	}
	return out
}

func (c *Config) Validate() error {
	switch c.Backend {
	case BackendS3, BackendLocal:
	default:
		return errors.New("backend must be s3 or local")
	}

	if c.S3.Bucket == "" {
		return errors.New("s3 bucket is required (set [s3].bucket or S3_BUCKET)")
	}
	if err := validatePrefix(c.S3.Prefix); err != nil {
		return err
	}
	if c.S3.MaxKeys < 1 || c.S3.MaxKeys > DefaultMaxKeys {
		return fmt.Errorf("s3 max_keys must be between 1 and %d", DefaultMaxKeys)
	}
	if c.S3.ListTimeout.Duration < 0 || c.S3.PutTimeout.Duration < 0 || c.S3.DeleteTimeout.Duration < 0 {
		return errors.New("s3 timeouts must be positive")
	}

	if c.Backend == BackendLocal {
		return nil
	}

	if c.S3.Region == "" {
		return errors.New("s3 region is required")
	}
	if c.S3.Endpoint != "" {
		u, err := url.Parse(c.S3.Endpoint)
		if err != nil || u.Host == "" {
			return errors.New("s3 endpoint must be a valid http(s) URL")
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return errors.New("s3 endpoint must use http or https")
		}
	}
	if c.Credentials.AccessKeyID == "" || c.Credentials.SecretAccessKey == "" {
		return errors.New("missing credentials: set AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY")
	}
	return nil
}

func validatePrefix(prefix string) error {
	if prefix == "" || prefix == "/" {
		return errors.New("s3 prefix is required")
	}
	if strings.HasPrefix(prefix, "/") {
		return errors.New("s3 prefix must be relative")
	}
	for _, part := range strings.Split(strings.TrimSuffix(prefix, "/"), "/") {
		if part == "." || part == ".." {
			return errors.New("s3 prefix must not contain . or .. segments")
		}
	}
	return nil
}
