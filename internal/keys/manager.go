// Package keys manages the objects stored under one key prefix of a bucket:
// listing them, selecting them by regular expression, uploading local files
// and deleting matches.
package keys

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path"
	"regexp"
	"strings"

	"s3aid/internal/config"
	"s3aid/internal/storage"
)

// Manager is stateless between calls; every operation reads the store anew.
// It is not safe for concurrent use while a DeleteMatching is in flight
// because listing and deleting are not transactional.
type Manager struct {
	bucket string
	prefix string
	store  storage.ObjectStore
	logger *slog.Logger
}

type Option func(*Manager)

func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// New returns a Manager for the keys under prefix in bucket. The prefix is
// normalized to end with a single "/".
func New(bucket, prefix string, store storage.ObjectStore, opts ...Option) (*Manager, error) {
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, errors.New("bucket is required")
	}
	prefix = config.NormalizePrefix(prefix)
	if prefix == "" {
		return nil, errors.New("prefix is required")
	}
	if store == nil {
		return nil, errors.New("object store is required")
	}

	m := &Manager{
		bucket: bucket,
		prefix: prefix,
		store:  store,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

func (m *Manager) Bucket() string { return m.bucket }

func (m *Manager) Prefix() string { return m.prefix }

// KeyFor returns the key a local file named name is uploaded to: the prefix
// followed by the file's base name. It returns "" when name has no base name.
func (m *Manager) KeyFor(name string) string {
	base := path.Base(strings.ReplaceAll(strings.TrimSpace(name), `\`, "/"))
	if base == "." || base == "/" || base == ".." {
		return ""
	}
	return m.prefix + base
}

// ListKeys returns the keys under the prefix in store order. No keys is an
// empty slice, not an error.
func (m *Manager) ListKeys(ctx context.Context) ([]string, error) {
	return m.list(ctx, "list")
}

// ListKeysMatching returns the keys under the prefix that pattern matches
// anywhere. The pattern is compiled before the store is contacted.
func (m *Manager) ListKeysMatching(ctx context.Context, pattern string) ([]string, error) {
	re, err := m.compile("list", pattern)
	if err != nil {
		return nil, err
	}
	return m.listMatching(ctx, "list", re)
}

// Upload replaces the object at key with the contents of localPath. Keys
// outside the prefix are accepted.
func (m *Manager) Upload(ctx context.Context, localPath, key string) error {
	if strings.TrimSpace(key) == "" {
		return &Error{Op: "upload", Bucket: m.bucket, Kind: ErrInvalidKey}
	}

	info, err := os.Stat(localPath)
	if err != nil {
		return &Error{Op: "upload", Bucket: m.bucket, Key: key, Kind: ErrLocalFileNotFound, Err: err}
	}
	if info.IsDir() {
		return &Error{Op: "upload", Bucket: m.bucket, Key: key, Kind: ErrLocalFileNotFound, Err: errors.New(localPath + " is a directory")}
	}
	if !strings.HasPrefix(key, m.prefix) {
		m.logger.WarnContext(ctx, "uploading outside managed prefix", "key", key, "prefix", m.prefix)
	}

	m.logger.DebugContext(ctx, "uploading object", "bucket", m.bucket, "key", key, "path", localPath, "size", info.Size())
	if err := m.store.Put(ctx, m.bucket, key, localPath); err != nil {
		return m.storeError("upload", key, err)
	}
	return nil
}

type DeleteResult struct {
	// Matched is the listing snapshot the delete pass worked from.
	Matched []string
	// Deleted holds the keys whose delete call succeeded, in order.
	Deleted []string
	// Failed is the key whose delete call aborted the pass, if any.
	Failed string
}

func (r DeleteResult) Count() int { return len(r.Deleted) }

// NotAttempted returns the matched keys left untouched after a failure.
func (r DeleteResult) NotAttempted() []string {
	if r.Failed == "" {
		return nil
	}
	next := len(r.Deleted) + 1
	if next >= len(r.Matched) {
		return []string{}
	}
	return append([]string(nil), r.Matched[next:]...)
}

// DeleteMatching lists once, then deletes every matched key sequentially.
// The first failing delete stops the pass; the partial result is returned
// together with the error. Keys created after the listing are not seen and
// keys removed after it are still deleted (a no-op on most stores).
func (m *Manager) DeleteMatching(ctx context.Context, pattern string) (DeleteResult, error) {
	re, err := m.compile("delete", pattern)
	if err != nil {
		return DeleteResult{}, err
	}

	matched, err := m.listMatching(ctx, "delete", re)
	if err != nil {
		return DeleteResult{}, err
	}

	result := DeleteResult{
		Matched: matched,
		Deleted: make([]string, 0, len(matched)),
	}
	for _, key := range matched {
		if err := m.store.Delete(ctx, m.bucket, key); err != nil {
			result.Failed = key
			m.logger.DebugContext(ctx, "delete aborted", "key", key, "deleted", len(result.Deleted), "matched", len(matched))
			return result, m.storeError("delete", key, err)
		}
		result.Deleted = append(result.Deleted, key)
	}

	m.logger.DebugContext(ctx, "delete pass complete", "pattern", pattern, "deleted", len(result.Deleted))
	return result, nil
}

func (m *Manager) list(ctx context.Context, op string) ([]string, error) {
	objects, err := m.store.List(ctx, m.bucket, m.prefix)
	if err != nil {
		return nil, m.storeError(op, "", err)
	}

	keys := make([]string, 0, len(objects))
	for _, obj := range objects {
		if obj.Key == "" || !strings.HasPrefix(obj.Key, m.prefix) {
			continue
		}
		keys = append(keys, obj.Key)
	}
	m.logger.DebugContext(ctx, "listed keys", "bucket", m.bucket, "prefix", m.prefix, "count", len(keys))
	return keys, nil
}

func (m *Manager) listMatching(ctx context.Context, op string, re *regexp.Regexp) ([]string, error) {
	keys, err := m.list(ctx, op)
	if err != nil {
		return nil, err
	}

	matched := make([]string, 0, len(keys))
	for _, key := range keys {
		if re.MatchString(key) {
			matched = append(matched, key)
		}
	}
	return matched, nil
}

func (m *Manager) compile(op, pattern string) (*regexp.Regexp, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, &Error{Op: op, Bucket: m.bucket, Kind: ErrPattern, Err: err}
	}
	return re, nil
}

func (m *Manager) storeError(op, key string, err error) error {
	kind := ErrStore
	switch {
	case errors.Is(err, storage.ErrLocalFileNotFound):
		kind = ErrLocalFileNotFound
	case errors.Is(err, storage.ErrAccessDenied):
		kind = ErrStoreAccess
	}
	return &Error{Op: op, Bucket: m.bucket, Key: key, Kind: kind, Err: err}
}
