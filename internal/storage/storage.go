package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"s3aid/internal/config"
)

var (
	// ErrAccessDenied marks failures where the store refused the caller.
	ErrAccessDenied = errors.New("access denied")
	// ErrLocalFileNotFound is returned by Put when the source path cannot be
	// read as a regular file.
	ErrLocalFileNotFound = errors.New("local file not found")
)

type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
	ETag         string
}

// ObjectStore is the backing key-value store. List returns a single snapshot
// of the objects under prefix in store order.
type ObjectStore interface {
	List(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error)
	Put(ctx context.Context, bucket, key, localPath string) error
	Delete(ctx context.Context, bucket, key string) error
}

func NewFromConfig(ctx context.Context, cfg *config.Config, logger *slog.Logger) (ObjectStore, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	switch cfg.Backend {
	case config.BackendLocal:
		if cfg.Local.Root == "" {
			return nil, errors.New("local root is required")
		}
		return NewLocalClient(cfg.Local.Root), nil
	case config.BackendS3:
		client, err := NewS3Client(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}
