package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"s3aid/internal/config"
	"s3aid/internal/keys"
	"s3aid/internal/logging"
	"s3aid/internal/state"
	"s3aid/internal/storage"
)

func managerFromConfig(ctx context.Context, configPath string, verbose bool) (*keys.Manager, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger := logging.New(os.Stderr, verbose)
	store, err := objectStoreFromConfig(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	manager, err := keys.New(cfg.S3.Bucket, cfg.S3.Prefix, store, keys.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("create key manager: %w", err)
	}
	return manager, nil
}

func objectStoreFromConfig(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.ObjectStore, error) {
	if cfg.Backend == config.BackendLocal && cfg.Local.Root == "" {
		objectsDir, err := state.ObjectStoreDir()
		if err != nil {
			return nil, err
		}
		cfg.Local.Root = objectsDir
	}
	store, err := storage.NewFromConfig(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("create object store: %w", err)
	}
	return store, nil
}

// describeError names the action that failed. The wrapped keys.Error
// already carries the kind text, so only access denial gets its own phrasing.
func describeError(err error, action string) error {
	if errors.Is(err, keys.ErrStoreAccess) {
		return fmt.Errorf("access denied when %s: %w", action, err)
	}
	return fmt.Errorf("error when %s: %w", action, err)
}
