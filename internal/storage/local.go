package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// stagingDirName holds in-flight uploads under the root. Bucket names cannot
// start with a dot, so it never collides with a bucket directory.
const stagingDirName = ".staging"

// LocalClient stores each bucket as a directory under rootDir.
type LocalClient struct {
	rootDir string
}

func NewLocalClient(rootDir string) *LocalClient {
	return &LocalClient{rootDir: rootDir}
}

func (c *LocalClient) List(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error) {
	bucketDir, err := c.bucketPath(bucket)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(bucketDir); err != nil {
		if os.IsNotExist(err) {
			return []ObjectInfo{}, nil
		}
		return nil, classifyLocal(err)
	}

	objects := make([]ObjectInfo, 0)
	err = filepath.WalkDir(bucketDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(bucketDir, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		objects = append(objects, ObjectInfo{
			Key:          key,
			Size:         info.Size(),
			LastModified: info.ModTime().UTC(),
		})
		return nil
	})
	if err != nil {
		return nil, classifyLocal(err)
	}
	return objects, nil
}

func (c *LocalClient) Put(ctx context.Context, bucket, key, localPath string) error {
	fullPath, err := c.objectPath(bucket, key)
	if err != nil {
		return err
	}

	src, err := openSource(localPath)
	if err != nil {
		return err
	}
	defer src.Close()

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return classifyLocal(err)
	}

	stagingDir := filepath.Join(c.rootDir, stagingDirName)
	if err := os.MkdirAll(stagingDir, 0o755); err != nil {
		return classifyLocal(err)
	}
	dst, err := os.CreateTemp(stagingDir, "put-*")
	if err != nil {
		return classifyLocal(err)
	}
	tmpPath := dst.Name()
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("copy %s: %w", localPath, err)
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return classifyLocal(err)
	}
	if err := os.Rename(tmpPath, fullPath); err != nil {
		_ = os.Remove(tmpPath)
		return classifyLocal(err)
	}
	return nil
}

func (c *LocalClient) Delete(ctx context.Context, bucket, key string) error {
	fullPath, pathErr := c.objectPath(bucket, key)
	if pathErr != nil {
		return pathErr
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	err := os.Remove(fullPath)
	if err != nil && !os.IsNotExist(err) {
		return classifyLocal(err)
	}
	return nil
}

func (c *LocalClient) bucketPath(bucket string) (string, error) {
	if bucket == "" || strings.ContainsAny(bucket, `/\`) || strings.HasPrefix(bucket, ".") {
		return "", errors.New("invalid bucket name")
	}
	return filepath.Join(c.rootDir, bucket), nil
}

func (c *LocalClient) objectPath(bucket, key string) (string, error) {
	bucketDir, err := c.bucketPath(bucket)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(key) == "" || strings.HasSuffix(key, "/") {
		return "", errors.New("invalid key path")
	}
	cleaned := filepath.Clean(filepath.FromSlash(key))
	if filepath.IsAbs(cleaned) || cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", errors.New("invalid key path")
	}
	return filepath.Join(bucketDir, cleaned), nil
}

// openSource opens a regular file for upload. Any failure to stat or open
// the path, and a directory path, report ErrLocalFileNotFound.
func openSource(localPath string) (*os.File, error) {
	info, err := os.Stat(localPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLocalFileNotFound, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrLocalFileNotFound, localPath)
	}
	f, err := os.Open(localPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLocalFileNotFound, err)
	}
	return f, nil
}

func classifyLocal(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, fs.ErrPermission) {
		return fmt.Errorf("%w: %w", ErrAccessDenied, err)
	}
	return err
}
