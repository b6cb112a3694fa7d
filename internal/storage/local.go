package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"formfill/internal/config"
)

// localStorage implements Storage on the local filesystem. Writes go to a
// hidden temp file in the destination directory and are renamed into place,
// so concurrent readers under other keys never observe partial content.
// Safe for use by multiple processes sharing the same folders.
type localStorage struct {
	roots map[Area]string
}

// NewLocal creates a filesystem-backed Storage rooted at the configured
// upload and output folders, creating them if missing.
func NewLocal(cfg config.StorageConfig) (Storage, error) {
	if cfg.UploadFolder == "" || cfg.OutputFolder == "" {
		return nil, fmt.Errorf("upload and output folders are required")
	}
	roots := map[Area]string{
		AreaUpload: cfg.UploadFolder,
		AreaOutput: cfg.OutputFolder,
	}
	for _, dir := range roots {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage folder %s: %w", dir, err)
		}
	}
	return &localStorage{roots: roots}, nil
}

// resolve maps an area/key pair to an absolute path, rejecting keys that
// would escape the area root.
func (l *localStorage) resolve(area Area, key string) (string, error) {
	root, ok := l.roots[area]
	if !ok {
		return "", fmt.Errorf("unknown storage area %q", area)
	}
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == "." || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return filepath.Join(root, clean), nil
}

func (l *localStorage) Put(ctx context.Context, area Area, key string, r io.Reader, opt PutOptions) (ObjectInfo, error) {
	path, err := l.resolve(area, key)
	if err != nil {
		return ObjectInfo{}, err
	}
	if err := ctx.Err(); err != nil {
		return ObjectInfo{}, err
	}

	if _, err := os.Stat(path); err == nil {
		return ObjectInfo{}, fmt.Errorf("%w: %s", ErrExists, key)
	} else if !os.IsNotExist(err) {
		return ObjectInfo{}, fmt.Errorf("stat %s: %w", key, err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return ObjectInfo{}, fmt.Errorf("create key directory: %w", err)
	}

	// Stage into the same directory so the final rename cannot cross devices.
	tmp := filepath.Join(dir, ".tmp-"+uuid.NewString())
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("create temp file: %w", err)
	}

	n, err := io.Copy(f, r)
	if err == nil {
		err = f.Sync()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && opt.Size >= 0 && n != opt.Size {
		err = fmt.Errorf("short write: got %d bytes, want %d", n, opt.Size)
	}
	if err != nil {
		_ = os.Remove(tmp)
		return ObjectInfo{}, fmt.Errorf("write %s: %w", key, err)
	}

	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return ObjectInfo{}, fmt.Errorf("publish %s: %w", key, err)
	}

	st, err := os.Stat(path)
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("stat %s: %w", key, err)
	}
	return ObjectInfo{
		Area:         area,
		Key:          key,
		Size:         n,
		ContentType:  opt.ContentType,
		LastModified: st.ModTime(),
	}, nil
}

func (l *localStorage) Get(ctx context.Context, area Area, key string) (io.ReadCloser, ObjectInfo, error) {
	path, err := l.resolve(area, key)
	if err != nil {
		return nil, ObjectInfo{}, err
	}
	if err := ctx.Err(); err != nil {
		return nil, ObjectInfo{}, err
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ObjectInfo{}, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, ObjectInfo{}, fmt.Errorf("open %s: %w", key, err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, ObjectInfo{}, fmt.Errorf("stat %s: %w", key, err)
	}
	info := ObjectInfo{
		Area:         area,
		Key:          key,
		Size:         st.Size(),
		LastModified: st.ModTime(),
	}
	return f, info, nil
}

func (l *localStorage) Delete(ctx context.Context, area Area, key string) error {
	path, err := l.resolve(area, key)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}
