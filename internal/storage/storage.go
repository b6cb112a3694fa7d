package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// Package storage contains the document store abstraction shared by intake,
// the fill engine and delivery. Two backends exist: local disk (default, the
// deployment's UPLOAD_FOLDER/OUTPUT_FOLDER contract) and an S3-compatible
// object store.

// Area selects which storage root a key lives under. Intake writes only to
// AreaUpload, the fill engine writes only to AreaOutput, delivery reads only.
type Area string

const (
	AreaUpload Area = "upload"
	AreaOutput Area = "output"
)

var (
	// ErrNotFound is returned by Get when no object exists under the key.
	ErrNotFound = errors.New("object not found")
	// ErrExists is returned by Put when the key is already taken. With
	// uuid-derived keys this signals an identifier collision.
	ErrExists = errors.New("object already exists")
)

// PutOptions define optional parameters for storing objects.
// Size should be the exact number of bytes if known, -1 otherwise.
type PutOptions struct {
	Size        int64
	ContentType string
}

// ObjectInfo contains basic information about a stored object.
type ObjectInfo struct {
	Area         Area
	Key          string
	Size         int64
	ContentType  string
	LastModified time.Time
}

// Storage is the document store interface. Implementations must never expose
// a partially written object: content is staged to a temporary location and
// moved into the final key atomically, and an existing key is never
// overwritten (Put fails with ErrExists instead).
type Storage interface {
	// Put stores an object under the given area and key from the reader.
	Put(ctx context.Context, area Area, key string, r io.Reader, opt PutOptions) (ObjectInfo, error)
	// Get retrieves an object's content as a streaming reader alongside its info.
	Get(ctx context.Context, area Area, key string) (io.ReadCloser, ObjectInfo, error)
	// Delete removes an object by key. Deleting a missing object is not an error.
	Delete(ctx context.Context, area Area, key string) error
}
