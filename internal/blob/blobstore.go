// Package blob wraps the sample-image storage drivers behind a single
// factory. Only this package may import the infra-backed
// implementations; everything else depends on the Store interface.
package blob

import (
	"context"
	"fmt"
	"os"

	"batikcore/internal/blob/core"
	fsblob "batikcore/internal/infra/blob/fs"
	memblob "batikcore/internal/infra/blob/memory"
	s3blob "batikcore/internal/infra/blob/s3"
)

// Re-exported abstractions so callers need only this package.
type (
	Driver           = core.Driver
	Store            = core.Store
	Info             = core.Info
	PutOptions       = core.PutOptions
	SignedURLOptions = core.SignedURLOptions
)

const (
	DriverFilesystem = core.DriverFilesystem
	DriverS3         = core.DriverS3
	DriverMemory     = core.DriverMemory
)

// ErrUnsupported mirrors core.ErrUnsupported.
var ErrUnsupported = core.ErrUnsupported

// NewFilesystem returns a filesystem-backed store rooted at root.
func NewFilesystem(root string) (Store, error) { return fsblob.New(root) }

// NewMemory returns an in-memory store for tests.
func NewMemory() Store { return memblob.New() }

// OpenS3FromEnv constructs an S3 store from process environment.
func OpenS3FromEnv(ctx context.Context) (Store, error) { return s3blob.OpenFromEnv(ctx) }

// NewS3MockForTests returns an S3 store backed by a fake transport.
func NewS3MockForTests() Store { return s3blob.NewMockForTests() }

// Open selects a blob.Store implementation using environment variables.
//
//	BATIKCORE_BLOB_DRIVER: fs|s3|memory (default fs)
//	BATIKCORE_BLOB_FS_ROOT: directory root when driver=fs (default ./sampledata)
//	(S3 specific variables documented in the s3 driver)
func Open(ctx context.Context) (Store, error) {
	driver := os.Getenv("BATIKCORE_BLOB_DRIVER")
	if driver == "" {
		driver = string(DriverFilesystem)
	}
	switch Driver(driver) {
	case DriverFilesystem:
		return NewFilesystem(os.Getenv("BATIKCORE_BLOB_FS_ROOT"))
	case DriverS3:
		return OpenS3FromEnv(ctx)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", driver)
	}
}
