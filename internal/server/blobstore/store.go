// Package blobstore stores opaque encrypted payloads by key.
package blobstore

import "context"

// Store is a key-addressed binary object store.
//
// Get returns common.ErrNotFound (wrapped) when key does not exist.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string, tags map[string]string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error

	// EnsureBucket creates the backing container if it does not exist yet.
	EnsureBucket(ctx context.Context) error
}
