// Package storage is the object-store boundary: content-type tagged,
// size-bounded writes addressed by bucket and key.
package storage

import (
	"context"
	"io"
	"time"
)

// PutObjectInput describes one object write. Size must match the number
// of bytes Body yields.
type PutObjectInput struct {
	Bucket      string
	Key         string
	ContentType string
	Size        int64
	Body        io.Reader
}

// ObjectStore is the durable binary store the services write through.
// PutObject returns only after the object is stored or the write failed.
type ObjectStore interface {
	PutObject(ctx context.Context, in PutObjectInput) error
	DeleteObject(ctx context.Context, bucket, key string) error
	PresignGetObject(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)
	EnsureBucket(ctx context.Context, bucket string) error
}
