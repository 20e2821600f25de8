package storage

import (
	"context"
	"io"
)

// ObjectStore is the destination abstraction for publishing finished shard
// archives.
type ObjectStore interface {
	CreateBucket(ctx context.Context, bucket string) error

	PutObject(ctx context.Context, bucket, key string, data io.Reader) error

	UploadDir(ctx context.Context, bucket, prefix, src string) error
}
