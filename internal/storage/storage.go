package storage

import (
	"context"
	"time"
)

// ObjectInfo is the listing metadata for one stored export or report.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// ObjectStorage captures the S3-compatible operations the seed and replan
// flows need: pull sales export files down, push run reports up. Listing
// carries LastModified so callers can apply exports in upload order.
type ObjectStorage interface {
	ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error)
	DownloadObject(ctx context.Context, key string, destPath string) error
	UploadObject(ctx context.Context, key string, data []byte) error
}
