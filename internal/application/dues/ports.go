package dues

import (
	"context"
	"io"
	"time"
)

// ProofStorage keeps uploaded proof files. storage.S3Storage and
// storage.StubStorage implement it.
type ProofStorage interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	DownloadURL(ctx context.Context, key string) (string, time.Time, error)
	Delete(ctx context.Context, key string) error
}
