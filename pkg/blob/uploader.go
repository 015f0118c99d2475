package blob

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"cloud.google.com/go/storage"
	"github.com/codeGROOVE-dev/retry"
)

// Uploader stores evidence photos in a GCS bucket and hands back their
// durable public URLs.
type Uploader struct {
	client *storage.Client
	bucket string
}

// NewUploader connects to GCS using ambient credentials.
func NewUploader(ctx context.Context, bucket string) (*Uploader, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating storage client: %w", err)
	}
	return &Uploader{client: client, bucket: bucket}, nil
}

// Put writes one object and returns its public URL. The payload is read
// fully up front so the write can be retried.
func (u *Uploader) Put(ctx context.Context, name, contentType string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("reading upload: %w", err)
	}

	err = retry.Do(
		func() error {
			w := u.client.Bucket(u.bucket).Object(name).NewWriter(ctx)
			w.ContentType = contentType
			if _, err := w.Write(data); err != nil {
				w.Close()
				return fmt.Errorf("writing object: %w", err)
			}
			return w.Close()
		},
		retry.Attempts(3),
		retry.Delay(time.Second),
		retry.MaxDelay(10*time.Second),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			slog.Warn("object write failed, retrying", "object", name, "attempt", n, "error", err)
		}),
	)
	if err != nil {
		return "", fmt.Errorf("storing %s: %w", name, err)
	}

	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", u.bucket, name), nil
}

// Close releases the underlying client.
func (u *Uploader) Close() error {
	return u.client.Close()
}
