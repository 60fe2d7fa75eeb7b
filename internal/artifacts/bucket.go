package artifacts

import (
	"context"
	"fmt"
	"strings"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/gcsblob" // GCS driver
	_ "gocloud.dev/blob/s3blob"  // S3 driver
)

// BucketStore writes artifacts to a cloud bucket through the portable
// blob API.
type BucketStore struct {
	bucket  *blob.Bucket
	baseURL string
	prefix  string
}

// NewBucketStore opens the bucket named by a gs:// or s3:// destination.
// Anything after the bucket name becomes a key prefix.
func NewBucketStore(ctx context.Context, destination string) (*BucketStore, error) {
	scheme, rest, ok := strings.Cut(destination, "://")
	if !ok {
		return nil, fmt.Errorf("destination %q is not a bucket address", destination)
	}
	bucketName, prefix, _ := strings.Cut(rest, "/")
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	url := fmt.Sprintf("%s://%s", scheme, bucketName)
	bucket, err := blob.OpenBucket(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("open bucket %s: %w", url, err)
	}

	return &BucketStore{bucket: bucket, baseURL: url, prefix: prefix}, nil
}

// Write uploads the artifact under the store's key prefix.
func (s *BucketStore) Write(ctx context.Context, name string, data []byte) error {
	key := s.prefix + name

	w, err := s.bucket.NewWriter(ctx, key, nil)
	if err != nil {
		recordError()
		return fmt.Errorf("create writer for %s: %w", key, err)
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		recordError()
		return fmt.Errorf("write data to %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		recordError()
		return fmt.Errorf("close writer for %s: %w", key, err)
	}
	recordWrite(name, len(data))
	return nil
}

// URI returns the bucket address of a named artifact.
func (s *BucketStore) URI(name string) string {
	return s.baseURL + "/" + s.prefix + name
}

// Close releases the bucket handle.
func (s *BucketStore) Close() error {
	return s.bucket.Close()
}
