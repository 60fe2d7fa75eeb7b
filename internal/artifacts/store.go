// Package artifacts persists pipeline outputs to a local directory or a
// cloud bucket, selected from the output destination string.
package artifacts

import (
	"context"
	"strings"

	"github.com/seqcraft/foldpipe/internal/metrics"
)

// Store writes named artifacts to the configured destination.
type Store interface {
	// Write persists one artifact under its file name.
	Write(ctx context.Context, name string, data []byte) error
	// URI returns the destination address of a named artifact.
	URI(name string) string
	// Close releases backend resources.
	Close() error
}

// NewStore selects a backend from the destination: gs:// and s3://
// addresses open a bucket, anything else is a local directory.
func NewStore(ctx context.Context, destination string) (Store, error) {
	if strings.HasPrefix(destination, "gs://") || strings.HasPrefix(destination, "s3://") {
		return NewBucketStore(ctx, destination)
	}
	return NewLocalStore(destination)
}

func recordWrite(kind string, n int) {
	if m := metrics.Get(); m != nil {
		m.ArtifactBytes.WithLabelValues(kind).Add(float64(n))
	}
}

func recordError() {
	if m := metrics.Get(); m != nil {
		m.ArtifactErrors.Inc()
	}
}
