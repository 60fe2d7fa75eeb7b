package msa

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// ChunkFetcher downloads streamed database chunks into a temp directory,
// transparently decompressing gzip and zstd payloads.
type ChunkFetcher struct {
	client  *http.Client
	tempDir string
}

// NewChunkFetcher creates a fetcher. tempDir empty means the OS temp
// directory.
func NewChunkFetcher(client *http.Client, tempDir string) *ChunkFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &ChunkFetcher{client: client, tempDir: tempDir}
}

// Fetch downloads one chunk and returns the path of the local file. The
// caller removes the file when the search over it completes. There is no
// retry: a failed fetch is terminal for the job.
func (f *ChunkFetcher) Fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch chunk %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch chunk %s: unexpected status %s", url, resp.Status)
	}

	body, err := decodeBody(url, resp.Body)
	if err != nil {
		return "", fmt.Errorf("decode chunk %s: %w", url, err)
	}
	defer body.Close()

	out, err := os.CreateTemp(f.tempDir, "chunk-*.fasta")
	if err != nil {
		return "", fmt.Errorf("create chunk file: %w", err)
	}
	if _, err := io.Copy(out, body); err != nil {
		out.Close()
		os.Remove(out.Name())
		return "", fmt.Errorf("write chunk %s: %w", url, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(out.Name())
		return "", fmt.Errorf("close chunk file: %w", err)
	}
	return out.Name(), nil
}

// decodeBody wraps the response body with a decompressor when the chunk is
// stored compressed.
func decodeBody(url string, body io.ReadCloser) (io.ReadCloser, error) {
	// Chunk URLs end in a numeric suffix; the compression extension, if
	// any, precedes it (e.g. "db.fasta.zst.3").
	trimmed := strings.TrimRight(url, "0123456789")
	trimmed = strings.TrimSuffix(trimmed, ".")
	switch filepath.Ext(trimmed) {
	case ".gz":
		zr, err := gzip.NewReader(body)
		if err != nil {
			return nil, err
		}
		return readCloser{Reader: zr, close: func() error {
			zr.Close()
			return body.Close()
		}}, nil
	case ".zst":
		zr, err := zstd.NewReader(body, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, err
		}
		return readCloser{Reader: zr, close: func() error {
			zr.Close()
			return body.Close()
		}}, nil
	default:
		return body, nil
	}
}

type readCloser struct {
	io.Reader
	close func() error
}

func (rc readCloser) Close() error { return rc.close() }
