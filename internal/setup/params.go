package setup

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/schollz/progressbar/v2"

	"github.com/seqcraft/foldpipe/internal/config"
	"github.com/seqcraft/foldpipe/internal/logging"
)

// paramsClient downloads the multi-gigabyte parameter archive; no
// per-request deadline beyond the caller's context.
var paramsClient = &http.Client{Timeout: 0}

// EnsureParams downloads and extracts the model parameter archive unless
// the params directory is already populated. A directory with at least two
// entries counts as downloaded.
func EnsureParams(ctx context.Context, cfg config.ParamsConfig) error {
	log := logging.Component("setup")
	paramsDir := filepath.Join(cfg.Dir, "params")

	if entries, err := os.ReadDir(paramsDir); err == nil && len(entries) > 1 {
		log.Info("model parameters already downloaded", "dir", paramsDir, "entries", len(entries))
		return nil
	}
	if err := os.MkdirAll(paramsDir, 0755); err != nil {
		return fmt.Errorf("create params directory %s: %w", paramsDir, err)
	}

	log.Info("downloading model parameters", "url", cfg.URL, "dir", paramsDir)
	start := time.Now()

	archivePath, err := download(ctx, cfg.URL, cfg.Dir)
	if err != nil {
		return fmt.Errorf("download parameters: %w", err)
	}
	defer os.Remove(archivePath)

	if err := extractTar(archivePath, paramsDir); err != nil {
		return fmt.Errorf("extract parameters: %w", err)
	}
	log.Info("model parameters ready", "dir", paramsDir, "duration", time.Since(start))
	return nil
}

func download(ctx context.Context, url, dir string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := paramsClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("GET %s: status %s", url, resp.Status)
	}

	out, err := os.CreateTemp(dir, "params-*.tar")
	if err != nil {
		return "", err
	}
	defer out.Close()

	var w io.Writer = out
	if resp.ContentLength > 0 {
		bar := progressbar.NewOptions64(resp.ContentLength,
			progressbar.OptionSetDescription("params"),
			progressbar.OptionSetBytes64(resp.ContentLength),
		)
		w = io.MultiWriter(out, bar)
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		os.Remove(out.Name())
		return "", err
	}
	return out.Name(), nil
}

// extractTar unpacks regular files from the archive into destDir,
// rejecting entries that would escape it.
func extractTar(archivePath, destDir string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return err
	}
	defer f.Close()

	tr := tar.NewReader(f)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read archive: %w", err)
		}

		name := filepath.Clean(hdr.Name)
		if strings.HasPrefix(name, "..") || filepath.IsAbs(name) {
			return fmt.Errorf("archive entry escapes destination: %s", hdr.Name)
		}
		target := filepath.Join(destDir, name)

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return err
			}
			out, err := os.Create(target)
			if err != nil {
				return err
			}
			if _, err := io.Copy(out, tr); err != nil {
				out.Close()
				return fmt.Errorf("extract %s: %w", hdr.Name, err)
			}
			if err := out.Close(); err != nil {
				return err
			}
		}
	}
}
