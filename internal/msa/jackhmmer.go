package msa

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// Jackhmmer runs the external jackhmmer binary against streamed database
// chunks. The binary is an opaque collaborator; this type only sequences
// fetch, exec and parse steps.
type Jackhmmer struct {
	binary  string
	fetcher *ChunkFetcher
	tempDir string
	log     *slog.Logger
}

// NewJackhmmer creates a chunk searcher around the given binary path.
func NewJackhmmer(binary string, fetcher *ChunkFetcher, tempDir string) *Jackhmmer {
	return &Jackhmmer{
		binary:  binary,
		fetcher: fetcher,
		tempDir: tempDir,
		log:     slog.With("component", "jackhmmer"),
	}
}

// Query searches the sequence in fastaPath against every streamed chunk of
// the database, invoking chunkDone once per completed chunk. Each chunk is
// attempted exactly once; any failure is terminal. The callback runs
// synchronously on the calling goroutine.
func (j *Jackhmmer) Query(ctx context.Context, fastaPath string, db Database, chunkDone func(int)) ([]Result, error) {
	results := make([]Result, 0, db.NumStreamedChunks)
	for i := 1; i <= db.NumStreamedChunks; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, err := j.queryChunk(ctx, fastaPath, db, i)
		if err != nil {
			return nil, fmt.Errorf("%s chunk %d/%d: %w", db.Name, i, db.NumStreamedChunks, err)
		}
		results = append(results, res)
		if chunkDone != nil {
			chunkDone(i)
		}
	}
	return results, nil
}

func (j *Jackhmmer) queryChunk(ctx context.Context, fastaPath string, db Database, chunk int) (Result, error) {
	chunkPath, err := j.fetcher.Fetch(ctx, db.ChunkURL(chunk))
	if err != nil {
		return Result{}, err
	}
	defer os.Remove(chunkPath) // best-effort cleanup

	sto, err := os.CreateTemp(j.tempDir, "hits-*.sto")
	if err != nil {
		return Result{}, fmt.Errorf("create alignment file: %w", err)
	}
	sto.Close()
	defer os.Remove(sto.Name())

	tbl, err := os.CreateTemp(j.tempDir, "hits-*.tbl")
	if err != nil {
		return Result{}, fmt.Errorf("create table file: %w", err)
	}
	tbl.Close()
	defer os.Remove(tbl.Name())

	args := []string{
		"-o", os.DevNull,
		"-A", sto.Name(),
		"--tblout", tbl.Name(),
		"--noali",
		"--F1", "0.0005",
		"--F2", "5e-05",
		"--F3", "5e-07",
		"--incE", "0.0001",
		"-E", "0.0001",
		"--cpu", "8",
		"-N", "1",
		"-Z", strconv.FormatInt(db.ZValue, 10),
		fastaPath,
		chunkPath,
	}

	cmd := exec.CommandContext(ctx, j.binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return Result{}, fmt.Errorf("run %s: %w: %s", j.binary, err, strings.TrimSpace(stderr.String()))
	}

	stoFile, err := os.Open(sto.Name())
	if err != nil {
		return Result{}, fmt.Errorf("open alignment output: %w", err)
	}
	defer stoFile.Close()
	alignment, err := ParseStockholm(stoFile)
	if err != nil {
		return Result{}, err
	}

	tblFile, err := os.Open(tbl.Name())
	if err != nil {
		return Result{}, fmt.Errorf("open table output: %w", err)
	}
	defer tblFile.Close()
	evalues, err := parseTblout(tblFile)
	if err != nil {
		return Result{}, err
	}

	return Result{
		TargetName: db.Name + "." + strconv.Itoa(chunk),
		Alignment:  alignment,
		EValues:    evalues,
	}, nil
}

// parseTblout extracts target names and full-sequence E-values from
// jackhmmer's --tblout format.
func parseTblout(r io.Reader) (map[string]float64, error) {
	evalues := make(map[string]float64)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "#") || strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 5 {
			continue
		}
		ev, err := strconv.ParseFloat(fields[4], 64)
		if err != nil {
			continue
		}
		evalues[fields[0]] = ev
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read tblout: %w", err)
	}
	return evalues, nil
}
