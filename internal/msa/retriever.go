package msa

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/seqcraft/foldpipe/internal/metrics"
)

// Searcher runs a chunked database search for one sequence.
type Searcher interface {
	Query(ctx context.Context, fastaPath string, db Database, chunkDone func(int)) ([]Result, error)
}

// Retriever issues chunked searches per distinct sequence and caches raw
// results so that repeated chains in a multi-chain job never re-issue a
// redundant remote search. Every caller receives an independent deep copy
// of the cached results, since downstream feature construction may mutate
// them.
type Retriever struct {
	searcher Searcher
	tempDir  string
	// tempID scopes this retriever's temporary files. An explicit field
	// rather than process-wide state so concurrent retrievers on one host
	// cannot collide.
	tempID     string
	cache      map[string]map[string][]Result
	fastaPaths []string
	log        *slog.Logger
}

// NewRetriever creates a retriever around the given searcher. tempDir empty
// means the OS temp directory.
func NewRetriever(searcher Searcher, tempDir string) *Retriever {
	return &Retriever{
		searcher: searcher,
		tempDir:  tempDir,
		tempID:   newTempID(),
		cache:    make(map[string]map[string][]Result),
		log:      slog.With("component", "retriever"),
	}
}

// Retrieve searches the sequence against every database, invoking chunkDone
// once per completed chunk across all databases. Identical sequences are
// searched exactly once; cache hits return a deep copy.
func (r *Retriever) Retrieve(ctx context.Context, sequence string, sequenceIndex int, dbs []Database, chunkDone func()) (map[string][]Result, error) {
	if cached, ok := r.cache[sequence]; ok {
		r.log.Debug("reusing cached search results", "sequence_index", sequenceIndex)
		if m := metrics.Get(); m != nil {
			m.SearchCacheHits.Inc()
		}
		return CopyResults(cached), nil
	}

	fastaPath, err := r.writeQueryFASTA(sequence, sequenceIndex)
	if err != nil {
		return nil, err
	}

	raw := make(map[string][]Result, len(dbs))
	for _, db := range dbs {
		start := time.Now()
		results, err := r.searcher.Query(ctx, fastaPath, db, func(chunk int) {
			if m := metrics.Get(); m != nil {
				m.ChunksFetched.WithLabelValues(db.Name).Inc()
			}
			if chunkDone != nil {
				chunkDone()
			}
		})
		if err != nil {
			if m := metrics.Get(); m != nil {
				m.SearchErrors.WithLabelValues(db.Name).Inc()
			}
			return nil, fmt.Errorf("search %s: %w", db.Name, err)
		}
		if m := metrics.Get(); m != nil {
			m.SearchesIssued.WithLabelValues(db.Name).Inc()
			m.SearchDuration.WithLabelValues(db.Name).Observe(time.Since(start).Seconds())
		}
		raw[db.Name] = append(raw[db.Name], results...)
	}

	r.cache[sequence] = raw
	return CopyResults(raw), nil
}

// writeQueryFASTA saves the sequence to a temporary single-record FASTA
// file for the search binary.
func (r *Retriever) writeQueryFASTA(sequence string, sequenceIndex int) (string, error) {
	dir := r.tempDir
	if dir == "" {
		dir = os.TempDir()
	}
	path := filepath.Join(dir, fmt.Sprintf("target_%s_%d.fasta", r.tempID, sequenceIndex))
	if err := os.WriteFile(path, []byte(fmt.Sprintf(">query\n%s", sequence)), 0644); err != nil {
		return "", fmt.Errorf("write query fasta: %w", err)
	}
	r.fastaPaths = append(r.fastaPaths, path)
	return path, nil
}

// CleanUp removes the temporary per-sequence FASTA files. Failures are
// ignored; cleanup is not on the critical path.
func (r *Retriever) CleanUp() {
	for _, path := range r.fastaPaths {
		_ = os.Remove(path)
	}
	r.fastaPaths = nil
}

func newTempID() string {
	b := make([]byte, 8)
	rand.Read(b)
	return hex.EncodeToString(b)
}
