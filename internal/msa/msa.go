// Package msa retrieves multi-sequence alignments from chunked remote
// genetic databases and merges the per-chunk search results.
package msa

import (
	"strconv"
)

// Database describes one remote genetic database resolved against a mirror
// root. Static configuration, never mutated at runtime.
type Database struct {
	Name string
	// Root is the resolved mirror root URL, trailing slash included.
	Root string
	// Path is the database file path relative to Root. Streamed chunk i
	// lives at Path + "." + i.
	Path              string
	NumStreamedChunks int
	// ZValue is the number of sequences in the database, passed to the
	// search binary to normalize significance scores.
	ZValue int64
	// MaxHits caps the merged alignment for this database.
	MaxHits int
}

// ChunkURL returns the URL of the i-th streamed chunk (1-based).
func (d Database) ChunkURL(i int) string {
	return d.Root + d.Path + "." + strconv.Itoa(i)
}

// Alignment is a multi-sequence alignment in query-column space: every row
// has exactly one column per query residue, with insertions relative to the
// query recorded in the deletion matrix.
type Alignment struct {
	// Sequences holds the aligned rows; the query is row 0.
	Sequences []string
	// DeletionMatrix[i][j] counts residues of row i deleted before query
	// column j.
	DeletionMatrix [][]int
	// Descriptions carries one description line per row.
	Descriptions []string
}

// Empty reports whether the alignment has no rows.
func (a Alignment) Empty() bool {
	return len(a.Sequences) == 0
}

// Copy returns a deep copy of the alignment.
func (a Alignment) Copy() Alignment {
	out := Alignment{
		Sequences:      append([]string(nil), a.Sequences...),
		Descriptions:   append([]string(nil), a.Descriptions...),
		DeletionMatrix: make([][]int, len(a.DeletionMatrix)),
	}
	for i, row := range a.DeletionMatrix {
		out.DeletionMatrix[i] = append([]int(nil), row...)
	}
	return out
}

// Result is the outcome of searching one streamed database chunk.
type Result struct {
	// TargetName labels the chunk that produced this result,
	// e.g. "uniref90.3".
	TargetName string
	Alignment  Alignment
	// EValues maps hit names to their full-sequence E-values from the
	// search's tabular output.
	EValues map[string]float64
}

// Copy returns a deep copy of the result.
func (r Result) Copy() Result {
	out := Result{
		TargetName: r.TargetName,
		Alignment:  r.Alignment.Copy(),
		EValues:    make(map[string]float64, len(r.EValues)),
	}
	for k, v := range r.EValues {
		out.EValues[k] = v
	}
	return out
}

// CopyResults deep-copies a per-database result collection.
func CopyResults(raw map[string][]Result) map[string][]Result {
	out := make(map[string][]Result, len(raw))
	for db, results := range raw {
		copied := make([]Result, len(results))
		for i, r := range results {
			copied[i] = r.Copy()
		}
		out[db] = copied
	}
	return out
}
