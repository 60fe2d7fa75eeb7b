package msa

import (
	"math"
	"sort"
	"strings"
)

// MergeChunked merges the per-chunk results of one database into a single
// alignment. Hits are ordered by E-value across all chunks, identical
// aligned sequences are deduplicated here (not before), and the merged
// alignment is capped at maxHits rows including the query. maxHits <= 0
// means unlimited.
func MergeChunked(results []Result, maxHits int) Alignment {
	type hit struct {
		sequence    string
		deletions   []int
		description string
		evalue      float64
	}

	var query *hit
	var hits []hit
	for _, res := range results {
		for i, sequence := range res.Alignment.Sequences {
			h := hit{
				sequence:    sequence,
				deletions:   res.Alignment.DeletionMatrix[i],
				description: res.Alignment.Descriptions[i],
				evalue:      math.Inf(1),
			}
			if ev, ok := res.EValues[hitName(h.description)]; ok {
				h.evalue = ev
			}
			if i == 0 {
				// Every chunk repeats the query as row 0; keep the first.
				if query == nil {
					q := h
					query = &q
				}
				continue
			}
			hits = append(hits, h)
		}
	}
	if query == nil {
		return Alignment{}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].evalue < hits[j].evalue
	})

	merged := Alignment{
		Sequences:      []string{query.sequence},
		DeletionMatrix: [][]int{query.deletions},
		Descriptions:   []string{query.description},
	}
	seen := map[string]bool{query.sequence: true}
	for _, h := range hits {
		if maxHits > 0 && len(merged.Sequences) >= maxHits {
			break
		}
		if seen[h.sequence] {
			continue
		}
		seen[h.sequence] = true
		merged.Sequences = append(merged.Sequences, h.sequence)
		merged.DeletionMatrix = append(merged.DeletionMatrix, h.deletions)
		merged.Descriptions = append(merged.Descriptions, h.description)
	}
	return merged
}

// hitName extracts the sequence name from a description line.
func hitName(description string) string {
	if i := strings.IndexByte(description, ' '); i >= 0 {
		return description[:i]
	}
	return description
}
