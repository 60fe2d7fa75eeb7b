package msa

import (
	"testing"
)

func chunkResult(name string, query string, hits map[string]struct {
	seq string
	ev  float64
}) Result {
	res := Result{
		TargetName: name,
		Alignment: Alignment{
			Sequences:      []string{query},
			DeletionMatrix: [][]int{make([]int, len(query))},
			Descriptions:   []string{"query"},
		},
		EValues: make(map[string]float64),
	}
	for hitName, h := range hits {
		res.Alignment.Sequences = append(res.Alignment.Sequences, h.seq)
		res.Alignment.DeletionMatrix = append(res.Alignment.DeletionMatrix, make([]int, len(h.seq)))
		res.Alignment.Descriptions = append(res.Alignment.Descriptions, hitName)
		res.EValues[hitName] = h.ev
	}
	return res
}

func TestMergeChunkedOrdersByEValue(t *testing.T) {
	query := "MKVLAAGITTAAGGCCDD"
	r1 := chunkResult("db.1", query, map[string]struct {
		seq string
		ev  float64
	}{
		"weak": {seq: "MKVLAAGITTAAGG----", ev: 1e-5},
	})
	r2 := chunkResult("db.2", query, map[string]struct {
		seq string
		ev  float64
	}{
		"strong": {seq: "MKVLAAGITTAAGGCC--", ev: 1e-50},
	})

	merged := MergeChunked([]Result{r1, r2}, 0)

	if len(merged.Sequences) != 3 {
		t.Fatalf("expected query + 2 hits, got %d rows", len(merged.Sequences))
	}
	if merged.Sequences[0] != query {
		t.Errorf("query must stay row 0")
	}
	if merged.Descriptions[1] != "strong" {
		t.Errorf("hits not ordered by e-value: %v", merged.Descriptions)
	}
}

func TestMergeChunkedDeduplicatesAtMerge(t *testing.T) {
	query := "MKVLAAGITTAAGGCCDD"
	same := "MKVLAAGITT--GGCCDD"
	r1 := chunkResult("db.1", query, map[string]struct {
		seq string
		ev  float64
	}{
		"a": {seq: same, ev: 1e-10},
	})
	r2 := chunkResult("db.2", query, map[string]struct {
		seq string
		ev  float64
	}{
		"b": {seq: same, ev: 1e-8},
	})

	merged := MergeChunked([]Result{r1, r2}, 0)

	if len(merged.Sequences) != 2 {
		t.Fatalf("identical hit sequences must merge to one row, got %d rows", len(merged.Sequences))
	}
}

func TestMergeChunkedCapsAtMaxHits(t *testing.T) {
	query := "MKVLAAGITTAAGGCCDD"
	hits := map[string]struct {
		seq string
		ev  float64
	}{}
	letters := "CDEFGHIKLMNPQRSTVW"
	for i := 0; i < len(letters); i++ {
		seq := query[:17] + string(letters[i])
		hits[string(letters[i])] = struct {
			seq string
			ev  float64
		}{seq: seq, ev: float64(i)}
	}
	r := chunkResult("db.1", query, hits)

	merged := MergeChunked([]Result{r}, 5)

	if len(merged.Sequences) != 5 {
		t.Fatalf("expected cap of 5 rows including query, got %d", len(merged.Sequences))
	}
	if merged.Sequences[0] != query {
		t.Error("query must survive the cap")
	}
}

func TestMergeChunkedEmpty(t *testing.T) {
	merged := MergeChunked(nil, 10)
	if !merged.Empty() {
		t.Error("expected empty alignment from no results")
	}
}
