package report

import (
	"context"
	"encoding/json"
	"testing"
)

type memStore struct {
	writes map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{writes: make(map[string][]byte)}
}

func (s *memStore) Write(_ context.Context, name string, data []byte) error {
	s.writes[name] = append([]byte(nil), data...)
	return nil
}

func (s *memStore) URI(name string) string { return "mem://" + name }
func (s *memStore) Close() error           { return nil }

func TestWriteStructure(t *testing.T) {
	store := newMemStore()
	r := New(store)

	if err := r.WriteStructure(context.Background(), "ATOM line\nEND\n"); err != nil {
		t.Fatal(err)
	}
	if string(store.writes[StructureName]) != "ATOM line\nEND\n" {
		t.Fatalf("stored structure = %q", store.writes[StructureName])
	}
}

func TestWritePAEFormat(t *testing.T) {
	store := newMemStore()
	r := New(store)

	pae := [][]float64{{0.123, 4.567}, {8.91, 0}}
	if err := r.WritePAE(context.Background(), pae, 31.75); err != nil {
		t.Fatal(err)
	}

	var entries []struct {
		PredictedAlignedError    [][]float64 `json:"predicted_aligned_error"`
		MaxPredictedAlignedError float64     `json:"max_predicted_aligned_error"`
	}
	if err := json.Unmarshal(store.writes[PAEName], &entries); err != nil {
		t.Fatalf("stored JSON is not a list: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("stored %d entries, want a single-element list", len(entries))
	}
	if entries[0].MaxPredictedAlignedError != 31.75 {
		t.Fatalf("max = %v, want 31.75", entries[0].MaxPredictedAlignedError)
	}
	if got := entries[0].PredictedAlignedError[0][0]; got != 0.1 {
		t.Fatalf("value rounded to %v, want one decimal 0.1", got)
	}
	if got := entries[0].PredictedAlignedError[1][0]; got != 8.9 {
		t.Fatalf("value rounded to %v, want 8.9", got)
	}
}

func TestWritePlotPanels(t *testing.T) {
	store := newMemStore()
	r := New(store)

	in := PlotInput{
		PLDDT:           []float64{50, 60, 70, 80},
		PAE:             [][]float64{{0, 1, 2, 3}, {1, 0, 1, 2}, {2, 1, 0, 1}, {3, 2, 1, 0}},
		MaxPAE:          31.75,
		ChainBoundaries: []int{2},
	}
	if err := r.WritePlot(context.Background(), in); err != nil {
		t.Fatal(err)
	}
	if len(store.writes[PlotName]) == 0 {
		t.Fatal("plot PNG is empty")
	}
	// PNG signature.
	if got := store.writes[PlotName][:4]; string(got) != "\x89PNG" {
		t.Fatalf("plot does not start with a PNG signature: %q", got)
	}
}
