package inference

import "testing"

func TestBandIndex(t *testing.T) {
	cases := []struct {
		plddt float64
		want  int
	}{
		{0, 0},
		{49.9, 0},
		{50, 0},
		{50.1, 1},
		{70, 1},
		{70.1, 2},
		{89.9, 2},
		{90, 2},
		{90.1, 3},
		{100, 3},
		{101, 3},
	}
	for _, c := range cases {
		if got := BandIndex(c.plddt); got != c.want {
			t.Errorf("BandIndex(%v) = %d, want %d", c.plddt, got, c.want)
		}
	}
}

func TestBandedBFactors(t *testing.T) {
	got := BandedBFactors([]float64{30, 55, 75, 95})
	want := []float64{0, 1, 2, 3}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("banded = %v, want %v", got, want)
		}
	}
}

func TestMeanPLDDT(t *testing.T) {
	if got := MeanPLDDT([]float64{40, 60}); got != 50 {
		t.Fatalf("mean = %v, want 50", got)
	}
	if got := MeanPLDDT(nil); got != 0 {
		t.Fatalf("mean of empty = %v, want 0", got)
	}
}
