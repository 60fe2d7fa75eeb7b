package inference

// Band is one per-residue confidence band used for structure coloring.
type Band struct {
	Min   float64
	Max   float64
	Color string
	Label string
}

// PLDDTBands partitions the pLDDT range for coloring. Each band includes
// its upper bound, so a residue at exactly 90 colors as confident rather
// than very high.
var PLDDTBands = []Band{
	{Min: 0, Max: 50, Color: "#FF7D45", Label: "Very low (pLDDT < 50)"},
	{Min: 50, Max: 70, Color: "#FFDB13", Label: "Low (70 > pLDDT > 50)"},
	{Min: 70, Max: 90, Color: "#65CBF3", Label: "Confident (90 > pLDDT > 70)"},
	{Min: 90, Max: 100, Color: "#0053D6", Label: "Very high (pLDDT > 90)"},
}

// BandIndex returns the index of the band containing the value. Band upper
// bounds are inclusive. Values below 0 fall into the first band and values
// above 100 into the last.
func BandIndex(plddt float64) int {
	for i, b := range PLDDTBands[:len(PLDDTBands)-1] {
		if plddt <= b.Max {
			return i
		}
	}
	return len(PLDDTBands) - 1
}

// BandedBFactors maps per-residue pLDDT values to their band indices for
// writing into the structure's B-factor column.
func BandedBFactors(plddt []float64) []float64 {
	out := make([]float64, len(plddt))
	for i, v := range plddt {
		out[i] = float64(BandIndex(v))
	}
	return out
}

// MeanPLDDT returns the average per-residue confidence, 0 for empty input.
func MeanPLDDT(plddt []float64) float64 {
	if len(plddt) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range plddt {
		sum += v
	}
	return sum / float64(len(plddt))
}
