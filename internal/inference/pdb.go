package inference

import (
	"fmt"
	"strings"
)

// OverwriteBFactors rewrites the B-factor column (columns 61-66) of every
// ATOM and HETATM record with the per-residue value, residues numbered in
// order of first appearance. The record count must match len(bfactors).
func OverwriteBFactors(pdb string, bfactors []float64) (string, error) {
	var out strings.Builder
	out.Grow(len(pdb))

	residue := -1
	lastKey := ""
	for _, line := range strings.SplitAfter(pdb, "\n") {
		if !isAtomRecord(line) {
			out.WriteString(line)
			continue
		}
		if len(line) < 66 {
			return "", fmt.Errorf("atom record too short: %q", strings.TrimRight(line, "\n"))
		}
		// Chain id + residue sequence number identify the residue.
		key := line[21:27]
		if key != lastKey {
			residue++
			lastKey = key
		}
		if residue >= len(bfactors) {
			return "", fmt.Errorf("structure has more than %d residues", len(bfactors))
		}
		out.WriteString(line[:60])
		out.WriteString(fmt.Sprintf("%6.2f", bfactors[residue]))
		out.WriteString(line[66:])
	}
	if residue+1 != len(bfactors) {
		return "", fmt.Errorf("structure has %d residues, have %d values", residue+1, len(bfactors))
	}
	return out.String(), nil
}

// ChainBoundaries returns the residue indices at which the chain
// identifier changes, i.e. the index of the first residue of every chain
// after the first. Used to mark chain breaks on the aligned-error plot.
func ChainBoundaries(pdb string) []int {
	var boundaries []int
	residue := -1
	lastKey := ""
	lastChain := byte(0)
	for _, line := range strings.Split(pdb, "\n") {
		if !isAtomRecord(line) || len(line) < 27 {
			continue
		}
		key := line[21:27]
		if key == lastKey {
			continue
		}
		residue++
		lastKey = key
		chain := line[21]
		if lastChain != 0 && chain != lastChain {
			boundaries = append(boundaries, residue)
		}
		lastChain = chain
	}
	return boundaries
}

func isAtomRecord(line string) bool {
	return strings.HasPrefix(line, "ATOM") || strings.HasPrefix(line, "HETATM")
}
