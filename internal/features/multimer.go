package features

import (
	"fmt"
	"sort"
)

// MinMSARows is the minimum row count the merged multimer MSA is padded to.
const MinMSARows = 512

// pdbChainIDs enumerates chain identifiers in structure-file order.
const pdbChainIDs = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// ChainID returns the chain identifier for the i-th chain (0-based).
func ChainID(i int) string {
	return string(pdbChainIDs[i])
}

// ConvertMonomerFeatures rewrites a single-chain bundle into its
// assembly-aware representation: the one-hot sequence encoding collapses to
// residue indices and the bundle is keyed by its chain identifier.
func ConvertMonomerFeatures(b Bundle, chainID string) (Bundle, error) {
	out := b.Copy()

	aatype, ok := out["aatype"].(*Tensor)
	if !ok {
		return nil, fmt.Errorf("chain %s: aatype missing or not one-hot", chainID)
	}
	n := aatype.Shape[0]
	width := aatype.Shape[1]
	indices := NewIntTensor(n)
	for i := 0; i < n; i++ {
		for j := 0; j < width; j++ {
			if aatype.Data[i*width+j] != 0 {
				indices.Data[i] = int32(j)
				break
			}
		}
	}
	out["aatype"] = indices
	out["auth_chain_id"] = chainID
	return out, nil
}

// AddAssemblyFeatures attaches assembly bookkeeping channels to each
// converted chain bundle: asym_id numbers chains, entity_id numbers
// distinct sequences, and sym_id numbers copies within an entity, all
// 1-based per-residue vectors.
func AddAssemblyFeatures(chains []Bundle, sequences []string) error {
	if len(chains) != len(sequences) {
		return fmt.Errorf("have %d chains for %d sequences", len(chains), len(sequences))
	}

	entityByseq := make(map[string]int32)
	copies := make(map[string]int32)
	for i, chain := range chains {
		sequence := sequences[i]
		if _, ok := entityByseq[sequence]; !ok {
			entityByseq[sequence] = int32(len(entityByseq) + 1)
		}
		copies[sequence]++

		n := len(sequence)
		chain["asym_id"] = fill(n, int32(i+1))
		chain["entity_id"] = fill(n, entityByseq[sequence])
		chain["sym_id"] = fill(n, copies[sequence])
	}
	return nil
}

// PairAndMerge combines converted per-chain bundles into one assembly-level
// bundle. Row 0 pairs the chain queries; heteromer jobs additionally pair
// comprehensive-database rows across chains by species; all remaining rows
// are merged block-diagonally with gap fill.
func PairAndMerge(chains []Bundle) (Bundle, error) {
	lengths := make([]int, len(chains))
	offsets := make([]int, len(chains))
	total := 0
	for i, chain := range chains {
		aatype, err := chain.Int("aatype")
		if err != nil {
			return nil, fmt.Errorf("chain %d: %w", i, err)
		}
		lengths[i] = aatype.Shape[0]
		offsets[i] = total
		total += lengths[i]
	}

	out := Bundle{}
	for _, name := range []string{"aatype", "residue_index", "between_segment_residues", "asym_id", "entity_id", "sym_id"} {
		merged := NewIntTensor(total)
		for i, chain := range chains {
			t, err := chain.Int(name)
			if err != nil {
				return nil, fmt.Errorf("chain %d: %w", i, err)
			}
			copy(merged.Data[offsets[i]:offsets[i]+lengths[i]], t.Data)
		}
		out[name] = merged
	}
	out["seq_length"] = fill(total, int32(total))

	var mergedRows [][]int32
	var mergedDels [][]int32

	// Row 0: the assembly query, chain queries side by side.
	queryRow := make([]int32, total)
	queryDel := make([]int32, total)
	for i, chain := range chains {
		m, err := chain.Int("msa")
		if err != nil {
			return nil, err
		}
		d, err := chain.Int("deletion_matrix_int")
		if err != nil {
			return nil, err
		}
		copy(queryRow[offsets[i]:], m.Data[:lengths[i]])
		copy(queryDel[offsets[i]:], d.Data[:lengths[i]])
	}
	mergedRows = append(mergedRows, queryRow)
	mergedDels = append(mergedDels, queryDel)

	// Species-paired rows from the all_seq channels (heteromer only).
	pairedRows, pairedDels, err := pairBySpecies(chains, lengths, offsets, total)
	if err != nil {
		return nil, err
	}
	mergedRows = append(mergedRows, pairedRows...)
	mergedDels = append(mergedDels, pairedDels...)

	// Block merge of the remaining single-chain rows with gap fill.
	for i, chain := range chains {
		m, err := chain.Int("msa")
		if err != nil {
			return nil, err
		}
		d, err := chain.Int("deletion_matrix_int")
		if err != nil {
			return nil, err
		}
		for row := 1; row < m.Rows(); row++ {
			full := gapRow(total)
			fullDel := make([]int32, total)
			copy(full[offsets[i]:offsets[i]+lengths[i]], m.Data[row*lengths[i]:(row+1)*lengths[i]])
			copy(fullDel[offsets[i]:offsets[i]+lengths[i]], d.Data[row*lengths[i]:(row+1)*lengths[i]])
			mergedRows = append(mergedRows, full)
			mergedDels = append(mergedDels, fullDel)
		}
	}

	out["msa"] = stackRows(mergedRows)
	out["deletion_matrix_int"] = stackRows(mergedDels)
	out["num_alignments"] = fill(total, int32(len(mergedRows)))
	return out, nil
}

// pairBySpecies matches all_seq rows across chains by their species
// identifier and returns the horizontally concatenated paired rows. Chains
// without all_seq channels (monomer-path or homomer jobs) yield none.
func pairBySpecies(chains []Bundle, lengths, offsets []int, total int) ([][]int32, [][]int32, error) {
	type chainAllSeq struct {
		msa       *IntTensor
		del       *IntTensor
		bySpecies map[string]int
	}

	all := make([]chainAllSeq, len(chains))
	for i, chain := range chains {
		if _, ok := chain["msa"+AllSeqSuffix]; !ok {
			return nil, nil, nil
		}
		m, err := chain.Int("msa" + AllSeqSuffix)
		if err != nil {
			return nil, nil, err
		}
		d, err := chain.Int("deletion_matrix_int" + AllSeqSuffix)
		if err != nil {
			return nil, nil, err
		}
		species, ok := chain["msa_species_identifiers"+AllSeqSuffix].([]string)
		if !ok {
			return nil, nil, fmt.Errorf("chain %d: species identifiers missing from all_seq channels", i)
		}
		bySpecies := make(map[string]int)
		for row, sp := range species {
			if sp == "" {
				continue
			}
			if _, seen := bySpecies[sp]; !seen {
				bySpecies[sp] = row
			}
		}
		all[i] = chainAllSeq{msa: m, del: d, bySpecies: bySpecies}
	}

	// Intersect species across all chains, in sorted order for
	// deterministic output.
	var shared []string
	for sp := range all[0].bySpecies {
		inAll := true
		for _, c := range all[1:] {
			if _, ok := c.bySpecies[sp]; !ok {
				inAll = false
				break
			}
		}
		if inAll {
			shared = append(shared, sp)
		}
	}
	sort.Strings(shared)

	var rows, dels [][]int32
	for _, sp := range shared {
		row := gapRow(total)
		del := make([]int32, total)
		for i, c := range all {
			r := c.bySpecies[sp]
			copy(row[offsets[i]:offsets[i]+lengths[i]], c.msa.Data[r*lengths[i]:(r+1)*lengths[i]])
			copy(del[offsets[i]:offsets[i]+lengths[i]], c.del.Data[r*lengths[i]:(r+1)*lengths[i]])
		}
		rows = append(rows, row)
		dels = append(dels, del)
	}
	return rows, dels, nil
}

// PadMSA grows the alignment dimension of the merged bundle to at least
// minRows by appending all-gap rows.
func PadMSA(b Bundle, minRows int) error {
	m, err := b.Int("msa")
	if err != nil {
		return err
	}
	d, err := b.Int("deletion_matrix_int")
	if err != nil {
		return err
	}
	rows, cols := m.Shape[0], m.Shape[1]
	if rows >= minRows {
		return nil
	}
	for row := rows; row < minRows; row++ {
		m.Data = append(m.Data, gapRow(cols)...)
		d.Data = append(d.Data, make([]int32, cols)...)
	}
	m.Shape[0] = minRows
	d.Shape[0] = minRows
	return nil
}

func fill(n int, v int32) *IntTensor {
	t := NewIntTensor(n)
	for i := range t.Data {
		t.Data[i] = v
	}
	return t
}

func gapRow(n int) []int32 {
	row := make([]int32, n)
	for i := range row {
		row[i] = GapID
	}
	return row
}

func stackRows(rows [][]int32) *IntTensor {
	if len(rows) == 0 {
		return NewIntTensor(0, 0)
	}
	t := NewIntTensor(len(rows), len(rows[0]))
	for i, row := range rows {
		copy(t.Data[i*len(row):], row)
	}
	return t
}
