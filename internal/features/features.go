package features

import (
	"strings"

	"github.com/seqcraft/foldpipe/internal/msa"
)

// NumAtomTypes is the fixed per-residue atom slot count of the structure
// representation.
const NumAtomTypes = 37

// AllSeqSuffix marks the paired-channel copies of MSA features used for
// cross-chain pairing in heteromer jobs.
const AllSeqSuffix = "_all_seq"

// pairedFeatures is the whitelist of channels copied into the all_seq
// subset, plus the species identifiers.
var pairedFeatures = []string{
	"msa",
	"deletion_matrix_int",
	"num_alignments",
	"msa_species_identifiers",
}

// SequenceFeatures builds the query-only features for one chain.
func SequenceFeatures(sequence, description string) Bundle {
	n := len(sequence)

	aatype := NewTensor(n, len(restypes))
	residueIndex := NewIntTensor(n)
	seqLength := NewIntTensor(n)
	for i := 0; i < n; i++ {
		aatype.Data[i*len(restypes)+int(restypeIndex(sequence[i]))] = 1
		residueIndex.Data[i] = int32(i)
		seqLength.Data[i] = int32(n)
	}

	return Bundle{
		"aatype":                   aatype,
		"between_segment_residues": NewIntTensor(n),
		"domain_name":              description,
		"residue_index":            residueIndex,
		"seq_length":               seqLength,
		"sequence":                 sequence,
	}
}

// MSAFeatures converts merged alignments into MSA channels. Rows identical
// across alignments are deduplicated in first-seen order with the query
// first. When every alignment is empty (a zero-hit search), the features
// degrade to a query-only single-row MSA so downstream assembly still has a
// non-empty alignment dimension.
func MSAFeatures(sequence string, alignments []msa.Alignment) Bundle {
	type row struct {
		sequence  string
		deletions []int
		species   string
	}

	var rows []row
	seen := make(map[string]bool)
	for _, a := range alignments {
		for i, s := range a.Sequences {
			if seen[s] {
				continue
			}
			seen[s] = true
			rows = append(rows, row{
				sequence:  s,
				deletions: a.DeletionMatrix[i],
				species:   speciesIdentifier(a.Descriptions[i]),
			})
		}
	}
	if len(rows) == 0 {
		rows = []row{{sequence: sequence, deletions: make([]int, len(sequence))}}
	}

	n := len(rows[0].sequence)
	m := NewIntTensor(len(rows), n)
	del := NewIntTensor(len(rows), n)
	species := make([]string, len(rows))
	for i, r := range rows {
		for j := 0; j < n; j++ {
			m.Set(i, j, residueID(r.sequence[j]))
			del.Set(i, j, int32(r.deletions[j]))
		}
		species[i] = r.species
	}

	numAlignments := NewIntTensor(n)
	for j := 0; j < n; j++ {
		numAlignments.Data[j] = int32(len(rows))
	}

	return Bundle{
		"msa":                     m,
		"deletion_matrix_int":     del,
		"num_alignments":          numAlignments,
		"msa_species_identifiers": species,
	}
}

// EmptyTemplateFeatures returns placeholder template channels sized for
// zero templates; the pipeline never uses structural templates.
func EmptyTemplateFeatures(numRes int) Bundle {
	return Bundle{
		"template_aatype":             NewTensor(0, numRes, len(restypes)+1),
		"template_all_atom_masks":     NewTensor(0, numRes, NumAtomTypes),
		"template_all_atom_positions": NewTensor(0, numRes, NumAtomTypes, 3),
		"template_domain_names":       []string{},
		"template_sequence":           []string{},
		"template_sum_probs":          NewTensor(0),
	}
}

// AllSeqFeatures extracts the paired-channel subset of an MSA feature
// bundle under suffixed keys.
func AllSeqFeatures(msaFeatures Bundle) Bundle {
	out := make(Bundle, len(pairedFeatures))
	for _, name := range pairedFeatures {
		if v, ok := msaFeatures[name]; ok {
			out[name+AllSeqSuffix] = v
		}
	}
	return out
}

// speciesIdentifier extracts the species mnemonic from a UniProt-style
// description line ("tr|Q..|Q.._HUMAN ..."); empty when absent.
func speciesIdentifier(description string) string {
	name := description
	if i := strings.IndexByte(name, ' '); i >= 0 {
		name = name[:i]
	}
	if i := strings.LastIndexByte(name, '_'); i >= 0 && i < len(name)-1 {
		return name[i+1:]
	}
	return ""
}
