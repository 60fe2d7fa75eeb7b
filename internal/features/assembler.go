package features

import (
	"fmt"

	"github.com/seqcraft/foldpipe/internal/msa"
	"github.com/seqcraft/foldpipe/internal/seq"
)

// ChainInput carries everything needed to build one chain's feature bundle.
type ChainInput struct {
	Sequence string
	// SingleChain holds the merged per-database alignments, excluding the
	// cross-organism comprehensive database.
	SingleChain []msa.Alignment
	// AllSeq is the merged comprehensive-database alignment; non-nil only
	// for heteromer jobs.
	AllSeq *msa.Alignment
}

// BuildChain assembles the base feature bundle for one chain: sequence
// encoding, alignment-derived channels and zero-template placeholders, plus
// the suffixed all_seq subset when pairing applies.
func BuildChain(in ChainInput) Bundle {
	b := SequenceFeatures(in.Sequence, "query")
	for k, v := range MSAFeatures(in.Sequence, in.SingleChain) {
		b[k] = v
	}
	for k, v := range EmptyTemplateFeatures(len(in.Sequence)) {
		b[k] = v
	}
	if in.AllSeq != nil {
		allSeq := MSAFeatures(in.Sequence, []msa.Alignment{*in.AllSeq})
		for k, v := range AllSeqFeatures(allSeq) {
			b[k] = v
		}
	}
	return b
}

// Assemble produces the final bundle for the job. Monomer jobs pass their
// single chain bundle through unchanged; multimer jobs are converted to
// assembly-aware per-chain bundles, paired and merged, then padded so the
// alignment dimension is never zero-sized downstream.
func Assemble(job seq.Job, chains []Bundle) (Bundle, error) {
	if len(chains) != len(job.Sequences) {
		return nil, fmt.Errorf("have %d chain bundles for %d sequences", len(chains), len(job.Sequences))
	}

	if !job.Type.Multimer() {
		return chains[0], nil
	}

	converted := make([]Bundle, len(chains))
	for i, chain := range chains {
		c, err := ConvertMonomerFeatures(chain, ChainID(i))
		if err != nil {
			return nil, fmt.Errorf("convert chain %s: %w", ChainID(i), err)
		}
		converted[i] = c
	}

	if err := AddAssemblyFeatures(converted, job.Sequences); err != nil {
		return nil, err
	}

	merged, err := PairAndMerge(converted)
	if err != nil {
		return nil, err
	}

	// Pad the MSA to avoid a zero-sized extra alignment dimension.
	if err := PadMSA(merged, MinMSARows); err != nil {
		return nil, err
	}
	return merged, nil
}
