// Package seq validates raw sequence input and classifies prediction jobs.
package seq

import (
	"errors"
	"fmt"
	"strings"
)

// Length bounds enforced before any remote call is issued.
const (
	MinSequenceLength = 16
	MaxSequenceLength = 2500
	MaxMultimerLength = 2500
)

// The twenty standard amino acids.
const aminoAcids = "ACDEFGHIKLMNPQRSTVWY"

// ErrInvalidSequence is the base error for all input-validation failures.
var ErrInvalidSequence = errors.New("invalid sequence")

// JobType classifies a prediction job by its chain composition.
type JobType int

const (
	// Monomer is a single-chain job.
	Monomer JobType = iota
	// Homomer is a multi-chain job where all chains are identical.
	Homomer
	// Heteromer is a multi-chain job with at least two distinct chains.
	Heteromer
)

func (t JobType) String() string {
	switch t {
	case Monomer:
		return "monomer"
	case Homomer:
		return "homomer"
	case Heteromer:
		return "heteromer"
	default:
		return fmt.Sprintf("JobType(%d)", int(t))
	}
}

// Multimer reports whether the job has more than one chain.
func (t JobType) Multimer() bool {
	return t == Homomer || t == Heteromer
}

// Job is an ordered list of validated sequences plus its classification.
type Job struct {
	Sequences []string
	Type      JobType
}

// Unique returns the distinct sequences of the job in first-seen order.
func (j Job) Unique() []string {
	seen := make(map[string]bool, len(j.Sequences))
	var out []string
	for _, s := range j.Sequences {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// Validate normalizes the raw sequences, enforces length and alphabet
// bounds, and classifies the job. It never touches the filesystem or the
// network; file input must be expanded first via ReadFile.
func Validate(raw []string) (Job, error) {
	if len(raw) == 0 {
		return Job{}, fmt.Errorf("%w: no sequences given", ErrInvalidSequence)
	}

	sequences := make([]string, 0, len(raw))
	for i, r := range raw {
		s, err := normalize(r)
		if err != nil {
			return Job{}, fmt.Errorf("sequence %d: %w", i+1, err)
		}
		sequences = append(sequences, s)
	}

	if len(sequences) == 1 {
		n := len(sequences[0])
		if n < MinSequenceLength || n > MaxSequenceLength {
			return Job{}, fmt.Errorf(
				"%w: sequence length %d outside bounds [%d, %d]",
				ErrInvalidSequence, n, MinSequenceLength, MaxSequenceLength)
		}
		return Job{Sequences: sequences, Type: Monomer}, nil
	}

	total := 0
	for i, s := range sequences {
		if len(s) < MinSequenceLength {
			return Job{}, fmt.Errorf(
				"%w: sequence %d length %d below minimum %d",
				ErrInvalidSequence, i+1, len(s), MinSequenceLength)
		}
		if len(s) > MaxSequenceLength {
			return Job{}, fmt.Errorf(
				"%w: sequence %d length %d above maximum %d",
				ErrInvalidSequence, i+1, len(s), MaxSequenceLength)
		}
		total += len(s)
	}
	if total > MaxMultimerLength {
		return Job{}, fmt.Errorf(
			"%w: multimer total length %d above maximum %d",
			ErrInvalidSequence, total, MaxMultimerLength)
	}

	job := Job{Sequences: sequences, Type: Homomer}
	if len(job.Unique()) > 1 {
		job.Type = Heteromer
	}
	return job, nil
}

// normalize trims, uppercases and checks the amino-acid alphabet.
func normalize(raw string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if s == "" {
		return "", fmt.Errorf("%w: empty sequence", ErrInvalidSequence)
	}
	for i, r := range s {
		if !strings.ContainsRune(aminoAcids, r) {
			return "", fmt.Errorf(
				"%w: non-amino-acid character %q at position %d",
				ErrInvalidSequence, r, i+1)
		}
	}
	return s, nil
}
