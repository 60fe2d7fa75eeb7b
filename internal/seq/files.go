package seq

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// File format errors. The strict-FASTA alternation failures are fatal input
// errors, not recoverable conditions.
var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrMissingTitleLine  = errors.New("expected FASTA to start with a '>' title line")
	ErrMissingSequence   = errors.New("missing sequence line")
	ErrEmptyFile         = errors.New("no sequences found in file")
)

// ReadFile extracts sequences from a .txt or FASTA file. The caller decides
// that the input is a path; ReadFile never guesses from the content of a
// literal sequence string.
//
// For .txt/.text files, lines beginning with '>' are titles and every other
// non-empty line is a sequence, collected in order. For .fa/.fasta files,
// title and sequence lines must strictly alternate starting with a title;
// any violation is a fatal validation error.
func ReadFile(path string) ([]string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".txt", ".text":
		return readMarked(path)
	case ".fa", ".fasta":
		return readStrictFASTA(path)
	default:
		return nil, fmt.Errorf("%w: %q (expected .txt or .fa)", ErrUnsupportedFormat, ext)
	}
}

func readMarked(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var seqs []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, ">") {
			continue // title line
		}
		seqs = append(seqs, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(seqs) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrEmptyFile)
	}
	return seqs, nil
}

func readStrictFASTA(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var seqs []string
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if lineNo%2 == 0 {
			if !strings.HasPrefix(line, ">") {
				return nil, fmt.Errorf("%s line %d: %w", path, lineNo+1, ErrMissingTitleLine)
			}
		} else {
			if strings.HasPrefix(line, ">") {
				// Two title lines in a row.
				return nil, fmt.Errorf("%s line %d: %w", path, lineNo+1, ErrMissingSequence)
			}
			seqs = append(seqs, line)
		}
		lineNo++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if lineNo%2 != 0 {
		// Dangling title at the end of the file.
		return nil, fmt.Errorf("%s line %d: %w", path, lineNo, ErrMissingSequence)
	}
	if len(seqs) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrEmptyFile)
	}
	return seqs, nil
}
