package msa

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrBadStockholm is returned for malformed Stockholm alignments.
var ErrBadStockholm = errors.New("malformed stockholm alignment")

// ParseStockholm reads a Stockholm 1.0 alignment (the search binary's -A
// output) and converts it to query-column space. The first row is the query;
// columns where the query has a gap become deletion counts for the other
// rows instead of alignment columns.
func ParseStockholm(r io.Reader) (Alignment, error) {
	rows := make(map[string]string)
	descriptions := make(map[string]string)
	var order []string

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n")
		switch {
		case line == "" || line == "//":
			continue
		case strings.HasPrefix(line, "#=GS"):
			// "#=GS <name> DE <description>"
			fields := strings.SplitN(line, " ", 4)
			if len(fields) == 4 && fields[2] == "DE" {
				descriptions[fields[1]] = strings.TrimSpace(fields[3])
			}
		case strings.HasPrefix(line, "#"):
			continue // other annotation lines
		default:
			fields := strings.Fields(line)
			if len(fields) != 2 {
				return Alignment{}, fmt.Errorf("%w: unexpected line %q", ErrBadStockholm, line)
			}
			name, aligned := fields[0], fields[1]
			if _, seen := rows[name]; !seen {
				order = append(order, name)
			}
			// Rows may be split across blocks; concatenate.
			rows[name] += aligned
		}
	}
	if err := scanner.Err(); err != nil {
		return Alignment{}, fmt.Errorf("read stockholm: %w", err)
	}
	if len(order) == 0 {
		return Alignment{}, nil
	}

	width := len(rows[order[0]])
	for _, name := range order {
		if len(rows[name]) != width {
			return Alignment{}, fmt.Errorf(
				"%w: row %s has width %d, expected %d",
				ErrBadStockholm, name, len(rows[name]), width)
		}
	}

	query := rows[order[0]]
	out := Alignment{
		Sequences:      make([]string, 0, len(order)),
		DeletionMatrix: make([][]int, 0, len(order)),
		Descriptions:   make([]string, 0, len(order)),
	}
	for _, name := range order {
		aligned := rows[name]
		var sb strings.Builder
		var deletions []int
		count := 0
		for col := 0; col < width; col++ {
			if isGap(query[col]) {
				// Insertion relative to the query: counts as a deletion
				// for this row at the next query column.
				if !isGap(aligned[col]) {
					count++
				}
				continue
			}
			res := aligned[col]
			if isGap(res) {
				sb.WriteByte('-')
			} else {
				sb.WriteByte(upper(res))
			}
			deletions = append(deletions, count)
			count = 0
		}
		out.Sequences = append(out.Sequences, sb.String())
		out.DeletionMatrix = append(out.DeletionMatrix, deletions)
		out.Descriptions = append(out.Descriptions, describeRow(name, descriptions))
	}
	return out, nil
}

func describeRow(name string, descriptions map[string]string) string {
	if d, ok := descriptions[name]; ok && d != "" {
		return name + " " + d
	}
	return name
}

func isGap(b byte) bool {
	return b == '-' || b == '.'
}

func upper(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return b - 'a' + 'A'
	}
	return b
}
