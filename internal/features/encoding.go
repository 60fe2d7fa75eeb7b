package features

// Residue type order used for the one-hot sequence encoding; index 20 is
// the unknown type X.
const restypes = "ARNDCQEGHILKMFPSTWYVX"

// Integer ids used for MSA rows; 20 is unknown, 21 is the gap.
const (
	UnknownID = 20
	GapID     = 21
)

// hhblitsAAToID maps residue letters to MSA integer ids, including the
// ambiguity codes B, J, O, U, Z.
var hhblitsAAToID = map[byte]int32{
	'A': 0, 'B': 2, 'C': 1, 'D': 2, 'E': 3, 'F': 4, 'G': 5, 'H': 6,
	'I': 7, 'J': 20, 'K': 8, 'L': 9, 'M': 10, 'N': 11, 'O': 20, 'P': 12,
	'Q': 13, 'R': 14, 'S': 15, 'T': 16, 'U': 1, 'V': 17, 'W': 18,
	'X': 20, 'Y': 19, 'Z': 3, '-': 21,
}

var restypeOrder = func() map[byte]int32 {
	m := make(map[byte]int32, len(restypes))
	for i := 0; i < len(restypes); i++ {
		m[restypes[i]] = int32(i)
	}
	return m
}()

// residueID returns the MSA integer id for a residue letter.
func residueID(b byte) int32 {
	if id, ok := hhblitsAAToID[b]; ok {
		return id
	}
	return UnknownID
}

// restypeIndex returns the one-hot index for a residue letter.
func restypeIndex(b byte) int32 {
	if id, ok := restypeOrder[b]; ok {
		return id
	}
	return UnknownID
}
