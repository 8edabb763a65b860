// Package allele encodes diploid genotype calls as single-byte base calls.
//
// Homozygous calls are stored as the literal base, heterozygous calls as the
// IUPAC ambiguity code of the two bases, and missing calls as 'N'.
package allele

import (
	"errors"
	"fmt"
)

// Missing is the allele index used for a missing genotype.
const Missing uint8 = 9

// MaxAlts is the largest number of alternate alleles a site may carry.
const MaxAlts = 3

// MissingCall is the encoded base written for missing or indel genotypes.
const MissingCall byte = 'N'

var (
	// ErrAlleleIndex is returned when an allele index has no matching allele.
	ErrAlleleIndex = errors.New("allele index out of range")

	// ErrAmbiguityUndefined is returned when a heterozygous pair has no IUPAC code.
	ErrAmbiguityUndefined = errors.New("ambiguity code undefined")
)

// ambiguity maps an unordered base pair to its IUPAC code.
// Rows and columns are indexed by baseIndex.
var ambiguity = [4][4]byte{
	//  A    C    G    T
	{'A', 'M', 'R', 'W'}, // A
	{'M', 'C', 'S', 'Y'}, // C
	{'R', 'S', 'G', 'K'}, // G
	{'W', 'Y', 'K', 'T'}, // T
}

// decoded is the inverse of ambiguity for the six heterozygous codes.
var decoded = map[byte][2]byte{
	'M': {'A', 'C'},
	'R': {'A', 'G'},
	'W': {'A', 'T'},
	'S': {'C', 'G'},
	'Y': {'C', 'T'},
	'K': {'G', 'T'},
}

// baseIndex returns the table index for an upper- or lower-case base.
func baseIndex(b byte) int {
	switch b {
	case 'A', 'a':
		return 0
	case 'C', 'c':
		return 1
	case 'G', 'g':
		return 2
	case 'T', 't':
		return 3
	}
	return -1
}

// Resolve returns the allele string for index a: 0 is the reference,
// 1..3 are the alternates in declared order.
func Resolve(a uint8, ref string, alts []string) (string, error) {
	if a == 0 {
		return ref, nil
	}
	if int(a) > MaxAlts || int(a) > len(alts) {
		return "", fmt.Errorf("%w: %d with %d alternates", ErrAlleleIndex, a, len(alts))
	}
	return alts[a-1], nil
}

// Encode returns the single-byte call for the genotype (a0, a1).
func Encode(a0, a1 uint8, ref string, alts []string) (byte, error) {
	if a0 == Missing || a1 == Missing {
		return MissingCall, nil
	}

	s0, err := Resolve(a0, ref, alts)
	if err != nil {
		return 0, err
	}
	s1, err := Resolve(a1, ref, alts)
	if err != nil {
		return 0, err
	}

	if s0 == s1 {
		if len(s0) != 1 {
			// indel or symbolic allele
			return MissingCall, nil
		}
		if i := baseIndex(s0[0]); i >= 0 {
			return ambiguity[i][i], nil
		}
		return s0[0], nil
	}

	if len(s0) != 1 || len(s1) != 1 {
		return 0, fmt.Errorf("%w: %s/%s", ErrAmbiguityUndefined, s0, s1)
	}
	i, j := baseIndex(s0[0]), baseIndex(s1[0])
	if i < 0 || j < 0 {
		return 0, fmt.Errorf("%w: %s/%s", ErrAmbiguityUndefined, s0, s1)
	}
	return ambiguity[i][j], nil
}

// Decode returns the two bases represented by an encoded call.
// Homozygous calls return the same base twice. ok is false for the
// missing call.
func Decode(call byte) (b0, b1 byte, ok bool) {
	if call == MissingCall || call == 0 {
		return 0, 0, false
	}
	if pair, found := decoded[call]; found {
		return pair[0], pair[1], true
	}
	return call, call, true
}

// IsHeterozygous reports whether call is one of the six ambiguity codes.
func IsHeterozygous(call byte) bool {
	_, ok := decoded[call]
	return ok
}
