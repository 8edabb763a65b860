package vcf

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/inodb/vcf2snps/internal/allele"
)

// Genotype is a diploid call as a sorted pair of allele indexes.
// 0 is the reference, 1..3 the alternates, allele.Missing a missing call.
type Genotype struct {
	A0, A1 uint8
}

// MissingGenotype is the pair stored for any missing or half-missing call.
var MissingGenotype = Genotype{A0: allele.Missing, A1: allele.Missing}

// IsMissing reports whether the call is missing.
func (g Genotype) IsMissing() bool {
	return g.A0 == allele.Missing
}

// ParseGenotype extracts the two allele indexes from a sample field such as
// "0/1", "1|0:35:99" or "./.". Phasing is ignored and the pair is sorted.
// A non-numeric allele makes the whole call missing. nalts is the number of
// alternate alleles declared for the site.
func ParseGenotype(field string, nalts int) (Genotype, error) {
	gt := field
	if i := strings.IndexByte(gt, ':'); i >= 0 {
		gt = gt[:i]
	}

	var t0, t1 string
	if sep := strings.IndexAny(gt, "/|"); sep >= 0 {
		t0, t1 = gt[:sep], gt[sep+1:]
		if strings.ContainsAny(t1, "/|") {
			return MissingGenotype, fmt.Errorf("genotype %q is not diploid", gt)
		}
	} else {
		// haploid call, stored as homozygous
		t0, t1 = gt, gt
	}

	a0, err := alleleIndex(t0, nalts)
	if err != nil {
		return MissingGenotype, err
	}
	a1, err := alleleIndex(t1, nalts)
	if err != nil {
		return MissingGenotype, err
	}

	if a0 == allele.Missing || a1 == allele.Missing {
		return MissingGenotype, nil
	}
	if a0 > a1 {
		a0, a1 = a1, a0
	}
	return Genotype{A0: a0, A1: a1}, nil
}

// alleleIndex converts one genotype token to an allele index.
func alleleIndex(tok string, nalts int) (uint8, error) {
	if tok == "" {
		return allele.Missing, nil
	}
	for i := 0; i < len(tok); i++ {
		if tok[i] < '0' || tok[i] > '9' {
			return allele.Missing, nil
		}
	}

	n, err := strconv.Atoi(tok)
	if err != nil || n > allele.MaxAlts {
		return 0, fmt.Errorf("allele index %s exceeds %d", tok, allele.MaxAlts)
	}
	if n > nalts {
		return 0, fmt.Errorf("allele index %d but only %d alternate alleles", n, nalts)
	}
	return uint8(n), nil
}
