// Package vcf provides VCF file parsing functionality.
package vcf

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/inodb/vcf2snps/internal/allele"
)

// Fixed VCF column indexes.
const (
	colChrom  = 0
	colPos    = 1
	colID     = 2
	colRef    = 3
	colAlt    = 4
	colFormat = 8

	// NumFixedColumns is the number of columns before the first sample.
	NumFixedColumns = 9
)

// Record represents one data row of a genotyped VCF.
type Record struct {
	Chrom   string   // Scaffold or chromosome name
	Pos     int64    // 1-based position
	ID      string   // Variant identifier
	Ref     string   // Reference allele
	Alts    []string // Alternate alleles in declared order (0-3 entries)
	Samples []string // Raw per-sample fields, in header order
	Line    int      // 1-based line number in the source
}

// ParseRecord parses a tab-separated VCF data line carrying nsamples
// sample columns.
func ParseRecord(line string, lineNumber, nsamples int) (*Record, error) {
	fields := strings.Split(line, "\t")

	want := NumFixedColumns + nsamples
	sitesOnly := nsamples == 0 && len(fields) == colFormat
	if len(fields) != want && !sitesOnly {
		return nil, &ParseError{
			Line:    lineNumber,
			Message: fmt.Sprintf("expected %d columns, found %d", want, len(fields)),
		}
	}

	pos, err := strconv.ParseInt(fields[colPos], 10, 64)
	if err != nil || pos < 0 || pos > math.MaxUint32 {
		return nil, &ParseError{
			Line:    lineNumber,
			Message: fmt.Sprintf("invalid position: %s", fields[colPos]),
		}
	}

	var alts []string
	if fields[colAlt] != "." && fields[colAlt] != "" {
		alts = strings.Split(fields[colAlt], ",")
	}
	if len(alts) > allele.MaxAlts {
		return nil, &ParseError{
			Line:    lineNumber,
			Message: fmt.Sprintf("%d alternate alleles, at most %d supported", len(alts), allele.MaxAlts),
		}
	}

	r := &Record{
		Chrom: fields[colChrom],
		Pos:   pos,
		ID:    fields[colID],
		Ref:   fields[colRef],
		Alts:  alts,
		Line:  lineNumber,
	}
	if !sitesOnly {
		r.Samples = fields[NumFixedColumns:]
	}

	return r, nil
}

// Genotype parses the genotype of sample i.
func (r *Record) Genotype(i int) (Genotype, error) {
	g, err := ParseGenotype(r.Samples[i], len(r.Alts))
	if err != nil {
		return g, &ParseError{
			Line:    r.Line,
			Message: fmt.Sprintf("sample %d: %v", i+1, err),
		}
	}
	return g, nil
}

// IsSNV returns true if the reference and every alternate are single bases.
func (r *Record) IsSNV() bool {
	if len(r.Ref) != 1 {
		return false
	}
	for _, a := range r.Alts {
		if len(a) != 1 {
			return false
		}
	}
	return true
}
