// Package matrix builds the SNP matrix database contents from a VCF.
package matrix

import (
	"fmt"

	"github.com/inodb/vcf2snps/internal/vcf"
)

// SnpsMap column indexes.
const (
	ColBlock = iota
	ColOffset
	ColPos
	ColScaffold
	ColIndex

	// MapWidth is the number of columns in SnpsMap.
	MapWidth
)

// Matrix holds the arrays of a SNP database in row-major order.
type Matrix struct {
	NSNPs    int
	NSamples int

	// Genos is shaped [NSNPs, NSamples, 2] and holds sorted allele indexes.
	Genos []uint8
	// Snps is shaped [NSamples, NSNPs] and holds encoded base calls.
	Snps []uint8
	// SnpsMap is shaped [NSNPs, 5]:
	// block id, offset in block, position, scaffold id, variant index.
	SnpsMap []uint32

	// Names are the sample names; their order is the sample axis order.
	Names []string
	// Scaffolds are scaffold names; scaffold id i+1 is Scaffolds[i].
	Scaffolds []string
}

// New allocates a zeroed matrix for nsnps variants and the given samples.
func New(nsnps int, names []string) *Matrix {
	nsamples := len(names)
	return &Matrix{
		NSNPs:    nsnps,
		NSamples: nsamples,
		Genos:    make([]uint8, nsnps*nsamples*2),
		Snps:     make([]uint8, nsamples*nsnps),
		SnpsMap:  make([]uint32, nsnps*MapWidth),
		Names:    names,
	}
}

// SetGeno stores the genotype and encoded call of sample s at variant v.
func (m *Matrix) SetGeno(v, s int, g vcf.Genotype, call byte) {
	i := (v*m.NSamples + s) * 2
	m.Genos[i] = g.A0
	m.Genos[i+1] = g.A1
	m.Snps[s*m.NSNPs+v] = call
}

// Geno returns the allele index pair of sample s at variant v.
func (m *Matrix) Geno(v, s int) vcf.Genotype {
	i := (v*m.NSamples + s) * 2
	return vcf.Genotype{A0: m.Genos[i], A1: m.Genos[i+1]}
}

// Call returns the encoded base call of sample s at variant v.
func (m *Matrix) Call(s, v int) byte {
	return m.Snps[s*m.NSNPs+v]
}

// SampleCalls returns the call row of sample s.
func (m *Matrix) SampleCalls(s int) []uint8 {
	return m.Snps[s*m.NSNPs : (s+1)*m.NSNPs]
}

// GenosRow returns the [NSamples, 2] slab of variant v.
func (m *Matrix) GenosRow(v int) []uint8 {
	w := m.NSamples * 2
	return m.Genos[v*w : (v+1)*w]
}

// MapRow returns the SnpsMap row of variant v.
func (m *Matrix) MapRow(v int) []uint32 {
	return m.SnpsMap[v*MapWidth : (v+1)*MapWidth]
}

// Column copies one SnpsMap column.
func (m *Matrix) Column(col int) []uint32 {
	out := make([]uint32, m.NSNPs)
	for v := range out {
		out[v] = m.SnpsMap[v*MapWidth+col]
	}
	return out
}

// SetColumn overwrites one SnpsMap column.
func (m *Matrix) SetColumn(col int, vals []uint32) {
	for v, x := range vals {
		m.SnpsMap[v*MapWidth+col] = x
	}
}

// Validate checks that array lengths agree with the declared shape.
func (m *Matrix) Validate() error {
	switch {
	case len(m.Names) != m.NSamples:
		return fmt.Errorf("names: have %d, want %d", len(m.Names), m.NSamples)
	case len(m.Genos) != m.NSNPs*m.NSamples*2:
		return fmt.Errorf("genos: have %d values, want %d", len(m.Genos), m.NSNPs*m.NSamples*2)
	case len(m.Snps) != m.NSamples*m.NSNPs:
		return fmt.Errorf("snps: have %d values, want %d", len(m.Snps), m.NSamples*m.NSNPs)
	case len(m.SnpsMap) != m.NSNPs*MapWidth:
		return fmt.Errorf("snpsmap: have %d values, want %d", len(m.SnpsMap), m.NSNPs*MapWidth)
	}
	return nil
}
