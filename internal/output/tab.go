// Package output provides SNP database row formatters.
package output

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/inodb/vcf2snps/internal/allele"
	"github.com/inodb/vcf2snps/internal/matrix"
)

// TabWriter writes variant rows in tab-delimited format.
type TabWriter struct {
	w       *bufio.Writer
	columns []string
}

// NewTabWriter creates a new tab-delimited writer.
func NewTabWriter(w io.Writer) *TabWriter {
	return &TabWriter{
		w: bufio.NewWriter(w),
		columns: []string{
			"#Variant",
			"Location",
			"Block",
			"Offset",
			"Genotypes",
			"Calls",
		},
	}
}

// WriteHeader writes the header line.
func (tw *TabWriter) WriteHeader() error {
	_, err := tw.w.WriteString(strings.Join(tw.columns, "\t") + "\n")
	return err
}

// Write writes variant v of m.
func (tw *TabWriter) Write(m *matrix.Matrix, v int) error {
	row := m.MapRow(v)

	scaffold := "-"
	if id := int(row[matrix.ColScaffold]); id >= 1 && id <= len(m.Scaffolds) {
		scaffold = m.Scaffolds[id-1]
	}

	genotypes := make([]string, m.NSamples)
	calls := make([]byte, m.NSamples)
	for s := 0; s < m.NSamples; s++ {
		g := m.Geno(v, s)
		if g.IsMissing() {
			genotypes[s] = "./."
		} else {
			genotypes[s] = fmt.Sprintf("%d/%d", g.A0, g.A1)
		}
		calls[s] = m.Call(s, v)
	}
	if m.NSamples == 0 {
		genotypes = []string{"-"}
		calls = []byte{'-'}
	}

	values := []string{
		fmt.Sprintf("%d", row[matrix.ColIndex]),
		fmt.Sprintf("%s:%d", scaffold, row[matrix.ColPos]),
		fmt.Sprintf("%d", row[matrix.ColBlock]),
		fmt.Sprintf("%d", row[matrix.ColOffset]),
		strings.Join(genotypes, ","),
		string(calls),
	}

	_, err := tw.w.WriteString(strings.Join(values, "\t") + "\n")
	return err
}

// WriteCallCounts writes one line per sample with the number of each
// call it carries, missing calls last.
func (tw *TabWriter) WriteCallCounts(m *matrix.Matrix) error {
	for s := 0; s < m.NSamples; s++ {
		counts := make(map[byte]int)
		for _, c := range m.SampleCalls(s) {
			counts[c]++
		}

		parts := make([]string, 0, len(counts))
		for _, c := range []byte("ACGTRYSWKM") {
			if n := counts[c]; n > 0 {
				parts = append(parts, fmt.Sprintf("%c=%d", c, n))
			}
		}
		if n := counts[allele.MissingCall]; n > 0 {
			parts = append(parts, fmt.Sprintf("%c=%d", allele.MissingCall, n))
		}

		if _, err := fmt.Fprintf(tw.w, "%s\t%s\n", m.Names[s], strings.Join(parts, " ")); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes any buffered data to the underlying writer.
func (tw *TabWriter) Flush() error {
	return tw.w.Flush()
}
