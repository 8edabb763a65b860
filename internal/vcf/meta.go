package vcf

import "strings"

// Meta summarizes a VCF without parsing its genotypes.
type Meta struct {
	HeaderLines int      // number of ## lines
	Source      string   // ##source= value
	Reference   string   // ##reference= value
	Names       []string // sample names in column order
	Variants    int      // number of data lines
	Scaffolds   []string // distinct CHROM values in first-seen order
}

// Scan reads the whole file once, counting data lines and scaffolds so that
// output arrays can be sized before they are filled.
func Scan(path string) (*Meta, error) {
	p, err := NewParser(path)
	if err != nil {
		return nil, err
	}
	defer p.Close()

	m := &Meta{
		HeaderLines: len(p.Header()) - 1,
		Source:      p.Source(),
		Reference:   p.Reference(),
		Names:       p.SampleNames(),
	}

	seen := make(map[string]bool)
	for {
		line, _, err := p.NextLine()
		if err != nil {
			return nil, err
		}
		if line == "" {
			break
		}
		m.Variants++

		chrom := line
		if i := strings.IndexByte(line, '\t'); i >= 0 {
			chrom = line[:i]
		}
		if !seen[chrom] {
			seen[chrom] = true
			m.Scaffolds = append(m.Scaffolds, chrom)
		}
	}

	return m, nil
}
