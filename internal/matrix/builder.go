package matrix

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/inodb/vcf2snps/internal/allele"
	"github.com/inodb/vcf2snps/internal/linkage"
	"github.com/inodb/vcf2snps/internal/vcf"
)

// Summary describes a built matrix.
type Summary struct {
	Variants  int
	Samples   int
	Scaffolds int
	Blocks    int
	Mode      linkage.Mode

	Source    string // VCF ##source= value
	Reference string // VCF ##reference= value
}

// EncodingError reports a genotype that has no single-byte encoding.
type EncodingError struct {
	Chrom  string
	Pos    int64
	Line   int
	Sample string
	Err    error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("encode %s:%d sample %s (line %d): %v", e.Chrom, e.Pos, e.Sample, e.Line, e.Err)
}

func (e *EncodingError) Unwrap() error {
	return e.Err
}

// Builder converts a VCF into a Matrix in two passes: a counting pass that
// fixes array shapes, then a fill pass.
type Builder struct {
	blockSize int
	workers   int
	logger    *zap.Logger
	out       io.Writer
}

// NewBuilder creates a builder. blockSize is the linkage window width, or 0
// when the VCF carries its own locus grouping.
func NewBuilder(blockSize int) *Builder {
	return &Builder{
		blockSize: blockSize,
		workers:   1,
		logger:    zap.NewNop(),
	}
}

// SetWorkers sets the number of fill workers. Values below 2 fill on the
// calling goroutine.
func (b *Builder) SetWorkers(n int) {
	if n < 1 {
		n = 1
	}
	b.workers = n
}

// SetLogger sets the logger for debug and info messages.
func (b *Builder) SetLogger(l *zap.Logger) {
	b.logger = l
}

// SetOutput sets where the progress report is printed. nil silences it.
func (b *Builder) SetOutput(w io.Writer) {
	b.out = w
}

func (b *Builder) printf(format string, args ...any) {
	if b.out != nil {
		fmt.Fprintf(b.out, format, args...)
	}
}

// Build reads the VCF at path twice and returns the filled matrix.
func (b *Builder) Build(ctx context.Context, path string) (*Matrix, *Summary, error) {
	meta, err := vcf.Scan(path)
	if err != nil {
		return nil, nil, err
	}
	b.printf("VCF: %d SNPs; %d scaffolds\n", meta.Variants, len(meta.Scaffolds))
	b.logger.Debug("scanned vcf",
		zap.String("path", path),
		zap.Int("variants", meta.Variants),
		zap.Int("samples", len(meta.Names)),
		zap.Int("header_lines", meta.HeaderLines),
		zap.String("source", meta.Source),
		zap.String("reference", meta.Reference))

	mode, err := linkage.SelectMode(meta.Source, meta.Reference, b.blockSize)
	if err != nil {
		return nil, nil, err
	}
	if mode == linkage.Inherited && b.blockSize > 0 {
		b.logger.Info("ignoring linkage block size, scaffolds are de-novo loci",
			zap.Int("block_size", b.blockSize))
	}

	m := New(meta.Variants, meta.Names)
	m.Scaffolds = meta.Scaffolds

	p, err := vcf.NewParser(path)
	if err != nil {
		return nil, nil, err
	}
	defer p.Close()

	if err := b.Fill(ctx, p, m); err != nil {
		return nil, nil, err
	}

	a, err := linkage.Assign(mode, m.Column(ColScaffold), m.Column(ColPos), b.blockSize)
	if err != nil {
		return nil, nil, err
	}
	m.SetColumn(ColBlock, a.Blocks)
	m.SetColumn(ColOffset, a.Offsets)

	s := &Summary{
		Variants:  m.NSNPs,
		Samples:   m.NSamples,
		Scaffolds: len(m.Scaffolds),
		Blocks:    a.NBlocks,
		Mode:      mode,
		Source:    meta.Source,
		Reference: meta.Reference,
	}
	b.logger.Debug("built matrix",
		zap.Int("variants", s.Variants),
		zap.Int("blocks", s.Blocks),
		zap.Stringer("mode", s.Mode))

	return m, s, nil
}

// Fill reads every data line from r into m. m must already be sized and
// m.Scaffolds must list every scaffold in r.
func (b *Builder) Fill(ctx context.Context, r vcf.LineReader, m *Matrix) error {
	if got := len(r.SampleNames()); got != m.NSamples {
		return fmt.Errorf("source has %d samples, matrix has %d", got, m.NSamples)
	}

	ids := make(map[string]uint32, len(m.Scaffolds))
	for i, name := range m.Scaffolds {
		ids[name] = uint32(i + 1)
	}

	if b.workers > 1 {
		return b.fillParallel(ctx, r, m, ids)
	}

	v := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		line, n, err := r.NextLine()
		if err != nil {
			return err
		}
		if line == "" {
			break
		}
		if v >= m.NSNPs {
			return errSourceChanged(m.NSNPs)
		}
		if err := fillLine(m, WorkItem{Seq: v, Line: line, LineNumber: n}, ids); err != nil {
			return err
		}
		v++
	}
	if v != m.NSNPs {
		return errSourceChanged(m.NSNPs)
	}
	return nil
}

func errSourceChanged(want int) error {
	return fmt.Errorf("vcf changed between passes: expected %d variants", want)
}

// fillLine parses one data line and writes variant item.Seq.
func fillLine(m *Matrix, item WorkItem, ids map[string]uint32) error {
	rec, err := vcf.ParseRecord(item.Line, item.LineNumber, m.NSamples)
	if err != nil {
		return err
	}

	sid, ok := ids[rec.Chrom]
	if !ok {
		return fmt.Errorf("scaffold %q at line %d not seen in first pass", rec.Chrom, rec.Line)
	}

	for s := range rec.Samples {
		g, err := rec.Genotype(s)
		if err != nil {
			return err
		}
		call, err := allele.Encode(g.A0, g.A1, rec.Ref, rec.Alts)
		if err != nil {
			if errors.Is(err, allele.ErrAlleleIndex) {
				return &vcf.ParseError{Line: rec.Line, Message: err.Error()}
			}
			return &EncodingError{
				Chrom:  rec.Chrom,
				Pos:    rec.Pos,
				Line:   rec.Line,
				Sample: m.Names[s],
				Err:    err,
			}
		}
		m.SetGeno(item.Seq, s, g, call)
	}

	row := m.MapRow(item.Seq)
	row[ColPos] = uint32(rec.Pos)
	row[ColScaffold] = sid
	row[ColIndex] = uint32(item.Seq)
	return nil
}

// Spool copies a non-seekable stream to a temporary file in dir so that it
// can be read twice. The returned cleanup removes the file.
func Spool(r io.Reader, dir string) (string, func(), error) {
	f, err := os.CreateTemp(dir, "vcf2snps-*.vcf")
	if err != nil {
		return "", nil, fmt.Errorf("create spool file: %w", err)
	}
	cleanup := func() { os.Remove(f.Name()) }

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		cleanup()
		return "", nil, fmt.Errorf("spool input: %w", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("close spool file: %w", err)
	}
	return f.Name(), cleanup, nil
}
