package export

import (
	"fmt"
	"os"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/ipc"
	"github.com/apache/arrow/go/v14/arrow/memory"

	"github.com/inodb/vcf2snps/internal/matrix"
)

// ArrowFile is the name of the call matrix written by WriteArrow.
const ArrowFile = "snps.arrow"

// Leading columns of the Arrow call matrix; one uint8 column per sample follows.
var arrowIndexFields = []arrow.Field{
	{Name: "scaffold", Type: arrow.BinaryTypes.String},
	{Name: "pos", Type: arrow.PrimitiveTypes.Uint32},
	{Name: "block", Type: arrow.PrimitiveTypes.Uint32},
}

// ArrowWriter streams the call matrix to an Arrow IPC file, one row per
// variant, flushing a record batch every chunkSize rows.
type ArrowWriter struct {
	file           *os.File
	schema         *arrow.Schema
	writer         *ipc.FileWriter
	scaffold       *array.StringBuilder
	pos            *array.Uint32Builder
	block          *array.Uint32Builder
	calls          []*array.Uint8Builder
	chunkSize      int
	numRowsInChunk int
}

// NewArrowWriter creates the file at path with a column per sample name.
func NewArrowWriter(path string, names []string, chunkSize int) (*ArrowWriter, error) {
	if chunkSize < 1 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}

	fields := append([]arrow.Field(nil), arrowIndexFields...)
	for _, name := range names {
		fields = append(fields, arrow.Field{Name: name, Type: arrow.PrimitiveTypes.Uint8})
	}
	schema := arrow.NewSchema(fields, nil)

	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	writer, err := ipc.NewFileWriter(file, ipc.WithSchema(schema))
	if err != nil {
		file.Close()
		return nil, err
	}

	pool := memory.NewGoAllocator()
	aw := &ArrowWriter{
		file:      file,
		schema:    schema,
		writer:    writer,
		scaffold:  array.NewStringBuilder(pool),
		pos:       array.NewUint32Builder(pool),
		block:     array.NewUint32Builder(pool),
		calls:     make([]*array.Uint8Builder, len(names)),
		chunkSize: chunkSize,
	}
	for i := range aw.calls {
		aw.calls[i] = array.NewUint8Builder(pool)
	}
	return aw, nil
}

// Write appends one variant row.
func (aw *ArrowWriter) Write(scaffold string, pos, block uint32, calls []uint8) error {
	if len(calls) != len(aw.calls) {
		return fmt.Errorf("mismatch in number of samples: expected %d, got %d", len(aw.calls), len(calls))
	}

	aw.scaffold.Append(scaffold)
	aw.pos.Append(pos)
	aw.block.Append(block)
	for i, c := range calls {
		aw.calls[i].Append(c)
	}

	aw.numRowsInChunk++
	if aw.numRowsInChunk == aw.chunkSize {
		return aw.writeChunk()
	}
	return nil
}

func (aw *ArrowWriter) writeChunk() error {
	cols := []arrow.Array{aw.scaffold.NewArray(), aw.pos.NewArray(), aw.block.NewArray()}
	for _, b := range aw.calls {
		cols = append(cols, b.NewArray())
	}

	record := array.NewRecord(aw.schema, cols, int64(aw.numRowsInChunk))
	for _, c := range cols {
		c.Release()
	}
	defer record.Release()

	if err := aw.writer.Write(record); err != nil {
		return err
	}
	aw.numRowsInChunk = 0
	return nil
}

// Close flushes the last batch and closes the file.
func (aw *ArrowWriter) Close() error {
	if aw.numRowsInChunk > 0 {
		if err := aw.writeChunk(); err != nil {
			aw.file.Close()
			return err
		}
	}
	if err := aw.writer.Close(); err != nil {
		aw.file.Close()
		return err
	}
	return aw.file.Close()
}

// WriteArrow writes m as an Arrow IPC file with one row per variant.
func WriteArrow(path string, m *matrix.Matrix, chunkSize int) error {
	if err := m.Validate(); err != nil {
		return err
	}

	aw, err := NewArrowWriter(path, m.Names, chunkSize)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	row := make([]uint8, m.NSamples)
	for v := 0; v < m.NSNPs; v++ {
		for s := range row {
			row[s] = m.Call(s, v)
		}
		mr := m.MapRow(v)
		var scaffold string
		if id := int(mr[matrix.ColScaffold]); id >= 1 && id <= len(m.Scaffolds) {
			scaffold = m.Scaffolds[id-1]
		}
		if err := aw.Write(scaffold, mr[matrix.ColPos], mr[matrix.ColBlock], row); err != nil {
			aw.Close()
			return fmt.Errorf("write variant %d: %w", v, err)
		}
	}
	return aw.Close()
}
