package duckdb

import (
	"context"
	"database/sql/driver"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/inodb/vcf2snps/internal/matrix"
)

// Write stores m in a new database at path, replacing any existing file.
// The parent directory must exist. The database is built under a temporary
// name next to path and renamed into place, so path never holds a partial
// database.
func Write(path string, m *matrix.Matrix, src Source) (err error) {
	if err := m.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailure, err)
	}

	dir := filepath.Dir(path)
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("%w: output directory: %w", ErrWriteFailure, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrWriteFailure, dir)
	}

	tmp := filepath.Join(dir, "."+filepath.Base(path)+"."+uuid.NewString()+".tmp")
	defer func() {
		if err != nil {
			removeDatabase(tmp)
		}
	}()

	s, err := create(tmp)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailure, err)
	}
	if err := s.writeMatrix(m, src); err != nil {
		s.Close()
		return fmt.Errorf("%w: %w", ErrWriteFailure, err)
	}
	if err := s.Close(); err != nil {
		return fmt.Errorf("%w: close: %w", ErrWriteFailure, err)
	}

	// a WAL left by an older database at path would be replayed onto ours
	os.Remove(path + ".wal")
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("%w: rename: %w", ErrWriteFailure, err)
	}
	return nil
}

// removeDatabase deletes a database file and its write-ahead log.
func removeDatabase(path string) {
	os.Remove(path)
	os.Remove(path + ".wal")
}

// writeMatrix fills every table of a freshly created database.
func (s *Store) writeMatrix(m *matrix.Matrix, src Source) error {
	if err := s.writeLayout(m); err != nil {
		return fmt.Errorf("write layout: %w", err)
	}
	if err := s.writeSource(src); err != nil {
		return fmt.Errorf("write source: %w", err)
	}

	conn, err := s.db.Conn(context.Background())
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	return conn.Raw(func(driverConn any) error {
		dc := driverConn.(driver.Conn)

		if err := appendRows(dc, DatasetGenos, m.NSNPs, func(v int) []driver.Value {
			return []driver.Value{uint32(v), m.GenosRow(v)}
		}); err != nil {
			return err
		}
		if err := appendRows(dc, DatasetSnps, m.NSamples, func(i int) []driver.Value {
			return []driver.Value{uint32(i), m.SampleCalls(i)}
		}); err != nil {
			return err
		}
		if err := appendRows(dc, DatasetSnpsMap, m.NSNPs, func(v int) []driver.Value {
			r := m.MapRow(v)
			return []driver.Value{uint32(v), r[0], r[1], r[2], r[3], r[4]}
		}); err != nil {
			return err
		}
		return appendRows(dc, "scaffolds", len(m.Scaffolds), func(i int) []driver.Value {
			return []driver.Value{uint32(i + 1), m.Scaffolds[i]}
		})
	})
}

// appendRows bulk-inserts n rows into table using the Appender API.
func appendRows(conn driver.Conn, table string, n int, row func(int) []driver.Value) error {
	appender, err := goduckdb.NewAppenderFromConn(conn, "", table)
	if err != nil {
		return fmt.Errorf("create %s appender: %w", table, err)
	}

	for i := 0; i < n; i++ {
		if err := appender.AppendRow(row(i)...); err != nil {
			appender.Close()
			return fmt.Errorf("append %s row %d: %w", table, i, err)
		}
	}

	if err := appender.Close(); err != nil {
		return fmt.Errorf("flush %s: %w", table, err)
	}
	return nil
}

// writeLayout declares dataset shapes and attaches sample names.
func (s *Store) writeLayout(m *matrix.Matrix) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	layout := []struct {
		name  string
		dtype string
		shape []int
	}{
		{DatasetGenos, DtypeUint8, []int{m.NSNPs, m.NSamples, 2}},
		{DatasetSnps, DtypeUint8, []int{m.NSamples, m.NSNPs}},
		{DatasetSnpsMap, DtypeUint32, []int{m.NSNPs, matrix.MapWidth}},
	}
	for _, d := range layout {
		dims := [3]int64{}
		for i, n := range d.shape {
			dims[i] = int64(n)
		}
		if _, err := tx.Exec(`INSERT INTO datasets VALUES (?, ?, ?, ?, ?, ?)`,
			d.name, d.dtype, len(d.shape), dims[0], dims[1], dims[2]); err != nil {
			return err
		}
	}

	for _, dataset := range []string{DatasetGenos, DatasetSnps} {
		for i, name := range m.Names {
			if _, err := tx.Exec(`INSERT INTO attrs VALUES (?, ?, ?, ?)`,
				dataset, AttrNames, i, name); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

// writeSource records the input file and grouping configuration.
func (s *Store) writeSource(src Source) error {
	_, err := s.db.Exec(`INSERT INTO source VALUES (?, ?, ?, ?, ?, ?, ?)`,
		src.File.Path, src.File.Size, formatModTime(src.File.ModTime),
		src.FormatSource, src.Reference, src.BlockSize, src.Mode)
	return err
}
