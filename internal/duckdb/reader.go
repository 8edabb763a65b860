package duckdb

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/inodb/vcf2snps/internal/matrix"
)

// Dataset describes one stored array.
type Dataset struct {
	Name  string
	Dtype string
	Shape []int
}

// Datasets returns the declared array layout, ordered by name.
func (s *Store) Datasets() ([]Dataset, error) {
	rows, err := s.db.Query(`SELECT name, dtype, ndim, dim0, dim1, dim2
		FROM datasets ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query datasets: %w", err)
	}
	defer rows.Close()

	var out []Dataset
	for rows.Next() {
		var d Dataset
		var ndim int
		var dims [3]int
		if err := rows.Scan(&d.Name, &d.Dtype, &ndim, &dims[0], &dims[1], &dims[2]); err != nil {
			return nil, fmt.Errorf("scan dataset: %w", err)
		}
		d.Shape = append([]int(nil), dims[:ndim]...)
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate datasets: %w", err)
	}
	return out, nil
}

// Dataset returns the layout of a single array.
func (s *Store) Dataset(name string) (Dataset, error) {
	all, err := s.Datasets()
	if err != nil {
		return Dataset{}, err
	}
	for _, d := range all {
		if d.Name == name {
			return d, nil
		}
	}
	return Dataset{}, fmt.Errorf("dataset %q: %w", name, ErrNotFound)
}

// Names returns the sample names attached to a dataset, in column order.
func (s *Store) Names(dataset string) ([]string, error) {
	rows, err := s.db.Query(`SELECT value FROM attrs
		WHERE dataset = ? AND key = ? ORDER BY idx`, dataset, AttrNames)
	if err != nil {
		return nil, fmt.Errorf("query names: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("scan name: %w", err)
		}
		names = append(names, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate names: %w", err)
	}
	return names, nil
}

// Scaffolds returns scaffold names; scaffold id i+1 is element i.
func (s *Store) Scaffolds() ([]string, error) {
	rows, err := s.db.Query(`SELECT name FROM scaffolds ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query scaffolds: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("scan scaffold: %w", err)
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

// GenosRow returns the [samples, 2] allele pairs of variant v.
func (s *Store) GenosRow(v int) ([]uint8, error) {
	return s.blobRow(`SELECT data FROM genos WHERE variant = ?`, v)
}

// SnpsRow returns the encoded calls of sample i across all variants.
func (s *Store) SnpsRow(i int) ([]uint8, error) {
	return s.blobRow(`SELECT data FROM snps WHERE sample = ?`, i)
}

func (s *Store) blobRow(query string, idx int) ([]uint8, error) {
	var data []byte
	err := s.db.QueryRow(query, uint32(idx)).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("row %d: %w", idx, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read row %d: %w", idx, err)
	}
	return data, nil
}

// SnpsMapRow returns the five index columns of variant v.
func (s *Store) SnpsMapRow(v int) ([]uint32, error) {
	row := make([]uint32, matrix.MapWidth)
	err := s.db.QueryRow(`SELECT block, block_offset, pos, scaffold, idx
		FROM snpsmap WHERE variant = ?`, uint32(v)).
		Scan(&row[0], &row[1], &row[2], &row[3], &row[4])
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("row %d: %w", v, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read snpsmap row %d: %w", v, err)
	}
	return row, nil
}

// Source returns the recorded input file and grouping configuration.
func (s *Store) Source() (*Source, error) {
	var src Source
	var modTime string
	err := s.db.QueryRow(`SELECT path, size, mod_time, format_source, reference, block_size, mode
		FROM source LIMIT 1`).
		Scan(&src.File.Path, &src.File.Size, &modTime,
			&src.FormatSource, &src.Reference, &src.BlockSize, &src.Mode)
	if err != nil {
		return nil, fmt.Errorf("read source: %w", err)
	}
	src.File.ModTime, err = time.Parse(time.RFC3339Nano, modTime)
	if err != nil {
		return nil, fmt.Errorf("parse source mod time: %w", err)
	}
	return &src, nil
}

// ReadMatrix loads every array into memory.
func (s *Store) ReadMatrix() (*matrix.Matrix, error) {
	snps, err := s.Dataset(DatasetSnps)
	if err != nil {
		return nil, err
	}
	names, err := s.Names(DatasetSnps)
	if err != nil {
		return nil, err
	}
	if len(names) != snps.Shape[0] {
		return nil, fmt.Errorf("snps has %d samples but %d names", snps.Shape[0], len(names))
	}

	m := matrix.New(snps.Shape[1], names)
	if m.Scaffolds, err = s.Scaffolds(); err != nil {
		return nil, err
	}

	if err := s.readBlobs(`SELECT variant, data FROM genos ORDER BY variant`, m.NSNPs, m.GenosRow); err != nil {
		return nil, fmt.Errorf("read genos: %w", err)
	}
	if err := s.readBlobs(`SELECT sample, data FROM snps ORDER BY sample`, m.NSamples, m.SampleCalls); err != nil {
		return nil, fmt.Errorf("read snps: %w", err)
	}

	rows, err := s.db.Query(`SELECT variant, block, block_offset, pos, scaffold, idx
		FROM snpsmap ORDER BY variant`)
	if err != nil {
		return nil, fmt.Errorf("read snpsmap: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var v uint32
		var r [matrix.MapWidth]uint32
		if err := rows.Scan(&v, &r[0], &r[1], &r[2], &r[3], &r[4]); err != nil {
			return nil, fmt.Errorf("scan snpsmap: %w", err)
		}
		if int(v) >= m.NSNPs {
			return nil, fmt.Errorf("snpsmap row %d outside shape", v)
		}
		copy(m.MapRow(int(v)), r[:])
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snpsmap: %w", err)
	}

	return m, nil
}

// readBlobs copies keyed blob rows into the slices returned by dst.
func (s *Store) readBlobs(query string, n int, dst func(int) []uint8) error {
	rows, err := s.db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var i uint32
		var data []byte
		if err := rows.Scan(&i, &data); err != nil {
			return err
		}
		if int(i) >= n {
			return fmt.Errorf("row %d outside shape", i)
		}
		row := dst(int(i))
		if len(data) != len(row) {
			return fmt.Errorf("row %d has %d bytes, want %d", i, len(data), len(row))
		}
		copy(row, data)
	}
	return rows.Err()
}
