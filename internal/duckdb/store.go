// Package duckdb stores SNP matrix databases in DuckDB files.
//
// A database holds three fixed-shape arrays and their sample names:
//
//	genos    u1 [variants, samples, 2]  sorted allele index pairs
//	snps     u1 [samples, variants]     encoded base calls
//	snpsmap  u4 [variants, 5]           block, offset, position, scaffold, index
//
// Each array row is one table row keyed by its leading index, so any
// variant or sample can be read without loading the whole matrix.
// Databases are written once and opened read-only afterwards.
package duckdb

import (
	"database/sql"
	"errors"
	"fmt"
	"os"

	_ "github.com/marcboeker/go-duckdb"
)

// Dataset names and element types.
const (
	DatasetGenos   = "genos"
	DatasetSnps    = "snps"
	DatasetSnpsMap = "snpsmap"

	DtypeUint8  = "u1"
	DtypeUint32 = "u4"

	// AttrNames is the attribute holding sample names on genos and snps.
	AttrNames = "names"
)

var (
	// ErrWriteFailure wraps every error that prevents a database from being written.
	ErrWriteFailure = errors.New("write snp database")

	// ErrNotFound is returned when a row index is outside the stored array.
	ErrNotFound = errors.New("row not found")
)

// Store manages a DuckDB connection to a SNP database.
type Store struct {
	db   *sql.DB
	path string
}

// create makes a new database at path and creates its tables.
func create(path string) (*Store, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return s, nil
}

// Open opens an existing database read-only.
func Open(path string) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open snp database: %w", err)
	}

	db, err := sql.Open("duckdb", path+"?access_mode=read_only")
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for direct access.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// createSchema creates the dataset tables.
func (s *Store) createSchema() error {
	stmts := []string{
		`CREATE TABLE datasets (
			name VARCHAR PRIMARY KEY,
			dtype VARCHAR,
			ndim INTEGER,
			dim0 BIGINT,
			dim1 BIGINT,
			dim2 BIGINT
		)`,
		`CREATE TABLE attrs (
			dataset VARCHAR,
			key VARCHAR,
			idx INTEGER,
			value VARCHAR,
			PRIMARY KEY (dataset, key, idx)
		)`,
		`CREATE TABLE genos (
			variant UINTEGER PRIMARY KEY,
			data BLOB
		)`,
		`CREATE TABLE snps (
			sample UINTEGER PRIMARY KEY,
			data BLOB
		)`,
		`CREATE TABLE snpsmap (
			variant UINTEGER PRIMARY KEY,
			block UINTEGER,
			block_offset UINTEGER,
			pos UINTEGER,
			scaffold UINTEGER,
			idx UINTEGER
		)`,
		`CREATE TABLE scaffolds (
			id UINTEGER PRIMARY KEY,
			name VARCHAR
		)`,
		`CREATE TABLE source (
			path VARCHAR,
			size BIGINT,
			mod_time VARCHAR,
			format_source VARCHAR,
			reference VARCHAR,
			block_size INTEGER,
			mode VARCHAR
		)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
