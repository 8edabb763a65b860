package duckdb

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vcf2snps/internal/matrix"
)

func buildTestMatrix(t *testing.T) (*matrix.Matrix, *matrix.Summary) {
	t.Helper()
	m, s, err := matrix.NewBuilder(10).Build(context.Background(), "../../testdata/snps_3x4.vcf")
	require.NoError(t, err)
	return m, s
}

func testSource(t *testing.T, s *matrix.Summary) Source {
	t.Helper()
	fp, err := StatFile("../../testdata/snps_3x4.vcf")
	require.NoError(t, err)
	return Source{
		File:         fp,
		FormatSource: s.Source,
		Reference:    s.Reference,
		BlockSize:    10,
		Mode:         s.Mode.String(),
	}
}

func writeTestDB(t *testing.T) (string, *matrix.Matrix) {
	t.Helper()
	m, s := buildTestMatrix(t)
	path := filepath.Join(t.TempDir(), "test.snps.duckdb")
	require.NoError(t, Write(path, m, testSource(t, s)))
	return path, m
}

func TestWriteAndReadMatrix(t *testing.T) {
	path, want := writeTestDB(t)

	store, err := Open(path)
	require.NoError(t, err)
	defer store.Close()

	got, err := store.ReadMatrix()
	require.NoError(t, err)

	assert.Equal(t, want.NSNPs, got.NSNPs)
	assert.Equal(t, want.NSamples, got.NSamples)
	assert.Equal(t, want.Names, got.Names)
	assert.Equal(t, want.Scaffolds, got.Scaffolds)
	assert.Equal(t, want.Genos, got.Genos)
	assert.Equal(t, want.Snps, got.Snps)
	assert.Equal(t, want.SnpsMap, got.SnpsMap)
}

func TestDatasets(t *testing.T) {
	path, _ := writeTestDB(t)

	store, err := Open(path)
	require.NoError(t, err)
	defer store.Close()

	ds, err := store.Datasets()
	require.NoError(t, err)
	assert.Equal(t, []Dataset{
		{Name: DatasetGenos, Dtype: DtypeUint8, Shape: []int{4, 3, 2}},
		{Name: DatasetSnps, Dtype: DtypeUint8, Shape: []int{3, 4}},
		{Name: DatasetSnpsMap, Dtype: DtypeUint32, Shape: []int{4, 5}},
	}, ds)

	_, err = store.Dataset("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNames(t *testing.T) {
	path, _ := writeTestDB(t)

	store, err := Open(path)
	require.NoError(t, err)
	defer store.Close()

	for _, d := range []string{DatasetGenos, DatasetSnps} {
		names, err := store.Names(d)
		require.NoError(t, err)
		assert.Equal(t, []string{"s1", "s2", "s3"}, names, d)
	}

	names, err := store.Names(DatasetSnpsMap)
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestRowReads(t *testing.T) {
	path, _ := writeTestDB(t)

	store, err := Open(path)
	require.NoError(t, err)
	defer store.Close()

	row, err := store.SnpsRow(1)
	require.NoError(t, err)
	assert.Equal(t, []uint8("RTKT"), row)

	geno, err := store.GenosRow(2)
	require.NoError(t, err)
	assert.Equal(t, []uint8{1, 2, 0, 2, 2, 2}, geno)

	mrow, err := store.SnpsMapRow(3)
	require.NoError(t, err)
	assert.Equal(t, []uint32{3, 0, 41, 1, 3}, mrow)

	_, err = store.SnpsRow(3)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.GenosRow(4)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.SnpsMapRow(99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSourceRoundTrip(t *testing.T) {
	m, s := buildTestMatrix(t)
	src := testSource(t, s)
	path := filepath.Join(t.TempDir(), "test.snps.duckdb")
	require.NoError(t, Write(path, m, src))

	store, err := Open(path)
	require.NoError(t, err)
	defer store.Close()

	got, err := store.Source()
	require.NoError(t, err)
	assert.Equal(t, src.File.Path, got.File.Path)
	assert.Equal(t, src.File.Size, got.File.Size)
	assert.True(t, src.File.ModTime.Equal(got.File.ModTime))
	assert.Equal(t, "bcftools", got.FormatSource)
	assert.Equal(t, 10, got.BlockSize)
	assert.Equal(t, "windowed", got.Mode)

	assert.True(t, got.Matches(src.File))

	changed := src.File
	changed.ModTime = changed.ModTime.Add(time.Second)
	assert.False(t, got.Matches(changed))

	changed = src.File
	changed.Size++
	assert.False(t, got.Matches(changed))
}

func TestWrite_MissingParentDir(t *testing.T) {
	m, s := buildTestMatrix(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "absent", "test.snps.duckdb")

	err := Write(path, m, testSource(t, s))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrWriteFailure)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestWrite_InvalidMatrix(t *testing.T) {
	m, s := buildTestMatrix(t)
	m.Snps = m.Snps[:len(m.Snps)-1]

	dir := t.TempDir()
	err := Write(filepath.Join(dir, "bad.snps.duckdb"), m, testSource(t, s))
	assert.ErrorIs(t, err, ErrWriteFailure)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestWrite_Overwrite(t *testing.T) {
	path, _ := writeTestDB(t)

	m, s, err := matrix.NewBuilder(0).Build(context.Background(), "../../testdata/ipyrad_denovo.vcf")
	require.NoError(t, err)
	fp, err := StatFile("../../testdata/ipyrad_denovo.vcf")
	require.NoError(t, err)
	require.NoError(t, Write(path, m, Source{File: fp, FormatSource: s.Source, Mode: s.Mode.String()}))

	store, err := Open(path)
	require.NoError(t, err)
	defer store.Close()

	got, err := store.ReadMatrix()
	require.NoError(t, err)
	assert.Equal(t, 5, got.NSNPs)
	assert.Equal(t, []string{"loc1", "loc2"}, got.Scaffolds)
	assert.Equal(t, m.Snps, got.Snps)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasSuffix(e.Name(), ".tmp"), "leftover %s", e.Name())
	}
}

func TestOpen_Missing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "absent.duckdb"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
