package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/inodb/vcf2snps/internal/duckdb"
	"github.com/inodb/vcf2snps/internal/vcf"
)

func testOptions(t *testing.T) convertOptions {
	t.Helper()
	return convertOptions{
		Name:      "test",
		Workdir:   filepath.Join(t.TempDir(), "work"),
		BlockSize: 10,
		Workers:   1,
	}
}

func TestRunConvert_DefaultOutput(t *testing.T) {
	opts := testOptions(t)
	opts.Name = "run1"

	var out bytes.Buffer
	path, err := runConvert(context.Background(), opts, "../../testdata/snps_3x4.vcf", nil, &out, zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(opts.Workdir, "run1.snps.duckdb"), path)
	assert.FileExists(t, path)

	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "VCF: 4 SNPs; 1 scaffolds", lines[0])
	assert.Equal(t, "database: 4 snps; 1 scaffolds; 3 linkage blocks", lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "wrote "+path))
}

func TestRunConvert_UpToDate(t *testing.T) {
	opts := testOptions(t)
	input := "../../testdata/snps_3x4.vcf"

	_, err := runConvert(context.Background(), opts, input, nil, &bytes.Buffer{}, zap.NewNop())
	require.NoError(t, err)

	var out bytes.Buffer
	path, err := runConvert(context.Background(), opts, input, nil, &out, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "database up to date: "+path+"\n", out.String())

	out.Reset()
	opts.Force = true
	_, err = runConvert(context.Background(), opts, input, nil, &out, zap.NewNop())
	require.NoError(t, err)
	assert.Contains(t, out.String(), "VCF: 4 SNPs")

	out.Reset()
	opts.Force = false
	opts.BlockSize = 20
	_, err = runConvert(context.Background(), opts, input, nil, &out, zap.NewNop())
	require.NoError(t, err)
	assert.Contains(t, out.String(), "database: 4 snps; 1 scaffolds; 2 linkage blocks")
}

func TestRunConvert_TooManyAlternates(t *testing.T) {
	opts := testOptions(t)
	opts.BlockSize = 100

	_, err := runConvert(context.Background(), opts, "../../testdata/too_many_alts.vcf", nil, &bytes.Buffer{}, zap.NewNop())
	require.Error(t, err)
	assert.ErrorIs(t, err, vcf.ErrMalformedRecord)

	_, statErr := os.Stat(filepath.Join(opts.Workdir, "test.snps.duckdb"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunConvert_MissingParent(t *testing.T) {
	opts := testOptions(t)
	opts.Output = filepath.Join(t.TempDir(), "absent", "out.snps.duckdb")

	_, err := runConvert(context.Background(), opts, "../../testdata/snps_3x4.vcf", nil, &bytes.Buffer{}, zap.NewNop())
	assert.ErrorIs(t, err, duckdb.ErrWriteFailure)
}

func TestRunConvert_Stdin(t *testing.T) {
	f, err := os.Open("../../testdata/ipyrad_denovo.vcf")
	require.NoError(t, err)
	defer f.Close()

	opts := testOptions(t)
	opts.BlockSize = 0
	opts.Output = filepath.Join(t.TempDir(), "stdin.snps.duckdb")

	path, err := runConvert(context.Background(), opts, "-", f, &bytes.Buffer{}, zap.NewNop())
	require.NoError(t, err)

	store, err := duckdb.Open(path)
	require.NoError(t, err)
	defer store.Close()

	src, err := store.Source()
	require.NoError(t, err)
	assert.Equal(t, "-", src.File.Path)
	assert.Equal(t, "inherited", src.Mode)
	assert.Equal(t, "ipyrad_v.0.9.14", src.FormatSource)
}

func TestRun_ExitCodes(t *testing.T) {
	out := filepath.Join(t.TempDir(), "x.snps.duckdb")

	tests := []struct {
		name string
		args []string
		want int
	}{
		{"missing input", []string{"convert"}, ExitUsage},
		{"unknown flag", []string{"convert", "--bogus", "a.vcf"}, ExitUsage},
		{"bad log level", []string{"convert", "--log-level", "loud", "-o", out, "a.vcf"}, ExitUsage},
		{"missing file", []string{"convert", "-q", "-o", out, "-b", "10", "absent.vcf"}, ExitError},
		{"missing grouping", []string{"convert", "-q", "-o", out, "-b", "0", "../../testdata/snps_3x4.vcf"}, ExitError},
		{"success", []string{"convert", "-q", "-f", "-o", out, "-b", "10", "../../testdata/snps_3x4.vcf"}, ExitSuccess},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, run(tt.args))
		})
	}
}

func TestInspectAndExport(t *testing.T) {
	opts := testOptions(t)
	path, err := runConvert(context.Background(), opts, "../../testdata/snps_3x4.vcf", nil, &bytes.Buffer{}, zap.NewNop())
	require.NoError(t, err)

	var buf bytes.Buffer
	root := newRootCmd()
	root.SetOut(&buf)
	root.SetArgs([]string{"inspect", "--rows", "2", path})
	require.NoError(t, root.Execute())

	got := buf.String()
	assert.Contains(t, got, "genos    u1 [4 3 2]\n")
	assert.Contains(t, got, "snps     u1 [3 4]\n")
	assert.Contains(t, got, "snpsmap  u4 [4 5]\n")
	assert.Contains(t, got, "samples (3): s1 s2 s3\n")
	assert.Contains(t, got, "#Variant\tLocation")
	assert.Contains(t, got, "0\tchr1:5\t1\t0\t")

	dir := filepath.Join(t.TempDir(), "npy")
	buf.Reset()
	root = newRootCmd()
	root.SetOut(&buf)
	root.SetArgs([]string{"export", "--dir", dir, path})
	require.NoError(t, root.Execute())
	assert.FileExists(t, filepath.Join(dir, "snps.npy"))

	buf.Reset()
	root = newRootCmd()
	root.SetOut(&buf)
	root.SetArgs([]string{"export", "--format", "arrow", "--dir", dir, path})
	require.NoError(t, root.Execute())
	assert.FileExists(t, filepath.Join(dir, "snps.arrow"))
}

func TestConfigSet(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Cleanup(viper.Reset)

	var buf bytes.Buffer
	require.NoError(t, runConfigSet(&buf, "block-size", "5000"))

	data, err := os.ReadFile(filepath.Join(home, configName+".yaml"))
	require.NoError(t, err)

	var cfg map[string]any
	require.NoError(t, yaml.Unmarshal(data, &cfg))
	assert.Equal(t, 5000, cfg["block-size"])

	buf.Reset()
	require.NoError(t, runConfigGet(&buf, "block-size"))
	assert.Equal(t, "5000\n", buf.String())

	assert.Error(t, runConfigGet(&buf, "no-such-key"))
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "512 B", formatSize(512))
	assert.Equal(t, "1.5 KB", formatSize(1536))
	assert.Equal(t, "2.0 MB", formatSize(2*1024*1024))
}
