package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/vcf2snps/internal/duckdb"
	"github.com/inodb/vcf2snps/internal/matrix"
)

// DatabaseSuffix is appended to the run name to form the default output file.
const DatabaseSuffix = ".snps.duckdb"

// convertOptions holds the settings of one conversion.
type convertOptions struct {
	Name      string
	Workdir   string
	Output    string
	BlockSize int
	Workers   int
	Quiet     bool
	Force     bool
}

func newConvertCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert [flags] <input.vcf>",
		Short: "Convert a VCF into a SNP matrix database",
		Long: `Convert the genotypes of a VCF (plain or gzip) into a SNP matrix database.

SNPs are grouped into linkage blocks either by the de-novo loci of an
ipyrad pseudo-reference VCF, or by fixed-width position windows within
each scaffold (--block-size). Use '-' to read the VCF from stdin.`,
		Example: `  vcf2snps convert --block-size 10000 calls.vcf.gz
  vcf2snps convert --name run1 --workdir out/ ipyrad.vcf
  gunzip -c calls.vcf.gz | vcf2snps convert -o calls.snps.duckdb --block-size 5000 -`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(viper.GetString("log-level"))
			if err != nil {
				return err
			}
			defer logger.Sync()

			opts := convertOptions{
				Name:      viper.GetString("name"),
				Workdir:   viper.GetString("workdir"),
				Output:    viper.GetString("output"),
				BlockSize: viper.GetInt("block-size"),
				Workers:   viper.GetInt("workers"),
				Quiet:     viper.GetBool("quiet"),
				Force:     viper.GetBool("force"),
			}
			if opts.BlockSize < 0 {
				return &usageError{fmt.Errorf("--block-size must not be negative, got %d", opts.BlockSize)}
			}

			out := cmd.OutOrStdout()
			if opts.Quiet {
				out = io.Discard
			}
			_, err = runConvert(cmd.Context(), opts, args[0], cmd.InOrStdin(), out, logger)
			return err
		},
	}

	flags := cmd.Flags()
	flags.StringP("name", "n", "test", "Run name; the database is <workdir>/<name>"+DatabaseSuffix)
	flags.StringP("workdir", "w", "./analysis-vcf2snps", "Directory for the database, created if missing")
	flags.StringP("output", "o", "", "Database path (overrides --name and --workdir; parent must exist)")
	flags.IntP("block-size", "b", 0, "Linkage block width in bp (0: use the VCF's de-novo loci)")
	flags.IntP("workers", "j", runtime.NumCPU(), "Number of parallel fill workers")
	flags.BoolP("quiet", "q", false, "Suppress the progress report")
	flags.BoolP("force", "f", false, "Rebuild even if the database is up to date")

	for _, name := range []string{"name", "workdir", "output", "block-size", "workers", "quiet", "force"} {
		viper.BindPFlag(name, flags.Lookup(name))
	}

	return cmd
}

// outputPath resolves where the database is written, creating the work
// directory when the default naming is used.
func outputPath(opts convertOptions) (string, error) {
	if opts.Output != "" {
		return opts.Output, nil
	}
	if err := os.MkdirAll(opts.Workdir, 0o755); err != nil {
		return "", fmt.Errorf("create workdir: %w", err)
	}
	return filepath.Join(opts.Workdir, opts.Name+DatabaseSuffix), nil
}

// runConvert converts input into a database and returns its path. input
// "-" reads stdin. Nothing is written at the output path unless the whole
// conversion succeeds.
func runConvert(ctx context.Context, opts convertOptions, input string, stdin io.Reader, out io.Writer, logger *zap.Logger) (string, error) {
	dbPath, err := outputPath(opts)
	if err != nil {
		return "", err
	}

	var fp duckdb.FileFingerprint
	if input == "-" {
		path, cleanup, err := matrix.Spool(stdin, "")
		if err != nil {
			return "", err
		}
		defer cleanup()
		logger.Debug("spooled stdin", zap.String("path", path))

		if fp, err = duckdb.StatFile(path); err != nil {
			return "", err
		}
		fp.Path = "-"
		input = path
	} else {
		abs, err := filepath.Abs(input)
		if err != nil {
			return "", err
		}
		fp, err = duckdb.StatFile(abs)
		if err == nil && !opts.Force && upToDate(dbPath, fp, opts.BlockSize, logger) {
			fmt.Fprintf(out, "database up to date: %s\n", dbPath)
			return dbPath, nil
		}
	}

	start := time.Now()
	b := matrix.NewBuilder(opts.BlockSize)
	b.SetWorkers(opts.Workers)
	b.SetLogger(logger)
	b.SetOutput(out)

	m, summary, err := b.Build(ctx, input)
	if err != nil {
		return "", err
	}

	src := duckdb.Source{
		File:         fp,
		FormatSource: summary.Source,
		Reference:    summary.Reference,
		BlockSize:    opts.BlockSize,
		Mode:         summary.Mode.String(),
	}
	if err := duckdb.Write(dbPath, m, src); err != nil {
		return "", err
	}

	fmt.Fprintf(out, "database: %d snps; %d scaffolds; %d linkage blocks\n",
		summary.Variants, summary.Scaffolds, summary.Blocks)

	size := "unknown"
	if info, err := os.Stat(dbPath); err == nil {
		size = formatSize(info.Size())
	}
	fmt.Fprintf(out, "wrote %s (%s)\n", dbPath, size)

	logger.Info("conversion complete",
		zap.String("output", dbPath),
		zap.Int("samples", summary.Samples),
		zap.Stringer("mode", summary.Mode),
		zap.Duration("elapsed", time.Since(start)))

	return dbPath, nil
}

// upToDate reports whether the database at dbPath was built from the file
// described by fp with the same block size.
func upToDate(dbPath string, fp duckdb.FileFingerprint, blockSize int, logger *zap.Logger) bool {
	if _, err := os.Stat(dbPath); err != nil {
		return false
	}

	store, err := duckdb.Open(dbPath)
	if err != nil {
		logger.Warn("existing database unreadable, rebuilding", zap.String("path", dbPath), zap.Error(err))
		return false
	}
	defer store.Close()

	src, err := store.Source()
	if err != nil {
		logger.Debug("existing database has no source record", zap.Error(err))
		return false
	}
	return src.File.Path == fp.Path && src.BlockSize == blockSize && src.Matches(fp)
}
